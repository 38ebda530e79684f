package schema

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadFile reads and validates a table schema YAML file.
func LoadFile(path string) (*Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open schema: %w", err)
	}
	defer f.Close()
	return Load(f, path)
}

// Load reads a table schema from r and runs the three load phases:
// structural (strict YAML decode), semantic (JSON Schema), and domain.
// Later phases only run when the earlier ones pass.
func Load(r io.Reader, source string) (*Schema, error) {
	var s Schema
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true) // strict: reject unknown fields
	if err := dec.Decode(&s); err != nil {
		return nil, &LoadError{Source: source, Problems: []Problem{
			problemf("structural", "", "decode: %v", err),
		}}
	}

	if problems := validateSemantic(&s); len(problems) > 0 {
		return nil, &LoadError{Source: source, Problems: problems}
	}
	if problems := validateDomain(&s); len(problems) > 0 {
		return nil, &LoadError{Source: source, Problems: problems}
	}
	normalize(&s)
	return &s, nil
}

// normalize fills defaults the document may omit.
func normalize(s *Schema) {
	for i := range s.Fields {
		if s.Fields[i].Type == "" {
			s.Fields[i].Type = TypeString
		}
	}
}

// validateDomain enforces rules JSON Schema cannot express.
func validateDomain(s *Schema) []Problem {
	var problems []Problem
	seen := make(map[string]int)
	for i, f := range s.Fields {
		path := fmt.Sprintf("fields[%d]", i)
		if first, dup := seen[f.Name]; dup {
			problems = append(problems, problemf("domain", path, "duplicate field %q (first at fields[%d])", f.Name, first))
			continue
		}
		seen[f.Name] = i
		if f.Multi && len(f.Allowed) == 0 {
			problems = append(problems, problemf("domain", path, "field %q is multi-valued but declares no allowed values", f.Name))
		}
		if len(f.Allowed) > 0 && f.Type != "" && f.Type != TypeString {
			problems = append(problems, problemf("domain", path, "field %q restricts allowed values on a %s field", f.Name, f.Type))
		}
		if i := slices.IndexFunc(f.Allowed, func(v string) bool { return strings.TrimSpace(v) == "" }); i >= 0 {
			problems = append(problems, problemf("domain", fmt.Sprintf("%s.allowed[%d]", path, i), "blank allowed value"))
		}
	}
	for i, a := range s.Assertions {
		path := fmt.Sprintf("assertions[%d]", i)
		if _, ok := seen[a.Field]; !ok {
			problems = append(problems, problemf("domain", path, "assertion %q targets unknown field %q", a.Name, a.Field))
		}
		if strings.TrimSpace(a.Expr) == "" {
			problems = append(problems, problemf("domain", path, "assertion %q has an empty expression", a.Name))
		}
	}
	return problems
}
