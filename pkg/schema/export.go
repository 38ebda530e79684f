package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
	sjsonschema "github.com/santhosh-tekuri/jsonschema/v6"
)

const jsonSchemaID = "https://github.com/BCM-HGSC/GREGoR-AnVIL-automation/schemas/table-v1.json"

// GenerateJSONSchema produces a JSON Schema Draft 2020-12 document from the
// table/v1 Go types.
func GenerateJSONSchema() ([]byte, error) {
	r := new(jsonschema.Reflector)
	s := r.Reflect(&Schema{})
	s.ID = jsonSchemaID
	s.Title = "GREGoR table schema (table/v1)"
	s.Description = "Schema for table/v1 field-rule YAML documents (Draft 2020-12)"

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal table schema: %w", err)
	}
	return data, nil
}

// validateSemantic validates a decoded schema against the reflected JSON
// Schema.
func validateSemantic(s *Schema) []Problem {
	data, err := json.Marshal(s)
	if err != nil {
		return []Problem{problemf("semantic", "", "marshal for schema validation: %v", err)}
	}

	schemaJSON, err := GenerateJSONSchema()
	if err != nil {
		return []Problem{problemf("semantic", "", "generate schema: %v", err)}
	}

	var schemaDoc any
	if err := json.Unmarshal(schemaJSON, &schemaDoc); err != nil {
		return []Problem{problemf("semantic", "", "unmarshal schema: %v", err)}
	}

	c := sjsonschema.NewCompiler()
	if err := c.AddResource("table-v1.json", schemaDoc); err != nil {
		return []Problem{problemf("semantic", "", "add schema resource: %v", err)}
	}
	sch, err := c.Compile("table-v1.json")
	if err != nil {
		return []Problem{problemf("semantic", "", "compile schema: %v", err)}
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return []Problem{problemf("semantic", "", "unmarshal document: %v", err)}
	}

	if err := sch.Validate(doc); err != nil {
		ve, ok := err.(*sjsonschema.ValidationError)
		if !ok {
			return []Problem{problemf("semantic", "", "%v", err)}
		}
		var problems []Problem
		for _, cause := range flattenValidationErrors(ve) {
			problems = append(problems, problemf("semantic", strings.Join(cause.InstanceLocation, "/"), "%v", cause.ErrorKind))
		}
		return problems
	}
	return nil
}

// flattenValidationErrors recursively collects all leaf validation errors.
func flattenValidationErrors(ve *sjsonschema.ValidationError) []*sjsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return []*sjsonschema.ValidationError{ve}
	}
	var flat []*sjsonschema.ValidationError
	for _, cause := range ve.Causes {
		flat = append(flat, flattenValidationErrors(cause)...)
	}
	return flat
}
