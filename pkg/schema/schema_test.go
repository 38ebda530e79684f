package schema

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltin_LoadsEveryTable(t *testing.T) {
	r, err := Builtin()
	require.NoError(t, err)

	assert.Equal(t, []string{
		"aligned_dna_short_read",
		"aligned_nanopore",
		"analyte",
		"experiment_dna_short_read",
		"experiment_nanopore",
		"family",
		"genetic_findings",
		"participant",
		"phenotype",
	}, r.Tables())

	for _, name := range r.Tables() {
		s, err := r.Lookup(name)
		require.NoError(t, err, name)
		assert.Equal(t, APIVersion, s.APIVersion)
		for _, f := range s.Fields {
			assert.NotEmpty(t, f.Type, "%s.%s type default", name, f.Name)
		}
	}
}

func TestRegistry_LookupCanonicalizes(t *testing.T) {
	r, err := Builtin()
	require.NoError(t, err)

	s, err := r.Lookup("ExpShortRead")
	require.NoError(t, err)
	assert.Equal(t, "experiment_dna_short_read", s.Table)

	s, err = r.Lookup("Genetic_Findings_Table")
	require.NoError(t, err)
	assert.Equal(t, "genetic_findings", s.Table)
}

func TestRegistry_NotFound(t *testing.T) {
	r, err := Builtin()
	require.NoError(t, err)

	_, err = r.Lookup("experiment_rna_short_read")
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "experiment_rna_short_read", nf.Table)
}

func TestSchema_FieldAccessors(t *testing.T) {
	r, err := Builtin()
	require.NoError(t, err)
	s, err := r.Lookup("participant")
	require.NoError(t, err)

	f, ok := s.Field("sex")
	require.True(t, ok)
	assert.True(t, f.Required)
	assert.Equal(t, []string{"initialcase"}, f.Coerce)
	assert.Equal(t, "participant_id", s.FieldNames()[0])
	assert.Contains(t, s.RequiredFields(), "family_id")
	assert.NotContains(t, s.RequiredFields(), "twin_id")

	_, ok = s.Field("nope")
	assert.False(t, ok)
}

const minimal = `apiVersion: table/v1
table: widget
fields:
  - name: widget_id
    required: true
  - name: size
    type: int
`

func TestLoad_Minimal(t *testing.T) {
	s, err := Load(strings.NewReader(minimal), "widget.yaml")
	require.NoError(t, err)
	assert.Equal(t, "widget", s.Table)
	assert.Equal(t, TypeString, s.Fields[0].Type)
	assert.Equal(t, TypeInt, s.Fields[1].Type)
}

func loadProblems(t *testing.T, doc string) []Problem {
	t.Helper()
	_, err := Load(strings.NewReader(doc), "test.yaml")
	require.Error(t, err)
	var le *LoadError
	require.True(t, errors.As(err, &le), "want *LoadError, got %T", err)
	require.NotEmpty(t, le.Problems)
	return le.Problems
}

func TestLoad_RejectsUnknownKeys(t *testing.T) {
	problems := loadProblems(t, minimal+"    colour: red\n")
	assert.Equal(t, "structural", problems[0].Phase)
}

func TestLoad_SemanticErrors(t *testing.T) {
	tests := map[string]string{
		"bad type": `apiVersion: table/v1
table: widget
fields:
  - name: size
    type: decimal
`,
		"bad version": `apiVersion: table/v9
table: widget
fields:
  - name: size
`,
		"no fields": `apiVersion: table/v1
table: widget
fields: []
`,
		"bad field name": `apiVersion: table/v1
table: widget
fields:
  - name: Size
`,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			problems := loadProblems(t, doc)
			assert.Equal(t, "semantic", problems[0].Phase)
		})
	}
}

func TestLoad_DomainErrors(t *testing.T) {
	problems := loadProblems(t, `apiVersion: table/v1
table: widget
fields:
  - name: size
  - name: size
  - name: colour
    multi: true
assertions:
  - name: ghost
    field: missing
    expr: "true"
    message: never
`)
	var msgs []string
	for _, p := range problems {
		assert.Equal(t, "domain", p.Phase)
		msgs = append(msgs, p.Message)
	}
	joined := strings.Join(msgs, "\n")
	assert.Contains(t, joined, `duplicate field "size"`)
	assert.Contains(t, joined, `multi-valued`)
	assert.Contains(t, joined, `unknown field "missing"`)
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "widget.yaml"), []byte(minimal), 0o644))

	r, err := LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"widget"}, r.Tables())

	_, err = LoadDir(t.TempDir())
	assert.Error(t, err)
}

func TestRegistry_AddDuplicate(t *testing.T) {
	r := NewRegistry()
	s, err := Load(strings.NewReader(minimal), "widget.yaml")
	require.NoError(t, err)
	require.NoError(t, r.Add(s))
	assert.Error(t, r.Add(s))
}

func TestGenerateJSONSchema(t *testing.T) {
	data, err := GenerateJSONSchema()
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, jsonSchemaID, doc["$id"])
	assert.Contains(t, string(data), "table/v1")
}

func TestConfigError_Message(t *testing.T) {
	err := &ConfigError{Table: "genetic_findings", Field: "md5sum", Reason: "bind check", Err: errors.New("no governing field")}
	assert.Equal(t, "schema genetic_findings field md5sum: bind check: no governing field", err.Error())
	assert.EqualError(t, errors.Unwrap(err), "no governing field")
}
