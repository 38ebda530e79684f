// Package schema defines table schemas: the ordered field rules and record
// assertions each submission table is validated against. Schemas are YAML
// documents decoded strictly, checked against a reflected JSON Schema, and
// held in a Registry keyed by canonical table name.
package schema

// APIVersion is the only schema document version understood.
const APIVersion = "table/v1"

// FieldType is the scalar type a field value must parse as.
type FieldType string

const (
	TypeString FieldType = "string"
	TypeInt    FieldType = "int"
	TypeFloat  FieldType = "float"
)

// Schema is the rule set of one table.
type Schema struct {
	APIVersion  string      `yaml:"apiVersion" json:"apiVersion" jsonschema:"enum=table/v1"`
	Table       string      `yaml:"table" json:"table" jsonschema:"pattern=^[a-z][a-z0-9_]*$"`
	Description string      `yaml:"description,omitempty" json:"description,omitempty"`
	Fields      []FieldRule `yaml:"fields" json:"fields" jsonschema:"minItems=1"`
	Assertions  []Assertion `yaml:"assertions,omitempty" json:"assertions,omitempty"`
}

// FieldRule declares how one field is normalized and checked.
type FieldRule struct {
	Name        string    `yaml:"name" json:"name" jsonschema:"pattern=^[a-z][a-z0-9_]*$"`
	Description string    `yaml:"description,omitempty" json:"description,omitempty"`
	Required    bool      `yaml:"required,omitempty" json:"required,omitempty"`
	Type        FieldType `yaml:"type,omitempty" json:"type,omitempty" jsonschema:"enum=string,enum=int,enum=float"`
	Allowed     []string  `yaml:"allowed,omitempty" json:"allowed,omitempty"`
	Multi       bool      `yaml:"multi,omitempty" json:"multi,omitempty"`
	Coerce      []string  `yaml:"coerce,omitempty" json:"coerce,omitempty"`
	Checks      []string  `yaml:"checks,omitempty" json:"checks,omitempty"`
}

// Assertion is a boolean expression over a whole record. When it evaluates
// to false, Message is reported against Field.
type Assertion struct {
	Name    string `yaml:"name" json:"name"`
	Field   string `yaml:"field" json:"field"`
	Expr    string `yaml:"expr" json:"expr"`
	Message string `yaml:"message" json:"message"`
}

// Field returns the rule of a named field.
func (s *Schema) Field(name string) (FieldRule, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldRule{}, false
}

// FieldNames returns the field names in schema order.
func (s *Schema) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// RequiredFields returns the names of required fields in schema order.
func (s *Schema) RequiredFields() []string {
	var names []string
	for _, f := range s.Fields {
		if f.Required {
			names = append(names, f.Name)
		}
	}
	return names
}
