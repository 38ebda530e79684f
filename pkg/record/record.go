// Package record holds the tabular data model shared by the validation engine:
// records with ordered fields, tables of records, and table-name aliases.
package record

import "slices"

// View is read-only access to a record's fields.
type View interface {
	Lookup(field string) (string, bool)
	Value(field string) string
}

// Record is one row of a submission table. Fields keep their source column
// order; Row is the 1-based position in the source sheet and is used for
// diagnostics only.
type Record struct {
	Row    int
	fields []string
	values map[string]string
}

// New creates an empty record for the given source row.
func New(row int) *Record {
	return &Record{Row: row, values: make(map[string]string)}
}

// FromPairs builds a record from alternating field/value strings.
// It is a convenience for fixtures and small literal records.
func FromPairs(row int, kv ...string) *Record {
	r := New(row)
	for i := 0; i+1 < len(kv); i += 2 {
		r.Set(kv[i], kv[i+1])
	}
	return r
}

// FromMap builds a record from a map, ordering fields by the given header.
// Header entries absent from m are skipped.
func FromMap(row int, header []string, m map[string]string) *Record {
	r := New(row)
	for _, h := range header {
		if v, ok := m[h]; ok {
			r.Set(h, v)
		}
	}
	return r
}

// Lookup returns the field value and whether the field is present.
func (r *Record) Lookup(field string) (string, bool) {
	v, ok := r.values[field]
	return v, ok
}

// Value returns the field value, or "" when the field is absent.
func (r *Record) Value(field string) string {
	return r.values[field]
}

// Has reports whether the field is present.
func (r *Record) Has(field string) bool {
	_, ok := r.values[field]
	return ok
}

// Set assigns a field value, appending the field if it is new.
func (r *Record) Set(field, value string) {
	if r.values == nil {
		r.values = make(map[string]string)
	}
	if _, ok := r.values[field]; !ok {
		r.fields = append(r.fields, field)
	}
	r.values[field] = value
}

// Fields returns the field names in column order.
func (r *Record) Fields() []string {
	return slices.Clone(r.fields)
}

// Map returns a copy of the field values.
func (r *Record) Map() map[string]string {
	m := make(map[string]string, len(r.values))
	for k, v := range r.values {
		m[k] = v
	}
	return m
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	c := &Record{
		Row:    r.Row,
		fields: slices.Clone(r.fields),
		values: make(map[string]string, len(r.values)),
	}
	for k, v := range r.values {
		c.values[k] = v
	}
	return c
}

// Tables maps table names to their records, preserving insertion order.
type Tables struct {
	names []string
	data  map[string][]*Record
}

// NewTables returns an empty table set.
func NewTables() *Tables {
	return &Tables{data: make(map[string][]*Record)}
}

// Set stores the records of a table, replacing any previous value.
func (t *Tables) Set(name string, records []*Record) {
	if t.data == nil {
		t.data = make(map[string][]*Record)
	}
	if _, ok := t.data[name]; !ok {
		t.names = append(t.names, name)
	}
	t.data[name] = records
}

// Get returns the records of a table and whether it exists.
func (t *Tables) Get(name string) ([]*Record, bool) {
	recs, ok := t.data[name]
	return recs, ok
}

// Has reports whether the table exists.
func (t *Tables) Has(name string) bool {
	_, ok := t.data[name]
	return ok
}

// Names returns the table names in insertion order.
func (t *Tables) Names() []string {
	return slices.Clone(t.names)
}

// Len returns the number of tables.
func (t *Tables) Len() int {
	return len(t.names)
}

// Canonical returns a new table set whose names are canonicalized. When two
// source names map to the same canonical table their records are concatenated
// in source order.
func (t *Tables) Canonical() *Tables {
	out := NewTables()
	for _, name := range t.names {
		canon := CanonicalTableName(name)
		prev, _ := out.Get(canon)
		out.Set(canon, append(prev, t.data[name]...))
	}
	return out
}
