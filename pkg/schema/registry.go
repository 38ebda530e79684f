package schema

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"slices"

	"github.com/BCM-HGSC/GREGoR-AnVIL-automation/pkg/record"
)

//go:embed tables/*.yaml
var builtinTables embed.FS

// Registry holds schemas keyed by canonical table name.
type Registry struct {
	schemas map[string]*Schema
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{schemas: make(map[string]*Schema)}
}

// Builtin returns a registry holding the schemas shipped with the module.
func Builtin() (*Registry, error) {
	return LoadFS(builtinTables, "tables")
}

// LoadDir loads every *.yaml schema in dir.
func LoadDir(dir string) (*Registry, error) {
	return LoadFS(os.DirFS(dir), ".")
}

// LoadFS loads every *.yaml schema under root in fsys. All load failures are
// collected and returned together.
func LoadFS(fsys fs.FS, root string) (*Registry, error) {
	matches, err := fs.Glob(fsys, path.Join(root, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("list schemas: %w", err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no schemas found in %s", root)
	}
	slices.Sort(matches)

	r := NewRegistry()
	var errs []error
	for _, name := range matches {
		f, err := fsys.Open(name)
		if err != nil {
			errs = append(errs, fmt.Errorf("open schema %s: %w", name, err))
			continue
		}
		s, err := Load(f, name)
		f.Close()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := r.Add(s); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return r, nil
}

// Add registers a schema under its canonical table name.
func (r *Registry) Add(s *Schema) error {
	name := record.CanonicalTableName(s.Table)
	if _, ok := r.schemas[name]; ok {
		return fmt.Errorf("duplicate schema for table %q", name)
	}
	r.schemas[name] = s
	return nil
}

// Lookup returns the schema of a table. The name is canonicalized first.
func (r *Registry) Lookup(table string) (*Schema, error) {
	s, ok := r.schemas[record.CanonicalTableName(table)]
	if !ok {
		return nil, &NotFoundError{Table: table}
	}
	return s, nil
}

// Tables returns the registered table names, sorted.
func (r *Registry) Tables() []string {
	names := make([]string, 0, len(r.schemas))
	for n := range r.schemas {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}
