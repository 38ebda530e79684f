package rules

import (
	"errors"
	"fmt"
	"slices"

	"github.com/BCM-HGSC/GREGoR-AnVIL-automation/pkg/record"
)

// Coercion rewrites a field value before checks run. Coercions never fail
// and are fixed points: applying one to its own output changes nothing.
type Coercion func(value string, rec record.View, env Env) string

// Check inspects a field value and returns zero or more failure messages.
// Checks only read the record.
type Check func(field, value string, rec record.View, env Env) []string

var (
	// ErrUnknownCheck is returned when a schema names an unregistered check.
	ErrUnknownCheck = errors.New("unknown check")
	// ErrUnknownCoercion is returned when a schema names an unregistered coercion.
	ErrUnknownCoercion = errors.New("unknown coercion")
)

type checkEntry struct {
	fn Check
	// onBlank checks also run when a non-required field is blank.
	onBlank bool
	// bind verifies the check can serve the given field.
	bind func(field string) error
}

// BoundCheck is a check resolved for one field.
type BoundCheck struct {
	Name    string
	Fn      Check
	OnBlank bool
}

// Registry maps coercion and check names to their implementations.
type Registry struct {
	coercions map[string]Coercion
	checks    map[string]checkEntry
}

// NewRegistry returns a registry holding every built-in coercion and check.
func NewRegistry() *Registry {
	r := &Registry{
		coercions: make(map[string]Coercion),
		checks:    make(map[string]checkEntry),
	}
	registerCoercions(r)
	registerChecks(r)
	return r
}

// RegisterCoercion adds or replaces a coercion.
func (r *Registry) RegisterCoercion(name string, c Coercion) {
	r.coercions[name] = c
}

// RegisterCheck adds or replaces a check.
func (r *Registry) RegisterCheck(name string, c Check) {
	r.checks[name] = checkEntry{fn: c}
}

func (r *Registry) registerBound(name string, c Check, onBlank bool, bind func(string) error) {
	r.checks[name] = checkEntry{fn: c, onBlank: onBlank, bind: bind}
}

// Coercion resolves a coercion by name.
func (r *Registry) Coercion(name string) (Coercion, error) {
	c, ok := r.coercions[name]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownCoercion, name)
	}
	return c, nil
}

// Check resolves a check by name for the given field.
func (r *Registry) Check(name, field string) (BoundCheck, error) {
	e, ok := r.checks[name]
	if !ok {
		return BoundCheck{}, fmt.Errorf("%w %q", ErrUnknownCheck, name)
	}
	if e.bind != nil {
		if err := e.bind(field); err != nil {
			return BoundCheck{}, fmt.Errorf("check %q: %w", name, err)
		}
	}
	return BoundCheck{Name: name, Fn: e.fn, OnBlank: e.onBlank}, nil
}

// CheckNames returns the registered check names, sorted.
func (r *Registry) CheckNames() []string {
	names := make([]string, 0, len(r.checks))
	for n := range r.checks {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// CoercionNames returns the registered coercion names, sorted.
func (r *Registry) CoercionNames() []string {
	names := make([]string, 0, len(r.coercions))
	for n := range r.coercions {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}
