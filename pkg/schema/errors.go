package schema

import (
	"fmt"
	"strings"
)

// NotFoundError is returned when a table has no known schema.
type NotFoundError struct {
	Table string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("schema not found for table %q", e.Table)
}

// ConfigError reports a schema that cannot be bound to the check registry,
// such as an unknown check name or a conditional rule with no governing field.
type ConfigError struct {
	Table  string
	Field  string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "schema %s", e.Table)
	if e.Field != "" {
		fmt.Fprintf(&b, " field %s", e.Field)
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Problem is one error found while loading a schema document.
type Problem struct {
	Phase   string `json:"phase"` // structural, semantic, domain
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (p Problem) String() string {
	if p.Path != "" {
		return fmt.Sprintf("[%s] %s at %s", p.Phase, p.Message, p.Path)
	}
	return fmt.Sprintf("[%s] %s", p.Phase, p.Message)
}

func problemf(phase, path, msg string, args ...any) Problem {
	return Problem{Phase: phase, Path: path, Message: fmt.Sprintf(msg, args...)}
}

// LoadError reports a schema document that failed to load.
type LoadError struct {
	Source   string
	Problems []Problem
}

func (e *LoadError) Error() string {
	msgs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		msgs[i] = p.String()
	}
	return fmt.Sprintf("load schema %s: %s", e.Source, strings.Join(msgs, "; "))
}
