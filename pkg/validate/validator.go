// Package validate implements the record validation pipeline: per-record
// normalization and checks, table-wide uniqueness, and cross-table
// reference checks. Every finding is collected as an issue; nothing fails
// fast.
package validate

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"golang.org/x/sync/errgroup"

	"github.com/BCM-HGSC/GREGoR-AnVIL-automation/pkg/issue"
	"github.com/BCM-HGSC/GREGoR-AnVIL-automation/pkg/record"
	"github.com/BCM-HGSC/GREGoR-AnVIL-automation/pkg/rules"
	"github.com/BCM-HGSC/GREGoR-AnVIL-automation/pkg/schema"
)

// boundField is a field rule with its coercions and checks resolved.
type boundField struct {
	rule      schema.FieldRule
	coercions []rules.Coercion
	checks    []rules.BoundCheck
}

type boundAssertion struct {
	assertion schema.Assertion
	program   *vm.Program
}

// Validator normalizes and checks records of one table. It is immutable
// after construction and safe for concurrent use.
type Validator struct {
	table      string
	fields     []boundField
	assertions []boundAssertion
}

// New binds a schema to the registry, resolving every coercion and check
// name once and compiling assertions. Binding failures are returned as a
// *schema.ConfigError.
func New(s *schema.Schema, reg *rules.Registry) (*Validator, error) {
	v := &Validator{table: s.Table}
	for _, rule := range s.Fields {
		bf := boundField{rule: rule}
		for _, name := range rule.Coerce {
			c, err := reg.Coercion(name)
			if err != nil {
				return nil, &schema.ConfigError{Table: s.Table, Field: rule.Name, Reason: "bind coercion", Err: err}
			}
			bf.coercions = append(bf.coercions, c)
		}
		for _, name := range rule.Checks {
			c, err := reg.Check(name, rule.Name)
			if err != nil {
				return nil, &schema.ConfigError{Table: s.Table, Field: rule.Name, Reason: "bind check", Err: err}
			}
			bf.checks = append(bf.checks, c)
		}
		v.fields = append(v.fields, bf)
	}
	for _, a := range s.Assertions {
		program, err := expr.Compile(a.Expr, expr.AsBool(), expr.AllowUndefinedVariables())
		if err != nil {
			return nil, &schema.ConfigError{Table: s.Table, Field: a.Field, Reason: fmt.Sprintf("compile assertion %q", a.Name), Err: err}
		}
		v.assertions = append(v.assertions, boundAssertion{assertion: a, program: program})
	}
	return v, nil
}

// Table returns the name of the table the validator serves.
func (v *Validator) Table() string { return v.table }

// Validate normalizes rec in place and returns its issues in schema field
// order. All coercions run before any check, so checks that read sibling
// fields see normalized values.
func (v *Validator) Validate(rec *record.Record, env rules.Env) []issue.Issue {
	v.normalize(rec, env)

	var issues []issue.Issue
	add := func(field string, msgs ...string) {
		for _, m := range msgs {
			issues = append(issues, issue.Newf(v.table, field, rec.Row, "%s", m))
		}
	}

	for _, bf := range v.fields {
		name := bf.rule.Name
		value, present := rec.Lookup(name)
		blank := strings.TrimSpace(value) == ""

		if bf.rule.Required {
			switch {
			case !present:
				add(name, "required field")
				continue
			case blank:
				add(name, "empty values not allowed")
				continue
			}
		}

		if blank || (!bf.rule.Required && rules.IsNA(value)) {
			for _, c := range bf.checks {
				if c.OnBlank {
					add(name, c.Fn(name, value, rec, env)...)
				}
			}
			continue
		}

		add(name, builtinChecks(bf.rule, value)...)
		for _, c := range bf.checks {
			add(name, c.Fn(name, value, rec, env)...)
		}
	}

	for _, ba := range v.assertions {
		ok, err := runAssertion(ba.program, rec)
		if err != nil {
			add(ba.assertion.Field, fmt.Sprintf("assertion %s could not be evaluated: %v", ba.assertion.Name, err))
			continue
		}
		if !ok {
			add(ba.assertion.Field, ba.assertion.Message)
		}
	}
	return issues
}

func (v *Validator) normalize(rec *record.Record, env rules.Env) {
	for _, bf := range v.fields {
		if len(bf.coercions) == 0 {
			continue
		}
		value, ok := rec.Lookup(bf.rule.Name)
		if !ok {
			continue
		}
		for _, c := range bf.coercions {
			value = c(value, rec, env)
		}
		rec.Set(bf.rule.Name, value)
	}
}

// builtinChecks applies the structural rules declared on the field itself.
func builtinChecks(rule schema.FieldRule, value string) []string {
	var msgs []string
	switch rule.Type {
	case schema.TypeInt:
		if _, err := strconv.Atoi(strings.TrimSpace(value)); err != nil {
			msgs = append(msgs, "Value requires an int")
		}
	case schema.TypeFloat:
		if _, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err != nil {
			msgs = append(msgs, "Value requires a number")
		}
	}
	if len(rule.Allowed) > 0 {
		if rule.Multi {
			for _, seg := range rules.SplitMulti(value) {
				if !slices.Contains(rule.Allowed, seg) {
					msgs = append(msgs, fmt.Sprintf("unallowed value %s", seg))
				}
			}
		} else if !slices.Contains(rule.Allowed, value) {
			msgs = append(msgs, fmt.Sprintf("unallowed value %s", value))
		}
	}
	return msgs
}

func runAssertion(program *vm.Program, rec *record.Record) (bool, error) {
	env := make(map[string]any, len(rec.Fields()))
	for k, val := range rec.Map() {
		env[k] = val
	}
	out, err := expr.Run(program, env)
	if err != nil {
		return false, err
	}
	ok, _ := out.(bool)
	return ok, nil
}

// ValidateAll validates records concurrently using up to workers goroutines
// and returns their issues in record order.
func (v *Validator) ValidateAll(ctx context.Context, records []*record.Record, env rules.Env, workers int) ([]issue.Issue, error) {
	if workers < 1 {
		workers = 1
	}
	results := make([][]issue.Issue, len(records))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, rec := range records {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = v.Validate(rec, env)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("validate %s: %w", v.table, err)
	}

	var issues []issue.Issue
	for _, r := range results {
		issues = append(issues, r...)
	}
	return issues, nil
}
