package validate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/BCM-HGSC/GREGoR-AnVIL-automation/pkg/issue"
	"github.com/BCM-HGSC/GREGoR-AnVIL-automation/pkg/merge"
	"github.com/BCM-HGSC/GREGoR-AnVIL-automation/pkg/record"
	"github.com/BCM-HGSC/GREGoR-AnVIL-automation/pkg/rules"
	"github.com/BCM-HGSC/GREGoR-AnVIL-automation/pkg/schema"
	"github.com/BCM-HGSC/GREGoR-AnVIL-automation/pkg/trace"
)

var discardLogger = slog.New(slog.DiscardHandler)

// ErrNoBatch is returned by Run when the submission names no batch.
var ErrNoBatch = errors.New("submission batch is required")

// Submission is the input of one validation run.
type Submission struct {
	Tables   *record.Tables
	Batch    rules.Batch
	Bucket   string
	Metadata []*record.Record
}

// TableSummary records how one table fared in a run.
type TableSummary struct {
	Table    string        `json:"table"`
	Records  int           `json:"records"`
	Issues   int           `json:"issues"`
	Skipped  bool          `json:"skipped,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Result is the outcome of a run: the normalized tables, every issue in
// production order, and the merge counters.
type Result struct {
	RunID   string         `json:"run_id,omitempty"`
	Tables  *record.Tables `json:"-"`
	Issues  []issue.Issue  `json:"issues"`
	Merge   merge.Stats    `json:"merge"`
	Summary []TableSummary `json:"tables"`
}

// OK reports whether the submission may be emitted.
func (r *Result) OK() bool {
	return len(r.Issues) == 0
}

// Engine runs the validation pipeline over a submission.
type Engine struct {
	schemas  *schema.Registry
	registry *rules.Registry
	plan     merge.Plan
	logger   *slog.Logger
	trace    *trace.Writer
	workers  int
}

// Option configures an Engine.
type Option func(*Engine)

// WithSchemas sets the table schemas. The built-in schemas are used otherwise.
func WithSchemas(r *schema.Registry) Option {
	return func(e *Engine) { e.schemas = r }
}

// WithRegistry sets the coercion and check registry.
func WithRegistry(r *rules.Registry) Option {
	return func(e *Engine) { e.registry = r }
}

// WithMergePlan replaces the metadata merge plan.
func WithMergePlan(p merge.Plan) Option {
	return func(e *Engine) { e.plan = p }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithTrace sets the audit trail writer.
func WithTrace(tw *trace.Writer) Option {
	return func(e *Engine) { e.trace = tw }
}

// WithWorkers bounds per-table record concurrency. Values below 1 select
// GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(e *Engine) { e.workers = n }
}

// NewEngine builds an engine. It fails only when the built-in schemas
// cannot be loaded.
func NewEngine(opts ...Option) (*Engine, error) {
	e := &Engine{plan: merge.ShortReads, logger: discardLogger}
	for _, opt := range opts {
		opt(e)
	}
	if e.schemas == nil {
		reg, err := schema.Builtin()
		if err != nil {
			return nil, fmt.Errorf("load built-in schemas: %w", err)
		}
		e.schemas = reg
	}
	if e.registry == nil {
		e.registry = rules.NewRegistry()
	}
	if e.logger == nil {
		e.logger = discardLogger
	}
	if e.workers < 1 {
		e.workers = runtime.GOMAXPROCS(0)
	}
	return e, nil
}

// Schemas returns the schema registry the engine validates against.
func (e *Engine) Schemas() *schema.Registry {
	return e.schemas
}

// Run validates a submission. Findings are collected in the result; the
// returned error joins structural failures (a table without a schema or
// with a schema that cannot be bound) and is non-nil alongside a partial
// result. Run returns no result only when the batch is missing or ctx is
// cancelled.
func (e *Engine) Run(ctx context.Context, sub Submission) (*Result, error) {
	if sub.Batch.IsZero() {
		return nil, ErrNoBatch
	}
	start := time.Now()
	tables := record.NewTables()
	if sub.Tables != nil {
		tables = sub.Tables.Canonical()
	}
	env := rules.Env{Batch: sub.Batch, Bucket: sub.Bucket}
	ledger := issue.NewLedger()
	res := &Result{RunID: e.trace.RunID(), Tables: tables}
	log := e.logger.With("batch", sub.Batch.String())

	log.Info("run started", "tables", tables.Len(), "metadata_rows", len(sub.Metadata))
	e.emit(e.trace.EmitRunStart(tables.Names(), sub.Batch.String(), len(sub.Metadata)))

	if len(sub.Metadata) > 0 {
		res.Merge = merge.Apply(e.plan, sub.Metadata, tables, sub.Bucket, ledger)
		log.Info("metadata merged", "rows", res.Merge.Rows, "filled", res.Merge.Filled,
			"conflicts", res.Merge.Conflicts, "unmatched", res.Merge.Unmatched)
		e.emit(e.trace.EmitMergeApplied(res.Merge.Rows, res.Merge.Filled, res.Merge.Conflicts, res.Merge.Unmatched))
	}

	var errs []error
	validated := record.NewTables()
	for _, name := range tables.Names() {
		records, _ := tables.Get(name)
		tableStart := time.Now()

		v, err := e.validator(name)
		if err != nil {
			log.Warn("table skipped", "table", name, "error", err)
			e.emit(e.trace.EmitTableSkipped(name, err))
			res.Summary = append(res.Summary, TableSummary{Table: name, Records: len(records), Skipped: true})
			errs = append(errs, err)
			continue
		}

		before := ledger.Len()
		issues, err := v.ValidateAll(ctx, records, env, e.workers)
		if err != nil {
			return nil, err
		}
		ledger.Append(issues...)
		CheckUniqueness(records, name, ledger, log)
		validated.Set(name, records)

		summary := TableSummary{
			Table:    name,
			Records:  len(records),
			Issues:   ledger.Len() - before,
			Duration: time.Since(tableStart),
		}
		res.Summary = append(res.Summary, summary)
		log.Info("table validated", "table", name, "records", summary.Records, "issues", summary.Issues)
		e.emit(e.trace.EmitTableValidated(name, summary.Records, summary.Issues, summary.Duration))
	}

	before := ledger.Len()
	CheckCrossReferences(BuildReferenceIndex(validated), validated, ledger)
	e.emit(e.trace.EmitCrossReferencesChecked(ledger.Len() - before))

	res.Issues = ledger.Issues()
	status := "passed"
	if !res.OK() {
		status = "failed"
	}
	log.Info("run complete", "status", status, "issues", len(res.Issues), "duration", time.Since(start))
	e.emit(e.trace.EmitRunComplete(status, len(res.Issues), time.Since(start)))
	return res, errors.Join(errs...)
}

func (e *Engine) validator(table string) (*Validator, error) {
	s, err := e.schemas.Lookup(table)
	if err != nil {
		return nil, err
	}
	return New(s, e.registry)
}

// emit logs trace write failures; the audit trail never aborts a run.
func (e *Engine) emit(err error) {
	if err != nil {
		e.logger.Warn("trace write failed", "error", err)
	}
}
