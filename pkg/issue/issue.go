// Package issue defines validation findings and the ledger that collects
// them across a run. Findings are values, never errors: a run always
// completes and the ledger is the report.
package issue

import (
	"fmt"
	"sync"
)

// Issue is one validation finding. Row is nil for table-wide or
// cross-table findings.
type Issue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Table   string `json:"table_name"`
	Row     *int   `json:"row"`
}

func (i Issue) String() string {
	if i.Row != nil {
		return fmt.Sprintf("%s row %d: %s: %s", i.Table, *i.Row, i.Field, i.Message)
	}
	return fmt.Sprintf("%s: %s: %s", i.Table, i.Field, i.Message)
}

// RowNumber returns the row, or 0 when the issue has none.
func (i Issue) RowNumber() int {
	if i.Row == nil {
		return 0
	}
	return *i.Row
}

// Row returns a pointer to a copy of n.
func Row(n int) *int {
	return &n
}

// Newf builds an issue bound to a record row.
func Newf(table, field string, row int, msg string, args ...any) Issue {
	return Issue{
		Field:   field,
		Message: fmt.Sprintf(msg, args...),
		Table:   table,
		Row:     Row(row),
	}
}

// TableWidef builds an issue with no row.
func TableWidef(table, field, msg string, args ...any) Issue {
	return Issue{
		Field:   field,
		Message: fmt.Sprintf(msg, args...),
		Table:   table,
	}
}

// Ledger is an append-only, ordered collection of issues. It is safe for
// concurrent use, but callers that need deterministic order append from a
// single goroutine.
type Ledger struct {
	mu     sync.Mutex
	issues []Issue
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Append adds issues in order.
func (l *Ledger) Append(issues ...Issue) {
	if len(issues) == 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.issues = append(l.issues, issues...)
}

// Issues returns a copy of the collected issues.
func (l *Ledger) Issues() []Issue {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Issue, len(l.issues))
	copy(out, l.issues)
	return out
}

// Len returns the number of collected issues.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.issues)
}

// Empty reports whether no issues were collected.
func (l *Ledger) Empty() bool {
	return l.Len() == 0
}

// ForTable returns the issues recorded against one table.
func (l *Ledger) ForTable(table string) []Issue {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Issue
	for _, i := range l.issues {
		if i.Table == table {
			out = append(out, i)
		}
	}
	return out
}

// CountByTable tallies issues per table name.
func CountByTable(issues []Issue) map[string]int {
	counts := make(map[string]int)
	for _, i := range issues {
		counts[i.Table]++
	}
	return counts
}
