// Package trace writes the append-only JSONL audit trail of a validation run.
// Each event carries the SHA-256 of the previous line so a trail can be
// verified after the fact.
package trace

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType enumerates the trace event types.
type EventType string

const (
	EventRunStart               EventType = "run_start"
	EventRunComplete            EventType = "run_complete"
	EventMergeApplied           EventType = "merge_applied"
	EventTableValidated         EventType = "table_validated"
	EventTableSkipped           EventType = "table_skipped"
	EventCrossReferencesChecked EventType = "cross_references_checked"
)

// Genesis is the prev_hash of the first event in a trail.
var Genesis = strings.Repeat("0", 64)

// Event is a single trace event written to the JSONL stream.
type Event struct {
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	RunID     string         `json:"run_id"`
	PrevHash  string         `json:"prev_hash"`
	Data      map[string]any `json:"data,omitempty"`
}

// Writer writes trace events to an append-only JSONL stream. A nil *Writer
// discards every event.
type Writer struct {
	mu       sync.Mutex
	w        io.Writer
	closer   io.Closer
	runID    string
	prevHash string
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// NewWriter creates a trace writer that writes to the given io.Writer.
func NewWriter(w io.Writer, runID string) *Writer {
	return &Writer{w: w, runID: runID, prevHash: Genesis}
}

// NewFileWriter creates a trace writer that appends to a JSONL file.
func NewFileWriter(path, runID string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	tw := NewWriter(f, runID)
	tw.closer = f
	return tw, nil
}

// RunID returns the run identifier stamped on every event.
func (tw *Writer) RunID() string {
	if tw == nil {
		return ""
	}
	return tw.runID
}

// Close closes the underlying file, if the writer owns one.
func (tw *Writer) Close() error {
	if tw == nil || tw.closer == nil {
		return nil
	}
	return tw.closer.Close()
}

// Emit writes a single trace event.
func (tw *Writer) Emit(eventType EventType, data map[string]any) error {
	if tw == nil {
		return nil
	}
	tw.mu.Lock()
	defer tw.mu.Unlock()

	line, err := json.Marshal(Event{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		RunID:     tw.runID,
		PrevHash:  tw.prevHash,
		Data:      data,
	})
	if err != nil {
		return fmt.Errorf("encode trace event: %w", err)
	}
	if _, err := tw.w.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write trace event: %w", err)
	}
	h := sha256.Sum256(line)
	tw.prevHash = hex.EncodeToString(h[:])
	return nil
}

// EmitRunStart emits a run_start event.
func (tw *Writer) EmitRunStart(tables []string, batch string, metadataRows int) error {
	return tw.Emit(EventRunStart, map[string]any{
		"tables":        tables,
		"batch":         batch,
		"metadata_rows": metadataRows,
	})
}

// EmitMergeApplied emits a merge_applied event with the merge counters.
func (tw *Writer) EmitMergeApplied(rows, filled, conflicts, unmatched int) error {
	return tw.Emit(EventMergeApplied, map[string]any{
		"rows":      rows,
		"filled":    filled,
		"conflicts": conflicts,
		"unmatched": unmatched,
	})
}

// EmitTableValidated emits a table_validated event.
func (tw *Writer) EmitTableValidated(table string, records, issues int, duration time.Duration) error {
	return tw.Emit(EventTableValidated, map[string]any{
		"table":    table,
		"records":  records,
		"issues":   issues,
		"duration": duration.String(),
	})
}

// EmitTableSkipped emits a table_skipped event for a table that could not
// be validated.
func (tw *Writer) EmitTableSkipped(table string, reason error) error {
	return tw.Emit(EventTableSkipped, map[string]any{
		"table":  table,
		"reason": reason.Error(),
	})
}

// EmitCrossReferencesChecked emits a cross_references_checked event.
func (tw *Writer) EmitCrossReferencesChecked(issues int) error {
	return tw.Emit(EventCrossReferencesChecked, map[string]any{
		"issues": issues,
	})
}

// EmitRunComplete emits a run_complete event.
func (tw *Writer) EmitRunComplete(status string, issues int, duration time.Duration) error {
	return tw.Emit(EventRunComplete, map[string]any{
		"status":   status,
		"issues":   issues,
		"duration": duration.String(),
	})
}
