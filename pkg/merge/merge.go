// Package merge reconciles submission tables with a sequencing metadata
// sheet, filling placeholder fields from matching metadata rows. It never
// fails: conflicts and unmatched rows are reported as issues.
package merge

import (
	"strings"

	"github.com/BCM-HGSC/GREGoR-AnVIL-automation/pkg/issue"
	"github.com/BCM-HGSC/GREGoR-AnVIL-automation/pkg/record"
	"github.com/BCM-HGSC/GREGoR-AnVIL-automation/pkg/rules"
)

// FieldMap copies a metadata column into a table field. Path columns hold
// object names that are rewritten as gs:// URIs in the run's bucket.
type FieldMap struct {
	Column string
	Field  string
	Path   bool
}

// Side describes one table a plan fills and the field matched against the
// metadata key.
type Side struct {
	Table  string
	Key    string
	Fields []FieldMap
}

// Plan pairs a parent table with a child table that references it. Both are
// matched on the metadata key column.
type Plan struct {
	MetadataKey string
	Parent      Side
	Child       Side
}

// ShortReads fills short-read experiment and alignment tables from a
// sequencing metadata sheet.
var ShortReads = Plan{
	MetadataKey: "experiment_dna_short_read_id",
	Parent: Side{
		Table: "experiment_dna_short_read",
		Key:   "experiment_dna_short_read_id",
		Fields: []FieldMap{
			{Column: "sm_tag", Field: "experiment_sample_id"},
		},
	},
	Child: Side{
		Table: "aligned_dna_short_read",
		Key:   "experiment_dna_short_read_id",
		Fields: []FieldMap{
			{Column: "cram_file_name", Field: "aligned_dna_short_read_file", Path: true},
			{Column: "crai_file_name", Field: "aligned_dna_short_read_index_file", Path: true},
			{Column: "md5sum", Field: "md5sum"},
		},
	},
}

// Stats summarizes one merge.
type Stats struct {
	Rows      int `json:"rows"`
	Filled    int `json:"filled"`
	Conflicts int `json:"conflicts"`
	Unmatched int `json:"unmatched"`
}

// IsPlaceholder reports whether a field value may be filled.
func IsPlaceholder(v string) bool {
	return strings.TrimSpace(v) == "" || rules.IsNA(v)
}

// Apply merges metadata rows into tables according to plan. A side whose
// table is absent from the run is skipped. Each metadata row whose key
// matches no record in a present side yields exactly one issue, naming the
// parent table when the key is missing from both.
func Apply(plan Plan, metadata []*record.Record, tables *record.Tables, bucket string, ledger *issue.Ledger) Stats {
	var st Stats
	parents, hasParent := tables.Get(plan.Parent.Table)
	children, hasChild := tables.Get(plan.Child.Table)
	if !hasParent && !hasChild {
		return st
	}
	// Keyless rows are reported against a table present in the run.
	reportSide := plan.Parent
	if !hasParent {
		reportSide = plan.Child
	}

	for _, row := range metadata {
		st.Rows++
		key := strings.TrimSpace(row.Value(plan.MetadataKey))
		if key == "" {
			st.Unmatched++
			ledger.Append(issue.TableWidef(reportSide.Table, reportSide.Key,
				"Metadata row %d has no %s", row.Row, plan.MetadataKey))
			continue
		}

		parentHits := fill(plan.Parent, parents, row, key, bucket, ledger, &st)
		childHits := fill(plan.Child, children, row, key, bucket, ledger, &st)

		missParent := hasParent && parentHits == 0
		missChild := hasChild && childHits == 0
		switch {
		case missParent:
			st.Unmatched++
			ledger.Append(notFound(plan.Parent, key))
		case missChild:
			st.Unmatched++
			ledger.Append(notFound(plan.Child, key))
		}
	}
	return st
}

func notFound(side Side, key string) issue.Issue {
	return issue.TableWidef(side.Table, side.Key, "%s %s does not exist in table %s", side.Key, key, side.Table)
}

// fill applies one metadata row to every record of side matching key and
// returns the number of matching records.
func fill(side Side, records []*record.Record, row *record.Record, key, bucket string, ledger *issue.Ledger, st *Stats) int {
	hits := 0
	for _, rec := range records {
		if rec.Value(side.Key) != key {
			continue
		}
		hits++
		for _, fm := range side.Fields {
			raw := strings.TrimSpace(row.Value(fm.Column))
			if raw == "" {
				continue
			}
			want := raw
			if fm.Path && !strings.HasPrefix(raw, "gs://") {
				want = rules.GCPPath(bucket, raw)
			}
			current := rec.Value(fm.Field)
			switch {
			case IsPlaceholder(current):
				rec.Set(fm.Field, want)
				st.Filled++
			case current == want || current == raw:
			default:
				st.Conflicts++
				ledger.Append(issue.Newf(side.Table, fm.Field, rec.Row,
					"Value %s conflicts with metadata value %s for %s %s", current, want, side.Key, key))
			}
		}
	}
	return hits
}
