package validate

import (
	"maps"
	"slices"
	"strings"

	"github.com/BCM-HGSC/GREGoR-AnVIL-automation/pkg/issue"
	"github.com/BCM-HGSC/GREGoR-AnVIL-automation/pkg/record"
	"github.com/BCM-HGSC/GREGoR-AnVIL-automation/pkg/rules"
)

// ReferenceSources names the one authoritative table for each referenced
// key field.
var ReferenceSources = map[string]string{
	"analyte":                   "analyte_id",
	"experiment_dna_short_read": "experiment_dna_short_read_id",
	"experiment_rna_short_read": "experiment_rna_short_read_id",
	"experiment_nanopore":       "experiment_nanopore_id",
	"family":                    "family_id",
	"participant":               "participant_id",
	"phenotype":                 "term_id",
}

// CrossReference declares that values of ForeignKey in Table must exist
// among the values of SourceKey in its source table.
type CrossReference struct {
	Table      string
	SourceKey  string
	ForeignKey string
}

// CrossReferences lists every cross-table reference that is checked.
var CrossReferences = []CrossReference{
	{"aligned_dna_short_read", "experiment_dna_short_read_id", "experiment_dna_short_read_id"},
	{"aligned_rna_short_read", "experiment_rna_short_read_id", "experiment_rna_short_read_id"},
	{"aligned_nanopore", "experiment_nanopore_id", "experiment_nanopore_id"},
	{"analyte", "participant_id", "participant_id"},
	{"experiment_dna_short_read", "analyte_id", "analyte_id"},
	{"experiment_rna_short_read", "analyte_id", "analyte_id"},
	{"experiment_nanopore", "analyte_id", "analyte_id"},
	{"genetic_findings", "participant_id", "participant_id"},
	{"genetic_findings", "participant_id", "additional_family_members_with_variant"},
	{"genetic_findings", "term_id", "partial_contribution_explained"},
	{"participant", "family_id", "family_id"},
	{"participant", "participant_id", "twin_id"},
	{"phenotype", "participant_id", "participant_id"},
}

// ReferenceIndex maps a source key field to the set of values present in its
// source table.
type ReferenceIndex map[string]map[string]struct{}

// Contains reports whether value exists for the key field.
func (ix ReferenceIndex) Contains(key, value string) bool {
	_, ok := ix[key][value]
	return ok
}

// BuildReferenceIndex collects the key values of every source table present
// in tables. A source table that is absent leaves its key with no values.
func BuildReferenceIndex(tables *record.Tables) ReferenceIndex {
	ix := make(ReferenceIndex)
	for table, key := range ReferenceSources {
		values := make(map[string]struct{})
		records, _ := tables.Get(table)
		for _, rec := range records {
			if v, ok := rec.Lookup(key); ok {
				values[v] = struct{}{}
			}
		}
		ix[key] = values
	}
	return ix
}

// CheckCrossReferences reports, per declared reference, the values of the
// foreign key that are missing from the source key's values. Dependent tables
// absent from the run are skipped. Values are split on "|"; blank segments
// and NA are ignored. One table-wide issue lists the complete missing set.
func CheckCrossReferences(ix ReferenceIndex, tables *record.Tables, ledger *issue.Ledger) {
	for _, ref := range CrossReferences {
		records, ok := tables.Get(ref.Table)
		if !ok {
			continue
		}
		missing := make(map[string]struct{})
		for _, rec := range records {
			value, ok := rec.Lookup(ref.ForeignKey)
			if !ok {
				continue
			}
			for _, v := range rules.SplitMulti(value) {
				if rules.IsNA(v) || ix.Contains(ref.SourceKey, v) {
					continue
				}
				missing[v] = struct{}{}
			}
		}
		if len(missing) == 0 {
			continue
		}
		ids := slices.Sorted(maps.Keys(missing))
		ledger.Append(issue.TableWidef(ref.Table, ref.ForeignKey,
			"Foreign keys do not exist in the source table: %s", strings.Join(ids, ", ")))
	}
}
