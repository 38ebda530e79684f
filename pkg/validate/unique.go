package validate

import (
	"log/slog"

	"github.com/BCM-HGSC/GREGoR-AnVIL-automation/pkg/issue"
	"github.com/BCM-HGSC/GREGoR-AnVIL-automation/pkg/record"
)

// UniqueKeys lists, per table, the fields whose values must not repeat
// within the table. Each field is checked independently.
var UniqueKeys = map[string][]string{
	"participant":               {"participant_id"},
	"family":                    {"family_id"},
	"analyte":                   {"analyte_id"},
	"experiment_dna_short_read": {"experiment_dna_short_read_id"},
	"aligned_dna_short_read":    {"aligned_dna_short_read_id", "experiment_dna_short_read_id"},
	"experiment_nanopore":       {"experiment_nanopore_id", "analyte_id"},
	"aligned_nanopore":          {"aligned_nanopore_id", "experiment_nanopore_id"},
	"genetic_findings":          {"genetic_findings_id"},
}

// CheckUniqueness reports every repeated value of the table's unique fields.
// The first occurrence is accepted; each later one is reported against its
// own row. Records lacking a field are skipped for that field.
func CheckUniqueness(records []*record.Record, table string, ledger *issue.Ledger, logger *slog.Logger) {
	if logger == nil {
		logger = discardLogger
	}
	for _, field := range UniqueKeys[table] {
		logger.Info("verifying uniqueness", "table", table, "field", field)
		firstAt := make(map[string]int)
		for _, rec := range records {
			value, ok := rec.Lookup(field)
			if !ok {
				continue
			}
			if first, dup := firstAt[value]; dup {
				i := issue.Newf(table, field, rec.Row,
					"Value %s already exists in the table %s in row %d", value, table, first)
				logger.Debug("duplicate value", "table", table, "field", field, "row", rec.Row)
				ledger.Append(i)
				continue
			}
			firstAt[value] = rec.Row
		}
	}
}
