package record

import "strings"

// tableAliases maps sheet names used by submitting centers to canonical
// table names.
var tableAliases = map[string]string{
	"AlignedNanopore":        "aligned_nanopore",
	"ExptNanopore":           "experiment_nanopore",
	"AlignedShortRead":       "aligned_dna_short_read",
	"ExpShortRead":           "experiment_dna_short_read",
	"Genetic_Findings_Table": "genetic_findings",
}

// CanonicalTableName resolves a source table name to its canonical form.
// Known aliases are mapped explicitly; any other name is trimmed,
// lower-cased, and has spaces replaced by underscores.
func CanonicalTableName(name string) string {
	name = strings.TrimSpace(name)
	if canon, ok := tableAliases[name]; ok {
		return canon
	}
	return NormalizeHeader(name)
}

// NormalizeHeader converts a column header to its field name.
func NormalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.Join(strings.Fields(h), "_")
}
