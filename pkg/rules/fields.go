package rules

import (
	_ "embed"
	"fmt"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Condition names the sibling field and values under which a field is
// required. Outside those values the field must be empty.
type Condition struct {
	Field  string
	Values []string
}

func (c Condition) describe() string {
	return strings.Join(c.Values, " or ")
}

var variantTypeGuard = Condition{Field: "variant_type", Values: []string{"SNV/INDEL", "RE"}}

var knownGeneGuard = Condition{Field: "gene_known_for_phenotype", Values: []string{"Known"}}

var conditions = map[string]Condition{
	"chrom":                          variantTypeGuard,
	"pos":                            variantTypeGuard,
	"ref":                            variantTypeGuard,
	"alt":                            variantTypeGuard,
	"gene_of_interest":               variantTypeGuard,
	"known_condition_name":           knownGeneGuard,
	"condition_id":                   knownGeneGuard,
	"condition_inheritance":          knownGeneGuard,
	"gregor_variant_classification":  knownGeneGuard,
	"gene_disease_validity":          knownGeneGuard,
	"partial_contribution_explained": {Field: "phenotype_contribution", Values: []string{"Partial"}},
}

// ConditionFor returns the governing condition of a conditionally required
// field.
func ConditionFor(field string) (Condition, bool) {
	c, ok := conditions[field]
	return c, ok
}

var cannotBeNA = []string{
	"aligned_dna_short_read_file",
	"aligned_dna_short_read_index_file",
	"aligned_nanopore_file",
	"aligned_nanopore_index_file",
}

// CannotBeNA reports whether a path field must hold a real path.
func CannotBeNA(field string) bool {
	return slices.Contains(cannotBeNA, field)
}

//go:embed vocabularies.yaml
var vocabularyData []byte

var (
	vocabOnce    sync.Once
	vocabularies map[string][]string
	vocabErr     error
)

func loadVocabularies() {
	vocabOnce.Do(func() {
		if err := yaml.Unmarshal(vocabularyData, &vocabularies); err != nil {
			vocabErr = fmt.Errorf("decode vocabularies: %w", err)
		}
	})
}

// Vocabulary returns the accepted values of a multi-value field.
func Vocabulary(field string) ([]string, bool) {
	loadVocabularies()
	if vocabErr != nil {
		return nil, false
	}
	v, ok := vocabularies[field]
	return v, ok
}

// VocabularyFields lists the fields that have a vocabulary, sorted.
func VocabularyFields() []string {
	loadVocabularies()
	fields := make([]string, 0, len(vocabularies))
	for f := range vocabularies {
		fields = append(fields, f)
	}
	slices.Sort(fields)
	return fields
}
