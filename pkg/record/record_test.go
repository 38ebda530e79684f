package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_SetKeepsColumnOrder(t *testing.T) {
	r := New(3)
	r.Set("b", "2")
	r.Set("a", "1")
	r.Set("b", "3")

	assert.Equal(t, []string{"b", "a"}, r.Fields())
	assert.Equal(t, "3", r.Value("b"))
	assert.Equal(t, 3, r.Row)
}

func TestRecord_LookupAbsent(t *testing.T) {
	r := FromPairs(1, "participant_id", "BCM_Subject_1_1")

	v, ok := r.Lookup("family_id")
	assert.False(t, ok)
	assert.Empty(t, v)
	assert.Empty(t, r.Value("family_id"))
	assert.True(t, r.Has("participant_id"))
}

func TestRecord_CloneIsIndependent(t *testing.T) {
	r := FromPairs(1, "a", "1")
	c := r.Clone()
	c.Set("a", "2")
	c.Set("b", "x")

	assert.Equal(t, "1", r.Value("a"))
	assert.False(t, r.Has("b"))
	assert.Equal(t, []string{"a", "b"}, c.Fields())
}

func TestFromMap_UsesHeaderOrder(t *testing.T) {
	r := FromMap(2, []string{"z", "missing", "y"}, map[string]string{"y": "1", "z": "2"})
	assert.Equal(t, []string{"z", "y"}, r.Fields())
}

func TestTables_Order(t *testing.T) {
	ts := NewTables()
	ts.Set("participant", nil)
	ts.Set("family", []*Record{New(1)})
	ts.Set("participant", []*Record{New(1), New(2)})

	assert.Equal(t, []string{"participant", "family"}, ts.Names())
	recs, ok := ts.Get("participant")
	require.True(t, ok)
	assert.Len(t, recs, 2)
	assert.False(t, ts.Has("analyte"))
}

func TestCanonicalTableName(t *testing.T) {
	tests := map[string]string{
		"AlignedNanopore":           "aligned_nanopore",
		"ExptNanopore":              "experiment_nanopore",
		"AlignedShortRead":          "aligned_dna_short_read",
		"ExpShortRead":              "experiment_dna_short_read",
		"Genetic_Findings_Table":    "genetic_findings",
		"  Participant ":            "participant",
		"Experiment DNA Short Read": "experiment_dna_short_read",
		"family":                    "family",
	}
	for in, want := range tests {
		assert.Equal(t, want, CanonicalTableName(in), in)
	}
}

func TestTables_CanonicalMergesAliases(t *testing.T) {
	ts := NewTables()
	ts.Set("ExpShortRead", []*Record{New(1)})
	ts.Set("Participant", []*Record{New(1)})
	ts.Set("experiment_dna_short_read", []*Record{New(2)})

	c := ts.Canonical()
	assert.Equal(t, []string{"experiment_dna_short_read", "participant"}, c.Names())
	recs, _ := c.Get("experiment_dna_short_read")
	require.Len(t, recs, 2)
	assert.Equal(t, 1, recs[0].Row)
	assert.Equal(t, 2, recs[1].Row)
}

func TestNormalizeHeader(t *testing.T) {
	assert.Equal(t, "participant_id", NormalizeHeader(" Participant ID "))
	assert.Equal(t, "sm_tag", NormalizeHeader("SM_TAG"))
}
