package merge

import (
	"testing"

	"github.com/BCM-HGSC/GREGoR-AnVIL-automation/pkg/issue"
	"github.com/BCM-HGSC/GREGoR-AnVIL-automation/pkg/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shortReadTables() *record.Tables {
	ts := record.NewTables()
	ts.Set("experiment_dna_short_read", []*record.Record{
		record.FromPairs(2, "experiment_dna_short_read_id", "E1", "experiment_sample_id", "NA"),
	})
	ts.Set("aligned_dna_short_read", []*record.Record{
		record.FromPairs(2,
			"aligned_dna_short_read_id", "A1",
			"experiment_dna_short_read_id", "E1",
			"aligned_dna_short_read_file", "NA",
			"aligned_dna_short_read_index_file", "",
			"md5sum", "NA"),
	})
	return ts
}

func TestApply_FillsPlaceholders(t *testing.T) {
	ts := shortReadTables()
	ledger := issue.NewLedger()
	meta := []*record.Record{
		record.FromPairs(2,
			"experiment_dna_short_read_id", "E1",
			"sm_tag", "S1",
			"cram_file_name", "f.cram",
			"crai_file_name", "f.cram.crai",
			"md5sum", "abc123"),
	}

	st := Apply(ShortReads, meta, ts, "b", ledger)

	assert.True(t, ledger.Empty(), "%v", ledger.Issues())
	assert.Equal(t, Stats{Rows: 1, Filled: 4}, st)

	exp, _ := ts.Get("experiment_dna_short_read")
	assert.Equal(t, "S1", exp[0].Value("experiment_sample_id"))
	aligned, _ := ts.Get("aligned_dna_short_read")
	assert.Equal(t, "gs://b/f.cram", aligned[0].Value("aligned_dna_short_read_file"))
	assert.Equal(t, "gs://b/f.cram.crai", aligned[0].Value("aligned_dna_short_read_index_file"))
	assert.Equal(t, "abc123", aligned[0].Value("md5sum"))
}

func TestApply_UnmatchedRowYieldsOneIssue(t *testing.T) {
	ts := shortReadTables()
	ledger := issue.NewLedger()
	meta := []*record.Record{
		record.FromPairs(2, "experiment_dna_short_read_id", "E1", "sm_tag", "S1", "cram_file_name", "f.cram"),
		record.FromPairs(3, "experiment_dna_short_read_id", "E2", "sm_tag", "S2", "cram_file_name", "g.cram"),
	}

	st := Apply(ShortReads, meta, ts, "b", ledger)

	issues := ledger.Issues()
	require.Len(t, issues, 1)
	assert.Equal(t, "experiment_dna_short_read", issues[0].Table)
	assert.Equal(t, "experiment_dna_short_read_id E2 does not exist in table experiment_dna_short_read", issues[0].Message)
	assert.Nil(t, issues[0].Row)
	assert.Equal(t, 1, st.Unmatched)

	exp, _ := ts.Get("experiment_dna_short_read")
	assert.Equal(t, "S1", exp[0].Value("experiment_sample_id"))
	aligned, _ := ts.Get("aligned_dna_short_read")
	assert.Equal(t, "gs://b/f.cram", aligned[0].Value("aligned_dna_short_read_file"))
}

func TestApply_MissingChildOnly(t *testing.T) {
	ts := shortReadTables()
	ts.Set("aligned_dna_short_read", []*record.Record{
		record.FromPairs(2, "aligned_dna_short_read_id", "A9", "experiment_dna_short_read_id", "E9"),
	})
	ledger := issue.NewLedger()
	meta := []*record.Record{record.FromPairs(2, "experiment_dna_short_read_id", "E1", "sm_tag", "S1")}

	Apply(ShortReads, meta, ts, "b", ledger)

	issues := ledger.Issues()
	require.Len(t, issues, 1)
	assert.Equal(t, "aligned_dna_short_read", issues[0].Table)
}

func TestApply_ConflictIsNotOverwritten(t *testing.T) {
	ts := shortReadTables()
	aligned, _ := ts.Get("aligned_dna_short_read")
	aligned[0].Set("md5sum", "existing")
	aligned[0].Set("aligned_dna_short_read_file", "gs://b/f.cram")
	ledger := issue.NewLedger()
	meta := []*record.Record{
		record.FromPairs(2, "experiment_dna_short_read_id", "E1", "md5sum", "other", "cram_file_name", "f.cram"),
	}

	st := Apply(ShortReads, meta, ts, "b", ledger)

	assert.Equal(t, "existing", aligned[0].Value("md5sum"))
	assert.Equal(t, 1, st.Conflicts)
	issues := ledger.Issues()
	require.Len(t, issues, 1)
	assert.Equal(t, "md5sum", issues[0].Field)
	require.NotNil(t, issues[0].Row)
	assert.Equal(t, 2, *issues[0].Row)
	assert.Contains(t, issues[0].Message, "existing")
	assert.Contains(t, issues[0].Message, "other")
}

func TestApply_AbsentTablesAreSkipped(t *testing.T) {
	ledger := issue.NewLedger()
	meta := []*record.Record{record.FromPairs(2, "experiment_dna_short_read_id", "E1")}

	st := Apply(ShortReads, meta, record.NewTables(), "b", ledger)

	assert.True(t, ledger.Empty())
	assert.Equal(t, Stats{}, st)
}

func TestApply_RowWithoutKey(t *testing.T) {
	ledger := issue.NewLedger()
	Apply(ShortReads, []*record.Record{record.FromPairs(5, "sm_tag", "S1")}, shortReadTables(), "b", ledger)

	issues := ledger.Issues()
	require.Len(t, issues, 1)
	assert.Equal(t, "Metadata row 5 has no experiment_dna_short_read_id", issues[0].Message)
	assert.Equal(t, "experiment_dna_short_read", issues[0].Table)
}

func TestApply_RowWithoutKeyNamesPresentTable(t *testing.T) {
	ts := record.NewTables()
	ts.Set("aligned_dna_short_read", []*record.Record{
		record.FromPairs(2, "aligned_dna_short_read_id", "A1", "experiment_dna_short_read_id", "E1"),
	})
	ledger := issue.NewLedger()

	Apply(ShortReads, []*record.Record{record.FromPairs(4, "sm_tag", "S1")}, ts, "b", ledger)

	issues := ledger.Issues()
	require.Len(t, issues, 1)
	assert.Equal(t, "aligned_dna_short_read", issues[0].Table)
	assert.Equal(t, "Metadata row 4 has no experiment_dna_short_read_id", issues[0].Message)
}

func TestIsPlaceholder(t *testing.T) {
	assert.True(t, IsPlaceholder(""))
	assert.True(t, IsPlaceholder(" na "))
	assert.False(t, IsPlaceholder("x"))
}
