package validate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BCM-HGSC/GREGoR-AnVIL-automation/pkg/record"
	"github.com/BCM-HGSC/GREGoR-AnVIL-automation/pkg/rules"
	"github.com/BCM-HGSC/GREGoR-AnVIL-automation/pkg/schema"
	"github.com/BCM-HGSC/GREGoR-AnVIL-automation/pkg/trace"
)

func shortReadSchemas(t *testing.T) *schema.Registry {
	t.Helper()
	reg := schema.NewRegistry()
	require.NoError(t, reg.Add(&schema.Schema{Table: "experiment_dna_short_read", Fields: []schema.FieldRule{
		{Name: "experiment_dna_short_read_id", Required: true},
		{Name: "experiment_sample_id", Required: true},
	}}))
	require.NoError(t, reg.Add(&schema.Schema{Table: "aligned_dna_short_read", Fields: []schema.FieldRule{
		{Name: "aligned_dna_short_read_id", Required: true},
		{Name: "experiment_dna_short_read_id", Required: true},
		{Name: "aligned_dna_short_read_file", Checks: []string{"gcp_path"}},
	}}))
	return reg
}

func shortReadSubmission() Submission {
	ts := record.NewTables()
	ts.Set("ExpShortRead", []*record.Record{
		record.FromPairs(2, "experiment_dna_short_read_id", "E1", "experiment_sample_id", "NA"),
	})
	ts.Set("AlignedShortRead", []*record.Record{
		record.FromPairs(2, "aligned_dna_short_read_id", "A1", "experiment_dna_short_read_id", "E1", "aligned_dna_short_read_file", "NA"),
	})
	return Submission{
		Tables: ts,
		Batch:  rules.Batch{Number: 1},
		Bucket: "b",
		Metadata: []*record.Record{
			record.FromPairs(2, "experiment_dna_short_read_id", "E1", "sm_tag", "S1", "cram_file_name", "f.cram"),
		},
	}
}

func TestEngine_RunMergesThenValidates(t *testing.T) {
	e, err := NewEngine(WithSchemas(shortReadSchemas(t)), WithWorkers(2))
	require.NoError(t, err)

	res, err := e.Run(context.Background(), shortReadSubmission())
	require.NoError(t, err)

	assert.True(t, res.OK(), "%v", res.Issues)
	assert.Equal(t, []string{"experiment_dna_short_read", "aligned_dna_short_read"}, res.Tables.Names())
	exp, _ := res.Tables.Get("experiment_dna_short_read")
	assert.Equal(t, "S1", exp[0].Value("experiment_sample_id"))
	aligned, _ := res.Tables.Get("aligned_dna_short_read")
	assert.Equal(t, "gs://b/f.cram", aligned[0].Value("aligned_dna_short_read_file"))
	assert.Equal(t, 1, res.Merge.Rows)
	require.Len(t, res.Summary, 2)
	assert.False(t, res.Summary[0].Skipped)
}

func TestEngine_RunUnmatchedMetadataRow(t *testing.T) {
	e, err := NewEngine(WithSchemas(shortReadSchemas(t)))
	require.NoError(t, err)
	sub := shortReadSubmission()
	sub.Metadata = append(sub.Metadata,
		record.FromPairs(3, "experiment_dna_short_read_id", "E2", "sm_tag", "S2", "cram_file_name", "g.cram"))

	res, err := e.Run(context.Background(), sub)
	require.NoError(t, err)

	require.Len(t, res.Issues, 1)
	assert.Contains(t, res.Issues[0].Message, "does not exist")
	assert.False(t, res.OK())
}

func TestEngine_RunWithoutMetadata(t *testing.T) {
	e, err := NewEngine(WithSchemas(shortReadSchemas(t)))
	require.NoError(t, err)
	sub := shortReadSubmission()
	sub.Metadata = nil

	res, err := e.Run(context.Background(), sub)
	require.NoError(t, err)

	assert.Empty(t, res.Issues, "non-required NA values skip their checks")
}

func TestEngine_StructuralErrorsAreJoined(t *testing.T) {
	reg := shortReadSchemas(t)
	require.NoError(t, reg.Add(&schema.Schema{Table: "family", Fields: []schema.FieldRule{
		{Name: "family_id", Checks: []string{"no_such_check"}},
	}}))
	e, err := NewEngine(WithSchemas(reg))
	require.NoError(t, err)
	sub := shortReadSubmission()
	sub.Tables.Set("family", []*record.Record{record.FromPairs(2, "family_id", "F")})
	sub.Tables.Set("mystery", []*record.Record{record.FromPairs(2, "x", "y")})

	res, err := e.Run(context.Background(), sub)
	require.Error(t, err)
	require.NotNil(t, res)

	var nf *schema.NotFoundError
	assert.True(t, errors.As(err, &nf))
	assert.Equal(t, "mystery", nf.Table)
	var ce *schema.ConfigError
	assert.True(t, errors.As(err, &ce))
	assert.ErrorIs(t, err, rules.ErrUnknownCheck)

	assert.True(t, res.OK(), "the tables that could be validated are clean")
	require.Len(t, res.Summary, 4)
	assert.True(t, res.Summary[2].Skipped)
	assert.True(t, res.Summary[3].Skipped)
}

func TestEngine_RequiresBatch(t *testing.T) {
	e, err := NewEngine(WithSchemas(shortReadSchemas(t)))
	require.NoError(t, err)
	sub := shortReadSubmission()
	sub.Batch = rules.Batch{}

	_, err = e.Run(context.Background(), sub)
	assert.ErrorIs(t, err, ErrNoBatch)
}

func TestEngine_CrossReferencesAcrossTables(t *testing.T) {
	e, err := NewEngine(WithSchemas(shortReadSchemas(t)))
	require.NoError(t, err)
	sub := shortReadSubmission()
	sub.Metadata = nil
	aligned, _ := sub.Tables.Get("AlignedShortRead")
	aligned[0].Set("experiment_dna_short_read_id", "E5")

	res, err := e.Run(context.Background(), sub)
	require.NoError(t, err)

	require.Len(t, res.Issues, 1)
	assert.Equal(t, "aligned_dna_short_read", res.Issues[0].Table)
	assert.Equal(t, "Foreign keys do not exist in the source table: E5", res.Issues[0].Message)
}

func TestEngine_WritesTrace(t *testing.T) {
	var buf bytes.Buffer
	tw := trace.NewWriter(&buf, "run-7")
	e, err := NewEngine(WithSchemas(shortReadSchemas(t)), WithTrace(tw))
	require.NoError(t, err)

	res, err := e.Run(context.Background(), shortReadSubmission())
	require.NoError(t, err)
	assert.Equal(t, "run-7", res.RunID)

	var types []trace.EventType
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var evt trace.Event
		require.NoError(t, json.Unmarshal([]byte(line), &evt))
		types = append(types, evt.Type)
	}
	assert.Equal(t, []trace.EventType{
		trace.EventRunStart,
		trace.EventMergeApplied,
		trace.EventTableValidated,
		trace.EventTableValidated,
		trace.EventCrossReferencesChecked,
		trace.EventRunComplete,
	}, types)

	vr, err := trace.Verify(&buf)
	require.NoError(t, err)
	assert.True(t, vr.Valid)
}

func TestEngine_BuiltinSchemas(t *testing.T) {
	e, err := NewEngine()
	require.NoError(t, err)
	ts := record.NewTables()
	ts.Set("family", []*record.Record{
		record.FromPairs(2, "family_id", "BCM_Fam_1", "consanguinity", "unknown"),
		record.FromPairs(3, "family_id", "BCM_Fam_1", "consanguinity", "present"),
	})

	res, err := e.Run(context.Background(), Submission{Tables: ts, Batch: rules.Batch{Number: 1}})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"family_id: Value BCM_Fam_1 already exists in the table family in row 2",
	}, messages(res.Issues))
	recs, _ := res.Tables.Get("family")
	assert.Equal(t, "Present", recs[1].Value("consanguinity"))
}
