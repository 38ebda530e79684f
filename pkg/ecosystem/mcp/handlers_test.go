package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHandlers(t *testing.T) *Handlers {
	t.Helper()
	h, err := NewHandlers(nil, nil, 2)
	require.NoError(t, err)
	return h
}

func call(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "%T", res.Content[0])
	return tc.Text
}

func TestHandleValidate_MissingArguments(t *testing.T) {
	h := newHandlers(t)

	res, err := h.HandleValidate(context.Background(), call(map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Equal(t, "path argument is required", text(t, res))

	res, err = h.HandleValidate(context.Background(), call(map[string]any{"path": t.TempDir()}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "batch")
}

func TestHandleValidate_TSVDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "family.tsv"),
		[]byte("family_id\tconsanguinity\nBCM_Fam_1\tunknown\nFam_2\tUnknown\n"), 0o644))
	h := newHandlers(t)

	res, err := h.HandleValidate(context.Background(), call(map[string]any{"path": dir, "batch": "1"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	var got struct {
		OK     bool `json:"ok"`
		Issues []struct {
			Field   string `json:"field"`
			Message string `json:"message"`
			Row     *int   `json:"row"`
		} `json:"issues"`
	}
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &got))
	assert.False(t, got.OK)
	require.Len(t, got.Issues, 1)
	assert.Equal(t, "family_id", got.Issues[0].Field)
	assert.Equal(t, "Value must start with BCM_Fam", got.Issues[0].Message)
	require.NotNil(t, got.Issues[0].Row)
	assert.Equal(t, 3, *got.Issues[0].Row)
}

func TestHandleSchema(t *testing.T) {
	h := newHandlers(t)

	res, err := h.HandleSchema(context.Background(), call(map[string]any{}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Contains(t, text(t, res), "table/v1")

	res, err = h.HandleSchema(context.Background(), call(map[string]any{"table": "Genetic_Findings_Table"}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Contains(t, text(t, res), `"genetic_findings"`)

	res, err = h.HandleSchema(context.Background(), call(map[string]any{"table": "nope"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "schema not found")
}

func TestHandleTables(t *testing.T) {
	h := newHandlers(t)

	res, err := h.HandleTables(context.Background(), call(nil))
	require.NoError(t, err)

	var got []struct {
		Table    string   `json:"table"`
		Required []string `json:"required"`
	}
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &got))
	var names []string
	for _, e := range got {
		names = append(names, e.Table)
	}
	assert.Contains(t, names, "participant")
	assert.Contains(t, names, "aligned_nanopore")
}

func TestNewServer(t *testing.T) {
	assert.NotNil(t, NewServer("test", newHandlers(t)))
}
