package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/BCM-HGSC/GREGoR-AnVIL-automation/pkg/record"
	"github.com/BCM-HGSC/GREGoR-AnVIL-automation/pkg/report"
	"github.com/BCM-HGSC/GREGoR-AnVIL-automation/pkg/rules"
	"github.com/BCM-HGSC/GREGoR-AnVIL-automation/pkg/schema"
	"github.com/BCM-HGSC/GREGoR-AnVIL-automation/pkg/sheet"
	"github.com/BCM-HGSC/GREGoR-AnVIL-automation/pkg/validate"
)

// Handlers implements the gregor MCP tools against one schema registry.
type Handlers struct {
	schemas *schema.Registry
	logger  *slog.Logger
	workers int
}

// NewHandlers returns tool handlers. A nil registry selects the built-in
// schemas; a nil logger discards.
func NewHandlers(schemas *schema.Registry, logger *slog.Logger, workers int) (*Handlers, error) {
	if schemas == nil {
		reg, err := schema.Builtin()
		if err != nil {
			return nil, err
		}
		schemas = reg
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handlers{schemas: schemas, logger: logger, workers: workers}, nil
}

// HandleValidate implements the gregor/validate MCP tool.
func (h *Handlers) HandleValidate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	path, _ := args["path"].(string)
	if path == "" {
		return errorResult("path argument is required"), nil
	}
	rawBatch, _ := args["batch"].(string)
	batch, err := rules.ParseBatch(rawBatch)
	if err != nil {
		return errorResult(fmt.Sprintf("batch: %s", err)), nil
	}
	bucket, _ := args["bucket"].(string)

	tables, err := sheet.ReadTables(path)
	if err != nil {
		return errorResult(fmt.Sprintf("read submission: %s", err)), nil
	}
	var metadata []*record.Record
	if mpath, _ := args["metadata"].(string); mpath != "" {
		if metadata, err = sheet.ReadMetadata(mpath); err != nil {
			return errorResult(fmt.Sprintf("read metadata: %s", err)), nil
		}
	}

	eng, err := validate.NewEngine(
		validate.WithSchemas(h.schemas),
		validate.WithLogger(h.logger),
		validate.WithWorkers(h.workers),
	)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	res, runErr := eng.Run(ctx, validate.Submission{Tables: tables, Batch: batch, Bucket: bucket, Metadata: metadata})
	if res == nil {
		return errorResult(runErr.Error()), nil
	}

	var out bytes.Buffer
	if err := report.JSON(&out, res); err != nil {
		return errorResult(err.Error()), nil
	}
	content := []mcp.Content{mcp.NewTextContent(out.String())}
	if runErr != nil {
		content = append(content, mcp.NewTextContent("structural errors: "+runErr.Error()))
	}
	return &mcp.CallToolResult{
		Content: content,
		IsError: runErr != nil || !res.OK(),
	}, nil
}

// HandleSchema implements the gregor/schema MCP tool.
func (h *Handlers) HandleSchema(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	table, _ := args["table"].(string)
	if table == "" {
		data, err := schema.GenerateJSONSchema()
		if err != nil {
			return errorResult(err.Error()), nil
		}
		return textResult(string(data)), nil
	}

	s, err := h.schemas.Lookup(table)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return errorResult(err.Error()), nil
	}
	return textResult(string(data)), nil
}

// HandleTables implements the gregor/tables MCP tool.
func (h *Handlers) HandleTables(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	type entry struct {
		Table    string   `json:"table"`
		Fields   int      `json:"fields"`
		Required []string `json:"required"`
	}
	var out []entry
	for _, name := range h.schemas.Tables() {
		s, _ := h.schemas.Lookup(name)
		out = append(out, entry{Table: name, Fields: len(s.Fields), Required: s.RequiredFields()})
	}
	data, _ := json.MarshalIndent(out, "", "  ")
	return textResult(string(data)), nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(msg),
		},
		IsError: true,
	}
}
