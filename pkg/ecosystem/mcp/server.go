// Package mcp exposes the validation engine as Model Context Protocol tools.
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewServer creates an MCP server with the gregor tools registered.
func NewServer(version string, h *Handlers) *server.MCPServer {
	s := server.NewMCPServer(
		"gregor",
		version,
		server.WithToolCapabilities(true),
	)

	s.AddTool(
		mcp.NewTool("gregor/validate",
			mcp.WithDescription("Validate a GREGoR submission (an .xlsx workbook or a directory of <table>.tsv files)"),
			mcp.WithString("path", mcp.Required(), mcp.Description("Path to the workbook or TSV directory")),
			mcp.WithString("batch", mcp.Required(), mcp.Description("Batch number (1, 2, ...) or batch token")),
			mcp.WithString("bucket", mcp.Description("GCP bucket name used to build gs:// paths")),
			mcp.WithString("metadata", mcp.Description("Sequencing metadata sheet to merge before validating (optional)")),
		),
		h.HandleValidate,
	)

	s.AddTool(
		mcp.NewTool("gregor/schema",
			mcp.WithDescription("Show the schema of a table, or the JSON Schema for table schema documents when no table is given"),
			mcp.WithString("table", mcp.Description("Table name (optional)")),
		),
		h.HandleSchema,
	)

	s.AddTool(
		mcp.NewTool("gregor/tables",
			mcp.WithDescription("List the tables that have a schema"),
		),
		h.HandleTables,
	)

	return s
}
