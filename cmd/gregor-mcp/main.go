// Package main provides the gregor-mcp binary: an MCP server exposing
// submission validation to AI agents over stdio.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/BCM-HGSC/GREGoR-AnVIL-automation/pkg/config"
	gmcp "github.com/BCM-HGSC/GREGoR-AnVIL-automation/pkg/ecosystem/mcp"
	"github.com/BCM-HGSC/GREGoR-AnVIL-automation/pkg/schema"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if _, err := config.LoadDotEnv("."); err != nil {
		return err
	}
	cfg, err := config.Load(config.DefaultPath())
	if err != nil {
		return err
	}

	// Stdout carries the protocol; logs go to stderr.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	var schemas *schema.Registry
	if cfg.SchemaDir != "" {
		if schemas, err = schema.LoadDir(cfg.SchemaDir); err != nil {
			return err
		}
	}
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	h, err := gmcp.NewHandlers(schemas, logger, workers)
	if err != nil {
		return err
	}
	return server.ServeStdio(gmcp.NewServer(version, h))
}
