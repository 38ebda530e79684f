// Package main provides the gregor-tui binary: a terminal browser for the
// issues of one validation run.
package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/BCM-HGSC/GREGoR-AnVIL-automation/pkg/config"
	"github.com/BCM-HGSC/GREGoR-AnVIL-automation/pkg/ecosystem/tui"
	"github.com/BCM-HGSC/GREGoR-AnVIL-automation/pkg/record"
	"github.com/BCM-HGSC/GREGoR-AnVIL-automation/pkg/rules"
	"github.com/BCM-HGSC/GREGoR-AnVIL-automation/pkg/schema"
	"github.com/BCM-HGSC/GREGoR-AnVIL-automation/pkg/sheet"
	"github.com/BCM-HGSC/GREGoR-AnVIL-automation/pkg/validate"
)

const usage = "Usage: gregor-tui <workbook.xlsx | tsv-dir> --batch N [--bucket name] [--metadata file] [--config file]"

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(1)
	}

	input := os.Args[1]
	var rawBatch, bucket, metadataPath, cfgPath string
	for i := 2; i < len(os.Args); i++ {
		arg := os.Args[i]
		if i+1 >= len(os.Args) {
			fail("flag %s needs a value\n%s", arg, usage)
		}
		switch arg {
		case "--batch":
			i++
			rawBatch = os.Args[i]
		case "--bucket":
			i++
			bucket = os.Args[i]
		case "--metadata":
			i++
			metadataPath = os.Args[i]
		case "--config":
			i++
			cfgPath = os.Args[i]
		default:
			fail("unknown flag %s\n%s", arg, usage)
		}
	}

	if _, err := config.LoadDotEnv("."); err != nil {
		fail("%v", err)
	}
	if cfgPath == "" {
		cfgPath = config.DefaultPath()
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fail("%v", err)
	}
	if bucket != "" {
		cfg.GCPBucketName = bucket
	}
	if err := cfg.Validate(); err != nil {
		fail("%v", err)
	}

	batch, err := rules.ParseBatch(rawBatch)
	if err != nil {
		fail("--batch: %v", err)
	}
	schemas, err := schema.Builtin()
	if cfg.SchemaDir != "" {
		schemas, err = schema.LoadDir(cfg.SchemaDir)
	}
	if err != nil {
		fail("%v", err)
	}
	tables, err := sheet.ReadTables(input)
	if err != nil {
		fail("read submission: %v", err)
	}
	var metadata []*record.Record
	if metadataPath != "" {
		if metadata, err = sheet.ReadMetadata(metadataPath); err != nil {
			fail("read metadata: %v", err)
		}
	}

	eng, err := validate.NewEngine(validate.WithSchemas(schemas), validate.WithWorkers(cfg.Workers))
	if err != nil {
		fail("%v", err)
	}

	model := tui.NewModel(input)
	p := tea.NewProgram(model, tea.WithAltScreen())

	// The result arrives through p.Send once the run finishes.
	tui.StartEngine(model, eng, validate.Submission{
		Tables:   tables,
		Batch:    batch,
		Bucket:   cfg.GCPBucketName,
		Metadata: metadata,
	}, p)

	if _, err := p.Run(); err != nil {
		fail("%v", err)
	}
}
