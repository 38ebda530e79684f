// Package main provides the gregor binary: validates GREGoR submission
// workbooks before they are uploaded to AnVIL.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/BCM-HGSC/GREGoR-AnVIL-automation/pkg/config"
	"github.com/BCM-HGSC/GREGoR-AnVIL-automation/pkg/record"
	"github.com/BCM-HGSC/GREGoR-AnVIL-automation/pkg/report"
	"github.com/BCM-HGSC/GREGoR-AnVIL-automation/pkg/rules"
	"github.com/BCM-HGSC/GREGoR-AnVIL-automation/pkg/schema"
	"github.com/BCM-HGSC/GREGoR-AnVIL-automation/pkg/sheet"
	"github.com/BCM-HGSC/GREGoR-AnVIL-automation/pkg/trace"
	"github.com/BCM-HGSC/GREGoR-AnVIL-automation/pkg/validate"
)

// Version is set at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

// errIssuesFound makes the process exit non-zero after a report was written.
var errIssuesFound = errors.New("submission has validation issues")

func main() {
	if _, err := config.LoadDotEnv("."); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "gregor",
	Short:        "GREGoR submission validator",
	Long:         "gregor normalizes and validates GREGoR data model tables before they are uploaded to AnVIL.",
	SilenceUsage: true,
}

// --- validate ---

var (
	validateBatch    string
	validateBucket   string
	validateMetadata string
	validateSchemas  string
	validateFormat   string
	validateTrace    string
	validateWorkers  int
	validateLogLevel string
	configPath       string
)

var validateCmd = &cobra.Command{
	Use:   "validate [workbook.xlsx | tsv-dir]",
	Short: "Validate a submission workbook or a directory of <table>.tsv files",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	format, err := report.ParseFormat(validateFormat)
	if err != nil {
		return err
	}
	batch, err := rules.ParseBatch(validateBatch)
	if err != nil {
		return fmt.Errorf("--batch: %w", err)
	}
	schemas, err := loadSchemas(cfg.SchemaDir)
	if err != nil {
		return err
	}

	tables, err := sheet.ReadTables(args[0])
	if err != nil {
		return fmt.Errorf("read submission: %w", err)
	}
	var metadata []*record.Record
	if validateMetadata != "" {
		if metadata, err = sheet.ReadMetadata(validateMetadata); err != nil {
			return fmt.Errorf("read metadata: %w", err)
		}
	}

	opts := []validate.Option{
		validate.WithSchemas(schemas),
		validate.WithLogger(logger),
		validate.WithWorkers(cfg.Workers),
	}
	if cfg.TraceFile != "" {
		tw, err := trace.NewFileWriter(cfg.TraceFile, trace.NewRunID())
		if err != nil {
			return err
		}
		defer tw.Close()
		opts = append(opts, validate.WithTrace(tw))
	}
	eng, err := validate.NewEngine(opts...)
	if err != nil {
		return err
	}

	res, runErr := eng.Run(cmd.Context(), validate.Submission{
		Tables:   tables,
		Batch:    batch,
		Bucket:   cfg.GCPBucketName,
		Metadata: metadata,
	})
	if res == nil {
		return runErr
	}
	if err := report.Write(cmd.OutOrStdout(), format, res); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if runErr != nil {
		return fmt.Errorf("some tables could not be validated: %w", runErr)
	}
	if !res.OK() {
		return errIssuesFound
	}
	return nil
}

// loadConfig reads the config file and environment, then applies the flags
// the user set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("bucket") {
		cfg.GCPBucketName = validateBucket
	}
	if flags.Changed("schemas") {
		cfg.SchemaDir = validateSchemas
	}
	if flags.Changed("workers") {
		cfg.Workers = validateWorkers
	}
	if flags.Changed("trace") {
		cfg.TraceFile = validateTrace
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = validateLogLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadSchemas(dir string) (*schema.Registry, error) {
	if dir == "" {
		return schema.Builtin()
	}
	return schema.LoadDir(dir)
}

// --- version ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "gregor %s (build: %s)\n", version, commit)
	},
}

func printf(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, format, args...)
}

func init() {
	f := validateCmd.Flags()
	f.StringVar(&validateBatch, "batch", "", "Batch number (1, 2, ...) or batch token that batch-suffixed ids must carry")
	f.StringVar(&validateBucket, "bucket", "", "GCP bucket name used to build gs:// paths (overrides gcp_bucket_name)")
	f.StringVar(&validateMetadata, "metadata", "", "Sequencing metadata sheet (.xlsx, .tsv or .csv) to merge before validating")
	f.StringVar(&validateSchemas, "schemas", "", "Directory of table schema YAML files (default: built-in schemas)")
	f.StringVar(&validateFormat, "format", string(report.FormatText), "Report format: text, styled, markdown, csv or json")
	f.StringVar(&validateTrace, "trace", "", "Append the run's audit trail to this JSONL file")
	f.IntVar(&validateWorkers, "workers", 4, "Records validated concurrently per table")
	f.StringVar(&validateLogLevel, "log-level", "info", "Log level: debug, info, warn or error")
	_ = validateCmd.MarkFlagRequired("batch")

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.config/"+config.DefaultFileName+")")

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(versionCmd)
}
