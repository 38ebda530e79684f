package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/BCM-HGSC/GREGoR-AnVIL-automation/pkg/rules"
	"github.com/BCM-HGSC/GREGoR-AnVIL-automation/pkg/schema"
	"github.com/BCM-HGSC/GREGoR-AnVIL-automation/pkg/validate"
)

var schemaDir string

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Inspect table schemas",
}

var schemaListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the tables that have a schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadSchemas(schemaDir)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, name := range reg.Tables() {
			s, _ := reg.Lookup(name)
			printf(out, "%-28s %3d fields  %3d required\n", name, len(s.Fields), len(s.RequiredFields()))
		}
		return nil
	},
}

var schemaShowCmd = &cobra.Command{
	Use:   "show [table]",
	Short: "Print a table schema as YAML",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadSchemas(schemaDir)
		if err != nil {
			return err
		}
		s, err := reg.Lookup(args[0])
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return err
		}
		return enc.Close()
	},
}

var schemaExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Print the JSON Schema that table schema documents must satisfy",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := schema.GenerateJSONSchema()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(append(data, '\n'))
		return err
	},
}

var schemaCheckCmd = &cobra.Command{
	Use:   "check [dir]",
	Short: "Load a schema directory and bind every schema to the registered checks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := schema.LoadDir(args[0])
		if err != nil {
			return err
		}
		checks := rules.NewRegistry()
		var failed int
		for _, name := range reg.Tables() {
			s, _ := reg.Lookup(name)
			if _, err := validate.New(s, checks); err != nil {
				printf(cmd.ErrOrStderr(), "  ✗ %v\n", err)
				failed++
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d schema(s) could not be bound", failed)
		}
		printf(cmd.OutOrStdout(), "✓ %d schema(s) valid\n", len(reg.Tables()))
		return nil
	},
}

func init() {
	schemaCmd.PersistentFlags().StringVar(&schemaDir, "schemas", "", "Directory of table schema YAML files (default: built-in schemas)")
	schemaCmd.AddCommand(schemaListCmd, schemaShowCmd, schemaExportCmd, schemaCheckCmd)
	rootCmd.AddCommand(schemaCmd)
}
