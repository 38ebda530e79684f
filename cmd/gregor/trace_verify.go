package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BCM-HGSC/GREGoR-AnVIL-automation/pkg/trace"
)

var traceVerifyCmd = &cobra.Command{
	Use:   "verify [trace.jsonl]",
	Short: "Verify the hash chain of a run trace file",
	Args:  cobra.ExactArgs(1),
	RunE:  runTraceVerify,
}

func runTraceVerify(cmd *cobra.Command, args []string) error {
	result, err := trace.VerifyFile(args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if !result.Valid {
		printf(out, "✗ Chain broken at event %d\n", result.BrokenAt)
		if result.Error != "" {
			printf(out, "  %s\n", result.Error)
		}
		return fmt.Errorf("chain verification failed")
	}
	printf(out, "✓ Chain integrity: %d events in %d run(s), no breaks\n", result.EventCount, len(result.RunIDs))
	return nil
}

func init() {
	traceCmd := &cobra.Command{
		Use:   "trace",
		Short: "Trace file operations",
	}
	traceCmd.AddCommand(traceVerifyCmd)
	rootCmd.AddCommand(traceCmd)
}
