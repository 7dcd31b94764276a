package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Re-index and report what changed since the last run",
	Long:  "Rebuilds the index, diffs the function population against the previous snapshot, and re-classifies every recorded contract against the new one.",
	Args:  cobra.NoArgs,
	RunE:  runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	engine, err := openEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	report, err := engine.DetectChanges(context.Background())
	if err != nil {
		return outputError("check", err)
	}

	if flagFormat == "json" {
		return outputResult(CLIResult{Command: "check", Results: report})
	}
	formatChangeReportText(os.Stdout, report)
	return nil
}
