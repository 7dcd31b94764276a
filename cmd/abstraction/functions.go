package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Jaeyong-Cho/abstraction"
)

var (
	flagScope string
	flagFlat  bool
)

var functionsCmd = &cobra.Command{
	Use:   "functions",
	Short: "List indexed functions with their contract status",
	Long:  "Lists functions grouped by directory and file. --flat prints one table row per function instead.",
	Args:  cobra.NoArgs,
	RunE:  runFunctions,
}

func init() {
	functionsCmd.Flags().StringVar(&flagScope, "scope", "", "restrict to paths under this prefix (e.g. src/core/)")
	functionsCmd.Flags().BoolVar(&flagFlat, "flat", false, "print a flat table instead of the directory tree")
}

func runFunctions(cmd *cobra.Command, args []string) error {
	engine, err := openEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	q, err := engine.Query()
	if err != nil {
		return outputError("functions", err)
	}
	fns, err := q.ListFunctions(flagScope)
	if err != nil {
		return outputError("functions", err)
	}

	if flagFormat == "json" {
		if flagFlat {
			return outputResult(CLIResult{Command: "functions", Results: fns})
		}
		return outputResult(CLIResult{Command: "functions", Results: abstraction.BuildFunctionTree(fns)})
	}

	if len(fns) == 0 {
		fmt.Fprintln(os.Stderr, "No functions indexed for this scope.")
		return nil
	}
	if flagFlat {
		formatFunctionsText(os.Stdout, fns)
		return nil
	}
	formatFunctionTreeText(os.Stdout, abstraction.BuildFunctionTree(fns))
	return nil
}
