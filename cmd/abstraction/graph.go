package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Jaeyong-Cho/abstraction"
)

var (
	flagDOT   bool
	flagEntry string
	flagDepth int
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Inspect the call graph",
	Long:  "Prints graph statistics by default. --dot emits the whole graph in Graphviz syntax; --entry expands a call tree from one function, and with no value expands every entry point.",
	Args:  cobra.NoArgs,
	RunE:  runGraph,
}

func init() {
	graphCmd.Flags().BoolVar(&flagDOT, "dot", false, "emit the call graph in Graphviz dot syntax")
	graphCmd.Flags().StringVar(&flagEntry, "entry", "", "expand a call tree from this function token, or from all entry points when set to 'all'")
	graphCmd.Flags().IntVar(&flagDepth, "depth", 0, "maximum call tree depth (0 = unbounded)")
}

func runGraph(cmd *cobra.Command, args []string) error {
	engine, err := openEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	q, err := engine.Query()
	if err != nil {
		return outputError("graph", err)
	}

	switch {
	case flagDOT:
		fmt.Print(q.DOT())
		return nil
	case flagEntry != "":
		return runGraphTrees(q)
	}

	stats := q.Stats()
	if flagFormat == "json" {
		return outputResult(CLIResult{Command: "graph", Results: stats})
	}
	formatStatsText(os.Stdout, stats)
	return nil
}

func runGraphTrees(q *abstraction.QueryBuilder) error {
	var trees []*abstraction.TreeNode
	if flagEntry == "all" {
		trees = q.EntryTrees(flagDepth)
		if len(trees) == 0 {
			fmt.Fprintln(os.Stderr, "No entry points: every function has at least one caller.")
			return nil
		}
	} else {
		id, err := parseIdentityArg(flagEntry)
		if err != nil {
			return outputError("graph", err)
		}
		tree, err := q.CallTree(id, flagDepth)
		if err != nil {
			return outputError("graph", err)
		}
		trees = []*abstraction.TreeNode{tree}
	}

	if flagFormat == "json" {
		return outputResult(CLIResult{Command: "graph", Results: trees})
	}
	for i, tree := range trees {
		if i > 0 {
			fmt.Println()
		}
		formatTreeText(os.Stdout, tree)
	}
	return nil
}
