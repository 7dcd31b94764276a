package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Jaeyong-Cho/abstraction"
)

var (
	flagLanguages string
	flagSerial    bool
	flagMaxFiles  int
	flagTimeout   time.Duration
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Index the workspace into a function call graph",
	Long:  "Extracts every function with tree-sitter, resolves call sites into a graph, and publishes the snapshot to the workspace database.",
	Args:  cobra.NoArgs,
	RunE:  runIndex,
}

func init() {
	indexCmd.Flags().StringVar(&flagLanguages, "languages", "", "comma-separated language filter (e.g. python,go)")
	indexCmd.Flags().BoolVar(&flagSerial, "serial", false, "disable parallel extraction")
	indexCmd.Flags().IntVar(&flagMaxFiles, "max-files", 0, "abort when more files than this are discovered (0 = no limit)")
	indexCmd.Flags().DurationVar(&flagTimeout, "timeout", 0, "abort when indexing takes longer than this (0 = no limit)")
}

func runIndex(cmd *cobra.Command, args []string) error {
	start := time.Now()

	var opts []abstraction.Option
	if langs := parseLanguagesFlag(flagLanguages); langs != nil {
		opts = append(opts, abstraction.WithLanguages(langs...))
	}
	if flagSerial {
		opts = append(opts, abstraction.WithParallel(false))
	}
	if flagMaxFiles > 0 {
		opts = append(opts, abstraction.WithFileLimit(flagMaxFiles))
	}
	if flagTimeout > 0 {
		opts = append(opts, abstraction.WithTimeout(flagTimeout))
	}

	engine, err := openEngine(opts...)
	if err != nil {
		return err
	}
	defer engine.Close()

	snap, err := engine.Index(context.Background())
	if err != nil {
		return outputError("index", err)
	}

	if flagFormat == "json" {
		return outputResult(CLIResult{Command: "index", Results: newIndexSummary(snap)})
	}

	fmt.Fprintf(os.Stderr, "Indexed %s in %s\n", engine.Workspace(), roundedSince(start))
	fmt.Printf("Files:       %d\n", snap.FileCount)
	fmt.Printf("Functions:   %d\n", snap.Registry.Len())
	fmt.Printf("Edges:       %d\n", len(snap.Graph.Edges()))
	if len(snap.Diagnostics) > 0 {
		fmt.Printf("Diagnostics: %d\n", len(snap.Diagnostics))
		for _, d := range snap.Diagnostics {
			fmt.Fprintf(os.Stderr, "  %s: %s: %s\n", d.Kind, d.Path, d.Detail)
		}
	}
	return nil
}

// IndexSummary is the JSON payload of the index command.
type IndexSummary struct {
	Workspace   string `json:"workspace"`
	Files       int    `json:"files"`
	Functions   int    `json:"functions"`
	Edges       int    `json:"edges"`
	Diagnostics int    `json:"diagnostics"`
}

func newIndexSummary(snap *abstraction.Snapshot) IndexSummary {
	return IndexSummary{
		Workspace:   snap.Workspace,
		Files:       snap.FileCount,
		Functions:   snap.Registry.Len(),
		Edges:       len(snap.Graph.Edges()),
		Diagnostics: len(snap.Diagnostics),
	}
}
