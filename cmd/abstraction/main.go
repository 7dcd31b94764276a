package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Jaeyong-Cho/abstraction"
)

var (
	flagWorkspace string
	flagFormat    string
)

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "abstraction",
	Short:         "Function-level call graph indexing and contract tracking",
	Long:          "Abstraction indexes source trees with tree-sitter into a per-function call graph, and tracks behavioral contracts against function bodies so drift is detectable.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return validateFormat(flagFormat)
	},
	// No Run — prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagWorkspace, "workspace", "", "workspace root (default: nearest ancestor with .abstraction or .git)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format: json|text")

	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(functionsCmd)
	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(contractCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
}

// resolveWorkspace picks the workspace root: the --workspace flag when set,
// otherwise the nearest ancestor of the cwd carrying .abstraction or .git,
// otherwise the cwd itself.
func resolveWorkspace() (string, error) {
	if flagWorkspace != "" {
		return filepath.Abs(flagWorkspace)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting cwd: %w", err)
	}
	dir := cwd
	for {
		for _, marker := range []string{".abstraction", ".git"} {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return cwd, nil
		}
		dir = parent
	}
}

// openEngine builds an Engine for the resolved workspace, applying
// .abstraction/config.yml plus any extra options.
func openEngine(extra ...abstraction.Option) (*abstraction.Engine, error) {
	workspace, err := resolveWorkspace()
	if err != nil {
		return nil, err
	}
	cfg, err := abstraction.LoadConfig(workspace)
	if err != nil {
		return nil, err
	}
	opts := append(cfg.Options(), extra...)
	engine, err := abstraction.New(workspace, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating engine: %w", err)
	}
	return engine, nil
}

// parseLanguagesFlag splits a comma-separated language list.
func parseLanguagesFlag(raw string) []string {
	if raw == "" {
		return nil
	}
	langs := strings.Split(raw, ",")
	for i := range langs {
		langs[i] = strings.TrimSpace(langs[i])
	}
	return langs
}

// parseIdentityArg decodes a token argument like "src/app.py::Runner.run".
func parseIdentityArg(arg string) (abstraction.Identity, error) {
	id, err := abstraction.ParseToken(arg)
	if err != nil {
		return abstraction.Identity{}, fmt.Errorf("invalid function token %q: %w", arg, err)
	}
	return id, nil
}

func roundedSince(start time.Time) time.Duration {
	return time.Since(start).Round(time.Millisecond)
}
