package main

import (
	"github.com/spf13/cobra"

	"github.com/Jaeyong-Cho/abstraction/internal/tools"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the index as MCP tools over stdio",
	Long:  "Runs a Model Context Protocol server on stdin/stdout so coding agents can index, query the call graph, and manage contracts as tools.",
	Args:  cobra.NoArgs,
	RunE:  runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	engine, err := openEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	return tools.NewServer(engine).Run(cmd.Context())
}
