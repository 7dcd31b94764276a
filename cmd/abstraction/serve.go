package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/Jaeyong-Cho/abstraction"
	"github.com/Jaeyong-Cho/abstraction/internal/server"
)

var flagAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the index over a JSON HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "listen address (default :7333, or http_addr from config.yml)")
}

func runServe(cmd *cobra.Command, args []string) error {
	workspace, err := resolveWorkspace()
	if err != nil {
		return err
	}
	cfg, err := abstraction.LoadConfig(workspace)
	if err != nil {
		return err
	}
	addr := flagAddr
	if addr == "" {
		addr = cfg.HTTPAddr
	}
	if addr == "" {
		addr = ":7333"
	}

	engine, err := abstraction.New(workspace, cfg.Options()...)
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}
	defer engine.Close()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	srv := server.New(engine, logger)

	fmt.Fprintf(os.Stderr, "Serving %s on %s\n", workspace, addr)
	return http.ListenAndServe(addr, srv)
}
