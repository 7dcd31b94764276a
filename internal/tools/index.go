package tools

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Jaeyong-Cho/abstraction"
)

func (s *Server) handleIndexWorkspace(ctx context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap, err := s.engine.Index(ctx)
	if err != nil {
		return errResult(fmt.Sprintf("indexing failed: %v", err)), nil
	}
	return jsonResult(map[string]any{
		"workspace":   snap.Workspace,
		"files":       snap.FileCount,
		"functions":   snap.Registry.Len(),
		"edges":       len(snap.Graph.Edges()),
		"diagnostics": len(snap.Diagnostics),
		"built_at":    snap.BuiltAt,
	}), nil
}

func (s *Server) handleDetectChanges(ctx context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report, err := s.engine.DetectChanges(ctx)
	if err != nil {
		return errResult(fmt.Sprintf("detect changes failed: %v", err)), nil
	}

	contracts := make([]map[string]any, 0, len(report.Contracts))
	for _, impact := range report.Contracts {
		contracts = append(contracts, map[string]any{
			"token":  impact.Contract.Identity.Token(),
			"level":  impact.Contract.Level,
			"status": impact.Status,
		})
	}
	return jsonResult(map[string]any{
		"added":     tokens(report.Added),
		"modified":  tokens(report.Modified),
		"deleted":   tokens(report.Deleted),
		"contracts": contracts,
	}), nil
}

func tokens(ids []abstraction.Identity) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.Token())
	}
	return out
}
