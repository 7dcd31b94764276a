package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Jaeyong-Cho/abstraction"
)

func (s *Server) handleListFunctions(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}
	q, errRes := s.query()
	if errRes != nil {
		return errRes, nil
	}

	fns, err := q.ListFunctions(getStringArg(args, "scope"))
	if err != nil {
		return errResult(err.Error()), nil
	}
	out := make([]map[string]any, 0, len(fns))
	for _, fn := range fns {
		entry := map[string]any{
			"token":      fn.Token,
			"path":       fn.Identity.Path,
			"name":       fn.Identity.QualifiedName,
			"language":   fn.Language,
			"start_line": fn.StartLine,
			"end_line":   fn.EndLine,
			"status":     fn.Status,
		}
		if fn.Level != "" {
			entry["abstraction_level"] = fn.Level
		}
		out = append(out, entry)
	}
	return jsonResult(out), nil
}

func (s *Server) handleFunctionGraph(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}
	q, errRes := s.query()
	if errRes != nil {
		return errRes, nil
	}
	id, errRes := tokenIdentity(args)
	if errRes != nil {
		return errRes, nil
	}

	ego, err := q.FunctionGraph(id)
	if err != nil {
		return errResult(err.Error()), nil
	}
	edges := make([]map[string]any, 0, len(ego.Edges))
	for _, e := range ego.Edges {
		edges = append(edges, map[string]any{
			"caller": e.Caller.Token(),
			"callee": e.Callee.Token(),
			"kind":   e.Kind,
			"count":  e.Count,
		})
	}
	return jsonResult(map[string]any{
		"center": ego.Center.Token(),
		"nodes":  tokens(ego.Nodes),
		"edges":  edges,
	}), nil
}

func (s *Server) handleFunctionSource(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}
	q, errRes := s.query()
	if errRes != nil {
		return errRes, nil
	}
	id, errRes := tokenIdentity(args)
	if errRes != nil {
		return errRes, nil
	}

	src, err := q.FunctionSource(id)
	if err != nil {
		return errResult(err.Error()), nil
	}
	return jsonResult(map[string]any{
		"token":       id.Token(),
		"language":    src.Language,
		"code":        src.Code,
		"start_line":  src.StartLine,
		"end_line":    src.EndLine,
		"fingerprint": src.Fingerprint,
		"callers":     tokens(src.Callers),
		"callees":     tokens(src.Callees),
	}), nil
}

func (s *Server) handleCallTree(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}
	q, errRes := s.query()
	if errRes != nil {
		return errRes, nil
	}
	id, errRes := tokenIdentity(args)
	if errRes != nil {
		return errRes, nil
	}

	tree, err := q.CallTree(id, getIntArg(args, "depth", 0))
	if err != nil {
		return errResult(err.Error()), nil
	}
	return jsonResult(treeMap(tree)), nil
}

func treeMap(node *abstraction.TreeNode) map[string]any {
	m := map[string]any{
		"token": node.Identity.Token(),
		"name":  node.Name,
		"depth": node.Depth,
		"kind":  node.Kind,
	}
	if node.BackRef {
		m["back_ref"] = true
	}
	if len(node.Children) > 0 {
		children := make([]map[string]any, 0, len(node.Children))
		for _, child := range node.Children {
			children = append(children, treeMap(child))
		}
		m["children"] = children
	}
	return m
}

func (s *Server) handleGraphStats(_ context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q, errRes := s.query()
	if errRes != nil {
		return errRes, nil
	}

	stats := q.Stats()
	mostCalled := make([]map[string]any, 0, len(stats.MostCalled))
	for _, mc := range stats.MostCalled {
		mostCalled = append(mostCalled, map[string]any{
			"token":   mc.Identity.Token(),
			"callers": mc.Callers,
		})
	}
	return jsonResult(map[string]any{
		"files":        stats.Files,
		"functions":    stats.Functions,
		"edges":        stats.Edges,
		"resolved":     stats.Resolved,
		"external":     stats.External,
		"ambiguous":    stats.Ambiguous,
		"entry_points": stats.EntryPoints,
		"most_called":  mostCalled,
	}), nil
}
