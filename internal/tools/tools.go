// Package tools exposes the index and contract queries as MCP tools, so
// agent clients can browse the call graph and manage contracts over stdio.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Jaeyong-Cho/abstraction"
)

// Server wraps the MCP server with tool handlers.
type Server struct {
	mcp    *mcp.Server
	engine *abstraction.Engine
}

// NewServer creates an MCP server with all tools registered.
func NewServer(engine *abstraction.Engine) *Server {
	srv := &Server{
		engine: engine,
		mcp: mcp.NewServer(
			&mcp.Implementation{
				Name:    "abstraction",
				Version: "0.1.0",
			},
			nil,
		),
	}
	srv.registerTools()
	return srv
}

// MCPServer returns the underlying MCP server.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Run serves the tools over stdio until the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	s.mcp.AddTool(&mcp.Tool{
		Name:        "index_workspace",
		Description: "Re-index the workspace: extract every function, resolve the call graph, and publish a fresh snapshot. Returns file, function, and edge counts.",
		InputSchema: json.RawMessage(`{"type": "object"}`),
	}, s.handleIndexWorkspace)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "detect_changes",
		Description: "Re-index and report what moved since the last run: added, modified, and deleted functions, plus every recorded contract re-classified (fresh, stale, or orphaned).",
		InputSchema: json.RawMessage(`{"type": "object"}`),
	}, s.handleDetectChanges)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "list_functions",
		Description: "List indexed functions with their contract status. Each entry carries a token usable with the other tools.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"scope": {
					"type": "string",
					"description": "Path prefix filter (e.g. 'src/core/'). Empty lists the whole workspace."
				}
			}
		}`),
	}, s.handleListFunctions)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "function_graph",
		Description: "Return the radius-1 call neighborhood of a function: its direct callers and callees with edge resolution kinds.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"token": {
					"type": "string",
					"description": "Function token (e.g. 'src/app.py::Runner.run')"
				}
			},
			"required": ["token"]
		}`),
	}, s.handleFunctionGraph)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "function_source",
		Description: "Return a function's stored source body, line range, fingerprint, and direct neighbors.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"token": {
					"type": "string",
					"description": "Function token"
				}
			},
			"required": ["token"]
		}`),
	}, s.handleFunctionSource)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "call_tree",
		Description: "Expand the call graph depth-first from a function. Cycles terminate with back-reference markers.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"token": {
					"type": "string",
					"description": "Root function token"
				},
				"depth": {
					"type": "integer",
					"description": "Maximum depth (0 or omitted means unbounded)"
				}
			},
			"required": ["token"]
		}`),
	}, s.handleCallTree)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "graph_stats",
		Description: "Summarize the current snapshot: function and edge counts by resolution kind, entry points, and the most-called functions.",
		InputSchema: json.RawMessage(`{"type": "object"}`),
	}, s.handleGraphStats)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "get_contract",
		Description: "Return the contract recorded for a function, or an error when none exists.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"token": {
					"type": "string",
					"description": "Function token"
				}
			},
			"required": ["token"]
		}`),
	}, s.handleGetContract)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "save_contract",
		Description: "Record a behavioral contract against a function, replacing any earlier one. The current body fingerprint is captured so later drift is detectable.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"token": {
					"type": "string",
					"description": "Function token"
				},
				"expected_behavior": {
					"type": "string",
					"description": "Free-text description of what the function is supposed to do"
				},
				"preconditions": {
					"type": "array",
					"items": {"type": "string"}
				},
				"postconditions": {
					"type": "array",
					"items": {"type": "string"}
				},
				"abstraction_level": {
					"type": "string",
					"enum": ["entry", "high", "medium", "low", "system"]
				}
			},
			"required": ["token", "expected_behavior", "abstraction_level"]
		}`),
	}, s.handleSaveContract)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "contract_status",
		Description: "Classify a function's contract against the current snapshot: no_contract, fresh, stale, or orphaned.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"token": {
					"type": "string",
					"description": "Function token"
				}
			},
			"required": ["token"]
		}`),
	}, s.handleContractStatus)
}

// query builds a QueryBuilder over the current snapshot.
func (s *Server) query() (*abstraction.QueryBuilder, *mcp.CallToolResult) {
	q, err := s.engine.Query()
	if err != nil {
		return nil, errResult(err.Error())
	}
	return q, nil
}

// jsonResult marshals data to JSON and returns it as a tool result.
func jsonResult(data any) *mcp.CallToolResult {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return errResult("json marshal err=" + err.Error())
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(b)},
		},
	}
}

// errResult returns a tool result indicating an error.
func errResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
		IsError: true,
	}
}

// parseArgs unmarshals the raw JSON arguments into a map.
func parseArgs(req *mcp.CallToolRequest) (map[string]any, error) {
	if len(req.Params.Arguments) == 0 {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal(req.Params.Arguments, &m); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	return m, nil
}

// getStringArg extracts a string argument from parsed args.
func getStringArg(args map[string]any, key string) string {
	v, ok := args[key]
	if !ok {
		return ""
	}
	str, ok := v.(string)
	if !ok {
		return ""
	}
	return str
}

// getIntArg extracts an integer argument with a default value.
func getIntArg(args map[string]any, key string, defaultVal int) int {
	v, ok := args[key]
	if !ok {
		return defaultVal
	}
	f, ok := v.(float64) // JSON numbers decode as float64
	if !ok {
		return defaultVal
	}
	return int(f)
}

// getStringsArg extracts a string-array argument from parsed args.
func getStringsArg(args map[string]any, key string) []string {
	v, ok := args[key]
	if !ok {
		return nil
	}
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range raw {
		if str, ok := item.(string); ok {
			out = append(out, str)
		}
	}
	return out
}

// tokenIdentity decodes a required token argument.
func tokenIdentity(args map[string]any) (abstraction.Identity, *mcp.CallToolResult) {
	token := getStringArg(args, "token")
	if token == "" {
		return abstraction.Identity{}, errResult("token is required")
	}
	id, err := abstraction.ParseToken(token)
	if err != nil {
		return abstraction.Identity{}, errResult(fmt.Sprintf("invalid token %q: %v", token, err))
	}
	return id, nil
}
