package tools

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jaeyong-Cho/abstraction"
)

func newTestTools(t *testing.T) *Server {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"main.py": "def main():\n    helper()\n",
		"util.py": "def helper():\n    pass\n",
	}
	for path, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(root, path), []byte(content), 0o644))
	}
	engine, err := abstraction.New(root)
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })
	_, err = engine.Index(context.Background())
	require.NoError(t, err)
	return NewServer(engine)
}

func callReq(args string) *mcp.CallToolRequest {
	return &mcp.CallToolRequest{
		Params: &mcp.CallToolParamsRaw{Arguments: json.RawMessage(args)},
	}
}

// resultJSON decodes a successful tool result's text payload.
func resultJSON(t *testing.T, res *mcp.CallToolResult, out any) {
	t.Helper()
	require.False(t, res.IsError, "tool errored: %v", res.Content)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	require.NoError(t, json.Unmarshal([]byte(text.Text), out))
}

func TestListFunctionsTool(t *testing.T) {
	t.Parallel()
	s := newTestTools(t)

	res, err := s.handleListFunctions(context.Background(), callReq(`{}`))
	require.NoError(t, err)

	var fns []map[string]any
	resultJSON(t, res, &fns)
	require.Len(t, fns, 2)
	assert.Equal(t, "main.py::main", fns[0]["token"])
	assert.Equal(t, "no_contract", fns[0]["status"])
}

func TestFunctionSourceTool(t *testing.T) {
	t.Parallel()
	s := newTestTools(t)

	res, err := s.handleFunctionSource(context.Background(), callReq(`{"token":"util.py::helper"}`))
	require.NoError(t, err)

	var src map[string]any
	resultJSON(t, res, &src)
	assert.Equal(t, "def helper():\n    pass", src["code"])
	assert.Equal(t, []any{"main.py::main"}, src["callers"])
}

func TestContractToolsRoundTrip(t *testing.T) {
	t.Parallel()
	s := newTestTools(t)
	ctx := context.Background()

	res, err := s.handleGetContract(ctx, callReq(`{"token":"util.py::helper"}`))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = s.handleSaveContract(ctx, callReq(
		`{"token":"util.py::helper","expected_behavior":"does nothing","abstraction_level":"low"}`))
	require.NoError(t, err)
	var saved map[string]any
	resultJSON(t, res, &saved)
	assert.NotEmpty(t, saved["recorded_fingerprint"])

	res, err = s.handleContractStatus(ctx, callReq(`{"token":"util.py::helper"}`))
	require.NoError(t, err)
	var status map[string]any
	resultJSON(t, res, &status)
	assert.Equal(t, "fresh", status["status"])
}

func TestSaveContractRejectsBadLevel(t *testing.T) {
	t.Parallel()
	s := newTestTools(t)

	res, err := s.handleSaveContract(context.Background(), callReq(
		`{"token":"util.py::helper","expected_behavior":"x","abstraction_level":"extreme"}`))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestCallTreeTool(t *testing.T) {
	t.Parallel()
	s := newTestTools(t)

	res, err := s.handleCallTree(context.Background(), callReq(`{"token":"main.py::main","depth":2}`))
	require.NoError(t, err)

	var tree map[string]any
	resultJSON(t, res, &tree)
	assert.Equal(t, "main.py::main", tree["token"])
	children, ok := tree["children"].([]any)
	require.True(t, ok)
	require.Len(t, children, 1)
}

func TestBadTokenErrors(t *testing.T) {
	t.Parallel()
	s := newTestTools(t)

	res, err := s.handleFunctionGraph(context.Background(), callReq(`{"token":"no-separator"}`))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestGraphStatsTool(t *testing.T) {
	t.Parallel()
	s := newTestTools(t)

	res, err := s.handleGraphStats(context.Background(), nil)
	require.NoError(t, err)

	var stats map[string]any
	resultJSON(t, res, &stats)
	assert.EqualValues(t, 2, stats["functions"])
}
