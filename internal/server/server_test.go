package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jaeyong-Cho/abstraction"
)

func newTestServer(t *testing.T, files map[string]string) (*Server, *abstraction.Engine) {
	t.Helper()
	root := t.TempDir()
	for path, content := range files {
		full := filepath.Join(root, filepath.FromSlash(path))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	engine, err := abstraction.New(root)
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })
	_, err = engine.Index(context.Background())
	require.NoError(t, err)
	return New(engine, nil), engine
}

func doJSON(t *testing.T, s *Server, method, target string, body string, out any) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if out != nil && rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
	}
	return rec
}

var fixture = map[string]string{
	"main.py": "def main():\n    helper()\n",
	"util.py": "def helper():\n    pass\n",
}

func TestWorkspaceEndpoint(t *testing.T) {
	t.Parallel()
	s, engine := newTestServer(t, fixture)

	var resp struct {
		Workspace string `json:"workspace"`
		Indexed   bool   `json:"indexed"`
		Functions int    `json:"functions"`
	}
	rec := doJSON(t, s, http.MethodGet, "/api/workspace", "", &resp)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, engine.Workspace(), resp.Workspace)
	assert.True(t, resp.Indexed)
	assert.Equal(t, 2, resp.Functions)
}

func TestFunctionsEndpoint(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t, fixture)

	var listing struct {
		Functions []struct {
			Token  string `json:"token"`
			Status string `json:"status"`
		} `json:"functions"`
		Tree struct {
			Files []struct {
				Path      string `json:"path"`
				Functions []struct {
					Token string `json:"token"`
				} `json:"functions"`
			} `json:"files"`
		} `json:"tree"`
	}
	rec := doJSON(t, s, http.MethodGet, "/api/functions", "", &listing)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, listing.Functions, 2)
	assert.Equal(t, "main.py::main", listing.Functions[0].Token)
	assert.Equal(t, "no_contract", listing.Functions[0].Status)

	// Both fixture files sit at the workspace root, so the tree has two
	// files directly under the root node.
	require.Len(t, listing.Tree.Files, 2)
	assert.Equal(t, "main.py", listing.Tree.Files[0].Path)
	require.Len(t, listing.Tree.Files[0].Functions, 1)
	assert.Equal(t, "main.py::main", listing.Tree.Files[0].Functions[0].Token)
}

func TestFunctionsEndpointNestedTree(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t, map[string]string{
		"src/core/a.py": "def one():\n    pass\n",
		"b.py":          "def top():\n    pass\n",
	})

	var listing struct {
		Tree struct {
			Dirs []struct {
				Name string `json:"name"`
				Dirs []struct {
					Name  string `json:"name"`
					Path  string `json:"path"`
					Files []struct {
						Path string `json:"path"`
					} `json:"files"`
				} `json:"dirs"`
			} `json:"dirs"`
			Files []struct {
				Path string `json:"path"`
			} `json:"files"`
		} `json:"tree"`
	}
	rec := doJSON(t, s, http.MethodGet, "/api/functions", "", &listing)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, listing.Tree.Files, 1)
	assert.Equal(t, "b.py", listing.Tree.Files[0].Path)
	require.Len(t, listing.Tree.Dirs, 1)
	src := listing.Tree.Dirs[0]
	assert.Equal(t, "src", src.Name)
	require.Len(t, src.Dirs, 1)
	assert.Equal(t, "src/core", src.Dirs[0].Path)
	require.Len(t, src.Dirs[0].Files, 1)
	assert.Equal(t, "src/core/a.py", src.Dirs[0].Files[0].Path)
}

func TestFunctionCodeEndpoint(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t, fixture)

	var src struct {
		Code    string `json:"code"`
		Callers []struct {
			Token string `json:"token"`
		} `json:"callers"`
	}
	rec := doJSON(t, s, http.MethodGet, "/api/function-code/util.py::helper", "", &src)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "def helper():\n    pass", src.Code)
	require.Len(t, src.Callers, 1)
	assert.Equal(t, "main.py::main", src.Callers[0].Token)
}

func TestFunctionCodeNotFound(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t, fixture)

	rec := doJSON(t, s, http.MethodGet, "/api/function-code/util.py::ghost", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFunctionGraphEndpoint(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t, fixture)

	var ego struct {
		Center struct {
			Token string `json:"token"`
		} `json:"center"`
		Edges []struct {
			Kind string `json:"kind"`
		} `json:"edges"`
	}
	rec := doJSON(t, s, http.MethodGet, "/api/function-graph/util.py::helper", "", &ego)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "util.py::helper", ego.Center.Token)
	require.Len(t, ego.Edges, 1)
	assert.Equal(t, "resolved", ego.Edges[0].Kind)
}

func TestContractEndpoints(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t, fixture)

	rec := doJSON(t, s, http.MethodGet, "/api/contract/util.py::helper", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	body := `{"expected_behavior":"does nothing","preconditions":["p"],"abstraction_level":"low"}`
	var saved struct {
		ExpectedBehavior string `json:"expected_behavior"`
		Fingerprint      string `json:"recorded_fingerprint"`
	}
	rec = doJSON(t, s, http.MethodPost, "/api/contract/util.py::helper", body, &saved)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "does nothing", saved.ExpectedBehavior)
	assert.NotEmpty(t, saved.Fingerprint)

	var status struct {
		Status string `json:"status"`
	}
	rec = doJSON(t, s, http.MethodGet, "/api/contract-status/util.py::helper", "", &status)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "fresh", status.Status)

	rec = doJSON(t, s, http.MethodDelete, "/api/contract/util.py::helper", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(t, s, http.MethodDelete, "/api/contract/util.py::helper", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestContractRejectsBadLevel(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t, fixture)

	body := `{"expected_behavior":"x","abstraction_level":"extreme"}`
	rec := doJSON(t, s, http.MethodPost, "/api/contract/util.py::helper", body, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatsEndpoint(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t, fixture)

	var stats struct {
		Functions int `json:"functions"`
		Resolved  int `json:"resolved"`
	}
	rec := doJSON(t, s, http.MethodGet, "/api/stats", "", &stats)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, stats.Functions)
	assert.Equal(t, 1, stats.Resolved)
}

func TestDOTEndpoint(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t, fixture)

	rec := doJSON(t, s, http.MethodGet, "/api/graph.dot", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "digraph calls")
}

func TestCallTreeEndpoint(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t, fixture)

	var tree struct {
		Token    string `json:"token"`
		Children []struct {
			Token string `json:"token"`
		} `json:"children"`
	}
	rec := doJSON(t, s, http.MethodGet, "/api/call-tree/main.py::main?depth=2", "", &tree)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "main.py::main", tree.Token)
	require.Len(t, tree.Children, 1)
	assert.Equal(t, "util.py::helper", tree.Children[0].Token)
}

func TestIndexEndpoint(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t, fixture)

	var resp struct {
		Functions int `json:"functions"`
	}
	rec := doJSON(t, s, http.MethodPost, "/api/index", "", &resp)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, resp.Functions)
}

func TestQueryBeforeIndexConflicts(t *testing.T) {
	t.Parallel()
	engine, err := abstraction.New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })
	s := New(engine, nil)

	rec := doJSON(t, s, http.MethodGet, "/api/functions", "", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}
