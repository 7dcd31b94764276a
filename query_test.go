package abstraction

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContractLifecycle(t *testing.T) {
	t.Parallel()
	ws := writeWorkspace(t, map[string]string{"main.py": mainPy, "util.py": helperPy})
	e := newEngine(t, ws)
	ctx := context.Background()
	_, err := e.Index(ctx)
	require.NoError(t, err)

	id := Identity{Path: "util.py", QualifiedName: "helper"}
	behavior := "Does nothing, on purpose.\nKept as a seam for tests."

	q, err := e.Query()
	require.NoError(t, err)
	saved, err := q.SaveContract(id, behavior, []string{"none"}, nil, LevelLow)
	require.NoError(t, err)
	assert.NotEmpty(t, saved.RecordedFingerprint)

	status, err := q.ContractStatus(id)
	require.NoError(t, err)
	assert.Equal(t, ClassFresh, status.Status)

	// Whitespace-only edits do not invalidate the contract.
	require.NoError(t, os.WriteFile(filepath.Join(ws, "util.py"), []byte("def helper():\n\n    pass   \n"), 0o644))
	_, err = e.Index(ctx)
	require.NoError(t, err)
	q, err = e.Query()
	require.NoError(t, err)
	status, err = q.ContractStatus(id)
	require.NoError(t, err)
	assert.Equal(t, ClassFresh, status.Status)

	// A token change does.
	require.NoError(t, os.WriteFile(filepath.Join(ws, "util.py"), []byte("def helper():\n    return 1\n"), 0o644))
	_, err = e.Index(ctx)
	require.NoError(t, err)
	q, err = e.Query()
	require.NoError(t, err)
	status, err = q.ContractStatus(id)
	require.NoError(t, err)
	assert.Equal(t, ClassStale, status.Status)
	// Staleness never rewrites the recorded text.
	assert.Equal(t, behavior, status.Contract.ExpectedBehavior)
	assert.NotEqual(t, status.Contract.RecordedFingerprint, status.CurrentFingerprint)

	// Deleting the function orphans the contract and drops the function
	// from listings; the contract itself survives.
	require.NoError(t, os.Remove(filepath.Join(ws, "util.py")))
	_, err = e.Index(ctx)
	require.NoError(t, err)
	q, err = e.Query()
	require.NoError(t, err)
	status, err = q.ContractStatus(id)
	require.NoError(t, err)
	assert.Equal(t, ClassOrphaned, status.Status)
	assert.Equal(t, behavior, status.Contract.ExpectedBehavior)
	assert.Empty(t, status.CurrentFingerprint)

	fns, err := q.ListFunctions("")
	require.NoError(t, err)
	for _, fn := range fns {
		assert.NotEqual(t, id, fn.Identity)
	}
}

func TestSaveContractUnknownFunction(t *testing.T) {
	t.Parallel()
	e := indexed(t, map[string]string{"a.py": helperPy})

	q, err := e.Query()
	require.NoError(t, err)
	_, err = q.SaveContract(Identity{Path: "a.py", QualifiedName: "ghost"}, "x", nil, nil, LevelLow)
	assert.ErrorIs(t, err, ErrUnknownFunction)
}

func TestSaveContractIsFullReplacement(t *testing.T) {
	t.Parallel()
	e := indexed(t, map[string]string{"a.py": helperPy})
	id := Identity{Path: "a.py", QualifiedName: "helper"}

	q, err := e.Query()
	require.NoError(t, err)
	_, err = q.SaveContract(id, "first", []string{"p"}, []string{"q"}, LevelHigh)
	require.NoError(t, err)
	_, err = q.SaveContract(id, "second", nil, nil, LevelSystem)
	require.NoError(t, err)

	c, err := q.Contract(id)
	require.NoError(t, err)
	assert.Equal(t, "second", c.ExpectedBehavior)
	assert.Empty(t, c.Preconditions)
	assert.Empty(t, c.Postconditions)
	assert.Equal(t, LevelSystem, c.Level)
}

func TestListContractsClassifies(t *testing.T) {
	t.Parallel()
	ws := writeWorkspace(t, map[string]string{"a.py": helperPy, "b.py": "def other():\n    pass\n"})
	e := newEngine(t, ws)
	ctx := context.Background()
	_, err := e.Index(ctx)
	require.NoError(t, err)

	q, err := e.Query()
	require.NoError(t, err)
	_, err = q.SaveContract(Identity{Path: "a.py", QualifiedName: "helper"}, "x", nil, nil, LevelLow)
	require.NoError(t, err)
	_, err = q.SaveContract(Identity{Path: "b.py", QualifiedName: "other"}, "y", nil, nil, LevelLow)
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(ws, "b.py")))
	_, err = e.Index(ctx)
	require.NoError(t, err)

	q, err = e.Query()
	require.NoError(t, err)
	impacts, err := q.ListContracts("")
	require.NoError(t, err)
	require.Len(t, impacts, 2)
	assert.Equal(t, ClassFresh, impacts[0].Status)
	assert.Equal(t, ClassOrphaned, impacts[1].Status)
}

func TestFunctionTree(t *testing.T) {
	t.Parallel()
	e := indexed(t, map[string]string{
		"b.py":          "def top():\n    pass\n",
		"src/core/a.py": "def one():\n    pass\n\ndef two():\n    one()\n",
	})

	q, err := e.Query()
	require.NoError(t, err)
	tree, err := q.FunctionTree("")
	require.NoError(t, err)

	// Root holds b.py directly plus the src/ subtree.
	require.Len(t, tree.Files, 1)
	assert.Equal(t, "b.py", tree.Files[0].Name)
	require.Len(t, tree.Dirs, 1)

	src := tree.Dirs[0]
	assert.Equal(t, "src", src.Name)
	assert.Empty(t, src.Files)
	require.Len(t, src.Dirs, 1)

	core := src.Dirs[0]
	assert.Equal(t, "core", core.Name)
	assert.Equal(t, "src/core", core.Path)
	require.Len(t, core.Files, 1)

	a := core.Files[0]
	assert.Equal(t, "a.py", a.Name)
	assert.Equal(t, "src/core/a.py", a.Path)
	require.Len(t, a.Functions, 2)
	assert.Equal(t, "src/core/a.py::one", a.Functions[0].Token)
	assert.Equal(t, "src/core/a.py::two", a.Functions[1].Token)
	assert.Equal(t, ClassNoContract, a.Functions[0].Status)

	// Scoping prunes whole subtrees.
	scoped, err := q.FunctionTree("src/")
	require.NoError(t, err)
	assert.Empty(t, scoped.Files)
	require.Len(t, scoped.Dirs, 1)
	assert.Equal(t, "src", scoped.Dirs[0].Name)
}

func TestEntryPointsAndCallTree(t *testing.T) {
	t.Parallel()
	e := indexed(t, map[string]string{
		"app.py": "def main():\n    step()\n\ndef step():\n    leaf()\n    main()\n\ndef leaf():\n    pass\n",
	})

	q, err := e.Query()
	require.NoError(t, err)

	// main is called by step, step by main, leaf by step: the mutual
	// recursion means no zero-incoming node except none. leaf has a caller.
	entries := q.EntryPoints()
	assert.Empty(t, entries)

	tree, err := q.CallTree(Identity{Path: "app.py", QualifiedName: "main"}, 0)
	require.NoError(t, err)
	require.Len(t, tree.Children, 1)
	step := tree.Children[0]
	assert.Equal(t, "step", step.Name)
	require.Len(t, step.Children, 2)
	// The cycle back to main terminates as a back-reference.
	assert.Equal(t, "leaf", step.Children[0].Name)
	assert.Equal(t, "main", step.Children[1].Name)
	assert.True(t, step.Children[1].BackRef)
}

func TestCallTreeUnknownRoot(t *testing.T) {
	t.Parallel()
	e := indexed(t, map[string]string{"a.py": helperPy})

	q, err := e.Query()
	require.NoError(t, err)
	_, err = q.CallTree(Identity{Path: "a.py", QualifiedName: "ghost"}, 0)
	assert.ErrorIs(t, err, ErrUnknownFunction)
}

func TestStats(t *testing.T) {
	t.Parallel()
	e := indexed(t, map[string]string{"main.py": mainPy, "util.py": helperPy})

	q, err := e.Query()
	require.NoError(t, err)
	stats := q.Stats()
	assert.Equal(t, 2, stats.Files)
	assert.Equal(t, 2, stats.Functions)
	assert.Equal(t, 2, stats.Edges)
	assert.Equal(t, 1, stats.Resolved)
	assert.Equal(t, 1, stats.External)
	assert.Equal(t, 0, stats.Ambiguous)
	assert.Equal(t, 1, stats.EntryPoints)
	require.Len(t, stats.MostCalled, 1)
	assert.Equal(t, "helper", stats.MostCalled[0].Identity.QualifiedName)
}

func TestDOTOutput(t *testing.T) {
	t.Parallel()
	e := indexed(t, map[string]string{"main.py": mainPy, "util.py": helperPy})

	q, err := e.Query()
	require.NoError(t, err)
	dot := q.DOT()
	assert.Contains(t, dot, "digraph calls")
	assert.Contains(t, dot, `"main.py::main" -> "util.py::helper"`)
	assert.Contains(t, dot, `".::print"`)
	// Deterministic output.
	assert.Equal(t, dot, q.DOT())
}

func TestFunctionSource(t *testing.T) {
	t.Parallel()
	e := indexed(t, map[string]string{"main.py": mainPy, "util.py": helperPy})

	q, err := e.Query()
	require.NoError(t, err)
	src, err := q.FunctionSource(Identity{Path: "util.py", QualifiedName: "helper"})
	require.NoError(t, err)
	assert.Equal(t, "def helper():\n    pass", src.Code)
	assert.Equal(t, 1, src.StartLine)
	assert.Equal(t, 2, src.EndLine)
	require.Len(t, src.Callers, 1)
	assert.Equal(t, "main", src.Callers[0].QualifiedName)
	assert.Empty(t, src.Callees)
}

func TestFunctionGraph(t *testing.T) {
	t.Parallel()
	e := indexed(t, map[string]string{"main.py": mainPy, "util.py": helperPy})

	q, err := e.Query()
	require.NoError(t, err)
	ego, err := q.FunctionGraph(Identity{Path: "util.py", QualifiedName: "helper"})
	require.NoError(t, err)
	assert.Len(t, ego.Nodes, 2)
	assert.Len(t, ego.Edges, 1)
}
