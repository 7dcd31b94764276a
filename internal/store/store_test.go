package store

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jaeyong-Cho/abstraction/internal/index"
	"github.com/Jaeyong-Cho/abstraction/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })
	return s
}

func record(path, qname, body string, callees ...string) *model.FunctionRecord {
	return &model.FunctionRecord{
		Path:          path,
		QualifiedName: qname,
		Language:      "python",
		StartLine:     1,
		EndLine:       3,
		RawBody:       body,
		Callees:       callees,
	}
}

func TestMigrate_AllTablesExist(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	for _, table := range []string{"functions", "call_edges", "diagnostics", "contracts", "metadata"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	require.NoError(t, s.Migrate())
}

func TestMigrate_WALMode(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	var mode string
	err := s.db.QueryRow("PRAGMA journal_mode").Scan(&mode)
	require.NoError(t, err)
	assert.Equal(t, "wal", mode)
}

func TestMetadataRoundTrip(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	v, err := s.GetMetadata("missing")
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, s.SetMetadata("k", "v1"))
	require.NoError(t, s.SetMetadata("k", "v2"))
	v, err = s.GetMetadata("k")
	require.NoError(t, err)
	assert.Equal(t, "v2", v)
}

func TestSaveLoadSnapshot(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	records := []*model.FunctionRecord{
		record("a.py", "main", "def main():\n    helper()", "helper"),
		record("b.py", "helper", "def helper():\n    pass"),
	}
	snap := index.NewSnapshot("/ws", 2, records, []model.Diagnostic{
		{Kind: model.DiagExtractionFailure, Path: "c.py", Detail: "parse error"},
	})
	require.NoError(t, s.SaveSnapshot(snap))

	loaded, err := s.LoadSnapshot()
	require.NoError(t, err)
	require.NotNil(t, loaded)

	assert.Equal(t, "/ws", loaded.Workspace)
	assert.Equal(t, 2, loaded.FileCount)
	assert.WithinDuration(t, snap.BuiltAt, loaded.BuiltAt, time.Millisecond)
	assert.Equal(t, 2, loaded.Registry.Len())

	main := loaded.Registry.Lookup(model.Identity{Path: "a.py", QualifiedName: "main"})
	require.NotNil(t, main)
	assert.Equal(t, "def main():\n    helper()", main.RawBody)
	assert.Equal(t, snap.Registry.Records()[0].Fingerprint(), main.Fingerprint())

	// Edges come back as persisted, without re-resolution.
	callees := loaded.Graph.Callees(main.Identity())
	require.Len(t, callees, 1)
	assert.Equal(t, model.Identity{Path: "b.py", QualifiedName: "helper"}, callees[0])

	require.Len(t, loaded.Diagnostics, 1)
	assert.Equal(t, model.DiagExtractionFailure, loaded.Diagnostics[0].Kind)
}

func TestLoadSnapshot_EmptyStore(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	snap, err := s.LoadSnapshot()
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestSaveSnapshot_ReplacesPreviousRun(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	first := index.NewSnapshot("/ws", 1, []*model.FunctionRecord{
		record("a.py", "old", "def old():\n    pass"),
	}, nil)
	require.NoError(t, s.SaveSnapshot(first))

	second := index.NewSnapshot("/ws", 1, []*model.FunctionRecord{
		record("a.py", "new", "def new():\n    pass"),
	}, nil)
	require.NoError(t, s.SaveSnapshot(second))

	loaded, err := s.LoadSnapshot()
	require.NoError(t, err)
	assert.Nil(t, loaded.Registry.Lookup(model.Identity{Path: "a.py", QualifiedName: "old"}))
	assert.NotNil(t, loaded.Registry.Lookup(model.Identity{Path: "a.py", QualifiedName: "new"}))
}

func TestContractRoundTripPreservesText(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	c := &model.Contract{
		Identity:         model.Identity{Path: "src/app.py", QualifiedName: "Runner.run"},
		ExpectedBehavior: "Runs each queued job exactly once.\n\n  Trailing spaces kept:   ",
		Preconditions:    []string{"queue is non-empty", "worker pool started"},
		Postconditions:   []string{"queue drained"},
		Level:            model.LevelHigh,
		RecordedFingerprint: "abc123",
	}
	require.NoError(t, s.PutContract(c))

	got, err := s.GetContract(c.Identity)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, c.ExpectedBehavior, got.ExpectedBehavior)
	assert.Equal(t, c.Preconditions, got.Preconditions)
	assert.Equal(t, c.Postconditions, got.Postconditions)
	assert.Equal(t, model.LevelHigh, got.Level)
	assert.Equal(t, "abc123", got.RecordedFingerprint)
	assert.False(t, got.RecordedAt.IsZero())
}

func TestPutContract_FullReplacement(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	id := model.Identity{Path: "a.py", QualifiedName: "f"}
	require.NoError(t, s.PutContract(&model.Contract{
		Identity:            id,
		ExpectedBehavior:    "first",
		Preconditions:       []string{"p1"},
		Level:               model.LevelLow,
		RecordedFingerprint: "f1",
	}))
	require.NoError(t, s.PutContract(&model.Contract{
		Identity:            id,
		ExpectedBehavior:    "second",
		Level:               model.LevelSystem,
		RecordedFingerprint: "f2",
	}))

	got, err := s.GetContract(id)
	require.NoError(t, err)
	assert.Equal(t, "second", got.ExpectedBehavior)
	assert.Empty(t, got.Preconditions)
	assert.Equal(t, model.LevelSystem, got.Level)
	assert.Equal(t, "f2", got.RecordedFingerprint)
}

func TestPutContract_RejectsInvalidLevel(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	err := s.PutContract(&model.Contract{
		Identity:         model.Identity{Path: "a.py", QualifiedName: "f"},
		ExpectedBehavior: "x",
		Level:            "extreme",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid level")
}

func TestGetContract_Absent(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	got, err := s.GetContract(model.Identity{Path: "a.py", QualifiedName: "f"})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestListContractsByPathPrefix(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	for _, id := range []model.Identity{
		{Path: "src/core/a.py", QualifiedName: "f"},
		{Path: "src/core/b.py", QualifiedName: "g"},
		{Path: "src/web/c.py", QualifiedName: "h"},
	} {
		require.NoError(t, s.PutContract(&model.Contract{
			Identity: id, ExpectedBehavior: "x", Level: model.LevelMedium,
		}))
	}

	core, err := s.ListContracts("src/core/")
	require.NoError(t, err)
	require.Len(t, core, 2)
	assert.Equal(t, "src/core/a.py", core[0].Identity.Path)
	assert.Equal(t, "src/core/b.py", core[1].Identity.Path)

	all, err := s.ListContracts("")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestListContractsPrefixMatchesLiterally(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	// Wildcard characters are legal in paths; the prefix must not treat
	// them as LIKE patterns.
	for _, path := range []string{"src/a_b.py", "src/axb.py", "src/a%b.py"} {
		require.NoError(t, s.PutContract(&model.Contract{
			Identity:         model.Identity{Path: path, QualifiedName: "f"},
			ExpectedBehavior: "x",
			Level:            model.LevelLow,
		}))
	}

	got, err := s.ListContracts("src/a_b")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "src/a_b.py", got[0].Identity.Path)

	got, err = s.ListContracts("src/a%")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "src/a%b.py", got[0].Identity.Path)
}

func TestDeleteContract(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	id := model.Identity{Path: "a.py", QualifiedName: "f"}
	require.NoError(t, s.PutContract(&model.Contract{Identity: id, ExpectedBehavior: "x", Level: model.LevelEntry}))

	existed, err := s.DeleteContract(id)
	require.NoError(t, err)
	assert.True(t, existed)

	existed, err = s.DeleteContract(id)
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestConcurrentContractWritesDistinctIdentities(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := model.Identity{Path: "a.py", QualifiedName: string(rune('a' + n))}
			_ = s.PutContract(&model.Contract{Identity: id, ExpectedBehavior: "x", Level: model.LevelLow})
		}(i)
	}
	wg.Wait()

	all, err := s.ListContracts("")
	require.NoError(t, err)
	assert.Len(t, all, 8)
}
