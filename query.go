package abstraction

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/Jaeyong-Cho/abstraction/internal/index"
	"github.com/Jaeyong-Cho/abstraction/internal/model"
	"github.com/Jaeyong-Cho/abstraction/internal/store"
)

// QueryBuilder answers read queries against one published snapshot. The
// snapshot is pinned at construction, so a builder's answers stay mutually
// consistent even while a new index run is in flight. Contract reads and
// writes go through the store and always see the latest ledger.
type QueryBuilder struct {
	snap  *index.Snapshot
	store *store.Store
}

// FunctionSummary is one row of a function listing.
type FunctionSummary struct {
	Identity  Identity
	Token     string
	Language  string
	StartLine int
	EndLine   int
	// Level comes from the recorded contract; empty when none exists.
	Level  AbstractionLevel
	Status Classification
}

// ListFunctions lists indexed functions whose path starts with scope, in
// (path, start line) order, each classified against its recorded contract.
// An empty scope lists the whole workspace.
func (q *QueryBuilder) ListFunctions(scope string) ([]FunctionSummary, error) {
	scope = normalizeScope(scope)

	contracts, err := q.store.ListContracts(scope)
	if err != nil {
		return nil, fmt.Errorf("list functions: %w", err)
	}
	byID := make(map[Identity]*Contract, len(contracts))
	for _, c := range contracts {
		byID[c.Identity] = c
	}

	var out []FunctionSummary
	for _, rec := range q.snap.Registry.Records() {
		if scope != "" && !strings.HasPrefix(rec.Path, scope) {
			continue
		}
		id := rec.Identity()
		c := byID[id]
		row := FunctionSummary{
			Identity:  id,
			Token:     id.Token(),
			Language:  rec.Language,
			StartLine: rec.StartLine,
			EndLine:   rec.EndLine,
			Status:    model.Classify(rec, c),
		}
		if c != nil {
			row.Level = c.Level
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Identity.Path != out[j].Identity.Path {
			return out[i].Identity.Path < out[j].Identity.Path
		}
		return out[i].StartLine < out[j].StartLine
	})
	return out, nil
}

// DirNode is one directory of a function listing grouped as a tree:
// subdirectories first, then the directory's own files, each file carrying
// its functions. The root node has an empty name and path.
type DirNode struct {
	Name  string
	Path  string // workspace-relative, slash-separated
	Dirs  []*DirNode
	Files []*FileNode
}

// FileNode groups the functions of one source file.
type FileNode struct {
	Name      string
	Path      string
	Functions []FunctionSummary
}

// FunctionTree is ListFunctions grouped by directory and file: the
// hierarchical shape of the listing boundary.
func (q *QueryBuilder) FunctionTree(scope string) (*DirNode, error) {
	fns, err := q.ListFunctions(scope)
	if err != nil {
		return nil, err
	}
	return BuildFunctionTree(fns), nil
}

// BuildFunctionTree groups a listing into a directory → file → function
// tree. Children come out in path order because ListFunctions sorts by path.
func BuildFunctionTree(fns []FunctionSummary) *DirNode {
	root := &DirNode{}
	dirs := map[string]*DirNode{"": root}
	files := make(map[string]*FileNode)

	var dirFor func(dir string) *DirNode
	dirFor = func(dir string) *DirNode {
		if d, ok := dirs[dir]; ok {
			return d
		}
		parent := dirFor(parentDir(dir))
		d := &DirNode{Name: path.Base(dir), Path: dir}
		parent.Dirs = append(parent.Dirs, d)
		dirs[dir] = d
		return d
	}

	for _, fn := range fns {
		file, ok := files[fn.Identity.Path]
		if !ok {
			file = &FileNode{Name: path.Base(fn.Identity.Path), Path: fn.Identity.Path}
			dir := dirFor(parentDir(fn.Identity.Path))
			dir.Files = append(dir.Files, file)
			files[fn.Identity.Path] = file
		}
		file.Functions = append(file.Functions, fn)
	}
	return root
}

// parentDir returns the slash-path parent directory, "" at the root.
func parentDir(p string) string {
	dir := path.Dir(p)
	if dir == "." || dir == "/" {
		return ""
	}
	return dir
}

func normalizeScope(scope string) string {
	scope = strings.TrimPrefix(strings.ReplaceAll(scope, "\\", "/"), "./")
	if scope == "." {
		return ""
	}
	return scope
}

// Classify derives the contract state for id against the pinned snapshot.
func (q *QueryBuilder) Classify(id Identity) (Classification, error) {
	c, err := q.store.GetContract(id)
	if err != nil {
		return "", err
	}
	return model.Classify(q.snap.Registry.Lookup(id), c), nil
}

// CalleeCount ranks a function by how many distinct callers it has.
type CalleeCount struct {
	Identity Identity
	Callers  int
}

// GraphStats summarizes one snapshot's graph.
type GraphStats struct {
	Files       int
	Functions   int
	Edges       int
	Resolved    int
	External    int
	Ambiguous   int
	EntryPoints int
	// MostCalled lists the ten registered functions with the most distinct
	// callers, descending.
	MostCalled []CalleeCount
}

// Stats computes summary statistics over the pinned snapshot.
func (q *QueryBuilder) Stats() *GraphStats {
	stats := &GraphStats{
		Files:       q.snap.FileCount,
		Functions:   q.snap.Registry.Len(),
		Edges:       len(q.snap.Graph.Edges()),
		EntryPoints: len(q.snap.Graph.EntryPoints(q.snap.Registry)),
	}
	for _, e := range q.snap.Graph.Edges() {
		switch e.Kind {
		case ResolutionResolved:
			stats.Resolved++
		case ResolutionExternal:
			stats.External++
		case ResolutionAmbiguous:
			stats.Ambiguous++
		}
	}

	for _, rec := range q.snap.Registry.Records() {
		id := rec.Identity()
		if n := len(q.snap.Graph.InEdges(id)); n > 0 {
			stats.MostCalled = append(stats.MostCalled, CalleeCount{Identity: id, Callers: n})
		}
	}
	sort.Slice(stats.MostCalled, func(i, j int) bool {
		if stats.MostCalled[i].Callers != stats.MostCalled[j].Callers {
			return stats.MostCalled[i].Callers > stats.MostCalled[j].Callers
		}
		return stats.MostCalled[i].Identity.Path < stats.MostCalled[j].Identity.Path
	})
	if len(stats.MostCalled) > 10 {
		stats.MostCalled = stats.MostCalled[:10]
	}
	return stats
}

// Snapshot returns the pinned snapshot.
func (q *QueryBuilder) Snapshot() *Snapshot {
	return q.snap
}
