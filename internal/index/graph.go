package index

import (
	"sort"

	"github.com/Jaeyong-Cho/abstraction/internal/model"
)

// Graph is the directed call graph derived from a registry. One canonical
// adjacency representation (identity → outgoing/incoming edge lists) backs
// both the radius-1 ego view and the depth-first tree walk. Rebuilt in full
// on every index run; immutable afterwards.
type Graph struct {
	edges []*model.CallEdge
	out   map[model.Identity][]*model.CallEdge
	in    map[model.Identity][]*model.CallEdge
}

// Resolve binds every declared callee name of every registered function to
// exactly one edge. The graph is total: a call site never produces zero
// edges and never more than one per distinct callee per caller.
//
// Per name n in caller f's callee list:
//  1. candidates in f's own file win; exactly one such match resolves to it
//  2. otherwise a project-wide unique match resolves
//  3. several matches produce an ambiguous edge to the first candidate in
//     (path, line) order
//  4. no match produces an external edge to the synthetic (".", n) identity
func Resolve(reg *Registry) *Graph {
	g := &Graph{
		out: make(map[model.Identity][]*model.CallEdge),
		in:  make(map[model.Identity][]*model.CallEdge),
	}

	for _, caller := range reg.Records() {
		callerID := caller.Identity()
		// Repeated calls to the same callee collapse to one edge; the
		// per-caller map keeps multiplicity as a statistic on the edge.
		seen := make(map[model.Identity]*model.CallEdge)

		for _, name := range caller.Callees {
			callee, kind := resolveName(reg, caller, name)
			if edge, ok := seen[callee]; ok {
				edge.Count++
				continue
			}
			edge := &model.CallEdge{Caller: callerID, Callee: callee, Kind: kind, Count: 1}
			seen[callee] = edge
			g.addEdge(edge)
		}
	}
	return g
}

// GraphFromEdges reassembles a graph from previously persisted edges, e.g.
// when loading a stored snapshot. Edges are assumed to be the output of a
// prior Resolve call: already deduplicated per (caller, callee).
func GraphFromEdges(edges []*model.CallEdge) *Graph {
	g := &Graph{
		out: make(map[model.Identity][]*model.CallEdge),
		in:  make(map[model.Identity][]*model.CallEdge),
	}
	for _, e := range edges {
		g.addEdge(e)
	}
	return g
}

func resolveName(reg *Registry, caller *model.FunctionRecord, name string) (model.Identity, model.ResolutionKind) {
	candidates := reg.ByName(name)
	if len(candidates) == 0 {
		return model.External(name), model.ResolutionExternal
	}

	// Same-file candidates take priority: local helpers with generic names
	// beat identically named functions elsewhere. Recursion lands here too.
	var sameFile []*model.FunctionRecord
	for _, c := range candidates {
		if c.Path == caller.Path {
			sameFile = append(sameFile, c)
		}
	}
	if len(sameFile) == 1 {
		return sameFile[0].Identity(), model.ResolutionResolved
	}

	if len(candidates) == 1 {
		return candidates[0].Identity(), model.ResolutionResolved
	}
	return pickAmbiguous(candidates).Identity(), model.ResolutionAmbiguous
}

// pickAmbiguous selects the edge target when several candidates remain.
// First match by (path, line) is a pragmatic default, not a semantic
// judgment; the policy lives here so callers have one place to override.
func pickAmbiguous(candidates []*model.FunctionRecord) *model.FunctionRecord {
	return candidates[0] // ByName pre-sorts by (path, start line)
}

func (g *Graph) addEdge(e *model.CallEdge) {
	g.edges = append(g.edges, e)
	g.out[e.Caller] = append(g.out[e.Caller], e)
	g.in[e.Callee] = append(g.in[e.Callee], e)
}

// Edges returns every edge in the graph.
func (g *Graph) Edges() []*model.CallEdge {
	return g.edges
}

// Callees returns the identities id calls directly, sorted.
func (g *Graph) Callees(id model.Identity) []model.Identity {
	return sortedEndpoints(g.out[id], func(e *model.CallEdge) model.Identity { return e.Callee })
}

// Callers returns the identities that call id directly, sorted.
func (g *Graph) Callers(id model.Identity) []model.Identity {
	return sortedEndpoints(g.in[id], func(e *model.CallEdge) model.Identity { return e.Caller })
}

// OutEdges returns the edges leaving id.
func (g *Graph) OutEdges(id model.Identity) []*model.CallEdge {
	return g.out[id]
}

// InEdges returns the edges arriving at id.
func (g *Graph) InEdges(id model.Identity) []*model.CallEdge {
	return g.in[id]
}

func sortedEndpoints(edges []*model.CallEdge, pick func(*model.CallEdge) model.Identity) []model.Identity {
	ids := make([]model.Identity, 0, len(edges))
	for _, e := range edges {
		ids = append(ids, pick(e))
	}
	sortIdentities(ids)
	return ids
}

func sortIdentities(ids []model.Identity) {
	sort.Slice(ids, func(i, j int) bool {
		if ids[i].Path != ids[j].Path {
			return ids[i].Path < ids[j].Path
		}
		return ids[i].QualifiedName < ids[j].QualifiedName
	})
}

// EgoGraph is the radius-1 neighborhood around a center function: the center
// node, its direct callers, and its direct callees. This bounded shape is
// what the presentation layer consumes; transitive closure is never
// materialized for display.
type EgoGraph struct {
	Center model.Identity
	Nodes  []model.Identity
	Edges  []*model.CallEdge
}

// Ego builds the radius-1 view around center.
func (g *Graph) Ego(center model.Identity) *EgoGraph {
	nodeSet := map[model.Identity]bool{center: true}
	var edges []*model.CallEdge
	for _, e := range g.in[center] {
		nodeSet[e.Caller] = true
		edges = append(edges, e)
	}
	for _, e := range g.out[center] {
		nodeSet[e.Callee] = true
		edges = append(edges, e)
	}

	nodes := make([]model.Identity, 0, len(nodeSet))
	for id := range nodeSet {
		nodes = append(nodes, id)
	}
	sortIdentities(nodes)
	return &EgoGraph{Center: center, Nodes: nodes, Edges: dedupeEdges(edges)}
}

func dedupeEdges(edges []*model.CallEdge) []*model.CallEdge {
	type key struct{ a, b model.Identity }
	seen := make(map[key]bool, len(edges))
	out := edges[:0]
	for _, e := range edges {
		k := key{e.Caller, e.Callee}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, e)
	}
	return out
}

// EntryPoints returns registered identities with zero incoming resolved
// edges, in deterministic order. A resolved self-call counts, so a
// self-recursive function is not an entry point. Ambiguous incoming edges
// do not disqualify a node: only a certain caller does.
func (g *Graph) EntryPoints(reg *Registry) []model.Identity {
	var entries []model.Identity
	for _, rec := range reg.Records() {
		id := rec.Identity()
		called := false
		for _, e := range g.in[id] {
			if e.Kind == model.ResolutionResolved {
				called = true
				break
			}
		}
		if !called {
			entries = append(entries, id)
		}
	}
	sortIdentities(entries)
	return entries
}
