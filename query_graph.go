package abstraction

import (
	"fmt"
	"sort"
	"strings"
)

// FunctionGraph returns the radius-1 neighborhood of id: the function, its
// direct callers, and its direct callees.
func (q *QueryBuilder) FunctionGraph(id Identity) (*EgoGraph, error) {
	if q.snap.Registry.Lookup(id) == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFunction, id)
	}
	return q.snap.Graph.Ego(id), nil
}

// Callers returns the identities calling id directly, sorted.
func (q *QueryBuilder) Callers(id Identity) ([]Identity, error) {
	if q.snap.Registry.Lookup(id) == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFunction, id)
	}
	return q.snap.Graph.Callers(id), nil
}

// Callees returns the identities id calls directly, sorted.
func (q *QueryBuilder) Callees(id Identity) ([]Identity, error) {
	if q.snap.Registry.Lookup(id) == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFunction, id)
	}
	return q.snap.Graph.Callees(id), nil
}

// DOT renders the whole call graph in Graphviz dot syntax. External callees
// are boxed, ambiguous edges dashed; the output is deterministic.
func (q *QueryBuilder) DOT() string {
	var b strings.Builder
	b.WriteString("digraph calls {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=ellipse, fontsize=10];\n")

	var externals []Identity
	seen := make(map[Identity]bool)
	for _, e := range q.snap.Graph.Edges() {
		if e.Callee.IsExternal() && !seen[e.Callee] {
			seen[e.Callee] = true
			externals = append(externals, e.Callee)
		}
	}
	sort.Slice(externals, func(i, j int) bool {
		return externals[i].QualifiedName < externals[j].QualifiedName
	})

	for _, rec := range q.snap.Registry.Records() {
		id := rec.Identity()
		fmt.Fprintf(&b, "  %s [label=%s];\n", dotQuote(id.Token()), dotQuote(id.QualifiedName))
	}
	for _, id := range externals {
		fmt.Fprintf(&b, "  %s [label=%s, shape=box, style=dotted];\n", dotQuote(id.Token()), dotQuote(id.QualifiedName))
	}

	edges := make([]*CallEdge, len(q.snap.Graph.Edges()))
	copy(edges, q.snap.Graph.Edges())
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Caller != edges[j].Caller {
			return edges[i].Caller.Token() < edges[j].Caller.Token()
		}
		return edges[i].Callee.Token() < edges[j].Callee.Token()
	})
	for _, e := range edges {
		attr := ""
		switch e.Kind {
		case ResolutionAmbiguous:
			attr = " [style=dashed]"
		case ResolutionExternal:
			attr = " [color=gray]"
		}
		fmt.Fprintf(&b, "  %s -> %s%s;\n", dotQuote(e.Caller.Token()), dotQuote(e.Callee.Token()), attr)
	}
	b.WriteString("}\n")
	return b.String()
}

func dotQuote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}
