package abstraction

import "fmt"

// EntryPoints returns the functions nothing in the workspace calls: roots
// for top-down reading of the graph. A self-call counts as a caller; an
// ambiguous incoming edge does not.
func (q *QueryBuilder) EntryPoints() []Identity {
	return q.snap.Graph.EntryPoints(q.snap.Registry)
}

// CallTree expands the call graph depth-first from root. Cycles terminate
// with back-reference nodes instead of recursing; maxDepth <= 0 means
// unbounded.
func (q *QueryBuilder) CallTree(root Identity, maxDepth int) (*TreeNode, error) {
	if q.snap.Registry.Lookup(root) == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFunction, root)
	}
	return q.snap.Graph.Tree(root, maxDepth), nil
}

// EntryTrees expands a call tree from every entry point.
func (q *QueryBuilder) EntryTrees(maxDepth int) []*TreeNode {
	entries := q.EntryPoints()
	trees := make([]*TreeNode, 0, len(entries))
	for _, root := range entries {
		trees = append(trees, q.snap.Graph.Tree(root, maxDepth))
	}
	return trees
}
