package index

import (
	"sort"

	"github.com/Jaeyong-Cho/abstraction/internal/model"
)

// TreeNode is one node of a rendered call tree. A BackRef node marks a
// function already visited on this traversal: the walk stops there instead
// of re-descending, so cycles of any length terminate.
type TreeNode struct {
	Identity model.Identity
	Name     string
	Depth    int
	Kind     model.ResolutionKind // resolution of the edge that reached this node
	BackRef  bool
	Children []*TreeNode
}

// Tree renders a depth-first call tree rooted at root. maxDepth bounds the
// descent (a non-positive value means unbounded); the visited set bounds
// total work by the number of distinct reachable nodes.
func (g *Graph) Tree(root model.Identity, maxDepth int) *TreeNode {
	visited := make(map[model.Identity]bool)
	return g.descend(root, model.ResolutionResolved, 0, maxDepth, visited)
}

func (g *Graph) descend(id model.Identity, kind model.ResolutionKind, depth, maxDepth int, visited map[model.Identity]bool) *TreeNode {
	node := &TreeNode{Identity: id, Name: id.Name(), Depth: depth, Kind: kind}
	if visited[id] {
		node.BackRef = true
		return node
	}
	visited[id] = true

	if maxDepth > 0 && depth >= maxDepth {
		return node
	}

	edges := make([]*model.CallEdge, len(g.out[id]))
	copy(edges, g.out[id])
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Callee.Path != edges[j].Callee.Path {
			return edges[i].Callee.Path < edges[j].Callee.Path
		}
		return edges[i].Callee.QualifiedName < edges[j].Callee.QualifiedName
	})
	for _, e := range edges {
		node.Children = append(node.Children, g.descend(e.Callee, e.Kind, depth+1, maxDepth, visited))
	}
	return node
}
