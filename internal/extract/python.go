package extract

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/Jaeyong-Cho/abstraction/internal/model"
)

// pythonExtractor walks python syntax trees. Nested and member functions get
// scope-qualified names (Outer.Inner) so identity is reproducible across
// runs; a function's callee list covers its whole subtree, nested bodies
// included.
type pythonExtractor struct{}

func (e *pythonExtractor) Language() string { return "python" }

func (e *pythonExtractor) Extract(ctx context.Context, path string, src []byte) ([]*model.FunctionRecord, error) {
	tree, err := parseSource(ctx, python.GetLanguage(), path, src)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	var records []*model.FunctionRecord
	e.walk(tree.RootNode(), src, path, nil, &records)
	return records, nil
}

func (e *pythonExtractor) walk(n *sitter.Node, src []byte, path string, scope []string, out *[]*model.FunctionRecord) {
	switch n.Type() {
	case "function_definition":
		nameNode := n.ChildByFieldName("name")
		if nameNode == nil {
			break
		}
		name := nameNode.Content(src)
		*out = append(*out, newRecord(path, "python", scope, name, n, src, e.calls(n, src)))
		childScope := append(append([]string{}, scope...), name)
		eachNamedChild(n, func(c *sitter.Node) {
			e.walk(c, src, path, childScope, out)
		})
		return
	case "class_definition":
		nameNode := n.ChildByFieldName("name")
		if nameNode != nil {
			childScope := append(append([]string{}, scope...), nameNode.Content(src))
			eachNamedChild(n, func(c *sitter.Node) {
				e.walk(c, src, path, childScope, out)
			})
			return
		}
	}
	eachNamedChild(n, func(c *sitter.Node) {
		e.walk(c, src, path, scope, out)
	})
}

// calls collects bare callee names in source order: plain identifiers and
// the final attribute of dotted calls (obj.method() yields "method").
func (e *pythonExtractor) calls(n *sitter.Node, src []byte) []string {
	var names []string
	var visit func(*sitter.Node)
	visit = func(node *sitter.Node) {
		if node.Type() == "call" {
			if fn := node.ChildByFieldName("function"); fn != nil {
				switch fn.Type() {
				case "identifier":
					names = append(names, fn.Content(src))
				case "attribute":
					if attr := fn.ChildByFieldName("attribute"); attr != nil {
						names = append(names, attr.Content(src))
					}
				}
			}
		}
		eachNamedChild(node, visit)
	}
	visit(n)
	return names
}
