package extract

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"

	"github.com/Jaeyong-Cho/abstraction/internal/model"
)

// goExtractor indexes Go sources. Methods are qualified by their receiver's
// base type (Server.Start), matching the dotted scheme used elsewhere.
type goExtractor struct{}

func (e *goExtractor) Language() string { return "go" }

func (e *goExtractor) Extract(ctx context.Context, path string, src []byte) ([]*model.FunctionRecord, error) {
	tree, err := parseSource(ctx, golang.GetLanguage(), path, src)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	var records []*model.FunctionRecord
	var visit func(*sitter.Node)
	visit = func(n *sitter.Node) {
		switch n.Type() {
		case "function_declaration":
			if name := fieldText(n, "name", src); name != "" {
				records = append(records, newRecord(path, "go", nil, name, n, src, e.calls(n, src)))
			}
		case "method_declaration":
			name := fieldText(n, "name", src)
			if name == "" {
				break
			}
			var scope []string
			if recv := receiverType(n, src); recv != "" {
				scope = []string{recv}
			}
			records = append(records, newRecord(path, "go", scope, name, n, src, e.calls(n, src)))
		}
		eachNamedChild(n, visit)
	}
	visit(tree.RootNode())
	return records, nil
}

// receiverType returns the bare receiver type name: (s *Server) -> Server.
func receiverType(n *sitter.Node, src []byte) string {
	recv := n.ChildByFieldName("receiver")
	if recv == nil || recv.NamedChildCount() == 0 {
		return ""
	}
	decl := recv.NamedChild(0)
	t := decl.ChildByFieldName("type")
	if t == nil {
		return ""
	}
	text := t.Content(src)
	text = strings.TrimPrefix(text, "*")
	// Generic receivers: Box[T] -> Box.
	if i := strings.Index(text, "["); i > 0 {
		text = text[:i]
	}
	return text
}

func (e *goExtractor) calls(n *sitter.Node, src []byte) []string {
	var names []string
	var visit func(*sitter.Node)
	visit = func(node *sitter.Node) {
		if node.Type() == "call_expression" {
			if fn := node.ChildByFieldName("function"); fn != nil {
				switch fn.Type() {
				case "identifier":
					names = append(names, fn.Content(src))
				case "selector_expression":
					if f := fn.ChildByFieldName("field"); f != nil {
						names = append(names, f.Content(src))
					}
				}
			}
		}
		eachNamedChild(node, visit)
	}
	visit(n)
	return names
}
