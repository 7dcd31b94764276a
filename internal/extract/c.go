package extract

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"

	"github.com/Jaeyong-Cho/abstraction/internal/model"
)

// cExtractor covers c and cpp. For cpp, classes and namespaces contribute
// scope segments, and out-of-line definitions (Cls::method) are folded into
// the same dotted qualified-name scheme the other languages use.
type cExtractor struct {
	lang string // "c" or "cpp"
}

func (e *cExtractor) Language() string { return e.lang }

func (e *cExtractor) grammar() *sitter.Language {
	if e.lang == "cpp" {
		return cpp.GetLanguage()
	}
	return c.GetLanguage()
}

func (e *cExtractor) Extract(ctx context.Context, path string, src []byte) ([]*model.FunctionRecord, error) {
	tree, err := parseSource(ctx, e.grammar(), path, src)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	var records []*model.FunctionRecord
	e.walk(tree.RootNode(), src, path, nil, &records)
	return records, nil
}

func (e *cExtractor) walk(n *sitter.Node, src []byte, path string, scope []string, out *[]*model.FunctionRecord) {
	switch n.Type() {
	case "function_definition":
		if name := e.declaratorName(n, src); name != "" {
			funcScope := scope
			// Out-of-line C++ definitions carry their own qualifier:
			// void Cls::method() — the qualifier becomes scope segments.
			if segs := strings.Split(name, "::"); len(segs) > 1 {
				funcScope = append(append([]string{}, scope...), segs[:len(segs)-1]...)
				name = segs[len(segs)-1]
			}
			*out = append(*out, newRecord(path, e.lang, funcScope, name, n, src, e.calls(n, src)))
		}
	case "class_specifier", "struct_specifier", "namespace_definition":
		if e.lang == "cpp" {
			if name := fieldText(n, "name", src); name != "" {
				eachNamedChild(n, func(c *sitter.Node) {
					e.walk(c, src, path, appendScope(scope, name), out)
				})
				return
			}
		}
	}
	eachNamedChild(n, func(c *sitter.Node) {
		e.walk(c, src, path, scope, out)
	})
}

// declaratorName digs through declarator wrappers (pointers, qualifiers)
// until it finds the function's identifier.
func (e *cExtractor) declaratorName(n *sitter.Node, src []byte) string {
	decl := n.ChildByFieldName("declarator")
	for decl != nil {
		switch decl.Type() {
		case "identifier", "field_identifier", "qualified_identifier", "destructor_name", "operator_name":
			return decl.Content(src)
		case "function_declarator":
			decl = decl.ChildByFieldName("declarator")
		case "pointer_declarator", "reference_declarator":
			decl = decl.ChildByFieldName("declarator")
		default:
			return ""
		}
	}
	return ""
}

func (e *cExtractor) calls(n *sitter.Node, src []byte) []string {
	var names []string
	var visit func(*sitter.Node)
	visit = func(node *sitter.Node) {
		if node.Type() == "call_expression" {
			if fn := node.ChildByFieldName("function"); fn != nil {
				switch fn.Type() {
				case "identifier":
					names = append(names, fn.Content(src))
				case "field_expression":
					if f := fn.ChildByFieldName("field"); f != nil {
						names = append(names, f.Content(src))
					}
				case "qualified_identifier":
					// ns::f() — keep the rightmost segment.
					text := fn.Content(src)
					if i := strings.LastIndex(text, "::"); i >= 0 {
						text = text[i+2:]
					}
					names = append(names, text)
				}
			}
		}
		eachNamedChild(node, visit)
	}
	visit(n)
	return names
}
