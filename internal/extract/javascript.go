package extract

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	ts "github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/Jaeyong-Cho/abstraction/internal/model"
)

// jsExtractor covers javascript and typescript; the grammars differ but the
// function and call shapes this indexer cares about are identical.
type jsExtractor struct {
	lang string // "javascript" or "typescript"
}

func (e *jsExtractor) Language() string { return e.lang }

func (e *jsExtractor) grammar() *sitter.Language {
	if e.lang == "typescript" {
		return ts.GetLanguage()
	}
	return javascript.GetLanguage()
}

func (e *jsExtractor) Extract(ctx context.Context, path string, src []byte) ([]*model.FunctionRecord, error) {
	tree, err := parseSource(ctx, e.grammar(), path, src)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	var records []*model.FunctionRecord
	e.walk(tree.RootNode(), src, path, nil, &records)
	return records, nil
}

func (e *jsExtractor) walk(n *sitter.Node, src []byte, path string, scope []string, out *[]*model.FunctionRecord) {
	switch n.Type() {
	case "function_declaration", "generator_function_declaration", "method_definition":
		if name := fieldText(n, "name", src); name != "" {
			*out = append(*out, newRecord(path, e.lang, scope, name, n, src, e.calls(n, src)))
			e.walkChildren(n, src, path, appendScope(scope, name), out)
			return
		}
	case "function_expression", "function", "arrow_function", "generator_function":
		// Anonymous forms are only indexable when bound to a name:
		// const f = () => {} or obj.f = function() {}.
		if name := assignedName(n, src); name != "" {
			*out = append(*out, newRecord(path, e.lang, scope, name, n, src, e.calls(n, src)))
			e.walkChildren(n, src, path, appendScope(scope, name), out)
			return
		}
	case "class_declaration", "class":
		if name := fieldText(n, "name", src); name != "" {
			e.walkChildren(n, src, path, appendScope(scope, name), out)
			return
		}
	}
	e.walkChildren(n, src, path, scope, out)
}

func (e *jsExtractor) walkChildren(n *sitter.Node, src []byte, path string, scope []string, out *[]*model.FunctionRecord) {
	eachNamedChild(n, func(c *sitter.Node) {
		e.walk(c, src, path, scope, out)
	})
}

// calls collects callee names from call_expression and new_expression nodes.
func (e *jsExtractor) calls(n *sitter.Node, src []byte) []string {
	var names []string
	var visit func(*sitter.Node)
	visit = func(node *sitter.Node) {
		switch node.Type() {
		case "call_expression":
			if fn := node.ChildByFieldName("function"); fn != nil {
				if name := callTargetName(fn, src); name != "" {
					names = append(names, name)
				}
			}
		case "new_expression":
			if ctor := node.ChildByFieldName("constructor"); ctor != nil {
				if name := callTargetName(ctor, src); name != "" {
					names = append(names, name)
				}
			}
		}
		eachNamedChild(node, visit)
	}
	visit(n)
	return names
}

// callTargetName reduces a call target to a bare name: identifiers pass
// through, member expressions yield the property (obj.method -> method).
func callTargetName(n *sitter.Node, src []byte) string {
	switch n.Type() {
	case "identifier":
		return n.Content(src)
	case "member_expression":
		if prop := n.ChildByFieldName("property"); prop != nil && prop.Type() == "property_identifier" {
			return prop.Content(src)
		}
	}
	return ""
}

// assignedName finds the name an anonymous function is bound to, if any.
func assignedName(n *sitter.Node, src []byte) string {
	parent := n.Parent()
	if parent == nil {
		return ""
	}
	switch parent.Type() {
	case "variable_declarator", "public_field_definition", "property_definition", "pair":
		if name := fieldText(parent, "name", src); name != "" {
			return name
		}
		if key := parent.ChildByFieldName("key"); key != nil {
			return key.Content(src)
		}
	case "assignment_expression":
		left := parent.ChildByFieldName("left")
		if left == nil {
			return ""
		}
		switch left.Type() {
		case "identifier":
			return left.Content(src)
		case "member_expression":
			if prop := left.ChildByFieldName("property"); prop != nil {
				return prop.Content(src)
			}
		}
	}
	return ""
}

func fieldText(n *sitter.Node, field string, src []byte) string {
	f := n.ChildByFieldName(field)
	if f == nil {
		return ""
	}
	return f.Content(src)
}

func appendScope(scope []string, name string) []string {
	return append(append([]string{}, scope...), name)
}
