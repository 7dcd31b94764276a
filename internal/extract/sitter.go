package extract

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/Jaeyong-Cho/abstraction/internal/model"
)

// parseSource parses src with the given grammar. A nil or error-bearing root
// counts as an extraction failure: the caller skips the file and records a
// diagnostic rather than aborting the run.
func parseSource(ctx context.Context, lang *sitter.Language, path string, src []byte) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(lang)
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if tree == nil || tree.RootNode() == nil {
		return nil, fmt.Errorf("parse %s: no syntax tree", path)
	}
	return tree, nil
}

// newRecord builds a FunctionRecord from a function node. scope holds the
// names of enclosing classes/functions, outermost first; the qualified name
// joins scope and name with ".".
func newRecord(path, language string, scope []string, name string, node *sitter.Node, src []byte, callees []string) *model.FunctionRecord {
	qualified := name
	if len(scope) > 0 {
		qualified = strings.Join(scope, ".") + "." + name
	}
	return &model.FunctionRecord{
		Path:          path,
		QualifiedName: qualified,
		Language:      language,
		StartLine:     int(node.StartPoint().Row) + 1,
		EndLine:       int(node.EndPoint().Row) + 1,
		RawBody:       node.Content(src),
		Callees:       callees,
	}
}

// eachNamedChild invokes fn for every named child of n.
func eachNamedChild(n *sitter.Node, fn func(child *sitter.Node)) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		fn(n.NamedChild(i))
	}
}
