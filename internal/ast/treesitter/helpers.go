package treesitter

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/rpgraph/rpg/internal/ast"
)

type extractorFunc func(root *sitter.Node, source []byte, result *ast.ParseResult)

func nodeText(n *sitter.Node, source []byte) string {
	if n == nil {
		return ""
	}
	start, end := n.StartByte(), n.EndByte()
	if int(end) > len(source) {
		end = uint32(len(source))
	}
	return string(source[start:end])
}

func startLine(n *sitter.Node) int { return int(n.StartPoint().Row) + 1 }
func endLine(n *sitter.Node) int   { return int(n.EndPoint().Row) + 1 }

// findParentOfKinds walks up from n looking for an ancestor whose Type()
// is in kinds, returning its "name" field text if found.
func findParentOfKinds(n *sitter.Node, source []byte, kinds map[string]bool) string {
	current := n.Parent()
	for current != nil {
		if kinds[current.Type()] {
			if nameNode := current.ChildByFieldName("name"); nameNode != nil {
				return nodeText(nameNode, source)
			}
		}
		current = current.Parent()
	}
	return ""
}

// walk calls visit on every node in the tree rooted at n, depth first.
func walk(n *sitter.Node, visit func(*sitter.Node)) {
	if n == nil {
		return
	}
	visit(n)
	for i := 0; i < int(n.ChildCount()); i++ {
		walk(n.Child(i), visit)
	}
}
