package treesitter

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/rpgraph/rpg/internal/ast"
)

var extractors = map[ast.Language]extractorFunc{
	ast.LangGo:         extractGo,
	ast.LangPython:     extractPython,
	ast.LangJavaScript: extractJavaScriptLike,
	ast.LangTypeScript: extractJavaScriptLike,
}

// Per-language node-kind -> entity-type tables, re-derived from each
// grammar's own node kinds rather than copied from any other source,
// per the design note on per-language AST tables.

func extractGo(root *sitter.Node, source []byte, result *ast.ParseResult) {
	walk(root, func(n *sitter.Node) {
		switch n.Type() {
		case "function_declaration":
			name := nodeText(n.ChildByFieldName("name"), source)
			result.Entities = append(result.Entities, ast.CodeEntity{
				Type: ast.EntFunction, Name: name,
				StartLine: startLine(n), EndLine: endLine(n),
			})
		case "method_declaration":
			name := nodeText(n.ChildByFieldName("name"), source)
			recv := n.ChildByFieldName("receiver")
			parent := ""
			// The receiver's type name (e.g. "Widget" for "(w *Widget)")
			// is the method's enclosing entity.
			walk(recv, func(t *sitter.Node) {
				if parent == "" && t.Type() == "type_identifier" {
					parent = nodeText(t, source)
				}
			})
			result.Entities = append(result.Entities, ast.CodeEntity{
				Type: ast.EntMethod, Name: name, Parent: parent,
				StartLine: startLine(n), EndLine: endLine(n),
			})
		case "type_spec":
			if n.ChildByFieldName("type") != nil && n.ChildByFieldName("type").Type() == "struct_type" {
				name := nodeText(n.ChildByFieldName("name"), source)
				result.Entities = append(result.Entities, ast.CodeEntity{
					Type: ast.EntClass, Name: name,
					StartLine: startLine(n), EndLine: endLine(n),
				})
			}
		case "import_spec":
			path := nodeText(n.ChildByFieldName("path"), source)
			result.Imports = append(result.Imports, ast.ImportSpec{Module: trimQuotes(path)})
		}
	})
}

func extractPython(root *sitter.Node, source []byte, result *ast.ParseResult) {
	walk(root, func(n *sitter.Node) {
		switch n.Type() {
		case "function_definition":
			name := nodeText(n.ChildByFieldName("name"), source)
			parent := findParentOfKinds(n, source, map[string]bool{"class_definition": true})
			entType := ast.EntFunction
			if parent != "" {
				entType = ast.EntMethod
			}
			result.Entities = append(result.Entities, ast.CodeEntity{
				Type: entType, Name: name, Parent: parent,
				StartLine: startLine(n), EndLine: endLine(n),
			})
		case "class_definition":
			name := nodeText(n.ChildByFieldName("name"), source)
			result.Entities = append(result.Entities, ast.CodeEntity{
				Type: ast.EntClass, Name: name,
				StartLine: startLine(n), EndLine: endLine(n),
			})
		case "import_statement", "import_from_statement":
			var names []string
			for i := 0; i < int(n.ChildCount()); i++ {
				child := n.Child(i)
				if child.Type() == "dotted_name" || child.Type() == "identifier" {
					names = append(names, nodeText(child, source))
				}
			}
			if len(names) > 0 {
				result.Imports = append(result.Imports, ast.ImportSpec{Module: names[0], Names: names[1:]})
			}
		}
	})
}

func extractJavaScriptLike(root *sitter.Node, source []byte, result *ast.ParseResult) {
	classKinds := map[string]bool{"class_declaration": true, "class": true}

	walk(root, func(n *sitter.Node) {
		switch n.Type() {
		case "function_declaration", "function", "generator_function_declaration":
			name := nodeText(n.ChildByFieldName("name"), source)
			result.Entities = append(result.Entities, ast.CodeEntity{
				Type: ast.EntFunction, Name: name,
				StartLine: startLine(n), EndLine: endLine(n),
			})
		case "method_definition":
			name := nodeText(n.ChildByFieldName("name"), source)
			parent := findParentOfKinds(n, source, classKinds)
			result.Entities = append(result.Entities, ast.CodeEntity{
				Type: ast.EntMethod, Name: name, Parent: parent,
				StartLine: startLine(n), EndLine: endLine(n),
			})
		case "class_declaration", "interface_declaration":
			name := nodeText(n.ChildByFieldName("name"), source)
			result.Entities = append(result.Entities, ast.CodeEntity{
				Type: ast.EntClass, Name: name,
				StartLine: startLine(n), EndLine: endLine(n),
			})
		case "lexical_declaration", "variable_declaration":
			for i := 0; i < int(n.ChildCount()); i++ {
				child := n.Child(i)
				if child.Type() != "variable_declarator" {
					continue
				}
				nameNode := child.ChildByFieldName("name")
				valueNode := child.ChildByFieldName("value")
				if nameNode == nil {
					continue
				}
				entType := ast.EntVariable
				if valueNode != nil && (valueNode.Type() == "arrow_function" || valueNode.Type() == "function") {
					entType = ast.EntFunction
				}
				result.Entities = append(result.Entities, ast.CodeEntity{
					Type: entType, Name: nodeText(nameNode, source),
					StartLine: startLine(n), EndLine: endLine(n),
				})
			}
		case "import_statement":
			imp := parseJSImport(n, source)
			if imp != nil {
				result.Imports = append(result.Imports, *imp)
			}
		}
	})
}

func parseJSImport(n *sitter.Node, source []byte) *ast.ImportSpec {
	var module string
	var names []string
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		switch child.Type() {
		case "string":
			module = trimQuotes(nodeText(child, source))
		case "import_clause":
			walk(child, func(id *sitter.Node) {
				if id.Type() == "identifier" {
					names = append(names, nodeText(id, source))
				}
			})
		}
	}
	if module == "" {
		return nil
	}
	return &ast.ImportSpec{Module: module, Names: names}
}

func trimQuotes(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'' || s[0] == '`') {
		return s[1 : len(s)-1]
	}
	return s
}
