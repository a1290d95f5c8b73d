// Package treesitter implements ast.Provider on top of
// github.com/smacker/go-tree-sitter. It is the only package that
// imports the grammar bindings; callers depend on ast.Provider.
package treesitter

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/rpgraph/rpg/internal/ast"
)

// Backend is the production ast.Provider, registering grammars for Go,
// Python, JavaScript, and TypeScript.
type Backend struct {
	grammars map[ast.Language]*sitter.Language
}

// New constructs a Backend with every supported grammar registered.
func New() *Backend {
	return &Backend{
		grammars: map[ast.Language]*sitter.Language{
			ast.LangGo:         golang.GetLanguage(),
			ast.LangPython:     python.GetLanguage(),
			ast.LangJavaScript: javascript.GetLanguage(),
			ast.LangTypeScript: typescript.GetLanguage(),
		},
	}
}

func (b *Backend) DetectLanguage(path string) ast.Language {
	return ast.DetectLanguageByExtension(path)
}

func (b *Backend) IsSupported(lang ast.Language) bool {
	_, ok := b.grammars[lang]
	return ok
}

// Parse parses source with the grammar for lang. Syntactic errors never
// produce a Go error; they're recorded as entries in the result's
// Errors slice, matching the "parsing never throws" contract in §4.3.
func (b *Backend) Parse(source []byte, lang ast.Language) (*ast.ParseResult, error) {
	grammar, ok := b.grammars[lang]
	if !ok {
		return nil, fmt.Errorf("treesitter: unsupported language %q", lang)
	}

	parser := sitter.NewParser()
	parser.SetLanguage(grammar)

	tree, err := parser.ParseCtx(context.Background(), nil, source)
	if err != nil {
		return nil, fmt.Errorf("treesitter: parse failed: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	result := &ast.ParseResult{}

	extractor, ok := extractors[lang]
	if !ok {
		return nil, fmt.Errorf("treesitter: no extractor registered for %q", lang)
	}
	extractor(root, source, result)

	if root.HasError() {
		result.Errors = append(result.Errors, fmt.Sprintf("%s: syntax error in parsed tree", lang))
	}

	return result, nil
}

var _ ast.Provider = (*Backend)(nil)
