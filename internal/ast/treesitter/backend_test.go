package treesitter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpgraph/rpg/internal/ast"
)

func TestBackendIsSupported(t *testing.T) {
	b := New()
	assert.True(t, b.IsSupported(ast.LangGo))
	assert.True(t, b.IsSupported(ast.LangPython))
	assert.True(t, b.IsSupported(ast.LangJavaScript))
	assert.True(t, b.IsSupported(ast.LangTypeScript))
	assert.False(t, b.IsSupported(ast.LangRust))
}

func TestParseGoExtractsFunctionsAndMethods(t *testing.T) {
	b := New()
	src := []byte(`package sample

func Add(a, b int) int {
	return a + b
}

type Widget struct{}

func (w *Widget) Name() string {
	return "widget"
}
`)
	result, err := b.Parse(src, ast.LangGo)
	require.NoError(t, err)
	require.Empty(t, result.Errors)

	var gotFunc, gotMethod, gotClass bool
	for _, e := range result.Entities {
		switch {
		case e.Type == ast.EntFunction && e.Name == "Add":
			gotFunc = true
		case e.Type == ast.EntMethod && e.Name == "Name":
			gotMethod = true
		case e.Type == ast.EntClass && e.Name == "Widget":
			gotClass = true
		}
	}
	assert.True(t, gotFunc, "expected Add function entity")
	assert.True(t, gotMethod, "expected Name method entity")
	assert.True(t, gotClass, "expected Widget class entity")
}

func TestParseJavaScriptImports(t *testing.T) {
	b := New()
	src := []byte(`import { format, validate } from "./util";

function auth() {
  return format(validate());
}
`)
	result, err := b.Parse(src, ast.LangJavaScript)
	require.NoError(t, err)
	require.Len(t, result.Imports, 1)
	assert.Equal(t, "./util", result.Imports[0].Module)
	assert.Contains(t, result.Imports[0].Names, "format")
	assert.Contains(t, result.Imports[0].Names, "validate")
}

func TestParseUnsupportedLanguageErrors(t *testing.T) {
	b := New()
	_, err := b.Parse([]byte("fn main() {}"), ast.LangRust)
	assert.Error(t, err)
}
