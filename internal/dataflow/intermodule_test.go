package dataflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpgraph/rpg/internal/ast"
	"github.com/rpgraph/rpg/internal/graphmodel"
)

func TestInterModuleResolvesRelativeImportToExtensionedFile(t *testing.T) {
	files := []File{
		{
			Path: "src/util.ts",
			Lang: ast.LangTypeScript,
			Entities: []ast.CodeEntity{
				{Type: ast.EntFunction, Name: "format"},
				{Type: ast.EntFunction, Name: "validate"},
			},
		},
		{
			Path: "src/auth.ts",
			Lang: ast.LangTypeScript,
			Imports: []ast.ImportSpec{
				{Module: "./util", Names: []string{"format", "validate"}},
			},
		},
	}

	edges := InterModule(files)
	require.Len(t, edges, 2)
	for _, e := range edges {
		assert.Equal(t, graphmodel.FileNodeID("src/util.ts"), e.Source)
		assert.Equal(t, graphmodel.FileNodeID("src/auth.ts"), e.Target)
		assert.Equal(t, graphmodel.DepImport, e.Dependency.DepType)
	}
}

func TestInterModuleResolvesIndexFile(t *testing.T) {
	files := []File{
		{
			Path: "src/widgets/index.ts",
			Lang: ast.LangTypeScript,
			Entities: []ast.CodeEntity{
				{Type: ast.EntClass, Name: "Widget"},
			},
		},
		{
			Path: "src/app.ts",
			Lang: ast.LangTypeScript,
			Imports: []ast.ImportSpec{
				{Module: "./widgets", Names: []string{"Widget"}},
			},
		},
	}

	edges := InterModule(files)
	require.Len(t, edges, 1)
	assert.Equal(t, graphmodel.FileNodeID("src/widgets/index.ts"), edges[0].Source)
}

func TestInterModuleSkipsExternalImports(t *testing.T) {
	files := []File{
		{
			Path: "src/app.ts",
			Lang: ast.LangTypeScript,
			Imports: []ast.ImportSpec{
				{Module: "react", Names: []string{"useState"}},
			},
		},
	}
	assert.Empty(t, InterModule(files))
}

func TestInterModuleSkipsUnresolvedImport(t *testing.T) {
	files := []File{
		{
			Path: "src/app.ts",
			Lang: ast.LangTypeScript,
			Imports: []ast.ImportSpec{
				{Module: "./missing", Names: []string{"gone"}},
			},
		},
	}
	assert.Empty(t, InterModule(files))
}

func TestInterModuleSkipsNameNotExportedByTarget(t *testing.T) {
	files := []File{
		{
			Path: "src/util.ts",
			Lang: ast.LangTypeScript,
			Entities: []ast.CodeEntity{
				{Type: ast.EntFunction, Name: "format"},
			},
		},
		{
			Path: "src/app.ts",
			Lang: ast.LangTypeScript,
			Imports: []ast.ImportSpec{
				{Module: "./util", Names: []string{"doesNotExist"}},
			},
		},
	}
	assert.Empty(t, InterModule(files))
}
