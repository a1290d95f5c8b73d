// Package dataflow derives Dependency edges between entities from
// import statements and call expressions (spec.md §4.5). It never
// touches the graph store directly; internal/encoder wires its output
// Edges into the store after the initial graph assembly pass.
package dataflow

import (
	"strings"

	"github.com/rpgraph/rpg/internal/ast"
	"github.com/rpgraph/rpg/internal/graphmodel"
)

// File is one parsed source file, in the shape internal/encoder
// assembles from an ast.Provider's ParseResult plus the raw source
// bytes needed for intra-module call-site scanning.
type File struct {
	Path     string
	Lang     ast.Language
	Source   []byte
	Entities []ast.CodeEntity
	Imports  []ast.ImportSpec
}

// DetectAll runs both the inter-module and intra-module passes over a
// repository's parsed files and returns the union of resulting edges,
// per spec.md §4.5's detect_all = inter_module ⊎ intra_module.
func DetectAll(files []File) []graphmodel.Edge {
	edges := InterModule(files)
	edges = append(edges, IntraModule(files)...)
	return edges
}

func entityGraphmodelType(t ast.EntityType) (graphmodel.EntityType, bool) {
	switch t {
	case ast.EntFunction:
		return graphmodel.EntityFunction, true
	case ast.EntMethod:
		return graphmodel.EntityMethod, true
	case ast.EntClass:
		return graphmodel.EntityClass, true
	case ast.EntVariable:
		return graphmodel.EntityVariable, true
	default:
		return "", false
	}
}

// entityID derives a LowLevel node id for an entity within a file,
// matching the line-suffixed id grammar the initial encoder emits
// (graphmodel.EntityNodeIDWithLine, per spec.md §6.1) since
// internal/encoder is dataflow's only caller and its node ids always
// carry the start-line suffix.
func entityID(path string, e ast.CodeEntity) (string, bool) {
	entType, ok := entityGraphmodelType(e.Type)
	if !ok {
		return "", false
	}
	qualified := e.Name
	if e.Parent != "" {
		qualified = graphmodel.QualifiedName(e.Parent, e.Name)
	}
	return graphmodel.EntityNodeIDWithLine(path, entType, qualified, e.StartLine), true
}

// topLevelNames returns the set of entity names in a file that have no
// enclosing parent, i.e. candidates for being imported by name.
func topLevelNames(f File) map[string]ast.CodeEntity {
	names := make(map[string]ast.CodeEntity)
	for _, e := range f.Entities {
		if e.Parent == "" {
			names[e.Name] = e
		}
	}
	return names
}

func isRelativeImport(module string) bool {
	return strings.HasPrefix(module, "./") || strings.HasPrefix(module, "../")
}
