package dataflow

import (
	"path"

	"github.com/rpgraph/rpg/internal/ast"
	"github.com/rpgraph/rpg/internal/graphmodel"
)

// candidateSuffixes lists the extension/index-file variants tried when
// resolving a relative import to a file on disk, per language. Mirrors
// spec.md §4.5's "{target}.ts, {target}.js, {target}/index.{ts,js}"
// example, extended to the other languages internal/ast supports.
var candidateSuffixes = map[ast.Language][]string{
	ast.LangTypeScript: {".ts", ".tsx", "/index.ts", "/index.tsx"},
	ast.LangJavaScript: {".js", ".jsx", ".mjs", "/index.js", "/index.jsx"},
	ast.LangPython:     {".py", "/__init__.py"},
	ast.LangGo:         {".go"},
}

// InterModule resolves relative-import edges: for each file's relative
// imports, find the target file among the given set and, for each
// imported name the target exposes at top level, emit a Dependency
// edge target -> importer.
func InterModule(files []File) []graphmodel.Edge {
	byPath := make(map[string]File, len(files))
	for _, f := range files {
		byPath[f.Path] = f
	}

	var edges []graphmodel.Edge
	for _, importer := range files {
		for _, imp := range importer.Imports {
			if !isRelativeImport(imp.Module) {
				continue
			}
			target, ok := resolveRelativeImport(importer, imp.Module, byPath)
			if !ok {
				continue
			}
			targetNames := topLevelNames(byPath[target])
			for _, name := range imp.Names {
				if _, exposed := targetNames[name]; exposed {
					edges = append(edges, *graphmodel.NewDependency(
						graphmodel.FileNodeID(target),
						graphmodel.FileNodeID(importer.Path),
						graphmodel.DepImport,
						name,
					))
				}
			}
		}
	}
	return edges
}

// resolveRelativeImport normalizes a relative module specifier against
// the importing file's directory and tries each of that language's
// candidate suffixes until one matches a known file.
func resolveRelativeImport(importer File, module string, byPath map[string]File) (string, bool) {
	dir := path.Dir(importer.Path)
	joined := path.Clean(path.Join(dir, module))

	suffixes := candidateSuffixes[importer.Lang]
	if len(suffixes) == 0 {
		suffixes = []string{""}
	}
	for _, suffix := range suffixes {
		candidate := joined + suffix
		if _, ok := byPath[candidate]; ok {
			return candidate, true
		}
	}
	// already has an extension the importer wrote explicitly
	if _, ok := byPath[joined]; ok {
		return joined, true
	}
	return "", false
}
