package dataflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpgraph/rpg/internal/ast"
	"github.com/rpgraph/rpg/internal/graphmodel"
)

func TestIntraModuleDetectsParameterForwarding(t *testing.T) {
	source := []byte(`package sample

func auth(token string) bool {
	return validate(token)
}

func validate(t string) bool {
	return len(t) > 0
}
`)
	entities := []ast.CodeEntity{
		{Type: ast.EntFunction, Name: "auth", Parameters: []string{"token"}, StartLine: 3, EndLine: 5},
		{Type: ast.EntFunction, Name: "validate", Parameters: []string{"t"}, StartLine: 7, EndLine: 9},
	}
	files := []File{{Path: "auth.go", Lang: ast.LangGo, Source: source, Entities: entities}}

	edges := IntraModule(files)
	require.Len(t, edges, 1)
	assert.Equal(t, graphmodel.DepCall, edges[0].Dependency.DepType)
	assert.Equal(t, "token", edges[0].Dependency.Symbol)

	callerID, _ := entityID("auth.go", entities[0])
	calleeID, _ := entityID("auth.go", entities[1])
	assert.Equal(t, callerID, edges[0].Source)
	assert.Equal(t, calleeID, edges[0].Target)
}

func TestIntraModuleIgnoresCallsWithNoParameterArgument(t *testing.T) {
	source := []byte(`package sample

func auth(token string) bool {
	return validate("literal")
}

func validate(t string) bool {
	return len(t) > 0
}
`)
	entities := []ast.CodeEntity{
		{Type: ast.EntFunction, Name: "auth", Parameters: []string{"token"}, StartLine: 3, EndLine: 5},
		{Type: ast.EntFunction, Name: "validate", Parameters: []string{"t"}, StartLine: 7, EndLine: 9},
	}
	files := []File{{Path: "auth.go", Lang: ast.LangGo, Source: source, Entities: entities}}

	assert.Empty(t, IntraModule(files))
}

func TestIntraModuleSkipsFunctionsWithNoParameters(t *testing.T) {
	source := []byte(`package sample

func run() bool {
	return validate()
}

func validate() bool {
	return true
}
`)
	entities := []ast.CodeEntity{
		{Type: ast.EntFunction, Name: "run", StartLine: 3, EndLine: 5},
		{Type: ast.EntFunction, Name: "validate", StartLine: 7, EndLine: 9},
	}
	files := []File{{Path: "run.go", Lang: ast.LangGo, Source: source, Entities: entities}}

	assert.Empty(t, IntraModule(files))
}
