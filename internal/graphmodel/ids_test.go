package graphmodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNodeIDFormats(t *testing.T) {
	assert.Equal(t, "src/a.go:file:src/a.go", FileNodeID("src/a.go"))
	assert.Equal(t, "src/a.go:function:doThing", EntityNodeID("src/a.go", EntityFunction, "doThing"))
	assert.Equal(t, "src/a.go:function:doThing:42", EntityNodeIDWithLine("src/a.go", EntityFunction, "doThing", 42))
	assert.Equal(t, "dir:src/pkg", DirNodeID("src/pkg"))
}

func TestQualifiedName(t *testing.T) {
	assert.Equal(t, "name", QualifiedName("", "name"))
	assert.Equal(t, "Parent.child", QualifiedName("Parent", "child"))
}

func TestStripLineSuffix(t *testing.T) {
	assert.Equal(t, "src/a.go:function:doThing", StripLineSuffix("src/a.go:function:doThing:42"))
	assert.Equal(t, "src/a.go:function:doThing", StripLineSuffix("src/a.go:function:doThing"))
	assert.Equal(t, "dir:src", StripLineSuffix("dir:src"))
}

func TestParseEntityID(t *testing.T) {
	path, entityType, ok := ParseEntityID("src/a.go:function:doThing:42")
	assert.True(t, ok)
	assert.Equal(t, "src/a.go", path)
	assert.Equal(t, "function", entityType)

	_, _, ok = ParseEntityID("dir:src")
	assert.False(t, ok)
}
