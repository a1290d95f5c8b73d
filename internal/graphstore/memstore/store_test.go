package memstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpgraph/rpg/internal/graphmodel"
	"github.com/rpgraph/rpg/internal/graphstore"
)

func newTree(t *testing.T) *Store {
	t.Helper()
	s := New()
	ctx := context.Background()
	require.NoError(t, s.AddNode(ctx, graphmodel.NewHighLevel("dir:src", "src", "src", graphmodel.Feature{})))
	require.NoError(t, s.AddNode(ctx, graphmodel.NewLowLevel("src/utils.go:file:src/utils.go", graphmodel.EntityFile, "src/utils.go", 0, 0, graphmodel.Feature{})))
	require.NoError(t, s.AddNode(ctx, graphmodel.NewLowLevel("src/utils.go:function:helper", graphmodel.EntityFunction, "src/utils.go", 1, 3, graphmodel.Feature{})))
	require.NoError(t, s.AddNode(ctx, graphmodel.NewLowLevel("src/utils.go:function:format", graphmodel.EntityFunction, "src/utils.go", 5, 7, graphmodel.Feature{})))
	require.NoError(t, s.AddEdge(ctx, graphmodel.NewFunctional("dir:src", "src/utils.go:file:src/utils.go", 0)))
	require.NoError(t, s.AddEdge(ctx, graphmodel.NewFunctional("src/utils.go:file:src/utils.go", "src/utils.go:function:helper", 0)))
	require.NoError(t, s.AddEdge(ctx, graphmodel.NewFunctional("src/utils.go:file:src/utils.go", "src/utils.go:function:format", 1)))
	return s
}

func TestAddNodeUpsertSemantics(t *testing.T) {
	ctx := context.Background()
	s := New()
	n := graphmodel.NewLowLevel("a:file:a", graphmodel.EntityFile, "a", 0, 0, graphmodel.Feature{Description: "v1"})
	require.NoError(t, s.AddNode(ctx, n))

	n2 := graphmodel.NewLowLevel("a:file:a", graphmodel.EntityFile, "a", 0, 0, graphmodel.Feature{Description: "v2"})
	require.NoError(t, s.AddNode(ctx, n2))

	got, ok, err := s.GetNode(ctx, "a:file:a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v2", got.Feature.Description)
}

func TestRemoveNodeCascadesEdges(t *testing.T) {
	ctx := context.Background()
	s := newTree(t)

	require.NoError(t, s.RemoveNode(ctx, "src/utils.go:file:src/utils.go"))

	bySource, err := s.GetEdges(ctx, graphstore.EdgeFilter{Source: "src/utils.go:file:src/utils.go"})
	require.NoError(t, err)
	assert.Empty(t, bySource)

	byTarget, err := s.GetEdges(ctx, graphstore.EdgeFilter{Target: "src/utils.go:file:src/utils.go"})
	require.NoError(t, err)
	assert.Empty(t, byTarget)

	// Children's edges to the now-gone file node must also be gone.
	childEdges, err := s.GetEdges(ctx, graphstore.EdgeFilter{Target: "src/utils.go:function:helper"})
	require.NoError(t, err)
	assert.Empty(t, childEdges)
}

func TestRemoveNonexistentNodeIsIdempotent(t *testing.T) {
	s := New()
	assert.NoError(t, s.RemoveNode(context.Background(), "does-not-exist"))
}

func TestAddEdgeRejectsUnknownEndpoints(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.AddNode(ctx, graphmodel.NewHighLevel("dir:src", "src", "src", graphmodel.Feature{})))

	err := s.AddEdge(ctx, graphmodel.NewFunctional("dir:src", "missing", 0))
	require.Error(t, err)
}

func TestTraverseVisitsEveryReachableNodeOnce(t *testing.T) {
	ctx := context.Background()
	s := newTree(t)

	kind := graphmodel.EdgeFunctional
	result, err := s.Traverse(ctx, "dir:src", graphstore.TraverseOptions{Direction: graphstore.DirOut, EdgeKind: &kind})
	require.NoError(t, err)
	assert.Len(t, result.Nodes, 3)
	assert.Equal(t, 2, result.MaxDepth)
}

func TestTraverseTerminatesOnCycle(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.AddNode(ctx, graphmodel.NewLowLevel("a:file:a", graphmodel.EntityFile, "a", 0, 0, graphmodel.Feature{})))
	require.NoError(t, s.AddNode(ctx, graphmodel.NewLowLevel("b:file:b", graphmodel.EntityFile, "b", 0, 0, graphmodel.Feature{})))
	require.NoError(t, s.AddEdge(ctx, graphmodel.NewDependency("a:file:a", "b:file:b", graphmodel.DepCall, "")))
	require.NoError(t, s.AddEdge(ctx, graphmodel.NewDependency("b:file:b", "a:file:a", graphmodel.DepCall, "")))

	result, err := s.Traverse(ctx, "a:file:a", graphstore.TraverseOptions{Direction: graphstore.DirOut})
	require.NoError(t, err)
	assert.Len(t, result.Nodes, 1)
}

func TestSubgraphInducedEdges(t *testing.T) {
	ctx := context.Background()
	s := newTree(t)

	sub, err := s.Subgraph(ctx, []string{"dir:src", "src/utils.go:file:src/utils.go"})
	require.NoError(t, err)
	assert.Len(t, sub.Nodes, 2)
	assert.Len(t, sub.Edges, 1)
}

func TestExportImportRoundTripStableOrder(t *testing.T) {
	ctx := context.Background()
	s := newTree(t)

	exported, err := s.Export(ctx)
	require.NoError(t, err)
	for i := 1; i < len(exported.Nodes); i++ {
		assert.True(t, exported.Nodes[i-1].ID < exported.Nodes[i].ID)
	}
	for i := 1; i < len(exported.Edges); i++ {
		assert.True(t, exported.Edges[i-1].Less(exported.Edges[i]))
	}

	s2 := New()
	require.NoError(t, s2.Import(ctx, exported))
	reExported, err := s2.Export(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(exported.Nodes), len(reExported.Nodes))
	assert.Equal(t, len(exported.Edges), len(reExported.Edges))
}

func TestFilterOnUnknownIDsReturnsEmptyNotError(t *testing.T) {
	ctx := context.Background()
	s := New()
	edges, err := s.GetEdges(ctx, graphstore.EdgeFilter{Source: "nope"})
	require.NoError(t, err)
	assert.Empty(t, edges)

	neighbors, err := s.GetNeighbors(ctx, "nope", graphstore.DirBoth, nil)
	require.NoError(t, err)
	assert.Empty(t, neighbors)
}
