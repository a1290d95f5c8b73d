package evolution

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rpgraph/rpg/internal/config"
	"github.com/rpgraph/rpg/internal/diffparser"
	"github.com/rpgraph/rpg/internal/embedsvc"
	"github.com/rpgraph/rpg/internal/feature"
	"github.com/rpgraph/rpg/internal/graphmodel"
	"github.com/rpgraph/rpg/internal/graphstore"
	"github.com/rpgraph/rpg/internal/graphstore/memstore"
	"github.com/rpgraph/rpg/internal/router"
)

func newTestEngine(t *testing.T) (*Engine, graphstore.Store) {
	t.Helper()
	store := memstore.New()
	embedSvc := &embedsvc.MockService{Dim: 16}
	r := router.New(store, embedSvc, nil, config.RouterConfig{TopK: 5, SimilarityMargin: 0.05})
	extractor := feature.New(feature.ModeHeuristic, nil)
	return New(store, r, extractor, embedSvc, config.RouterConfig{DriftThreshold: 0.35}, ""), store
}

func TestDelete_NonExistentIsNoop(t *testing.T) {
	e, _ := newTestEngine(t)
	pruned, err := e.Delete(context.Background(), "does/not/exist:function:foo")
	require.NoError(t, err)
	require.Equal(t, 0, pruned)
}

func TestInsert_CreatesDirectoryChain(t *testing.T) {
	e, store := newTestEngine(t)
	ctx := context.Background()

	ce := diffparser.ChangedEntity{
		ID:            graphmodel.EntityNodeID("src/utils/helper.go", graphmodel.EntityFunction, "Format"),
		FilePath:      "src/utils/helper.go",
		EntityType:    graphmodel.EntityFunction,
		EntityName:    "Format",
		QualifiedName: "Format",
		StartLine:     3,
		EndLine:       6,
	}
	require.NoError(t, e.Insert(ctx, ce))

	has, err := store.HasNode(ctx, ce.ID)
	require.NoError(t, err)
	require.True(t, has)

	has, err = store.HasNode(ctx, graphmodel.DirNodeID("src"))
	require.NoError(t, err)
	require.True(t, has)
	has, err = store.HasNode(ctx, graphmodel.DirNodeID("src/utils"))
	require.NoError(t, err)
	require.True(t, has)

	parents, err := store.GetNeighbors(ctx, ce.ID, graphstore.DirIn, nil)
	require.NoError(t, err)
	require.Len(t, parents, 1)
	require.Equal(t, graphmodel.DirNodeID("src/utils"), parents[0].ID)
}

func TestDeleteAncestorPruning(t *testing.T) {
	e, store := newTestEngine(t)
	ctx := context.Background()

	helper := diffparser.ChangedEntity{
		ID: graphmodel.EntityNodeID("src/utils.go", graphmodel.EntityFunction, "helper"),
		FilePath: "src/utils.go", EntityType: graphmodel.EntityFunction, EntityName: "helper",
	}
	format := diffparser.ChangedEntity{
		ID: graphmodel.EntityNodeID("src/utils.go", graphmodel.EntityFunction, "format"),
		FilePath: "src/utils.go", EntityType: graphmodel.EntityFunction, EntityName: "format",
	}
	mainFn := diffparser.ChangedEntity{
		ID: graphmodel.EntityNodeID("src/main.go", graphmodel.EntityFunction, "main"),
		FilePath: "src/main.go", EntityType: graphmodel.EntityFunction, EntityName: "main",
	}
	require.NoError(t, e.Insert(ctx, helper))
	require.NoError(t, e.Insert(ctx, format))
	require.NoError(t, e.Insert(ctx, mainFn))

	// Insert attaches all three functions directly under dir:src; deleting
	// one of them leaves dir:src present.
	_, err := e.Delete(ctx, helper.ID)
	require.NoError(t, err)
	has, err := store.HasNode(ctx, graphmodel.DirNodeID("src"))
	require.NoError(t, err)
	require.True(t, has)

	// Deleting the second still leaves dir:src present, because main is
	// still a child of it.
	_, err = e.Delete(ctx, format.ID)
	require.NoError(t, err)
	has, err = store.HasNode(ctx, graphmodel.DirNodeID("src"))
	require.NoError(t, err)
	require.True(t, has)

	_, err = e.Delete(ctx, mainFn.ID)
	require.NoError(t, err)
	has, err = store.HasNode(ctx, graphmodel.DirNodeID("src"))
	require.NoError(t, err)
	require.False(t, has)
}

func TestModify_LowDrift_PreservesParent(t *testing.T) {
	e, store := newTestEngine(t)
	ctx := context.Background()

	ce := diffparser.ChangedEntity{
		ID: graphmodel.EntityNodeID("src/math.go", graphmodel.EntityFunction, "add"),
		FilePath: "src/math.go", EntityType: graphmodel.EntityFunction, EntityName: "add",
		SourceCode: "func add(a, b int) int { return a + b }",
	}
	require.NoError(t, e.Insert(ctx, ce))
	before, err := e.functionalParent(ctx, ce.ID)
	require.NoError(t, err)

	updated := ce
	updated.SourceCode = "func add(a, b int) int { return a + b + 0 }"
	rerouted, err := e.Modify(ctx, ce, updated)
	require.NoError(t, err)
	require.False(t, rerouted)

	after, err := e.functionalParent(ctx, ce.ID)
	require.NoError(t, err)
	require.Equal(t, before, after)

	node, ok, err := store.GetNode(ctx, ce.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotEmpty(t, node.LowLevel.SourceHash)
}

func TestModify_AbsentOldTreatedAsInsert(t *testing.T) {
	e, store := newTestEngine(t)
	ctx := context.Background()

	ce := diffparser.ChangedEntity{
		ID: graphmodel.EntityNodeID("src/new.go", graphmodel.EntityFunction, "brandNew"),
		FilePath: "src/new.go", EntityType: graphmodel.EntityFunction, EntityName: "brandNew",
	}
	rerouted, err := e.Modify(ctx, ce, ce)
	require.NoError(t, err)
	require.False(t, rerouted)

	has, err := store.HasNode(ctx, ce.ID)
	require.NoError(t, err)
	require.True(t, has)
}

func TestApply_OrdersDeletesAndModifiesBeforeInserts(t *testing.T) {
	e, store := newTestEngine(t)
	ctx := context.Background()

	existing := diffparser.ChangedEntity{
		ID: graphmodel.EntityNodeID("src/old.go", graphmodel.EntityFunction, "gone"),
		FilePath: "src/old.go", EntityType: graphmodel.EntityFunction, EntityName: "gone",
	}
	require.NoError(t, e.Insert(ctx, existing))

	diff := &diffparser.Diff{
		Deletions: []diffparser.ChangedEntity{existing},
		Insertions: []diffparser.ChangedEntity{{
			ID: graphmodel.EntityNodeID("src/new.go", graphmodel.EntityFunction, "added"),
			FilePath: "src/new.go", EntityType: graphmodel.EntityFunction, EntityName: "added",
		}},
	}
	report, err := e.Apply(ctx, diff, "deadbeef")
	require.NoError(t, err)
	require.Len(t, report.Deleted, 1)
	require.Len(t, report.Inserted, 1)
	require.Empty(t, report.Errors)

	has, err := store.HasNode(ctx, existing.ID)
	require.NoError(t, err)
	require.False(t, has)
}

func TestResolveID_LegacyLineSuffixMatch(t *testing.T) {
	e, store := newTestEngine(t)
	ctx := context.Background()

	legacyID := graphmodel.EntityNodeIDWithLine("src/legacy.go", graphmodel.EntityFunction, "run", 12)
	node := graphmodel.NewLowLevel(legacyID, graphmodel.EntityFunction, "src/legacy.go", 12, 20, graphmodel.Feature{Description: "run"})
	require.NoError(t, store.AddNode(ctx, graphmodel.NewHighLevel(graphmodel.DirNodeID("src"), "src", "src", graphmodel.Feature{})))
	require.NoError(t, store.AddNode(ctx, node))
	require.NoError(t, store.AddEdge(ctx, graphmodel.NewFunctional(graphmodel.DirNodeID("src"), legacyID, 0)))

	lineFreeID := graphmodel.EntityNodeID("src/legacy.go", graphmodel.EntityFunction, "run")
	resolved := e.resolveID(ctx, diffparser.ChangedEntity{
		ID: lineFreeID, FilePath: "src/legacy.go", EntityType: graphmodel.EntityFunction, EntityName: "run",
	})
	require.Equal(t, legacyID, resolved)
}
