package router

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rpgraph/rpg/internal/config"
	"github.com/rpgraph/rpg/internal/embedsvc"
	"github.com/rpgraph/rpg/internal/graphmodel"
	"github.com/rpgraph/rpg/internal/graphstore/memstore"
)

func mustAddHighLevel(t *testing.T, store *memstore.Store, id, dir string, feature graphmodel.Feature) {
	t.Helper()
	require.NoError(t, store.AddNode(context.Background(), graphmodel.NewHighLevel(id, dir, dir, feature)))
}

func TestRoute_PicksHighestScoringCandidate(t *testing.T) {
	store := memstore.New()
	mustAddHighLevel(t, store, "dir:src/auth", "src/auth", graphmodel.Feature{
		Description: "authentication login session token", Keywords: []string{"auth", "login", "session", "token"},
	})
	mustAddHighLevel(t, store, "dir:src/billing", "src/billing", graphmodel.Feature{
		Description: "billing invoice payment charge", Keywords: []string{"billing", "invoice", "payment", "charge"},
	})

	r := New(store, &embedsvc.MockService{Dim: 32}, nil, config.RouterConfig{TopK: 5, SimilarityMargin: 0.05})
	decision, err := r.Route(context.Background(), graphmodel.Feature{
		Description: "authenticate", Keywords: []string{"auth", "login", "token"},
	}, "")
	require.NoError(t, err)
	require.Equal(t, "dir:src/auth", decision.ParentID)
}

func TestRoute_NoHighLevelNodes_ReturnsEmptyDecision(t *testing.T) {
	store := memstore.New()
	r := New(store, &embedsvc.MockService{Dim: 8}, nil, config.RouterConfig{})
	decision, err := r.Route(context.Background(), graphmodel.Feature{Description: "x"}, "")
	require.NoError(t, err)
	require.Equal(t, "", decision.ParentID)
}

func TestRoute_ScopeConstrainsToSubtree(t *testing.T) {
	store := memstore.New()
	mustAddHighLevel(t, store, "dir:src", "src", graphmodel.Feature{Description: "root", Keywords: []string{"root"}})
	mustAddHighLevel(t, store, "dir:src/auth", "src/auth", graphmodel.Feature{Description: "auth login", Keywords: []string{"auth", "login"}})
	mustAddHighLevel(t, store, "dir:other", "other", graphmodel.Feature{Description: "unrelated billing", Keywords: []string{"billing"}})
	require.NoError(t, store.AddEdge(context.Background(), graphmodel.NewFunctional("dir:src", "dir:src/auth", 0)))

	r := New(store, &embedsvc.MockService{Dim: 16}, nil, config.RouterConfig{TopK: 5})
	decision, err := r.Route(context.Background(), graphmodel.Feature{Description: "auth login", Keywords: []string{"auth", "login"}}, "dir:src")
	require.NoError(t, err)
	require.NotEqual(t, "dir:other", decision.ParentID)
}
