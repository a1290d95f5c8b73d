package embedsvc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpgraph/rpg/internal/embed"
)

func TestMockServiceDeterministic(t *testing.T) {
	m := &MockService{Dim: 16}
	ctx := context.Background()

	v1, err := m.Embed(ctx, "retrieve widget")
	require.NoError(t, err)
	v2, err := m.Embed(ctx, "retrieve widget")
	require.NoError(t, err)
	assert.Equal(t, v1, v2)
	assert.Len(t, v1, 16)
}

func TestMockServiceSimilarTextIsMoreSimilar(t *testing.T) {
	m := &MockService{Dim: 32}
	ctx := context.Background()

	a, _ := m.Embed(ctx, "retrieve widget by id")
	b, _ := m.Embed(ctx, "retrieve widget by name")
	c, _ := m.Embed(ctx, "delete all database records")

	simAB := embed.CosineSimilarity(a, b)
	simAC := embed.CosineSimilarity(a, c)
	assert.Greater(t, simAB, simAC)
}

func TestEmbedBatchMatchesIndividualEmbed(t *testing.T) {
	m := &MockService{Dim: 8}
	ctx := context.Background()

	texts := []string{"a", "b", "c"}
	batch, err := m.EmbedBatch(ctx, texts)
	require.NoError(t, err)
	require.Len(t, batch, 3)
	for i, text := range texts {
		single, err := m.Embed(ctx, text)
		require.NoError(t, err)
		assert.Equal(t, single, batch[i])
	}
}
