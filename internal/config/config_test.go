package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "development", cfg.Mode)
	assert.Equal(t, "memory", cfg.Graph.Backend)
	assert.Equal(t, 0.35, cfg.Router.DriftThreshold)
	assert.Equal(t, 0.05, cfg.Router.SimilarityMargin)
	assert.Equal(t, 5, cfg.Router.TopK)
	assert.True(t, cfg.Router.UseLLMTieBreak)
	assert.Equal(t, "heuristic", cfg.Feature.Mode)
	assert.Equal(t, "text-embedding-3-small", cfg.Provider.EmbeddingModel)
	assert.Equal(t, 1536, cfg.Provider.EmbeddingDim)
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	os.Setenv("RPG_MODE", "ci")
	os.Setenv("RPG_GRAPH_BACKEND", "bolt")
	os.Setenv("RPG_GRAPH_PATH", "/tmp/rpg-test/graph.db")
	os.Setenv("RPG_FEATURE_MODE", "llm")
	os.Setenv("RPG_ROUTER_DRIFT_THRESHOLD", "0.5")
	os.Setenv("RPG_ROUTER_SIMILARITY_MARGIN", "0.1")
	defer func() {
		os.Unsetenv("RPG_MODE")
		os.Unsetenv("RPG_GRAPH_BACKEND")
		os.Unsetenv("RPG_GRAPH_PATH")
		os.Unsetenv("RPG_FEATURE_MODE")
		os.Unsetenv("RPG_ROUTER_DRIFT_THRESHOLD")
		os.Unsetenv("RPG_ROUTER_SIMILARITY_MARGIN")
	}()

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "ci", cfg.Mode)
	assert.Equal(t, "bolt", cfg.Graph.Backend)
	assert.Equal(t, "/tmp/rpg-test/graph.db", cfg.Graph.Path)
	assert.Equal(t, "llm", cfg.Feature.Mode)
	assert.Equal(t, 0.5, cfg.Router.DriftThreshold)
	assert.Equal(t, 0.1, cfg.Router.SimilarityMargin)
}

func TestLoadFromExplicitFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mode: packaged\nrouter:\n  top_k: 10\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "packaged", cfg.Mode)
	assert.Equal(t, 10, cfg.Router.TopK)
}

func TestSaveAndReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg := Default()
	cfg.Router.TopK = 7
	require.NoError(t, cfg.Save(path))

	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, reloaded.Router.TopK)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "rpg", "config.yaml"), expandPath("~/rpg/config.yaml"))
	assert.Equal(t, "/abs/path", expandPath("/abs/path"))
	assert.Equal(t, "", expandPath(""))
}
