package main

import (
	"context"

	"github.com/sashabaranov/go-openai"

	"github.com/rpgraph/rpg/internal/ast"
	"github.com/rpgraph/rpg/internal/ast/treesitter"
	"github.com/rpgraph/rpg/internal/config"
	"github.com/rpgraph/rpg/internal/embedsvc"
	"github.com/rpgraph/rpg/internal/feature"
	"github.com/rpgraph/rpg/internal/graphstore"
	"github.com/rpgraph/rpg/internal/graphstore/boltstore"
	"github.com/rpgraph/rpg/internal/graphstore/memstore"
	"github.com/rpgraph/rpg/internal/graphstore/neo4jstore"
	"github.com/rpgraph/rpg/internal/llmclient"
)

// openStore constructs the configured graphstore backend. Callers must
// Close it when done.
func openStore(ctx context.Context, c *config.Config) (graphstore.Store, error) {
	switch c.Graph.Backend {
	case "bolt":
		return boltstore.Open(c.Graph.Path)
	case "neo4j":
		return neo4jstore.Open(ctx, c.Graph.Neo4jURI, c.Graph.Neo4jUser, c.Graph.Neo4jPassword, c.Graph.Neo4jDatabase)
	default:
		return memstore.New(), nil
	}
}

// openLLM constructs the LLM collaborator from provider credentials,
// returning a disabled client when none are configured.
func openLLM(ctx context.Context, c *config.Config) (llmclient.Service, error) {
	client, err := llmclient.New(ctx, llmclient.Config{
		OpenAIAPIKey:    c.Provider.OpenAIAPIKey,
		AnthropicAPIKey: c.Provider.AnthropicAPIKey,
		GeminiAPIKey:    c.Provider.GeminiAPIKey,
		Model:           c.Provider.LLMModel,
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}

// openEmbedder constructs the embedding collaborator. When OpenAIAPIKey
// is unset it returns an embedsvc.MockService, so router scoring and
// feature drift checks still run, on its deterministic hash-based
// vectors, and callers may use this even without credentials.
func openEmbedder(c *config.Config) embedsvc.Service {
	if c.Provider.OpenAIAPIKey == "" {
		return &embedsvc.MockService{Dim: c.Provider.EmbeddingDim}
	}
	return embedsvc.NewOpenAIService(c.Provider.OpenAIAPIKey, openai.EmbeddingModel(c.Provider.EmbeddingModel), c.Provider.EmbeddingDim)
}

func openASTProvider() ast.Provider {
	return treesitter.New()
}

func featureMode(c *config.Config) feature.Mode {
	if c.Feature.Mode == "llm" {
		return feature.ModeLLM
	}
	return feature.ModeHeuristic
}
