// Package embedsvc provides the "embed(text) -> vector" collaborator
// interface described in §6.5. It is new relative to the teacher (whose
// LLM client only ever produced text, never vectors) but follows the
// same provider-selection shape as internal/llmclient: a single
// interface, one concrete OpenAI-backed implementation, and a mock for
// tests.
package embedsvc

import (
	"context"

	"github.com/sashabaranov/go-openai"

	"github.com/rpgraph/rpg/internal/rpgerrors"
)

// Service is the embedding collaborator interface consumed by
// internal/router and internal/evolution.
type Service interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// OpenAIService calls the OpenAI embeddings endpoint.
type OpenAIService struct {
	client    *openai.Client
	model     openai.EmbeddingModel
	dimension int
}

// NewOpenAIService constructs a Service backed by the given API key and
// model. dimension must match the model's native output size (1536 for
// text-embedding-3-small, 3072 for text-embedding-3-large).
func NewOpenAIService(apiKey string, model openai.EmbeddingModel, dimension int) *OpenAIService {
	return &OpenAIService{client: openai.NewClient(apiKey), model: model, dimension: dimension}
}

func (s *OpenAIService) Dimension() int { return s.dimension }

func (s *OpenAIService) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (s *OpenAIService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := s.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: texts,
		Model: s.model,
	})
	if err != nil {
		return nil, rpgerrors.Wrap(err, rpgerrors.ExternalFailure, "embedding request failed")
	}
	if len(resp.Data) != len(texts) {
		return nil, rpgerrors.Newf(rpgerrors.ExternalFailure, "embedding response had %d vectors for %d inputs", len(resp.Data), len(texts))
	}
	out := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		out[i] = d.Embedding
	}
	return out, nil
}

var _ Service = (*OpenAIService)(nil)

// MockService is a deterministic test double: it hashes the input text
// into a fixed-dimension vector so tests can exercise cosine-similarity
// logic without a network call.
type MockService struct {
	Dim int
}

func (m *MockService) Dimension() int {
	if m.Dim == 0 {
		return 8
	}
	return m.Dim
}

func (m *MockService) Embed(_ context.Context, text string) ([]float32, error) {
	return hashEmbed(text, m.Dimension()), nil
}

func (m *MockService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := m.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// hashEmbed derives a stable pseudo-embedding from text so that
// similar strings (sharing many characters) produce vectors with
// nonzero cosine similarity, without requiring network access in tests.
func hashEmbed(text string, dim int) []float32 {
	v := make([]float32, dim)
	for i, r := range text {
		v[i%dim] += float32(r%97) / 97.0
	}
	return v
}

var _ Service = (*MockService)(nil)
