// Package llmclient provides the "complete"/"complete_json" collaborator
// service described in §6.5, unifying OpenAI, Anthropic, and Gemini
// behind one interface. Adapted from the teacher's internal/llm.Client
// provider-selection and fallback-on-error pattern, extended with the
// Gemini path the teacher also carried in internal/llm/gemini_client.go.
package llmclient

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sashabaranov/go-openai"
	"google.golang.org/genai"

	"github.com/rpgraph/rpg/internal/rpgerrors"
)

// Provider identifies which backend a Service is configured against.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderGemini    Provider = "gemini"
	ProviderNone      Provider = "none"
)

// Service is the LLM collaborator interface consumed by internal/feature
// (heuristic fallback) and internal/router (tie-break).
type Service interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	Enabled() bool
}

// Client is the concrete Service backed by whichever provider has
// credentials configured. Exactly one of its provider-specific client
// fields is set.
type Client struct {
	provider Provider
	openai   *openai.Client
	anthropic *anthropic.Client
	gemini   *genai.Client
	model    string
	logger   *slog.Logger
	enabled  bool
}

// Config configures which provider to prefer and which model to use.
// An empty APIKey for a provider means "not configured"; New tries
// providers in the order OpenAI, Anthropic, Gemini and uses the first
// one with a key present.
type Config struct {
	OpenAIAPIKey    string
	AnthropicAPIKey string
	GeminiAPIKey    string
	Model           string
}

// New constructs a Client from explicit config (preferred over reading
// the environment directly, so callers can wire internal/config's
// credential manager in).
func New(ctx context.Context, cfg Config) (*Client, error) {
	logger := slog.Default().With("component", "llmclient")

	if cfg.OpenAIAPIKey != "" {
		logger.Info("llmclient: openai configured")
		return &Client{provider: ProviderOpenAI, openai: openai.NewClient(cfg.OpenAIAPIKey), model: firstNonEmpty(cfg.Model, openai.GPT4oMini), logger: logger, enabled: true}, nil
	}
	if cfg.AnthropicAPIKey != "" {
		c := anthropic.NewClient(option.WithAPIKey(cfg.AnthropicAPIKey))
		logger.Info("llmclient: anthropic configured")
		return &Client{provider: ProviderAnthropic, anthropic: &c, model: firstNonEmpty(cfg.Model, "claude-3-5-haiku-latest"), logger: logger, enabled: true}, nil
	}
	if cfg.GeminiAPIKey != "" {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.GeminiAPIKey, Backend: genai.BackendGeminiAPI})
		if err != nil {
			return nil, rpgerrors.Wrap(err, rpgerrors.ExternalFailure, "create gemini client")
		}
		logger.Info("llmclient: gemini configured")
		return &Client{provider: ProviderGemini, gemini: client, model: firstNonEmpty(cfg.Model, "gemini-2.0-flash"), logger: logger, enabled: true}, nil
	}

	logger.Warn("llmclient: no provider configured, LLM-assisted features disabled")
	return &Client{provider: ProviderNone, logger: logger, enabled: false}, nil
}

// NewFromEnvironment reads OPENAI_API_KEY / ANTHROPIC_API_KEY /
// GEMINI_API_KEY, matching the teacher's environment-first credential
// lookup for local/CI use.
func NewFromEnvironment(ctx context.Context, model string) (*Client, error) {
	return New(ctx, Config{
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		Model:           model,
	})
}

func (c *Client) Enabled() bool  { return c.enabled }
func (c *Client) Provider() Provider { return c.provider }

// Complete sends a prompt and returns the raw text response.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if !c.enabled {
		return "", rpgerrors.New(rpgerrors.ExternalFailure, "llmclient: no provider configured")
	}
	switch c.provider {
	case ProviderOpenAI:
		return c.completeOpenAI(ctx, systemPrompt, userPrompt)
	case ProviderAnthropic:
		return c.completeAnthropic(ctx, systemPrompt, userPrompt)
	case ProviderGemini:
		return c.completeGemini(ctx, systemPrompt, userPrompt)
	default:
		return "", rpgerrors.New(rpgerrors.ExternalFailure, "llmclient: no provider configured")
	}
}

// CompleteJSON sends a prompt with an instruction to respond with JSON
// only; the caller is responsible for unmarshaling the result into its
// expected schema (feature {description,keywords} or router
// {selected_id,confidence}).
func (c *Client) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	jsonSystemPrompt := systemPrompt + "\n\nRespond with a single JSON object and nothing else."
	return c.Complete(ctx, jsonSystemPrompt, userPrompt)
}

func (c *Client) completeOpenAI(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := c.openai.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		Temperature: 0.0,
		MaxTokens:   500,
	})
	if err != nil {
		return "", rpgerrors.Wrap(err, rpgerrors.ExternalFailure, "openai completion failed")
	}
	if len(resp.Choices) == 0 {
		return "", rpgerrors.New(rpgerrors.ExternalFailure, "openai returned no choices")
	}
	content := resp.Choices[0].Message.Content
	c.logger.Debug("openai completion", "prompt_len", len(userPrompt), "response_len", len(content), "tokens", resp.Usage.TotalTokens)
	return content, nil
}

func (c *Client) completeAnthropic(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	msg, err := c.anthropic.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: 500,
		System:    []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		return "", rpgerrors.Wrap(err, rpgerrors.ExternalFailure, "anthropic completion failed")
	}
	if len(msg.Content) == 0 {
		return "", rpgerrors.New(rpgerrors.ExternalFailure, "anthropic returned no content blocks")
	}
	return msg.Content[0].Text, nil
}

func (c *Client) completeGemini(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	var systemInstruction *genai.Content
	if systemPrompt != "" {
		systemInstruction = genai.Text(systemPrompt)[0]
	}
	temp := float32(0.1)
	cfg := &genai.GenerateContentConfig{SystemInstruction: systemInstruction, Temperature: &temp, MaxOutputTokens: 1000}

	resp, err := c.gemini.Models.GenerateContent(ctx, c.model, genai.Text(userPrompt), cfg)
	if err != nil {
		return "", rpgerrors.Wrap(err, rpgerrors.ExternalFailure, "gemini completion failed")
	}
	if len(resp.Candidates) == 0 {
		return "", rpgerrors.New(rpgerrors.ExternalFailure, "gemini returned no candidates")
	}
	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		text += part.Text
	}
	return text, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

var _ Service = (*Client)(nil)

// MockService is a test double satisfying Service without network
// calls; feature tests use it to exercise the LLM-mode path
// deterministically.
type MockService struct {
	CompleteFn     func(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	CompleteJSONFn func(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	IsEnabled      bool
}

func (m *MockService) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if m.CompleteFn != nil {
		return m.CompleteFn(ctx, systemPrompt, userPrompt)
	}
	return "", fmt.Errorf("MockService.CompleteFn not set")
}

func (m *MockService) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if m.CompleteJSONFn != nil {
		return m.CompleteJSONFn(ctx, systemPrompt, userPrompt)
	}
	if m.CompleteFn != nil {
		return m.CompleteFn(ctx, systemPrompt, userPrompt)
	}
	return "", fmt.Errorf("MockService.CompleteJSONFn not set")
}

func (m *MockService) Enabled() bool { return m.IsEnabled }

var _ Service = (*MockService)(nil)
