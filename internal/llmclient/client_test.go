package llmclient

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithNoKeysIsDisabled(t *testing.T) {
	c, err := New(context.Background(), Config{})
	require.NoError(t, err)
	assert.False(t, c.Enabled())
	assert.Equal(t, ProviderNone, c.Provider())

	_, err = c.Complete(context.Background(), "sys", "hello")
	assert.Error(t, err)
}

func TestNewPrefersOpenAIWhenMultipleKeysPresent(t *testing.T) {
	c, err := New(context.Background(), Config{OpenAIAPIKey: "sk-test", AnthropicAPIKey: "anthropic-test"})
	require.NoError(t, err)
	assert.True(t, c.Enabled())
	assert.Equal(t, ProviderOpenAI, c.Provider())
}

func TestMockServiceCompleteJSONFallsBackToComplete(t *testing.T) {
	mock := &MockService{
		IsEnabled: true,
		CompleteFn: func(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
			return `{"description":"retrieve widget","keywords":["get","widget"]}`, nil
		},
	}
	out, err := mock.CompleteJSON(context.Background(), "sys", "user")
	require.NoError(t, err)
	assert.Contains(t, out, "retrieve widget")
}
