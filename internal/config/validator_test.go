package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEncodeRequiresProviderKeyOnlyInLLMMode(t *testing.T) {
	cfg := Default()
	cfg.Feature.Mode = "heuristic"
	result := cfg.ValidateWithMode(ValidationContextEncode, ModeDevelopment)
	assert.True(t, result.Valid)

	cfg.Feature.Mode = "llm"
	result = cfg.ValidateWithMode(ValidationContextEncode, ModeDevelopment)
	assert.False(t, result.Valid)
	assert.Contains(t, result.Error(), "provider API key")
}

func TestValidateGraphRejectsUnknownBackend(t *testing.T) {
	cfg := Default()
	cfg.Graph.Backend = "mongodb"
	result := cfg.ValidateWithMode(ValidationContextAll, ModeDevelopment)
	assert.False(t, result.Valid)
}

func TestValidateGraphRequiresPathForBolt(t *testing.T) {
	cfg := Default()
	cfg.Graph.Backend = "bolt"
	cfg.Graph.Path = ""
	result := cfg.ValidateWithMode(ValidationContextEvolve, ModeDevelopment)
	assert.False(t, result.Valid)
}

func TestValidateRouteSkipsProviderWhenTieBreakDisabled(t *testing.T) {
	cfg := Default()
	cfg.Router.UseLLMTieBreak = false
	result := cfg.ValidateWithMode(ValidationContextRoute, ModeDevelopment)
	assert.True(t, result.Valid)
}

func TestValidateRouterThresholdsOutOfRange(t *testing.T) {
	cfg := Default()
	cfg.Router.DriftThreshold = 1.5
	result := cfg.ValidateWithMode(ValidationContextAll, ModeDevelopment)
	assert.False(t, result.Valid)
}

func TestValidateEncoderRequiresPositiveWorkers(t *testing.T) {
	cfg := Default()
	cfg.Encoder.Workers = 0
	result := cfg.ValidateWithMode(ValidationContextEncode, ModeDevelopment)
	assert.False(t, result.Valid)
}

func TestRequireGraphAndProvider(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.RequireGraph())

	cfg.Graph.Backend = "bolt"
	cfg.Graph.Path = ""
	assert.Error(t, cfg.RequireGraph())

	assert.Error(t, cfg.RequireProvider())
	cfg.Provider.OpenAIAPIKey = "sk-test"
	assert.NoError(t, cfg.RequireProvider())
}
