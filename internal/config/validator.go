package config

import (
	"fmt"
	"strings"

	"github.com/rpgraph/rpg/internal/rpgerrors"
)

// ValidationContext specifies which part of the configuration a
// command is about to exercise, so only the settings that command
// needs are checked.
type ValidationContext string

const (
	// ValidationContextEncode validates settings needed by the encoder:
	// walk roots, graph backend, and (when feature mode is "llm") a
	// provider key.
	ValidationContextEncode ValidationContext = "encode"
	// ValidationContextRoute validates settings needed by the semantic
	// router: graph backend plus, when LLM tie-break is enabled, a
	// provider key.
	ValidationContextRoute ValidationContext = "route"
	// ValidationContextEvolve validates settings needed to apply an
	// evolution operation against an existing graph.
	ValidationContextEvolve ValidationContext = "evolve"
	// ValidationContextAll validates every section.
	ValidationContextAll ValidationContext = "all"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// AddError adds an error to the validation result.
func (vr *ValidationResult) AddError(format string, args ...interface{}) {
	vr.Valid = false
	vr.Errors = append(vr.Errors, fmt.Sprintf(format, args...))
}

// AddWarning adds a warning to the validation result.
func (vr *ValidationResult) AddWarning(format string, args ...interface{}) {
	vr.Warnings = append(vr.Warnings, fmt.Sprintf(format, args...))
}

// HasErrors returns true if there are any errors.
func (vr *ValidationResult) HasErrors() bool {
	return !vr.Valid || len(vr.Errors) > 0
}

// Error returns a formatted error message.
func (vr *ValidationResult) Error() string {
	if !vr.HasErrors() {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("configuration validation failed:\n")
	for _, err := range vr.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err))
	}
	if len(vr.Warnings) > 0 {
		sb.WriteString("\nwarnings:\n")
		for _, warn := range vr.Warnings {
			sb.WriteString(fmt.Sprintf("  - %s\n", warn))
		}
	}
	return sb.String()
}

// Validate validates configuration for the given context with auto-detected mode.
func (c *Config) Validate(ctx ValidationContext) *ValidationResult {
	return c.ValidateWithMode(ctx, DetectMode())
}

// ValidateWithMode validates configuration for the given context and deployment mode.
func (c *Config) ValidateWithMode(ctx ValidationContext, mode DeploymentMode) *ValidationResult {
	result := &ValidationResult{Valid: true}

	switch ctx {
	case ValidationContextEncode:
		c.validateEncoder(result)
		c.validateGraph(result, mode)
		if c.Feature.Mode == "llm" {
			c.validateProvider(result, true)
		}
	case ValidationContextRoute:
		c.validateGraph(result, mode)
		if c.Router.UseLLMTieBreak {
			c.validateProvider(result, false)
		}
	case ValidationContextEvolve:
		c.validateGraph(result, mode)
	case ValidationContextAll:
		c.validateEncoder(result)
		c.validateGraph(result, mode)
		c.validateRouter(result)
		c.validateProvider(result, false)
	}

	return result
}

// ValidateOrFatal validates configuration and exits if invalid (auto-detects mode).
func (c *Config) ValidateOrFatal(ctx ValidationContext) {
	c.ValidateOrFatalWithMode(ctx, DetectMode())
}

// ValidateOrFatalWithMode validates configuration with an explicit mode and exits if invalid.
func (c *Config) ValidateOrFatalWithMode(ctx ValidationContext, mode DeploymentMode) {
	result := c.ValidateWithMode(ctx, mode)
	if result.HasErrors() {
		fmt.Println(result.Error())
		fmt.Printf("\ndeployment mode: %s (%s)\n", mode, mode.Description())
		panic(rpgerrors.Newf(rpgerrors.InvalidInput, "%s", result.Error()))
	}
	if len(result.Warnings) > 0 {
		fmt.Println("configuration warnings:")
		for _, warn := range result.Warnings {
			fmt.Printf("  - %s\n", warn)
		}
	}
}

func (c *Config) validateEncoder(result *ValidationResult) {
	if len(c.Encoder.Include) == 0 {
		result.AddWarning("encoder.include is empty, no files will match the walk")
	}
	if c.Encoder.MaxDepth <= 0 {
		result.AddError("encoder.max_depth must be positive, got %d", c.Encoder.MaxDepth)
	}
	if c.Encoder.Workers <= 0 {
		result.AddError("encoder.workers must be positive, got %d", c.Encoder.Workers)
	}
}

func (c *Config) validateGraph(result *ValidationResult, mode DeploymentMode) {
	switch c.Graph.Backend {
	case "memory":
		// no path required
	case "bolt":
		if c.Graph.Path == "" {
			result.AddError("graph.path is required when graph.backend is \"bolt\"")
		}
	case "neo4j":
		if c.Graph.Neo4jURI == "" {
			result.AddError("graph.neo4j_uri is required when graph.backend is \"neo4j\"")
		}
	default:
		result.AddError("graph.backend must be \"memory\", \"bolt\", or \"neo4j\", got %q", c.Graph.Backend)
	}

	if c.Graph.Backend == "memory" && mode.RequiresStrictValidation() {
		result.AddWarning("graph.backend is \"memory\" in CI mode; the graph will not persist across runs")
	}
}

func (c *Config) validateRouter(result *ValidationResult) {
	if c.Router.DriftThreshold < 0 || c.Router.DriftThreshold > 1 {
		result.AddError("router.drift_threshold must be in [0,1], got %.2f", c.Router.DriftThreshold)
	}
	if c.Router.SimilarityMargin < 0 || c.Router.SimilarityMargin > 1 {
		result.AddError("router.similarity_margin must be in [0,1], got %.2f", c.Router.SimilarityMargin)
	}
	if c.Router.TopK <= 0 {
		result.AddError("router.top_k must be positive, got %d", c.Router.TopK)
	}
}

func (c *Config) validateProvider(result *ValidationResult, required bool) {
	hasKey := c.Provider.OpenAIAPIKey != "" || c.Provider.AnthropicAPIKey != "" || c.Provider.GeminiAPIKey != ""
	if !hasKey {
		if required {
			result.AddError("no provider API key is set but feature.mode is \"llm\"; set one via environment variable, keychain, or config file")
		} else {
			result.AddWarning("no provider API key is set; LLM-assisted features will fall back to heuristics")
		}
	}

	if c.Provider.EmbeddingDim <= 0 {
		result.AddError("provider.embedding_dimension must be positive, got %d", c.Provider.EmbeddingDim)
	}
}

// RequireGraph checks that the graph backend is configured and returns an error if not.
func (c *Config) RequireGraph() error {
	result := &ValidationResult{Valid: true}
	c.validateGraph(result, DetectMode())
	if result.HasErrors() {
		return rpgerrors.Newf(rpgerrors.InvalidInput, "%s", result.Error())
	}
	return nil
}

// RequireProvider checks that at least one provider API key is configured and returns an error if not.
func (c *Config) RequireProvider() error {
	result := &ValidationResult{Valid: true}
	c.validateProvider(result, true)
	if result.HasErrors() {
		return rpgerrors.Newf(rpgerrors.InvalidInput, "%s", result.Error())
	}
	return nil
}
