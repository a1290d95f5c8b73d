// Package config loads and validates the RPG engine's configuration:
// encoder walk settings, the graph store backend, router thresholds,
// feature-extraction mode, and LLM/embedding provider credentials.
// Adapted from the teacher's internal/config/config.go (viper +
// godotenv layering, env-var override chain), generalized from
// coderisk's storage/GitHub/risk/budget sections to the RPG domain's
// own settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Config holds all configuration settings for the RPG engine.
type Config struct {
	Mode string `yaml:"mode"` // "development", "packaged", "ci"

	Encoder  EncoderConfig  `yaml:"encoder"`
	Graph    GraphConfig    `yaml:"graph"`
	Router   RouterConfig   `yaml:"router"`
	Feature  FeatureConfig  `yaml:"feature"`
	Provider ProviderConfig `yaml:"provider"`
}

// EncoderConfig controls the repository walk and parse pass.
type EncoderConfig struct {
	Include  []string `yaml:"include"`
	Exclude  []string `yaml:"exclude"`
	MaxDepth int      `yaml:"max_depth"`
	Workers  int      `yaml:"workers"`
}

// GraphConfig selects the graphstore backend.
type GraphConfig struct {
	Backend string `yaml:"backend"` // "memory", "bolt", or "neo4j"
	Path    string `yaml:"path"`    // bolt db file path; ignored otherwise

	Neo4jURI      string `yaml:"neo4j_uri"`
	Neo4jUser     string `yaml:"neo4j_user"`
	Neo4jPassword string `yaml:"neo4j_password"`
	Neo4jDatabase string `yaml:"neo4j_database"`
}

// RouterConfig carries the semantic router's scoring thresholds.
type RouterConfig struct {
	DriftThreshold   float64 `yaml:"drift_threshold"`
	SimilarityMargin float64 `yaml:"similarity_margin"`
	TopK             int     `yaml:"top_k"`
	UseLLMTieBreak   bool    `yaml:"use_llm_tie_break"`
}

// FeatureConfig selects the semantic feature extractor's mode.
type FeatureConfig struct {
	Mode string `yaml:"mode"` // "heuristic" or "llm"
}

// ProviderConfig holds LLM/embedding provider settings. API keys are
// resolved through CredentialManager's priority chain rather than read
// directly from this struct wherever possible; the fields here exist
// so a config file can supply them as the lowest-priority source.
type ProviderConfig struct {
	OpenAIAPIKey    string `yaml:"openai_api_key"`
	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	GeminiAPIKey    string `yaml:"gemini_api_key"`
	LLMModel        string `yaml:"llm_model"`
	EmbeddingModel  string `yaml:"embedding_model"`
	EmbeddingDim    int    `yaml:"embedding_dimension"`
}

// Default returns the built-in default configuration.
func Default() *Config {
	return &Config{
		Mode: "development",
		Encoder: EncoderConfig{
			Include:  []string{"**/*.go", "**/*.py", "**/*.js", "**/*.jsx", "**/*.ts", "**/*.tsx"},
			Exclude:  []string{"**/node_modules/**", "**/.git/**", "**/vendor/**", "**/dist/**", "**/build/**"},
			MaxDepth: 64,
			Workers:  8,
		},
		Graph: GraphConfig{
			Backend:       "memory",
			Path:          filepath.Join(".rpg", "graph.db"),
			Neo4jDatabase: "neo4j",
		},
		Router: RouterConfig{
			DriftThreshold:   0.35,
			SimilarityMargin: 0.05,
			TopK:             5,
			UseLLMTieBreak:   true,
		},
		Feature: FeatureConfig{
			Mode: "heuristic",
		},
		Provider: ProviderConfig{
			EmbeddingModel: "text-embedding-3-small",
			EmbeddingDim:   1536,
		},
	}
}

// Load reads configuration from path (or standard search locations
// when path is empty), layering .env files, a YAML config file, and
// environment variable overrides on top of Default().
func Load(path string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetConfigType("yaml")

	cfg := Default()
	v.SetDefault("mode", cfg.Mode)
	v.SetDefault("encoder", cfg.Encoder)
	v.SetDefault("graph", cfg.Graph)
	v.SetDefault("router", cfg.Router)
	v.SetDefault("feature", cfg.Feature)
	v.SetDefault("provider", cfg.Provider)

	v.SetEnvPrefix("RPG")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".rpg")
		v.AddConfigPath(".")
		homeDir, _ := os.UserHomeDir()
		v.AddConfigPath(filepath.Join(homeDir, ".rpg"))
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg, func(dc *mapstructure.DecoderConfig) { dc.TagName = "yaml" }); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

func loadEnvFiles() {
	for _, file := range []string{".env.local", ".env"} {
		if _, err := os.Stat(file); err == nil {
			_ = godotenv.Load(file)
		}
	}
	homeDir, _ := os.UserHomeDir()
	homeEnvFile := filepath.Join(homeDir, ".rpg", ".env")
	if _, err := os.Stat(homeEnvFile); err == nil {
		_ = godotenv.Load(homeEnvFile)
	}
}

// applyEnvOverrides layers raw environment variables on top of the
// config-file/viper result, using the credential priority chain for
// provider keys specifically.
func applyEnvOverrides(cfg *Config) {
	if mode := os.Getenv("RPG_MODE"); mode != "" {
		cfg.Mode = mode
	}

	cm := NewCredentialManager()
	if key, err := cm.GetProviderAPIKey("openai"); err == nil && key != "" {
		cfg.Provider.OpenAIAPIKey = key
	}
	if key, err := cm.GetProviderAPIKey("anthropic"); err == nil && key != "" {
		cfg.Provider.AnthropicAPIKey = key
	}
	if key, err := cm.GetProviderAPIKey("gemini"); err == nil && key != "" {
		cfg.Provider.GeminiAPIKey = key
	}

	if model := os.Getenv("RPG_LLM_MODEL"); model != "" {
		cfg.Provider.LLMModel = model
	}
	if backend := os.Getenv("RPG_GRAPH_BACKEND"); backend != "" {
		cfg.Graph.Backend = backend
	}
	if path := os.Getenv("RPG_GRAPH_PATH"); path != "" {
		cfg.Graph.Path = expandPath(path)
	}
	if uri := os.Getenv("RPG_NEO4J_URI"); uri != "" {
		cfg.Graph.Neo4jURI = uri
	}
	if user := os.Getenv("RPG_NEO4J_USER"); user != "" {
		cfg.Graph.Neo4jUser = user
	}
	if password := os.Getenv("RPG_NEO4J_PASSWORD"); password != "" {
		cfg.Graph.Neo4jPassword = password
	}
	if database := os.Getenv("RPG_NEO4J_DATABASE"); database != "" {
		cfg.Graph.Neo4jDatabase = database
	}
	if mode := os.Getenv("RPG_FEATURE_MODE"); mode != "" {
		cfg.Feature.Mode = mode
	}
	if drift := os.Getenv("RPG_ROUTER_DRIFT_THRESHOLD"); drift != "" {
		if v, err := strconv.ParseFloat(drift, 64); err == nil {
			cfg.Router.DriftThreshold = v
		}
	}
	if margin := os.Getenv("RPG_ROUTER_SIMILARITY_MARGIN"); margin != "" {
		if v, err := strconv.ParseFloat(margin, 64); err == nil {
			cfg.Router.SimilarityMargin = v
		}
	}
}

// expandPath expands a leading ~ to the user's home directory.
func expandPath(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, path[1:])
}

// Save writes the configuration to path as YAML.
func (c *Config) Save(path string) error {
	v := viper.New()
	v.SetConfigType("yaml")
	v.Set("mode", c.Mode)
	v.Set("encoder", c.Encoder)
	v.Set("graph", c.Graph)
	v.Set("router", c.Router)
	v.Set("feature", c.Feature)
	v.Set("provider", c.Provider)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
