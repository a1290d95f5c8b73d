package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/rpgraph/rpg/internal/rpgerrors"
)

// envVarForProvider names the environment variable checked first for
// each provider, matching internal/llmclient's own lookup order.
var envVarForProvider = map[string]string{
	"openai":    "OPENAI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
	"gemini":    "GEMINI_API_KEY",
}

// CredentialManager resolves provider API keys through a priority
// chain: environment variable, OS keychain, config file, interactive
// prompt (packaged mode only). Adapted from the teacher's
// CredentialManager, generalized from a pair of near-duplicate
// GetOpenAIAPIKey/GetGitHubToken methods into one GetProviderAPIKey
// parameterized by provider name.
type CredentialManager struct {
	mode       DeploymentMode
	keyring    *KeyringManager
	configPath string
}

// StoredCredentials is the config-file fallback shape for provider keys.
type StoredCredentials struct {
	OpenAIAPIKey    string `yaml:"openai_api_key"`
	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	GeminiAPIKey    string `yaml:"gemini_api_key"`
}

// NewCredentialManager creates a credential manager rooted at the
// user's standard config directory.
func NewCredentialManager() *CredentialManager {
	homeDir, _ := os.UserHomeDir()
	return &CredentialManager{
		mode:       DetectMode(),
		keyring:    NewKeyringManager(),
		configPath: filepath.Join(homeDir, ".config", "rpg", "config.yaml"),
	}
}

// GetProviderAPIKey resolves a provider's API key via the priority
// chain. provider is one of "openai", "anthropic", "gemini".
func (cm *CredentialManager) GetProviderAPIKey(provider string) (string, error) {
	if envVar, ok := envVarForProvider[provider]; ok {
		if key := os.Getenv(envVar); key != "" {
			return key, nil
		}
	}

	if cm.keyring.IsAvailable() {
		if key, err := cm.keyring.GetKey(provider); err == nil && key != "" {
			return key, nil
		}
	}

	if creds, err := cm.loadConfigFile(); err == nil {
		if key := credentialField(creds, provider); key != "" {
			return key, nil
		}
	}

	if cm.mode.AllowsInteractivePrompts() && isInteractive() {
		return cm.promptForAPIKey(provider)
	}

	return "", nil
}

func credentialField(creds *StoredCredentials, provider string) string {
	switch provider {
	case "openai":
		return creds.OpenAIAPIKey
	case "anthropic":
		return creds.AnthropicAPIKey
	case "gemini":
		return creds.GeminiAPIKey
	default:
		return ""
	}
}

// SaveProviderAPIKey persists a key to the keychain (preferred) or the
// config file (fallback).
func (cm *CredentialManager) SaveProviderAPIKey(provider, key string) error {
	if cm.keyring.IsAvailable() {
		if err := cm.keyring.SetKey(provider, key); err != nil {
			return rpgerrors.Wrapf(err, rpgerrors.ExternalFailure, "save %s key to keychain", provider)
		}
		return nil
	}
	creds, _ := cm.loadConfigFile()
	if creds == nil {
		creds = &StoredCredentials{}
	}
	switch provider {
	case "openai":
		creds.OpenAIAPIKey = key
	case "anthropic":
		creds.AnthropicAPIKey = key
	case "gemini":
		creds.GeminiAPIKey = key
	}
	return cm.saveConfigFile(creds)
}

func (cm *CredentialManager) loadConfigFile() (*StoredCredentials, error) {
	data, err := os.ReadFile(cm.configPath)
	if err != nil {
		return nil, err
	}
	var creds StoredCredentials
	if err := yaml.Unmarshal(data, &creds); err != nil {
		return nil, err
	}
	return &creds, nil
}

func (cm *CredentialManager) saveConfigFile(creds *StoredCredentials) error {
	if err := os.MkdirAll(filepath.Dir(cm.configPath), 0700); err != nil {
		return err
	}
	data, err := yaml.Marshal(creds)
	if err != nil {
		return err
	}
	return os.WriteFile(cm.configPath, data, 0600)
}

func (cm *CredentialManager) promptForAPIKey(provider string) (string, error) {
	fmt.Printf("Enter %s API key: ", provider)
	key, err := cm.readSecurely()
	if err != nil {
		return "", err
	}
	if key == "" {
		return "", rpgerrors.Newf(rpgerrors.InvalidInput, "%s API key is required", provider)
	}
	if err := cm.SaveProviderAPIKey(provider, key); err == nil {
		fmt.Println("saved")
	}
	return key, nil
}

func (cm *CredentialManager) readSecurely() (string, error) {
	if term.IsTerminal(int(syscall.Stdin)) {
		bytes, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(bytes)), nil
	}
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func isInteractive() bool {
	return term.IsTerminal(int(syscall.Stdin))
}

// GetMode returns the deployment mode this manager was constructed with.
func (cm *CredentialManager) GetMode() DeploymentMode { return cm.mode }

// GetConfigPath returns the path of the credential fallback file.
func (cm *CredentialManager) GetConfigPath() string { return cm.configPath }
