package config

import (
	"fmt"
	"log/slog"

	"github.com/zalando/go-keyring"
)

const (
	// KeyringService is the service name registered in the OS keychain.
	KeyringService = "rpg"
)

// KeyringManager handles secure provider-key storage in the OS
// keychain. Generalized from the teacher's KeyringManager, which
// hard-coded two items (OpenAI key, GitHub token), into a generic
// named-item store so any provider key uses the same path.
type KeyringManager struct {
	logger *slog.Logger
}

// NewKeyringManager creates a keyring manager.
func NewKeyringManager() *KeyringManager {
	return &KeyringManager{logger: slog.Default().With("component", "keyring")}
}

func keyringItem(name string) string {
	return name + "-api-key"
}

// SetKey stores a named key (e.g. "openai", "anthropic") in the OS keychain.
func (km *KeyringManager) SetKey(name, value string) error {
	if value == "" {
		return fmt.Errorf("key value cannot be empty")
	}
	if err := keyring.Set(KeyringService, keyringItem(name), value); err != nil {
		km.logger.Error("failed to save key to keychain", "name", name, "error", err)
		return fmt.Errorf("failed to save to OS keychain: %w", err)
	}
	km.logger.Info("key saved to keychain", "name", name)
	return nil
}

// GetKey retrieves a named key from the OS keychain. A missing key is
// not an error; it returns "".
func (km *KeyringManager) GetKey(name string) (string, error) {
	value, err := keyring.Get(KeyringService, keyringItem(name))
	if err == keyring.ErrNotFound {
		return "", nil
	}
	if err != nil {
		km.logger.Error("failed to get key from keychain", "name", name, "error", err)
		return "", fmt.Errorf("failed to read from OS keychain: %w", err)
	}
	return value, nil
}

// DeleteKey removes a named key from the OS keychain.
func (km *KeyringManager) DeleteKey(name string) error {
	err := keyring.Delete(KeyringService, keyringItem(name))
	if err == keyring.ErrNotFound {
		return nil
	}
	if err != nil {
		km.logger.Error("failed to delete key from keychain", "name", name, "error", err)
		return fmt.Errorf("failed to delete from OS keychain: %w", err)
	}
	return nil
}

// IsAvailable checks whether the OS keychain backend is reachable.
// Returns false on headless systems (CI) where no keychain exists.
func (km *KeyringManager) IsAvailable() bool {
	_, err := keyring.Get(KeyringService, "test-availability")
	if err == keyring.ErrNotFound {
		return true
	}
	if err != nil {
		km.logger.Debug("keychain not available", "error", err)
		return false
	}
	return true
}

// MaskAPIKey masks a key for display, showing only its first 7 and
// last 4 characters.
func MaskAPIKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) < 12 {
		return "***"
	}
	return fmt.Sprintf("%s...%s", key[:7], key[len(key)-4:])
}
