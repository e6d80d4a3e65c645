package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"kindred-sheets/backend/pkg/logger"

	vault "github.com/hashicorp/vault/api"
)

// Common errors
var (
	ErrSecretNotFound = errors.New("secret not found")
	ErrVaultDisabled  = errors.New("vault integration is disabled")
)

// VaultConfig holds configuration for the Vault client
type VaultConfig struct {
	Address     string
	Token       string
	Timeout     time.Duration
	SecretsPath string
	Enabled     bool
}

// VaultManager manages secrets with HashiCorp Vault, falling back to
// environment variables when Vault is disabled or a key is missing.
type VaultManager struct {
	client *vault.Client
	config VaultConfig
	cache  map[string]string
	mutex  sync.RWMutex
	log    *logger.Logger
}

// NewVaultManager creates a manager from VAULT_* environment variables
func NewVaultManager(log *logger.Logger) (*VaultManager, error) {
	config := VaultConfig{
		Address:     os.Getenv("VAULT_ADDR"),
		Token:       os.Getenv("VAULT_TOKEN"),
		Timeout:     10 * time.Second,
		SecretsPath: envOrDefault("VAULT_SECRETS_PATH", "secret/data/kindred-sheets"),
		Enabled:     os.Getenv("VAULT_ADDR") != "" && os.Getenv("VAULT_TOKEN") != "",
	}

	manager := &VaultManager{
		config: config,
		cache:  make(map[string]string),
		log:    log,
	}

	if !config.Enabled {
		log.Info("Vault integration disabled, secrets resolve from environment")
		return manager, nil
	}

	vaultConfig := vault.DefaultConfig()
	vaultConfig.Address = config.Address
	vaultConfig.Timeout = config.Timeout

	client, err := vault.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	client.SetToken(config.Token)

	manager.client = client
	log.Info("Vault integration enabled", "address", config.Address)
	return manager, nil
}

// GetSecret retrieves a secret by key, from cache, Vault, then environment
func (m *VaultManager) GetSecret(ctx context.Context, key string) (string, error) {
	m.mutex.RLock()
	if value, ok := m.cache[key]; ok {
		m.mutex.RUnlock()
		return value, nil
	}
	m.mutex.RUnlock()

	if m.config.Enabled {
		value, err := m.readFromVault(ctx, key)
		if err == nil {
			m.mutex.Lock()
			m.cache[key] = value
			m.mutex.Unlock()
			return value, nil
		}
		if !errors.Is(err, ErrSecretNotFound) {
			m.log.Warn("Vault read failed, falling back to environment", "key", key, "error", err.Error())
		}
	}

	if value := os.Getenv(strings.ToUpper(key)); value != "" {
		return value, nil
	}

	return "", ErrSecretNotFound
}

// GetSecretWithDefault retrieves a secret with a default value if not found
func (m *VaultManager) GetSecretWithDefault(ctx context.Context, key, defaultValue string) string {
	value, err := m.GetSecret(ctx, key)
	if err != nil {
		return defaultValue
	}
	return value
}

func (m *VaultManager) readFromVault(ctx context.Context, key string) (string, error) {
	secret, err := m.client.Logical().ReadWithContext(ctx, m.config.SecretsPath)
	if err != nil {
		return "", err
	}
	if secret == nil || secret.Data == nil {
		return "", ErrSecretNotFound
	}

	// KV v2 nests the payload under "data"
	data := secret.Data
	if nested, ok := secret.Data["data"].(map[string]interface{}); ok {
		data = nested
	}

	value, ok := data[key].(string)
	if !ok || value == "" {
		return "", ErrSecretNotFound
	}
	return value, nil
}

func envOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
