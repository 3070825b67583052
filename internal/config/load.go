package config

import (
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Load reads the configuration file, applies environment overrides and
// validates the result. A missing file is not an error; the configuration
// can come entirely from the environment.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var raw map[string]interface{}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
		}
		if err := mapstructure.Decode(raw, &cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config: %w", err)
		}
	case os.IsNotExist(err):
		// Environment-only configuration.
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv overlays MERIDIAN_* environment variables onto the file values.
// Environment always wins.
func (c *Config) applyEnv() {
	overlay(&c.Database.DSN, "MERIDIAN_DB_DSN")
	overlay(&c.Vault.EncryptionKey, "MERIDIAN_VAULT_KEY")

	overlay(&c.Providers.AWS.AccessKeyID, "MERIDIAN_AWS_ACCESS_KEY_ID")
	overlay(&c.Providers.AWS.SecretAccessKey, "MERIDIAN_AWS_SECRET_ACCESS_KEY")

	overlay(&c.Providers.Azure.TenantID, "MERIDIAN_AZURE_TENANT_ID")
	overlay(&c.Providers.Azure.ClientID, "MERIDIAN_AZURE_CLIENT_ID")
	overlay(&c.Providers.Azure.ClientSecret, "MERIDIAN_AZURE_CLIENT_SECRET")
	overlay(&c.Providers.Azure.SubscriptionID, "MERIDIAN_AZURE_SUBSCRIPTION_ID")

	overlay(&c.Providers.GCP.ServiceAccountJSON, "MERIDIAN_GCP_SERVICE_ACCOUNT_JSON")
	overlay(&c.Providers.GCP.ProjectID, "MERIDIAN_GCP_PROJECT_ID")

	overlay(&c.Providers.Static.Host, "MERIDIAN_STATIC_HOST")
	overlay(&c.Providers.Static.User, "MERIDIAN_STATIC_USER")
	overlay(&c.Providers.Static.SSHPrivateKey, "MERIDIAN_STATIC_SSH_PRIVATE_KEY")
	overlay(&c.Providers.Static.Password, "MERIDIAN_STATIC_PASSWORD")
}

func overlay(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}
