// Package config loads and validates the control plane configuration from a
// YAML file with environment variable overrides.
package config

import (
	"encoding/base64"
	"fmt"

	"github.com/meridian-cp/meridian/internal/crypto/secrets"
	"github.com/meridian-cp/meridian/internal/providers/types"
)

// Config holds the application configuration.
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database" yaml:"database"`
	Vault     VaultConfig     `mapstructure:"vault" yaml:"vault"`
	Providers ProvidersConfig `mapstructure:"providers" yaml:"providers"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
}

// DatabaseConfig points at the relational store.
type DatabaseConfig struct {
	// DSN is the SQLite data source name. ":memory:" is accepted for tests.
	DSN string `mapstructure:"dsn" yaml:"dsn"`
}

// VaultConfig configures credential encryption.
type VaultConfig struct {
	// EncryptionKey is the base64-encoded 32-byte AES key protecting stored
	// credentials and key material. Usually injected via MERIDIAN_VAULT_KEY.
	EncryptionKey string `mapstructure:"encryption_key" yaml:"encryption_key"`
}

// LogConfig controls log output.
type LogConfig struct {
	// Level raises logr verbosity; 0 is production default.
	Level int `mapstructure:"level" yaml:"level"`
	// Format is "json" or "console".
	Format string `mapstructure:"format" yaml:"format"`
}

// ProvidersConfig carries operator-injected provider credentials. Any
// provider configured here is connected for every organization and wins over
// credentials stored through the vault.
type ProvidersConfig struct {
	AWS    AWSConfig    `mapstructure:"aws" yaml:"aws"`
	Azure  AzureConfig  `mapstructure:"azure" yaml:"azure"`
	GCP    GCPConfig    `mapstructure:"gcp" yaml:"gcp"`
	Static StaticConfig `mapstructure:"static" yaml:"static"`
}

type AWSConfig struct {
	AccessKeyID     string `mapstructure:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key" yaml:"secret_access_key"`
}

type AzureConfig struct {
	TenantID       string `mapstructure:"tenant_id" yaml:"tenant_id"`
	ClientID       string `mapstructure:"client_id" yaml:"client_id"`
	ClientSecret   string `mapstructure:"client_secret" yaml:"client_secret"`
	SubscriptionID string `mapstructure:"subscription_id" yaml:"subscription_id"`
}

type GCPConfig struct {
	ServiceAccountJSON string `mapstructure:"service_account_json" yaml:"service_account_json"`
	ProjectID          string `mapstructure:"project_id" yaml:"project_id"`
}

type StaticConfig struct {
	Host          string `mapstructure:"host" yaml:"host"`
	User          string `mapstructure:"user" yaml:"user"`
	SSHPrivateKey string `mapstructure:"ssh_private_key" yaml:"ssh_private_key"`
	Password      string `mapstructure:"password" yaml:"password"`
}

const defaultDSN = "meridian.db"

// Validate checks the configuration for structural problems. It is called
// after file load and env overlay.
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		c.Database.DSN = defaultDSN
	}
	if c.Vault.EncryptionKey == "" {
		return fmt.Errorf("vault.encryption_key is required (or set MERIDIAN_VAULT_KEY)")
	}
	if _, err := c.EncryptionKey(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("log.format must be json or console, got %q", c.Log.Format)
	}
	return nil
}

// EncryptionKey decodes the configured key. Raw 32-byte strings are accepted
// alongside base64 so locally generated keys work unencoded.
func (c *Config) EncryptionKey() ([]byte, error) {
	if decoded, err := base64.StdEncoding.DecodeString(c.Vault.EncryptionKey); err == nil && len(decoded) == secrets.KeySize {
		return decoded, nil
	}
	if len(c.Vault.EncryptionKey) == secrets.KeySize {
		return []byte(c.Vault.EncryptionKey), nil
	}
	return nil, fmt.Errorf("vault.encryption_key must be %d bytes, base64 or raw", secrets.KeySize)
}

// EnvCredentials converts the operator-injected provider sections into
// credential sets keyed by provider kind. Sections with missing required
// fields are omitted.
func (c *Config) EnvCredentials() map[types.Kind]types.Credentials {
	candidates := map[types.Kind]types.Credentials{
		types.KindAWS: {
			AccessKeyID:     c.Providers.AWS.AccessKeyID,
			SecretAccessKey: c.Providers.AWS.SecretAccessKey,
		},
		types.KindAzure: {
			TenantID:       c.Providers.Azure.TenantID,
			ClientID:       c.Providers.Azure.ClientID,
			ClientSecret:   c.Providers.Azure.ClientSecret,
			SubscriptionID: c.Providers.Azure.SubscriptionID,
		},
		types.KindGCP: {
			ServiceAccountJSON: c.Providers.GCP.ServiceAccountJSON,
			ProjectID:          c.Providers.GCP.ProjectID,
		},
		types.KindStatic: {
			Host:          c.Providers.Static.Host,
			User:          c.Providers.Static.User,
			SSHPrivateKey: c.Providers.Static.SSHPrivateKey,
			Password:      c.Providers.Static.Password,
		},
	}

	out := make(map[types.Kind]types.Credentials)
	for kind, creds := range candidates {
		if creds.HasFieldsFor(kind) {
			out[kind] = creds
		}
	}
	return out
}
