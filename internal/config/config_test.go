package config

import (
	"bytes"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-cp/meridian/internal/providers/types"
)

func testKey() string {
	return base64.StdEncoding.EncodeToString(bytes.Repeat([]byte("k"), 32))
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "meridian.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_FromFile(t *testing.T) {
	path := writeConfig(t, `
database:
  dsn: /var/lib/meridian/state.db
vault:
  encryption_key: `+testKey()+`
log:
  format: console
providers:
  aws:
    access_key_id: AKIAFILE
    secret_access_key: file-secret
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/meridian/state.db", cfg.Database.DSN)
	assert.Equal(t, "console", cfg.Log.Format)

	key, err := cfg.EncryptionKey()
	require.NoError(t, err)
	assert.Len(t, key, 32)

	env := cfg.EnvCredentials()
	require.Contains(t, env, types.KindAWS)
	assert.Equal(t, "AKIAFILE", env[types.KindAWS].AccessKeyID)
}

func TestLoad_MissingFileUsesEnvironment(t *testing.T) {
	t.Setenv("MERIDIAN_VAULT_KEY", testKey())
	t.Setenv("MERIDIAN_DB_DSN", ":memory:")

	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":memory:", cfg.Database.DSN)
}

func TestLoad_EnvironmentWinsOverFile(t *testing.T) {
	t.Setenv("MERIDIAN_AWS_ACCESS_KEY_ID", "AKIAENV")
	t.Setenv("MERIDIAN_AWS_SECRET_ACCESS_KEY", "env-secret")
	path := writeConfig(t, `
vault:
  encryption_key: `+testKey()+`
providers:
  aws:
    access_key_id: AKIAFILE
    secret_access_key: file-secret
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "AKIAENV", cfg.Providers.AWS.AccessKeyID)
}

func TestLoad_MissingKeyRejected(t *testing.T) {
	path := writeConfig(t, "database:\n  dsn: meridian.db\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "encryption_key")
}

func TestValidate_ShortKeyRejected(t *testing.T) {
	cfg := &Config{Vault: VaultConfig{EncryptionKey: "tooshort"}}
	require.Error(t, cfg.Validate())
}

func TestValidate_RawKeyAccepted(t *testing.T) {
	cfg := &Config{Vault: VaultConfig{EncryptionKey: string(bytes.Repeat([]byte("r"), 32))}}
	require.NoError(t, cfg.Validate())

	key, err := cfg.EncryptionKey()
	require.NoError(t, err)
	assert.Len(t, key, 32)
}

func TestValidate_DefaultsDSN(t *testing.T) {
	cfg := &Config{Vault: VaultConfig{EncryptionKey: testKey()}}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, defaultDSN, cfg.Database.DSN)
}

func TestValidate_BadLogFormat(t *testing.T) {
	cfg := &Config{
		Vault: VaultConfig{EncryptionKey: testKey()},
		Log:   LogConfig{Format: "xml"},
	}
	require.Error(t, cfg.Validate())
}

func TestEnvCredentials_SkipsIncompleteSections(t *testing.T) {
	cfg := &Config{
		Providers: ProvidersConfig{
			AWS:    AWSConfig{AccessKeyID: "AKIAONLY"},
			Static: StaticConfig{Host: "10.0.0.1", User: "ops", Password: "pw"},
		},
	}

	env := cfg.EnvCredentials()
	assert.NotContains(t, env, types.KindAWS)
	assert.Contains(t, env, types.KindStatic)
}
