// Copyright Chicken-AI Breeds Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"OPENAI_API_KEY", "OPENAI_API_ENDPOINT", "CREDENTIAL_ENDPOINT", "IDENTIFY_SEED",
		"STORE_TYPE", "STORE_DSN", "FILE_STORE_TYPE", "FILE_STORE_BASE_DIR",
		"FILE_STORE_S3_BUCKET", "FILE_STORE_S3_REGION", "FILE_STORE_S3_PREFIX",
		"FILE_STORE_S3_ENDPOINT", "LOG_LEVEL",
	} {
		t.Setenv(k, "")
	}
}

func TestDefault(t *testing.T) {
	clearEnv(t)
	cfg := Default()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "gpt-4o-mini", cfg.Identify.Model)
	assert.Equal(t, 50, cfg.Identify.MaxTokens)
	assert.InDelta(t, 0.3, cfg.Identify.Temperature, 1e-9)
	assert.Equal(t, 80, cfg.Identify.JPEGQuality)
	assert.Equal(t, 30*time.Second, cfg.Identify.Timeout)
	assert.Equal(t, "memory", cfg.Store.Type)
	assert.Equal(t, "none", cfg.FileStore.Type)
	assert.False(t, cfg.FileStore.Enabled())
	assert.Equal(t, "open", cfg.Entitlement.Mode)

	// Nothing tells the service where the model key comes from.
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "credential")

	t.Setenv("OPENAI_API_KEY", "sk-test")
	assert.NoError(t, Default().Validate())
}

func TestValidate_CredentialSource(t *testing.T) {
	clearEnv(t)

	_, err := Load(writeConfig(t, "server:\n  port: 9000\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "credential")

	_, err = Load(writeConfig(t, "credential:\n  api_key: sk-file\n"))
	assert.NoError(t, err)

	_, err = Load(writeConfig(t, "credential:\n  endpoint: https://config.example.com/key.json\n"))
	assert.NoError(t, err)
}

func TestFileStore_ArchiveIsOptIn(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load(writeConfig(t, "identify:\n  model: gpt-4o\n"))
	require.NoError(t, err)
	assert.False(t, cfg.FileStore.Enabled())

	cfg, err = Load(writeConfig(t, "file_store:\n  type: memory\n  max_files: 25\n"))
	require.NoError(t, err)
	assert.True(t, cfg.FileStore.Enabled())
	assert.Equal(t, "25", cfg.FileStore.Params()["max_files"])

	_, err = Load(writeConfig(t, "file_store:\n  type: tape\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tape")
}

func TestLoad_ZeroTemperatureIsKept(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load(writeConfig(t, "identify:\n  temperature: 0\n"))
	require.NoError(t, err)
	assert.Zero(t, cfg.Identify.Temperature)
}

func TestLoad_FileKeepsUnsetDefaults(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
server:
  port: 9090
identify:
  model: gpt-4o
  seed: 7
credential:
  endpoint: https://config.example.com/key.json
store:
  type: sqlite
  dsn: /var/lib/breeds.db
entitlement:
  mode: allowlist
  subscribers: [sub-1, sub-2]
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "gpt-4o", cfg.Identify.Model)
	assert.Equal(t, 50, cfg.Identify.MaxTokens)
	assert.Equal(t, uint64(7), cfg.Identify.Seed)
	assert.Equal(t, "https://config.example.com/key.json", cfg.Credential.Endpoint)
	assert.Equal(t, "sqlite", cfg.Store.Type)
	assert.Equal(t, "/var/lib/breeds.db", cfg.Store.DSN)
	assert.Equal(t, []string{"sub-1", "sub-2"}, cfg.Entitlement.Subscribers)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("OPENAI_API_ENDPOINT", "http://localhost:11434/v1/")
	t.Setenv("STORE_TYPE", "postgres")
	t.Setenv("STORE_DSN", "postgres://localhost/breeds")
	t.Setenv("FILE_STORE_TYPE", "s3")
	t.Setenv("FILE_STORE_S3_BUCKET", "snaps")
	t.Setenv("IDENTIFY_SEED", "99")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(writeConfig(t, "store:\n  type: sqlite\n"))
	require.NoError(t, err)

	assert.Equal(t, "sk-env", cfg.Credential.APIKey)
	assert.Equal(t, "http://localhost:11434/v1/", cfg.Identify.Endpoint)
	assert.Equal(t, "postgres", cfg.Store.Type)
	assert.Equal(t, "postgres://localhost/breeds", cfg.Store.DSN)
	assert.Equal(t, "s3", cfg.FileStore.Type)
	assert.Equal(t, "snaps", cfg.FileStore.Params()["bucket"])
	assert.Equal(t, uint64(99), cfg.Identify.Seed)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "server: [not, a, map]"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "identify:\n  jpeg_quality: 150\nentitlement:\n  mode: paywall\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jpeg_quality")
	assert.Contains(t, err.Error(), "paywall")

	t.Setenv("IDENTIFY_SEED", "abc")
	_, err = Load(writeConfig(t, ""))
	assert.Error(t, err)
}
