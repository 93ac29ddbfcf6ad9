package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaultsFromEnvironmentOnly(t *testing.T) {
	t.Setenv("PDF_SERVICES_BASE_URL", "https://provider.example.com")
	t.Setenv("PDF_SERVICES_CLIENT_ID", "client-id")
	t.Setenv("PDF_SERVICES_CLIENT_SECRET", "client-secret")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":3000", cfg.Service.Listen)
	assert.Equal(t, "http://localhost:3000", cfg.Service.PublicBaseURL)
	assert.Equal(t, int64(20*1024*1024), cfg.Service.MaxUploadBytes)
	assert.Equal(t, "https://provider.example.com", cfg.Provider.BaseURL)
	assert.Equal(t, 2*time.Second, cfg.Provider.PollInterval)
	assert.Equal(t, 2*time.Minute, cfg.Provider.AwaitTimeout)
	assert.Equal(t, "temp", cfg.Artifacts.Root)
	assert.Equal(t, 5*time.Minute, cfg.Artifacts.TTL)
	assert.Equal(t, 10*time.Second, cfg.Artifacts.SweepInterval)
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("TEST_PROVIDER_URL", "https://provider.example.com")
	t.Setenv("TEST_CLIENT_ID", "id-from-env")
	t.Setenv("TEST_CLIENT_SECRET", "secret-from-env")

	path := writeConfig(t, `
service:
  listen: ":8080"
  public_base_url: "https://pdf.example.com"
provider:
  base_url: "${TEST_PROVIDER_URL}"
  client_id: "${TEST_CLIENT_ID}"
  client_secret: "${TEST_CLIENT_SECRET}"
artifacts:
  ttl: 90s
  sweep_interval: 5s
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Service.Listen)
	assert.Equal(t, "https://provider.example.com", cfg.Provider.BaseURL)
	assert.Equal(t, "id-from-env", cfg.Provider.ClientID)
	assert.Equal(t, "secret-from-env", cfg.Provider.ClientSecret)
	assert.Equal(t, 90*time.Second, cfg.Artifacts.TTL)
	assert.Equal(t, 5*time.Second, cfg.Artifacts.SweepInterval)
}

func TestLoadUnsetEnvVarFailsValidation(t *testing.T) {
	os.Unsetenv("DEFINITELY_NOT_SET_CLIENT_ID")
	t.Setenv("PDF_SERVICES_BASE_URL", "")
	t.Setenv("PDF_SERVICES_CLIENT_ID", "")
	t.Setenv("PDF_SERVICES_CLIENT_SECRET", "")

	path := writeConfig(t, `
provider:
  base_url: "https://provider.example.com"
  client_id: "${DEFINITELY_NOT_SET_CLIENT_ID}"
  client_secret: "secret"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "client_id")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestLoadRejectsSubSecondTTL(t *testing.T) {
	path := writeConfig(t, `
provider:
  base_url: "https://provider.example.com"
  client_id: "id"
  client_secret: "secret"
artifacts:
  ttl: 500ms
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ttl")
}

func TestLoadMalformedYAML(t *testing.T) {
	path := writeConfig(t, "service: [not: a: mapping")
	_, err := Load(path)
	require.Error(t, err)
}
