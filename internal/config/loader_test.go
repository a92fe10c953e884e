package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	config, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, DefaultRedirectURI, config.Zoho.RedirectURI)
	assert.Equal(t, DefaultAPIVersion, config.Zoho.APIVersion)
	assert.Equal(t, DefaultRequestTimeoutSeconds, config.RequestTimeoutSeconds)
	assert.Empty(t, config.Zoho.ClientID)
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	content := `
zoho:
  clientId: 1000.ABC
  clientSecret: secret
  accountsDomain: https://accounts.zoho.eu
  apiVersion: v8
requestTimeoutSeconds: 60
logLevel: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o600))

	config, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "1000.ABC", config.Zoho.ClientID)
	assert.Equal(t, "https://accounts.zoho.eu", config.Zoho.AccountsDomain)
	assert.Equal(t, "v8", config.Zoho.APIVersion)
	assert.Equal(t, 60*time.Second, config.RequestTimeout())
	assert.Equal(t, "debug", config.LogLevel)
	// Unset fields keep their defaults.
	assert.Equal(t, DefaultScope, config.Zoho.Scope)
}

func TestLoadConfigMalformedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("zoho: ["), 0o600))

	_, err := LoadConfig(dir)
	require.Error(t, err)
}

func TestLoadConfigEnvOverridesWin(t *testing.T) {
	dir := t.TempDir()
	content := `
zoho:
  clientId: from-file
  apiVersion: v2
requestTimeoutSeconds: 30
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o600))

	t.Setenv("ZOHO_CLIENT_ID", "from-env")
	t.Setenv("ZOHO_CLIENT_SECRET", "env-secret")
	t.Setenv("ZOHO_API_VERSION", "v8")
	t.Setenv("REQUEST_TIMEOUT", "90")
	t.Setenv("TOKEN_FILE_PATH", "/tmp/custom-token.json")

	config, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "from-env", config.Zoho.ClientID)
	assert.Equal(t, "env-secret", config.Zoho.ClientSecret)
	assert.Equal(t, "v8", config.Zoho.APIVersion)
	assert.Equal(t, 90, config.RequestTimeoutSeconds)
	assert.Equal(t, "/tmp/custom-token.json", config.TokenFilePath)
}

func TestLoadConfigIgnoresBadNumericEnv(t *testing.T) {
	t.Setenv("REQUEST_TIMEOUT", "soon")

	config, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, DefaultRequestTimeoutSeconds, config.RequestTimeoutSeconds)
}

func TestValidate(t *testing.T) {
	config := GetDefaultConfig()
	err := config.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ZOHO_CLIENT_ID")
	assert.Contains(t, err.Error(), "ZOHO_CLIENT_SECRET")

	config.Zoho.ClientID = "1000.ABC"
	config.Zoho.ClientSecret = "secret"
	assert.NoError(t, config.Validate())
}
