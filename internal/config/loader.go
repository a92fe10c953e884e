// Package config loads zohomcp configuration from config.yaml with
// ZOHO_* environment variable overrides on top. Environment values win so
// that MCP client launch configurations can configure everything without a
// file on disk.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"zohomcp/pkg/logging"
)

const (
	userConfigDir  = ".config/zohomcp"
	configFileName = "config.yaml"
)

// GetDefaultConfigPathOrPanic returns the per-user configuration directory.
func GetDefaultConfigPathOrPanic() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		panic(fmt.Errorf("could not determine user config directory: %w", err))
	}
	return filepath.Join(homeDir, userConfigDir)
}

// LoadConfig loads configuration from the given directory. A missing
// config.yaml is fine and yields the defaults; a malformed one is an error.
// Environment variables are applied after the file, so they always win.
func LoadConfig(configPath string) (Config, error) {
	configFilePath := filepath.Join(configPath, configFileName)
	config := GetDefaultConfig()

	data, err := os.ReadFile(configFilePath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logging.Debug("config", "No config.yaml found at %s, using defaults", configFilePath)
	case err != nil:
		return Config{}, err
	default:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return Config{}, fmt.Errorf("error loading config from %s: %w", configFilePath, err)
		}
		logging.Debug("config", "Loaded configuration from %s", configFilePath)
	}

	applyEnvOverrides(&config)
	return config, nil
}

func applyEnvOverrides(config *Config) {
	setString := func(target *string, key string) {
		if v := os.Getenv(key); v != "" {
			*target = v
		}
	}
	setInt := func(target *int, key string) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				*target = n
			} else {
				logging.Warn("config", "Ignoring non-positive or non-numeric %s=%q", key, v)
			}
		}
	}

	setString(&config.Zoho.ClientID, "ZOHO_CLIENT_ID")
	setString(&config.Zoho.ClientSecret, "ZOHO_CLIENT_SECRET")
	setString(&config.Zoho.RedirectURI, "ZOHO_REDIRECT_URI")
	setString(&config.Zoho.Scope, "ZOHO_SCOPE")
	setString(&config.Zoho.AccountsDomain, "ZOHO_ACCOUNTS_DOMAIN")
	setString(&config.Zoho.APIDomain, "ZOHO_API_DOMAIN")
	setString(&config.Zoho.APIVersion, "ZOHO_API_VERSION")
	setInt(&config.Zoho.AuthTimeoutSeconds, "ZOHO_AUTH_TIMEOUT")
	setString(&config.TokenFilePath, "TOKEN_FILE_PATH")
	setInt(&config.RequestTimeoutSeconds, "REQUEST_TIMEOUT")
	setString(&config.LogLevel, "LOG_LEVEL")
}
