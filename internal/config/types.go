package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the top-level configuration structure for zohomcp.
type Config struct {
	Zoho ZohoConfig `yaml:"zoho"`

	// TokenFilePath overrides where the OAuth token is persisted.
	TokenFilePath string `yaml:"tokenFilePath,omitempty"`

	// RequestTimeoutSeconds bounds a single CRM API request.
	RequestTimeoutSeconds int `yaml:"requestTimeoutSeconds,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"logLevel,omitempty"`
}

// ZohoConfig holds the OAuth client registration and API settings.
type ZohoConfig struct {
	ClientID     string `yaml:"clientId,omitempty"`
	ClientSecret string `yaml:"clientSecret,omitempty"`

	// RedirectURI must exactly match the URI registered with Zoho.
	RedirectURI string `yaml:"redirectUri,omitempty"`

	// Scope is Zoho's comma separated scope list.
	Scope string `yaml:"scope,omitempty"`

	// AccountsDomain is the per data center accounts host
	// (accounts.zoho.com, accounts.zoho.eu, ...).
	AccountsDomain string `yaml:"accountsDomain,omitempty"`

	// APIDomain is the fallback CRM API host; token responses override it.
	APIDomain string `yaml:"apiDomain,omitempty"`

	// APIVersion is the CRM REST API version segment, e.g. "v2".
	APIVersion string `yaml:"apiVersion,omitempty"`

	// AuthTimeoutSeconds bounds the interactive authorization wait.
	AuthTimeoutSeconds int `yaml:"authTimeoutSeconds,omitempty"`
}

// RequestTimeout returns the configured request timeout as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// AuthTimeout returns the configured authorization wait as a duration.
func (z *ZohoConfig) AuthTimeout() time.Duration {
	return time.Duration(z.AuthTimeoutSeconds) * time.Second
}

// Validate checks that the settings needed to talk to Zoho are present.
func (c *Config) Validate() error {
	var missing []string
	if c.Zoho.ClientID == "" {
		missing = append(missing, "zoho.clientId (ZOHO_CLIENT_ID)")
	}
	if c.Zoho.ClientSecret == "" {
		missing = append(missing, "zoho.clientSecret (ZOHO_CLIENT_SECRET)")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}
