package config

const (
	// DefaultRedirectURI is the loopback callback used when none is
	// configured. It must still be registered with the Zoho client.
	DefaultRedirectURI = "http://localhost:8080/callback"

	// DefaultScope grants the CRM access the bundled tools need.
	DefaultScope = "ZohoCRM.modules.ALL,ZohoCRM.settings.ALL,ZohoCRM.users.READ,ZohoCRM.org.READ"

	// DefaultAccountsDomain is the US data center accounts host.
	DefaultAccountsDomain = "https://accounts.zoho.com"

	// DefaultAPIDomain is the fallback CRM API host.
	DefaultAPIDomain = "https://www.zohoapis.com"

	// DefaultAPIVersion is the CRM REST API version.
	DefaultAPIVersion = "v2"

	// DefaultRequestTimeoutSeconds bounds a single CRM API request.
	DefaultRequestTimeoutSeconds = 30

	// DefaultAuthTimeoutSeconds bounds the interactive authorization wait.
	DefaultAuthTimeoutSeconds = 120
)

// GetDefaultConfig returns the default configuration.
func GetDefaultConfig() Config {
	return Config{
		Zoho: ZohoConfig{
			RedirectURI:        DefaultRedirectURI,
			Scope:              DefaultScope,
			AccountsDomain:     DefaultAccountsDomain,
			APIDomain:          DefaultAPIDomain,
			APIVersion:         DefaultAPIVersion,
			AuthTimeoutSeconds: DefaultAuthTimeoutSeconds,
		},
		RequestTimeoutSeconds: DefaultRequestTimeoutSeconds,
		LogLevel:              "info",
	}
}
