package cmd

import (
	"net/http"

	"zohomcp/internal/config"
	"zohomcp/internal/crm"
	"zohomcp/internal/oauth"
	"zohomcp/internal/tokenstore"
)

// stack bundles the wired-up dependencies shared by the serve and auth
// commands.
type stack struct {
	config *config.Config
	store  *tokenstore.FileStore
	flow   *oauth.Flow
	crm    *crm.Client
}

// buildStack loads configuration from configPath and constructs the token
// store, OAuth flow and CRM client on top of it.
func buildStack(configPath string) (*stack, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	tokenPath := cfg.TokenFilePath
	if tokenPath == "" {
		tokenPath, err = tokenstore.DefaultTokenPath()
		if err != nil {
			return nil, err
		}
	}
	store, err := tokenstore.NewFileStore(tokenPath)
	if err != nil {
		return nil, err
	}

	httpClient := &http.Client{Timeout: cfg.RequestTimeout()}
	flow := oauth.NewFlow(&oauth.Config{
		ClientID:       cfg.Zoho.ClientID,
		ClientSecret:   cfg.Zoho.ClientSecret,
		RedirectURI:    cfg.Zoho.RedirectURI,
		Scope:          cfg.Zoho.Scope,
		AccountsDomain: cfg.Zoho.AccountsDomain,
		APIDomain:      cfg.Zoho.APIDomain,
		AuthTimeout:    cfg.Zoho.AuthTimeout(),
		HTTPClient:     httpClient,
	}, store)

	crmClient := crm.NewClient(flow,
		crm.WithHTTPClient(httpClient),
		crm.WithAPIVersion(cfg.Zoho.APIVersion),
	)

	return &stack{
		config: &cfg,
		store:  store,
		flow:   flow,
		crm:    crmClient,
	}, nil
}
