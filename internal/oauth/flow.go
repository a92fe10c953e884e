// Package oauth implements the Zoho OAuth 2.0 authorization code flow with
// a local loopback callback, plus token refresh for long-running use.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"zohomcp/internal/tokenstore"
	"zohomcp/pkg/logging"
)

// DefaultAccountsDomain is the Zoho accounts host used when none is
// configured. Zoho runs separate accounts hosts per data center (.eu, .in,
// .com.au, ...), so multi-DC users must override it.
const DefaultAccountsDomain = "https://accounts.zoho.com"

// DefaultAPIDomain is the CRM API host used until the provider reports one.
// Token responses carry an api_domain field that takes precedence.
const DefaultAPIDomain = "https://www.zohoapis.com"

// Config holds the OAuth client settings for a Zoho registration.
type Config struct {
	// ClientID and ClientSecret identify the registered Zoho client.
	ClientID     string
	ClientSecret string

	// RedirectURI is the loopback callback address. It must match the URI
	// registered with Zoho exactly.
	RedirectURI string

	// Scope is the Zoho scope string. Zoho separates multiple scopes with
	// commas, not spaces, so the whole string travels as one value.
	Scope string

	// AccountsDomain is the Zoho accounts host for the user's data center.
	AccountsDomain string

	// APIDomain is the fallback CRM API host, used only when a token
	// response omits api_domain.
	APIDomain string

	// AuthTimeout bounds how long Authorize waits for the browser callback.
	AuthTimeout time.Duration

	// HTTPClient is used for token endpoint requests. Defaults to a client
	// with a 30 second timeout.
	HTTPClient *http.Client
}

func (c *Config) accountsDomain() string {
	if c.AccountsDomain != "" {
		return strings.TrimRight(c.AccountsDomain, "/")
	}
	return DefaultAccountsDomain
}

func (c *Config) apiDomain() string {
	if c.APIDomain != "" {
		return strings.TrimRight(c.APIDomain, "/")
	}
	return DefaultAPIDomain
}

func (c *Config) authTimeout() time.Duration {
	if c.AuthTimeout > 0 {
		return c.AuthTimeout
	}
	return DefaultAuthTimeout
}

func (c *Config) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 30 * time.Second}
}

// Flow drives the authorization code flow and keeps the stored token fresh.
// All methods are safe for concurrent use; concurrent refresh attempts are
// coalesced into a single token endpoint request.
type Flow struct {
	config *Config
	store  tokenstore.Store
	oauth  *oauth2.Config
	group  singleflight.Group
	margin time.Duration

	// output receives the human-facing authorization prompts. It defaults
	// to stderr so that a flow triggered from the running MCP server never
	// writes into the stdio JSON-RPC stream on stdout.
	output io.Writer

	// openBrowser is swappable in tests.
	openBrowser func(url string) error
}

// NewFlow creates a flow for the given client configuration, persisting
// tokens through store.
func NewFlow(config *Config, store tokenstore.Store) *Flow {
	accounts := config.accountsDomain()
	return &Flow{
		config: config,
		store:  store,
		oauth: &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			RedirectURL:  config.RedirectURI,
			// Zoho wants the comma separated scope list as a single value,
			// so it must not be split into elements that would be joined
			// with spaces.
			Scopes: []string{config.Scope},
			Endpoint: oauth2.Endpoint{
				AuthURL:  accounts + "/oauth/v2/auth",
				TokenURL: accounts + "/oauth/v2/token",
			},
		},
		margin:      tokenstore.DefaultExpiryMargin,
		output:      os.Stderr,
		openBrowser: OpenBrowser,
	}
}

// SetOutput redirects the authorization prompts to w. The CLI points this at
// stdout; the default of stderr keeps stdio MCP transports clean.
func (f *Flow) SetOutput(w io.Writer) {
	f.output = w
}

// AuthURL returns the provider authorization URL for the given state nonce.
// access_type=offline and prompt=consent make Zoho issue a refresh token
// even when the user has authorized this client before.
func (f *Flow) AuthURL(state string) string {
	return f.oauth.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

// Authorize runs the full interactive authorization flow: it starts the
// loopback callback server, opens the browser, waits for the redirect,
// exchanges the code, and persists the resulting token record.
func (f *Flow) Authorize(ctx context.Context) (*tokenstore.Record, error) {
	state := uuid.New().String()

	callback, err := NewCallbackServer(f.config.RedirectURI)
	if err != nil {
		return nil, err
	}

	waitCtx, cancel := context.WithTimeout(ctx, f.config.authTimeout())
	defer cancel()

	if err := callback.Start(waitCtx); err != nil {
		return nil, err
	}
	defer callback.Stop()

	authURL := f.AuthURL(state)
	if err := f.openBrowser(authURL); err != nil {
		logging.Warn("oauth", "Could not open browser: %v", err)
		fmt.Fprintf(f.output, "Open this URL in your browser to authorize access:\n\n  %s\n\n", authURL)
	} else {
		fmt.Fprintf(f.output, "Opened browser for authorization. If nothing happened, visit:\n\n  %s\n\n", authURL)
	}

	result, err := callback.WaitForCallback(waitCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &AuthorizationDeniedError{
				Code:        "timeout",
				Description: fmt.Sprintf("no callback received within %s", f.config.authTimeout()),
			}
		}
		return nil, err
	}

	if result.IsError() {
		return nil, &AuthorizationDeniedError{
			Code:        result.Error,
			Description: result.ErrorDescription,
		}
	}
	if result.State != state {
		return nil, &AuthorizationDeniedError{
			Code:        "state_mismatch",
			Description: "callback state does not match the authorization request",
		}
	}
	if result.Code == "" {
		return nil, &AuthorizationDeniedError{
			Code:        "missing_code",
			Description: "callback carried neither a code nor an error",
		}
	}

	token, err := f.oauth.Exchange(f.clientContext(ctx), result.Code)
	if err != nil {
		return nil, exchangeError(err)
	}

	record := f.recordFromToken(token, "")
	if record.RefreshToken == "" {
		logging.Warn("oauth", "Provider issued no refresh token; access will expire without renewal")
	}
	if err := f.store.Save(record); err != nil {
		return nil, fmt.Errorf("failed to persist token: %w", err)
	}

	logging.Info("oauth", "Authorization complete, token stored (expires %s)",
		record.ExpiresAt.Format(time.RFC3339))
	return record, nil
}

// EnsureValidToken returns an access token that is valid for at least the
// expiry margin, refreshing it first if needed.
func (f *Flow) EnsureValidToken(ctx context.Context) (string, error) {
	record, err := f.EnsureRecord(ctx)
	if err != nil {
		return "", err
	}
	return record.AccessToken, nil
}

// EnsureRecord returns the stored token record, refreshing it first when it
// is expired or about to expire.
func (f *Flow) EnsureRecord(ctx context.Context) (*tokenstore.Record, error) {
	record, err := f.store.Load()
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrNotAuthenticated
	}
	if record.Valid(f.margin) {
		return record, nil
	}
	return f.refresh(ctx, record.AccessToken)
}

// ForceRefresh refreshes the stored token even if it has not expired yet.
// staleToken is the access token the caller just saw rejected; if another
// goroutine already replaced it, the fresh record is returned without a
// second network round trip.
func (f *Flow) ForceRefresh(ctx context.Context, staleToken string) (*tokenstore.Record, error) {
	return f.refresh(ctx, staleToken)
}

// refresh exchanges the stored refresh token for a new access token.
// Concurrent callers coalesce onto one request via singleflight.
func (f *Flow) refresh(ctx context.Context, staleToken string) (*tokenstore.Record, error) {
	v, err, _ := f.group.Do("refresh", func() (interface{}, error) {
		record, err := f.store.Load()
		if err != nil {
			return nil, err
		}
		if record == nil {
			return nil, ErrNotAuthenticated
		}
		// Another caller may have refreshed while this one waited.
		if record.AccessToken != staleToken && record.Valid(f.margin) {
			return record, nil
		}
		if record.RefreshToken == "" {
			return nil, fmt.Errorf("%w: no refresh token stored", ErrReauthRequired)
		}

		logging.Debug("oauth", "Refreshing access token")
		source := f.oauth.TokenSource(f.clientContext(ctx), &oauth2.Token{
			RefreshToken: record.RefreshToken,
		})
		token, err := source.Token()
		if err != nil {
			var retrieveErr *oauth2.RetrieveError
			if errors.As(err, &retrieveErr) {
				// The refresh token itself was rejected. Only a new
				// interactive authorization can recover from that.
				return nil, fmt.Errorf("%w: provider rejected refresh (%s)",
					ErrReauthRequired, strings.TrimSpace(string(retrieveErr.Body)))
			}
			return nil, fmt.Errorf("token refresh failed: %w", err)
		}

		fresh := f.recordFromToken(token, record.RefreshToken)
		fresh.CreatedAt = record.CreatedAt
		if err := f.store.Save(fresh); err != nil {
			return nil, fmt.Errorf("failed to persist refreshed token: %w", err)
		}
		logging.Debug("oauth", "Access token refreshed (expires %s)",
			fresh.ExpiresAt.Format(time.RFC3339))
		return fresh, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*tokenstore.Record), nil
}

// Revoke invalidates the refresh token at the provider and clears local
// state. Provider-side revocation is best effort: local state is cleared
// even when the revoke call fails.
func (f *Flow) Revoke(ctx context.Context) error {
	record, err := f.store.Load()
	if err != nil {
		return err
	}

	if record != nil && record.RefreshToken != "" {
		revokeURL := f.config.accountsDomain() + "/oauth/v2/token/revoke"
		form := url.Values{"token": {record.RefreshToken}}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, revokeURL,
			strings.NewReader(form.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			resp, err := f.config.httpClient().Do(req)
			if err != nil {
				logging.Warn("oauth", "Provider-side revoke failed: %v", err)
			} else {
				resp.Body.Close()
				if resp.StatusCode >= 300 {
					logging.Warn("oauth", "Provider-side revoke returned status %d", resp.StatusCode)
				}
			}
		}
	}

	return f.store.Clear()
}

// recordFromToken converts an oauth2 token into a persistent record.
// prevRefresh fills in the refresh token when a refresh response omits it;
// Zoho keeps the original refresh token valid in that case. api_domain from
// the response is authoritative because Zoho can migrate accounts between
// data centers.
func (f *Flow) recordFromToken(token *oauth2.Token, prevRefresh string) *tokenstore.Record {
	refresh := token.RefreshToken
	if refresh == "" {
		refresh = prevRefresh
	}

	apiDomain := f.config.apiDomain()
	if v, ok := token.Extra("api_domain").(string); ok && v != "" {
		apiDomain = strings.TrimRight(v, "/")
	}

	tokenType := token.TokenType
	if tokenType == "" {
		tokenType = tokenstore.DefaultTokenType
	}

	scope := f.config.Scope
	if v, ok := token.Extra("scope").(string); ok && v != "" {
		scope = v
	}

	return &tokenstore.Record{
		AccessToken:  token.AccessToken,
		RefreshToken: refresh,
		APIDomain:    apiDomain,
		ExpiresAt:    token.Expiry,
		TokenType:    tokenType,
		Scope:        scope,
		CreatedAt:    time.Now(),
	}
}

// clientContext arranges for oauth2 calls to use the configured HTTP client.
func (f *Flow) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, f.config.httpClient())
}

func exchangeError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		status := 0
		if retrieveErr.Response != nil {
			status = retrieveErr.Response.StatusCode
		}
		return &TokenExchangeError{
			StatusCode: status,
			Body:       strings.TrimSpace(string(retrieveErr.Body)),
		}
	}
	return fmt.Errorf("token exchange failed: %w", err)
}
