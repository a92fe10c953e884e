// Package crm is a thin authenticated client for the Zoho CRM REST API.
// It injects a fresh access token into every request and recovers from a
// single server-side 401 by forcing a token refresh and retrying once.
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"zohomcp/internal/oauth"
	"zohomcp/internal/tokenstore"
	"zohomcp/pkg/logging"
)

// DefaultAPIVersion is the CRM REST API version used when none is
// configured.
const DefaultAPIVersion = "v2"

// DefaultRequestTimeout bounds a single CRM API request.
const DefaultRequestTimeout = 30 * time.Second

// TokenProvider supplies valid access tokens for CRM requests. It is
// implemented by oauth.Flow.
type TokenProvider interface {
	// EnsureRecord returns a token record valid for at least the expiry
	// margin, refreshing it first if needed.
	EnsureRecord(ctx context.Context) (*tokenstore.Record, error)

	// ForceRefresh refreshes even an unexpired token. staleToken is the
	// access token that was just rejected server side.
	ForceRefresh(ctx context.Context, staleToken string) (*tokenstore.Record, error)
}

// Client calls the Zoho CRM REST API.
type Client struct {
	tokens     TokenProvider
	httpClient *http.Client
	apiVersion string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for API requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithAPIVersion overrides the CRM REST API version segment of request URLs.
func WithAPIVersion(version string) Option {
	return func(c *Client) {
		if version != "" {
			c.apiVersion = version
		}
	}
}

// NewClient creates a CRM client backed by the given token provider.
func NewClient(tokens TokenProvider, opts ...Option) *Client {
	c := &Client{
		tokens:     tokens,
		httpClient: &http.Client{Timeout: DefaultRequestTimeout},
		apiVersion: DefaultAPIVersion,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Call performs one CRM API request and returns the raw response body.
// path is relative to the /crm/<version>/ prefix, e.g. "Leads" or
// "settings/modules". body, when non-nil, is JSON encoded. A 204 response
// comes back as an empty JSON object so callers always get valid JSON.
func (c *Client) Call(ctx context.Context, method, path string, query url.Values, body interface{}) (json.RawMessage, error) {
	record, err := c.tokens.EnsureRecord(ctx)
	if err != nil {
		return nil, err
	}

	result, status, err := c.do(ctx, record, method, path, query, body)
	if err != nil {
		return nil, err
	}
	if status != http.StatusUnauthorized {
		return result, nil
	}

	// The provider rejected a token that looked valid locally. Force one
	// refresh and retry exactly once.
	logging.Debug("crm", "Got 401 from %s %s, forcing token refresh", method, path)
	record, err = c.tokens.ForceRefresh(ctx, record.AccessToken)
	if err != nil {
		return nil, err
	}

	result, status, err = c.do(ctx, record, method, path, query, body)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized {
		return nil, fmt.Errorf("%w: request rejected after token refresh", oauth.ErrReauthRequired)
	}
	return result, nil
}

// Get is shorthand for Call with GET and no body.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	return c.Call(ctx, http.MethodGet, path, query, nil)
}

// do performs a single HTTP round trip. A 401 is reported via the status
// return so Call can drive the refresh-and-retry; every other non-2xx
// status becomes a typed error.
func (c *Client) do(ctx context.Context, record *tokenstore.Record, method, path string, query url.Values, body interface{}) (json.RawMessage, int, error) {
	requestURL := record.APIDomain + "/crm/" + c.apiVersion + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", record.AuthorizationValue())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("CRM request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read CRM response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, http.StatusUnauthorized, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, 0, &RateLimitedError{RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
	case resp.StatusCode == http.StatusNoContent:
		return json.RawMessage("{}"), resp.StatusCode, nil
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if len(data) == 0 {
			return json.RawMessage("{}"), resp.StatusCode, nil
		}
		return json.RawMessage(data), resp.StatusCode, nil
	default:
		return nil, 0, remoteError(resp.StatusCode, data)
	}
}

// remoteError builds a RemoteError, lifting code and message out of Zoho's
// error payload when present. Zoho wraps some errors in a data array and
// returns others flat.
func remoteError(status int, body []byte) *RemoteError {
	remote := &RemoteError{
		StatusCode: status,
		Body:       strings.TrimSpace(string(body)),
	}

	var flat struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Data    []struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &flat); err == nil {
		if flat.Code != "" {
			remote.Code = flat.Code
			remote.Message = flat.Message
		} else if len(flat.Data) > 0 && flat.Data[0].Code != "" {
			remote.Code = flat.Data[0].Code
			remote.Message = flat.Data[0].Message
		}
	}
	return remote
}

// parseRetryAfter handles both delay-seconds and HTTP-date forms.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}
