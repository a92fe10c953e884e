package oauth

import (
	"errors"
	"fmt"
)

// ErrNotAuthenticated is returned when no token record exists locally.
// The caller must run the interactive authorization flow.
var ErrNotAuthenticated = errors.New("not authenticated: run the authenticate_zoho tool or `zohomcp auth login`")

// ErrReauthRequired is returned when the refresh token was rejected by the
// provider (revoked or expired). This is distinct from a transient network
// failure: the correct recovery is to re-run the interactive flow, not retry.
var ErrReauthRequired = errors.New("reauthentication required: refresh token rejected, run `zohomcp auth login`")

// ListenerBindError indicates the local redirect listener could not bind its
// port. The redirect URI's port must be free for the flow to run.
type ListenerBindError struct {
	Addr string
	Err  error
}

// Error implements the error interface.
func (e *ListenerBindError) Error() string {
	return fmt.Sprintf("failed to bind OAuth callback listener on %s: %v (is the port already in use?)", e.Addr, e.Err)
}

// Unwrap returns the underlying bind error.
func (e *ListenerBindError) Unwrap() error {
	return e.Err
}

// AuthorizationDeniedError indicates the interactive flow did not produce an
// authorization code: the user denied the request, the wait timed out, or the
// callback state did not match.
type AuthorizationDeniedError struct {
	Code        string
	Description string
}

// Error implements the error interface.
func (e *AuthorizationDeniedError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("authorization denied: %s (%s)", e.Code, e.Description)
	}
	return fmt.Sprintf("authorization denied: %s", e.Code)
}

// Timeout reports whether the denial was caused by the wait timing out.
func (e *AuthorizationDeniedError) Timeout() bool {
	return e.Code == "timeout"
}

// TokenExchangeError indicates the provider rejected the code-for-token
// exchange. The provider's response body is carried verbatim: the most common
// causes (redirect URI mismatch, truncated client secret) are only
// diagnosable from that body.
type TokenExchangeError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *TokenExchangeError) Error() string {
	return fmt.Sprintf("token exchange failed with status %d: %s", e.StatusCode, e.Body)
}
