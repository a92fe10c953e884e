package tokenstore

import (
	"time"
)

// DefaultExpiryMargin is the safety margin applied when checking token
// validity. It accounts for clock skew, network latency, and requests that
// are in flight when the token crosses its expiry.
const DefaultExpiryMargin = 60 * time.Second

// DefaultTokenType is used when the provider omits token_type in its response.
const DefaultTokenType = "Bearer"

// Record is the persisted authentication state for the Zoho account.
// It is fully replaced on every refresh; partial updates are never written.
type Record struct {
	// AccessToken is the short-lived bearer credential for API calls.
	AccessToken string `json:"access_token"`

	// RefreshToken is the long-lived credential used to obtain new access
	// tokens without user interaction.
	RefreshToken string `json:"refresh_token,omitempty"`

	// APIDomain is the base URL for CRM calls. Zoho returns a region-specific
	// domain with every token response.
	APIDomain string `json:"api_domain"`

	// ExpiresAt is the absolute expiry timestamp, derived from the
	// provider's expires_in at exchange time.
	ExpiresAt time.Time `json:"expires_at"`

	// TokenType is typically "Bearer".
	TokenType string `json:"token_type"`

	// Scope is the granted scope list, comma-separated (Zoho convention).
	Scope string `json:"scope,omitempty"`

	// CreatedAt is when this record was stored.
	CreatedAt time.Time `json:"created_at"`
}

// Valid reports whether the access token can still be used, applying the
// given safety margin before the recorded expiry. A record without an expiry
// timestamp is treated as expired; refreshing proactively beats finding out
// via a rejected API call.
func (r *Record) Valid(margin time.Duration) bool {
	if r == nil || r.AccessToken == "" || r.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().Add(margin).Before(r.ExpiresAt)
}

// AuthorizationValue returns the value for the Authorization header.
func (r *Record) AuthorizationValue() string {
	tokenType := r.TokenType
	if tokenType == "" {
		tokenType = DefaultTokenType
	}
	return tokenType + " " + r.AccessToken
}

// Store is the persistence boundary for the single token record.
// Load returns (nil, nil) when no record exists; a malformed record is
// treated as absent rather than fatal.
type Store interface {
	Load() (*Record, error)
	Save(record *Record) error
	Clear() error
}
