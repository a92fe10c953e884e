package crm

import (
	"fmt"
	"time"
)

// RateLimitedError indicates the CRM API returned 429. RetryAfter carries
// the provider's suggested wait when the Retry-After header was present,
// zero otherwise.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited by Zoho CRM, retry after %s", e.RetryAfter)
	}
	return "rate limited by Zoho CRM"
}

// RemoteError is a non-2xx CRM API response other than the auth and rate
// limit cases that get their own types. Body holds the raw response so the
// provider's own diagnostics survive intact; Code and Message are filled in
// when the body parses as a Zoho error payload.
type RemoteError struct {
	StatusCode int
	Code       string
	Message    string
	Body       string
}

func (e *RemoteError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("Zoho CRM API error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("Zoho CRM API error %d: %s", e.StatusCode, e.Body)
}
