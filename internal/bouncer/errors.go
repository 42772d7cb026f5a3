package bouncer

import (
	"errors"
	"fmt"
)

// Sentinel errors for provider responses that callers branch on. Auth and
// credit failures abort a whole batching cycle, rate limiting only defers the
// current call.
var (
	ErrAuthFailed          = errors.New("bouncer: authentication failed")
	ErrOutOfCredits        = errors.New("bouncer: insufficient credits")
	ErrRateLimited         = errors.New("bouncer: rate limited")
	ErrProviderUnavailable = errors.New("bouncer: provider unavailable")
	ErrNoEmails            = errors.New("bouncer: no emails to submit")
)

// APIError is a non-2xx provider response that does not map to one of the
// sentinel errors.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("bouncer: unexpected status %d: %s", e.StatusCode, e.Body)
}
