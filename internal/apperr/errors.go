// Package apperr defines the error taxonomy shared across the client.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound marks a single-resource fetch that hit a 404.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized marks a 401 that survived one refresh-and-retry cycle.
	// Stored credentials are cleared before it is returned.
	ErrUnauthorized = errors.New("authentication required")
	// ErrNetwork marks a request that never reached the server, or timed
	// out, after retries were exhausted.
	ErrNetwork = errors.New("network error")
	// ErrNoUser is returned by mutating operations when no signed-in user
	// could be resolved. No network call is attempted.
	ErrNoUser = errors.New("no authenticated user")
)

// APIError is any non-2xx backend response that is not covered by a
// sentinel above. Message is extracted from the response body; Code is the
// optional machine-readable code some endpoints return.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// Retryable reports whether the error represents a transient server-side
// failure worth retrying.
func (e *APIError) Retryable() bool {
	return e.Status >= 500
}

// IsRetryable reports whether err should be retried with backoff: network
// failures and 5xx responses qualify, everything else does not.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrNetwork) {
		return true
	}
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Retryable()
}
