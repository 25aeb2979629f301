package readwise

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// APIError is a non-2xx response from the Readwise API.
type APIError struct {
	StatusCode int
	// RetryAfter is parsed from the Retry-After header on rate-limit
	// responses; zero when the header was absent or unparseable.
	RetryAfter time.Duration
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("readwise: %s (status %d)", e.Message, e.StatusCode)
	}
	return fmt.Sprintf("readwise: unexpected status %d", e.StatusCode)
}

// IsRateLimited reports whether err is a 429 response.
func IsRateLimited(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests
}

// IsNotFound reports whether err is a 404 response.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// RetryAfter extracts the server-suggested wait from err, falling back to
// fallback when none was given.
func RetryAfter(err error, fallback time.Duration) time.Duration {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.RetryAfter > 0 {
		return apiErr.RetryAfter
	}
	return fallback
}
