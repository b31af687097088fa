package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrUnavailable is returned while the circuit breaker refuses calls
var ErrUnavailable = errors.New("storefront API unavailable")

// APIError is a response whose envelope carried success:false
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error (status %d)", e.StatusCode)
	}
	return fmt.Sprintf("api error (status %d): %s", e.StatusCode, e.Message)
}

// IsUnauthorized reports whether the server rejected the credentials or token
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// IsNotFound reports a 404 response
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// TimeoutError is returned when a call does not finish in time. Timeout is the effective limit:
// the client timeout or the caller's earlier deadline.
type TimeoutError struct {
	Op      string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: timed out after %s", e.Op, e.Timeout)
}

// Unwrap lets callers match with errors.Is(err, context.DeadlineExceeded)
func (e *TimeoutError) Unwrap() error {
	return context.DeadlineExceeded
}
