package linear

import (
	"errors"
	"fmt"
	"time"
)

// RateLimitError indicates the tracker rejected a request with HTTP 429
// and the client exhausted its retry budget. The caller may retry the
// whole operation later.
type RateLimitError struct {
	RetryAfter time.Duration
	Attempts   int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited after %d attempts (retry after %s)",
		e.Attempts, e.RetryAfter)
}

// Retryable reports that the operation can be retried by the caller.
func (e *RateLimitError) Retryable() bool { return true }

// AuthError indicates authentication failed (HTTP 401/403). Never retried.
type AuthError struct {
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed (%d): %s", e.StatusCode, e.Message)
}

func (e *AuthError) Retryable() bool { return false }

// ServerError indicates a 5xx response that persisted through retries.
type ServerError struct {
	StatusCode int
	Body       string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error (%d): %s", e.StatusCode, e.Body)
}

func (e *ServerError) Retryable() bool { return true }

// NetworkError wraps a transport-level failure (DNS, connection refused).
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error   { return e.Err }
func (e *NetworkError) Retryable() bool { return true }

// TimeoutError indicates the per-request deadline expired.
type TimeoutError struct {
	Err error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("request timed out: %v", e.Err)
}

func (e *TimeoutError) Unwrap() error   { return e.Err }
func (e *TimeoutError) Retryable() bool { return true }

// GraphQLError is an application-level error returned in the response
// body's errors array. Retryability depends on the error code.
type GraphQLError struct {
	Code    string
	Message string
}

func (e *GraphQLError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("graphql error [%s]: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("graphql error: %s", e.Message)
}

// Retryable reports whether the error code marks a transient condition.
func (e *GraphQLError) Retryable() bool {
	switch e.Code {
	case "RATELIMITED", "INTERNAL_SERVER_ERROR", "TIMEOUT", "SERVICE_UNAVAILABLE":
		return true
	}
	return false
}

// HTTPError is any other non-2xx response. Never retried.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

func (e *HTTPError) Retryable() bool { return false }

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// IsRateLimited reports whether err is a terminal rate-limit error.
func IsRateLimited(err error) bool {
	var rlErr *RateLimitError
	return errors.As(err, &rlErr)
}

// IsRetryable reports whether err carries a retryable classification.
func IsRetryable(err error) bool {
	var r interface{ Retryable() bool }
	if errors.As(err, &r) {
		return r.Retryable()
	}
	return false
}
