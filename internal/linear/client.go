// Package linear is a thin client for the remote tracker's GraphQL API.
// It owns transport concerns only: authentication, timeouts, retry with
// backoff on transient failures, and error classification. No business
// logic lives here.
package linear

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// DefaultEndpoint is the production GraphQL endpoint.
const DefaultEndpoint = "https://api.linear.app/graphql"

const (
	requestTimeout = 30 * time.Second
	maxAttempts    = 3
	backoffBase    = time.Second
)

// Client executes GraphQL queries and mutations against the tracker.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	backoff    time.Duration
}

// NewClient creates a client for the production endpoint. The apiKey is
// sent in the Authorization header on every request.
func NewClient(apiKey string) *Client {
	return NewClientWithEndpoint(apiKey, DefaultEndpoint)
}

// NewClientWithEndpoint creates a client against a custom endpoint.
// Used by tests to point at a mock server.
func NewClientWithEndpoint(apiKey, endpoint string) *Client {
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		backoff: backoffBase,
	}
}

// gqlRequest is the POSTed GraphQL document envelope.
type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// gqlResponse is the standard { data, errors } response envelope.
type gqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []gqlErrorItem  `json:"errors"`
}

type gqlErrorItem struct {
	Message    string `json:"message"`
	Extensions struct {
		Code string `json:"code"`
	} `json:"extensions"`
}

// execute runs one GraphQL operation. Transient failures (429, 5xx,
// network errors, timeouts, retryable GraphQL error codes) are retried
// up to maxAttempts with increasing backoff; everything else surfaces
// immediately as a classified error. On success the response's data
// object is unmarshaled into result.
func (c *Client) execute(
	ctx context.Context,
	query string,
	variables map[string]any,
	result any,
) error {
	payload, err := json.Marshal(gqlRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("marshaling graphql request: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(
			ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload),
		)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Authorization", c.apiKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = classifyTransportError(err)
			if !IsRetryable(lastErr) || attempt == maxAttempts {
				return lastErr
			}
			if err := c.wait(ctx, c.backoff*time.Duration(attempt)); err != nil {
				return err
			}
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return &NetworkError{Err: fmt.Errorf("reading response body: %w", readErr)}
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			wait := retryAfterDuration(resp, attempt, c.backoff)
			lastErr = &RateLimitError{RetryAfter: wait, Attempts: attempt}
			if attempt == maxAttempts {
				return lastErr
			}
			if err := c.wait(ctx, wait); err != nil {
				return err
			}
			continue

		case resp.StatusCode == http.StatusUnauthorized ||
			resp.StatusCode == http.StatusForbidden:
			return &AuthError{
				StatusCode: resp.StatusCode,
				Message:    "check your API key",
			}

		case resp.StatusCode >= 500:
			lastErr = &ServerError{
				StatusCode: resp.StatusCode,
				Body:       truncate(string(body), 200),
			}
			if attempt == maxAttempts {
				return lastErr
			}
			if err := c.wait(ctx, c.backoff*time.Duration(attempt)); err != nil {
				return err
			}
			continue

		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			return &HTTPError{
				StatusCode: resp.StatusCode,
				Body:       truncate(string(body), 200),
			}
		}

		var envelope gqlResponse
		if err := json.Unmarshal(body, &envelope); err != nil {
			return fmt.Errorf("unmarshaling graphql response: %w", err)
		}

		if len(envelope.Errors) > 0 {
			item := envelope.Errors[0]
			gqlErr := &GraphQLError{
				Code:    item.Extensions.Code,
				Message: item.Message,
			}
			if gqlErr.Retryable() && attempt < maxAttempts {
				lastErr = gqlErr
				if err := c.wait(ctx, c.backoff*time.Duration(attempt)); err != nil {
					return err
				}
				continue
			}
			return gqlErr
		}

		if result == nil {
			return nil
		}
		if err := json.Unmarshal(envelope.Data, result); err != nil {
			return fmt.Errorf("unmarshaling graphql data: %w", err)
		}
		return nil
	}

	return lastErr
}

// wait sleeps for d or returns early when the context is done.
func (c *Client) wait(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// classifyTransportError maps a transport failure onto the error
// taxonomy: deadline expiry becomes TimeoutError, everything else
// NetworkError.
func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Err: err}
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return &TimeoutError{Err: err}
	}
	return &NetworkError{Err: err}
}

// retryAfterDuration reads the Retry-After header and computes a wait
// duration. Falls back to linear backoff scaled by attempt number when
// the header is missing or malformed.
func retryAfterDuration(resp *http.Response, attempt int, base time.Duration) time.Duration {
	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil && seconds >= 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return base * time.Duration(attempt)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
