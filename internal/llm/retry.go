package llm

import (
	"context"
	"net/http"
	"time"
)

// RetryConfig controls retry behavior for transient API failures.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryConfig returns the retry configuration used by new clients.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
	}
}

// shouldRetry reports whether a response status warrants another attempt.
// Rate limits and server-side errors are transient; everything else is not.
func shouldRetry(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// calculateBackoff returns the wait before the given attempt (0-based),
// doubling each time and capped at MaxBackoff.
func (rc RetryConfig) calculateBackoff(attempt int) time.Duration {
	backoff := rc.InitialBackoff
	for i := 0; i < attempt; i++ {
		backoff *= 2
		if backoff >= rc.MaxBackoff {
			return rc.MaxBackoff
		}
	}
	return backoff
}

// doWithRetry issues the request built by makeReq, retrying on transient
// statuses and network errors. Each attempt rebuilds the request so the
// body can be re-read. A non-retryable status is returned to the caller
// as a response, not an error.
func doWithRetry(ctx context.Context, client *http.Client, rc RetryConfig, makeReq func() (*http.Request, error)) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= rc.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := rc.calculateBackoff(attempt - 1)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}

		req, err := makeReq()
		if err != nil {
			return nil, err
		}

		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}

		if !shouldRetry(resp.StatusCode) {
			return resp, nil
		}

		resp.Body.Close()
		lastErr = &Error{
			Message: http.StatusText(resp.StatusCode),
			Type:    "transient",
			Code:    http.StatusText(resp.StatusCode),
		}
	}

	return nil, lastErr
}
