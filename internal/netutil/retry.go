package netutil

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"
)

// RetryPolicy controls how DoWithRetry treats transient failures.
type RetryPolicy struct {
	MaxRetries int           // additional attempts after the first one
	BaseDelay  time.Duration // backoff unit, grows quadratically per attempt
	RetryOn429 bool          // treat 429 Too Many Requests as transient
}

// DefaultRetryPolicy mirrors what the LLM providers use.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, BaseDelay: time.Second, RetryOn429: true}
}

// StatusError reports a retryable HTTP status that persisted after all attempts.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// DoWithRetry executes an HTTP request with exponential backoff retry
// for transient errors (network failures, 5xx and, when enabled, 429).
// Non-retryable responses are returned to the caller untouched.
func DoWithRetry(ctx context.Context, client *http.Client, policy RetryPolicy, buildReq func() (*http.Request, error), logger *slog.Logger) (*http.Response, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = time.Second
	}

	var lastErr error
	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff with jitter to prevent thundering herd.
			base := time.Duration(attempt*attempt) * policy.BaseDelay
			jitter := time.Duration(rand.Int64N(int64(base/2 + 1)))
			backoff := base + jitter
			logger.Warn("retrying request", "attempt", attempt+1, "backoff", backoff)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		req, err := buildReq()
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}

		resp, err := client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			if attempt < policy.MaxRetries {
				logger.Warn("request failed, will retry", "error", err)
				continue
			}
			return nil, fmt.Errorf("request failed after %d retries: %w", policy.MaxRetries, err)
		}

		if !retryableStatus(resp.StatusCode, policy) {
			return resp, nil
		}

		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		resp.Body.Close()
		lastErr = &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
		if attempt < policy.MaxRetries {
			logger.Warn("server error, will retry", "status", resp.StatusCode)
			continue
		}
		return nil, fmt.Errorf("server error after %d retries: %w", policy.MaxRetries, lastErr)
	}

	return nil, lastErr
}

func retryableStatus(code int, policy RetryPolicy) bool {
	if code >= 500 {
		return true
	}
	return code == http.StatusTooManyRequests && policy.RetryOn429
}
