package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"time"
)

// StatusError reports a non-2xx HTTP response
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// RetryPolicy describes how many times a request is attempted, how long to
// wait between attempts and which status codes are worth another try.
type RetryPolicy struct {
	Attempts  int
	Backoff   func(failedAttempts int) time.Duration
	Retryable func(statusCode int) bool
	// Sleep waits for d; nil means a context-aware timer
	Sleep func(ctx context.Context, d time.Duration) error
}

// IsServerUnavailable reports the statuses worth retrying against the AI service
func IsServerUnavailable(statusCode int) bool {
	return statusCode == http.StatusInternalServerError || statusCode == http.StatusServiceUnavailable
}

// ChatRetryPolicy waits 2s then 4s between three attempts
func ChatRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts: 3,
		Backoff: func(failedAttempts int) time.Duration {
			return time.Duration(math.Pow(2, float64(failedAttempts))) * time.Second
		},
		Retryable: IsServerUnavailable,
	}
}

// FileRetryPolicy waits 1s then 2s between three attempts
func FileRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts: 3,
		Backoff: func(failedAttempts int) time.Duration {
			return time.Duration(failedAttempts) * time.Second
		},
		Retryable: IsServerUnavailable,
	}
}

// Do runs fn until it returns a 2xx response, a non-retryable status, or the
// attempt budget is spent. Transport errors count as retryable failures. A
// returned response is owned by the caller; exhausted retries return an error.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) (*http.Response, error)) (*http.Response, error) {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resp, err := fn(ctx)
		if err == nil {
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return resp, nil
			}
			if p.Retryable == nil || !p.Retryable(resp.StatusCode) {
				return resp, nil
			}
			resp.Body.Close()
			lastErr = &StatusError{StatusCode: resp.StatusCode}
		} else {
			lastErr = err
		}

		if attempt == attempts {
			break
		}

		var wait time.Duration
		if p.Backoff != nil {
			wait = p.Backoff(attempt)
		}
		slog.Warn("Request failed, retrying",
			"attempt", attempt,
			"maxAttempts", attempts,
			"backoff", wait.String(),
			"error", lastErr,
		)
		if err := p.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", attempts, lastErr)
}

func (p RetryPolicy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
