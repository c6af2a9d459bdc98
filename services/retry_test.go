package services

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statusResponse(code int) *http.Response {
	return &http.Response{StatusCode: code, Body: io.NopCloser(strings.NewReader(""))}
}

// recordSleeps returns a Sleep hook that records each backoff without waiting
func recordSleeps(waits *[]time.Duration) func(context.Context, time.Duration) error {
	return func(ctx context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return nil
	}
}

func TestChatRetryPolicy_Backoff(t *testing.T) {
	p := ChatRetryPolicy()
	assert.Equal(t, 3, p.Attempts)
	assert.Equal(t, 2*time.Second, p.Backoff(1))
	assert.Equal(t, 4*time.Second, p.Backoff(2))
}

func TestFileRetryPolicy_Backoff(t *testing.T) {
	p := FileRetryPolicy()
	assert.Equal(t, 3, p.Attempts)
	assert.Equal(t, 1*time.Second, p.Backoff(1))
	assert.Equal(t, 2*time.Second, p.Backoff(2))
}

func TestIsServerUnavailable(t *testing.T) {
	assert.True(t, IsServerUnavailable(http.StatusInternalServerError))
	assert.True(t, IsServerUnavailable(http.StatusServiceUnavailable))
	assert.False(t, IsServerUnavailable(http.StatusTooManyRequests))
	assert.False(t, IsServerUnavailable(http.StatusBadGateway))
}

func TestRetryPolicy_RetriesUnavailableUntilExhausted(t *testing.T) {
	var waits []time.Duration
	p := ChatRetryPolicy()
	p.Sleep = recordSleeps(&waits)

	calls := 0
	resp, err := p.Do(context.Background(), func(ctx context.Context) (*http.Response, error) {
		calls++
		return statusResponse(http.StatusServiceUnavailable), nil
	})

	require.Error(t, err)
	assert.Nil(t, resp)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, waits)
	assert.True(t, IsStatus(err, http.StatusServiceUnavailable))
	assert.Contains(t, err.Error(), "after 3 attempts")
}

func TestRetryPolicy_SucceedsAfterFailure(t *testing.T) {
	var waits []time.Duration
	p := FileRetryPolicy()
	p.Sleep = recordSleeps(&waits)

	calls := 0
	resp, err := p.Do(context.Background(), func(ctx context.Context) (*http.Response, error) {
		calls++
		if calls == 1 {
			return statusResponse(http.StatusInternalServerError), nil
		}
		return statusResponse(http.StatusOK), nil
	})

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, calls)
	assert.Equal(t, []time.Duration{time.Second}, waits)
}

func TestRetryPolicy_NonRetryableStatusReturnsImmediately(t *testing.T) {
	var waits []time.Duration
	p := ChatRetryPolicy()
	p.Sleep = recordSleeps(&waits)

	calls := 0
	resp, err := p.Do(context.Background(), func(ctx context.Context) (*http.Response, error) {
		calls++
		return statusResponse(http.StatusTooManyRequests), nil
	})

	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, 1, calls)
	assert.Empty(t, waits)
}

func TestRetryPolicy_RetriesTransportErrors(t *testing.T) {
	var waits []time.Duration
	p := ChatRetryPolicy()
	p.Sleep = recordSleeps(&waits)

	dialErr := errors.New("connection reset")
	calls := 0
	_, err := p.Do(context.Background(), func(ctx context.Context) (*http.Response, error) {
		calls++
		return nil, dialErr
	})

	assert.ErrorIs(t, err, dialErr)
	assert.Equal(t, 3, calls)
}

func TestRetryPolicy_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := ChatRetryPolicy().Do(ctx, func(ctx context.Context) (*http.Response, error) {
		calls++
		return statusResponse(http.StatusOK), nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func TestRetryPolicy_CancelDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := ChatRetryPolicy()

	calls := 0
	_, err := p.Do(ctx, func(ctx context.Context) (*http.Response, error) {
		calls++
		cancel()
		return statusResponse(http.StatusServiceUnavailable), nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
