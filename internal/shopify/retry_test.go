package shopify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryWaitsAtLeastRetryAfter(t *testing.T) {
	var waits []time.Duration
	p := RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		MaxDelay:    2 * time.Millisecond,
		Sleep: func(_ context.Context, d time.Duration) error {
			waits = append(waits, d)
			return nil
		},
	}
	calls := 0
	err := p.Do(context.Background(), func(context.Context) *Error {
		calls++
		return &Error{Kind: KindThrottled, RetryAfter: 5 * time.Second}
	})
	require.NotNil(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, err.Attempts)
	require.Len(t, waits, 2)
	for _, w := range waits {
		assert.GreaterOrEqual(t, w, 5*time.Second)
	}
}

func TestRetryOnlyThrottling(t *testing.T) {
	for _, k := range []Kind{KindNetwork, KindAuth, KindProtocol, KindUser, KindNotFound} {
		calls := 0
		p := RetryPolicy{Sleep: func(context.Context, time.Duration) error { return nil }}
		err := p.Do(context.Background(), func(context.Context) *Error {
			calls++
			return &Error{Kind: k}
		})
		require.NotNil(t, err)
		assert.Equal(t, 1, calls, k.String())
		assert.Equal(t, 1, err.Attempts)
	}
}

func TestRetryAttemptBounds(t *testing.T) {
	assert.Equal(t, DefaultMaxAttempts, RetryPolicy{}.normalized().MaxAttempts)
	assert.Equal(t, 10, RetryPolicy{MaxAttempts: 50}.normalized().MaxAttempts)
	assert.Equal(t, 1, RetryPolicy{MaxAttempts: 1}.normalized().MaxAttempts)
}

func TestRetryStopsWhenContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	p := RetryPolicy{MaxAttempts: 5}
	err := p.Do(ctx, func(context.Context) *Error {
		calls++
		cancel()
		return &Error{Kind: KindThrottled, RetryAfter: time.Hour}
	})
	require.NotNil(t, err)
	assert.Equal(t, KindThrottled, err.Kind)
	assert.Equal(t, 1, calls)
}

func TestRetryOnRetryObserver(t *testing.T) {
	var seen []int
	p := RetryPolicy{
		MaxAttempts: 4,
		Sleep:       func(context.Context, time.Duration) error { return nil },
		OnRetry:     func(attempt int, _ time.Duration, _ *Error) { seen = append(seen, attempt) },
	}
	calls := 0
	err := p.Do(context.Background(), func(context.Context) *Error {
		calls++
		if calls < 3 {
			return &Error{Kind: KindThrottled}
		}
		return nil
	})
	require.Nil(t, err)
	assert.Equal(t, []int{1, 2}, seen)
}
