package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errOverloaded = eris.New(`529 {"type":"overloaded_error"}`)

func failingCall(calls *int) func(ctx context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		*calls++
		return "", errOverloaded
	}
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	b := NewBreaker(3, time.Minute)
	ctx := context.Background()

	calls := 0
	for i := 0; i < 3; i++ {
		_, err := ExecuteVal(ctx, b, failingCall(&calls))
		require.ErrorIs(t, err, errOverloaded)
	}
	assert.Equal(t, BreakerOpen, b.State())

	// Shed without touching the upstream.
	_, err := ExecuteVal(ctx, b, failingCall(&calls))
	assert.ErrorIs(t, err, ErrBreakerOpen)
	assert.Equal(t, 3, calls)
}

func TestBreakerClosesAfterCooldownSuccess(t *testing.T) {
	b := NewBreaker(2, time.Minute)
	ctx := context.Background()

	now := time.Now()
	b.now = func() time.Time { return now }

	calls := 0
	for i := 0; i < 2; i++ {
		ExecuteVal(ctx, b, failingCall(&calls)) //nolint:errcheck
	}
	require.Equal(t, BreakerOpen, b.State())

	now = now.Add(2 * time.Minute)
	require.Equal(t, BreakerHalfOpen, b.State())

	scored := false
	_, err := ExecuteVal(ctx, b, func(ctx context.Context) (string, error) {
		scored = true
		return `{"relevance_score": 7}`, nil
	})
	require.NoError(t, err)
	assert.True(t, scored)
	assert.Equal(t, BreakerClosed, b.State())
}

func TestBreakerReopensWhenStillFailing(t *testing.T) {
	b := NewBreaker(2, time.Minute)
	ctx := context.Background()

	now := time.Now()
	b.now = func() time.Time { return now }

	calls := 0
	for i := 0; i < 2; i++ {
		ExecuteVal(ctx, b, failingCall(&calls)) //nolint:errcheck
	}

	now = now.Add(2 * time.Minute)
	_, err := ExecuteVal(ctx, b, failingCall(&calls))
	require.ErrorIs(t, err, errOverloaded)
	assert.Equal(t, BreakerOpen, b.State())

	// Back to shedding until the next cooldown.
	_, err = ExecuteVal(ctx, b, failingCall(&calls))
	assert.ErrorIs(t, err, ErrBreakerOpen)
	assert.Equal(t, 3, calls)
}

func TestBreakerIgnoresContextCancellation(t *testing.T) {
	b := NewBreaker(1, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ExecuteVal(context.Background(), b, func(_ context.Context) (string, error) {
		return "", eris.Wrap(ctx.Err(), "anthropic: create message")
	})
	require.Error(t, err)
	assert.Equal(t, BreakerClosed, b.State())
}
