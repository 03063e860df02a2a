// Package resilience keeps scoring runs alive through a flaky upstream.
// It bounds retries around individual API calls and sheds calls through a
// breaker once the API is clearly down, so a dead upstream fails the rest
// of a batch fast instead of burning a full retry cycle per record.
package resilience

import (
	"context"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// RetryConfig bounds the retry loop around a single call.
type RetryConfig struct {
	// Attempts is the total number of tries, the first one included.
	Attempts int

	// BaseDelay seeds the backoff. Each retry doubles the delay up to
	// MaxDelay.
	BaseDelay time.Duration
	MaxDelay  time.Duration

	// Jitter shifts each delay by up to this fraction in either direction
	// so concurrent runs do not retry in lockstep.
	Jitter float64

	// Retryable decides which errors are worth another try. Nil means
	// IsTransient.
	Retryable func(err error) bool

	// OnRetry runs before each backoff sleep.
	OnRetry func(attempt int, err error)
}

// ScoringRetry is the retry policy for scoring calls. Anthropic rate
// limits clear within seconds, so delays start at one second and the
// whole loop gives up well inside a batch timeout.
func ScoringRetry() RetryConfig {
	return RetryConfig{
		Attempts:  4,
		BaseDelay: time.Second,
		MaxDelay:  15 * time.Second,
		Jitter:    0.2,
	}
}

// DoVal runs fn until it succeeds, attempts run out, a non-retryable
// error comes back, or ctx is done.
func DoVal[T any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	cfg = cfg.normalized()
	retryable := cfg.Retryable
	if retryable == nil {
		retryable = IsTransient
	}

	var zero T
	for attempt := 1; ; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		if ctx.Err() != nil || !retryable(err) || attempt >= cfg.Attempts {
			return zero, err
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err)
		}

		timer := time.NewTimer(cfg.delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, err
		case <-timer.C:
		}
	}
}

// LogRetries returns an OnRetry hook that logs each retry at warn level.
func LogRetries(operation string) func(int, error) {
	return func(attempt int, err error) {
		zap.L().Warn("retrying "+operation,
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
}

func (cfg RetryConfig) normalized() RetryConfig {
	if cfg.Attempts <= 0 {
		cfg.Attempts = 4
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = time.Second
	}
	if cfg.MaxDelay < cfg.BaseDelay {
		cfg.MaxDelay = cfg.BaseDelay
	}
	if cfg.Jitter < 0 {
		cfg.Jitter = 0
	}
	return cfg
}

// delay doubles BaseDelay per completed attempt and caps at MaxDelay.
func (cfg RetryConfig) delay(attempt int) time.Duration {
	d := cfg.BaseDelay
	for i := 1; i < attempt && d < cfg.MaxDelay; i++ {
		d *= 2
	}
	if d > cfg.MaxDelay {
		d = cfg.MaxDelay
	}
	if cfg.Jitter > 0 {
		shift := (rand.Float64()*2 - 1) * cfg.Jitter * float64(d)
		d += time.Duration(shift)
	}
	if d < 0 {
		d = 0
	}
	return d
}
