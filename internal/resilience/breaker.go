package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrBreakerOpen is returned while calls are being shed.
var ErrBreakerOpen = eris.New("breaker open: upstream still failing")

// BreakerState is the current mode of a Breaker.
type BreakerState int

const (
	// BreakerClosed lets every call through.
	BreakerClosed BreakerState = iota
	// BreakerOpen sheds every call until the cooldown passes.
	BreakerOpen
	// BreakerHalfOpen lets one probe call through to test recovery.
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Breaker opens after a run of consecutive failures and stays open for a
// cooldown. The first call after the cooldown acts as a probe: success
// closes the breaker, failure reopens it.
type Breaker struct {
	threshold int
	cooldown  time.Duration

	mu       sync.Mutex
	state    BreakerState
	failures int
	openedAt time.Time

	now func() time.Time
}

// NewBreaker creates a Breaker that opens after threshold consecutive
// failures and probes again after cooldown.
func NewBreaker(threshold int, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 3
	}
	if cooldown <= 0 {
		cooldown = time.Minute
	}
	return &Breaker{
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
	}
}

// ExecuteVal runs fn unless the breaker is open. Context cancellation is
// not counted as an upstream failure.
func ExecuteVal[T any](ctx context.Context, b *Breaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if !b.allow() {
		return zero, ErrBreakerOpen
	}

	val, err := fn(ctx)
	b.record(err)
	if err != nil {
		return zero, err
	}
	return val, nil
}

// State returns the breaker's current mode.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == BreakerOpen && b.now().Sub(b.openedAt) >= b.cooldown {
		return BreakerHalfOpen
	}
	return b.state
}

func (b *Breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != BreakerOpen {
		return true
	}
	if b.now().Sub(b.openedAt) < b.cooldown {
		return false
	}
	b.setState(BreakerHalfOpen)
	return true
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return
	}

	if err == nil {
		if b.state == BreakerHalfOpen {
			b.setState(BreakerClosed)
		}
		b.failures = 0
		return
	}

	b.failures++
	b.openedAt = b.now()
	if b.state == BreakerHalfOpen || b.failures >= b.threshold {
		b.setState(BreakerOpen)
	}
}

func (b *Breaker) setState(to BreakerState) {
	if b.state == to {
		return
	}
	zap.L().Warn("breaker state change",
		zap.Stringer("from", b.state),
		zap.Stringer("to", to),
	)
	b.state = to
}
