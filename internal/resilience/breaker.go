package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// BreakerState is the state of a CircuitBreaker.
type BreakerState int

const (
	// BreakerClosed lets calls through.
	BreakerClosed BreakerState = iota
	// BreakerOpen rejects calls until the cooldown passes.
	BreakerOpen
	// BreakerHalfOpen lets one trial call through.
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

// ErrBreakerOpen is returned for calls rejected by an open breaker.
var ErrBreakerOpen = eris.New("circuit breaker is open")

// CircuitBreaker stops calling an upstream after Threshold consecutive
// failures, then allows a single trial call once Cooldown has passed.
type CircuitBreaker struct {
	threshold int
	cooldown  time.Duration

	mu        sync.Mutex
	state     BreakerState
	failures  int
	trialing  bool
	openedAt  time.Time
	nowFunc   func() time.Time
	onChanged func(from, to BreakerState)
}

// NewCircuitBreaker creates a closed breaker. Non-positive arguments fall back
// to 5 failures and 30s.
func NewCircuitBreaker(threshold int, cooldown time.Duration) *CircuitBreaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &CircuitBreaker{
		threshold: threshold,
		cooldown:  cooldown,
		nowFunc:   time.Now,
	}
}

// OnStateChange registers a callback for state transitions.
func (cb *CircuitBreaker) OnStateChange(fn func(from, to BreakerState)) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.onChanged = fn
}

// Execute runs fn unless the breaker is open. While half-open only one call
// runs at a time; the others get ErrBreakerOpen.
func Execute[T any](ctx context.Context, cb *CircuitBreaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	trial, err := cb.allow()
	if err != nil {
		return zero, err
	}
	val, err := fn(ctx)
	cb.record(err, trial)
	return val, err
}

// State returns the current state.
func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == BreakerOpen && cb.nowFunc().Sub(cb.openedAt) >= cb.cooldown {
		return BreakerHalfOpen
	}
	return cb.state
}

// allow reports whether a call may run and whether it is the half-open trial call.
func (cb *CircuitBreaker) allow() (bool, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case BreakerClosed:
		return false, nil
	case BreakerHalfOpen:
		if cb.trialing {
			return false, ErrBreakerOpen
		}
		cb.trialing = true
		return true, nil
	}
	if cb.nowFunc().Sub(cb.openedAt) < cb.cooldown {
		return false, ErrBreakerOpen
	}
	cb.transition(BreakerHalfOpen)
	cb.trialing = true
	return true, nil
}

func (cb *CircuitBreaker) record(err error, trial bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if trial {
		cb.trialing = false
	}

	if err == nil {
		cb.failures = 0
		if cb.state != BreakerClosed {
			cb.transition(BreakerClosed)
		}
		return
	}

	cb.failures++
	if cb.state == BreakerHalfOpen || cb.failures >= cb.threshold {
		cb.openedAt = cb.nowFunc()
		if cb.state != BreakerOpen {
			cb.transition(BreakerOpen)
		}
	}
}

func (cb *CircuitBreaker) transition(to BreakerState) {
	from := cb.state
	cb.state = to
	if cb.onChanged != nil {
		cb.onChanged(from, to)
	}
}
