package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUpstream = errors.New("upstream down")

func fail(context.Context) (int, error) { return 0, errUpstream }
func succeed(context.Context) (int, error) { return 1, nil }

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker(2, time.Minute)
	ctx := context.Background()

	_, err := Execute(ctx, cb, fail)
	require.ErrorIs(t, err, errUpstream)
	assert.Equal(t, BreakerClosed, cb.State())

	_, err = Execute(ctx, cb, fail)
	require.ErrorIs(t, err, errUpstream)
	assert.Equal(t, BreakerOpen, cb.State())

	called := false
	_, err = Execute(ctx, cb, func(context.Context) (int, error) {
		called = true
		return 1, nil
	})
	require.ErrorIs(t, err, ErrBreakerOpen)
	assert.False(t, called)
}

func TestCircuitBreaker_HalfOpenTrial(t *testing.T) {
	now := time.Now()
	cb := NewCircuitBreaker(1, time.Second)
	cb.nowFunc = func() time.Time { return now }

	var transitions []string
	cb.OnStateChange(func(from, to BreakerState) {
		transitions = append(transitions, from.String()+"->"+to.String())
	})

	ctx := context.Background()
	_, _ = Execute(ctx, cb, fail)
	assert.Equal(t, BreakerOpen, cb.State())

	now = now.Add(2 * time.Second)
	assert.Equal(t, BreakerHalfOpen, cb.State())

	// Failed trial reopens.
	_, _ = Execute(ctx, cb, fail)
	assert.Equal(t, BreakerOpen, cb.State())

	now = now.Add(2 * time.Second)
	v, err := Execute(ctx, cb, succeed)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.Equal(t, BreakerClosed, cb.State())

	assert.Equal(t, []string{
		"closed->open",
		"open->half-open",
		"half-open->open",
		"open->half-open",
		"half-open->closed",
	}, transitions)
}

func TestCircuitBreaker_HalfOpenAdmitsOneCall(t *testing.T) {
	now := time.Now()
	cb := NewCircuitBreaker(1, time.Second)
	cb.nowFunc = func() time.Time { return now }
	ctx := context.Background()

	_, _ = Execute(ctx, cb, fail)
	now = now.Add(2 * time.Second)

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := Execute(ctx, cb, func(context.Context) (int, error) {
			close(started)
			<-release
			return 1, nil
		})
		done <- err
	}()
	<-started

	called := false
	_, err := Execute(ctx, cb, func(context.Context) (int, error) {
		called = true
		return 1, nil
	})
	require.ErrorIs(t, err, ErrBreakerOpen)
	assert.False(t, called)
	assert.Equal(t, BreakerHalfOpen, cb.State())

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, BreakerClosed, cb.State())

	_, err = Execute(ctx, cb, succeed)
	require.NoError(t, err)
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	cb := NewCircuitBreaker(2, time.Minute)
	ctx := context.Background()

	_, _ = Execute(ctx, cb, fail)
	_, _ = Execute(ctx, cb, succeed)
	_, _ = Execute(ctx, cb, fail)
	assert.Equal(t, BreakerClosed, cb.State())
}

func TestNewCircuitBreaker_Defaults(t *testing.T) {
	cb := NewCircuitBreaker(0, 0)
	assert.Equal(t, 5, cb.threshold)
	assert.Equal(t, 30*time.Second, cb.cooldown)
	assert.Equal(t, "unknown", BreakerState(42).String())
}
