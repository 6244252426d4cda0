package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUpstream = errors.New("upstream failure")

func fastBreaker(name string) *CircuitBreaker {
	return NewCircuitBreaker(name, Config{
		MaxRequests:      2,
		Timeout:          20 * time.Millisecond,
		FailureThreshold: 3,
		SuccessThreshold: 2,
	})
}

func fail(cb *CircuitBreaker) error {
	return cb.Execute(context.Background(), func() error { return errUpstream })
}

func succeed(cb *CircuitBreaker) error {
	return cb.Execute(context.Background(), func() error { return nil })
}

func TestStartsClosed(t *testing.T) {
	cb := fastBreaker("test")
	assert.Equal(t, StateClosed, cb.State())
	require.NoError(t, succeed(cb))
}

func TestOpensAfterConsecutiveFailures(t *testing.T) {
	cb := fastBreaker("test")

	for i := 0; i < 3; i++ {
		require.ErrorIs(t, fail(cb), errUpstream)
	}
	assert.Equal(t, StateOpen, cb.State())

	err := succeed(cb)
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestSuccessResetsFailureStreak(t *testing.T) {
	cb := fastBreaker("test")

	require.Error(t, fail(cb))
	require.Error(t, fail(cb))
	require.NoError(t, succeed(cb))
	require.Error(t, fail(cb))
	require.Error(t, fail(cb))

	assert.Equal(t, StateClosed, cb.State())
}

func TestHalfOpenAfterTimeout(t *testing.T) {
	cb := fastBreaker("test")

	for i := 0; i < 3; i++ {
		require.Error(t, fail(cb))
	}
	require.Equal(t, StateOpen, cb.State())

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, StateHalfOpen, cb.State())
}

func TestHalfOpenSuccessCloses(t *testing.T) {
	cb := fastBreaker("test")

	for i := 0; i < 3; i++ {
		require.Error(t, fail(cb))
	}
	time.Sleep(30 * time.Millisecond)

	// Two consecutive successes meet the threshold.
	require.NoError(t, succeed(cb))
	require.NoError(t, succeed(cb))

	assert.Equal(t, StateClosed, cb.State())
}

func TestHalfOpenFailureReopens(t *testing.T) {
	cb := fastBreaker("test")

	for i := 0; i < 3; i++ {
		require.Error(t, fail(cb))
	}
	time.Sleep(30 * time.Millisecond)

	require.ErrorIs(t, fail(cb), errUpstream)
	assert.Equal(t, StateOpen, cb.State())
}

func TestHalfOpenLimitsProbes(t *testing.T) {
	cb := fastBreaker("test")

	for i := 0; i < 3; i++ {
		require.Error(t, fail(cb))
	}
	time.Sleep(30 * time.Millisecond)

	blocked := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = cb.Execute(context.Background(), func() error {
			close(blocked)
			<-release
			return nil
		})
	}()

	<-blocked
	require.NoError(t, succeed(cb))

	// Both probe slots are spent until a state change starts a new
	// generation.
	err := succeed(cb)
	assert.ErrorIs(t, err, ErrTooManyRequests)
	close(release)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "open", StateOpen.String())
}
