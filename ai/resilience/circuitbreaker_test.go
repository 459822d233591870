package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errFail = errors.New("fail")

func ok(context.Context) error   { return nil }
func fail(context.Context) error { return errFail }

// fakeClock lets tests move past the open timeout without sleeping.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(threshold int) (*CircuitBreaker, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 9, 7, 13, 0, 0, 0, time.UTC)}
	cb := NewCircuitBreaker("search", threshold, time.Minute)
	cb.now = clock.now
	return cb, clock
}

func TestCircuitBreaker_ClosedState(t *testing.T) {
	cb, _ := newTestBreaker(3)
	require.NoError(t, cb.Execute(context.Background(), ok))
	assert.Equal(t, StateClosed, cb.CurrentState())
	assert.Equal(t, "search", cb.Name())
}

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb, _ := newTestBreaker(3)
	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, cb.Execute(context.Background(), fail), errFail)
	}
	assert.Equal(t, StateOpen, cb.CurrentState())

	called := false
	err := cb.Execute(context.Background(), func(context.Context) error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestCircuitBreaker_SuccessResetsCount(t *testing.T) {
	cb, _ := newTestBreaker(2)
	_ = cb.Execute(context.Background(), fail)
	_ = cb.Execute(context.Background(), ok)
	_ = cb.Execute(context.Background(), fail)
	assert.Equal(t, StateClosed, cb.CurrentState())
}

func TestCircuitBreaker_HalfOpen(t *testing.T) {
	cb, clock := newTestBreaker(1)
	var transitions []string
	cb.OnStateChange(func(_ string, from, to State) {
		transitions = append(transitions, from.String()+"->"+to.String())
	})

	_ = cb.Execute(context.Background(), fail)
	clock.advance(2 * time.Minute)
	_ = cb.Execute(context.Background(), fail) // probe fails
	assert.Equal(t, StateOpen, cb.CurrentState())

	clock.advance(2 * time.Minute)
	require.NoError(t, cb.Execute(context.Background(), ok))
	assert.Equal(t, StateClosed, cb.CurrentState())

	assert.Equal(t, []string{
		"closed->open",
		"open->half-open", "half-open->open",
		"open->half-open", "half-open->closed",
	}, transitions)
}

func TestCircuitBreaker_SingleProbe(t *testing.T) {
	cb, clock := newTestBreaker(1)
	_ = cb.Execute(context.Background(), fail)
	clock.advance(2 * time.Minute)

	release := make(chan struct{})
	started := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = cb.Execute(context.Background(), func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started
	assert.ErrorIs(t, cb.Execute(context.Background(), ok), ErrCircuitOpen)
	close(release)
	wg.Wait()
	assert.Equal(t, StateClosed, cb.CurrentState())
}

func TestCircuitBreaker_CancellationNotCounted(t *testing.T) {
	cb, _ := newTestBreaker(1)
	ctx, cancel := context.WithCancel(context.Background())
	err := cb.Execute(ctx, func(ctx context.Context) error {
		cancel()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateClosed, cb.CurrentState())

	// Already canceled: fn is not called.
	assert.ErrorIs(t, cb.Execute(ctx, fail), context.Canceled)
	assert.Equal(t, StateClosed, cb.CurrentState())
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb, _ := newTestBreaker(1)
	_ = cb.Execute(context.Background(), fail)
	cb.Reset()
	assert.Equal(t, StateClosed, cb.CurrentState())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "unknown", State(9).String())
}
