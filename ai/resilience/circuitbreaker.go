// Package resilience guards calls to flaky upstreams (search engines, feeds).
package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	StateClosed   State = iota // Normal operation
	StateOpen                  // Failing, reject calls
	StateHalfOpen              // Testing if service recovered
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned when the circuit breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreaker implements the circuit breaker pattern.
// Transitions: Closed → Open (after failThreshold consecutive failures)
//
//	Open → HalfOpen (after openTimeout expires)
//	HalfOpen → Closed (on success) or Open (on failure)
//
// Only one probe runs while half-open; concurrent callers get ErrCircuitOpen.
// Context cancellation by the caller is not counted as an upstream failure.
type CircuitBreaker struct {
	name          string
	mu            sync.Mutex
	state         State
	failCount     int
	failThreshold int
	openTimeout   time.Duration
	openedAt      time.Time
	probing       bool
	onChange      func(name string, from, to State)
	now           func() time.Time
}

// NewCircuitBreaker creates a circuit breaker with the given thresholds.
func NewCircuitBreaker(name string, failThreshold int, openTimeout time.Duration) *CircuitBreaker {
	if failThreshold <= 0 {
		failThreshold = 3
	}
	if openTimeout <= 0 {
		openTimeout = 30 * time.Second
	}
	return &CircuitBreaker{
		name:          name,
		state:         StateClosed,
		failThreshold: failThreshold,
		openTimeout:   openTimeout,
		now:           time.Now,
	}
}

// OnStateChange registers a listener called (outside the lock) on every transition.
func (cb *CircuitBreaker) OnStateChange(fn func(name string, from, to State)) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.onChange = fn
}

// Name returns the breaker name.
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// Execute runs fn through the circuit breaker.
// Returns ErrCircuitOpen if the circuit is open and the timeout hasn't elapsed.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cb.mu.Lock()
	var from, to State
	changed := false
	switch cb.state {
	case StateOpen:
		if cb.now().Sub(cb.openedAt) < cb.openTimeout {
			cb.mu.Unlock()
			return ErrCircuitOpen
		}
		from, to, changed = cb.state, StateHalfOpen, true
		cb.state = StateHalfOpen
		cb.probing = true
	case StateHalfOpen:
		if cb.probing {
			cb.mu.Unlock()
			return ErrCircuitOpen
		}
		cb.probing = true
	}
	listener := cb.onChange
	cb.mu.Unlock()
	if changed && listener != nil {
		listener(cb.name, from, to)
	}

	return cb.record(ctx, fn(ctx))
}

func (cb *CircuitBreaker) record(ctx context.Context, err error) error {
	cb.mu.Lock()
	from := cb.state
	cb.probing = false

	switch {
	case err == nil:
		cb.failCount = 0
		cb.state = StateClosed
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		// The caller gave up; the upstream is not to blame.
		if cb.state == StateHalfOpen {
			cb.state = StateOpen
		}
	default:
		cb.failCount++
		if cb.state == StateHalfOpen || cb.failCount >= cb.failThreshold {
			cb.state = StateOpen
			cb.openedAt = cb.now()
		}
	}

	to := cb.state
	listener := cb.onChange
	cb.mu.Unlock()
	if from != to && listener != nil {
		listener(cb.name, from, to)
	}
	return err
}

// CurrentState returns the current state of the circuit breaker.
func (cb *CircuitBreaker) CurrentState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Reset closes the breaker and clears the failure count.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	cb.state = StateClosed
	cb.failCount = 0
	cb.probing = false
	cb.mu.Unlock()
}
