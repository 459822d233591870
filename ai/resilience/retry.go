package resilience

import (
	"context"
	"time"
)

// RetryPolicy decides whether and when to retry.
type RetryPolicy struct {
	Attempts    int                           // total attempts including the first (default 2)
	ShouldRetry func(err error) bool          // nil retries nothing
	Delay       func(err error) time.Duration // nil means no wait
	MaxDelay    time.Duration                 // caps Delay (default 5s)
}

// Retry runs fn until it succeeds, the policy refuses, or attempts run out.
// The last error is returned.
func Retry(ctx context.Context, p RetryPolicy, fn func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = 2
	}
	maxDelay := p.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 5 * time.Second
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if attempt == attempts || p.ShouldRetry == nil || !p.ShouldRetry(err) {
			return err
		}
		var wait time.Duration
		if p.Delay != nil {
			wait = min(p.Delay(err), maxDelay)
		}
		if wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return err
			case <-timer.C:
			}
		}
	}
	return err
}
