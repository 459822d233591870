// Package events carries agent progress events from the agents to whoever is listening,
// typically the orchestrator building a reasoning trail.
package events

import (
	"context"
	"log/slog"
	"runtime/debug"
)

// Event types emitted by the agents.
const (
	EventToolStep     = "tool_step"     // database agent tool call; data is agent.Step
	EventSearch       = "search"        // web agent search; data is SearchEvent
	EventBreakerState = "breaker_state" // search circuit breaker transition; data is string
)

// SearchEvent reports one web search attempt.
type SearchEvent struct {
	Engine  string
	Query   string
	Results int
	Err     error
}

// Callback is the unified event callback type.
// It receives an event type string and arbitrary event data.
type Callback func(eventType string, eventData any) error

// SafeCallback is a callback variant that does not propagate errors.
// Errors are logged internally instead of being returned to callers.
type SafeCallback func(eventType string, eventData any)

// NoopCallback is a callback that does nothing.
var NoopCallback Callback = func(string, any) error { return nil }

// WrapSafe converts a Callback to a SafeCallback.
// Errors from the original callback are logged but not propagated.
// Returns nil if the input callback is nil.
func WrapSafe(cb Callback) SafeCallback {
	if cb == nil {
		return nil
	}
	return func(eventType string, eventData any) {
		if err := cb(eventType, eventData); err != nil {
			slog.Warn("event callback error (swallowed)",
				"event_type", eventType,
				"error", err,
				"stack", string(debug.Stack()))
		}
	}
}

type callbackKey struct{}

// WithCallback attaches cb to ctx.
func WithCallback(ctx context.Context, cb Callback) context.Context {
	if cb == nil {
		return ctx
	}
	return context.WithValue(ctx, callbackKey{}, cb)
}

// Emit sends an event to the callback attached to ctx, if any.
func Emit(ctx context.Context, eventType string, eventData any) {
	cb, _ := ctx.Value(callbackKey{}).(Callback)
	if safe := WrapSafe(cb); safe != nil {
		safe(eventType, eventData)
	}
}
