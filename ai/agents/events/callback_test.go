package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmit(t *testing.T) {
	var got []string
	ctx := WithCallback(context.Background(), func(eventType string, data any) error {
		got = append(got, eventType)
		if data == "fail" {
			return errors.New("listener failed")
		}
		return nil
	})

	Emit(ctx, EventSearch, SearchEvent{Engine: "duckduckgo", Results: 3})
	Emit(ctx, EventBreakerState, "fail") // error is swallowed
	assert.Equal(t, []string{EventSearch, EventBreakerState}, got)

	// No listener attached.
	Emit(context.Background(), EventToolStep, nil)
	assert.Equal(t, context.Background(), WithCallback(context.Background(), nil))
}

func TestWrapSafe(t *testing.T) {
	assert.Nil(t, WrapSafe(nil))
	assert.NotPanics(t, func() { WrapSafe(NoopCallback)("x", nil) })
}
