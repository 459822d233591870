package orchestrator

import (
	"fmt"
	"sync"

	agent "github.com/hrygo/gridiron/ai/agents"
	"github.com/hrygo/gridiron/ai/agents/events"
	"github.com/hrygo/gridiron/ai/agents/tools"
	"github.com/hrygo/gridiron/internal/strutil"
)

// trail collects reasoning steps from the pipeline and from agent events.
// Agents run concurrently, so appends are locked.
type trail struct {
	mu    sync.Mutex
	steps []string
}

func (t *trail) add(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.steps = append(t.steps, fmt.Sprintf(format, args...))
}

func (t *trail) snapshot() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.steps...)
}

// callback turns agent events into trail entries.
func (t *trail) callback(eventType string, data any) error {
	switch eventType {
	case events.EventToolStep:
		step, ok := data.(agent.Step)
		if !ok {
			return fmt.Errorf("unexpected %s payload %T", eventType, data)
		}
		if step.Err != nil {
			t.add("database agent: %s failed: %v", step.Tool, step.Err)
			return nil
		}
		if step.Tool == tools.RunQueryName || step.Tool == tools.CheckQueryName {
			t.add("database agent: %s %s", step.Tool, strutil.Truncate(step.Input, 160))
			return nil
		}
		t.add("database agent: %s", step.Tool)
	case events.EventSearch:
		ev, ok := data.(events.SearchEvent)
		if !ok {
			return fmt.Errorf("unexpected %s payload %T", eventType, data)
		}
		if ev.Err != nil {
			t.add("web agent: %s search for %q failed: %v", ev.Engine, ev.Query, ev.Err)
			return nil
		}
		t.add("web agent: %s search for %q returned %d results", ev.Engine, ev.Query, ev.Results)
	case events.EventBreakerState:
		t.add("web agent: search circuit breaker is %v", data)
	}
	return nil
}
