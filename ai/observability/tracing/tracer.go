// Package tracing records per-stage timings for a single ask.
package tracing

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Span is one timed stage of a trace.
type Span struct {
	Name     string
	Start    time.Time
	Duration time.Duration
	Err      string
	Metadata map[string]any
	ended    bool
}

// Tracer collects spans for one trace. Safe for concurrent use: the database and
// web agents record their stages in parallel.
type Tracer struct {
	mu      sync.Mutex
	traceID string
	spans   []*Span
	enabled bool
	now     func() time.Time
}

// NewTracer creates a tracer for traceID.
func NewTracer(traceID string) *Tracer {
	return &Tracer{traceID: traceID, enabled: true, now: time.Now}
}

// TraceID returns the trace identifier, "" for a disabled tracer.
func (t *Tracer) TraceID() string {
	if t == nil {
		return ""
	}
	return t.traceID
}

// StartSpan begins a new span and attaches the tracer to ctx.
func (t *Tracer) StartSpan(ctx context.Context, name string) (context.Context, *Span) {
	if t == nil || !t.enabled {
		return ctx, &Span{Name: name}
	}
	span := &Span{Name: name, Start: t.now(), Metadata: make(map[string]any)}
	t.mu.Lock()
	t.spans = append(t.spans, span)
	t.mu.Unlock()
	return WithTracer(ctx, t), span
}

// End completes span. Ending twice keeps the first duration.
func (t *Tracer) End(span *Span) {
	if t == nil || !t.enabled || span == nil {
		return
	}
	t.mu.Lock()
	if span.ended {
		t.mu.Unlock()
		return
	}
	span.ended = true
	span.Duration = t.now().Sub(span.Start)
	t.mu.Unlock()

	slog.Debug("span completed",
		"trace_id", t.traceID,
		"name", span.Name,
		"duration_ms", span.Duration.Milliseconds(),
	)
}

// SetMetadata adds metadata to span.
func (t *Tracer) SetMetadata(span *Span, key string, value any) {
	if t == nil || !t.enabled || span == nil {
		return
	}
	t.mu.Lock()
	span.Metadata[key] = value
	t.mu.Unlock()
}

// RecordError records err on span.
func (t *Tracer) RecordError(span *Span, err error) {
	if t == nil || !t.enabled || span == nil || err == nil {
		return
	}
	t.mu.Lock()
	span.Err = err.Error()
	t.mu.Unlock()
}

// Spans returns a snapshot of the recorded spans in start order.
func (t *Tracer) Spans() []Span {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Span, 0, len(t.spans))
	for _, s := range t.spans {
		cp := *s
		cp.Metadata = make(map[string]any, len(s.Metadata))
		for k, v := range s.Metadata {
			cp.Metadata[k] = v
		}
		out = append(out, cp)
	}
	return out
}

// Summary renders one "name: 12ms" line per span.
func (t *Tracer) Summary() string {
	var b strings.Builder
	for _, s := range t.Spans() {
		fmt.Fprintf(&b, "%s: %dms", s.Name, s.Duration.Milliseconds())
		if !s.ended {
			b.WriteString(" (unfinished)")
		}
		if s.Err != "" {
			fmt.Fprintf(&b, " error=%q", s.Err)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

type tracerKey struct{}

// WithTracer attaches t to ctx.
func WithTracer(ctx context.Context, t *Tracer) context.Context {
	return context.WithValue(ctx, tracerKey{}, t)
}

// FromContext extracts the tracer from context. The fallback is a disabled tracer.
func FromContext(ctx context.Context) *Tracer {
	if t, ok := ctx.Value(tracerKey{}).(*Tracer); ok {
		return t
	}
	return &Tracer{enabled: false}
}

// WithSpan wraps fn with a span named name.
func WithSpan(ctx context.Context, tracer *Tracer, name string, fn func(context.Context) error) error {
	if tracer == nil || !tracer.enabled {
		return fn(ctx)
	}
	ctx, span := tracer.StartSpan(ctx, name)
	defer tracer.End(span)

	err := fn(ctx)
	tracer.RecordError(span, err)
	return err
}
