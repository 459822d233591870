package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"DEBUG", slog.LevelDebug, false},
		{"debug", slog.LevelDebug, false},
		{"", slog.LevelInfo, false},
		{"INFO", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"WARN", slog.LevelWarn, false},
		{" ERROR ", slog.LevelError, false},
		{"TRACE", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewHandler(t *testing.T) {
	var buf bytes.Buffer
	h, err := NewHandler(&buf, slog.LevelWarn, FormatText)
	require.NoError(t, err)
	l := slog.New(h)
	l.Info("hidden")
	l.Warn("shown", "k", "v")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "k=v")

	_, err = NewHandler(&buf, slog.LevelInfo, "xml")
	assert.Error(t, err)
}

func TestSetup(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	logger, err := Setup(&buf, "INFO", "json")
	require.NoError(t, err)
	assert.Same(t, logger, slog.Default())

	slog.Info("hello", "answer", 42)
	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "hello", rec["msg"])
	assert.Equal(t, float64(42), rec["answer"])

	_, err = Setup(&buf, "LOUD", "json")
	assert.Error(t, err)
}

func TestWithTraceID(t *testing.T) {
	var buf bytes.Buffer
	h, err := NewHandler(&buf, slog.LevelInfo, FormatJSON)
	require.NoError(t, err)

	ctx := ToContext(context.Background(), slog.New(h))
	ctx = WithTraceID(ctx, "abc123")
	FromContext(ctx).Info("ask")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "abc123", rec["trace_id"])

	assert.Same(t, slog.Default(), FromContext(context.Background()))
}
