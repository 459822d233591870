// Package metrics provides Prometheus metrics export for the question-answering pipeline.
// Every Record method is safe on a nil *PrometheusExporter, so metrics stay optional.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace = "gridiron"
	subsystem = "qa"
)

// PrometheusExporter exports pipeline metrics in Prometheus format.
type PrometheusExporter struct {
	registry *prometheus.Registry

	// Ask metrics
	askLatency   *prometheus.HistogramVec
	askRequests  *prometheus.CounterVec
	asksInFlight prometheus.Gauge

	// Agent metrics
	agentLatency *prometheus.HistogramVec
	agentResults *prometheus.CounterVec
	agentErrors  *prometheus.CounterVec

	// Tool call metrics
	toolCalls   *prometheus.CounterVec
	toolLatency *prometheus.HistogramVec

	// Pipeline decisions
	decisions  *prometheus.CounterVec
	rejections *prometheus.CounterVec

	// Cache metrics
	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec

	// LLM token metrics
	llmTokens *prometheus.CounterVec

	breakerState *prometheus.GaugeVec
}

// Config configures the Prometheus exporter.
type Config struct {
	// Registry to use (if nil, creates a new one)
	Registry *prometheus.Registry

	// Buckets for latency histograms (in seconds)
	LatencyBuckets []float64

	// IncludeRuntime adds the Go runtime and process collectors.
	IncludeRuntime bool
}

// DefaultConfig returns default Prometheus configuration.
func DefaultConfig() Config {
	return Config{
		LatencyBuckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30, 60, 120},
	}
}

func counter(name, help string, labels ...string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: subsystem, Name: name, Help: help,
	}, labels)
}

func histogram(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: subsystem, Name: name, Help: help, Buckets: buckets,
	}, labels)
}

// NewPrometheusExporter creates a new Prometheus metrics exporter.
func NewPrometheusExporter(cfg Config) *PrometheusExporter {
	if len(cfg.LatencyBuckets) == 0 {
		cfg.LatencyBuckets = DefaultConfig().LatencyBuckets
	}
	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	e := &PrometheusExporter{
		registry: registry,

		askLatency:  histogram("ask_latency_seconds", "End-to-end question latency in seconds", cfg.LatencyBuckets, "mode", "winner"),
		askRequests: counter("ask_requests_total", "Total number of questions", "mode", "status"),
		asksInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "asks_in_flight", Help: "Number of questions being answered",
		}),

		agentLatency: histogram("agent_latency_seconds", "Agent latency in seconds", cfg.LatencyBuckets, "agent"),
		agentResults: counter("agent_results_total", "Agent runs by status", "agent", "status"),
		agentErrors:  counter("agent_errors_total", "Agent errors by class", "agent", "error_class"),

		toolCalls:   counter("tool_calls_total", "Total number of tool calls", "tool_name", "status"),
		toolLatency: histogram("tool_latency_seconds", "Tool call latency in seconds", cfg.LatencyBuckets, "tool_name"),

		decisions:  counter("arbitration_decisions_total", "Final answers by winning source and method", "winner", "method"),
		rejections: counter("relevance_rejections_total", "Questions refused by the relevance filter", "stage"),

		cacheHits:   counter("cache_hits_total", "Total number of cache hits", "cache_type"),
		cacheMisses: counter("cache_misses_total", "Total number of cache misses", "cache_type"),

		llmTokens: counter("llm_tokens_total", "Total LLM tokens consumed", "source", "token_type"),

		breakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "search_breaker_state", Help: "Search circuit breaker state (0 closed, 1 open, 2 half-open)",
		}, []string{"engine"}),
	}

	registry.MustRegister(
		e.askLatency, e.askRequests, e.asksInFlight,
		e.agentLatency, e.agentResults, e.agentErrors,
		e.toolCalls, e.toolLatency,
		e.decisions, e.rejections,
		e.cacheHits, e.cacheMisses,
		e.llmTokens,
		e.breakerState,
	)
	if cfg.IncludeRuntime {
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	return e
}

func status(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// RecordAsk records one answered question. winner is "database", "web" or "none".
func (e *PrometheusExporter) RecordAsk(mode, winner string, latency time.Duration, success bool) {
	if e == nil {
		return
	}
	e.askRequests.WithLabelValues(mode, status(success)).Inc()
	e.askLatency.WithLabelValues(mode, winner).Observe(latency.Seconds())
}

// AskStarted increments the in-flight gauge; call the returned func when done.
func (e *PrometheusExporter) AskStarted() func() {
	if e == nil {
		return func() {}
	}
	e.asksInFlight.Inc()
	return e.asksInFlight.Dec
}

// RecordAgent records one agent run. errorClass is empty on success.
func (e *PrometheusExporter) RecordAgent(agent string, latency time.Duration, errorClass string) {
	if e == nil {
		return
	}
	e.agentLatency.WithLabelValues(agent).Observe(latency.Seconds())
	e.agentResults.WithLabelValues(agent, status(errorClass == "")).Inc()
	if errorClass != "" {
		e.agentErrors.WithLabelValues(agent, errorClass).Inc()
	}
}

// RecordToolCall records a tool call metric.
func (e *PrometheusExporter) RecordToolCall(toolName string, latency time.Duration, success bool) {
	if e == nil {
		return
	}
	e.toolCalls.WithLabelValues(toolName, status(success)).Inc()
	e.toolLatency.WithLabelValues(toolName).Observe(latency.Seconds())
}

// RecordDecision records how the final answer was chosen.
func (e *PrometheusExporter) RecordDecision(winner, method string) {
	if e == nil {
		return
	}
	e.decisions.WithLabelValues(winner, method).Inc()
}

// RecordRejection records a question refused by the relevance filter.
func (e *PrometheusExporter) RecordRejection(stage string) {
	if e == nil {
		return
	}
	e.rejections.WithLabelValues(stage).Inc()
}

// RecordCacheHit records a cache hit.
func (e *PrometheusExporter) RecordCacheHit(cacheType string) {
	if e == nil {
		return
	}
	e.cacheHits.WithLabelValues(cacheType).Inc()
}

// RecordCacheMiss records a cache miss.
func (e *PrometheusExporter) RecordCacheMiss(cacheType string) {
	if e == nil {
		return
	}
	e.cacheMisses.WithLabelValues(cacheType).Inc()
}

// RecordLLMTokens records LLM token usage per answer source.
func (e *PrometheusExporter) RecordLLMTokens(source string, prompt, completion int) {
	if e == nil {
		return
	}
	e.llmTokens.WithLabelValues(source, "prompt").Add(float64(prompt))
	e.llmTokens.WithLabelValues(source, "completion").Add(float64(completion))
}

// SetBreakerState publishes the search circuit breaker state.
func (e *PrometheusExporter) SetBreakerState(engine string, state int) {
	if e == nil {
		return
	}
	e.breakerState.WithLabelValues(engine).Set(float64(state))
}

// Handler returns the HTTP handler for the metrics endpoint.
func (e *PrometheusExporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// GetRegistry returns the Prometheus registry.
func (e *PrometheusExporter) GetRegistry() *prometheus.Registry {
	return e.registry
}
