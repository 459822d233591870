package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lithammer/shortuuid/v4"

	agent "github.com/hrygo/gridiron/ai/agents"
	"github.com/hrygo/gridiron/ai/agents/events"
	"github.com/hrygo/gridiron/ai/arbitration"
	"github.com/hrygo/gridiron/ai/cache"
	"github.com/hrygo/gridiron/ai/core/embedding"
	"github.com/hrygo/gridiron/ai/metrics"
	"github.com/hrygo/gridiron/ai/observability/logging"
	"github.com/hrygo/gridiron/ai/observability/tracing"
	"github.com/hrygo/gridiron/ai/routing"
	"github.com/hrygo/gridiron/internal/strutil"
	"github.com/hrygo/gridiron/store"
)

// ErrAgentUnavailable is returned when the requested mode needs an agent that is not configured.
var ErrAgentUnavailable = errors.New("agent not configured")

// History persists answered questions and finds earlier answers to similar ones.
// *store.Store satisfies it.
type History interface {
	CreateQueryRecord(ctx context.Context, create *store.QueryRecord) (*store.QueryRecord, error)
	FindSimilarQueries(ctx context.Context, opts *store.SimilarQueryOptions) ([]*store.QueryRecordWithScore, error)
}

// Config tunes the orchestrator.
type Config struct {
	DefaultMode         Mode
	CacheTTL            time.Duration // answer cache entry lifetime (default 10m)
	SimilarityThreshold float32       // minimum cosine similarity to reuse an answer (default 0.95)
	SimilarMaxAge       time.Duration // how far back similar answers are reused (default 7 days)
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		DefaultMode:         ModeHybrid,
		CacheTTL:            10 * time.Minute,
		SimilarityThreshold: 0.95,
		SimilarMaxAge:       7 * 24 * time.Hour,
	}
}

// Orchestrator answers questions with the database and web agents.
type Orchestrator struct {
	relevance routing.RelevanceChecker
	sources   routing.SourceSelector
	database  agent.Agent
	web       agent.Agent
	arbiter   *arbitration.Arbiter

	history  History
	embedder embedding.Service
	answers  cache.Backend
	metrics  *metrics.PrometheusExporter

	cfg Config
	now func() time.Time
}

// Option configures the orchestrator.
type Option func(*Orchestrator)

// WithHistory records every answer and enables similar-question reuse when an embedder is set.
func WithHistory(h History) Option {
	return func(o *Orchestrator) { o.history = h }
}

// WithEmbedder enables question embeddings.
func WithEmbedder(e embedding.Service) Option {
	return func(o *Orchestrator) { o.embedder = e }
}

// WithAnswerCache caches final answers per normalized question and mode.
func WithAnswerCache(b cache.Backend) Option {
	return func(o *Orchestrator) { o.answers = b }
}

// WithMetrics publishes ask, agent and arbitration metrics.
func WithMetrics(m *metrics.PrometheusExporter) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithConfig overrides the defaults. Zero fields keep their defaults.
func WithConfig(cfg Config) Option {
	return func(o *Orchestrator) {
		if cfg.DefaultMode != "" {
			o.cfg.DefaultMode = cfg.DefaultMode
		}
		if cfg.CacheTTL > 0 {
			o.cfg.CacheTTL = cfg.CacheTTL
		}
		if cfg.SimilarityThreshold > 0 {
			o.cfg.SimilarityThreshold = cfg.SimilarityThreshold
		}
		if cfg.SimilarMaxAge > 0 {
			o.cfg.SimilarMaxAge = cfg.SimilarMaxAge
		}
	}
}

// New creates an orchestrator. Either agent may be nil; modes needing it then fail
// with ErrAgentUnavailable (hybrid and route degrade to the agent that exists).
func New(relevance routing.RelevanceChecker, sources routing.SourceSelector, database, web agent.Agent, arbiter *arbitration.Arbiter, opts ...Option) *Orchestrator {
	if arbiter == nil {
		arbiter = arbitration.NewArbiter(nil, arbitration.DefaultMargin)
	}
	o := &Orchestrator{
		relevance: relevance,
		sources:   sources,
		database:  database,
		web:       web,
		arbiter:   arbiter,
		cfg:       DefaultConfig(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// run is the per-ask state shared by the pipeline stages.
type run struct {
	req    Request
	res    *Result
	key    string
	trail  *trail
	tracer *tracing.Tracer
	vector []float32
}

// Ask answers one question.
//
// The returned error covers request problems (empty question, unknown mode, missing agent)
// and cancellation. Agent failures are reported in Result.Err with a disclaimer answer.
func (o *Orchestrator) Ask(ctx context.Context, req Request) (*Result, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	if req.Mode == "" {
		req.Mode = o.cfg.DefaultMode
	}
	mode, err := ParseMode(string(req.Mode))
	if err != nil {
		return nil, err
	}
	if err := o.checkAgents(mode); err != nil {
		return nil, err
	}

	start := o.now()
	defer o.metrics.AskStarted()()

	traceID := shortuuid.New()
	r := &run{
		req:    req,
		key:    "answer:" + string(mode) + ":" + strutil.NormalizeQuestion(question),
		trail:  &trail{},
		tracer: tracing.NewTracer(traceID),
		res:    &Result{TraceID: traceID, Question: question, Mode: mode},
	}
	ctx = logging.WithTraceID(ctx, traceID)
	ctx = tracing.WithTracer(ctx, r.tracer)
	ctx = events.WithCallback(ctx, r.trail.callback)
	log := logging.FromContext(ctx)
	log.Info("ask started", "mode", mode, "question", strutil.Truncate(question, 80))

	res, err := o.pipeline(ctx, r)
	if err != nil {
		log.Warn("ask aborted", "error", err)
		return nil, err
	}

	res.Duration = o.now().Sub(start)
	res.Timings = timings(r.tracer)
	if !res.Cached {
		res.Reasoning = r.trail.snapshot()
		o.record(ctx, r)
		o.storeAnswer(ctx, r)
	}

	winner := string(res.Source)
	if winner == "" {
		winner = "none"
	}
	o.metrics.RecordAsk(string(mode), winner, res.Duration, res.Err == nil)
	log.Info("ask finished",
		"source", res.Source,
		"method", res.Method,
		"filtered", res.Filtered,
		"cached", res.Cached,
		"duration_ms", res.Duration.Milliseconds(),
		"error", res.ErrorText())

	if !req.ShowReasoning {
		out := *res
		out.Reasoning, out.Timings = nil, nil
		return &out, nil
	}
	return res, nil
}

func (o *Orchestrator) checkAgents(mode Mode) error {
	switch {
	case mode == ModeDatabase && o.database == nil:
		return fmt.Errorf("database %w", ErrAgentUnavailable)
	case mode == ModeWeb && o.web == nil:
		return fmt.Errorf("web %w", ErrAgentUnavailable)
	case o.database == nil && o.web == nil:
		return fmt.Errorf("no %w", ErrAgentUnavailable)
	}
	return nil
}

func (o *Orchestrator) pipeline(ctx context.Context, r *run) (*Result, error) {
	res := r.res

	if !r.req.SkipCache {
		if hit := o.cachedAnswer(ctx, r); hit != nil {
			return hit, nil
		}
		if hit := o.similarAnswer(ctx, r); hit != nil {
			return hit, nil
		}
	}

	var verdict routing.Verdict
	err := tracing.WithSpan(ctx, r.tracer, "relevance", func(ctx context.Context) error {
		var err error
		verdict, err = o.relevance.CheckRelevance(ctx, res.Question)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("relevance check: %w", err)
	}
	res.Verdict = verdict
	if !verdict.Relevant {
		r.trail.add("relevance: rejected by %s check (%s)", verdict.Stage, verdict.Reason)
		o.metrics.RecordRejection(string(verdict.Stage))
		res.Filtered = true
		res.Answer = RefusalAnswer
		res.Method = MethodFiltered
		return res, nil
	}
	r.trail.add("relevance: accepted by %s check (%s)", verdict.Stage, verdict.Reason)

	switch res.Mode {
	case ModeHybrid:
		o.runHybrid(ctx, r)
	case ModeRoute:
		o.runRouted(ctx, r)
	case ModeDatabase:
		o.settle(r, o.runAgent(ctx, r, o.database))
	case ModeWeb:
		o.settle(r, o.runAgent(ctx, r, o.web))
	}

	if res.Err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return nil, cerr
		}
	}
	return res, nil
}

// runAgent runs a under its own span and reports the outcome to the trail and metrics.
func (o *Orchestrator) runAgent(ctx context.Context, r *run, a agent.Agent) *agent.Outcome {
	src := a.Source()
	ctx, span := r.tracer.StartSpan(ctx, string(src))
	defer r.tracer.End(span)

	start := o.now()
	out, err := a.Answer(ctx, r.res.Question)
	if out == nil {
		out = &agent.Outcome{Source: src}
	}
	if out.Err == nil && err != nil {
		out.Err = err
	}
	if out.Duration == 0 {
		out.Duration = o.now().Sub(start)
	}
	r.tracer.RecordError(span, out.Err)

	label := ""
	if !out.OK() {
		label = agent.ErrorLabel(outcomeError(out))
	}
	o.metrics.RecordAgent(string(src), out.Duration, label)
	o.metrics.RecordLLMTokens(string(src), out.Stats.PromptTokens, out.Stats.CompletionTokens)
	if out.OK() {
		r.trail.add("%s agent answered in %dms", src, out.Duration.Milliseconds())
	} else {
		r.trail.add("%s agent failed: %v", src, outcomeError(out))
		logging.FromContext(ctx).Warn("agent failed", "agent", src, "error", outcomeError(out))
	}
	return out
}

// settle takes the first usable outcome, in order, as the answer of a routed or forced run.
func (o *Orchestrator) settle(r *run, outs ...*agent.Outcome) {
	res := r.res
	res.Method = MethodRouted
	for _, out := range outs {
		score := arbitration.Score(out.Answer, out.Err, out.Source)
		if out.Source == agent.SourceDatabase {
			res.DBScore = score
		} else {
			res.WebScore = score
		}
	}
	for _, out := range outs {
		if out.OK() {
			res.Source = out.Source
			res.Answer = strings.TrimSpace(out.Answer)
			res.SQL, res.Sources = out.SQL, out.Sources
			return
		}
	}
	o.fail(r, outs...)
}

// fail sets the disclaimer answer and an error naming every agent failure.
func (o *Orchestrator) fail(r *run, outs ...*agent.Outcome) {
	parts := make([]string, 0, len(outs))
	for _, out := range outs {
		parts = append(parts, fmt.Sprintf("%s: %v", out.Source, outcomeError(out)))
	}
	r.res.Source = ""
	r.res.Answer = DisclaimerAnswer
	r.res.Err = fmt.Errorf("%w (%s)", ErrBothAgentsFailed, strings.Join(parts, "; "))
}

func outcomeError(out *agent.Outcome) error {
	if out.Err != nil {
		return out.Err
	}
	return agent.ErrNoAnswer
}

func timings(t *tracing.Tracer) []StageTiming {
	spans := t.Spans()
	out := make([]StageTiming, 0, len(spans))
	for _, s := range spans {
		out = append(out, StageTiming{Name: s.Name, DurationMs: s.Duration.Milliseconds(), Error: s.Err})
	}
	return out
}
