package orchestrator

import (
	"context"

	agent "github.com/hrygo/gridiron/ai/agents"
	"github.com/hrygo/gridiron/ai/cache"
	"github.com/hrygo/gridiron/ai/observability/logging"
	"github.com/hrygo/gridiron/ai/observability/tracing"
	"github.com/hrygo/gridiron/internal/strutil"
	"github.com/hrygo/gridiron/store"
)

// cachedAnswer returns the cached result for the question, re-stamped with this run's trace.
func (o *Orchestrator) cachedAnswer(ctx context.Context, r *run) *Result {
	if o.answers == nil {
		return nil
	}
	var (
		hit Result
		ok  bool
	)
	_ = tracing.WithSpan(ctx, r.tracer, "cache", func(ctx context.Context) error {
		var err error
		hit, ok, err = cache.GetJSON[Result](ctx, o.answers, r.key)
		if err != nil {
			logging.FromContext(ctx).Warn("answer cache read failed", "backend", o.answers.Name(), "error", err)
		}
		return err
	})
	if !ok {
		o.metrics.RecordCacheMiss("answer")
		return nil
	}
	o.metrics.RecordCacheHit("answer")

	r.trail.add("answer cache hit (first answered in trace %s)", hit.TraceID)
	hit.Reasoning = append(r.trail.snapshot(), hit.Reasoning...)
	hit.TraceID = r.res.TraceID
	hit.Question = r.res.Question
	hit.Cached = true
	return &hit
}

// similarAnswer reuses the answer to a near-identical earlier question.
// The embedding is kept on the run so the history record does not embed twice.
func (o *Orchestrator) similarAnswer(ctx context.Context, r *run) *Result {
	if o.embedder == nil || o.history == nil {
		return nil
	}
	log := logging.FromContext(ctx)

	var hits []*store.QueryRecordWithScore
	err := tracing.WithSpan(ctx, r.tracer, "similar", func(ctx context.Context) error {
		vec, err := o.embedder.Embed(ctx, strutil.NormalizeQuestion(r.res.Question))
		if err != nil {
			return err
		}
		r.vector = vec
		hits, err = o.history.FindSimilarQueries(ctx, &store.SimilarQueryOptions{
			Vector:       vec,
			Model:        o.embedder.Model(),
			Threshold:    o.cfg.SimilarityThreshold,
			Limit:        1,
			CreatedAfter: o.now().Add(-o.cfg.SimilarMaxAge).Unix(),
			Source:       string(r.res.Mode.forcedSource()),
		})
		return err
	})
	if err != nil {
		log.Warn("similar question lookup failed", "error", err)
		return nil
	}
	if len(hits) == 0 {
		o.metrics.RecordCacheMiss("similar")
		return nil
	}
	o.metrics.RecordCacheHit("similar")

	h := hits[0]
	r.trail.add("reused the answer to a similar question %q (similarity %.2f)", strutil.Truncate(h.Question, 80), h.Score)
	res := r.res
	res.ID = h.ID
	res.Answer = h.Answer
	res.Source = agent.Source(h.Source)
	res.Method = MethodSimilar
	res.DBScore, res.WebScore = h.DBScore, h.WebScore
	res.Verdict.Relevant = true
	res.Cached = true
	res.Reasoning = r.trail.snapshot()
	return res
}

// record writes the answer to history. Failures are logged, never returned.
func (o *Orchestrator) record(ctx context.Context, r *run) {
	if o.history == nil {
		return
	}
	res := r.res
	rec := &store.QueryRecord{
		TraceID:    res.TraceID,
		Question:   res.Question,
		Answer:     res.Answer,
		Source:     string(res.Source),
		Method:     res.Method,
		DBScore:    res.DBScore,
		WebScore:   res.WebScore,
		Filtered:   res.Filtered,
		Error:      res.ErrorText(),
		DurationMs: res.Duration.Milliseconds(),
	}
	if len(r.vector) > 0 && o.embedder != nil {
		rec.Embedding, rec.EmbeddingModel = r.vector, o.embedder.Model()
	}
	created, err := o.history.CreateQueryRecord(context.WithoutCancel(ctx), rec)
	if err != nil {
		logging.FromContext(ctx).Warn("failed to record query", "error", err)
		return
	}
	res.ID = created.ID
}

// storeAnswer caches successful answers. Refusals and failures are not cached.
func (o *Orchestrator) storeAnswer(ctx context.Context, r *run) {
	res := r.res
	if o.answers == nil || res.Err != nil || res.Filtered {
		return
	}
	if err := cache.SetJSON(ctx, o.answers, r.key, *res, o.cfg.CacheTTL); err != nil {
		logging.FromContext(ctx).Warn("answer cache write failed", "backend", o.answers.Name(), "error", err)
	}
}
