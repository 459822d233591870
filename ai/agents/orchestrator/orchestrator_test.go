package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	agent "github.com/hrygo/gridiron/ai/agents"
	"github.com/hrygo/gridiron/ai/agents/events"
	"github.com/hrygo/gridiron/ai/arbitration"
	"github.com/hrygo/gridiron/ai/cache"
	"github.com/hrygo/gridiron/ai/metrics"
	"github.com/hrygo/gridiron/ai/routing"
	"github.com/hrygo/gridiron/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// stubAgent answers with a fixed outcome, optionally after a delay, and emits one event.
type stubAgent struct {
	source agent.Source
	answer string
	err    error
	delay  time.Duration

	mu    sync.Mutex
	calls int
}

func (s *stubAgent) Source() agent.Source { return s.source }

func (s *stubAgent) Answer(ctx context.Context, _ string) (*agent.Outcome, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	out := &agent.Outcome{Source: s.source}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return out.Fail(ctx.Err())
		}
	}
	switch s.source {
	case agent.SourceDatabase:
		events.Emit(ctx, events.EventToolStep, agent.Step{Iteration: 1, Tool: "run_query", Input: `{"query":"SELECT 1"}`})
		out.SQL = []string{"SELECT 1"}
	case agent.SourceWeb:
		events.Emit(ctx, events.EventSearch, events.SearchEvent{Engine: "duckduckgo", Query: "q NFL", Results: 2})
		out.Sources = []string{"https://www.espn.com/nfl/"}
	}
	if s.err != nil {
		return out.Fail(s.err)
	}
	out.Answer = s.answer
	return out, nil
}

func (s *stubAgent) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

const (
	strongDBAnswer = "The Ravens led the NFL with 3,189 rushing yards in 2023."
	weakWebAnswer  = "I'm not sure, I could not find that."
	nflQuestion    = "Which team led the NFL in rushing yards in 2023?"
)

func newOrchestrator(db, web agent.Agent, opts ...Option) *Orchestrator {
	router := routing.NewService(routing.DefaultConfig())
	return New(router, router, db, web, arbitration.NewArbiter(nil, arbitration.DefaultMargin), opts...)
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ModeHybrid, false},
		{"HYBRID", ModeHybrid, false},
		{" route ", ModeRoute, false},
		{"database", ModeDatabase, false},
		{"web", ModeWeb, false},
		{"both", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownMode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAsk_RequestErrors(t *testing.T) {
	o := newOrchestrator(&stubAgent{source: agent.SourceDatabase, answer: "x"}, nil)

	_, err := o.Ask(context.Background(), Request{Question: "   "})
	assert.ErrorIs(t, err, ErrEmptyQuestion)

	_, err = o.Ask(context.Background(), Request{Question: nflQuestion, Mode: "both"})
	assert.ErrorIs(t, err, ErrUnknownMode)

	_, err = o.Ask(context.Background(), Request{Question: nflQuestion, Mode: ModeWeb})
	assert.ErrorIs(t, err, ErrAgentUnavailable)
}

func TestAsk_HybridPicksHigherScore(t *testing.T) {
	db := &stubAgent{source: agent.SourceDatabase, answer: strongDBAnswer, delay: 5 * time.Millisecond}
	web := &stubAgent{source: agent.SourceWeb, answer: weakWebAnswer}
	o := newOrchestrator(db, web)

	res, err := o.Ask(context.Background(), Request{Question: nflQuestion, ShowReasoning: true})
	require.NoError(t, err)
	require.NoError(t, res.Err)

	assert.Equal(t, agent.SourceDatabase, res.Source)
	assert.Equal(t, strongDBAnswer, res.Answer)
	assert.Equal(t, string(arbitration.MethodScore), res.Method)
	assert.Greater(t, res.DBScore, res.WebScore)
	assert.Equal(t, []string{"SELECT 1"}, res.SQL)
	require.NotNil(t, res.Decision)
	assert.NotEmpty(t, res.TraceID)
	assert.Equal(t, ModeHybrid, res.Mode)
	assert.Equal(t, 1, db.Calls())
	assert.Equal(t, 1, web.Calls())

	assert.Contains(t, res.Reasoning, "relevance: accepted by keyword check (football vocabulary)")
	assert.Contains(t, res.Reasoning, `database agent: run_query {"query":"SELECT 1"}`)
	assert.Contains(t, res.Reasoning, `web agent: duckduckgo search for "q NFL" returned 2 results`)
	assert.Contains(t, res.Reasoning[len(res.Reasoning)-1], "arbitration: database answer chosen by score")

	names := make([]string, 0, len(res.Timings))
	for _, st := range res.Timings {
		names = append(names, st.Name)
	}
	assert.ElementsMatch(t, []string{"relevance", "database", "web", "arbitration"}, names)

	log := res.DebugLog()
	assert.Contains(t, log, "trace "+res.TraceID)
	assert.Contains(t, log, "timings:")
}

func TestAsk_HidesReasoningUnlessRequested(t *testing.T) {
	o := newOrchestrator(&stubAgent{source: agent.SourceDatabase, answer: strongDBAnswer}, nil)
	res, err := o.Ask(context.Background(), Request{Question: nflQuestion})
	require.NoError(t, err)
	assert.Nil(t, res.Reasoning)
	assert.Nil(t, res.Timings)
	assert.Equal(t, MethodRouted, res.Method)
}

func TestAsk_OneAgentFails(t *testing.T) {
	db := &stubAgent{source: agent.SourceDatabase, err: errors.New("no such table: games")}
	web := &stubAgent{source: agent.SourceWeb, answer: "The Ravens ran for 3,189 yards in 2023 according to ESPN."}
	o := newOrchestrator(db, web)

	res, err := o.Ask(context.Background(), Request{Question: nflQuestion, ShowReasoning: true})
	require.NoError(t, err)
	require.NoError(t, res.Err)
	assert.Equal(t, agent.SourceWeb, res.Source)
	assert.Equal(t, string(arbitration.MethodSingle), res.Method)
	assert.Zero(t, res.DBScore)
	assert.Equal(t, []string{"https://www.espn.com/nfl/"}, res.Sources)
	assert.Contains(t, res.Reasoning, "database agent failed: no such table: games")
}

func TestAsk_BothAgentsFail(t *testing.T) {
	db := &stubAgent{source: agent.SourceDatabase, err: errors.New("database locked")}
	web := &stubAgent{source: agent.SourceWeb, err: errors.New("search returned HTTP 503")}
	o := newOrchestrator(db, web)

	res, err := o.Ask(context.Background(), Request{Question: nflQuestion})
	require.NoError(t, err)
	assert.ErrorIs(t, res.Err, ErrBothAgentsFailed)
	assert.Contains(t, res.ErrorText(), "database locked")
	assert.Contains(t, res.ErrorText(), "HTTP 503")
	assert.Equal(t, DisclaimerAnswer, res.Answer)
	assert.Equal(t, string(arbitration.MethodNone), res.Method)
	assert.Empty(t, res.Source)
}

func TestAsk_IrrelevantQuestion(t *testing.T) {
	db := &stubAgent{source: agent.SourceDatabase, answer: strongDBAnswer}
	web := &stubAgent{source: agent.SourceWeb, answer: weakWebAnswer}
	reg := prometheus.NewRegistry()
	m := metrics.NewPrometheusExporter(metrics.Config{Registry: reg})
	hist := &fakeHistory{}
	o := newOrchestrator(db, web, WithMetrics(m), WithHistory(hist))

	res, err := o.Ask(context.Background(), Request{Question: "What is the capital of France?"})
	require.NoError(t, err)
	assert.True(t, res.Filtered)
	assert.Equal(t, RefusalAnswer, res.Answer)
	assert.Equal(t, MethodFiltered, res.Method)
	assert.False(t, res.Verdict.Relevant)
	assert.Zero(t, db.Calls())
	assert.Zero(t, web.Calls())

	require.Len(t, hist.created, 1)
	assert.True(t, hist.created[0].Filtered)
	assert.Equal(t, hist.created[0].ID, res.ID)
	assert.Equal(t, 1, gatherCount(t, reg, "gridiron_qa_relevance_rejections_total"))
}

func TestAsk_RouteMode(t *testing.T) {
	t.Run("web route", func(t *testing.T) {
		db := &stubAgent{source: agent.SourceDatabase, answer: strongDBAnswer}
		web := &stubAgent{source: agent.SourceWeb, answer: "Reports say the Chiefs quarterback is listed as questionable."}
		o := newOrchestrator(db, web)

		res, err := o.Ask(context.Background(), Request{Question: "Is the Chiefs quarterback injured this week?", Mode: ModeRoute})
		require.NoError(t, err)
		assert.Equal(t, agent.SourceWeb, res.Source)
		assert.Equal(t, MethodRouted, res.Method)
		assert.Zero(t, db.Calls())
	})

	t.Run("falls back on failure", func(t *testing.T) {
		db := &stubAgent{source: agent.SourceDatabase, err: errors.New("no such column: rush_yds")}
		web := &stubAgent{source: agent.SourceWeb, answer: "The Ravens ran for 3,189 yards in 2023."}
		o := newOrchestrator(db, web)

		res, err := o.Ask(context.Background(), Request{Question: nflQuestion, Mode: ModeRoute, ShowReasoning: true})
		require.NoError(t, err)
		require.NoError(t, res.Err)
		assert.Equal(t, agent.SourceWeb, res.Source)
		assert.Equal(t, 1, db.Calls())
		assert.Contains(t, res.Reasoning, "routing: falling back to the web agent")
	})
}

func TestAsk_ForcedMode(t *testing.T) {
	db := &stubAgent{source: agent.SourceDatabase, answer: strongDBAnswer}
	web := &stubAgent{source: agent.SourceWeb, answer: weakWebAnswer}
	o := newOrchestrator(db, web)

	res, err := o.Ask(context.Background(), Request{Question: nflQuestion, Mode: ModeWeb})
	require.NoError(t, err)
	require.NoError(t, res.Err)
	assert.Equal(t, agent.SourceWeb, res.Source)
	assert.Zero(t, db.Calls())
}

func TestAsk_AnswerCache(t *testing.T) {
	db := &stubAgent{source: agent.SourceDatabase, answer: strongDBAnswer}
	web := &stubAgent{source: agent.SourceWeb, answer: weakWebAnswer}
	answers := cache.NewMemoryBackend(10, time.Minute)
	hist := &fakeHistory{}
	o := newOrchestrator(db, web, WithAnswerCache(answers), WithHistory(hist))

	first, err := o.Ask(context.Background(), Request{Question: nflQuestion})
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := o.Ask(context.Background(), Request{Question: "  which TEAM led the nfl in rushing yards in 2023 ", ShowReasoning: true})
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Answer, second.Answer)
	assert.Equal(t, first.ID, second.ID)
	assert.NotEqual(t, first.TraceID, second.TraceID)
	assert.Contains(t, second.Reasoning[0], "answer cache hit")
	assert.Equal(t, 1, db.Calls())
	assert.Len(t, hist.created, 1)

	_, err = o.Ask(context.Background(), Request{Question: nflQuestion, SkipCache: true})
	require.NoError(t, err)
	assert.Equal(t, 2, db.Calls())
}

func TestAsk_FailuresAreNotCached(t *testing.T) {
	db := &stubAgent{source: agent.SourceDatabase, err: errors.New("database locked")}
	answers := cache.NewMemoryBackend(10, time.Minute)
	o := newOrchestrator(db, nil, WithAnswerCache(answers))

	for i := 0; i < 2; i++ {
		res, err := o.Ask(context.Background(), Request{Question: nflQuestion})
		require.NoError(t, err)
		assert.ErrorIs(t, res.Err, ErrBothAgentsFailed)
	}
	assert.Equal(t, 2, db.Calls())
}

func TestAsk_SimilarQuestion(t *testing.T) {
	db := &stubAgent{source: agent.SourceDatabase, answer: strongDBAnswer}
	hist := &fakeHistory{similar: []*store.QueryRecordWithScore{{
		QueryRecord: &store.QueryRecord{ID: "rec-1", Question: "which team led in rushing yards 2023", Answer: "Baltimore.", Source: "database"},
		Score:       0.97,
	}}}
	emb := &fakeEmbedder{}
	o := newOrchestrator(db, nil, WithHistory(hist), WithEmbedder(emb))

	res, err := o.Ask(context.Background(), Request{Question: nflQuestion})
	require.NoError(t, err)
	assert.True(t, res.Cached)
	assert.Equal(t, MethodSimilar, res.Method)
	assert.Equal(t, "Baltimore.", res.Answer)
	assert.Equal(t, "rec-1", res.ID)
	assert.Zero(t, db.Calls())
	require.NotNil(t, hist.lastOpts)
	assert.Equal(t, float32(0.95), hist.lastOpts.Threshold)
	assert.Equal(t, "fake-embed", hist.lastOpts.Model)

	// No hit: the agents run and the record carries the embedding computed for the lookup.
	hist.similar = nil
	res, err = o.Ask(context.Background(), Request{Question: nflQuestion})
	require.NoError(t, err)
	assert.False(t, res.Cached)
	require.Len(t, hist.created, 1)
	assert.Equal(t, []float32{1, 0, 0}, hist.created[0].Embedding)
	assert.Equal(t, "fake-embed", hist.created[0].EmbeddingModel)
	assert.Equal(t, 2, emb.calls)
}

func TestAsk_SimilarQuestionHonoursForcedMode(t *testing.T) {
	db := &stubAgent{source: agent.SourceDatabase, answer: strongDBAnswer}
	web := &stubAgent{source: agent.SourceWeb, answer: "The Ravens ran for 3,189 yards in 2023 (espn.com)."}
	hist := &fakeHistory{similar: []*store.QueryRecordWithScore{{
		QueryRecord: &store.QueryRecord{ID: "rec-1", Answer: "Baltimore.", Source: "database"},
		Score:       0.97,
	}}}
	o := newOrchestrator(db, web, WithHistory(hist), WithEmbedder(&fakeEmbedder{}))

	res, err := o.Ask(context.Background(), Request{Question: nflQuestion, Mode: ModeWeb})
	require.NoError(t, err)
	assert.Equal(t, "web", hist.lastOpts.Source)
	assert.False(t, res.Cached)
	assert.Equal(t, agent.SourceWeb, res.Source)
	assert.Equal(t, 1, web.Calls())
	assert.Zero(t, db.Calls())

	res, err = o.Ask(context.Background(), Request{Question: nflQuestion, Mode: ModeDatabase})
	require.NoError(t, err)
	assert.Equal(t, "database", hist.lastOpts.Source)
	assert.Equal(t, MethodSimilar, res.Method)
	assert.Equal(t, "Baltimore.", res.Answer)

	_, err = o.Ask(context.Background(), Request{Question: nflQuestion, Mode: ModeHybrid})
	require.NoError(t, err)
	assert.Empty(t, hist.lastOpts.Source)
}

func TestAsk_Canceled(t *testing.T) {
	db := &stubAgent{source: agent.SourceDatabase, answer: strongDBAnswer, delay: time.Second}
	web := &stubAgent{source: agent.SourceWeb, answer: weakWebAnswer, delay: time.Second}
	o := newOrchestrator(db, web)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := o.Ask(ctx, Request{Question: nflQuestion})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAsk_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewPrometheusExporter(metrics.Config{Registry: reg})
	db := &stubAgent{source: agent.SourceDatabase, answer: strongDBAnswer}
	web := &stubAgent{source: agent.SourceWeb, err: errors.New("search returned HTTP 503")}
	o := newOrchestrator(db, web, WithMetrics(m))

	_, err := o.Ask(context.Background(), Request{Question: nflQuestion})
	require.NoError(t, err)

	assert.Equal(t, 1, gatherCount(t, reg, "gridiron_qa_arbitration_decisions_total"))
	assert.Equal(t, 1, gatherCount(t, reg, "gridiron_qa_agent_errors_total"))
	assert.Equal(t, 2, gatherCount(t, reg, "gridiron_qa_agent_latency_seconds"))
}

type fakeHistory struct {
	mu       sync.Mutex
	created  []*store.QueryRecord
	similar  []*store.QueryRecordWithScore
	lastOpts *store.SimilarQueryOptions
}

func (f *fakeHistory) CreateQueryRecord(_ context.Context, rec *store.QueryRecord) (*store.QueryRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rec.ID == "" {
		rec.ID = "rec-" + rec.TraceID
	}
	f.created = append(f.created, rec)
	return rec, nil
}

func (f *fakeHistory) FindSimilarQueries(_ context.Context, opts *store.SimilarQueryOptions) ([]*store.QueryRecordWithScore, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastOpts = opts
	var hits []*store.QueryRecordWithScore
	for _, h := range f.similar {
		if opts.Source == "" || h.Source == opts.Source {
			hits = append(hits, h)
		}
	}
	return hits, nil
}

type fakeEmbedder struct {
	calls int
}

func (f *fakeEmbedder) Embed(context.Context, string) ([]float32, error) {
	f.calls++
	return []float32{1, 0, 0}, nil
}

func (f *fakeEmbedder) Model() string { return "fake-embed" }

func gatherCount(t *testing.T, reg *prometheus.Registry, name string) int {
	t.Helper()
	n, err := testutil.GatherAndCount(reg, name)
	require.NoError(t, err)
	return n
}
