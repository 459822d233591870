// Package web implements the web agent: search, optional league news, then LLM synthesis.
package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	agent "github.com/hrygo/gridiron/ai/agents"
	"github.com/hrygo/gridiron/ai/agents/events"
	"github.com/hrygo/gridiron/ai/core/llm"
	"github.com/hrygo/gridiron/ai/prompts"
	"github.com/hrygo/gridiron/ai/resilience"
)

// ErrNoSearchResults is returned when neither search nor news produced anything to read.
var ErrNoSearchResults = errors.New("no search results")

// Config tunes the agent.
type Config struct {
	MaxResults       int           // search results passed to the model (default 5)
	MaxNews          int           // news headlines added for news-like questions (default 3)
	RetryAttempts    int           // search attempts per question (default 2)
	BreakerThreshold int           // consecutive search failures before the breaker opens (default 3)
	BreakerTimeout   time.Duration // how long the breaker stays open (default 30s)

	// OnBreakerChange is called after every breaker transition, e.g. to publish a gauge.
	OnBreakerChange func(engine string, state resilience.State)
}

// Agent answers from web search results.
type Agent struct {
	llm     llm.Service
	prompts *prompts.Prompts
	search  Searcher
	news    Searcher
	breaker *resilience.CircuitBreaker
	retry   resilience.RetryPolicy
	maxRes  int
	maxNews int
	now     func() time.Time
}

// New creates the web agent. news may be nil.
func New(svc llm.Service, p *prompts.Prompts, search, news Searcher, cfg Config) *Agent {
	if p == nil {
		p = prompts.Default()
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 5
	}
	if cfg.MaxNews <= 0 {
		cfg.MaxNews = 3
	}
	breaker := resilience.NewCircuitBreaker(search.Name(), cfg.BreakerThreshold, cfg.BreakerTimeout)
	breaker.OnStateChange(func(name string, from, to resilience.State) {
		slog.Warn("search circuit breaker state changed", "engine", name, "from", from, "to", to)
		if cfg.OnBreakerChange != nil {
			cfg.OnBreakerChange(name, to)
		}
	})
	return &Agent{
		llm:     svc,
		prompts: p,
		search:  search,
		news:    news,
		breaker: breaker,
		retry: resilience.RetryPolicy{
			Attempts:    cfg.RetryAttempts,
			ShouldRetry: agent.ShouldRetry,
			Delay:       agent.GetRetryDelay,
			MaxDelay:    2 * time.Second,
		},
		maxRes:  cfg.MaxResults,
		maxNews: cfg.MaxNews,
		now:     time.Now,
	}
}

func (a *Agent) Source() agent.Source {
	return agent.SourceWeb
}

// Breaker exposes the search circuit breaker (state reporting).
func (a *Agent) Breaker() *resilience.CircuitBreaker {
	return a.breaker
}

// Answer searches, then asks the LLM to synthesize the snippets.
func (a *Agent) Answer(ctx context.Context, question string) (*agent.Outcome, error) {
	start := time.Now()
	out := &agent.Outcome{Source: agent.SourceWeb}
	defer func() { out.Duration = time.Since(start) }()

	results, searchErr := a.runSearch(ctx, question)
	if err := ctx.Err(); err != nil {
		return out.Fail(err)
	}
	if a.news != nil && IsNewsQuestion(question) {
		headlines, err := a.news.Search(ctx, question, a.maxNews)
		events.Emit(ctx, events.EventSearch, events.SearchEvent{Engine: a.news.Name(), Query: question, Results: len(headlines), Err: err})
		if err != nil {
			slog.Warn("web agent: news lookup failed", "error", err)
		}
		results = append(results, headlines...)
	}
	results = dedupe(results)

	if len(results) == 0 {
		if searchErr != nil {
			return out.Fail(fmt.Errorf("web agent: search failed: %w", searchErr))
		}
		return out.Fail(ErrNoSearchResults)
	}
	for _, r := range results {
		out.Sources = append(out.Sources, r.URL)
	}

	user, err := a.prompts.Render("web_synthesis.user", map[string]any{
		"Question": question,
		"Date":     a.now().Format("January 2, 2006"),
		"Results":  formatResults(results),
	})
	if err != nil {
		return out.Fail(fmt.Errorf("web agent: %w", err))
	}
	system, err := a.prompts.Render("web_synthesis.system", nil)
	if err != nil {
		return out.Fail(fmt.Errorf("web agent: %w", err))
	}

	answer, stats, err := a.llm.Chat(ctx, llm.FormatMessages(system, user, nil))
	out.Iterations = 1
	if stats != nil {
		out.Stats = *stats
	}
	if err != nil {
		return out.Fail(fmt.Errorf("web agent: synthesis failed: %w", err))
	}
	out.Answer = strings.TrimSpace(answer)
	if out.Answer == "" {
		return out.Fail(agent.ErrNoAnswer)
	}
	return out, nil
}

// runSearch queries the engine through the breaker, retrying transient failures.
func (a *Agent) runSearch(ctx context.Context, question string) ([]SearchResult, error) {
	query := searchQuery(question)
	var results []SearchResult
	err := resilience.Retry(ctx, a.retry, func(ctx context.Context) error {
		return a.breaker.Execute(ctx, func(ctx context.Context) error {
			var err error
			results, err = a.search.Search(ctx, query, a.maxRes)
			return err
		})
	})
	events.Emit(ctx, events.EventSearch, events.SearchEvent{Engine: a.search.Name(), Query: query, Results: len(results), Err: err})
	if err != nil {
		slog.Warn("web agent: search failed", "engine", a.search.Name(), "error", err)
		return nil, err
	}
	slog.Debug("web agent: search completed", "engine", a.search.Name(), "results", len(results))
	return results, nil
}

// searchQuery scopes the question to the NFL unless it already is.
func searchQuery(question string) string {
	q := strings.TrimSpace(question)
	if strings.Contains(strings.ToLower(q), "nfl") {
		return q
	}
	return q + " NFL"
}

func dedupe(results []SearchResult) []SearchResult {
	seen := make(map[string]bool, len(results))
	out := results[:0]
	for _, r := range results {
		if r.URL == "" || seen[r.URL] {
			continue
		}
		seen[r.URL] = true
		out = append(out, r)
	}
	return out
}

func formatResults(results []SearchResult) string {
	var sb strings.Builder
	for i, r := range results {
		fmt.Fprintf(&sb, "[%d] %s (%s)\n", i+1, r.Title, r.URL)
		if r.Snippet != "" {
			sb.WriteString(r.Snippet)
			sb.WriteByte('\n')
		}
		sb.WriteByte('\n')
	}
	return strings.TrimSpace(sb.String())
}
