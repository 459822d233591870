package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hrygo/gridiron/ai/agents/database"
	"github.com/hrygo/gridiron/ai/agents/orchestrator"
	"github.com/hrygo/gridiron/ai/agents/tools"
	"github.com/hrygo/gridiron/ai/agents/web"
	"github.com/hrygo/gridiron/ai/arbitration"
	"github.com/hrygo/gridiron/ai/cache"
	"github.com/hrygo/gridiron/ai/core/embedding"
	"github.com/hrygo/gridiron/ai/core/llm"
	"github.com/hrygo/gridiron/ai/metrics"
	"github.com/hrygo/gridiron/ai/prompts"
	"github.com/hrygo/gridiron/ai/resilience"
	"github.com/hrygo/gridiron/ai/routing"
	"github.com/hrygo/gridiron/internal/profile"
	"github.com/hrygo/gridiron/store"
	"github.com/hrygo/gridiron/store/db"
)

var errNoLLM = errors.New("no LLM API key configured")

// app holds everything a command needs to answer questions.
type app struct {
	store        *store.Store
	stats        store.StatsDB
	chat         llm.Service
	orchestrator *orchestrator.Orchestrator
	closers      []func() error
}

// newApp opens the databases and wires the agents. m may be nil.
func newApp(ctx context.Context, p *profile.Profile, m *metrics.PrometheusExporter) (_ *app, err error) {
	if !p.IsAIEnabled() {
		return nil, errNoLLM
	}
	a := &app{}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	driver, err := db.NewDBDriver(p)
	if err != nil {
		return nil, err
	}
	a.store = store.New(driver, p)
	a.closers = append(a.closers, a.store.Close)
	if err := a.store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	a.stats, err = db.NewStatsDB(p)
	if err != nil {
		return nil, fmt.Errorf("failed to open stats database: %w", err)
	}
	a.closers = append(a.closers, a.stats.Close)

	pr, err := prompts.Load(p.PromptDir)
	if err != nil {
		return nil, err
	}

	a.chat, err = llm.NewService(&llm.Config{
		Provider: p.LLMProvider,
		Model:    p.LLMModel,
		APIKey:   p.LLMAPIKey,
		BaseURL:  p.LLMBaseURL,
		Timeout:  p.LLMTimeout,
	})
	if err != nil {
		return nil, err
	}
	judgeLLM := a.chat
	if p.JudgeModel != p.LLMModel {
		judgeLLM, err = llm.NewService(&llm.Config{
			Provider: p.LLMProvider,
			Model:    p.JudgeModel,
			APIKey:   p.LLMAPIKey,
			BaseURL:  p.LLMBaseURL,
			Timeout:  p.LLMTimeout,
		})
		if err != nil {
			return nil, err
		}
	}

	routingCfg := routing.DefaultConfig()
	routingCfg.Classifier = judgeLLM
	routingCfg.Prompts = pr
	router := routing.NewService(routingCfg)

	dbAgent := database.New(a.chat, a.stats, pr, router, tools.NewToolResultCache(500), database.Config{
		MaxIterations: p.AgentMaxIterations,
		TopK:          p.QueryTopK,
		MaxRows:       p.MaxResultRows,
	})

	var news web.Searcher
	if len(p.NewsFeeds) > 0 {
		news = web.NewNewsFeeds(p.NewsFeeds, nil, 0)
	}
	webAgent := web.New(a.chat, pr, web.NewDuckDuckGo("", nil), news, web.Config{
		MaxResults: p.SearchMaxResults,
		OnBreakerChange: func(engine string, state resilience.State) {
			m.SetBreakerState(engine, int(state))
		},
	})

	arbiter := arbitration.NewArbiter(arbitration.NewJudge(judgeLLM, pr), p.ScoreMargin)

	answers, err := newAnswerCache(ctx, p)
	if err != nil {
		return nil, err
	}
	if closer, ok := answers.(interface{ Close() error }); ok {
		a.closers = append(a.closers, closer.Close)
	}

	cfg := orchestrator.DefaultConfig()
	cfg.DefaultMode = orchestrator.Mode(p.RoutingMode)
	if p.CacheTTLSeconds > 0 {
		cfg.CacheTTL = time.Duration(p.CacheTTLSeconds) * time.Second
	}
	opts := []orchestrator.Option{
		orchestrator.WithConfig(cfg),
		orchestrator.WithHistory(a.store),
		orchestrator.WithAnswerCache(answers),
		orchestrator.WithMetrics(m),
	}
	if p.IsEmbeddingEnabled() {
		opts = append(opts, orchestrator.WithEmbedder(embedding.NewService(&embedding.Config{
			BaseURL: p.EmbeddingBaseURL,
			APIKey:  p.EmbeddingAPIKey,
			Model:   p.EmbeddingModel,
		})))
	}
	a.orchestrator = orchestrator.New(router, router, dbAgent, webAgent, arbiter, opts...)

	slog.Info("agents ready",
		"llm", p.LLMModel,
		"judge", p.JudgeModel,
		"stats_dialect", a.stats.Dialect(),
		"answer_cache", answers.Name(),
		"embeddings", p.IsEmbeddingEnabled(),
	)
	return a, nil
}

// newAnswerCache shares answers through Redis when configured, otherwise keeps them in process.
func newAnswerCache(ctx context.Context, p *profile.Profile) (cache.Backend, error) {
	ttl := time.Duration(p.CacheTTLSeconds) * time.Second
	if p.RedisURL == "" {
		return cache.NewMemoryBackend(1000, ttl), nil
	}
	backend, err := cache.NewRedisBackend(ctx, p.RedisURL, "gridiron:")
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return backend, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			slog.Warn("failed to close resource", "error", err)
		}
	}
	a.closers = nil
}
