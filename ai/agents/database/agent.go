// Package database implements the text-to-SQL agent over the read-only statistics database.
package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	agent "github.com/hrygo/gridiron/ai/agents"
	"github.com/hrygo/gridiron/ai/agents/events"
	"github.com/hrygo/gridiron/ai/agents/tools"
	"github.com/hrygo/gridiron/ai/core/llm"
	"github.com/hrygo/gridiron/ai/prompts"
	"github.com/hrygo/gridiron/ai/routing"
	"github.com/hrygo/gridiron/store"
)

// Config tunes the agent.
type Config struct {
	MaxIterations int // tool loop limit (default 10)
	TopK          int // row limit suggested to the model (default 10)
	MaxRows       int // hard cap on rows returned by run_query (default 50)
}

// Agent answers questions by letting the LLM explore and query the stats database.
type Agent struct {
	llm       llm.Service
	db        store.StatsDB
	prompts   *prompts.Prompts
	tables    routing.TableSelector
	executor  *agent.ReActExecutor
	toolCache *tools.ToolResultCache
	topK      int
	maxRows   int
}

// New creates the database agent. toolCache may be nil.
func New(svc llm.Service, db store.StatsDB, p *prompts.Prompts, tables routing.TableSelector, toolCache *tools.ToolResultCache, cfg Config) *Agent {
	if p == nil {
		p = prompts.Default()
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 10
	}
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = 50
	}
	return &Agent{
		llm:       svc,
		db:        db,
		prompts:   p,
		tables:    tables,
		executor:  agent.NewReActExecutor(cfg.MaxIterations),
		toolCache: toolCache,
		topK:      cfg.TopK,
		maxRows:   cfg.MaxRows,
	}
}

func (a *Agent) Source() agent.Source {
	return agent.SourceDatabase
}

// Answer runs the tool loop. The executed statements are recorded on the Outcome even when it fails.
func (a *Agent) Answer(ctx context.Context, question string) (*agent.Outcome, error) {
	start := time.Now()
	out := &agent.Outcome{Source: agent.SourceDatabase}
	defer func() { out.Duration = time.Since(start) }()

	guidance := ""
	if a.tables != nil {
		tc := a.tables.SelectTable(question)
		guidance = tc.Guidance
		slog.Debug("database agent: table selected", "table", tc.Table, "keywords", tc.Keywords)
	}
	system, err := a.prompts.Render("sql_agent.system", map[string]any{
		"Dialect":       a.db.Dialect(),
		"TopK":          a.topK,
		"TableGuidance": guidance,
	})
	if err != nil {
		return out.Fail(fmt.Errorf("database agent: %w", err))
	}

	log := &tools.QueryLog{}
	answer, stats, err := a.executor.Execute(ctx, a.llm,
		llm.FormatMessages(system, question, nil), a.toolset(log),
		func(step agent.Step) { events.Emit(ctx, events.EventToolStep, step) })
	out.SQL = log.Queries()
	if stats != nil {
		out.Iterations = stats.Iterations
		out.Stats = stats.LLM
	}
	if err != nil {
		slog.Warn("database agent failed", "error", err, "queries", len(out.SQL))
		return out.Fail(fmt.Errorf("database agent: %w", err))
	}

	out.Answer = strings.TrimSpace(answer)
	if out.Answer == "" {
		return out.Fail(agent.ErrNoAnswer)
	}
	slog.Debug("database agent answered",
		"iterations", out.Iterations,
		"queries", len(out.SQL),
		"tokens", out.Stats.TotalTokens)
	return out, nil
}

func (a *Agent) toolset(log *tools.QueryLog) []agent.Tool {
	return []agent.Tool{
		a.toolCache.Wrap(tools.NewListTablesTool(a.db)),
		a.toolCache.Wrap(tools.NewDescribeTablesTool(a.db)),
		tools.NewCheckQueryTool(),
		a.toolCache.Wrap(tools.NewRunQueryTool(a.db, a.maxRows, log)),
	}
}
