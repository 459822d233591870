package orchestrator

import (
	"context"

	"golang.org/x/sync/errgroup"

	agent "github.com/hrygo/gridiron/ai/agents"
	"github.com/hrygo/gridiron/ai/arbitration"
	"github.com/hrygo/gridiron/ai/observability/tracing"
	"github.com/hrygo/gridiron/ai/routing"
)

// runHybrid runs both agents concurrently and arbitrates. A failing agent never cancels the other.
func (o *Orchestrator) runHybrid(ctx context.Context, r *run) {
	if o.database == nil || o.web == nil {
		only := o.database
		if only == nil {
			only = o.web
		}
		r.trail.add("hybrid: only the %s agent is configured", only.Source())
		o.settle(r, o.runAgent(ctx, r, only))
		return
	}

	var db, web *agent.Outcome
	var g errgroup.Group
	g.Go(func() error {
		db = o.runAgent(ctx, r, o.database)
		return nil
	})
	g.Go(func() error {
		web = o.runAgent(ctx, r, o.web)
		return nil
	})
	_ = g.Wait()

	var d arbitration.Decision
	_ = tracing.WithSpan(ctx, r.tracer, "arbitration", func(ctx context.Context) error {
		d = o.arbiter.Decide(ctx, r.res.Question, db, web)
		return nil
	})

	res := r.res
	res.Decision = &d
	res.Method = string(d.Method)
	res.DBScore, res.WebScore = d.DBScore, d.WebScore

	winner := string(d.Winner)
	if winner == "" {
		winner = "none"
	}
	o.metrics.RecordDecision(winner, string(d.Method))

	switch d.Winner {
	case agent.SourceDatabase:
		res.Source, res.Answer, res.SQL = d.Winner, d.Answer, db.SQL
	case agent.SourceWeb:
		res.Source, res.Answer, res.Sources = d.Winner, d.Answer, web.Sources
	default:
		r.trail.add("arbitration: %s", d.Rationale)
		o.fail(r, db, web)
		return
	}
	r.trail.add("arbitration: %s answer chosen by %s (database %.1f, web %.1f): %s",
		d.Winner, d.Method, d.DBScore, d.WebScore, d.Rationale)
}

// runRouted sends the question to the routed agent and falls back to the other one on failure.
func (o *Orchestrator) runRouted(ctx context.Context, r *run) {
	m := o.sources.SelectSource(r.res.Question)
	first, second := o.database, o.web
	if m.Route == routing.RouteWeb {
		first, second = o.web, o.database
	}
	if m.Matched {
		r.trail.add("routing: %s (keywords %v, confidence %.2f)", m.Route, m.Keywords, m.Confidence)
	} else {
		r.trail.add("routing: %s (no routing keywords)", m.Route)
	}

	var outs []*agent.Outcome
	if first != nil {
		out := o.runAgent(ctx, r, first)
		outs = append(outs, out)
		if out.OK() {
			o.settle(r, outs...)
			return
		}
	}
	if second != nil && ctx.Err() == nil {
		r.trail.add("routing: falling back to the %s agent", second.Source())
		outs = append(outs, o.runAgent(ctx, r, second))
	}
	o.settle(r, outs...)
}
