package arbitration

import (
	"context"
	"fmt"
	"log/slog"

	agent "github.com/hrygo/gridiron/ai/agents"
)

// DefaultMargin is the score gap above which the judge is not consulted.
const DefaultMargin = 1.5

// Method is how a decision was reached.
type Method string

const (
	MethodNone     Method = "none"     // neither agent produced an answer
	MethodSingle   Method = "single"   // only one agent produced an answer
	MethodScore    Method = "score"    // scores differed by at least the margin
	MethodJudge    Method = "judge"    // the LLM judge picked
	MethodFallback Method = "fallback" // judge unavailable or unclear; higher score wins
)

// Decision is the arbitration result.
type Decision struct {
	Winner    agent.Source `json:"winner,omitempty"`
	Answer    string       `json:"answer"`
	Method    Method       `json:"method"`
	DBScore   float64      `json:"db_score"`
	WebScore  float64      `json:"web_score"`
	Choice    Choice       `json:"choice,omitempty"`
	Rationale string       `json:"rationale"`

	DBAdjustments  []Adjustment `json:"db_adjustments,omitempty"`
	WebAdjustments []Adjustment `json:"web_adjustments,omitempty"`
}

// Arbiter combines the scorer and the judge.
type Arbiter struct {
	scorer *Scorer
	judge  *Judge
	margin float64
}

// NewArbiter creates an arbiter. judge may be nil; margin < 0 uses DefaultMargin.
func NewArbiter(judge *Judge, margin float64) *Arbiter {
	if margin < 0 {
		margin = DefaultMargin
	}
	return &Arbiter{scorer: NewScorer(), judge: judge, margin: margin}
}

// Decide picks between the database and web outcomes. Either may be nil (agent not run).
func (a *Arbiter) Decide(ctx context.Context, question string, db, web *agent.Outcome) Decision {
	var d Decision
	if db != nil {
		d.DBScore, d.DBAdjustments = a.scorer.Explain(db.Answer, db.Err, agent.SourceDatabase)
	}
	if web != nil {
		d.WebScore, d.WebAdjustments = a.scorer.Explain(web.Answer, web.Err, agent.SourceWeb)
	}

	switch {
	case !db.OK() && !web.OK():
		d.Method = MethodNone
		d.Rationale = "neither agent produced an answer"
		return d
	case !web.OK():
		return d.pick(agent.SourceDatabase, db, MethodSingle, "only the database agent produced an answer")
	case !db.OK():
		return d.pick(agent.SourceWeb, web, MethodSingle, "only the web agent produced an answer")
	}

	if gap := d.DBScore - d.WebScore; gap >= a.margin {
		return d.pick(agent.SourceDatabase, db, MethodScore,
			fmt.Sprintf("database answer scored %.1f vs %.1f", d.DBScore, d.WebScore))
	} else if -gap >= a.margin {
		return d.pick(agent.SourceWeb, web, MethodScore,
			fmt.Sprintf("web answer scored %.1f vs %.1f", d.WebScore, d.DBScore))
	}

	if a.judge == nil {
		return d.byScore(db, web, "no judge configured")
	}

	choice, rationale, err := a.judge.Compare(ctx, question, db.Answer, web.Answer)
	d.Choice = choice
	if err != nil {
		slog.Warn("judge failed, falling back to scores", "error", err)
		return d.byScore(db, web, "judge unavailable")
	}
	switch choice {
	case ChoiceDatabase:
		return d.pick(agent.SourceDatabase, db, MethodJudge, rationale)
	case ChoiceWeb:
		return d.pick(agent.SourceWeb, web, MethodJudge, rationale)
	case ChoiceBoth:
		return d.pick(agent.SourceDatabase, db, MethodJudge, "both answers equally good; preferring the database: "+rationale)
	default:
		return d.byScore(db, web, "judge verdict unclear")
	}
}

func (d Decision) pick(src agent.Source, o *agent.Outcome, m Method, rationale string) Decision {
	d.Winner = src
	d.Answer = o.Answer
	d.Method = m
	d.Rationale = rationale
	return d
}

// byScore prefers the higher score; a tie goes to the database.
func (d Decision) byScore(db, web *agent.Outcome, reason string) Decision {
	if d.WebScore > d.DBScore {
		return d.pick(agent.SourceWeb, web, MethodFallback,
			fmt.Sprintf("%s; web answer scored higher (%.1f vs %.1f)", reason, d.WebScore, d.DBScore))
	}
	return d.pick(agent.SourceDatabase, db, MethodFallback,
		fmt.Sprintf("%s; database answer scored %.1f vs %.1f", reason, d.DBScore, d.WebScore))
}
