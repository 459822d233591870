// Package orchestrator runs one question end to end: relevance filter, agents,
// arbitration, history and caching.
package orchestrator

import (
	"errors"
	"fmt"
	"strings"
	"time"

	agent "github.com/hrygo/gridiron/ai/agents"
	"github.com/hrygo/gridiron/ai/arbitration"
	"github.com/hrygo/gridiron/ai/routing"
)

var (
	ErrEmptyQuestion    = errors.New("question is empty")
	ErrBothAgentsFailed = errors.New("no agent produced an answer")
	ErrUnknownMode      = errors.New("unknown mode")
)

const (
	// RefusalAnswer is returned for questions outside NFL statistics.
	RefusalAnswer = "Sorry, I can only answer questions about NFL statistics, teams, players, and games."

	// DisclaimerAnswer is returned when every agent failed.
	DisclaimerAnswer = "Sorry, I couldn't find an answer to that question right now. " +
		"Both the statistics database and web search failed; please try again or rephrase the question."
)

// Mode selects which agents run.
type Mode string

const (
	ModeHybrid   Mode = "hybrid"   // both agents concurrently, then arbitration
	ModeRoute    Mode = "route"    // rule route to one agent, the other on failure
	ModeDatabase Mode = "database" // database agent only
	ModeWeb      Mode = "web"      // web agent only
)

// ParseMode accepts the mode names case-insensitively. "" means hybrid.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeHybrid, nil
	case ModeHybrid, ModeRoute, ModeDatabase, ModeWeb:
		return m, nil
	default:
		return "", fmt.Errorf("%w %q (want hybrid, route, database or web)", ErrUnknownMode, s)
	}
}

// forcedSource is the only source a forced mode may answer from; empty for hybrid and route.
func (m Mode) forcedSource() agent.Source {
	switch m {
	case ModeDatabase:
		return agent.SourceDatabase
	case ModeWeb:
		return agent.SourceWeb
	}
	return ""
}

// Method values recorded for answers that did not go through arbitration.
const (
	MethodFiltered = "filtered"
	MethodRouted   = "routed"
	MethodCached   = "cached"
	MethodSimilar  = "similar"
)

// Request is one question.
type Request struct {
	Question      string
	Mode          Mode
	ShowReasoning bool
	// SkipCache bypasses the answer cache and the similar-question lookup.
	SkipCache bool
}

// StageTiming is how long one pipeline stage took.
type StageTiming struct {
	Name       string `json:"name"`
	DurationMs int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// Result is the final answer with everything needed to explain it.
type Result struct {
	ID       string          `json:"id,omitempty"` // history record ID, empty when history is off
	TraceID  string          `json:"trace_id"`
	Question string          `json:"question"`
	Answer   string          `json:"answer"`
	Mode     Mode            `json:"mode"`
	Source   agent.Source    `json:"source,omitempty"`
	Method   string          `json:"method"`
	DBScore  float64         `json:"db_score"`
	WebScore float64         `json:"web_score"`
	Verdict  routing.Verdict `json:"verdict"`
	Filtered bool            `json:"filtered"`
	Cached   bool            `json:"cached"`

	Decision *arbitration.Decision `json:"decision,omitempty"`
	SQL      []string              `json:"sql,omitempty"`
	Sources  []string              `json:"sources,omitempty"`

	Reasoning []string      `json:"reasoning,omitempty"`
	Timings   []StageTiming `json:"timings,omitempty"`
	Duration  time.Duration `json:"duration"`

	// Err is set when no usable answer was produced; Answer then holds the disclaimer.
	Err error `json:"-"`
}

// ErrorText is Err's message, "" when the answer succeeded.
func (r *Result) ErrorText() string {
	if r == nil || r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// DebugLog renders the reasoning trail and per-stage timings.
func (r *Result) DebugLog() string {
	var b strings.Builder
	fmt.Fprintf(&b, "trace %s (%s mode, %dms)\n", r.TraceID, r.Mode, r.Duration.Milliseconds())
	fmt.Fprintf(&b, "question: %s\n", r.Question)
	for i, step := range r.Reasoning {
		fmt.Fprintf(&b, "%2d. %s\n", i+1, step)
	}
	if len(r.Timings) > 0 {
		b.WriteString("timings:\n")
		for _, t := range r.Timings {
			fmt.Fprintf(&b, "  %-12s %6dms", t.Name, t.DurationMs)
			if t.Error != "" {
				fmt.Fprintf(&b, "  error: %s", t.Error)
			}
			b.WriteByte('\n')
		}
	}
	if r.Err != nil {
		fmt.Fprintf(&b, "error: %v\n", r.Err)
	}
	return b.String()
}
