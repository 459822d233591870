// Package agent holds what the database and web agents share: the Outcome they report,
// the tool abstraction and the ReAct tool-calling loop.
package agent

import (
	"context"
	"strings"
	"time"

	"github.com/hrygo/gridiron/ai/core/llm"
)

// Source identifies which agent produced an answer.
type Source string

const (
	SourceDatabase Source = "database"
	SourceWeb      Source = "web"
)

// Outcome is one agent's attempt at a question.
// Err is set when the agent failed; Answer may still hold partial text.
type Outcome struct {
	Source     Source
	Answer     string
	Err        error
	SQL        []string // statements run by the database agent
	Sources    []string // URLs cited by the web agent
	Iterations int
	Stats      llm.LLMCallStats
	Duration   time.Duration
}

// OK reports whether the outcome carries a usable answer.
func (o *Outcome) OK() bool {
	return o != nil && o.Err == nil && strings.TrimSpace(o.Answer) != ""
}

// Agent answers a question from one source.
// Answer always returns a non-nil Outcome; the error mirrors Outcome.Err.
type Agent interface {
	Source() Source
	Answer(ctx context.Context, question string) (*Outcome, error)
}

// Fail records err on o and returns both, for the common "return o.Fail(err)" exit.
func (o *Outcome) Fail(err error) (*Outcome, error) {
	o.Err = err
	return o, err
}
