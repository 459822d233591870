package arbitration

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hrygo/gridiron/ai/core/llm"
	"github.com/hrygo/gridiron/ai/prompts"
	"github.com/hrygo/gridiron/internal/strutil"
)

// Choice is the judge's verdict.
type Choice string

const (
	ChoiceDatabase Choice = "Database"
	ChoiceWeb      Choice = "Web"
	ChoiceBoth     Choice = "Both equally good"
	ChoiceUnclear  Choice = "Unclear"
)

// Judge asks an LLM which of two answers is better.
type Judge struct {
	llm     llm.Service
	prompts *prompts.Prompts
}

// NewJudge creates a judge. A nil prompt set uses the embedded defaults.
func NewJudge(service llm.Service, p *prompts.Prompts) *Judge {
	if p == nil {
		p = prompts.Default()
	}
	return &Judge{llm: service, prompts: p}
}

// Compare returns the preferred answer and a one-sentence rationale.
// An unparseable reply is ChoiceUnclear with a nil error.
func (j *Judge) Compare(ctx context.Context, question, dbAnswer, webAnswer string) (Choice, string, error) {
	user, err := j.prompts.Render("judge.user", map[string]string{
		"Question": question,
		"Database": dbAnswer,
		"Web":      webAnswer,
	})
	if err != nil {
		return ChoiceUnclear, "", err
	}

	reply, _, err := j.llm.Chat(ctx, []llm.Message{
		llm.SystemPrompt(j.prompts.Judge.System),
		llm.UserMessage(user),
	})
	if err != nil {
		return ChoiceUnclear, "", fmt.Errorf("judge: %w", err)
	}

	choice, rationale := parseVerdict(reply)
	slog.Debug("judge verdict", "choice", choice, "rationale", strutil.Truncate(rationale, 120))
	return choice, rationale, nil
}

type verdict struct {
	Choice    string `json:"choice"`
	Rationale string `json:"rationale"`
}

// parseVerdict reads the JSON reply, falling back to keywords in free text.
func parseVerdict(reply string) (Choice, string) {
	reply = strings.TrimSpace(reply)
	if start, end := strings.Index(reply, "{"), strings.LastIndex(reply, "}"); start >= 0 && end > start {
		var v verdict
		if err := json.Unmarshal([]byte(reply[start:end+1]), &v); err == nil {
			if c := normalizeChoice(v.Choice); c != ChoiceUnclear {
				return c, strings.TrimSpace(v.Rationale)
			}
		}
	}
	return normalizeChoice(reply), strutil.Truncate(reply, 300)
}

func normalizeChoice(s string) Choice {
	lower := strings.ToLower(s)
	if strings.Contains(lower, "both") {
		return ChoiceBoth
	}
	hasDB := strings.Contains(lower, "database")
	hasWeb := strings.Contains(lower, "web")
	switch {
	case hasDB && !hasWeb:
		return ChoiceDatabase
	case hasWeb && !hasDB:
		return ChoiceWeb
	}
	return ChoiceUnclear
}
