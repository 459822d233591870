package routing

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/hrygo/gridiron/ai/core/llm"
	"github.com/hrygo/gridiron/ai/internal/nfl"
	"github.com/hrygo/gridiron/ai/prompts"
)

// RelevanceFilter rejects questions outside the NFL before any agent runs.
// Layer 0: cache. Layer 1: keyword screen. Layer 2: LLM classifier for undecided questions.
type RelevanceFilter struct {
	llm     llm.Service
	prompts *prompts.Prompts
	cache   *VerdictCache
}

// NewRelevanceFilter creates a filter. classifier and verdicts may be nil;
// without a classifier undecided questions are let through.
func NewRelevanceFilter(classifier llm.Service, p *prompts.Prompts, verdicts *VerdictCache) *RelevanceFilter {
	if p == nil {
		p = prompts.Default()
	}
	return &RelevanceFilter{llm: classifier, prompts: p, cache: verdicts}
}

// CheckRelevance returns the verdict for question.
// Classifier failures fail open; only context cancellation is returned as an error.
func (f *RelevanceFilter) CheckRelevance(ctx context.Context, question string) (Verdict, error) {
	start := time.Now()

	if f.cache != nil {
		if v, ok := f.cache.Get(question); ok {
			return v, nil
		}
	}

	v, decided := Screen(question)
	if !decided {
		var err error
		v, err = f.classify(ctx, question)
		if err != nil {
			return Verdict{}, err
		}
	}

	if f.cache != nil {
		f.cache.Set(question, v)
	}
	slog.Debug("relevance checked",
		"question", truncate(question, 50),
		"relevant", v.Relevant,
		"stage", v.Stage,
		"keywords", v.Keywords,
		"latency_ms", time.Since(start).Milliseconds())
	return v, nil
}

// Screen is the keyword layer. decided is false when the question needs the classifier.
//
// Other leagues reject unless the NFL is named. Football vocabulary and team
// abbreviations accept. Off-topic subjects reject. Team cities and generic sports
// words accept once the above are ruled out.
func Screen(question string) (v Verdict, decided bool) {
	strong := append(nfl.StatTerms.Find(question), nfl.TeamNames.Find(question)...)
	strong = append(strong, nfl.FindTeamAbbrs(question)...)
	namesNFL := false
	for _, kw := range strong {
		if kw == "nfl" {
			namesNFL = true
		}
	}

	if leagues := nfl.OtherLeagues.Find(question); len(leagues) > 0 && !namesNFL {
		return Verdict{Relevant: false, Stage: StageKeyword, Keywords: leagues, Reason: "question is about another sport or league"}, true
	}
	if len(strong) > 0 {
		return Verdict{Relevant: true, Stage: StageKeyword, Keywords: strong, Reason: "football vocabulary"}, true
	}
	if off := nfl.OffTopic.Find(question); len(off) > 0 {
		return Verdict{Relevant: false, Stage: StageKeyword, Keywords: off, Reason: "question is not about football"}, true
	}
	if cities := nfl.TeamCities.Find(question); len(cities) > 0 {
		return Verdict{Relevant: true, Stage: StageKeyword, Keywords: cities, Reason: "team city"}, true
	}
	if soft := nfl.SoftDomainTerms.Find(question); len(soft) > 0 {
		return Verdict{Relevant: true, Stage: StageKeyword, Keywords: soft, Reason: "sports statistics vocabulary"}, true
	}
	return Verdict{}, false
}

func (f *RelevanceFilter) classify(ctx context.Context, question string) (Verdict, error) {
	if f.llm == nil {
		return Verdict{Relevant: true, Stage: StageFallback, Reason: "no classifier configured"}, nil
	}

	user, err := f.prompts.Render("relevance.user", map[string]string{"Question": question})
	if err != nil {
		slog.Warn("relevance prompt render failed, letting question through", "error", err)
		return Verdict{Relevant: true, Stage: StageFallback, Reason: "classifier prompt unavailable"}, nil
	}

	reply, _, err := f.llm.Chat(ctx, []llm.Message{
		llm.SystemPrompt(f.prompts.Relevance.System),
		llm.UserMessage(user),
	})
	if err != nil {
		if ctx.Err() != nil {
			return Verdict{}, ctx.Err()
		}
		slog.Warn("relevance classifier failed, letting question through", "error", err)
		return Verdict{Relevant: true, Stage: StageFallback, Reason: "classifier unavailable"}, nil
	}

	relevant, ok := parseYesNo(reply)
	if !ok {
		slog.Warn("relevance classifier reply unparseable, letting question through", "reply", truncate(reply, 80))
		return Verdict{Relevant: true, Stage: StageFallback, Reason: "classifier reply unclear"}, nil
	}
	reason := "classifier: not about the NFL"
	if relevant {
		reason = "classifier: about the NFL"
	}
	return Verdict{Relevant: relevant, Stage: StageLLM, Reason: reason}, nil
}

// parseYesNo reads a YES/NO reply, tolerating punctuation and short explanations.
func parseYesNo(reply string) (yes bool, ok bool) {
	fields := strings.FieldsFunc(strings.ToUpper(reply), func(r rune) bool {
		return !('A' <= r && r <= 'Z')
	})
	if len(fields) == 0 {
		return false, false
	}
	switch fields[0] {
	case "YES":
		return true, true
	case "NO":
		return false, true
	}
	hasYes, hasNo := false, false
	for _, f := range fields {
		hasYes = hasYes || f == "YES"
		hasNo = hasNo || f == "NO"
	}
	if hasYes != hasNo {
		return hasYes, true
	}
	return false, false
}
