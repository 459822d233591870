package routing

import (
	"regexp"
	"strconv"
	"time"

	"github.com/hrygo/gridiron/internal/strutil"
)

var (
	// webMarkers signal recency or news, which the historical database cannot answer.
	webMarkers = strutil.NewKeywordSet(
		"latest", "current", "currently", "recent", "recently", "today", "today's", "tonight",
		"this week", "last week", "last night", "right now", "news", "breaking", "injury", "injuries",
		"injured", "hurt", "trade", "trades", "traded", "rumor", "rumors", "signed", "signing",
		"free agent", "free agency", "offseason", "head coach", "coach", "upcoming", "next game",
		"live", "announced", "suspended", "suspension", "contract", "depth chart", "released", "retire", "retired",
	)

	// databaseMarkers explicitly ask for the stats database.
	databaseMarkers = strutil.NewKeywordSet(
		"database", "in the data", "in the dataset", "play-by-play", "historical", "historically",
	)

	yearPattern = regexp.MustCompile(`\b(19[6-9]\d|20\d\d)\b`)
)

// RuleMatcher routes a question to the database or the web from its wording.
// Target: 0ms latency, no LLM call.
type RuleMatcher struct {
	now func() time.Time
}

// NewRuleMatcher creates a new rule matcher.
func NewRuleMatcher() *RuleMatcher {
	return &RuleMatcher{now: time.Now}
}

// Match returns the route for question.
// An explicit database mention wins; recency and news vocabulary goes to the web;
// everything else is a statistics question for the database.
func (m *RuleMatcher) Match(question string) MatchResult {
	if kws := databaseMarkers.Find(question); len(kws) > 0 {
		return MatchResult{Route: RouteDatabase, Keywords: kws, Confidence: 0.95, Matched: true}
	}
	if kws := webMarkers.Find(question); len(kws) > 0 {
		return MatchResult{Route: RouteWeb, Keywords: kws, Confidence: confidenceFor(len(kws), 0.15), Matched: true}
	}

	result := MatchResult{Route: RouteDatabase, Confidence: 0.5}
	if years := m.pastSeasons(question); len(years) > 0 {
		result.Keywords = years
		result.Confidence = 0.7
		result.Matched = true
	}
	return result
}

// ShouldUseWebSearch reports whether question belongs to the web agent.
func (m *RuleMatcher) ShouldUseWebSearch(question string) bool {
	return m.Match(question).Route == RouteWeb
}

// pastSeasons returns the completed seasons mentioned in question.
func (m *RuleMatcher) pastSeasons(question string) []string {
	current := m.now().Year()
	var years []string
	for _, y := range yearPattern.FindAllString(question, -1) {
		if n, err := strconv.Atoi(y); err == nil && n < current {
			years = append(years, y)
		}
	}
	return years
}
