// Package arbitration picks the final answer when both agents answered:
// a heuristic score per answer, and an LLM judge for close calls.
package arbitration

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	agent "github.com/hrygo/gridiron/ai/agents"
	"github.com/hrygo/gridiron/ai/internal/nfl"
	"github.com/hrygo/gridiron/internal/strutil"
)

// Scoring weights.
const (
	baseScore          = 5.0
	shortAnswerLen     = 20
	goodAnswerMaxLen   = 500
	longAnswerLen      = 1500
	maxSpecificity     = 2.0
	numericBonus       = 2.0
	percentBonus       = 1.0
	databaseBonus      = 2.0
	credibleSiteBonus  = 1.0
	teamStatBonus      = 2.0
	implausiblePenalty = -3.0
	oddYearPenalty     = -1.0
	webDomainPenalty   = -1.0
	emptyDataPenalty   = -2.0
	otherLeaguePenalty = -2.0
	lowConfidence      = -3.0
	firstDataSeason    = 1999
	maxRegularWins     = 17
	maxSeasonTDs       = 100
)

var (
	specificityTerms = strutil.NewKeywordSet(
		"most", "highest", "lowest", "fewest", "least", "led", "leader", "leading", "total",
		"average", "percentage", "per game", "ranked", "career high", "record",
	)
	credibleSites = strutil.NewKeywordSet(
		"nfl.com", "espn", "espn.com", "pro-football-reference", "pro football reference",
		"pro-football-reference.com", "cbssports", "the athletic", "nflfastr",
	)
	webSpeculation = strutil.NewKeywordSet(
		"fantasy", "projection", "projections", "projected", "rumor", "rumors", "rumored",
	)
	emptyData = strutil.NewKeywordSet(
		"no data", "0 rows", "no rows", "no results", "returned no", "empty result",
	)
	lowConfidencePhrases = strutil.NewKeywordSet(
		"i don't know", "i do not know", "not sure", "unable to", "could not find", "couldn't find",
		"no information", "cannot determine", "can't determine", "i'm sorry",
	)

	digitPattern   = regexp.MustCompile(`\d`)
	percentPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*%`)
	winsPattern    = regexp.MustCompile(`(?i)\b(\d+)\s+wins\b`)
	tdPattern      = regexp.MustCompile(`(?i)\b(\d+)\s+(?:touchdowns|tds)\b`)
	yearPattern    = regexp.MustCompile(`\b(1[89]\d\d|20\d\d)\b`)
	teamStat       = teamStatPattern()

	// A statistic unit after a number ("1921 rushing yards") means it is not a year,
	// unless season wording comes right before it ("in 1985 rushing yards ...").
	statUnitAfter = regexp.MustCompile(`(?i)^\s+(?:[a-z-]+\s+){0,2}?(?:yards|yds|yard|points|pts|attempts|carries|receptions|catches|snaps|plays|passes|completions|tackles|targets|touches)\b`)
	seasonBefore  = regexp.MustCompile(`(?i)\b(?:in|season|seasons|since|during|from|through|until|before|after)\s+$`)
)

// teamStatPattern matches a team nickname followed by a number within a few words,
// as in "the Chiefs with 15 wins" or "Ravens (3,189 rushing yards)".
func teamStatPattern() *regexp.Regexp {
	names := make([]string, 0, len(nfl.Teams))
	for _, t := range nfl.Teams {
		names = append(names, regexp.QuoteMeta(strings.ToLower(t.Nickname)))
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(names, "|") + `)\b\W+(?:[a-z']+\W+){0,4}\d`)
}

// Adjustment is one scoring rule that fired.
type Adjustment struct {
	Rule  string  `json:"rule"`
	Delta float64 `json:"delta"`
}

// Scorer rates a candidate answer. Higher is better; failures score 0.
type Scorer struct {
	now func() time.Time
}

// NewScorer creates a Scorer.
func NewScorer() *Scorer {
	return &Scorer{now: time.Now}
}

var defaultScorer = NewScorer()

// Score rates answer with the default scorer.
func Score(answer string, err error, source agent.Source) float64 {
	return defaultScorer.Score(answer, err, source)
}

// Score returns the heuristic score of answer.
func (s *Scorer) Score(answer string, err error, source agent.Source) float64 {
	score, _ := s.Explain(answer, err, source)
	return score
}

// Explain returns the score along with the rules that contributed to it.
func (s *Scorer) Explain(answer string, err error, source agent.Source) (float64, []Adjustment) {
	if err != nil || strings.TrimSpace(answer) == "" {
		return 0, nil
	}

	score := baseScore
	var adj []Adjustment
	add := func(rule string, delta float64) {
		score += delta
		adj = append(adj, Adjustment{Rule: rule, Delta: delta})
	}

	switch n := len([]rune(strings.TrimSpace(answer))); {
	case n < shortAnswerLen:
		add("too short", -2)
	case n <= goodAnswerMaxLen:
		add("concise length", 1)
	case n > longAnswerLen:
		add("too long", -1)
	}

	if terms := specificityTerms.Find(answer); len(terms) > 0 {
		add("specific wording", min(float64(len(terms)), maxSpecificity))
	}

	if digitPattern.MatchString(answer) {
		add("contains numbers", numericBonus)
		if strings.Contains(answer, "%") {
			add("contains a percentage", percentBonus)
		}
	}

	lower := strings.ToLower(answer)
	switch source {
	case agent.SourceDatabase:
		add("database source", databaseBonus)
	case agent.SourceWeb:
		if credibleSites.Contains(lower) {
			add("credible site cited", credibleSiteBonus)
		}
	}

	if teamStat.MatchString(answer) {
		add("team with a statistic", teamStatBonus)
	}

	for _, m := range percentPattern.FindAllStringSubmatch(answer, -1) {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil && v > 100 {
			add("percentage over 100", implausiblePenalty)
		}
	}
	for _, m := range winsPattern.FindAllStringSubmatch(answer, -1) {
		if v, err := strconv.Atoi(m[1]); err == nil && v > maxRegularWins {
			add("too many wins", implausiblePenalty)
		}
	}
	for _, m := range tdPattern.FindAllStringSubmatch(answer, -1) {
		if v, err := strconv.Atoi(m[1]); err == nil && v > maxSeasonTDs {
			add("too many touchdowns", implausiblePenalty)
		}
	}
	latest := s.now().Year() + 1
	for _, y := range years(answer) {
		if y < firstDataSeason || y > latest {
			add("year outside data range", oddYearPenalty)
		}
	}

	switch source {
	case agent.SourceWeb:
		for _, w := range webSpeculation.Find(answer) {
			add("speculative: "+w, webDomainPenalty)
		}
	case agent.SourceDatabase:
		if emptyData.Contains(lower) {
			add("empty query result", emptyDataPenalty)
		}
	}
	if nfl.OtherLeagues.Contains(lower) {
		add("mentions another league", otherLeaguePenalty)
	}
	if lowConfidencePhrases.Contains(lower) {
		add("low confidence", lowConfidence)
	}

	return score, adj
}

// years returns the four-digit numbers in answer that read as seasons rather than statistics.
func years(answer string) []int {
	var out []int
	for _, loc := range yearPattern.FindAllStringIndex(answer, -1) {
		if statUnitAfter.MatchString(answer[loc[1]:]) && !seasonBefore.MatchString(answer[:loc[0]]) {
			continue
		}
		v, _ := strconv.Atoi(answer[loc[0]:loc[1]])
		out = append(out, v)
	}
	return out
}
