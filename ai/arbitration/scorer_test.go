package arbitration

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	agent "github.com/hrygo/gridiron/ai/agents"
)

func testScorer() *Scorer {
	return &Scorer{now: func() time.Time { return time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC) }}
}

func TestScorer_Score(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		err    error
		source agent.Source
		want   float64
	}{
		{
			name:   "error scores zero",
			answer: "The Ravens led the league.",
			err:    errors.New("no such table"),
			source: agent.SourceDatabase,
			want:   0,
		},
		{
			name:   "empty scores zero",
			answer: "   ",
			source: agent.SourceWeb,
			want:   0,
		},
		{
			name:   "specific database answer",
			answer: "The Baltimore Ravens led the league with 3,189 rushing yards in 2024.",
			source: agent.SourceDatabase,
			want:   13, // 5 +1 length +1 "led" +2 numbers +2 database +2 team stat
		},
		{
			name:   "hedged speculative web answer",
			answer: "I'm not sure, but fantasy projections suggest the Chiefs might win.",
			source: agent.SourceWeb,
			want:   1, // 5 +1 length -1 fantasy -1 projections -3 low confidence
		},
		{
			name:   "too short",
			answer: "Chiefs.",
			source: agent.SourceWeb,
			want:   3,
		},
		{
			name:   "implausible numbers",
			answer: "The Lions had 18 wins and a 120% red zone rate in 1985.",
			source: agent.SourceDatabase,
			want:   6, // 5 +1 +2 +1 percent +2 +2 -3 pct -3 wins -1 year
		},
		{
			name:   "empty query result",
			answer: "The query returned no rows for that season.",
			source: agent.SourceDatabase,
			want:   6,
		},
		{
			name:   "another league",
			answer: "According to ESPN, the NBA's Lakers scored 120 points.",
			source: agent.SourceWeb,
			want:   7, // 5 +1 +2 numbers +1 credible -2 other league
		},
		{
			name:   "too long",
			answer: strings.Repeat("a", 1600),
			source: agent.SourceWeb,
			want:   4,
		},
		{
			name:   "yardage without separator is not a year",
			answer: "The Ravens led the NFL with 1921 rushing yards in 2024.",
			source: agent.SourceDatabase,
			want:   13, // same as the "1,921" form
		},
		{
			name:   "yardage with separator",
			answer: "The Ravens led the NFL with 1,921 rushing yards in 2024.",
			source: agent.SourceDatabase,
			want:   13,
		},
		{
			name:   "bare yardage",
			answer: "Derrick Henry ran for 1921 yards.",
			source: agent.SourceWeb,
			want:   8, // 5 +1 length +2 numbers
		},
		{
			name:   "season wording keeps the year",
			answer: "In 1985 rushing yards were rarer.",
			source: agent.SourceDatabase,
			want:   9, // 5 +1 +2 numbers +2 database -1 year
		},
		{
			name:   "specificity is capped",
			answer: "Most total yards, highest average and the league leader.",
			source: agent.SourceWeb,
			want:   8, // 5 +1 length +2 capped
		},
	}
	s := testScorer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Score(tt.answer, tt.err, tt.source))
		})
	}
}

func TestScorer_Explain(t *testing.T) {
	score, adj := testScorer().Explain("The Chiefs won 15 games in 2023.", nil, agent.SourceDatabase)
	assert.Equal(t, 12.0, score)

	rules := make([]string, len(adj))
	var sum float64
	for i, a := range adj {
		rules[i] = a.Rule
		sum += a.Delta
	}
	assert.Equal(t, []string{"concise length", "contains numbers", "database source", "team with a statistic"}, rules)
	assert.Equal(t, score-baseScore, sum)
}

func TestScore_DefaultScorer(t *testing.T) {
	assert.Zero(t, Score("", nil, agent.SourceDatabase))
	assert.Greater(t, Score("The Eagles scored 463 points in 2023.", nil, agent.SourceDatabase), baseScore)
}

func TestYears(t *testing.T) {
	assert.Equal(t, []int{2024}, years("McCaffrey had 2023 scrimmage yards in 2024."))
	assert.Equal(t, []int{1985, 2023}, years("Since 1985 total points have risen; 2023 was a record."))
	assert.Empty(t, years("The Lions scored 1999 points and 2010 total yards."))
}
