package arbitration

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/gridiron/ai/core/llm/llmtest"
)

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		name      string
		reply     string
		choice    Choice
		rationale string
	}{
		{"json database", `{"choice": "Database", "rationale": "exact numbers"}`, ChoiceDatabase, "exact numbers"},
		{"fenced json", "```json\n{\"choice\":\"Web\",\"rationale\":\"more recent\"}\n```", ChoiceWeb, "more recent"},
		{"json both", `{"choice":"Both equally good","rationale":"same team"}`, ChoiceBoth, "same team"},
		{"free text database", "The database answer is better.", ChoiceDatabase, "The database answer is better."},
		{"free text web", "I prefer the web answer", ChoiceWeb, "I prefer the web answer"},
		{"free text unclear", "Hard to say.", ChoiceUnclear, "Hard to say."},
		{"json without a usable choice", `{"choice":"neither"}`, ChoiceUnclear, `{"choice":"neither"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			choice, rationale := parseVerdict(tt.reply)
			assert.Equal(t, tt.choice, choice)
			assert.Equal(t, tt.rationale, rationale)
		})
	}
}

func TestJudge_Compare(t *testing.T) {
	mock := llmtest.NewMockLLM().WithDefaultResponse(`{"choice":"Web","rationale":"cites ESPN"}`)
	j := NewJudge(mock, nil)

	choice, rationale, err := j.Compare(context.Background(), "Who won the most games in 2023?", "Ravens, 13", "49ers, 12")
	require.NoError(t, err)
	assert.Equal(t, ChoiceWeb, choice)
	assert.Equal(t, "cites ESPN", rationale)

	conv := mock.Conversations()[0]
	require.Len(t, conv, 2)
	assert.Contains(t, conv[1].Content, "Who won the most games in 2023?")
	assert.Contains(t, conv[1].Content, "Database answer:\nRavens, 13")
	assert.Contains(t, conv[1].Content, "Web answer:\n49ers, 12")
}

func TestJudge_CompareError(t *testing.T) {
	mock := llmtest.NewMockLLM().WithError("Question:", errors.New("boom"))
	choice, _, err := NewJudge(mock, nil).Compare(context.Background(), "q", "a", "b")
	assert.Error(t, err)
	assert.Equal(t, ChoiceUnclear, choice)
}
