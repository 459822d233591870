package nfl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindTeamAbbrs(t *testing.T) {
	tests := []struct {
		text string
		want []string
	}{
		{"Did KC beat BUF twice? KC won both.", []string{"KC", "BUF"}},
		{"kc and buf in lower case", nil},
		{"NO LA WAS TEN", nil},
		{"NYG vs NYJ at MetLife", []string{"NYG", "NYJ"}},
		{"KCX is not a team", nil},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, FindTeamAbbrs(tt.text))
		})
	}
}

func TestTeamCities(t *testing.T) {
	assert.Equal(t, []string{"kansas city", "buffalo"}, TeamCities.Find("Kansas City at Buffalo"))
	assert.Empty(t, TeamCities.Find("New York and Los Angeles"))
	assert.Empty(t, TeamCities.Find("Washington state"))
}
