package strutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"", 5, ""},
		{"short", 10, "short"},
		{"touchdowns", 5, "touch..."},
		{"四分卫传球码数", 3, "四分卫..."},
		{"anything", 0, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Truncate(tt.in, tt.max))
	}
}

func TestNormalizeQuestion(t *testing.T) {
	assert.Equal(t, "who led the nfl in sacks", NormalizeQuestion("  Who led the NFL   in sacks?? "))
	assert.Equal(t, "what's the spread", NormalizeQuestion("What's the SPREAD!"))
	assert.Equal(t, "", NormalizeQuestion(" ?! "))
}

func TestKeywordSet(t *testing.T) {
	k := NewKeywordSet("rams", "red zone", "4th down", "head-to-head", "over/under", "down")

	tests := []struct {
		text string
		want []string
	}{
		{"How did the Rams do in the red zone?", []string{"rams", "red zone"}},
		{"Computer programs are not football", nil},
		{"Success rate on 4th down attempts", []string{"4th down"}},
		{"Show me head-to-head matchups", []string{"head-to-head"}},
		{"What was the over/under, and was it down?", []string{"over/under", "down"}},
		{"rams rams RAMS", []string{"rams"}},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, k.Find(tt.text))
			assert.Equal(t, len(tt.want) > 0, k.Contains(tt.text))
		})
	}
}

func TestKeywordSet_Empty(t *testing.T) {
	k := NewKeywordSet()
	assert.Nil(t, k.Find("anything"))
	assert.False(t, k.Contains("anything"))
}
