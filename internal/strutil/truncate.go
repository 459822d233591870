// Package strutil provides string utility functions for the ai package.
package strutil

import (
	"strings"
	"unicode"
)

// Truncate truncates a string to a maximum length.
// Uses rune-level truncation to stay Unicode safe.
// Returns empty string if maxLen <= 0.
func Truncate(s string, maxLen int) string {
	if s == "" || maxLen <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}

// NormalizeQuestion lowercases s, collapses whitespace and drops trailing punctuation,
// so that "Who led the NFL in sacks?" and "who led the nfl in sacks" share a cache key.
func NormalizeQuestion(s string) string {
	s = strings.Join(strings.Fields(strings.ToLower(s)), " ")
	return strings.TrimRightFunc(s, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r)
	})
}
