package strutil

import (
	"regexp"
	"slices"
	"strings"
)

// KeywordSet matches whole words and phrases case-insensitively.
type KeywordSet struct {
	words []string
	re    *regexp.Regexp
}

// NewKeywordSet compiles words into a single alternation. Longer phrases win over their prefixes.
func NewKeywordSet(words ...string) *KeywordSet {
	sorted := make([]string, 0, len(words))
	for _, w := range words {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			sorted = append(sorted, w)
		}
	}
	slices.SortFunc(sorted, func(a, b string) int { return len(b) - len(a) })
	sorted = slices.Compact(sorted)

	quoted := make([]string, len(sorted))
	for i, w := range sorted {
		quoted[i] = regexp.QuoteMeta(w)
	}
	// Word boundaries are emulated so phrases may start or end with non-word runes.
	re := regexp.MustCompile(`(?i)(?:^|[^\p{L}\p{N}])(` + strings.Join(quoted, "|") + `)(?:$|[^\p{L}\p{N}])`)
	return &KeywordSet{words: sorted, re: re}
}

// Find returns the distinct keywords found in text, in order of first appearance.
func (k *KeywordSet) Find(text string) []string {
	if len(k.words) == 0 {
		return nil
	}
	lower := strings.ToLower(text)
	var found []string
	// Matches consume the trailing separator, so scan with overlapping offsets.
	for start := 0; start < len(lower); {
		loc := k.re.FindStringSubmatchIndex(lower[start:])
		if loc == nil {
			break
		}
		word := lower[start+loc[2] : start+loc[3]]
		if !slices.Contains(found, word) {
			found = append(found, word)
		}
		start += loc[3]
	}
	return found
}

// Contains reports whether any keyword occurs in text.
func (k *KeywordSet) Contains(text string) bool {
	return len(k.words) > 0 && k.re.MatchString(strings.ToLower(text))
}

// Words returns the keywords in match priority order.
func (k *KeywordSet) Words() []string {
	return slices.Clone(k.words)
}
