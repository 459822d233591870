package routing

import "github.com/hrygo/gridiron/internal/strutil"

// truncate truncates a string to maxLen characters (Unicode-safe).
func truncate(s string, maxLen int) string {
	return strutil.Truncate(s, maxLen)
}

// confidenceFor follows the rule matcher scale: 0.5 base, +step per keyword, capped at 0.95.
func confidenceFor(keywords int, step float32) float32 {
	c := 0.5 + float32(keywords)*step
	if c > 0.95 {
		c = 0.95
	}
	return c
}
