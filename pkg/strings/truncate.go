// Package strings holds small text helpers for terminal output.
package strings

import (
	"strings"
)

// DefaultReasonMaxLen bounds fallback reasons shown in discover tables.
const DefaultReasonMaxLen = 80

// MinTruncateLen leaves room for one character plus "...".
const MinTruncateLen = 4

// Truncate collapses all whitespace in s to single spaces and cuts the
// result to maxLen runes, ending in "..." when shortened. maxLen below
// MinTruncateLen is raised to it.
func Truncate(s string, maxLen int) string {
	if maxLen < MinTruncateLen {
		maxLen = MinTruncateLen
	}

	s = strings.Join(strings.Fields(s), " ")

	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen-3]) + "..."
	}
	return s
}
