package textutil

import (
	"strings"
	"unicode/utf8"
)

// Truncate returns at most limit runes of s. A non-positive limit returns s
// unchanged.
func Truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	count := 0
	for i := range s {
		if count == limit {
			return s[:i]
		}
		count++
	}
	return s
}

// Ellipsize truncates s to limit runes, ending with "..." when shortened.
func Ellipsize(s string, limit int) string {
	s = strings.TrimSpace(s)
	if limit <= 3 || utf8.RuneCountInString(s) <= limit {
		return Truncate(s, limit)
	}
	return strings.TrimSpace(Truncate(s, limit-3)) + "..."
}
