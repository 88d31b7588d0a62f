// Package utils provides shared utilities for text, math, and logging.
package utils

import (
	"strings"
	"unicode/utf8"
)

// Truncate returns s truncated to maxLen bytes, with "..." appended if truncated.
// The cut never splits a UTF-8 sequence. If maxLen is 0 or negative, returns s unchanged.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// Preview shortens a passage for display. Passages up to maxLen are returned as-is.
// Longer ones keep whole leading sentences while they fit, else a plain truncation.
func Preview(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	sentences := strings.Split(s, ". ")
	var b strings.Builder
	for _, sentence := range sentences {
		next := sentence + ". "
		if b.Len()+len(next) > maxLen {
			break
		}
		b.WriteString(next)
	}
	if b.Len() == 0 {
		return Truncate(s, maxLen)
	}
	return strings.TrimSpace(b.String()) + "..."
}
