package search

import (
	"sort"
	"strings"
	"unicode"
)

// Markers wrapped around matched query terms in snippets.
const (
	MarkOpen  = "**"
	MarkClose = "**"
)

const ellipsis = "..."

// Highlight returns a window of at most maxLen runes of content around the first query
// term it contains, with every term occurrence at a word start wrapped in markers.
// maxLen <= 0 keeps the whole content.
func Highlight(content, query string, maxLen int) string {
	runes := []rune(content)
	lower := make([]rune, len(runes))
	for i, r := range runes {
		lower[i] = unicode.ToLower(r)
	}
	terms := highlightTerms(query)

	start, end := 0, len(runes)
	if maxLen > 0 && len(runes) > maxLen {
		if pos := firstMatch(lower, terms); pos > 0 {
			start = pos - maxLen/4
			if start < 0 {
				start = 0
			}
			if start+maxLen > len(runes) {
				start = len(runes) - maxLen
			}
		}
		end = start + maxLen
	}

	var b strings.Builder
	if start > 0 {
		b.WriteString(ellipsis)
	}
	b.WriteString(mark(runes[start:end], lower[start:end], terms))
	if end < len(runes) {
		b.WriteString(ellipsis)
	}
	return b.String()
}

// highlightTerms returns the distinct lowercase letter/digit terms of query, longest first.
func highlightTerms(query string) [][]rune {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]struct{}, len(fields))
	terms := make([][]rune, 0, len(fields))
	for _, f := range fields {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		terms = append(terms, []rune(f))
	}
	sort.SliceStable(terms, func(i, j int) bool { return len(terms[i]) > len(terms[j]) })
	return terms
}

func firstMatch(lower []rune, terms [][]rune) int {
	for i := range lower {
		if matchAt(lower, i, terms) > 0 {
			return i
		}
	}
	return -1
}

// matchAt returns the length of the longest term starting at a word boundary at i.
func matchAt(lower []rune, i int, terms [][]rune) int {
	if i > 0 && isWordRune(lower[i-1]) {
		return 0
	}
	for _, t := range terms {
		if hasPrefixAt(lower, i, t) {
			return len(t)
		}
	}
	return 0
}

func hasPrefixAt(s []rune, i int, prefix []rune) bool {
	if i+len(prefix) > len(s) {
		return false
	}
	for j, r := range prefix {
		if s[i+j] != r {
			return false
		}
	}
	return true
}

func mark(runes, lower []rune, terms [][]rune) string {
	var b strings.Builder
	for i := 0; i < len(runes); {
		if n := matchAt(lower, i, terms); n > 0 {
			b.WriteString(MarkOpen)
			b.WriteString(string(runes[i : i+n]))
			b.WriteString(MarkClose)
			i += n
			continue
		}
		b.WriteRune(runes[i])
		i++
	}
	return b.String()
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
