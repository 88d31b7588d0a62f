package ranking

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	pageRefRegex = regexp.MustCompile(`\b(page|pg|p\.)\s*:?\s*(\d+)`)
	numberRegex  = regexp.MustCompile(`\b\d+\b`)
)

// QueryAnalyzer extracts words, page references and numbers from passage queries.
type QueryAnalyzer struct{}

// NewQueryAnalyzer creates a new QueryAnalyzer.
func NewQueryAnalyzer() *QueryAnalyzer {
	return &QueryAnalyzer{}
}

// Analyze parses a query string and returns an AnalyzedQuery.
func (qa *QueryAnalyzer) Analyze(query string) *AnalyzedQuery {
	lower := strings.ToLower(query)
	result := &AnalyzedQuery{
		Original: query,
		Lower:    lower,
		Words:    Tokenize(lower),
		Numbers:  numberRegex.FindAllString(lower, -1),
	}
	for _, m := range pageRefRegex.FindAllStringSubmatch(lower, -1) {
		n, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		result.Pages = append(result.Pages, n)
	}
	return result
}

// Tokenize splits lowercase text on whitespace and returns the distinct words in order.
func Tokenize(text string) []string {
	fields := strings.Fields(text)
	seen := make(map[string]struct{}, len(fields))
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		words = append(words, f)
	}
	return words
}

// PageMarkers returns the chunk substrings that reference page n.
func PageMarkers(n int) []string {
	s := strconv.Itoa(n)
	return []string{
		"page " + s,
		"--- page " + s + " ---",
		"page: " + s,
		"p. " + s,
		"pg " + s,
	}
}
