package indexer

import (
	"regexp"
	"strings"
)

var (
	blankLinesRe   = regexp.MustCompile(`\n\s*\n`)
	repeatSpacesRe = regexp.MustCompile(` +`)
	// Control characters plus the Latin-1 block that PDF extraction leaves behind as noise.
	artifactRe = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f-\x{ff}]`)
)

var punctuationReplacer = strings.NewReplacer(
	"’", "'",
	"‘", "'",
	"“", `"`,
	"”", `"`,
	"–", "-",
	"—", "--",
)

// CleanText normalizes extracted document text before chunking: blank-line runs
// collapse to one empty line, repeated spaces collapse, control characters and
// extraction artifacts are dropped, and typographic quotes and dashes become ASCII.
func CleanText(text string) string {
	if text == "" {
		return ""
	}
	text = blankLinesRe.ReplaceAllString(text, "\n\n")
	text = repeatSpacesRe.ReplaceAllString(text, " ")
	text = artifactRe.ReplaceAllString(text, "")
	text = punctuationReplacer.Replace(text)
	return strings.TrimSpace(text)
}
