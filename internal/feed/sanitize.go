package feed

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	blockTags = regexp.MustCompile(`(?i)</?(p|div|br|li|ul|ol|h[1-6]|tr|table|blockquote|pre|section|article|header|footer|figure)\b[^>]*>`)
	spaceRuns = regexp.MustCompile(`[ \t\r\f\x{00a0}]+`)
	lineEdges = regexp.MustCompile(` ?\n ?`)
	lineRuns  = regexp.MustCompile(`\n{2,}`)

	stripPolicy = bluemonday.StrictPolicy()
)

// StripMarkup reduces feed HTML to readable plain text: block-level
// tags collapse to paragraph breaks, remaining tags are removed,
// entities are decoded, and whitespace runs are normalized. The
// transform runs to a fixpoint, so applying it to already-normalized
// text returns the text unchanged even when decoding exposes further
// markup (e.g. "&lt;b&gt;" becoming "<b>").
func StripMarkup(input string) string {
	out := input
	for i := 0; i < 10; i++ {
		next := stripOnce(out)
		if next == out {
			break
		}
		out = next
	}
	return out
}

func stripOnce(s string) string {
	s = blockTags.ReplaceAllString(s, "\n")
	s = stripPolicy.Sanitize(s)
	s = html.UnescapeString(s)
	s = spaceRuns.ReplaceAllString(s, " ")
	s = lineEdges.ReplaceAllString(s, "\n")
	s = lineRuns.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
