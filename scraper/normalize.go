package scraper

import (
	"regexp"
	"strings"
)

var (
	// newlineEdges trims horizontal whitespace hugging a newline so that
	// paragraph runs become pure newline sequences.
	newlineEdges = regexp.MustCompile(`[ \t]*\n[ \t]*`)

	// paraRun bounds any newline run at one paragraph break.
	paraRun = regexp.MustCompile(`\n{3,}`)

	// boilerplate matches the expansion-control labels LinkedIn leaves in
	// copied text. Word-bounded, so "Showcase more" style phrases survive.
	boilerplate = regexp.MustCompile(`\b(?:Show more|Show less|See more|See less)\b`)

	// wsRun collapses any whitespace run inside a paragraph.
	wsRun = regexp.MustCompile(`\s+`)
)

// Normalize cleans text extracted from a posting page: whitespace runs
// collapse to single spaces, boilerplate expansion labels are stripped,
// and paragraph breaks (two or more newlines) are preserved as exactly
// one blank line.
//
// Normalize is idempotent: applying it to its own output is a no-op.
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = newlineEdges.ReplaceAllString(s, "\n")
	s = paraRun.ReplaceAllString(s, "\n\n")

	paras := strings.Split(s, "\n\n")
	out := make([]string, 0, len(paras))
	for _, p := range paras {
		p = wsRun.ReplaceAllString(p, " ")
		p = boilerplate.ReplaceAllString(p, " ")
		p = wsRun.ReplaceAllString(p, " ")
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "\n\n")
}
