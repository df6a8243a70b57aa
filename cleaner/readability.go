package cleaner

import (
	"fmt"
	nurl "net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
)

// minReadableChars is the floor under which a readability result is
// treated as a miss rather than usable description text.
const minReadableChars = 50

// Readable runs the Mozilla Readability algorithm over a full guest page
// as the last-resort description source, returning plain text and the
// extracted content HTML. Unlike the selector paths it sees the whole
// page, so it errs rather than guessing: a too-short result is a miss
// and the caller decides what a miss means.
func (c *Cleaner) Readable(rawHTML, sourceURL string) (text, contentHTML string, err error) {
	parsedURL, err := nurl.Parse(sourceURL)
	if err != nil {
		return "", "", fmt.Errorf("cleaner: readability source URL: %w", err)
	}

	article, err := readability.FromReader(strings.NewReader(rawHTML), parsedURL)
	if err != nil {
		return "", "", fmt.Errorf("cleaner: readability: %w", err)
	}

	text = strings.TrimSpace(article.TextContent)
	if len(text) < minReadableChars {
		return "", "", fmt.Errorf("cleaner: readability yielded %d chars, floor is %d", len(text), minReadableChars)
	}
	return text, article.Content, nil
}
