package cleaner

import (
	"bytes"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// Slice carves the first element matching selector out of rawHTML and
// returns its outer HTML. ok is false when the selector is invalid, the
// HTML is unparseable, or nothing matched.
func Slice(rawHTML, selector string) (string, bool) {
	sel, err := cascadia.Parse(selector)
	if err != nil {
		return "", false
	}

	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return "", false
	}

	node := cascadia.Query(doc, sel)
	if node == nil {
		return "", false
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, node); err != nil {
		return "", false
	}
	return buf.String(), true
}
