package cleaner

import (
	"fmt"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/PuerkitoBio/goquery"
)

// linkedinBase resolves relative links in description HTML so the
// Markdown rendition is self-contained.
const linkedinBase = "https://www.linkedin.com"

// chromeSelectors match UI chrome that leaks into captured description
// markup: expansion controls, tracking pixels, inline icons. Removed
// before any conversion.
var chromeSelectors = []string{
	"script", "style", "noscript", "iframe", "form", "nav",
	"button", "svg", "input", "img[src^='data:']",
}

// Cleaner renders posting description HTML to Markdown and carries the
// guest-path readability fallback. The Markdown converter is built once
// and shared; it is safe for concurrent use.
type Cleaner struct {
	mdConverter *converter.Converter
}

// New creates a Cleaner with the preconfigured Markdown converter.
func New() *Cleaner {
	return &Cleaner{mdConverter: newMarkdownConverter()}
}

// BodyMarkdown converts a description HTML fragment to Markdown. The
// fragment is sanitized first so chrome nodes never reach the rendition.
func (c *Cleaner) BodyMarkdown(html string) (string, error) {
	md, err := c.mdConverter.ConvertString(Sanitize(html), converter.WithDomain(linkedinBase))
	if err != nil {
		return "", fmt.Errorf("cleaner: markdown conversion: %w", err)
	}
	return strings.TrimSpace(md), nil
}

// Sanitize removes chrome nodes from an HTML fragment. On parse failure
// the fragment is returned unchanged; the converter's base plugin is the
// backstop for anything that slips through.
func Sanitize(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}
	for _, sel := range chromeSelectors {
		doc.Find(sel).Remove()
	}
	out, err := doc.Find("body").Html()
	if err != nil {
		return html
	}
	return out
}

// FragmentText returns the visible text of an HTML fragment.
func FragmentText(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return ""
	}
	return doc.Text()
}
