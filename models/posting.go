package models

import (
	"time"
	"unicode/utf8"
)

// SourceLinkedIn is the source tag for postings scraped from LinkedIn.
const SourceLinkedIn = "linkedin"

// OrganizationUnknown is the sentinel stored when no company name could
// be extracted from the posting page.
const OrganizationUnknown = "Unknown"

// Posting is a structured job posting extracted from a posting page.
type Posting struct {
	// ID is the numeric posting identifier derived from the URL path.
	ID string `json:"id"`

	// URL is the original posting URL as submitted.
	URL string `json:"url"`

	// Title is the job title. Never empty on a stored posting.
	Title string `json:"title"`

	// Organization is the hiring company, or OrganizationUnknown when
	// the page exposed none.
	Organization string `json:"organization"`

	// Body is the normalized plain-text description. At least 50
	// characters on a stored posting.
	Body string `json:"body"`

	// BodyMarkdown is the Markdown rendition of the description HTML.
	// Empty when the winning extraction strategy exposed no HTML.
	BodyMarkdown string `json:"body_markdown,omitempty"`

	// PostedLabel is the human-readable posted-date text from the page
	// (e.g. "2 weeks ago"). Empty when absent.
	PostedLabel string `json:"posted_label,omitempty"`

	// FetchedAt is the UTC completion time of the successful attempt.
	FetchedAt time.Time `json:"fetched_at"`

	// SourceTag identifies the origin site (currently always "linkedin").
	SourceTag string `json:"source_tag"`

	// Fingerprint is the 64-bit SimHash of the normalized body, used for
	// similar-posting search.
	Fingerprint uint64 `json:"fingerprint,omitempty"`

	// Degraded marks postings recovered through the browserless guest
	// fallback rather than the full browser pipeline.
	Degraded bool `json:"degraded,omitempty"`
}

// Key returns the storage key, sourceTag + "_" + id (e.g. "linkedin_4044437386").
func (p *Posting) Key() string {
	return p.SourceTag + "_" + p.ID
}

// Preview returns the body truncated to at most n runes, with an ellipsis
// when truncation happened.
func (p *Posting) Preview(n int) string {
	if utf8.RuneCountInString(p.Body) <= n {
		return p.Body
	}
	runes := []rune(p.Body)
	return string(runes[:n]) + "..."
}

// SessionStats reports the state of the browser session pool.
type SessionStats struct {
	// Live reports whether a browser process is currently connected.
	Live bool `json:"live"`

	// Launches counts browser launches since process start.
	Launches int64 `json:"launches"`

	// Teardowns counts browser teardowns (shutdown, corruption resets,
	// forced resets between retries).
	Teardowns int64 `json:"teardowns"`

	// ActiveContexts is the number of browsing contexts currently open.
	ActiveContexts int32 `json:"active_contexts"`

	// ContextsServed counts browsing contexts opened over the session
	// pool's lifetime.
	ContextsServed int64 `json:"contexts_served"`
}
