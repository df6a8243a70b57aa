package scraper

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/rishabhxpandey/lnkd-apb/models"
)

// Target is a validated job-posting URL with its derived identifier.
type Target struct {
	// URL is the original URL as submitted, query string and all.
	URL string

	// ID is the numeric posting identifier from the job-view path segment.
	ID string
}

// Key returns the storage key the posting will be stored under.
func (t *Target) Key() string {
	return models.SourceLinkedIn + "_" + t.ID
}

// jobViewID captures the numeric posting identifier in a job-view path.
var jobViewID = regexp.MustCompile(`/jobs/view/(\d+)`)

// validHosts are the only hosts accepted for scraping.
var validHosts = map[string]bool{
	"www.linkedin.com": true,
	"linkedin.com":     true,
}

// ParseTarget validates a raw URL and derives the posting ID. It is the
// only gate between caller input and the browser: anything rejected here
// never consumes a rate-limit slot or an attempt, and the rejection is
// never retried.
func ParseTarget(rawURL string) (*Target, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, &models.InvalidTargetError{URL: rawURL, Reason: models.ReasonUnparseable}
	}
	if !validHosts[strings.ToLower(u.Hostname())] {
		return nil, &models.InvalidTargetError{URL: rawURL, Reason: models.ReasonBadHost}
	}
	if !strings.Contains(u.Path, "/jobs/view/") {
		return nil, &models.InvalidTargetError{URL: rawURL, Reason: models.ReasonBadPath}
	}
	m := jobViewID.FindStringSubmatch(u.Path)
	if m == nil {
		return nil, &models.InvalidTargetError{URL: rawURL, Reason: models.ReasonNoID}
	}
	return &Target{URL: rawURL, ID: m[1]}, nil
}
