package scraper

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/rishabhxpandey/lnkd-apb/models"
)

// Selector chains for each field, ordered newest-layout-first. LinkedIn
// serves several page variants depending on login state and rollout
// bucket; the tail entries cover legacy and guest layouts. When LinkedIn
// ships a new layout, the fix is one more entry at the head of a chain.
var (
	titleSelectors = []string{
		`h1[data-test-id="job-title"]`,
		`.job-details-jobs-unified-top-card__job-title h1`,
		`.jobs-unified-top-card__job-title h1`,
		`h1.jobs-unified-top-card__job-title`,
		`h1.job-details-jobs-unified-top-card__job-title`,
		`.job-view-layout h1`,
		`h1`,
		`.job-title`,
		`[data-automation-id="jobPostingHeader"] h1`,
	}

	orgSelectors = []string{
		`.job-details-jobs-unified-top-card__primary-description a`,
		`.jobs-unified-top-card__company-name a`,
		`.job-details-jobs-unified-top-card__company-name a`,
		`[data-test-id="job-details-company-name"] a`,
		`.jobs-unified-top-card__subtitle a`,
		`.job-details-jobs-unified-top-card__primary-description`,
		`.jobs-unified-top-card__company-name`,
		`.company-name`,
		`[data-automation-id="jobPostingCompanyLink"]`,
	}

	bodySelectors = []string{
		`[data-test-id="job-details-description"]`,
		`.job-view-layout .jobs-description`,
		`.jobs-description__content`,
		`.job-details-jobs-unified-top-card__job-description`,
		`.jobs-box__html-content`,
		`.jobs-description`,
		`.description`,
		`.job-description`,
		`[data-automation-id="jobPostingDescription"]`,
		`.jobs-search__job-details`,
		`.jobs-box__html-content .jobs-description-content__text`,
	}

	postedSelectors = []string{
		`[data-test-id="job-post-date"]`,
		`.jobs-unified-top-card__posted-date`,
		`.job-details-jobs-unified-top-card__posted-date`,
	}
)

// showMoreSelector matches the description expansion control.
const showMoreSelector = `.jobs-description__footer button, .inline-show-more-text__button`

// minBodyChars is the per-strategy acceptance floor: a description
// strategy only wins when its normalized text exceeds this length.
// Shorter matches are usually a collapsed teaser or a stray container.
const minBodyChars = 100

// minAcceptableBody is the floor for a posting to count as extracted at
// all, applied after the chains have run.
const minAcceptableBody = 50

// RawFields is the untyped output of one extraction pass.
type RawFields struct {
	Title    string
	Org      string
	Body     string
	BodyHTML string // outer HTML of the winning body node, may be empty
	Posted   string
}

// validate applies the acceptance floors for a usable posting.
func (f *RawFields) validate() error {
	var failed []string
	if f.Title == "" {
		failed = append(failed, "title")
	}
	if utf8.RuneCountInString(f.Body) < minAcceptableBody {
		failed = append(failed, "body")
	}
	if len(failed) > 0 {
		return models.NewScrapeError(
			models.ErrCodeContent,
			"page yielded no usable posting content",
			fmt.Errorf("failed checks: %s", strings.Join(failed, ", ")),
		)
	}
	return nil
}

// probeFunc resolves one selector to its text and outer HTML. ok is false
// when the selector matched nothing; probe errors count as no match.
type probeFunc func(selector string) (text, html string, ok bool)

// firstMatch folds a strategy chain over probe and returns the first
// normalized result longer than minChars (0 accepts any non-empty text).
// Failed strategies fall through silently.
func firstMatch(probe probeFunc, selectors []string, minChars int) (text, html string) {
	for _, sel := range selectors {
		raw, rawHTML, ok := probe(sel)
		if !ok {
			continue
		}
		cleaned := Normalize(raw)
		if cleaned == "" {
			continue
		}
		if minChars > 0 && utf8.RuneCountInString(cleaned) <= minChars {
			continue
		}
		return cleaned, rawHTML
	}
	return "", ""
}

// pageProbe adapts a live page to probeFunc. Element lookups do not wait:
// a selector either matches the rendered DOM now or the chain moves on.
func pageProbe(p *rod.Page) probeFunc {
	return func(selector string) (string, string, bool) {
		has, el, err := p.Has(selector)
		if err != nil {
			slog.Debug("selector probe failed", "selector", selector, "error", err)
			return "", "", false
		}
		if !has {
			return "", "", false
		}
		text, err := el.Text()
		if err != nil {
			slog.Debug("selector text read failed", "selector", selector, "error", err)
			return "", "", false
		}
		html, err := el.HTML()
		if err != nil {
			html = ""
		}
		return text, html, true
	}
}

// expandDescription clicks the show-more control when present so collapsed
// descriptions render fully before the body chain runs. Best-effort.
func expandDescription(p *rod.Page) {
	has, btn, err := p.Has(showMoreSelector)
	if err != nil || !has {
		return
	}
	if err := btn.Click(proto.InputMouseButtonLeft, 1); err != nil {
		slog.Debug("show-more click failed", "error", err)
		return
	}
	time.Sleep(time.Second)
}

// extractFields runs all field chains against the rendered page.
func extractFields(p *rod.Page) *RawFields {
	probe := pageProbe(p)

	f := &RawFields{}
	f.Title, _ = firstMatch(probe, titleSelectors, 0)
	f.Org, _ = firstMatch(probe, orgSelectors, 0)

	expandDescription(p)
	f.Body, f.BodyHTML = firstMatch(probe, bodySelectors, minBodyChars)

	f.Posted, _ = firstMatch(probe, postedSelectors, 0)
	return f
}
