package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-rod/rod/lib/proto"

	"github.com/rishabhxpandey/lnkd-apb/cleaner"
	"github.com/rishabhxpandey/lnkd-apb/config"
	"github.com/rishabhxpandey/lnkd-apb/models"
	"github.com/rishabhxpandey/lnkd-apb/simhash"
)

// contentMarkers are the elements whose presence means the posting layout
// has rendered. Any one of them is enough.
var contentMarkers = []string{
	`[data-job-id]`,
	`.job-view-layout`,
	`.jobs-search__job-details`,
	`h1`,
}

// browsingContext is the attempt pipeline's view of one isolated page.
// The production implementation wraps a pool PageContext; tests substitute
// fakes to exercise the pipeline without a browser.
type browsingContext interface {
	// navigate loads the target up to DOM-content-loaded and reports the
	// HTTP status when the page exposes one (0 when unavailable).
	navigate(ctx context.Context, url string) (int, error)

	// settle runs the scroll, network-quiescence and content-marker
	// sequence. All of it is advisory; settle never fails the attempt.
	settle(ctx context.Context)

	// fields extracts the raw field set from the rendered page.
	fields(ctx context.Context) (*RawFields, error)

	// release tears the context down. Called exactly once per attempt.
	release()
}

// contextFactory opens a fresh browsing context for one attempt.
type contextFactory func(ctx context.Context) (browsingContext, error)

// runAttempt executes one end-to-end extraction attempt.
//
// Lifecycle (numbered steps match the inline comments):
//
//  1. Acquire browsing context  – isolated cookie/storage partition
//  2. DEFER: release            – runs on success, failure, and panic
//  3. Pacing delay              – randomized, so visits are not machine-regular
//  4. Navigate                  – DOM-ready wait, status >= 400 is a hard failure
//  5. Settle                    – scrolls, quiescence, content markers (advisory)
//  6. Extract                   – ordered strategy chains per field
//  7. Validate                  – title present, body above the floor
//  8. Assemble                  – normalized posting, fetchedAt = completion time
func (s *Scraper) runAttempt(ctx context.Context, target *Target) (posting *models.Posting, err error) {
	// ── 1. Acquire browsing context ──────────────────────────────────
	bc, err := s.newContext(ctx)
	if err != nil {
		return nil, err
	}

	// ── 2. CRITICAL DEFER: release exactly once, even on panic ───────
	defer func() {
		if r := recover(); r != nil {
			posting = nil
			err = models.NewScrapeError(models.ErrCodeInternal,
				fmt.Sprintf("attempt panicked: %v", r), nil)
		}
		bc.release()
	}()

	// ── 3. Pacing delay ──────────────────────────────────────────────
	s.pacingDelay(ctx)

	// ── 4. Navigate ──────────────────────────────────────────────────
	if _, err := bc.navigate(ctx, target.URL); err != nil {
		return nil, err
	}

	// ── 5. Settle ────────────────────────────────────────────────────
	bc.settle(ctx)

	// ── 6. Extract ───────────────────────────────────────────────────
	raw, err := bc.fields(ctx)
	if err != nil {
		return nil, err
	}

	// ── 7. Validate ──────────────────────────────────────────────────
	if err := raw.validate(); err != nil {
		return nil, err
	}

	// ── 8. Assemble ──────────────────────────────────────────────────
	return buildPosting(target, raw, s.cleaner), nil
}

// buildPosting builds the final posting from validated raw fields. Shared
// by the browser pipeline and the guest fetcher.
func buildPosting(target *Target, raw *RawFields, cl *cleaner.Cleaner) *models.Posting {
	p := &models.Posting{
		ID:           target.ID,
		URL:          target.URL,
		Title:        raw.Title,
		Organization: raw.Org,
		Body:         raw.Body,
		PostedLabel:  raw.Posted,
		FetchedAt:    time.Now().UTC(),
		SourceTag:    models.SourceLinkedIn,
	}
	if p.Organization == "" {
		p.Organization = models.OrganizationUnknown
	}
	if raw.BodyHTML != "" {
		if md, err := cl.BodyMarkdown(raw.BodyHTML); err == nil {
			p.BodyMarkdown = md
		} else {
			slog.Debug("markdown rendition failed", "error", err)
		}
	}
	p.Fingerprint = simhash.Fingerprint(p.Body)
	return p
}

// rodContext is the production browsingContext backed by a pool page.
type rodContext struct {
	pc  *PageContext
	cfg config.ScraperConfig
}

func (r *rodContext) navigate(ctx context.Context, url string) (int, error) {
	navCtx, cancel := context.WithTimeout(ctx, r.cfg.NavTimeout)
	defer cancel()
	p := r.pc.page.Context(navCtx)

	// The lifecycle listener must exist before Navigate or the event is
	// missed and the wait never returns.
	wait := p.WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)
	if err := p.Navigate(url); err != nil {
		return 0, categorizeError(err, "navigation to posting failed")
	}
	wait()

	if navCtx.Err() != nil {
		if ctx.Err() != nil {
			return 0, categorizeError(ctx.Err(), "scrape canceled during navigation")
		}
		return 0, models.NewScrapeError(models.ErrCodeNavigation,
			"navigation timed out before DOM ready", navCtx.Err())
	}

	// Status via the performance API: no CDP event listeners needed.
	status := 0
	if res, err := p.Eval(`() => {
		try {
			const entries = performance.getEntriesByType("navigation");
			if (entries.length > 0) return entries[0].responseStatus || 0;
		} catch(e) {}
		return 0;
	}`); err == nil {
		status = res.Value.Int()
	}
	if status >= 400 {
		return status, models.NewScrapeError(models.ErrCodeNavigation,
			fmt.Sprintf("posting page returned status %d", status), nil)
	}
	return status, nil
}

func (r *rodContext) settle(ctx context.Context) {
	p := r.pc.page.Context(ctx)

	// ── Scroll: trigger lazy-loaded description content ─────────────
	if res, err := p.Eval(`() => window.innerHeight`); err == nil {
		height := float64(res.Value.Int())
		for i := 0; i < 2; i++ {
			if err := p.Mouse.Scroll(0, height, 0); err != nil {
				slog.Debug("scroll step failed", "step", i, "error", err)
				break
			}
			// Brief pause between steps to let lazy content trigger.
			time.Sleep(150 * time.Millisecond)
		}
	}

	// ── Advisory network quiescence ─────────────────────────────────
	settleCtx, cancel := context.WithTimeout(ctx, r.cfg.SettleTimeout)
	sp := r.pc.page.Context(settleCtx)
	wait := sp.WaitRequestIdle(500*time.Millisecond, nil, nil, nil)
	wait()
	quiesced := settleCtx.Err() == nil
	cancel()
	if !quiesced {
		slog.Debug("network quiescence not reached, using fixed pause")
		sleepCtx(ctx, time.Second)
	}

	// ── Content markers: any one means the layout rendered ──────────
	markerCtx, mcancel := context.WithTimeout(ctx, r.cfg.MarkerTimeout)
	defer mcancel()
	race := r.pc.page.Context(markerCtx).Race()
	for _, sel := range contentMarkers {
		race = race.Element(sel)
	}
	if _, err := race.Do(); err != nil {
		slog.Debug("content markers not found, proceeding after pause", "error", err)
		sleepCtx(ctx, 3*time.Second)
	}
}

func (r *rodContext) fields(ctx context.Context) (*RawFields, error) {
	p := r.pc.page.Context(ctx)
	raw := extractFields(p)
	if ctx.Err() != nil {
		return nil, categorizeError(ctx.Err(), "scrape canceled during extraction")
	}
	return raw, nil
}

func (r *rodContext) release() {
	r.pc.Release()
}

// sleepCtx sleeps for d or until ctx is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) {
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}

// categorizeError wraps raw errors into typed ScrapeErrors so the retry
// controller and the API layer can react to them by code.
func categorizeError(err error, msg string) *models.ScrapeError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewScrapeError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewScrapeError(models.ErrCodeTimeout, "scrape canceled", err)
	case isDisconnect(err):
		return models.NewScrapeError(models.ErrCodeSession, "browser connection lost", err)
	default:
		return models.NewScrapeError(models.ErrCodeNavigation, msg, err)
	}
}

// isDisconnect reports whether err looks like a lost browser connection
// rather than a page-level failure.
func isDisconnect(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{
		"websocket",
		"use of closed network connection",
		"connection reset",
		"browser has been closed",
		"target closed",
		"session closed",
		"context destroyed",
	} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
