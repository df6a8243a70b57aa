package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rishabhxpandey/lnkd-apb/cleaner"
	"github.com/rishabhxpandey/lnkd-apb/config"
	"github.com/rishabhxpandey/lnkd-apb/models"
)

// Scraper coordinates validation, the scrape gate, the browser session
// pool, and the retry loop. Scrape sequences are serialized: one posting
// is in flight at a time, and the gate spaces sequence starts.
type Scraper struct {
	pool       *SessionPool
	gate       *Gate
	cleaner    *cleaner.Cleaner
	guest      *guestFetcher
	scraperCfg config.ScraperConfig
	startTime  time.Time

	mu sync.Mutex // serializes scrape sequences

	// Seams for the attempt pipeline. New installs the production
	// wiring; tests swap in fakes.
	newContext contextFactory
	resetPool  func()
	sleep      func(ctx context.Context, d time.Duration)
}

// Result carries a scrape outcome with its attempt accounting.
type Result struct {
	Posting *models.Posting

	// Attempts is how many browser attempts ran.
	Attempts int

	// Degraded marks a posting recovered by the guest fallback after the
	// browser attempts were exhausted.
	Degraded bool
}

// New assembles a Scraper around a lazily launched browser session.
func New(browserCfg config.BrowserConfig, scraperCfg config.ScraperConfig, gateCfg config.GateConfig) *Scraper {
	pool := NewSessionPool(browserCfg)
	cl := cleaner.New()
	s := &Scraper{
		pool:       pool,
		gate:       NewGate(gateCfg.MinInterval),
		cleaner:    cl,
		guest:      newGuestFetcher(browserCfg.DefaultProxy, cl),
		scraperCfg: scraperCfg,
		startTime:  time.Now(),
	}
	s.newContext = func(ctx context.Context) (browsingContext, error) {
		pc, err := pool.NewPageContext(ctx)
		if err != nil {
			return nil, err
		}
		return &rodContext{pc: pc, cfg: scraperCfg}, nil
	}
	s.resetPool = pool.Teardown
	s.sleep = sleepCtx
	return s
}

// DoScrape validates the URL, waits for one gate slot, then drives up to
// 1+maxRetries attempts with exponential backoff and a forced session
// reset before each retry. Invalid targets are rejected before the gate
// and are never retried.
func (s *Scraper) DoScrape(ctx context.Context, req *models.FetchRequest) (*Result, error) {
	// ── 1. Validate: no slot, no attempt, no retry for bad targets ───
	target, err := ParseTarget(req.URL)
	if err != nil {
		return nil, err
	}

	maxRetries := s.scraperCfg.MaxRetries
	if req.MaxRetries != nil {
		maxRetries = *req.MaxRetries
	}

	// ── 2. Serialize: one scrape sequence at a time ──────────────────
	s.mu.Lock()
	defer s.mu.Unlock()

	// ── 3. One gate slot per scrape, before the first attempt ────────
	if err := s.gate.Wait(ctx); err != nil {
		return nil, categorizeError(err, "canceled while waiting for scrape slot")
	}

	// ── 4. Attempt loop: 2^n backoff, forced session reset per retry ─
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<attempt) * s.scraperCfg.BackoffBase
			slog.Warn("scrape attempt failed, resetting session and backing off",
				"url", target.URL, "failed_attempt", attempt, "backoff", backoff, "error", lastErr)
			s.resetPool()
			s.sleep(ctx, backoff)
			if ctx.Err() != nil {
				return nil, categorizeError(ctx.Err(), "canceled during retry backoff")
			}
		}

		posting, err := s.runAttempt(ctx, target)
		if err == nil {
			slog.Info("posting extracted",
				"key", posting.Key(), "title", posting.Title, "attempts", attempt+1)
			return &Result{Posting: posting, Attempts: attempt + 1}, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			break
		}
	}

	slog.Error("scrape exhausted",
		"url", target.URL, "attempts", maxRetries+1, "error", lastErr)

	// ── 5. Optional browserless degrade ──────────────────────────────
	if s.scraperCfg.GuestFallback {
		if posting, gerr := s.guest.fetch(ctx, target); gerr == nil {
			slog.Info("guest fallback recovered posting", "key", posting.Key())
			return &Result{Posting: posting, Attempts: maxRetries + 1, Degraded: true}, nil
		} else {
			slog.Warn("guest fallback failed", "url", target.URL, "error", gerr)
		}
	}

	return nil, models.NewScrapeError(models.ErrCodeExhausted,
		fmt.Sprintf("all %d attempts failed", maxRetries+1), lastErr)
}

// pacingDelay sleeps a randomized interval before navigation so repeat
// visits do not land with machine-regular timing.
func (s *Scraper) pacingDelay(ctx context.Context) {
	lo, hi := s.scraperCfg.DelayMin, s.scraperCfg.DelayMax
	if lo <= 0 && hi <= 0 {
		return
	}
	d := lo
	if hi > lo {
		d = lo + time.Duration(rand.Int64N(int64(hi-lo)))
	}
	s.sleep(ctx, d)
}

// Stats returns a snapshot of the session pool.
func (s *Scraper) Stats() models.SessionStats {
	return s.pool.Stats()
}

// Uptime reports how long this Scraper has been running.
func (s *Scraper) Uptime() time.Duration {
	return time.Since(s.startTime)
}

// Close tears down the browser session. Call on graceful shutdown to
// prevent zombie Chrome processes.
func (s *Scraper) Close() {
	slog.Info("scraper shutting down: tearing down browser session")
	s.pool.Teardown()
	slog.Info("scraper shutdown complete")
}
