package scraper

import (
	"context"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"

	"github.com/rishabhxpandey/lnkd-apb/config"
	"github.com/rishabhxpandey/lnkd-apb/models"
)

// userAgent presented by every browsing context. Kept in sync with the
// Platform override below (MacIntel).
const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// acceptLanguage is sent both as the CDP override and the request header.
const acceptLanguage = "en-US,en;q=0.5"

// releaseTimeout bounds context teardown so a wedged page cannot stall
// the pipeline.
const releaseTimeout = 5 * time.Second

// closeTimeout bounds a full browser close before the process is killed.
const closeTimeout = 5 * time.Second

// SessionPool owns the process-wide browser session. The session is
// launched lazily on first use, probed for liveness on every acquisition,
// and relaunched after corruption, staleness, or a forced reset. All
// methods are safe for concurrent use.
type SessionPool struct {
	mu  sync.Mutex
	cfg config.BrowserConfig

	browser  *rod.Browser
	launcher *launcher.Launcher
	launched time.Time
	served   int // contexts served by the current session

	launches       atomic.Int64
	teardowns      atomic.Int64
	activeContexts atomic.Int32
	contextsServed atomic.Int64
}

// NewSessionPool creates a pool. No browser is launched until the first
// browsing context is requested.
func NewSessionPool(cfg config.BrowserConfig) *SessionPool {
	return &SessionPool{cfg: cfg}
}

// PageContext is one isolated browsing context: a dedicated cookie and
// storage partition plus a configured page. Release closes both; the
// owner must call it exactly once.
type PageContext struct {
	page  *rod.Page
	ctxID proto.BrowserBrowserContextID
	pool  *SessionPool
}

// NewPageContext returns a fresh isolated context on a live session,
// launching or relaunching the browser as needed. The page comes
// preconfigured: viewport, user agent, extra headers, and the
// anti-automation profile installed before any navigation.
func (p *SessionPool) NewPageContext(ctx context.Context) (*PageContext, error) {
	browser, err := p.session(ctx)
	if err != nil {
		return nil, err
	}

	ctxRes, err := proto.TargetCreateBrowserContext{}.Call(browser.Context(ctx))
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeSession, "failed to create browsing context", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{BrowserContextID: ctxRes.BrowserContextID})
	if err != nil {
		p.disposeContext(browser, ctxRes.BrowserContextID)
		return nil, models.NewScrapeError(models.ErrCodeSession, "failed to open page", err)
	}

	pc := &PageContext{page: page, ctxID: ctxRes.BrowserContextID, pool: p}
	p.activeContexts.Add(1)
	p.contextsServed.Add(1)
	if err := pc.configure(); err != nil {
		pc.Release()
		return nil, err
	}
	return pc, nil
}

// configure applies the browsing profile. Stealth failures are tolerated;
// a context without overrides is still usable, just more conspicuous.
func (c *PageContext) configure() error {
	err := c.page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             1366,
		Height:            768,
		DeviceScaleFactor: 1,
		Mobile:            false,
	})
	if err != nil {
		return models.NewScrapeError(models.ErrCodeSession, "failed to set viewport", err)
	}

	err = c.page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      userAgent,
		AcceptLanguage: acceptLanguage,
		Platform:       "MacIntel",
	})
	if err != nil {
		return models.NewScrapeError(models.ErrCodeSession, "failed to set user agent", err)
	}

	if err := (proto.NetworkSetExtraHTTPHeaders{Headers: browsingHeaders()}).Call(c.page); err != nil {
		return models.NewScrapeError(models.ErrCodeSession, "failed to set extra headers", err)
	}

	if err := installStealth(c.page); err != nil {
		slog.Warn("stealth injection failed, proceeding without overrides", "error", err)
	}
	return nil
}

// browsingHeaders builds the human-looking header set, including a Google
// search referer for the target host.
func browsingHeaders() proto.NetworkHeaders {
	headers := map[string]string{
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
		"Accept-Language":           acceptLanguage,
		"Accept-Encoding":           "gzip, deflate",
		"Upgrade-Insecure-Requests": "1",
		"Referer":                   "https://www.google.com/search?q=" + url.QueryEscape("linkedin jobs"),
	}
	return toHeadersMap(headers)
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders
// type (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

// Release closes the page and disposes the browsing context. Errors are
// logged and swallowed; the pool's active count is always decremented.
// Close operations run against bounded clones so a dead session cannot
// hang the caller.
func (c *PageContext) Release() {
	if err := c.page.Timeout(releaseTimeout).Close(); err != nil {
		slog.Warn("context release: page close failed", "error", err)
	}
	c.pool.mu.Lock()
	browser := c.pool.browser
	c.pool.mu.Unlock()
	if browser != nil {
		c.pool.disposeContext(browser, c.ctxID)
	}
	c.pool.activeContexts.Add(-1)
}

func (p *SessionPool) disposeContext(browser *rod.Browser, id proto.BrowserBrowserContextID) {
	tctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()
	if err := (proto.TargetDisposeBrowserContext{BrowserContextID: id}).Call(browser.Context(tctx)); err != nil {
		slog.Warn("context release: dispose failed", "error", err)
	}
}

// session returns the live browser, launching or relaunching as needed.
func (p *SessionPool) session(ctx context.Context) (*rod.Browser, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.browser != nil {
		switch {
		case p.staleLocked():
			slog.Info("browser session stale, relaunching",
				"served", p.served, "age", time.Since(p.launched).Round(time.Second))
			p.teardownLocked()
		case !p.aliveLocked(ctx):
			slog.Warn("browser session unresponsive, relaunching")
			p.teardownLocked()
		}
	}

	if p.browser == nil {
		if err := p.launchLocked(); err != nil {
			return nil, err
		}
	}

	p.served++
	return p.browser, nil
}

// staleLocked applies the retirement rules: too many contexts served or
// session too old. A long-lived Chrome accumulates renderer state that
// eventually degrades extraction.
func (p *SessionPool) staleLocked() bool {
	if p.cfg.MaxContexts > 0 && p.served >= p.cfg.MaxContexts {
		return true
	}
	if p.cfg.MaxSessionAge > 0 && time.Since(p.launched) >= p.cfg.MaxSessionAge {
		return true
	}
	return false
}

// aliveLocked probes the session with a cheap CDP call.
func (p *SessionPool) aliveLocked(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := proto.BrowserGetVersion{}.Call(p.browser.Context(probeCtx))
	return err == nil
}

// launchLocked starts a fresh browser with the hardened flag set.
func (p *SessionPool) launchLocked() error {
	l := launcher.New().
		Headless(p.cfg.Headless).
		NoSandbox(p.cfg.NoSandbox)

	if p.cfg.BrowserBin != "" {
		l = l.Bin(p.cfg.BrowserBin)
	}
	if p.cfg.DefaultProxy != "" {
		l = l.Proxy(p.cfg.DefaultProxy)
	}

	// ── Anti-automation flags ────────────────────────────────────────
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("disable-web-security"))
	l.Set(flags.Flag("disable-features"), "VizDisplayCompositor")

	controlURL, err := l.Launch()
	if err != nil {
		return models.NewScrapeError(models.ErrCodeSession, "failed to launch browser", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return models.NewScrapeError(models.ErrCodeSession, "failed to connect to browser", err)
	}

	p.browser = browser
	p.launcher = l
	p.launched = time.Now()
	p.served = 0
	p.launches.Add(1)
	slog.Info("browser launched", "controlURL", controlURL)
	return nil
}

// Teardown closes the current session if any. The next context request
// relaunches. Used on shutdown and as the forced reset between retries.
func (p *SessionPool) Teardown() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.teardownLocked()
}

func (p *SessionPool) teardownLocked() {
	if p.browser == nil {
		return
	}
	browser, l := p.browser, p.launcher
	p.browser, p.launcher = nil, nil

	done := make(chan struct{})
	go func() {
		if err := browser.Close(); err != nil {
			slog.Warn("browser close failed", "error", err)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(closeTimeout):
		slog.Warn("browser close timed out, killing process")
	}
	if l != nil {
		l.Kill()
	}

	p.teardowns.Add(1)
	slog.Info("browser session torn down")
}

// Stats returns a snapshot of the pool's current state.
func (p *SessionPool) Stats() models.SessionStats {
	p.mu.Lock()
	live := p.browser != nil
	p.mu.Unlock()
	return models.SessionStats{
		Live:           live,
		Launches:       p.launches.Load(),
		Teardowns:      p.teardowns.Load(),
		ActiveContexts: p.activeContexts.Load(),
		ContextsServed: p.contextsServed.Load(),
	}
}
