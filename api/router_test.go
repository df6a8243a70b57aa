package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rishabhxpandey/lnkd-apb/cache"
	"github.com/rishabhxpandey/lnkd-apb/config"
	"github.com/rishabhxpandey/lnkd-apb/llm"
	"github.com/rishabhxpandey/lnkd-apb/scraper"
	"github.com/rishabhxpandey/lnkd-apb/store"
	"github.com/rishabhxpandey/lnkd-apb/webhook"
)

// newTestRouter builds the full router with an in-memory store and a cold
// scraper. No route in these tests triggers a browser launch.
func newTestRouter(t *testing.T, cfg *config.Config) *gin.Engine {
	t.Helper()

	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	sc := scraper.New(config.BrowserConfig{}, config.ScraperConfig{}, config.GateConfig{})
	cc := cache.New(4, time.Minute)
	events := webhook.NewNotifier(config.WebhookConfig{})
	t.Cleanup(events.Close)

	return NewRouter(sc, st, cc, events, llm.NewClient(nil), cfg)
}

func testConfig() *config.Config {
	return &config.Config{
		Server:    config.ServerConfig{Mode: gin.TestMode},
		Auth:      config.AuthConfig{Enabled: true, APIKeys: []string{"k1"}},
		RateLimit: config.RateLimitConfig{RequestsPerSecond: 100, Burst: 100},
	}
}

func TestRouter_HealthIsOpen(t *testing.T) {
	r := newTestRouter(t, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("health without a key = %d, want 200 (body %s)", w.Code, w.Body.String())
	}
}

func TestRouter_JobsRequireAuth(t *testing.T) {
	r := newTestRouter(t, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("jobs without a key = %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/jobs", nil)
	req.Header.Set("X-API-Key", "k1")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("jobs with a key = %d, want 200 (body %s)", w.Code, w.Body.String())
	}
}

func TestRouter_AuthDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.Enabled = false
	r := newTestRouter(t, cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("jobs with auth disabled = %d, want 200", w.Code)
	}
}
