package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Scraper   ScraperConfig
	Gate      GateConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Store     StoreConfig
	Cache     CacheConfig
	Webhook   WebhookConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the shared browser session.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// DefaultProxy is the proxy URL for all browser traffic.
	DefaultProxy string

	// MaxContexts is how many browsing contexts one session may serve
	// before it is relaunched.
	MaxContexts int // default: 50

	// MaxSessionAge is how old a session may grow before it is relaunched.
	MaxSessionAge time.Duration // default: 50m
}

// ScraperConfig controls per-attempt scraping behavior and the retry budget.
type ScraperConfig struct {
	// NavTimeout is the ceiling for navigation up to DOM-content-loaded.
	NavTimeout time.Duration // default: 20s

	// SettleTimeout is the advisory ceiling for the network-quiescence
	// wait after scrolling. Expiry falls back to a fixed pause.
	SettleTimeout time.Duration // default: 6s

	// MarkerTimeout is the ceiling for the content-marker wait.
	MarkerTimeout time.Duration // default: 8s

	// MaxRetries is the number of extra attempts after the first.
	MaxRetries int // default: 2

	// BackoffBase scales the 2^n retry backoff (attempt n waits 2^n * base).
	BackoffBase time.Duration // default: 1s

	// DelayMin/DelayMax bound the randomized pacing pause before navigation.
	DelayMin time.Duration // default: 500ms
	DelayMax time.Duration // default: 1500ms

	// GuestFallback enables one browserless guest-endpoint fetch after
	// the browser attempts are exhausted.
	GuestFallback bool // default: false
}

// GateConfig controls the global scrape gate spacing attempt sequences.
type GateConfig struct {
	// MinInterval is the minimum spacing between scrape starts.
	MinInterval time.Duration // default: 3s
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: true

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-key HTTP rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 5

	// Burst is the maximum burst size per API key.
	Burst int // default: 10
}

// StoreConfig controls the SQLite posting store.
type StoreConfig struct {
	// Path is the database file path. ":memory:" is accepted for tests.
	Path string // default: "lnkd.db"
}

// CacheConfig controls the in-memory posting cache.
type CacheConfig struct {
	// MaxEntries is the maximum number of cached postings.
	MaxEntries int // default: 256

	// MaxAge is how long a cached posting stays fresh.
	MaxAge time.Duration // default: 1h
}

// WebhookConfig controls scrape-completion event delivery.
type WebhookConfig struct {
	// URL is the event receiver. Empty disables delivery.
	URL string

	// Secret signs event payloads (HMAC-SHA256, X-Lnkd-Signature).
	Secret string

	// Timeout is the per-delivery HTTP timeout.
	Timeout time.Duration // default: 10s
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("LNKD_HOST", "0.0.0.0"),
			Port: envIntOr("LNKD_PORT", 8080),
			Mode: envOr("LNKD_MODE", "release"),
		},
		Browser: BrowserConfig{
			Headless:      envBoolOr("LNKD_HEADLESS", true),
			NoSandbox:     envBoolOr("LNKD_NO_SANDBOX", false),
			BrowserBin:    os.Getenv("LNKD_BROWSER_BIN"),
			DefaultProxy:  os.Getenv("LNKD_PROXY"),
			MaxContexts:   envIntOr("LNKD_MAX_CONTEXTS", 50),
			MaxSessionAge: envDurationOr("LNKD_MAX_SESSION_AGE", 50*time.Minute),
		},
		Scraper: ScraperConfig{
			NavTimeout:    envDurationOr("LNKD_NAV_TIMEOUT", 20*time.Second),
			SettleTimeout: envDurationOr("LNKD_SETTLE_TIMEOUT", 6*time.Second),
			MarkerTimeout: envDurationOr("LNKD_MARKER_TIMEOUT", 8*time.Second),
			MaxRetries:    envIntOr("LNKD_MAX_RETRIES", 2),
			BackoffBase:   envDurationOr("LNKD_BACKOFF_BASE", time.Second),
			DelayMin:      envDurationOr("LNKD_DELAY_MIN", 500*time.Millisecond),
			DelayMax:      envDurationOr("LNKD_DELAY_MAX", 1500*time.Millisecond),
			GuestFallback: envBoolOr("LNKD_GUEST_FALLBACK", false),
		},
		Gate: GateConfig{
			MinInterval: envDurationOr("LNKD_SCRAPE_INTERVAL", 3*time.Second),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("LNKD_AUTH_ENABLED", true),
			APIKeys: envSliceOr("LNKD_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("LNKD_RATE_RPS", 5.0),
			Burst:             envIntOr("LNKD_RATE_BURST", 10),
		},
		Store: StoreConfig{
			Path: envOr("LNKD_DB_PATH", "lnkd.db"),
		},
		Cache: CacheConfig{
			MaxEntries: envIntOr("LNKD_CACHE_MAX_ENTRIES", 256),
			MaxAge:     envDurationOr("LNKD_CACHE_MAX_AGE", time.Hour),
		},
		Webhook: WebhookConfig{
			URL:     os.Getenv("LNKD_WEBHOOK_URL"),
			Secret:  os.Getenv("LNKD_WEBHOOK_SECRET"),
			Timeout: envDurationOr("LNKD_WEBHOOK_TIMEOUT", 10*time.Second),
		},
		Log: LogConfig{
			Level:  envOr("LNKD_LOG_LEVEL", "info"),
			Format: envOr("LNKD_LOG_FORMAT", "json"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
