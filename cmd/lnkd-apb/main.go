package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/rishabhxpandey/lnkd-apb/api"
	"github.com/rishabhxpandey/lnkd-apb/cache"
	"github.com/rishabhxpandey/lnkd-apb/config"
	"github.com/rishabhxpandey/lnkd-apb/llm"
	"github.com/rishabhxpandey/lnkd-apb/scraper"
	"github.com/rishabhxpandey/lnkd-apb/store"
	"github.com/rishabhxpandey/lnkd-apb/webhook"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	// .env is optional; deployments usually set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("lnkd-apb starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"db", cfg.Store.Path,
	)

	// ── 3. Open posting store ───────────────────────────────────────
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		slog.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), 10*time.Second)
	err = st.Migrate(migrateCtx)
	cancelMigrate()
	if err != nil {
		slog.Error("failed to migrate store", "error", err)
		os.Exit(1)
	}

	// ── 4. Assemble scraper (browser launches lazily) ───────────────
	sc := scraper.New(cfg.Browser, cfg.Scraper, cfg.Gate)
	defer sc.Close()

	// ── 5. Cache, webhook notifier, LLM client ──────────────────────
	cc := cache.New(cfg.Cache.MaxEntries, cfg.Cache.MaxAge)
	events := webhook.NewNotifier(cfg.Webhook)
	defer events.Close()
	llmClient := llm.NewClient(nil)

	// ── 6. Setup router ─────────────────────────────────────────────
	router := api.NewRouter(sc, st, cc, events, llmClient, cfg)

	// ── 7. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 8. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	// Give in-flight requests 5 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	// sc.Close(), events.Close() and st.Close() run via defer.
	slog.Info("lnkd-apb stopped")
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
