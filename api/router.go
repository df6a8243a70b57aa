package api

import (
	"github.com/gin-gonic/gin"

	"github.com/rishabhxpandey/lnkd-apb/api/handler"
	"github.com/rishabhxpandey/lnkd-apb/api/middleware"
	"github.com/rishabhxpandey/lnkd-apb/cache"
	"github.com/rishabhxpandey/lnkd-apb/config"
	"github.com/rishabhxpandey/lnkd-apb/llm"
	"github.com/rishabhxpandey/lnkd-apb/scraper"
	"github.com/rishabhxpandey/lnkd-apb/store"
	"github.com/rishabhxpandey/lnkd-apb/webhook"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health lives at the root, outside auth, so monitoring probes always work.
func NewRouter(sc *scraper.Scraper, st *store.Store, cc *cache.Cache, events *webhook.Notifier, llmClient *llm.Client, cfg *config.Config) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	// Health — no auth required.
	r.GET("/health", handler.Health(sc, st))

	// Protected group — auth + rate limit.
	v1 := r.Group("/api/v1")
	if cfg.Auth.Enabled {
		v1.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	v1.Use(middleware.RateLimit(cfg.RateLimit))

	jobs := v1.Group("/jobs")
	jobs.POST("", handler.Upload(sc, st, cc, events))
	jobs.POST("/batch", handler.Batch(sc, st, cc, events))
	jobs.GET("", handler.List(st))
	jobs.GET("/:key", handler.Get(st))
	jobs.DELETE("/:key", handler.Delete(st, cc))
	jobs.GET("/:key/similar", handler.Similar(st))
	jobs.POST("/:key/prep", handler.Prep(st, llmClient))

	return r
}
