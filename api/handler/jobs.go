package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rishabhxpandey/lnkd-apb/cache"
	"github.com/rishabhxpandey/lnkd-apb/models"
	"github.com/rishabhxpandey/lnkd-apb/scraper"
	"github.com/rishabhxpandey/lnkd-apb/simhash"
	"github.com/rishabhxpandey/lnkd-apb/store"
	"github.com/rishabhxpandey/lnkd-apb/webhook"
)

// Scraper is the slice of the scrape engine the handlers depend on.
type Scraper interface {
	DoScrape(ctx context.Context, req *models.FetchRequest) (*scraper.Result, error)
	Stats() models.SessionStats
	Uptime() time.Duration
}

// Upload returns a handler for POST /api/v1/jobs.
//
// Orchestration flow:
//  1. Parse & validate request.
//  2. Cache lookup (skipped with force) → 200 with cached=true on a hit.
//  3. Scraper.DoScrape → structured posting.
//  4. Persist, refresh cache, emit webhook event.
//  5. Return 201 with the posting summary and attempt count.
func Upload(sc Scraper, st *store.Store, cc *cache.Cache, events *webhook.Notifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.FetchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}

		status, resp, err := processOne(c.Request.Context(), sc, st, cc, events, &req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(status, resp)
	}
}

// processOne runs the full upload path for a single URL. Shared by the
// single-job and batch endpoints.
func processOne(ctx context.Context, sc Scraper, st *store.Store, cc *cache.Cache, events *webhook.Notifier, req *models.FetchRequest) (int, *models.UploadResponse, error) {
	// ── 1. Validate before touching cache or browser ────────────────
	target, err := scraper.ParseTarget(req.URL)
	if err != nil {
		return 0, nil, err
	}

	// ── 2. Cache lookup ─────────────────────────────────────────────
	key := models.SourceLinkedIn + "_" + target.ID
	if !req.Force {
		if p, hit := cc.Get(key); hit {
			resp := &models.UploadResponse{JobSummary: p.Summary(), Cached: true}
			return http.StatusOK, resp, nil
		}
	}

	// ── 3. Scrape ───────────────────────────────────────────────────
	result, err := sc.DoScrape(ctx, req)
	if err != nil {
		events.PostingFailed(req.URL, err)
		return 0, nil, err
	}
	posting := result.Posting

	// ── 4. Persist + refresh cache + notify ─────────────────────────
	if err := st.Put(ctx, posting); err != nil {
		return 0, nil, err
	}
	cc.Set(posting.Key(), posting)
	events.PostingScraped(posting.Key(), posting.URL)

	resp := &models.UploadResponse{JobSummary: posting.Summary(), Attempts: result.Attempts}
	return http.StatusCreated, resp, nil
}

// List returns a handler for GET /api/v1/jobs.
// Query params: limit (default 20, max 100) and offset (default 0).
func List(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := queryInt(c, "limit", 20)
		if limit < 1 {
			limit = 1
		}
		if limit > 100 {
			limit = 100
		}
		offset := queryInt(c, "offset", 0)
		if offset < 0 {
			offset = 0
		}

		postings, err := st.List(c.Request.Context(), limit, offset)
		if err != nil {
			respondError(c, err)
			return
		}
		total, err := st.Count(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}

		jobs := make([]models.JobSummary, 0, len(postings))
		for i := range postings {
			jobs = append(jobs, postings[i].Summary())
		}
		c.JSON(http.StatusOK, models.ListResponse{Count: len(jobs), Total: total, Jobs: jobs})
	}
}

// Get returns a handler for GET /api/v1/jobs/:key (full posting body).
func Get(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.Param("key")
		p, err := st.Get(c.Request.Context(), key)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.JobResponse{Key: key, Posting: *p})
	}
}

// Delete returns a handler for DELETE /api/v1/jobs/:key. Removes the
// posting from the store and the cache.
func Delete(st *store.Store, cc *cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.Param("key")
		if err := st.Delete(c.Request.Context(), key); err != nil {
			respondError(c, err)
			return
		}
		cc.Delete(key)
		c.Status(http.StatusNoContent)
	}
}

// Similar returns a handler for GET /api/v1/jobs/:key/similar.
// Ranks every other stored posting by fingerprint distance to the base
// posting. Query param: limit (default 5, max 50).
func Similar(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.Param("key")
		limit := queryInt(c, "limit", 5)
		if limit < 1 {
			limit = 1
		}
		if limit > 50 {
			limit = 50
		}

		base, err := st.Get(c.Request.Context(), key)
		if err != nil {
			respondError(c, err)
			return
		}

		candidates, err := st.Fingerprints(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}

		matches := simhash.Rank(base.Fingerprint, key, candidates, limit)
		out := make([]models.SimilarMatch, 0, len(matches))
		for _, m := range matches {
			p, err := st.Get(c.Request.Context(), m.Key)
			if err != nil {
				// Deleted between the ranking pass and the lookup.
				if errors.Is(err, store.ErrNotFound) {
					continue
				}
				respondError(c, err)
				return
			}
			out = append(out, models.SimilarMatch{JobSummary: p.Summary(), Distance: m.Distance})
		}
		c.JSON(http.StatusOK, models.SimilarResponse{Key: key, Matches: out})
	}
}

// queryInt reads an integer query parameter, falling back to def when
// absent or unparseable.
func queryInt(c *gin.Context, name string, def int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
