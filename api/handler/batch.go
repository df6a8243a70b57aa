package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rishabhxpandey/lnkd-apb/cache"
	"github.com/rishabhxpandey/lnkd-apb/models"
	"github.com/rishabhxpandey/lnkd-apb/store"
	"github.com/rishabhxpandey/lnkd-apb/webhook"
)

// Batch returns a handler for POST /api/v1/jobs/batch.
//
// URLs run sequentially through the same path as the single-job upload.
// Parallelizing would buy nothing: the scrape gate admits one posting at
// a time and spaces admissions out to stay under the target site's radar.
// The response is always 200; per-URL failures are carried in the result
// list rather than failing the whole batch.
func Batch(sc Scraper, st *store.Store, cc *cache.Cache, events *webhook.Notifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.BatchFetchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}

		results := make([]models.BatchResult, 0, len(req.URLs))
		succeeded := 0
		for _, rawURL := range req.URLs {
			fetchReq := &models.FetchRequest{
				URL:        rawURL,
				MaxRetries: req.MaxRetries,
				Force:      req.Force,
			}
			_, resp, err := processOne(c.Request.Context(), sc, st, cc, events, fetchReq)
			if err != nil {
				results = append(results, models.BatchResult{URL: rawURL, Error: errorDetail(err)})
				continue
			}
			succeeded++
			results = append(results, models.BatchResult{URL: rawURL, Key: resp.Key})
		}

		slog.Info("batch finished",
			"total", len(req.URLs),
			"succeeded", succeeded,
			"failed", len(req.URLs)-succeeded,
		)

		c.JSON(http.StatusOK, models.BatchResponse{
			Total:     len(req.URLs),
			Succeeded: succeeded,
			Failed:    len(req.URLs) - succeeded,
			Results:   results,
		})
	}
}
