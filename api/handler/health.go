package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rishabhxpandey/lnkd-apb/models"
	"github.com/rishabhxpandey/lnkd-apb/store"
)

// Health returns a handler for GET /health.
//
// Reports session pool counters and the stored-posting count. Status
// degrades when the store stops answering; a dead browser alone does not,
// the pool relaunches it lazily on the next scrape.
func Health(sc Scraper, st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats := sc.Stats()

		status := "healthy"
		count, err := st.Count(c.Request.Context())
		if err != nil {
			status = "degraded"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:     status,
			Uptime:     sc.Uptime().Round(time.Second).String(),
			Session:    stats,
			StoredJobs: count,
			Version:    "0.1.0",
		})
	}
}
