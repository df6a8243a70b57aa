package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rishabhxpandey/lnkd-apb/llm"
	"github.com/rishabhxpandey/lnkd-apb/models"
	"github.com/rishabhxpandey/lnkd-apb/store"
)

// Prep returns a handler for POST /api/v1/jobs/:key/prep.
//
// Generates interview preparation questions for a stored posting with the
// caller's own LLM key. The key rides on the request and is never stored.
func Prep(st *store.Store, client *llm.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.PrepRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
		req.Defaults()

		key := c.Param("key")
		posting, err := st.Get(c.Request.Context(), key)
		if err != nil {
			respondError(c, err)
			return
		}

		questions, err := client.PrepQuestions(c.Request.Context(), posting, req.Count, llm.PrepParams{
			APIKey:  req.APIKey,
			Model:   req.Model,
			BaseURL: req.BaseURL,
		})
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, models.PrepResponse{
			Key:       key,
			Model:     req.Model,
			Questions: questions,
		})
	}
}
