package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rishabhxpandey/lnkd-apb/models"
	"github.com/rishabhxpandey/lnkd-apb/store"
)

// respondError writes err as a structured JSON error with the status code
// its error code maps to.
func respondError(c *gin.Context, err error) {
	detail := errorDetail(err)
	c.JSON(statusForCode(detail.Code), models.ErrorResponse{Error: detail})
}

// errorDetail converts any error into the API error shape.
func errorDetail(err error) *models.ErrorDetail {
	var invalid *models.InvalidTargetError
	if errors.As(err, &invalid) {
		return invalid.ToDetail()
	}

	var scrapeErr *models.ScrapeError
	if errors.As(err, &scrapeErr) {
		return scrapeErr.ToDetail()
	}

	if errors.Is(err, store.ErrNotFound) {
		return &models.ErrorDetail{
			Code:    models.ErrCodeNotFound,
			Message: "no posting stored under that key",
		}
	}

	return &models.ErrorDetail{Code: models.ErrCodeInternal, Message: err.Error()}
}

// statusForCode translates error codes to HTTP status codes.
func statusForCode(code string) int {
	switch code {
	case models.ErrCodeInvalidTarget, models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeUnauthorized, models.ErrCodeLLMAuthFailure:
		return http.StatusUnauthorized // 401
	case models.ErrCodeNotFound:
		return http.StatusNotFound // 404
	case models.ErrCodeRateLimited, models.ErrCodeLLMRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeNavigation, models.ErrCodeContent,
		models.ErrCodeSession, models.ErrCodeExhausted, models.ErrCodeLLMFailure:
		return http.StatusBadGateway // 502
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
	default:
		return http.StatusInternalServerError // 500
	}
}

// respondBindError writes a 400 for a request body that failed binding.
func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error: &models.ErrorDetail{
			Code:    models.ErrCodeInvalidInput,
			Message: err.Error(),
		},
	})
}
