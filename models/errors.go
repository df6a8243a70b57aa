package models

import "fmt"

// Error codes used in API responses and internal error handling.
const (
	ErrCodeInvalidTarget = "INVALID_TARGET"
	ErrCodeNavigation    = "NAVIGATION_FAILED"
	ErrCodeContent       = "CONTENT_NOT_FOUND"
	ErrCodeSession       = "SESSION_CORRUPTED"
	ErrCodeExhausted     = "SCRAPE_EXHAUSTED"
	ErrCodeTimeout       = "SCRAPE_TIMEOUT"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeRateLimited   = "RATE_LIMITED"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeInternal      = "INTERNAL_ERROR"

	// LLM-related error codes for the prep endpoint.
	ErrCodeLLMFailure     = "LLM_FAILURE"
	ErrCodeLLMAuthFailure = "LLM_AUTH_FAILURE"
	ErrCodeLLMRateLimited = "LLM_RATE_LIMITED"
)

// Rejection reasons carried by InvalidTargetError.
const (
	ReasonUnparseable = "unparseable"
	ReasonBadHost     = "bad-host"
	ReasonBadPath     = "bad-path"
	ReasonNoID        = "no-id"
)

// ErrorDetail is the structured error in API responses.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// ScrapeError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type ScrapeError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *ScrapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// NewScrapeError creates a new ScrapeError.
func NewScrapeError(code, message string, err error) *ScrapeError {
	return &ScrapeError{Code: code, Message: message, Err: err}
}

// ToDetail converts an internal error to an API-facing ErrorDetail.
func (e *ScrapeError) ToDetail() *ErrorDetail {
	return &ErrorDetail{Code: e.Code, Message: e.Message}
}

// InvalidTargetError rejects a URL before any browser work happens.
// Reason is one of the Reason* constants. Scrapes that fail with this
// error are never retried.
type InvalidTargetError struct {
	URL    string
	Reason string
}

func (e *InvalidTargetError) Error() string {
	return fmt.Sprintf("%s: %q rejected (%s)", ErrCodeInvalidTarget, e.URL, e.Reason)
}

// ToDetail converts the rejection to an API-facing ErrorDetail with the
// machine-readable reason in Detail.
func (e *InvalidTargetError) ToDetail() *ErrorDetail {
	return &ErrorDetail{
		Code:    ErrCodeInvalidTarget,
		Message: "URL is not a scrapeable job posting",
		Detail:  e.Reason,
	}
}
