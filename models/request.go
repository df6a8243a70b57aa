package models

// FetchRequest is the payload for POST /api/v1/jobs.
type FetchRequest struct {
	// URL is the job posting to scrape. Required. Must point at a
	// LinkedIn job-view page; anything else is rejected before the
	// browser is touched.
	URL string `json:"url" binding:"required"`

	// MaxRetries overrides the configured retry budget (extra attempts
	// after the first). Nil means use the server default.
	MaxRetries *int `json:"max_retries,omitempty" binding:"omitempty,min=0,max=5"`

	// Force skips the cache and re-scrapes even when a fresh copy of the
	// posting is already stored.
	Force bool `json:"force,omitempty"`
}

// BatchFetchRequest is the payload for POST /api/v1/jobs/batch.
// URLs are processed sequentially; the global scrape gate spaces them out.
type BatchFetchRequest struct {
	URLs []string `json:"urls" binding:"required,min=1,max=20"`

	// MaxRetries applies to every URL in the batch. Nil means server default.
	MaxRetries *int `json:"max_retries,omitempty" binding:"omitempty,min=0,max=5"`

	Force bool `json:"force,omitempty"`
}

// PrepRequest is the payload for POST /api/v1/jobs/:key/prep.
// The LLM key is bring-your-own and is never stored server-side.
type PrepRequest struct {
	// APIKey is the caller's LLM provider key. Required.
	APIKey string `json:"api_key" binding:"required"`

	// Model overrides the default chat model.
	Model string `json:"model,omitempty"`

	// BaseURL overrides the OpenAI-compatible endpoint base
	// (e.g. a local vLLM or a proxy).
	BaseURL string `json:"base_url,omitempty"`

	// Count is the number of interview questions to generate.
	Count int `json:"count,omitempty" binding:"omitempty,min=1,max=20"`
}

// Defaults applies default values to unset fields.
func (r *PrepRequest) Defaults() {
	if r.Model == "" {
		r.Model = "gpt-4o-mini"
	}
	if r.Count == 0 {
		r.Count = 8
	}
}
