package models

import "time"

// PreviewLen is the body preview length (runes) used in list and upload
// responses.
const PreviewLen = 500

// JobSummary is the listing view of a stored posting: everything except
// the full body text.
type JobSummary struct {
	Key          string    `json:"key"`
	ID           string    `json:"id"`
	URL          string    `json:"url"`
	Title        string    `json:"title"`
	Organization string    `json:"organization"`
	PostedLabel  string    `json:"posted_label,omitempty"`
	BodyPreview  string    `json:"body_preview"`
	FetchedAt    time.Time `json:"fetched_at"`
	SourceTag    string    `json:"source_tag"`
	Degraded     bool      `json:"degraded,omitempty"`
}

// Summary projects a Posting into its listing view.
func (p *Posting) Summary() JobSummary {
	return JobSummary{
		Key:          p.Key(),
		ID:           p.ID,
		URL:          p.URL,
		Title:        p.Title,
		Organization: p.Organization,
		PostedLabel:  p.PostedLabel,
		BodyPreview:  p.Preview(PreviewLen),
		FetchedAt:    p.FetchedAt,
		SourceTag:    p.SourceTag,
		Degraded:     p.Degraded,
	}
}

// UploadResponse is the response for POST /api/v1/jobs.
type UploadResponse struct {
	JobSummary

	// Attempts is how many browser attempts the scrape consumed.
	// Zero on a cache hit.
	Attempts int `json:"attempts"`

	// Cached indicates the posting was served from the store cache
	// without touching the browser.
	Cached bool `json:"cached,omitempty"`
}

// JobResponse is the response for GET /api/v1/jobs/:key (full body).
type JobResponse struct {
	Key     string  `json:"key"`
	Posting Posting `json:"posting"`
}

// ListResponse is the response for GET /api/v1/jobs.
type ListResponse struct {
	Count int          `json:"count"`
	Total int          `json:"total"`
	Jobs  []JobSummary `json:"jobs"`
}

// SimilarMatch is one ranked result of a similarity search.
type SimilarMatch struct {
	JobSummary

	// Distance is the Hamming distance between body fingerprints
	// (0 = identical, 64 = unrelated).
	Distance int `json:"distance"`
}

// SimilarResponse is the response for GET /api/v1/jobs/:key/similar.
type SimilarResponse struct {
	Key     string         `json:"key"`
	Matches []SimilarMatch `json:"matches"`
}

// PrepResponse is the response for POST /api/v1/jobs/:key/prep.
type PrepResponse struct {
	Key       string   `json:"key"`
	Model     string   `json:"model"`
	Questions []string `json:"questions"`
}

// BatchResult is the per-URL outcome inside a BatchResponse.
type BatchResult struct {
	URL   string       `json:"url"`
	Key   string       `json:"key,omitempty"`
	Error *ErrorDetail `json:"error,omitempty"`
}

// BatchResponse is the response for POST /api/v1/jobs/batch.
type BatchResponse struct {
	Total     int           `json:"total"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Results   []BatchResult `json:"results"`
}

// HealthResponse is the response for GET /health.
type HealthResponse struct {
	Status     string       `json:"status"` // "healthy" or "degraded"
	Uptime     string       `json:"uptime"`
	Session    SessionStats `json:"session"`
	StoredJobs int          `json:"stored_jobs"`
	Version    string       `json:"version"`
}

// ErrorResponse is the envelope for all API error payloads.
type ErrorResponse struct {
	Error *ErrorDetail `json:"error"`
}
