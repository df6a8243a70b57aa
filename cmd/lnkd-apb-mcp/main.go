package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// apiError mirrors the API error detail.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

func (e *apiError) String() string {
	if e.Detail != "" {
		return fmt.Sprintf("[%s] %s (%s)", e.Code, e.Message, e.Detail)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// jobSummary mirrors the API listing view of a posting.
type jobSummary struct {
	Key          string `json:"key"`
	URL          string `json:"url"`
	Title        string `json:"title"`
	Organization string `json:"organization"`
	PostedLabel  string `json:"posted_label"`
	BodyPreview  string `json:"body_preview"`
	FetchedAt    string `json:"fetched_at"`
	Degraded     bool   `json:"degraded"`
}

// uploadResponse mirrors the POST /api/v1/jobs response.
type uploadResponse struct {
	Key          string    `json:"key"`
	Title        string    `json:"title"`
	Organization string    `json:"organization"`
	PostedLabel  string    `json:"posted_label"`
	BodyPreview  string    `json:"body_preview"`
	Attempts     int       `json:"attempts"`
	Cached       bool      `json:"cached"`
	Degraded     bool      `json:"degraded"`
	Error        *apiError `json:"error"`
}

// jobResponse mirrors the GET /api/v1/jobs/:key response.
type jobResponse struct {
	Key     string `json:"key"`
	Posting struct {
		URL          string `json:"url"`
		Title        string `json:"title"`
		Organization string `json:"organization"`
		Body         string `json:"body"`
		BodyMarkdown string `json:"body_markdown"`
		PostedLabel  string `json:"posted_label"`
		FetchedAt    string `json:"fetched_at"`
	} `json:"posting"`
	Error *apiError `json:"error"`
}

// listResponse mirrors the GET /api/v1/jobs response.
type listResponse struct {
	Count int          `json:"count"`
	Total int          `json:"total"`
	Jobs  []jobSummary `json:"jobs"`
	Error *apiError    `json:"error"`
}

// similarResponse mirrors the GET /api/v1/jobs/:key/similar response.
type similarResponse struct {
	Key     string `json:"key"`
	Matches []struct {
		Key          string `json:"key"`
		Title        string `json:"title"`
		Organization string `json:"organization"`
		Distance     int    `json:"distance"`
	} `json:"matches"`
	Error *apiError `json:"error"`
}

func main() {
	apiURL := os.Getenv("LNKD_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("LNKD_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "LNKD_API_KEY is required")
		os.Exit(1)
	}

	s := server.NewMCPServer(
		"lnkd-apb",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	scrapeJobTool := mcp.NewTool("scrape_job",
		mcp.WithDescription("Scrape a LinkedIn job posting and store it. Returns the posting summary plus the storage key used by the other tools. Repeat calls for the same posting are served from cache unless force is set."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The LinkedIn job-view URL (https://www.linkedin.com/jobs/view/<id>)"),
		),
		mcp.WithBoolean("force",
			mcp.Description("Re-scrape even when a fresh copy is already stored"),
		),
	)
	s.AddTool(scrapeJobTool, handleScrapeJob(apiURL, apiKey))

	getJobTool := mcp.NewTool("get_job",
		mcp.WithDescription("Fetch a stored job posting by key, including the full description."),
		mcp.WithString("key",
			mcp.Required(),
			mcp.Description("Storage key returned by scrape_job (e.g. linkedin_4044437386)"),
		),
	)
	s.AddTool(getJobTool, handleGetJob(apiURL, apiKey))

	listJobsTool := mcp.NewTool("list_jobs",
		mcp.WithDescription("List stored job postings, newest first."),
		mcp.WithNumber("limit",
			mcp.Description("Maximum postings to return (default: 20, max: 100)"),
		),
	)
	s.AddTool(listJobsTool, handleListJobs(apiURL, apiKey))

	similarJobsTool := mcp.NewTool("similar_jobs",
		mcp.WithDescription("Rank stored postings by description similarity to the given posting. Distance is a 0-64 fingerprint distance; lower means more similar."),
		mcp.WithString("key",
			mcp.Required(),
			mcp.Description("Storage key of the base posting"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum matches to return (default: 5, max: 50)"),
		),
	)
	s.AddTool(similarJobsTool, handleSimilarJobs(apiURL, apiKey))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

// apiPost sends a POST request to the API and returns the response body.
func apiPost(ctx context.Context, client *http.Client, apiURL, apiKey, path string, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

// apiGet sends a GET request to the API and returns the response body.
func apiGet(ctx context.Context, client *http.Client, apiURL, apiKey, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-API-Key", apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

func handleScrapeJob(apiURL, apiKey string) server.ToolHandlerFunc {
	// A cold scrape can burn the full retry budget with backoff in between.
	client := &http.Client{Timeout: 180 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		jobURL, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}
		force := request.GetBool("force", false)

		payload := map[string]interface{}{"url": jobURL}
		if force {
			payload["force"] = true
		}

		respBody, err := apiPost(ctx, client, apiURL, apiKey, "/api/v1/jobs", payload)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("scrape request failed: %v", err)), nil
		}

		var upload uploadResponse
		if err := json.Unmarshal(respBody, &upload); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}
		if upload.Error != nil {
			return mcp.NewToolResultError(upload.Error.String()), nil
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "Key: %s\nTitle: %s\nOrganization: %s\n", upload.Key, upload.Title, upload.Organization)
		if upload.PostedLabel != "" {
			fmt.Fprintf(&sb, "Posted: %s\n", upload.PostedLabel)
		}
		switch {
		case upload.Cached:
			sb.WriteString("Served from cache.\n")
		case upload.Degraded:
			fmt.Fprintf(&sb, "Attempts: %d (recovered via guest fallback)\n", upload.Attempts)
		default:
			fmt.Fprintf(&sb, "Attempts: %d\n", upload.Attempts)
		}
		sb.WriteString("\n" + upload.BodyPreview)

		return mcp.NewToolResultText(sb.String()), nil
	}
}

func handleGetJob(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 30 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		key, err := request.RequireString("key")
		if err != nil {
			return mcp.NewToolResultError("key is required"), nil
		}

		respBody, err := apiGet(ctx, client, apiURL, apiKey, "/api/v1/jobs/"+url.PathEscape(key))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("get request failed: %v", err)), nil
		}

		var job jobResponse
		if err := json.Unmarshal(respBody, &job); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}
		if job.Error != nil {
			return mcp.NewToolResultError(job.Error.String()), nil
		}

		body := job.Posting.BodyMarkdown
		if body == "" {
			body = job.Posting.Body
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "Title: %s\nOrganization: %s\nSource: %s\n", job.Posting.Title, job.Posting.Organization, job.Posting.URL)
		if job.Posting.PostedLabel != "" {
			fmt.Fprintf(&sb, "Posted: %s\n", job.Posting.PostedLabel)
		}
		fmt.Fprintf(&sb, "Fetched: %s\n\n%s", job.Posting.FetchedAt, body)

		return mcp.NewToolResultText(sb.String()), nil
	}
}

func handleListJobs(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 30 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path := "/api/v1/jobs"
		if limit := request.GetInt("limit", 0); limit > 0 {
			path = fmt.Sprintf("%s?limit=%d", path, limit)
		}

		respBody, err := apiGet(ctx, client, apiURL, apiKey, path)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("list request failed: %v", err)), nil
		}

		var list listResponse
		if err := json.Unmarshal(respBody, &list); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}
		if list.Error != nil {
			return mcp.NewToolResultError(list.Error.String()), nil
		}
		if list.Total == 0 {
			return mcp.NewToolResultText("No postings stored yet."), nil
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "Showing %d of %d stored postings:\n\n", list.Count, list.Total)
		for _, j := range list.Jobs {
			fmt.Fprintf(&sb, "- %s: %s @ %s (fetched %s)\n", j.Key, j.Title, j.Organization, j.FetchedAt)
		}

		return mcp.NewToolResultText(sb.String()), nil
	}
}

func handleSimilarJobs(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 30 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		key, err := request.RequireString("key")
		if err != nil {
			return mcp.NewToolResultError("key is required"), nil
		}

		path := "/api/v1/jobs/" + url.PathEscape(key) + "/similar"
		if limit := request.GetInt("limit", 0); limit > 0 {
			path = fmt.Sprintf("%s?limit=%d", path, limit)
		}

		respBody, err := apiGet(ctx, client, apiURL, apiKey, path)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("similar request failed: %v", err)), nil
		}

		var similar similarResponse
		if err := json.Unmarshal(respBody, &similar); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}
		if similar.Error != nil {
			return mcp.NewToolResultError(similar.Error.String()), nil
		}
		if len(similar.Matches) == 0 {
			return mcp.NewToolResultText("No other postings stored to compare against."), nil
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "Postings most similar to %s:\n\n", similar.Key)
		for _, m := range similar.Matches {
			fmt.Fprintf(&sb, "- %s: %s @ %s (distance %d)\n", m.Key, m.Title, m.Organization, m.Distance)
		}

		return mcp.NewToolResultText(sb.String()), nil
	}
}
