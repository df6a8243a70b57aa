package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"text/tabwriter"
	"time"
)

// CLI flags
var (
	apiURL = flag.String("api-url", "http://localhost:8080", "lnkd-apb API base URL")
	apiKey = flag.String("api-key", "", "API key for authenticated requests")
	jobURL = flag.String("job-url", "https://www.linkedin.com/jobs/view/4044437386", "job posting URL to run through the pipeline")
	keep   = flag.Bool("keep", false, "keep the scraped posting instead of deleting it at the end")
)

// --- Response types (mirrors models package) ---

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

type healthResponse struct {
	Status     string `json:"status"`
	Uptime     string `json:"uptime"`
	StoredJobs int    `json:"stored_jobs"`
	Error      *errorDetail `json:"error"`
}

type uploadResponse struct {
	Key      string `json:"key"`
	Title    string `json:"title"`
	Attempts int    `json:"attempts"`
	Cached   bool   `json:"cached"`
	Degraded bool   `json:"degraded"`
	Error    *errorDetail `json:"error"`
}

type jobResponse struct {
	Key     string `json:"key"`
	Posting struct {
		Title        string `json:"title"`
		Organization string `json:"organization"`
		Body         string `json:"body"`
		BodyMarkdown string `json:"body_markdown"`
	} `json:"posting"`
	Error *errorDetail `json:"error"`
}

type similarResponse struct {
	Matches []struct {
		Key      string `json:"key"`
		Distance int    `json:"distance"`
	} `json:"matches"`
	Error *errorDetail `json:"error"`
}

// --- Smoke run bookkeeping ---

type stepResult struct {
	Name string
	Ms   int64
	OK   bool
	Note string
}

func main() {
	flag.Parse()

	fmt.Println("=== lnkd-apb smoke test ===")
	fmt.Printf("API URL:  %s\n", *apiURL)
	fmt.Printf("Job URL:  %s\n", *jobURL)
	fmt.Println()

	// The scrape step can burn the full retry budget with backoff between
	// attempts; everything else finishes in milliseconds.
	client := &http.Client{Timeout: 180 * time.Second}

	var steps []stepResult
	failed := false

	run := func(name string, fn func() (string, error)) {
		fmt.Printf("%-10s ... ", name)
		start := time.Now()
		note, err := fn()
		ms := time.Since(start).Milliseconds()
		if err != nil {
			fmt.Printf("FAILED (%dms): %v\n", ms, err)
			steps = append(steps, stepResult{Name: name, Ms: ms, Note: err.Error()})
			failed = true
			return
		}
		fmt.Printf("OK (%dms)  %s\n", ms, note)
		steps = append(steps, stepResult{Name: name, Ms: ms, OK: true, Note: note})
	}

	// ── 1. Health ───────────────────────────────────────────────────
	run("health", func() (string, error) {
		var h healthResponse
		if err := getJSON(client, "/health", &h); err != nil {
			return "", err
		}
		if h.Status == "" {
			return "", fmt.Errorf("no status in health response")
		}
		return fmt.Sprintf("status=%s stored=%d uptime=%s", h.Status, h.StoredJobs, h.Uptime), nil
	})

	// ── 2. Scrape (the slow step: full browser pipeline) ────────────
	var key string
	run("scrape", func() (string, error) {
		body, err := json.Marshal(map[string]interface{}{"url": *jobURL})
		if err != nil {
			return "", err
		}
		req, err := http.NewRequest(http.MethodPost, *apiURL+"/api/v1/jobs", bytes.NewReader(body))
		if err != nil {
			return "", err
		}
		req.Header.Set("Content-Type", "application/json")
		setAuth(req)

		resp, err := client.Do(req)
		if err != nil {
			return "", err
		}
		defer resp.Body.Close()

		var up uploadResponse
		if err := json.NewDecoder(resp.Body).Decode(&up); err != nil {
			return "", fmt.Errorf("decode: %w", err)
		}
		if up.Error != nil {
			return "", fmt.Errorf("[%s] %s", up.Error.Code, up.Error.Message)
		}
		if up.Key == "" {
			return "", fmt.Errorf("no key in response (status %d)", resp.StatusCode)
		}

		key = up.Key
		note := fmt.Sprintf("key=%s attempts=%d", up.Key, up.Attempts)
		if up.Cached {
			note += " (cached)"
		}
		if up.Degraded {
			note += " (guest fallback)"
		}
		return note, nil
	})

	// The remaining steps need a stored posting.
	if key != "" {
		run("get", func() (string, error) {
			var j jobResponse
			if err := getJSON(client, "/api/v1/jobs/"+url.PathEscape(key), &j); err != nil {
				return "", err
			}
			if j.Error != nil {
				return "", fmt.Errorf("[%s] %s", j.Error.Code, j.Error.Message)
			}
			if len(j.Posting.Body) < 50 {
				return "", fmt.Errorf("stored body is only %d chars", len(j.Posting.Body))
			}
			return fmt.Sprintf("title=%q body=%d chars markdown=%d chars",
				j.Posting.Title, len(j.Posting.Body), len(j.Posting.BodyMarkdown)), nil
		})

		run("similar", func() (string, error) {
			var s similarResponse
			if err := getJSON(client, "/api/v1/jobs/"+url.PathEscape(key)+"/similar", &s); err != nil {
				return "", err
			}
			if s.Error != nil {
				return "", fmt.Errorf("[%s] %s", s.Error.Code, s.Error.Message)
			}
			return fmt.Sprintf("%d matches", len(s.Matches)), nil
		})

		if !*keep {
			run("delete", func() (string, error) {
				req, err := http.NewRequest(http.MethodDelete, *apiURL+"/api/v1/jobs/"+url.PathEscape(key), nil)
				if err != nil {
					return "", err
				}
				setAuth(req)

				resp, err := client.Do(req)
				if err != nil {
					return "", err
				}
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()

				if resp.StatusCode != http.StatusNoContent {
					return "", fmt.Errorf("status %d, want 204", resp.StatusCode)
				}
				return "posting removed", nil
			})
		}
	}

	fmt.Println()
	printTable(steps)

	if failed {
		os.Exit(1)
	}
	fmt.Println("\nAll smoke steps passed.")
}

// getJSON performs an authenticated GET and decodes the JSON body into out.
func getJSON(client *http.Client, path string, out interface{}) error {
	req, err := http.NewRequest(http.MethodGet, *apiURL+path, nil)
	if err != nil {
		return err
	}
	setAuth(req)

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

func setAuth(req *http.Request) {
	if *apiKey != "" {
		req.Header.Set("X-API-Key", *apiKey)
	}
}

func printTable(steps []stepResult) {
	fmt.Println(strings.Repeat("─", 72))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Step\tResult\tLatency\tNote\n")
	fmt.Fprintf(w, "────\t──────\t───────\t────\n")

	for _, s := range steps {
		result := "PASS"
		if !s.OK {
			result = "FAIL"
		}
		fmt.Fprintf(w, "%s\t%s\t%dms\t%s\n", s.Name, result, s.Ms, truncate(s.Note, 44))
	}

	w.Flush()
	fmt.Println(strings.Repeat("─", 72))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
