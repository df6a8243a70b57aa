package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rishabhxpandey/lnkd-apb/models"
)

func prepPosting() *models.Posting {
	return &models.Posting{
		ID:           "4044437386",
		Title:        "Backend Engineer",
		Organization: "Example Corp",
		Body:         "We are hiring a backend engineer to build and operate data pipelines at scale.",
		SourceTag:    models.SourceLinkedIn,
	}
}

// chatServer fakes an OpenAI-compatible chat completions endpoint
// returning the given message content.
func chatServer(t *testing.T, content string, capture *chatRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if capture != nil {
			body, _ := io.ReadAll(r.Body)
			if err := json.Unmarshal(body, capture); err != nil {
				t.Errorf("unmarshal chat request: %v", err)
			}
		}
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestPrepQuestions(t *testing.T) {
	var captured chatRequest
	srv := chatServer(t, `{"questions": ["Tell me about a pipeline you built.", "How do you handle backpressure?"]}`, &captured)
	defer srv.Close()

	c := NewClient(nil)
	questions, err := c.PrepQuestions(context.Background(), prepPosting(), 2, PrepParams{
		APIKey:  "sk-test",
		Model:   "gpt-4o-mini",
		BaseURL: srv.URL,
	})
	if err != nil {
		t.Fatalf("PrepQuestions: %v", err)
	}

	if len(questions) != 2 {
		t.Fatalf("got %d questions, want 2", len(questions))
	}
	if questions[0] != "Tell me about a pipeline you built." {
		t.Errorf("questions[0] = %q", questions[0])
	}

	if captured.Model != "gpt-4o-mini" {
		t.Errorf("request model = %q, want gpt-4o-mini", captured.Model)
	}
	if captured.Temperature != 0.7 {
		t.Errorf("request temperature = %v, want 0.7", captured.Temperature)
	}
	if captured.ResponseFormat == nil || captured.ResponseFormat.Type != "json_object" {
		t.Errorf("response_format = %+v, want json_object", captured.ResponseFormat)
	}
	if len(captured.Messages) != 2 || captured.Messages[0].Role != "system" {
		t.Fatalf("messages = %+v, want system + user", captured.Messages)
	}
	if !strings.Contains(captured.Messages[1].Content, "Backend Engineer") {
		t.Errorf("user prompt missing the job title: %q", captured.Messages[1].Content)
	}
	if !strings.Contains(captured.Messages[1].Content, "data pipelines") {
		t.Errorf("user prompt missing the posting body: %q", captured.Messages[1].Content)
	}
}

func TestPrepQuestions_SendsBearerKey(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": `{"questions": ["q"]}`}},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(nil)
	if _, err := c.PrepQuestions(context.Background(), prepPosting(), 1, PrepParams{APIKey: "sk-abc", Model: "m", BaseURL: srv.URL}); err != nil {
		t.Fatalf("PrepQuestions: %v", err)
	}
	if gotAuth != "Bearer sk-abc" {
		t.Errorf("Authorization = %q, want Bearer sk-abc", gotAuth)
	}
}

func TestPrepQuestions_TruncatesToCount(t *testing.T) {
	srv := chatServer(t, `{"questions": ["a", "b", "c", "d", "e"]}`, nil)
	defer srv.Close()

	c := NewClient(nil)
	questions, err := c.PrepQuestions(context.Background(), prepPosting(), 3, PrepParams{APIKey: "k", Model: "m", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("PrepQuestions: %v", err)
	}
	if len(questions) != 3 {
		t.Errorf("got %d questions, want 3", len(questions))
	}
}

func TestPrepQuestions_ErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantCode string
	}{
		{"unauthorized", http.StatusUnauthorized, models.ErrCodeLLMAuthFailure},
		{"forbidden", http.StatusForbidden, models.ErrCodeLLMAuthFailure},
		{"rate limited", http.StatusTooManyRequests, models.ErrCodeLLMRateLimited},
		{"server error", http.StatusInternalServerError, models.ErrCodeLLMFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				json.NewEncoder(w).Encode(map[string]any{
					"error": map[string]any{"message": "provider said no"},
				})
			}))
			defer srv.Close()

			c := NewClient(nil)
			_, err := c.PrepQuestions(context.Background(), prepPosting(), 1, PrepParams{APIKey: "k", Model: "m", BaseURL: srv.URL})
			if err == nil {
				t.Fatal("expected an error")
			}

			var se *models.ScrapeError
			if !errors.As(err, &se) {
				t.Fatalf("error %T is not a ScrapeError", err)
			}
			if se.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", se.Code, tt.wantCode)
			}
			if tt.status != http.StatusInternalServerError && se.Message != "provider said no" {
				t.Errorf("message = %q, want the provider message", se.Message)
			}
		})
	}
}

func TestPrepQuestions_MalformedContent(t *testing.T) {
	srv := chatServer(t, `not json at all`, nil)
	defer srv.Close()

	c := NewClient(nil)
	_, err := c.PrepQuestions(context.Background(), prepPosting(), 1, PrepParams{APIKey: "k", Model: "m", BaseURL: srv.URL})
	if err == nil {
		t.Fatal("expected an error for malformed question JSON")
	}

	var se *models.ScrapeError
	if !errors.As(err, &se) || se.Code != models.ErrCodeLLMFailure {
		t.Errorf("err = %v, want LLM_FAILURE", err)
	}
}

func TestPrepQuestions_EmptyQuestions(t *testing.T) {
	srv := chatServer(t, `{"questions": []}`, nil)
	defer srv.Close()

	c := NewClient(nil)
	if _, err := c.PrepQuestions(context.Background(), prepPosting(), 1, PrepParams{APIKey: "k", Model: "m", BaseURL: srv.URL}); err == nil {
		t.Fatal("expected an error when the model returns no questions")
	}
}

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want int
	}{
		{"empty", "", 0},
		{"short", "ab", 1},
		{"exact", "abcdef", 2},
		{"longer", strings.Repeat("x", 300), 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EstimateTokens(tt.in); got != tt.want {
				t.Errorf("EstimateTokens(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestClampTokens(t *testing.T) {
	long := strings.Repeat("word ", 2000) // 10000 runes

	clamped := clampTokens(long, 100)
	if EstimateTokens(clamped) > 100 {
		t.Errorf("clamped text still estimates %d tokens", EstimateTokens(clamped))
	}

	short := "short text"
	if clampTokens(short, 100) != short {
		t.Error("text under budget should pass through unchanged")
	}
}
