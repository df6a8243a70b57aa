// Package llm is a minimal OpenAI-compatible chat-completions client
// backing the interview-prep endpoint. Keys are bring-your-own per
// request and never stored server-side.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/rishabhxpandey/lnkd-apb/models"
)

// defaultBaseURL is used when the request does not override the endpoint.
const defaultBaseURL = "https://api.openai.com/v1"

// promptTokenBudget caps how much posting text is packed into the prompt.
const promptTokenBudget = 6000

// Client is a lightweight OpenAI-compatible API client.
// It uses net/http directly, no provider SDK needed.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a new LLM client with the given http.Client.
// Pass nil to use a default client.
func NewClient(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{httpClient: httpClient}
}

// PrepParams holds per-request LLM configuration (BYOK).
type PrepParams struct {
	APIKey  string
	Model   string
	BaseURL string // e.g. "https://api.openai.com/v1"
}

// chatRequest is the OpenAI chat completion request body.
type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

// chatResponse is the minimal OpenAI chat completion response we need.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// chatErrorResponse captures an API error from the LLM provider.
type chatErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

const prepSystemPrompt = `You are an experienced interviewer hiring for the role described in a job posting. Generate thoughtful interview questions that assess both technical skills and cultural fit. Mix behavioral and technical questions appropriately.`

// PrepQuestions asks the model for n interview-prep questions grounded
// in the posting body.
func (c *Client) PrepQuestions(ctx context.Context, posting *models.Posting, n int, params PrepParams) ([]string, error) {
	baseURL := params.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	reqBody := chatRequest{
		Model: params.Model,
		Messages: []chatMessage{
			{Role: "system", Content: prepSystemPrompt},
			{Role: "user", Content: buildPrepPrompt(posting, n)},
		},
		Temperature:    0.7,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := strings.TrimRight(baseURL, "/") + "/chat/completions"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+params.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeLLMFailure, "LLM request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeLLMFailure, "failed to read LLM response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyLLMError(resp.StatusCode, respBody)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, models.NewScrapeError(models.ErrCodeLLMFailure, "failed to parse LLM response", err)
	}
	if len(chatResp.Choices) == 0 {
		return nil, models.NewScrapeError(models.ErrCodeLLMFailure, "LLM returned no choices", nil)
	}

	var out struct {
		Questions []string `json:"questions"`
	}
	if err := json.Unmarshal([]byte(chatResp.Choices[0].Message.Content), &out); err != nil {
		return nil, models.NewScrapeError(models.ErrCodeLLMFailure, "LLM returned malformed question JSON", err)
	}
	if len(out.Questions) == 0 {
		return nil, models.NewScrapeError(models.ErrCodeLLMFailure, "LLM returned no questions", nil)
	}
	if len(out.Questions) > n {
		out.Questions = out.Questions[:n]
	}
	return out.Questions, nil
}

// buildPrepPrompt packs the posting into the user prompt, clamped to the
// token budget.
func buildPrepPrompt(posting *models.Posting, n int) string {
	return fmt.Sprintf(`Generate %d interview questions for a candidate applying to this job posting.

Job title: %s
Company: %s

Posting:
%s

Return ONLY a JSON object of the form {"questions": ["...", "..."]} with exactly %d strings. No markdown fences or explanation.`,
		n, posting.Title, posting.Organization, clampTokens(posting.Body, promptTokenBudget), n)
}

// EstimateTokens provides a fast token count estimate without importing
// a tokenizer.
//
// Heuristic: utf8 rune count / 3. English text averages ~4 chars/token,
// CJK text ~1.5; dividing by 3 is a middle ground that slightly
// over-estimates.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	est := n / 3
	if est < 1 {
		return 1
	}
	return est
}

// clampTokens truncates text to approximately budget tokens under the
// EstimateTokens heuristic.
func clampTokens(text string, budget int) string {
	if EstimateTokens(text) <= budget {
		return text
	}
	runes := []rune(text)
	if max := budget * 3; len(runes) > max {
		runes = runes[:max]
	}
	return string(runes)
}

// classifyLLMError maps HTTP status codes to appropriate error codes.
func classifyLLMError(statusCode int, body []byte) *models.ScrapeError {
	var errResp chatErrorResponse
	msg := "LLM API error"
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		msg = errResp.Error.Message
	}

	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return models.NewScrapeError(models.ErrCodeLLMAuthFailure, msg, nil)
	case statusCode == http.StatusTooManyRequests:
		return models.NewScrapeError(models.ErrCodeLLMRateLimited, msg, nil)
	default:
		return models.NewScrapeError(models.ErrCodeLLMFailure, fmt.Sprintf("LLM API returned %d: %s", statusCode, msg), nil)
	}
}
