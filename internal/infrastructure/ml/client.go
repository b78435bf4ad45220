package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"FeedPub/internal/domain"
	"FeedPub/internal/ports"
)

// Client talks to a self-hosted inference service that accepts the same
// instruction, text and schema as the OpenAI client and answers with the
// summary JSON plus token accounting.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

var _ ports.SummaryClient = (*Client)(nil)

// NewClient creates a reusable HTTP client.
func NewClient(endpoint, apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		apiKey:   apiKey,
		http:     httpClient,
	}
}

type summarizeRequest struct {
	System      string         `json:"system"`
	Instruction string         `json:"instruction"`
	Content     string         `json:"content"`
	Schema      map[string]any `json:"schema,omitempty"`
}

type summarizeResponse struct {
	Summary json.RawMessage `json:"summary"`
	Usage   struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
		TotalTokens      int64 `json:"total_tokens"`
	} `json:"usage"`
}

// Summarize posts the article to /summarize.
func (c *Client) Summarize(ctx context.Context, req ports.SummaryRequest) (ports.SummaryResponse, error) {
	if c.endpoint == "" {
		return ports.SummaryResponse{}, fmt.Errorf("%w: inference endpoint not configured", domain.ErrSummarizationUnavailable)
	}

	payload := summarizeRequest{
		System:      req.System,
		Instruction: req.Instruction,
		Content:     req.Text,
		Schema:      req.Schema,
	}

	var resp summarizeResponse
	if err := c.post(ctx, "/summarize", payload, &resp); err != nil {
		return ports.SummaryResponse{}, err
	}

	usage := domain.Usage{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}
	raw := bytes.TrimSpace(resp.Summary)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ports.SummaryResponse{Usage: usage}, fmt.Errorf("%w: empty summary", domain.ErrMalformedResponse)
	}

	// A string summary carries the JSON document as text.
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		raw = []byte(text)
	}

	return ports.SummaryResponse{Raw: raw, Usage: usage}, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: do request: %v", domain.ErrSummarizationUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: unexpected status %s", domain.ErrSummarizationUnavailable, resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty response body", domain.ErrMalformedResponse)
		}
		return fmt.Errorf("%w: decode response: %v", domain.ErrMalformedResponse, err)
	}

	return nil
}
