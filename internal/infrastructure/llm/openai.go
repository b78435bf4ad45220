package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"FeedPub/internal/domain"
	"FeedPub/internal/ports"
)

const (
	defaultModel   = "gpt-4o-mini"
	defaultTimeout = 120 * time.Second
	schemaName     = "article_summary"
)

// Config carries the OpenAI connection settings.
type Config struct {
	BaseURL    string
	APIKey     string
	Model      string
	HTTPClient *http.Client
}

// OpenAIClient implements ports.SummaryClient with structured chat completions.
type OpenAIClient struct {
	client openai.Client
	model  string
}

var _ ports.SummaryClient = (*OpenAIClient)(nil)

// NewOpenAIClient builds a client. SDK retries are disabled; the summarizer
// owns the retry loop.
func NewOpenAIClient(cfg Config) (*OpenAIClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("openai api key is empty")
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIClient{client: openai.NewClient(opts...), model: model}, nil
}

// Summarize sends one completion request. Transport and API failures wrap
// ErrSummarizationUnavailable; an empty answer wraps ErrMalformedResponse.
func (c *OpenAIClient) Summarize(ctx context.Context, req ports.SummaryRequest) (ports.SummaryResponse, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.Instruction + "\n\n" + req.Text),
		},
	}
	if req.Schema != nil {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   schemaName,
					Schema: req.Schema,
					Strict: openai.Bool(true),
				},
			},
		}
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return ports.SummaryResponse{}, fmt.Errorf("%w: openai status %d: %v", domain.ErrSummarizationUnavailable, apiErr.StatusCode, err)
		}
		return ports.SummaryResponse{}, fmt.Errorf("%w: openai request: %v", domain.ErrSummarizationUnavailable, err)
	}

	usage := domain.Usage{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}

	if len(resp.Choices) == 0 {
		return ports.SummaryResponse{Usage: usage}, fmt.Errorf("%w: no choices in response", domain.ErrMalformedResponse)
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return ports.SummaryResponse{Usage: usage}, fmt.Errorf("%w: empty message content", domain.ErrMalformedResponse)
	}

	return ports.SummaryResponse{Raw: []byte(content), Usage: usage}, nil
}
