package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"FeedPub/internal/domain"
	"FeedPub/internal/ports"
)

const defaultSystemPrompt = "You are a helpful assistant."

// SummarizerConfig holds the content budget and remote call policy.
type SummarizerConfig struct {
	MinChars             int
	MaxTokens            int
	CharsPerToken        int
	PromptOverheadTokens int
	TargetChars          int
	SystemPrompt         string
	Throttle             time.Duration
	Retry                RetryPolicy
}

// DefaultSummarizerConfig mirrors the limits of a 16k-token chat model.
func DefaultSummarizerConfig() SummarizerConfig {
	return SummarizerConfig{
		MinChars:             1000,
		MaxTokens:            16385,
		CharsPerToken:        4,
		PromptOverheadTokens: 4000,
		TargetChars:          2000,
		SystemPrompt:         defaultSystemPrompt,
		Throttle:             time.Second,
		Retry:                DefaultRetryPolicy(),
	}
}

// CharBudget is the number of characters of article text sent upstream.
func (c SummarizerConfig) CharBudget() int {
	budget := c.MaxTokens*c.CharsPerToken - c.PromptOverheadTokens*c.CharsPerToken
	if budget < 0 {
		return 0
	}
	return budget
}

// SummarizerDeps wires the collaborators of the summarization stage.
type SummarizerDeps struct {
	Cache     ports.SummaryCache
	Fetcher   ports.Fetcher
	Extractor ports.TextExtractor
	Client    ports.SummaryClient
	Logger    *slog.Logger
	Sleep     func(time.Duration)
}

// SummarySource tells where a summary came from.
type SummarySource string

const (
	SourceCache    SummarySource = "cache"
	SourceRemote   SummarySource = "remote"
	SourceRaw      SummarySource = "raw"
	SourceFallback SummarySource = "fallback"
)

// Result is the outcome of summarizing one link. Summary is always usable;
// Err records why a fallback summary was produced.
type Result struct {
	Summary domain.Summary
	Usage   domain.Usage
	Source  SummarySource
	Err     error
}

// Summarizer produces article summaries through the cache and a remote model.
type Summarizer struct {
	cfg       SummarizerConfig
	cache     ports.SummaryCache
	fetcher   ports.Fetcher
	extractor ports.TextExtractor
	client    ports.SummaryClient
	logger    *slog.Logger
	sleep     func(time.Duration)
}

// NewSummarizer constructs the summarization stage.
func NewSummarizer(cfg SummarizerConfig, deps SummarizerDeps) *Summarizer {
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = defaultSystemPrompt
	}
	sleep := deps.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Summarizer{
		cfg:       cfg,
		cache:     deps.Cache,
		fetcher:   deps.Fetcher,
		extractor: deps.Extractor,
		client:    deps.Client,
		logger:    logger,
		sleep:     sleep,
	}
}

// Summarize returns a summary for link. A cache hit never touches the network.
func (s *Summarizer) Summarize(ctx context.Context, link string) Result {
	log := s.logger.With("link", link)

	if summary, ok := s.lookup(ctx, log, link); ok {
		log.Info("using cached summary", "cached_at", summary.Structured.CachedAt)
		return Result{Summary: summary, Usage: domain.Usage{CacheHits: 1}, Source: SourceCache}
	}

	text, err := s.fetchText(ctx, link)
	if err != nil {
		log.Warn("fetch article", "error", err)
		return Result{
			Summary: domain.PlainSummary(fmt.Sprintf("Error fetching content from %s: %v", link, err)),
			Source:  SourceFallback,
			Err:     err,
		}
	}

	if utf8.RuneCountInString(text) < s.cfg.MinChars {
		log.Info("returning all text as summary", "chars", utf8.RuneCountInString(text))
		return Result{Summary: domain.PlainSummary(text), Source: SourceRaw}
	}

	text, trimmed := truncateRunes(text, s.cfg.CharBudget())
	if trimmed {
		log.Info("trimmed content", "budget", s.cfg.CharBudget())
	}

	if s.client == nil {
		err := fmt.Errorf("%w: no summarization client configured", domain.ErrSummarizationUnavailable)
		return Result{Summary: domain.PlainSummary(text), Source: SourceFallback, Err: err}
	}

	req := ports.SummaryRequest{
		System:      s.cfg.SystemPrompt,
		Instruction: BuildInstruction(s.cfg.TargetChars),
		Text:        text,
		Schema:      SummarySchema(),
	}

	// The retry loop is not interrupted by cancellation; callers observe
	// ctx between articles.
	work := context.WithoutCancel(ctx)

	var (
		usage   domain.Usage
		summary domain.Summary
		raw     []byte
	)
	err = s.cfg.Retry.Do(s.sleep, func(attempt int) error {
		log.Info("summarizing content with remote model", "attempt", attempt+1)
		resp, err := s.client.Summarize(work, req)
		usage = usage.Add(resp.Usage)
		usage.RemoteCalls++
		s.throttle()
		if err != nil {
			if !IsRetryable(err) {
				err = fmt.Errorf("%w: %v", domain.ErrSummarizationUnavailable, err)
			}
			log.Warn("remote summarization failed", "attempt", attempt+1, "error", err)
			return err
		}

		parsed, err := ParseSummaryResponse(resp.Raw, trimmed)
		if err != nil {
			log.Warn("invalid summarization response", "attempt", attempt+1, "error", err)
			return err
		}
		summary, raw = parsed, resp.Raw
		return nil
	})
	if err != nil {
		return Result{
			Summary: domain.PlainSummary(fmt.Sprintf("Error summarizing content from %s: %v", link, err)),
			Usage:   usage,
			Source:  SourceFallback,
			Err:     err,
		}
	}

	if s.cache != nil {
		if err := s.cache.Put(work, link, raw, *summary.Structured); err != nil {
			log.Warn("cache summary", "error", err)
		}
	}

	return Result{Summary: summary, Usage: usage, Source: SourceRemote}
}

func (s *Summarizer) lookup(ctx context.Context, log *slog.Logger, link string) (domain.Summary, bool) {
	if s.cache == nil {
		return domain.Summary{}, false
	}

	entry, ok, err := s.cache.Get(ctx, link)
	if err != nil {
		log.Warn("cache lookup failed, re-summarizing", "error", err)
		return domain.Summary{}, false
	}
	if !ok {
		return domain.Summary{}, false
	}

	summary, err := domain.NewStructuredSummary(entry.Summary)
	if err != nil {
		log.Warn("cached summary invalid, re-summarizing", "error", err)
		return domain.Summary{}, false
	}
	cachedAt := entry.ModTime
	summary.Structured.CachedAt = &cachedAt
	return summary, true
}

func (s *Summarizer) fetchText(ctx context.Context, link string) (string, error) {
	if s.fetcher == nil || s.extractor == nil {
		return "", fmt.Errorf("%w: fetcher not configured", domain.ErrFetchFailed)
	}

	doc, err := s.fetcher.Fetch(ctx, link)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrFetchFailed, err)
	}

	text, err := s.extractor.ExtractText(doc)
	if err != nil {
		return "", fmt.Errorf("%w: extract text: %v", domain.ErrFetchFailed, err)
	}
	return strings.TrimSpace(text), nil
}

func (s *Summarizer) throttle() {
	if s.cfg.Throttle > 0 {
		s.sleep(s.cfg.Throttle)
	}
}

// BuildInstruction returns the user instruction placed before the article text.
func BuildInstruction(targetChars int) string {
	if targetChars <= 0 {
		targetChars = 2000
	}
	return fmt.Sprintf("Please write a concise (under %d characters) and comprehensive abstractive summary "+
		"of the following article using bullet points. Respond only with JSON containing title, author, "+
		"datePublished, a one-paragraph abstract, and summary as a list of objects with a single bullet field. "+
		"Do not use HTML.", targetChars)
}

// SummarySchema is the JSON schema the remote model must satisfy.
func SummarySchema() map[string]any {
	str := map[string]any{"type": "string"}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title":         str,
			"author":        str,
			"datePublished": str,
			"abstract":      str,
			"summary": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":                 "object",
					"properties":           map[string]any{"bullet": str},
					"required":             []string{"bullet"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []string{"title", "author", "datePublished", "abstract", "summary"},
		"additionalProperties": false,
	}
}

type summaryPayload struct {
	Title         string `json:"title"`
	Author        string `json:"author"`
	DatePublished string `json:"datePublished"`
	Abstract      string `json:"abstract"`
	Summary       []struct {
		Bullet string `json:"bullet"`
	} `json:"summary"`
}

var codeFenceRe = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")

// ParseSummaryResponse strictly decodes a remote payload into a structured summary.
func ParseSummaryResponse(raw []byte, trimmed bool) (domain.Summary, error) {
	body := bytes.TrimSpace(raw)
	if m := codeFenceRe.FindSubmatch(body); len(m) > 1 {
		body = m[1]
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()

	var payload summaryPayload
	if err := dec.Decode(&payload); err != nil {
		return domain.Summary{}, fmt.Errorf("%w: decode: %v", domain.ErrMalformedResponse, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return domain.Summary{}, fmt.Errorf("%w: trailing data after JSON object", domain.ErrMalformedResponse)
	}

	bullets := make([]string, 0, len(payload.Summary))
	for _, item := range payload.Summary {
		bullets = append(bullets, item.Bullet)
	}

	summary, err := domain.NewStructuredSummary(domain.StructuredSummary{
		Title:         strings.TrimSpace(payload.Title),
		Author:        strings.TrimSpace(payload.Author),
		DatePublished: strings.TrimSpace(payload.DatePublished),
		Abstract:      payload.Abstract,
		Bullets:       bullets,
		Trimmed:       trimmed,
	})
	if err != nil {
		return domain.Summary{}, fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	return summary, nil
}

func truncateRunes(s string, limit int) (string, bool) {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s, false
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i], true
		}
		n++
	}
	return s, false
}
