package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"FeedPub/internal/domain"
	"FeedPub/internal/ports"
)

// ArticleSummarizer is the part of Summarizer the ingestor depends on.
type ArticleSummarizer interface {
	Summarize(ctx context.Context, link string) Result
}

// IngestorConfig bounds how many entries are considered and how old they may be.
type IngestorConfig struct {
	MaxArticles int
	Window      time.Duration
}

// IngestorDeps wires the feed collaborators.
type IngestorDeps struct {
	Fetcher    ports.Fetcher
	Parser     ports.FeedParser
	Summarizer ArticleSummarizer
	Logger     *slog.Logger
	Now        func() time.Time
}

// FeedFailure records a feed that could not be fetched or parsed.
type FeedFailure struct {
	Feed domain.FeedDescriptor
	Err  error
}

// Ingestion is everything the ingestor collected during one run.
type Ingestion struct {
	Feeds    []domain.Feed
	Usage    domain.Usage
	Failures []FeedFailure
	Degraded int
}

// Ingestor turns feed descriptors into summarized, numbered feeds.
type Ingestor struct {
	cfg        IngestorConfig
	fetcher    ports.Fetcher
	parser     ports.FeedParser
	summarizer ArticleSummarizer
	logger     *slog.Logger
	now        func() time.Time
}

// NewIngestor constructs the ingestion stage.
func NewIngestor(cfg IngestorConfig, deps IngestorDeps) *Ingestor {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Ingestor{
		cfg:        cfg,
		fetcher:    deps.Fetcher,
		parser:     deps.Parser,
		summarizer: deps.Summarizer,
		logger:     logger,
		now:        now,
	}
}

// FeedFilename names the chapter of the feed at a 1-based position.
func FeedFilename(feedIndex int) string {
	return fmt.Sprintf("feed_%d.xhtml", feedIndex)
}

// ArticleFilename names the chapter of an article inside a feed.
func ArticleFilename(feedIndex, articleIndex int) string {
	return fmt.Sprintf("article_%d_%d.xhtml", feedIndex, articleIndex)
}

// Ingest processes descriptors sequentially in catalog order. Feeds that end
// up without articles are left out, so feed indexes stay dense. On
// cancellation the feeds gathered so far are returned with ctx.Err().
func (i *Ingestor) Ingest(ctx context.Context, descriptors []domain.FeedDescriptor) (Ingestion, error) {
	var out Ingestion
	now := i.now()

	for _, desc := range descriptors {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		feedIndex := len(out.Feeds) + 1
		log := i.logger.With("feed", desc.Title)
		log.Info("fetching feed", "url", desc.SourceURL)

		candidates, err := i.entries(ctx, desc)
		if err != nil {
			log.Warn("feed skipped", "error", err)
			out.Failures = append(out.Failures, FeedFailure{Feed: desc, Err: err})
			continue
		}

		if i.cfg.MaxArticles > 0 && len(candidates) > i.cfg.MaxArticles {
			candidates = candidates[:i.cfg.MaxArticles]
		}

		feed := domain.Feed{
			Title:    desc.Title,
			Category: desc.Category,
			Index:    feedIndex,
			Filename: FeedFilename(feedIndex),
		}

		for _, c := range candidates {
			if !Accept(c, now, i.cfg.Window) {
				continue
			}
			if err := ctx.Err(); err != nil {
				return out, err
			}

			articleIndex := len(feed.Articles) + 1
			log.Info("summarizing article", "title", c.Title, "link", c.Link)
			res := i.summarizer.Summarize(ctx, c.Link)
			if err := ctx.Err(); err != nil {
				return out, err
			}
			out.Usage = out.Usage.Add(res.Usage)
			if res.Err != nil {
				out.Degraded++
				log.Warn("article summary degraded", "link", c.Link, "error", res.Err)
			}

			feed.Articles = append(feed.Articles, domain.Article{
				Title:       c.Title,
				Link:        c.Link,
				Author:      c.Author,
				PublishedAt: *c.PublishedAt,
				Index:       articleIndex,
				Filename:    ArticleFilename(feedIndex, articleIndex),
				Summary:     res.Summary,
			})
		}

		if len(feed.Articles) == 0 {
			log.Info("no recent articles, feed omitted")
			continue
		}
		log.Info("feed ingested", "index", feedIndex, "articles", len(feed.Articles))
		out.Feeds = append(out.Feeds, feed)
	}

	return out, nil
}

func (i *Ingestor) entries(ctx context.Context, desc domain.FeedDescriptor) ([]domain.ArticleCandidate, error) {
	doc, err := i.fetcher.Fetch(ctx, desc.SourceURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFetchFailed, err)
	}
	candidates, err := i.parser.Parse(ctx, doc.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return candidates, nil
}
