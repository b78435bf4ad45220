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

const titleDateLayout = "January 2, 2006"

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Catalog    ports.CatalogLoader
	Ingestor   *Ingestor
	Serializer ports.Serializer
	Deliverer  ports.Deliverer
	Logger     *slog.Logger
}

// Pipeline implements the feed-to-publication workflow.
type Pipeline struct {
	catalog    ports.CatalogLoader
	ingestor   *Ingestor
	serializer ports.Serializer
	deliverer  ports.Deliverer
	logger     *slog.Logger
}

// Report summarizes one pipeline run.
type Report struct {
	Title       string
	Path        string
	Feeds       int
	Articles    int
	Degraded    int
	FeedErrors  int
	Usage       domain.Usage
	Delivered   bool
	Publication domain.Publication
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Pipeline{
		catalog:    deps.Catalog,
		ingestor:   deps.Ingestor,
		serializer: deps.Serializer,
		deliverer:  deps.Deliverer,
		logger:     logger,
	}
}

// PublicationTitle combines the catalog title with the run day.
func PublicationTitle(catalogTitle string, day time.Time) string {
	if catalogTitle == "" {
		catalogTitle = "FeedPub"
	}
	return catalogTitle + " - " + day.Format(titleDateLayout)
}

// ProcessDay orchestrates loading the catalog, ingesting, assembling,
// serializing and delivering. Only catalog, serialization and delivery
// failures are returned; per-feed and per-article failures are absorbed.
func (p *Pipeline) ProcessDay(ctx context.Context, day time.Time) (Report, error) {
	if p.catalog == nil || p.ingestor == nil {
		return Report{}, fmt.Errorf("pipeline is not configured")
	}

	catalog, err := p.catalog.Load(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("load catalog: %w", err)
	}
	if len(catalog.Feeds) == 0 {
		return Report{}, fmt.Errorf("load catalog: %w: no feeds to process", domain.ErrCatalogUnreadable)
	}
	p.logger.Info("catalog loaded", "title", catalog.Title, "feeds", len(catalog.Feeds))

	ingestion, err := p.ingestor.Ingest(ctx, catalog.Feeds)
	if err != nil {
		return Report{}, fmt.Errorf("ingest feeds: %w", err)
	}

	title := PublicationTitle(catalog.Title, day)
	pub := Assemble(title, ingestion.Feeds, day.Location())
	if err := Validate(pub); err != nil {
		return Report{}, fmt.Errorf("assemble publication: %w", err)
	}

	report := Report{
		Title:       title,
		Feeds:       len(pub.Feeds),
		Articles:    pub.ArticleCount(),
		Degraded:    ingestion.Degraded,
		FeedErrors:  len(ingestion.Failures),
		Usage:       ingestion.Usage,
		Publication: pub,
	}
	p.logger.Info("publication assembled", "title", title, "feeds", report.Feeds, "articles", report.Articles)
	p.logger.Info("token usage", "total", ingestion.Usage.TotalTokens, "usage", ingestion.Usage.String())

	if p.serializer == nil {
		return report, nil
	}

	path, err := p.serializer.Write(ctx, pub)
	if err != nil {
		return report, fmt.Errorf("serialize publication: %w", err)
	}
	report.Path = path
	p.logger.Info("publication written", "path", path)

	if p.deliverer == nil {
		return report, nil
	}

	if report.Articles == 0 {
		p.logger.Warn("publication is empty, delivering anyway", "path", path)
	}
	if err := p.deliverer.Deliver(ctx, path, pub); err != nil {
		return report, fmt.Errorf("deliver publication: %w", err)
	}
	report.Delivered = true
	p.logger.Info("publication delivered", "path", path)

	return report, nil
}
