package ports

import (
	"context"
	"time"

	"FeedPub/internal/domain"
)

// CatalogLoader produces the ordered feed descriptors for a run.
type CatalogLoader interface {
	Load(ctx context.Context) (domain.Catalog, error)
}

// Document is a fetched resource.
type Document struct {
	URL         string
	ContentType string
	Body        []byte
}

// Fetcher retrieves the raw bytes behind a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (Document, error)
}

// FeedParser turns raw feed bytes into candidates in feed-native order.
type FeedParser interface {
	Parse(ctx context.Context, raw []byte) ([]domain.ArticleCandidate, error)
}

// TextExtractor reduces a fetched document to plain text.
type TextExtractor interface {
	ExtractText(doc Document) (string, error)
}

// SummaryRequest is a single remote summarization prompt.
type SummaryRequest struct {
	System      string
	Instruction string
	Text        string
	Schema      map[string]any
}

// SummaryResponse carries the raw structured payload and its cost.
type SummaryResponse struct {
	Raw   []byte
	Usage domain.Usage
}

// SummaryClient invokes a remote summarization capability.
type SummaryClient interface {
	Summarize(ctx context.Context, req SummaryRequest) (SummaryResponse, error)
}

// SummaryCache is a content-addressed store of structured summaries.
type SummaryCache interface {
	Get(ctx context.Context, link string) (domain.CacheEntry, bool, error)
	Put(ctx context.Context, link string, raw []byte, summary domain.StructuredSummary) error
	Clear(ctx context.Context) error
}

// Serializer writes a publication into an e-book container and returns its path.
type Serializer interface {
	Write(ctx context.Context, pub domain.Publication) (string, error)
}

// Deliverer ships a serialized publication.
type Deliverer interface {
	Deliver(ctx context.Context, path string, pub domain.Publication) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
