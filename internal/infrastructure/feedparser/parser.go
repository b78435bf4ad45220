package feedparser

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"FeedPub/internal/domain"
	"FeedPub/internal/ports"
)

// Parser turns RSS, Atom and JSON feed bodies into article candidates.
type Parser struct{}

var _ ports.FeedParser = (*Parser)(nil)

// NewParser returns a stateless parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse keeps document order. The publication timestamp falls back to the
// update timestamp; entries with neither keep a nil PublishedAt.
func (p *Parser) Parse(ctx context.Context, raw []byte) ([]domain.ArticleCandidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	out := make([]domain.ArticleCandidate, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		out = append(out, domain.ArticleCandidate{
			Title:       strings.TrimSpace(item.Title),
			Link:        strings.TrimSpace(item.Link),
			Author:      itemAuthor(item),
			PublishedAt: itemTime(item),
		})
	}
	return out, nil
}

func itemTime(item *gofeed.Item) *time.Time {
	var ts *time.Time
	switch {
	case item.PublishedParsed != nil:
		ts = item.PublishedParsed
	case item.UpdatedParsed != nil:
		ts = item.UpdatedParsed
	default:
		return nil
	}
	t := ts.UTC()
	return &t
}

func itemAuthor(item *gofeed.Item) string {
	if item.Author != nil && strings.TrimSpace(item.Author.Name) != "" {
		return strings.TrimSpace(item.Author.Name)
	}
	names := make([]string, 0, len(item.Authors))
	for _, a := range item.Authors {
		if a != nil && strings.TrimSpace(a.Name) != "" {
			names = append(names, strings.TrimSpace(a.Name))
		}
	}
	return strings.Join(names, ", ")
}
