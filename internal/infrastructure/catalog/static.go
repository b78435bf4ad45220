package catalog

import (
	"context"
	"fmt"

	"FeedPub/internal/domain"
	"FeedPub/internal/ports"
)

// StaticLoader serves a catalog declared inline in the configuration file.
type StaticLoader struct {
	catalog domain.Catalog
}

var _ ports.CatalogLoader = (*StaticLoader)(nil)

// NewStaticLoader copies feeds so later mutation by the caller is not visible.
func NewStaticLoader(title string, feeds []domain.FeedDescriptor) *StaticLoader {
	return &StaticLoader{catalog: domain.Catalog{
		Title: title,
		Feeds: append([]domain.FeedDescriptor(nil), feeds...),
	}}
}

// Load returns the configured catalog. Feeds without a source URL make the
// catalog unreadable.
func (l *StaticLoader) Load(ctx context.Context) (domain.Catalog, error) {
	if err := ctx.Err(); err != nil {
		return domain.Catalog{}, err
	}
	for i, f := range l.catalog.Feeds {
		if f.SourceURL == "" {
			return domain.Catalog{}, fmt.Errorf("%w: feed %d (%q) has no url", domain.ErrCatalogUnreadable, i+1, f.Title)
		}
	}
	cat := l.catalog
	cat.Feeds = append([]domain.FeedDescriptor(nil), l.catalog.Feeds...)
	return cat, nil
}
