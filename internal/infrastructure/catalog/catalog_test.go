package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"FeedPub/internal/domain"
)

const sampleOPML = `<?xml version="1.0" encoding="UTF-8"?>
<opml version="2.0">
  <head><title>Morning Reading</title></head>
  <body>
    <outline text="Tech" title="Technology">
      <outline type="rss" text="Blog A" title="Blog A" xmlUrl="https://a.example/feed" htmlUrl="https://a.example" description="About A"/>
      <outline text="Nested">
        <outline type="rss" text="Blog B" xmlUrl="https://b.example/rss"/>
      </outline>
    </outline>
    <outline text="Science">
      <outline type="rss" title="Journal C" xmlUrl="https://c.example/atom"/>
      <outline type="link" text="Not a feed" url="https://d.example"/>
    </outline>
    <outline type="rss" text="Loose" xmlUrl="https://loose.example/feed"/>
  </body>
</opml>`

func TestParseOPML(t *testing.T) {
	t.Parallel()

	cat, err := ParseOPML([]byte(sampleOPML))
	if err != nil {
		t.Fatalf("ParseOPML error: %v", err)
	}
	if cat.Title != "Morning Reading" {
		t.Fatalf("unexpected title %q", cat.Title)
	}

	want := []domain.FeedDescriptor{
		{Category: "Technology", Title: "Blog A", Description: "About A", SourceURL: "https://a.example/feed", HTMLURL: "https://a.example"},
		{Category: "Nested", Title: "Blog B", SourceURL: "https://b.example/rss"},
		{Category: "Science", Title: "Journal C", SourceURL: "https://c.example/atom"},
		{Title: "Loose", SourceURL: "https://loose.example/feed"},
	}
	if len(cat.Feeds) != len(want) {
		t.Fatalf("expected %d feeds, got %+v", len(want), cat.Feeds)
	}
	for i := range want {
		if cat.Feeds[i] != want[i] {
			t.Errorf("feed %d: got %+v want %+v", i, cat.Feeds[i], want[i])
		}
	}
}

func TestOPMLLoaderErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if _, err := NewOPMLLoader(filepath.Join(dir, "missing.opml"), "").Load(context.Background()); !errors.Is(err, domain.ErrCatalogUnreadable) {
		t.Fatalf("missing file: expected ErrCatalogUnreadable, got %v", err)
	}

	bad := filepath.Join(dir, "bad.opml")
	if err := os.WriteFile(bad, []byte("<opml><body><outline"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := NewOPMLLoader(bad, "").Load(context.Background()); !errors.Is(err, domain.ErrCatalogUnreadable) {
		t.Fatalf("bad xml: expected ErrCatalogUnreadable, got %v", err)
	}
}

func TestOPMLLoaderFallbackTitle(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "feeds.opml")
	doc := `<opml><head></head><body><outline type="rss" text="x" xmlUrl="https://x.example"/></body></opml>`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cat, err := NewOPMLLoader(path, "FeedPub").Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cat.Title != "FeedPub" || len(cat.Feeds) != 1 {
		t.Fatalf("unexpected catalog %+v", cat)
	}
}

func TestStaticLoader(t *testing.T) {
	t.Parallel()

	feeds := []domain.FeedDescriptor{{Title: "A", SourceURL: "https://a.example"}}
	loader := NewStaticLoader("Inline", feeds)
	feeds[0].Title = "mutated"

	cat, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cat.Title != "Inline" || cat.Feeds[0].Title != "A" {
		t.Fatalf("unexpected catalog %+v", cat)
	}

	if _, err := NewStaticLoader("x", []domain.FeedDescriptor{{Title: "no url"}}).Load(context.Background()); !errors.Is(err, domain.ErrCatalogUnreadable) {
		t.Fatalf("expected ErrCatalogUnreadable, got %v", err)
	}
}
