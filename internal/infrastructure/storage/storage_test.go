package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"FeedPub/internal/domain"
	"FeedPub/internal/ports"
)

func sampleSummary() domain.StructuredSummary {
	return domain.StructuredSummary{
		Title:    "Title",
		Author:   "Author",
		Abstract: "Abstract.",
		Bullets:  []string{"one", "two"},
	}
}

func TestNormalizeLink(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in, want string
	}{
		{"  https://Example.ORG/Path?q=1#frag ", "https://example.org/Path?q=1"},
		{"HTTP://example.org/a", "http://example.org/a"},
		{"not a url", "not a url"},
	}
	for _, tc := range cases {
		if got := NormalizeLink(tc.in); got != tc.want {
			t.Errorf("NormalizeLink(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}

	if Fingerprint("https://example.org/a#x") != Fingerprint("https://EXAMPLE.org/a") {
		t.Fatalf("equivalent links must share a fingerprint")
	}
	if Fingerprint("https://example.org/a") == Fingerprint("https://example.org/b") {
		t.Fatalf("distinct links must not collide")
	}
	if len(Fingerprint("x")) != 64 {
		t.Fatalf("fingerprint should be hex sha256")
	}
}

func exerciseCache(t *testing.T, cache ports.SummaryCache) {
	t.Helper()
	ctx := context.Background()
	link := "https://example.org/post"

	if _, ok, err := cache.Get(ctx, link); err != nil || ok {
		t.Fatalf("empty cache: ok=%v err=%v", ok, err)
	}

	raw := []byte(`{"abstract":"Abstract."}`)
	if err := cache.Put(ctx, link, raw, sampleSummary()); err != nil {
		t.Fatalf("Put: %v", err)
	}

	entry, ok, err := cache.Get(ctx, link+"#comments")
	if err != nil || !ok {
		t.Fatalf("Get after Put: ok=%v err=%v", ok, err)
	}
	if entry.Link != link || entry.Summary.Abstract != "Abstract." || len(entry.Summary.Bullets) != 2 {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	if entry.ModTime.IsZero() {
		t.Fatalf("entry should carry a modification time")
	}

	updated := sampleSummary()
	updated.Abstract = "Second."
	if err := cache.Put(ctx, link, raw, updated); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	entry, _, _ = cache.Get(ctx, link)
	if entry.Summary.Abstract != "Second." {
		t.Fatalf("overwrite not visible: %+v", entry.Summary)
	}

	if err := cache.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, ok, _ := cache.Get(ctx, link); ok {
		t.Fatalf("entry survived Clear")
	}
}

func TestFileCacheRoundTrip(t *testing.T) {
	t.Parallel()

	cache, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	exerciseCache(t, cache)
}

func TestSQLiteCacheRoundTrip(t *testing.T) {
	t.Parallel()

	cache, err := OpenSQLiteCache(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("OpenSQLiteCache: %v", err)
	}
	defer cache.Close()
	exerciseCache(t, cache)
}

func TestFileCacheCorruptEntry(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cache, err := NewFileCache(dir)
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	link := "https://example.org/broken"
	if err := os.WriteFile(filepath.Join(dir, Fingerprint(link)+".json"), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, ok, err := cache.Get(context.Background(), link)
	if ok || !errors.Is(err, domain.ErrCacheCorrupt) {
		t.Fatalf("expected ErrCacheCorrupt, got ok=%v err=%v", ok, err)
	}
}

func TestFileCacheClearKeepsLock(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	release, err := AcquireLock(dir)
	if err != nil {
		t.Fatalf("AcquireLock: %v", err)
	}
	defer release()

	cache, _ := NewFileCache(dir)
	if err := cache.Put(context.Background(), "https://example.org/a", []byte("plain"), sampleSummary()); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := cache.Clear(context.Background()); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, ".lock")); err != nil {
		t.Fatalf("lock file removed by Clear: %v", err)
	}
}

func TestAcquireLockIsExclusive(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	release, err := AcquireLock(dir)
	if err != nil {
		t.Fatalf("first AcquireLock: %v", err)
	}

	if _, err := AcquireLock(dir); !errors.Is(err, domain.ErrCacheLocked) {
		t.Fatalf("expected ErrCacheLocked, got %v", err)
	}

	if err := release(); err != nil {
		t.Fatalf("release: %v", err)
	}
	again, err := AcquireLock(dir)
	if err != nil {
		t.Fatalf("AcquireLock after release: %v", err)
	}
	_ = again()
}
