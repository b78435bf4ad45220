package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"FeedPub/internal/domain"
	"FeedPub/internal/ports"
)

const entryExt = ".json"

// FileCache keeps one JSON document per link under dir.
type FileCache struct {
	dir string
}

var _ ports.SummaryCache = (*FileCache)(nil)

type fileEntry struct {
	Link    string                   `json:"link"`
	Raw     json.RawMessage          `json:"raw"`
	Summary domain.StructuredSummary `json:"summary"`
}

// NewFileCache creates dir when missing.
func NewFileCache(dir string) (*FileCache, error) {
	if dir == "" {
		return nil, errors.New("cache dir is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &FileCache{dir: dir}, nil
}

func (c *FileCache) path(link string) string {
	return filepath.Join(c.dir, Fingerprint(link)+entryExt)
}

// Get loads the entry for link. Unreadable or undecodable files are reported
// as ErrCacheCorrupt so the caller can treat them as a miss.
func (c *FileCache) Get(ctx context.Context, link string) (domain.CacheEntry, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.CacheEntry{}, false, err
	}

	path := c.path(link)
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.CacheEntry{}, false, nil
	}
	if err != nil {
		return domain.CacheEntry{}, false, fmt.Errorf("%w: stat %s: %v", domain.ErrCacheCorrupt, path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return domain.CacheEntry{}, false, fmt.Errorf("%w: read %s: %v", domain.ErrCacheCorrupt, path, err)
	}

	var entry fileEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return domain.CacheEntry{}, false, fmt.Errorf("%w: decode %s: %v", domain.ErrCacheCorrupt, path, err)
	}

	return domain.CacheEntry{
		Fingerprint: Fingerprint(link),
		Link:        entry.Link,
		Raw:         entry.Raw,
		Summary:     entry.Summary,
		ModTime:     info.ModTime(),
	}, true, nil
}

// Put writes the entry through a temp file and rename so readers never see
// a partial document.
func (c *FileCache) Put(ctx context.Context, link string, raw []byte, summary domain.StructuredSummary) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entry := fileEntry{Link: link, Summary: summary}
	if json.Valid(raw) {
		entry.Raw = raw
	} else {
		quoted, err := json.Marshal(string(raw))
		if err != nil {
			return fmt.Errorf("encode raw response: %w", err)
		}
		entry.Raw = quoted
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}

	tmp, err := os.CreateTemp(c.dir, "entry-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp entry: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp entry: %w", err)
	}
	if err := os.Rename(tmpName, c.path(link)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("commit cache entry: %w", err)
	}
	return nil
}

// Clear removes every cached entry but leaves the directory and lock file.
func (c *FileCache) Clear(ctx context.Context) error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("list cache dir: %w", err)
	}
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := e.Name()
		if e.IsDir() || !(strings.HasSuffix(name, entryExt) || strings.HasSuffix(name, ".tmp")) {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", name, err)
		}
	}
	return nil
}
