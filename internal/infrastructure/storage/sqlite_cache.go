package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"FeedPub/internal/domain"
	"FeedPub/internal/ports"
)

//go:embed schema.sql
var schemaSQL string

const (
	summariesTable = "summaries"
	sqliteFilename = "summaries.db"
)

var sqlBuilder = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// SQLiteCache stores summaries in a single sqlite database inside the cache dir.
type SQLiteCache struct {
	db  *sql.DB
	now func() time.Time
}

var _ ports.SummaryCache = (*SQLiteCache)(nil)

// OpenSQLiteCache opens (creating if needed) <dir>/summaries.db.
func OpenSQLiteCache(ctx context.Context, dir string) (*SQLiteCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, sqliteFilename))
	if err != nil {
		return nil, fmt.Errorf("open sqlite cache: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteCache{db: db, now: time.Now}, nil
}

// Close releases the database handle.
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}

// Get returns the stored entry for link.
func (c *SQLiteCache) Get(ctx context.Context, link string) (domain.CacheEntry, bool, error) {
	fp := Fingerprint(link)
	query, args, err := sqlBuilder.
		Select("link", "raw", "summary", "updated_at").
		From(summariesTable).
		Where(sq.Eq{"fingerprint": fp}).
		ToSql()
	if err != nil {
		return domain.CacheEntry{}, false, fmt.Errorf("build select: %w", err)
	}

	var (
		storedLink string
		raw        []byte
		summary    string
		updatedAt  int64
	)
	err = c.db.QueryRowContext(ctx, query, args...).Scan(&storedLink, &raw, &summary, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CacheEntry{}, false, nil
	}
	if err != nil {
		return domain.CacheEntry{}, false, fmt.Errorf("query summary: %w", err)
	}

	var s domain.StructuredSummary
	if err := json.Unmarshal([]byte(summary), &s); err != nil {
		return domain.CacheEntry{}, false, fmt.Errorf("%w: decode row %s: %v", domain.ErrCacheCorrupt, fp, err)
	}

	return domain.CacheEntry{
		Fingerprint: fp,
		Link:        storedLink,
		Raw:         raw,
		Summary:     s,
		ModTime:     time.Unix(0, updatedAt),
	}, true, nil
}

// Put upserts the entry for link.
func (c *SQLiteCache) Put(ctx context.Context, link string, raw []byte, summary domain.StructuredSummary) error {
	encoded, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}

	query, args, err := sqlBuilder.
		Insert(summariesTable).
		Columns("fingerprint", "link", "raw", "summary", "updated_at").
		Values(Fingerprint(link), link, raw, string(encoded), c.now().UnixNano()).
		Suffix("ON CONFLICT(fingerprint) DO UPDATE SET link = excluded.link, raw = excluded.raw, summary = excluded.summary, updated_at = excluded.updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := c.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert summary: %w", err)
	}
	return nil
}

// Clear deletes every stored summary.
func (c *SQLiteCache) Clear(ctx context.Context) error {
	query, args, err := sqlBuilder.Delete(summariesTable).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	if _, err := c.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("clear summaries: %w", err)
	}
	return nil
}
