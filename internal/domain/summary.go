package domain

import (
	"errors"
	"strings"
	"time"
)

// Summary is either a plain-text fallback or a validated structured summary.
type Summary struct {
	Plain      string
	Structured *StructuredSummary
}

// StructuredSummary is the machine-generated abstract and bullet list.
type StructuredSummary struct {
	Title         string     `json:"title"`
	Author        string     `json:"author"`
	DatePublished string     `json:"datePublished"`
	Abstract      string     `json:"abstract"`
	Bullets       []string   `json:"bullets"`
	Trimmed       bool       `json:"trimmed"`
	CachedAt      *time.Time `json:"-"`
}

var (
	errEmptyAbstract = errors.New("structured summary has an empty abstract")
	errNoBullets     = errors.New("structured summary has no bullets")
)

// PlainSummary wraps raw text as the plain-text variant.
func PlainSummary(text string) Summary {
	return Summary{Plain: text}
}

// NewStructuredSummary validates s and returns it as the structured variant.
// Blank bullets are dropped before the bullet count is checked.
func NewStructuredSummary(s StructuredSummary) (Summary, error) {
	s.Abstract = strings.TrimSpace(s.Abstract)
	if s.Abstract == "" {
		return Summary{}, errEmptyAbstract
	}

	bullets := make([]string, 0, len(s.Bullets))
	for _, b := range s.Bullets {
		if b = strings.TrimSpace(b); b != "" {
			bullets = append(bullets, b)
		}
	}
	if len(bullets) == 0 {
		return Summary{}, errNoBullets
	}
	s.Bullets = bullets

	return Summary{Structured: &s}, nil
}

// IsStructured reports whether the summary is the structured variant.
func (s Summary) IsStructured() bool {
	return s.Structured != nil
}

// CacheEntry is a persisted remote response plus its derived summary.
type CacheEntry struct {
	Fingerprint string
	Link        string
	Raw         []byte
	Summary     StructuredSummary
	ModTime     time.Time
}
