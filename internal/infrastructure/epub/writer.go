package epub

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	goepub "github.com/go-shiori/go-epub"
	"github.com/google/uuid"

	"FeedPub/internal/domain"
	"FeedPub/internal/ports"
)

// Options configures the generated book metadata.
type Options struct {
	Dir      string
	Author   string
	Language string
}

// Writer serializes a publication into an EPUB file.
type Writer struct {
	opts  Options
	newID func() string
}

var _ ports.Serializer = (*Writer)(nil)

// NewWriter fills metadata defaults.
func NewWriter(opts Options) *Writer {
	if opts.Dir == "" {
		opts.Dir = "."
	}
	if opts.Author == "" {
		opts.Author = "FeedPub"
	}
	if opts.Language == "" {
		opts.Language = "en"
	}
	return &Writer{opts: opts, newID: uuid.NewString}
}

// Write adds the chapters and writes <dir>/<title>.epub.
func (w *Writer) Write(ctx context.Context, pub domain.Publication) (string, error) {
	if len(pub.Spine) == 0 {
		return "", errors.New("publication has no chapters")
	}

	book, err := goepub.NewEpub(pub.Title)
	if err != nil {
		return "", fmt.Errorf("new epub: %w", err)
	}
	book.SetAuthor(w.opts.Author)
	book.SetLang(w.opts.Language)
	book.SetIdentifier("urn:uuid:" + w.newID())
	book.SetDescription(fmt.Sprintf("%d feeds, %d articles", len(pub.Feeds), pub.ArticleCount()))

	if err := w.addChapters(ctx, book, pub); err != nil {
		return "", err
	}

	if err := os.MkdirAll(w.opts.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(w.opts.Dir, Filename(pub.Title))
	if err := book.Write(path); err != nil {
		return "", fmt.Errorf("write epub: %w", err)
	}
	return path, nil
}

// addChapters adds the table of contents chapter, then each feed from
// pub.TOC as a section with its articles nested below it, so the book's
// navigation mirrors the feed/article tree and the spine keeps reading order.
func (w *Writer) addChapters(ctx context.Context, book *goepub.Epub, pub domain.Publication) error {
	toc, ok := pub.Chapters[domain.TOCFilename]
	if !ok {
		return errors.New("publication has no table of contents chapter")
	}
	if _, err := book.AddSection(toc.Content, toc.Title, toc.Filename, ""); err != nil {
		return fmt.Errorf("add chapter %s: %w", toc.Filename, err)
	}

	added := 1
	for _, entry := range pub.TOC {
		if err := ctx.Err(); err != nil {
			return err
		}
		ch, ok := pub.Chapters[entry.Filename]
		if !ok {
			return fmt.Errorf("toc entry %s has no chapter", entry.Filename)
		}
		parent, err := book.AddSection(ch.Content, ch.Title, ch.Filename, "")
		if err != nil {
			return fmt.Errorf("add chapter %s: %w", ch.Filename, err)
		}
		added++

		for _, child := range entry.Children {
			sub, ok := pub.Chapters[child.Filename]
			if !ok {
				return fmt.Errorf("toc entry %s has no chapter", child.Filename)
			}
			if _, err := book.AddSubSection(parent, sub.Content, sub.Title, sub.Filename, ""); err != nil {
				return fmt.Errorf("add chapter %s: %w", sub.Filename, err)
			}
			added++
		}
	}

	if added != len(pub.Spine) {
		return fmt.Errorf("toc covers %d chapters but spine has %d", added, len(pub.Spine))
	}
	return nil
}

// Filename derives a filesystem-safe book name from the title.
func Filename(title string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		if r < 0x20 {
			return -1
		}
		return r
	}, strings.TrimSpace(title))
	if name == "" {
		name = "publication"
	}
	return name + ".epub"
}
