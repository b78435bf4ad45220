package catalog

import (
	"context"
	"encoding/xml"
	"fmt"
	"os"
	"strings"

	"FeedPub/internal/domain"
	"FeedPub/internal/ports"
)

type opmlDocument struct {
	Head struct {
		Title string `xml:"title"`
	} `xml:"head"`
	Body struct {
		Outlines []opmlOutline `xml:"outline"`
	} `xml:"body"`
}

type opmlOutline struct {
	Text        string        `xml:"text,attr"`
	Title       string        `xml:"title,attr"`
	Type        string        `xml:"type,attr"`
	Description string        `xml:"description,attr"`
	XMLURL      string        `xml:"xmlUrl,attr"`
	HTMLURL     string        `xml:"htmlUrl,attr"`
	Outlines    []opmlOutline `xml:"outline"`
}

// OPMLLoader reads feeds from an OPML subscription list. Feeds are the
// outlines of type "rss"; their category is the nearest enclosing outline.
type OPMLLoader struct {
	path     string
	fallback string
}

var _ ports.CatalogLoader = (*OPMLLoader)(nil)

// NewOPMLLoader reads path on every Load. fallbackTitle is used when the
// document has no head title.
func NewOPMLLoader(path, fallbackTitle string) *OPMLLoader {
	return &OPMLLoader{path: path, fallback: fallbackTitle}
}

// Load parses the OPML file.
func (l *OPMLLoader) Load(ctx context.Context) (domain.Catalog, error) {
	if err := ctx.Err(); err != nil {
		return domain.Catalog{}, err
	}

	data, err := os.ReadFile(l.path)
	if err != nil {
		return domain.Catalog{}, fmt.Errorf("%w: read %s: %v", domain.ErrCatalogUnreadable, l.path, err)
	}

	cat, err := ParseOPML(data)
	if err != nil {
		return domain.Catalog{}, fmt.Errorf("%w: %s: %v", domain.ErrCatalogUnreadable, l.path, err)
	}
	if cat.Title == "" {
		cat.Title = l.fallback
	}
	return cat, nil
}

// ParseOPML decodes an OPML document in outline order.
func ParseOPML(data []byte) (domain.Catalog, error) {
	var doc opmlDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return domain.Catalog{}, fmt.Errorf("decode opml: %w", err)
	}

	cat := domain.Catalog{Title: strings.TrimSpace(doc.Head.Title)}
	var walk func(outlines []opmlOutline, category string)
	walk = func(outlines []opmlOutline, category string) {
		for _, o := range outlines {
			if strings.EqualFold(o.Type, "rss") && o.XMLURL != "" {
				cat.Feeds = append(cat.Feeds, domain.FeedDescriptor{
					Category:    category,
					Title:       firstNonEmpty(o.Title, o.Text, o.XMLURL),
					Description: strings.TrimSpace(o.Description),
					SourceURL:   strings.TrimSpace(o.XMLURL),
					HTMLURL:     strings.TrimSpace(o.HTMLURL),
				})
				continue
			}
			walk(o.Outlines, firstNonEmpty(o.Title, o.Text, category))
		}
	}
	walk(doc.Body.Outlines, "")

	return cat, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
