package extract

import (
	"fmt"
	"mime"
	"net/http"
	"strings"

	"FeedPub/internal/ports"
)

// Extractor turns one kind of document into plain text.
type Extractor interface {
	Name() string
	MediaTypes() []string
	Extract(doc ports.Document) (string, error)
}

// Registry dispatches documents to extractors by media type. Unknown or
// missing content types are sniffed from the body.
type Registry struct {
	byType   map[string]Extractor
	fallback Extractor
}

var _ ports.TextExtractor = (*Registry)(nil)

// NewRegistry builds an empty registry with a plain-text fallback.
func NewRegistry() *Registry {
	return &Registry{byType: map[string]Extractor{}, fallback: TextExtractor{}}
}

// Default registers the HTML, PDF and plain-text extractors.
func Default() *Registry {
	r := NewRegistry()
	r.Register(HTMLExtractor{})
	r.Register(PDFExtractor{})
	r.Register(TextExtractor{})
	return r
}

// Register adds or replaces the extractor for each of its media types.
func (r *Registry) Register(e Extractor) {
	if r.byType == nil {
		r.byType = map[string]Extractor{}
	}
	for _, mt := range e.MediaTypes() {
		r.byType[mt] = e
	}
}

// Resolve returns the extractor for a Content-Type header value.
func (r *Registry) Resolve(contentType string) (Extractor, error) {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt = strings.ToLower(strings.TrimSpace(contentType))
	}
	if e, ok := r.byType[mt]; ok {
		return e, nil
	}
	return nil, fmt.Errorf("no extractor for %q", contentType)
}

// ExtractText implements ports.TextExtractor.
func (r *Registry) ExtractText(doc ports.Document) (string, error) {
	e, err := r.Resolve(doc.ContentType)
	if err != nil {
		e, err = r.Resolve(http.DetectContentType(doc.Body))
	}
	if err != nil {
		e = r.fallback
	}

	text, err := e.Extract(doc)
	if err != nil {
		return "", fmt.Errorf("%s extractor: %w", e.Name(), err)
	}
	return strings.ToValidUTF8(text, ""), nil
}
