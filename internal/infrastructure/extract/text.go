package extract

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"

	"FeedPub/internal/ports"
)

// TextExtractor passes plain text through, decoding the declared charset.
type TextExtractor struct{}

// Name identifies the extractor in error messages.
func (TextExtractor) Name() string { return "text" }

// MediaTypes lists the plain-text content types.
func (TextExtractor) MediaTypes() []string {
	return []string{"text/plain", "text/markdown"}
}

// Extract returns the trimmed text. Bytes that do not decode are dropped.
func (TextExtractor) Extract(doc ports.Document) (string, error) {
	r, err := charset.NewReader(bytes.NewReader(doc.Body), doc.ContentType)
	if err != nil {
		return "", fmt.Errorf("decode charset: %w", err)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read text: %w", err)
	}
	return strings.TrimSpace(strings.ToValidUTF8(string(data), "")), nil
}
