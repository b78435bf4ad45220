package extract

import (
	"bytes"
	"fmt"
	"strings"

	pdflib "github.com/ledongthuc/pdf"

	"FeedPub/internal/ports"
)

// PDFExtractor reads the plain text of every page.
type PDFExtractor struct{}

// Name identifies the extractor in error messages.
func (PDFExtractor) Name() string { return "pdf" }

// MediaTypes lists the PDF content type.
func (PDFExtractor) MediaTypes() []string {
	return []string{"application/pdf"}
}

// Extract joins the text of all pages that have any, one blank line apart.
func (PDFExtractor) Extract(doc ports.Document) (string, error) {
	body := doc.Body
	reader, err := pdflib.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var pages []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			pages = append(pages, text)
		}
	}
	if len(pages) == 0 {
		return "", fmt.Errorf("pdf has no extractable text")
	}
	return strings.Join(pages, "\n\n"), nil
}
