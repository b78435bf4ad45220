package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	"FeedPub/internal/ports"
)

// Elements that never carry article prose.
const boilerplate = "script, style, noscript, nav, header, footer, aside, form, iframe, svg"

// Candidate roots for the main content, most specific first.
var contentRoots = []string{"article", "main", "[role=main]", "body"}

// HTMLExtractor pulls the readable text out of an article page.
type HTMLExtractor struct{}

// Name identifies the extractor in error messages.
func (HTMLExtractor) Name() string { return "html" }

// MediaTypes lists the HTML content types.
func (HTMLExtractor) MediaTypes() []string {
	return []string{"text/html", "application/xhtml+xml"}
}

// Extract prefers <article> or <main> over the whole body and returns one
// paragraph per block element, separated by blank lines. The page is decoded
// from the charset named by the Content-Type header or a <meta> tag.
func (HTMLExtractor) Extract(d ports.Document) (string, error) {
	r, err := charset.NewReader(bytes.NewReader(d.Body), d.ContentType)
	if err != nil {
		return "", fmt.Errorf("decode charset: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	doc.Find(boilerplate).Remove()

	root := doc.Selection
	for _, sel := range contentRoots {
		if found := doc.Find(sel).First(); found.Length() > 0 && strings.TrimSpace(found.Text()) != "" {
			root = found
			break
		}
	}

	var paras []string
	for _, n := range root.Nodes {
		paras = collectBlocks(n, paras)
	}
	if len(paras) == 0 {
		if text := collapse(root.Text()); text != "" {
			paras = append(paras, text)
		}
	}
	return strings.Join(paras, "\n\n"), nil
}

func collectBlocks(n *html.Node, out []string) []string {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "p", "li", "blockquote", "pre", "td", "h1", "h2", "h3", "h4", "h5", "h6", "figcaption":
			if t := collapse(textContent(n)); t != "" {
				out = append(out, t)
			}
			return out
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = collectBlocks(c, out)
	}
	return out
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		if n.Type == html.ElementNode && n.Data == "br" {
			buf.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return buf.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
