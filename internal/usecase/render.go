package usecase

import (
	"bytes"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"FeedPub/internal/domain"
)

const dateLayout = "January 02, 2006, 03:04 PM"

// Raw HTML in model output is dropped; goldmark's default is unsafe=false.
var markdown = goldmark.New(goldmark.WithRendererOptions(gmhtml.WithXHTML()))

func renderTOC(title string, feeds []domain.Feed) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<h1>%s</h1>", html.EscapeString(title))

	if len(feeds) == 0 {
		b.WriteString("<p>No articles today.</p>")
		return b.String()
	}

	b.WriteString("<ul>")
	for _, f := range feeds {
		fmt.Fprintf(&b, "<li>%s", link(f.Filename, f.Title))
		b.WriteString("<ul>")
		for _, a := range f.Articles {
			fmt.Fprintf(&b, "<li>%s</li>", link(a.Filename, a.Title))
		}
		b.WriteString("</ul></li>")
	}
	b.WriteString("</ul>")
	return b.String()
}

func renderFeed(f domain.Feed, ch domain.Chapter) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<h1>%s</h1>", html.EscapeString(f.Title))
	if f.Category != "" {
		fmt.Fprintf(&b, "<p><em>%s</em></p>", html.EscapeString(f.Category))
	}

	fmt.Fprintf(&b, "<p>%s | %s | %s</p>",
		link(ch.PrevSection, "<< Previous"),
		link(ch.Up, "TOC"),
		link(ch.NextSection, "Next >>"))

	b.WriteString("<ul>")
	for _, a := range f.Articles {
		fmt.Fprintf(&b, "<li>%s</li>", link(a.Filename, a.Title))
	}
	b.WriteString("</ul>")
	return b.String()
}

func renderArticle(a domain.Article, f domain.Feed, ch domain.Chapter, loc *time.Location) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<h2>%s</h2>", html.EscapeString(a.Title))

	var byline []string
	if !a.PublishedAt.IsZero() {
		byline = append(byline, html.EscapeString(a.PublishedAt.In(loc).Format(dateLayout)))
	}
	if a.Author != "" {
		byline = append(byline, html.EscapeString(a.Author))
	}
	if len(byline) > 0 {
		fmt.Fprintf(&b, "<p>%s</p>", strings.Join(byline, "<br/>"))
	}

	fmt.Fprintf(&b, "<p>%s | %s | %s</p>",
		link(ch.Prev, "<< Previous"),
		link(ch.Up, fmt.Sprintf("%s (%d/%d)", f.Title, a.Index, len(f.Articles))),
		link(ch.Next, "Next >>"))

	b.WriteString(renderSummary(a.Summary, loc))

	if a.Link != "" {
		fmt.Fprintf(&b, "<p>%s</p>", link(a.Link, "Full Article"))
	}
	return b.String()
}

func renderSummary(s domain.Summary, loc *time.Location) string {
	if !s.IsStructured() {
		return renderPlain(s.Plain)
	}

	st := s.Structured
	var b strings.Builder

	label := "AI Summary:"
	if st.Trimmed {
		label = "AI Summary (content trimmed):"
	}
	fmt.Fprintf(&b, "<p><strong>%s</strong></p>", label)
	if st.CachedAt != nil {
		fmt.Fprintf(&b, "<p><em>Cached since %s</em></p>", html.EscapeString(st.CachedAt.In(loc).Format(dateLayout)))
	}

	b.WriteString(renderMarkdown(st.Abstract))
	b.WriteString("<ul>")
	for _, bullet := range st.Bullets {
		fmt.Fprintf(&b, "<li>%s</li>", renderInline(bullet))
	}
	b.WriteString("</ul>")
	return b.String()
}

func renderPlain(text string) string {
	var b strings.Builder
	for _, para := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		para = strings.Join(strings.Fields(para), " ")
		if para == "" {
			continue
		}
		fmt.Fprintf(&b, "<p>%s</p>", html.EscapeString(para))
	}
	return b.String()
}

func renderMarkdown(src string) string {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return "<p>" + html.EscapeString(src) + "</p>"
	}
	return strings.TrimSpace(buf.String())
}

// renderInline unwraps a single rendered paragraph so it can sit inside <li>.
func renderInline(src string) string {
	out := renderMarkdown(src)
	if strings.Count(out, "<p>") == 1 && strings.HasPrefix(out, "<p>") && strings.HasSuffix(out, "</p>") {
		return strings.TrimSuffix(strings.TrimPrefix(out, "<p>"), "</p>")
	}
	return out
}

func link(href, text string) string {
	return fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(href), html.EscapeString(text))
}
