package extract

import (
	"strings"
	"testing"
	"unicode/utf8"

	"FeedPub/internal/ports"
)

const articlePage = `<!doctype html>
<html><head><title>Post</title><style>p{color:red}</style></head>
<body>
  <header><nav><a href="/">Home</a></nav></header>
  <aside><p>Subscribe now</p></aside>
  <article>
    <h1>Headline</h1>
    <p>First   paragraph
       spans lines.</p>
    <script>var x = 1;</script>
    <p>Second <em>paragraph</em>.</p>
    <ul><li>point one</li></ul>
  </article>
  <footer><p>Copyright</p></footer>
</body></html>`

func TestHTMLExtractorPrefersArticle(t *testing.T) {
	t.Parallel()

	text, err := HTMLExtractor{}.Extract(ports.Document{ContentType: "text/html", Body: []byte(articlePage)})
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}
	want := "Headline\n\nFirst paragraph spans lines.\n\nSecond paragraph.\n\npoint one"
	if text != want {
		t.Fatalf("unexpected text:\n%q\nwant:\n%q", text, want)
	}
}

func TestHTMLExtractorFallsBackToBody(t *testing.T) {
	t.Parallel()

	page := `<html><body><div>Loose text <b>without</b> blocks</div><footer>bye</footer></body></html>`
	text, err := HTMLExtractor{}.Extract(ports.Document{Body: []byte(page)})
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}
	if text != "Loose text without blocks" {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestExtractDecodesLegacyCharsets(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name        string
		contentType string
		body        string
	}{
		{"html header charset", "text/html; charset=iso-8859-1", "<html><body><p>Caf\xe9 cr\xe8me br\xfbl\xe9e</p></body></html>"},
		{"html meta charset", "text/html", "<html><head><meta charset=\"iso-8859-1\"></head><body><p>Caf\xe9 cr\xe8me br\xfbl\xe9e</p></body></html>"},
		{"plain header charset", "text/plain; charset=iso-8859-1", "Caf\xe9 cr\xe8me br\xfbl\xe9e"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Default().ExtractText(ports.Document{ContentType: tc.contentType, Body: []byte(tc.body)})
			if err != nil {
				t.Fatalf("ExtractText error: %v", err)
			}
			if !utf8.ValidString(got) {
				t.Fatalf("extracted text is not valid UTF-8: %q", got)
			}
			if got != "Café crème brûlée" {
				t.Fatalf("got %q", got)
			}
		})
	}
}

func TestRegistryDispatchesByContentType(t *testing.T) {
	t.Parallel()

	r := Default()
	cases := []struct {
		name        string
		contentType string
		body        string
		want        string
	}{
		{"html with charset", "text/html; charset=utf-8", "<p>hi</p>", "hi"},
		{"plain", "text/plain", "  raw words  ", "raw words"},
		{"sniffed html", "", "<html><body><p>sniffed</p></body></html>", "sniffed"},
		{"unknown falls back to text", "application/x-unknown", "opaque", "opaque"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := r.ExtractText(ports.Document{ContentType: tc.contentType, Body: []byte(tc.body)})
			if err != nil {
				t.Fatalf("ExtractText error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %q want %q", got, tc.want)
			}
		})
	}
}

func TestPDFExtractorRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := Default().ExtractText(ports.Document{ContentType: "application/pdf", Body: []byte("not a pdf")})
	if err == nil || !strings.Contains(err.Error(), "pdf") {
		t.Fatalf("expected pdf error, got %v", err)
	}
}
