package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"FeedPub/internal/domain"
	"FeedPub/internal/ports"
)

type memoryCache struct {
	entries map[string]domain.CacheEntry
	getErr  error
	puts    int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string]domain.CacheEntry{}}
}

func (m *memoryCache) Get(_ context.Context, link string) (domain.CacheEntry, bool, error) {
	if m.getErr != nil {
		return domain.CacheEntry{}, false, m.getErr
	}
	e, ok := m.entries[link]
	return e, ok, nil
}

func (m *memoryCache) Put(_ context.Context, link string, raw []byte, summary domain.StructuredSummary) error {
	m.puts++
	m.entries[link] = domain.CacheEntry{Link: link, Raw: raw, Summary: summary, ModTime: time.Date(2025, 11, 8, 6, 0, 0, 0, time.UTC)}
	return nil
}

func (m *memoryCache) Clear(context.Context) error {
	m.entries = map[string]domain.CacheEntry{}
	return nil
}

type stubFetcher struct {
	pages map[string]string
	calls int
}

func (f *stubFetcher) Fetch(_ context.Context, url string) (ports.Document, error) {
	f.calls++
	body, ok := f.pages[url]
	if !ok {
		return ports.Document{}, errors.New("404 Not Found")
	}
	return ports.Document{URL: url, ContentType: "text/plain", Body: []byte(body)}, nil
}

type passthroughExtractor struct{}

func (passthroughExtractor) ExtractText(doc ports.Document) (string, error) {
	return string(doc.Body), nil
}

type scriptedClient struct {
	replies []scriptedReply
	calls   int
	lastReq ports.SummaryRequest
}

type scriptedReply struct {
	raw string
	err error
}

func (c *scriptedClient) Summarize(_ context.Context, req ports.SummaryRequest) (ports.SummaryResponse, error) {
	c.lastReq = req
	reply := c.replies[len(c.replies)-1]
	if c.calls < len(c.replies) {
		reply = c.replies[c.calls]
	}
	c.calls++
	if reply.err != nil {
		return ports.SummaryResponse{}, reply.err
	}
	return ports.SummaryResponse{Raw: []byte(reply.raw), Usage: domain.Usage{PromptTokens: 100, CompletionTokens: 20, TotalTokens: 120}}, nil
}

const validReply = `{"title":"T","author":"A","datePublished":"2025-11-08","abstract":"The abstract.","summary":[{"bullet":"first point"},{"bullet":"second point"}]}`

func testSummarizer(cache ports.SummaryCache, fetcher ports.Fetcher, client ports.SummaryClient) *Summarizer {
	cfg := DefaultSummarizerConfig()
	cfg.Throttle = 0
	cfg.Retry = RetryPolicy{MaxAttempts: 3, Backoff: FixedBackoff(0)}
	return NewSummarizer(cfg, SummarizerDeps{
		Cache:     cache,
		Fetcher:   fetcher,
		Extractor: passthroughExtractor{},
		Client:    client,
		Sleep:     func(time.Duration) {},
	})
}

func TestSummarizeCachesRemoteResult(t *testing.T) {
	t.Parallel()

	link := "https://example.org/post"
	fetcher := &stubFetcher{pages: map[string]string{link: strings.Repeat("long article text ", 100)}}
	client := &scriptedClient{replies: []scriptedReply{{raw: validReply}}}
	cache := newMemoryCache()
	s := testSummarizer(cache, fetcher, client)

	first := s.Summarize(context.Background(), link)
	if first.Err != nil || first.Source != SourceRemote {
		t.Fatalf("unexpected first result: source %s err %v", first.Source, first.Err)
	}
	if !first.Summary.IsStructured() || first.Summary.Structured.CachedAt != nil {
		t.Fatalf("expected fresh structured summary")
	}

	second := s.Summarize(context.Background(), link)
	if second.Source != SourceCache {
		t.Fatalf("expected cache hit, got %s", second.Source)
	}
	if client.calls != 1 {
		t.Fatalf("expected a single remote call, got %d", client.calls)
	}
	if fetcher.calls != 1 {
		t.Fatalf("cache hit must not fetch, got %d fetches", fetcher.calls)
	}
	if second.Summary.Structured.CachedAt == nil {
		t.Fatalf("cached summary should carry cached-at")
	}

	a, b := first.Summary.Structured, second.Summary.Structured
	if a.Abstract != b.Abstract || strings.Join(a.Bullets, "|") != strings.Join(b.Bullets, "|") {
		t.Fatalf("cached summary differs: %+v vs %+v", a, b)
	}
	if first.Usage.TotalTokens != 120 || second.Usage.CacheHits != 1 {
		t.Fatalf("unexpected usage: %+v / %+v", first.Usage, second.Usage)
	}
}

func TestSummarizeShortTextBypassesRemote(t *testing.T) {
	t.Parallel()

	link := "https://example.org/short"
	text := strings.Repeat("a", 500)
	client := &scriptedClient{replies: []scriptedReply{{raw: validReply}}}
	s := testSummarizer(newMemoryCache(), &stubFetcher{pages: map[string]string{link: text}}, client)

	res := s.Summarize(context.Background(), link)
	if res.Source != SourceRaw {
		t.Fatalf("expected raw source, got %s", res.Source)
	}
	if res.Summary.IsStructured() || res.Summary.Plain != text {
		t.Fatalf("expected raw text as summary")
	}
	if client.calls != 0 {
		t.Fatalf("expected no remote call, got %d", client.calls)
	}
}

func TestSummarizeFetchFailureIsTerminal(t *testing.T) {
	t.Parallel()

	client := &scriptedClient{replies: []scriptedReply{{raw: validReply}}}
	fetcher := &stubFetcher{pages: map[string]string{}}
	s := testSummarizer(newMemoryCache(), fetcher, client)

	res := s.Summarize(context.Background(), "https://example.org/missing")
	if !errors.Is(res.Err, domain.ErrFetchFailed) {
		t.Fatalf("expected ErrFetchFailed, got %v", res.Err)
	}
	if res.Summary.IsStructured() || !strings.Contains(res.Summary.Plain, "Error fetching content from https://example.org/missing") {
		t.Fatalf("unexpected fallback summary: %q", res.Summary.Plain)
	}
	if fetcher.calls != 1 || client.calls != 0 {
		t.Fatalf("fetch failure must not be retried: fetches %d, calls %d", fetcher.calls, client.calls)
	}
}

func TestSummarizeRetriesMalformedResponses(t *testing.T) {
	t.Parallel()

	link := "https://example.org/retry"
	client := &scriptedClient{replies: []scriptedReply{
		{raw: `not json`},
		{raw: `{"title":"T","author":"","datePublished":"","abstract":"","summary":[{"bullet":"x"}]}`},
		{raw: "```json\n" + validReply + "\n```"},
	}}
	cache := newMemoryCache()
	s := testSummarizer(cache, &stubFetcher{pages: map[string]string{link: strings.Repeat("b", 2000)}}, client)

	res := s.Summarize(context.Background(), link)
	if res.Err != nil || res.Source != SourceRemote {
		t.Fatalf("expected success on third attempt, got %s %v", res.Source, res.Err)
	}
	if client.calls != 3 || res.Usage.RemoteCalls != 3 {
		t.Fatalf("expected 3 calls, got %d (usage %d)", client.calls, res.Usage.RemoteCalls)
	}
	if cache.puts != 1 {
		t.Fatalf("expected one cache write, got %d", cache.puts)
	}
}

func TestSummarizeExhaustedRetriesFallBack(t *testing.T) {
	t.Parallel()

	link := "https://example.org/down"
	client := &scriptedClient{replies: []scriptedReply{{err: errors.New("503 Service Unavailable")}}}
	cache := newMemoryCache()
	s := testSummarizer(cache, &stubFetcher{pages: map[string]string{link: strings.Repeat("c", 2000)}}, client)

	res := s.Summarize(context.Background(), link)
	var exhausted *ExhaustedError
	if !errors.As(res.Err, &exhausted) {
		t.Fatalf("expected ExhaustedError, got %v", res.Err)
	}
	if !errors.Is(res.Err, domain.ErrSummarizationUnavailable) {
		t.Fatalf("expected ErrSummarizationUnavailable in chain, got %v", res.Err)
	}
	if res.Summary.IsStructured() {
		t.Fatalf("fallback must be plain text")
	}
	if client.calls != 3 || cache.puts != 0 {
		t.Fatalf("expected 3 calls and no cache write, got %d / %d", client.calls, cache.puts)
	}
}

func TestSummarizeTrimsToBudget(t *testing.T) {
	t.Parallel()

	link := "https://example.org/huge"
	client := &scriptedClient{replies: []scriptedReply{{raw: validReply}}}
	s := testSummarizer(newMemoryCache(), &stubFetcher{pages: map[string]string{link: strings.Repeat("é", 60000)}}, client)

	res := s.Summarize(context.Background(), link)
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	budget := DefaultSummarizerConfig().CharBudget()
	if budget != 49540 {
		t.Fatalf("unexpected budget %d", budget)
	}
	if got := len([]rune(client.lastReq.Text)); got != budget {
		t.Fatalf("expected %d characters sent, got %d", budget, got)
	}
	if !res.Summary.Structured.Trimmed {
		t.Fatalf("summary should be marked trimmed")
	}
}

func TestSummarizeCorruptCacheIsMiss(t *testing.T) {
	t.Parallel()

	link := "https://example.org/corrupt"
	cache := newMemoryCache()
	cache.getErr = domain.ErrCacheCorrupt
	client := &scriptedClient{replies: []scriptedReply{{raw: validReply}}}
	s := testSummarizer(cache, &stubFetcher{pages: map[string]string{link: strings.Repeat("d", 1500)}}, client)

	res := s.Summarize(context.Background(), link)
	if res.Source != SourceRemote || client.calls != 1 {
		t.Fatalf("corrupt cache should fall through to remote, got %s with %d calls", res.Source, client.calls)
	}
}

func TestParseSummaryResponseRejectsUnknownFields(t *testing.T) {
	t.Parallel()

	_, err := ParseSummaryResponse([]byte(`{"abstract":"a","summary":[{"bullet":"b"}],"extra":1}`), false)
	if !errors.Is(err, domain.ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}

	_, err = ParseSummaryResponse([]byte(`{"abstract":"a","summary":[]}`), false)
	if !errors.Is(err, domain.ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse for empty bullets, got %v", err)
	}

	s, err := ParseSummaryResponse([]byte(validReply), true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.Structured.Trimmed || len(s.Structured.Bullets) != 2 {
		t.Fatalf("unexpected summary: %+v", s.Structured)
	}
}

func TestSummarizeThrottlesEveryRemoteCall(t *testing.T) {
	t.Parallel()

	const (
		throttle = time.Second
		backoff  = 250 * time.Millisecond
	)
	link := "https://example.org/slow"
	fetcher := &stubFetcher{pages: map[string]string{
		link:                         strings.Repeat("e", 2000),
		"https://example.org/tiny":   "too short to summarize",
		"https://example.org/cached": strings.Repeat("f", 2000),
	}}
	client := &scriptedClient{replies: []scriptedReply{{err: errors.New("503 Service Unavailable")}}}
	cache := newMemoryCache()

	var slept []time.Duration
	cfg := DefaultSummarizerConfig()
	cfg.Throttle = throttle
	cfg.Retry = RetryPolicy{MaxAttempts: 3, Backoff: FixedBackoff(backoff)}
	s := NewSummarizer(cfg, SummarizerDeps{
		Cache:     cache,
		Fetcher:   fetcher,
		Extractor: passthroughExtractor{},
		Client:    client,
		Sleep:     func(d time.Duration) { slept = append(slept, d) },
	})

	s.Summarize(context.Background(), link)
	want := []time.Duration{throttle, backoff, throttle, backoff, throttle}
	if fmt.Sprint(slept) != fmt.Sprint(want) {
		t.Fatalf("expected pauses %v, got %v", want, slept)
	}

	quiet := []string{"https://example.org/tiny", "https://example.org/missing", "https://example.org/cached"}
	_ = cache.Put(context.Background(), "https://example.org/cached", []byte(validReply),
		domain.StructuredSummary{Abstract: "Cached.", Bullets: []string{"kept"}})
	for _, l := range quiet {
		slept = nil
		res := s.Summarize(context.Background(), l)
		if len(slept) != 0 {
			t.Errorf("%s (%s): expected no pauses, got %v", l, res.Source, slept)
		}
	}
	if client.calls != 3 {
		t.Fatalf("only the first link should reach the remote model, got %d calls", client.calls)
	}
}
