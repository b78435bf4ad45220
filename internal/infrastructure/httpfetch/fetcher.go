package httpfetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"FeedPub/internal/ports"
)

const (
	defaultUserAgent = "FeedPub/1.0"
	defaultTimeout   = 20 * time.Second
	// maxBodyBytes bounds a single feed or article download.
	maxBodyBytes = 16 << 20
)

// Fetcher downloads feeds and article pages over HTTP.
type Fetcher struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
}

var _ ports.Fetcher = (*Fetcher)(nil)

// NewFetcher wires an HTTP client; a nil client gets a 20s timeout.
func NewFetcher(client *http.Client, userAgent string) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Fetcher{client: client, userAgent: userAgent, maxBytes: maxBodyBytes}
}

// Fetch performs a GET and returns the body together with its content type.
func (f *Fetcher) Fetch(ctx context.Context, url string) (ports.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return ports.Document{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return ports.Document{}, fmt.Errorf("request %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return ports.Document{}, fmt.Errorf("%s returned %s", url, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return ports.Document{}, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.maxBytes {
		return ports.Document{}, fmt.Errorf("%s: body exceeds %d bytes", url, f.maxBytes)
	}

	finalURL := url
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return ports.Document{
		URL:         finalURL,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}
