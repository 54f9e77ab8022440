package reader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	defaultMaxBodyBytes = 2 << 20 // 2MB cap on response bodies
	defaultUserAgent    = "Mozilla/5.0 (compatible; chatNERD/1.0)"
	maxMarkdownChars    = 50000
)

// HTTPFetcher fetches pages over HTTP and converts HTML to markdown.
type HTTPFetcher struct {
	client       *http.Client
	maxBodyBytes int64
	userAgent    string
}

// HTTPOption configures an HTTPFetcher.
type HTTPOption func(*HTTPFetcher)

// WithClient substitutes the HTTP client (proxies, test transports).
func WithClient(c *http.Client) HTTPOption {
	return func(f *HTTPFetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// WithMaxBodyBytes caps how much of a response body is read.
func WithMaxBodyBytes(n int64) HTTPOption {
	return func(f *HTTPFetcher) {
		if n > 0 {
			f.maxBodyBytes = n
		}
	}
}

// NewHTTPFetcher builds the production fetcher. Per-fetch deadlines come
// from the context, so the client itself carries no timeout.
func NewHTTPFetcher(opts ...HTTPOption) *HTTPFetcher {
	f := &HTTPFetcher{
		client:       &http.Client{},
		maxBodyBytes: defaultMaxBodyBytes,
		userAgent:    defaultUserAgent,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch retrieves the URL and converts the response to markdown.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Page{}, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Page{}, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes))
	if err != nil {
		return Page{}, fmt.Errorf("failed to read response: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")

	// Plain text and markdown pass through untouched.
	if strings.Contains(contentType, "text/plain") ||
		strings.Contains(contentType, "text/markdown") {
		return Page{Markdown: truncate(string(body), maxMarkdownChars)}, nil
	}

	title, markdown, err := htmlToMarkdown(string(body))
	if err != nil {
		return Page{}, fmt.Errorf("failed to convert to markdown: %w", err)
	}

	return Page{Title: title, Markdown: truncate(markdown, maxMarkdownChars)}, nil
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max] + "\n\n[...truncated...]"
	}
	return s
}
