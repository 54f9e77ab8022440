package reader

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFetcher resolves URLs from a map; entries with a delay sleep first.
type fakeFetcher struct {
	pages  map[string]Page
	delays map[string]time.Duration
	errs   map[string]error
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (Page, error) {
	if d, ok := f.delays[url]; ok {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return Page{}, ctx.Err()
		}
	}
	if err, ok := f.errs[url]; ok {
		return Page{}, err
	}
	if p, ok := f.pages[url]; ok {
		return p, nil
	}
	return Page{}, errors.New("no such page")
}

func TestReadPagesFastAndSlow(t *testing.T) {
	fetcher := &fakeFetcher{
		pages: map[string]Page{
			"fast": {Title: "Fast", Markdown: "fast body"},
			"slow": {Title: "Slow", Markdown: "slow body"},
		},
		delays: map[string]time.Duration{
			"fast": 10 * time.Millisecond,
			"slow": 10 * time.Second, // never resolves inside the budget
		},
	}
	r := New(fetcher)

	start := time.Now()
	results := r.ReadPages(context.Background(), []string{"fast", "slow"}, 100*time.Millisecond)
	elapsed := time.Since(start)

	require.Len(t, results, 2)

	assert.True(t, results[0].Success)
	assert.Equal(t, "fast", results[0].URL)
	assert.Equal(t, "Fast", results[0].Title)
	assert.Equal(t, "fast body", results[0].Markdown)

	assert.False(t, results[1].Success)
	assert.Equal(t, "slow", results[1].URL)
	assert.Contains(t, results[1].Err, "timeout")
	assert.Empty(t, results[1].Markdown)

	// The batch resolves once per-URL races settle: one budget, not one per URL.
	assert.Less(t, elapsed, 2*time.Second, "slow URL must not serialize the batch")
	assert.GreaterOrEqual(t, elapsed, 90*time.Millisecond)
}

func TestReadPagesOrderMatchesInput(t *testing.T) {
	fetcher := &fakeFetcher{
		pages: map[string]Page{
			"a": {Title: "A"}, "b": {Title: "B"}, "c": {Title: "C"},
		},
		delays: map[string]time.Duration{
			"a": 50 * time.Millisecond, // completes last
			"b": 20 * time.Millisecond,
			"c": 1 * time.Millisecond, // completes first
		},
	}
	r := New(fetcher)

	results := r.ReadPages(context.Background(), []string{"a", "b", "c"}, time.Second)
	require.Len(t, results, 3)
	assert.Equal(t, "a", results[0].URL)
	assert.Equal(t, "b", results[1].URL)
	assert.Equal(t, "c", results[2].URL)
	for _, res := range results {
		assert.True(t, res.Success)
	}
}

func TestReadPagesPerURLErrorsNeverFailBatch(t *testing.T) {
	fetcher := &fakeFetcher{
		pages: map[string]Page{"good": {Title: "Good", Markdown: "ok"}},
		errs:  map[string]error{"bad": errors.New("connection refused")},
	}
	r := New(fetcher)

	results := r.ReadPages(context.Background(), []string{"bad", "good"}, time.Second)
	require.Len(t, results, 2)
	assert.False(t, results[0].Success)
	assert.Contains(t, results[0].Err, "connection refused")
	assert.True(t, results[1].Success)
}

func TestReadPagesEmptyInput(t *testing.T) {
	r := New(&fakeFetcher{})
	results := r.ReadPages(context.Background(), nil, time.Second)
	assert.Empty(t, results)
}

func TestReadPagesZeroTimeoutUsesDefault(t *testing.T) {
	fetcher := &fakeFetcher{
		pages:  map[string]Page{"u": {Title: "U"}},
		delays: map[string]time.Duration{"u": 30 * time.Millisecond},
	}
	r := New(fetcher, WithDefaultTimeout(500*time.Millisecond))

	results := r.ReadPages(context.Background(), []string{"u"}, 0)
	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
}

func TestHTTPFetcherAgainstTestServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/page":
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<html><head><title>Hello Page</title></head>
				<body><h1>Hello</h1><p>World <a href="https://example.com">link</a></p></body></html>`)
		case "/plain":
			w.Header().Set("Content-Type", "text/plain")
			fmt.Fprint(w, "just text")
		case "/hang":
			<-r.Context().Done()
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	r := New(NewHTTPFetcher())

	t.Run("html converted to markdown", func(t *testing.T) {
		results := r.ReadPages(context.Background(), []string{srv.URL + "/page"}, time.Second)
		require.Len(t, results, 1)
		require.True(t, results[0].Success, "err: %s", results[0].Err)
		assert.Equal(t, "Hello Page", results[0].Title)
		assert.Contains(t, results[0].Markdown, "# Hello")
		assert.Contains(t, results[0].Markdown, "[link](https://example.com)")
	})

	t.Run("plain text passes through", func(t *testing.T) {
		results := r.ReadPages(context.Background(), []string{srv.URL + "/plain"}, time.Second)
		require.True(t, results[0].Success)
		assert.Equal(t, "just text", results[0].Markdown)
	})

	t.Run("hanging handler times out within budget", func(t *testing.T) {
		start := time.Now()
		results := r.ReadPages(context.Background(), []string{srv.URL + "/hang"}, 100*time.Millisecond)
		require.Len(t, results, 1)
		assert.False(t, results[0].Success)
		assert.Contains(t, results[0].Err, "timeout")
		assert.Less(t, time.Since(start), time.Second)
	})

	t.Run("non-200 is a per-result failure", func(t *testing.T) {
		results := r.ReadPages(context.Background(), []string{srv.URL + "/nope"}, time.Second)
		assert.False(t, results[0].Success)
		assert.Contains(t, results[0].Err, "404")
	})
}

func TestCleanMarkdown(t *testing.T) {
	in := "a\n\n\n\n\nb   c\t\td  \n  e  "
	got := cleanMarkdown(in)
	if strings.Contains(got, "\n\n\n") {
		t.Errorf("expected collapsed newlines, got %q", got)
	}
	if strings.Contains(got, "  ") {
		t.Errorf("expected collapsed spaces, got %q", got)
	}
}
