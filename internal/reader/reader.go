// Package reader fetches batches of web pages under bounded time budgets.
// Each URL races its fetch against an independent timeout; slow or broken
// URLs produce failed results without blocking the rest of the batch.
package reader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"chatnerd/internal/logging"
)

// DefaultTimeout bounds one fetch when the caller does not supply a budget.
const DefaultTimeout = 10 * time.Second

// Page is the converted content of one fetched document.
type Page struct {
	Title    string
	Markdown string
}

// Fetcher retrieves one URL and converts it to markdown. Implementations
// must honor context cancellation.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (Page, error)
}

// Result is the outcome for one requested URL. The batch always yields one
// Result per input URL, in input order.
type Result struct {
	Success  bool   `json:"success"`
	URL      string `json:"url"`
	Title    string `json:"title,omitempty"`
	Markdown string `json:"markdown,omitempty"`
	Err      string `json:"error,omitempty"`
}

// Reader runs concurrent bounded fetches through a Fetcher.
type Reader struct {
	fetcher        Fetcher
	defaultTimeout time.Duration
}

// Option configures a Reader.
type Option func(*Reader)

// WithDefaultTimeout overrides the per-URL budget used when ReadPages is
// called with a zero timeout.
func WithDefaultTimeout(d time.Duration) Option {
	return func(r *Reader) {
		if d > 0 {
			r.defaultTimeout = d
		}
	}
}

// New builds a Reader over the given fetcher.
func New(fetcher Fetcher, opts ...Option) *Reader {
	r := &Reader{fetcher: fetcher, defaultTimeout: DefaultTimeout}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ReadPages fetches every URL concurrently, each under its own timeout.
// The call returns once all fetches have settled, so its wall time is
// bounded by one timeout, not timeout × len(urls). A zero timeout selects
// the reader default. The returned slice always has len(urls) entries in
// input order; per-URL failures are captured in the Result, never returned
// as an error.
func (r *Reader) ReadPages(ctx context.Context, urls []string, timeout time.Duration) []Result {
	if timeout <= 0 {
		timeout = r.defaultTimeout
	}

	results := make([]Result, len(urls))
	var wg sync.WaitGroup
	for i, url := range urls {
		wg.Add(1)
		go func(i int, url string) {
			defer wg.Done()
			results[i] = r.readOne(ctx, url, timeout)
		}(i, url)
	}
	wg.Wait()

	ok := 0
	for _, res := range results {
		if res.Success {
			ok++
		}
	}
	logging.Reader("fetched %d/%d pages (budget %v)", ok, len(urls), timeout)
	return results
}

func (r *Reader) readOne(ctx context.Context, url string, timeout time.Duration) Result {
	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	page, err := r.fetcher.Fetch(fetchCtx, url)
	if err != nil {
		msg := err.Error()
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(fetchCtx.Err(), context.DeadlineExceeded) {
			msg = fmt.Sprintf("timeout after %v", timeout)
		}
		logging.ReaderDebug("fetch failed: url=%s err=%s", url, msg)
		return Result{Success: false, URL: url, Err: msg}
	}

	logging.ReaderDebug("fetch ok: url=%s title=%q took=%v", url, page.Title, time.Since(start))
	return Result{Success: true, URL: url, Title: page.Title, Markdown: page.Markdown}
}
