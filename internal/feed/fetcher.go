package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tidings/internal/config"
	"tidings/internal/model"
	"tidings/internal/network"
)

const defaultFetchTimeout = 30 * time.Second

// FetchResult is the outcome of one feed retrieval. When NotModified
// is set the server confirmed the cached articles are current and
// Meta/Articles are empty. ETag and LastModified carry the validators
// for the next conditional request.
type FetchResult struct {
	NotModified  bool
	Meta         Meta
	Articles     []model.Article
	ETag         string
	LastModified string
}

// Fetcher retrieves and parses feed documents. Every fetch is bounded
// by a fixed timeout and spaced by the per-host limiter.
type Fetcher struct {
	clients *network.ClientFactory
	limiter *network.HostLimiter
	timeout time.Duration
}

func NewFetcher(clients *network.ClientFactory, limiter *network.HostLimiter, timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	return &Fetcher{clients: clients, limiter: limiter, timeout: timeout}
}

// Fetch retrieves one feed, sending the conditional-request validators
// when known. A 304 response yields a NotModified result. Transport
// failures and HTTP error statuses come back as *NetworkError, content
// that parses as no supported format as *ParseError.
func (f *Fetcher) Fetch(ctx context.Context, feedURL string, etag, lastModified *string) (FetchResult, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, feedURL); err != nil {
			return FetchResult{}, &NetworkError{URL: feedURL, Err: err}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return FetchResult{}, &NetworkError{URL: feedURL, Err: err}
	}
	req.Header.Set("User-Agent", config.UserAgent)
	if etag != nil && *etag != "" {
		req.Header.Set("If-None-Match", *etag)
	}
	if lastModified != nil && *lastModified != "" {
		req.Header.Set("If-Modified-Since", *lastModified)
	}

	client := f.clients.NewHTTPClient(ctx, f.timeout)
	resp, err := client.Do(req)
	if err != nil {
		return FetchResult{}, &NetworkError{URL: feedURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		return FetchResult{NotModified: true}, nil
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return FetchResult{}, &NetworkError{URL: feedURL, Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return FetchResult{}, &NetworkError{URL: feedURL, Err: err}
	}

	meta, articles, err := Parse(feedURL, raw)
	if err != nil {
		return FetchResult{}, err
	}

	return FetchResult{
		Meta:         meta,
		Articles:     articles,
		ETag:         strings.TrimSpace(resp.Header.Get("ETag")),
		LastModified: strings.TrimSpace(resp.Header.Get("Last-Modified")),
	}, nil
}
