package service_test

import (
	"context"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"tidings/internal/config"
	"tidings/internal/feed"
	"tidings/internal/network"
	"tidings/internal/service"
)

// mapTransport serves a fixed set of URLs and 404s everything else.
func mapTransport(pages map[string]string) roundTripperFunc {
	return func(req *http.Request) (*http.Response, error) {
		body, ok := pages[req.URL.String()]
		if !ok {
			return &http.Response{
				StatusCode: http.StatusNotFound,
				Body:       io.NopCloser(strings.NewReader("not found")),
				Header:     make(http.Header),
				Request:    req,
			}, nil
		}
		return okResponse(req, body), nil
	}
}

func newFeedService(t *testing.T, transport roundTripperFunc) (*config.Config, service.FeedService) {
	t.Helper()

	cfg, err := config.LoadFrom(filepath.Join(t.TempDir(), "config.toml"))
	require.NoError(t, err)
	cfg.Folders = nil
	cfg.Feeds = nil

	store := newServiceStore(t)
	clients := network.NewClientFactoryForTest(&http.Client{Transport: transport})
	resolver := feed.NewResolver(clients, 0)
	fetcher := feed.NewFetcher(clients, nil, 0)
	refresh := service.NewRefreshService(cfg, store, fetcher)

	return cfg, service.NewFeedService(cfg, store, resolver, refresh)
}

func TestFeedService_Subscribe_DirectFeed(t *testing.T) {
	feedURL := "https://blog.example/rss"
	cfg, svc := newFeedService(t, mapTransport(map[string]string{
		feedURL: rssBody("Blog Feed", "first", "second"),
	}))

	sub, outcome, err := svc.Subscribe(context.Background(), feedURL, "", "")
	require.NoError(t, err)
	require.Equal(t, feedURL, sub.URL)
	require.Equal(t, "Blog Feed", sub.Name)
	require.NoError(t, outcome.Err)
	require.Equal(t, 2, outcome.NewArticles)

	_, ok := cfg.FindFeed(feedURL)
	require.True(t, ok)

	// The subscription survived a process restart.
	reloaded, err := config.LoadFrom(cfg.Path())
	require.NoError(t, err)
	_, ok = reloaded.FindFeed(feedURL)
	require.True(t, ok)
}

func TestFeedService_Subscribe_FolderAndTitleOverride(t *testing.T) {
	feedURL := "https://blog.example/rss"
	cfg, svc := newFeedService(t, mapTransport(map[string]string{
		feedURL: rssBody("Blog Feed", "first"),
	}))

	sub, _, err := svc.Subscribe(context.Background(), feedURL, "Tech", "My Blog")
	require.NoError(t, err)
	require.Equal(t, "My Blog", sub.Name)
	require.Equal(t, "Tech", sub.Folder)

	require.Len(t, cfg.Folders, 1)
	require.Equal(t, "Tech", cfg.Folders[0].Name)
	require.Len(t, cfg.Folders[0].Feeds, 1)
}

func TestFeedService_Subscribe_ResolvesPageToFeed(t *testing.T) {
	page := `<html><head>
		<link rel="alternate" type="application/rss+xml" href="/feed.xml">
	</head><body>hello</body></html>`
	_, svc := newFeedService(t, mapTransport(map[string]string{
		"https://blog.example":          page,
		"https://blog.example/feed.xml": rssBody("Blog Feed", "first"),
	}))

	sub, _, err := svc.Subscribe(context.Background(), "https://blog.example", "", "")
	require.NoError(t, err)
	require.Equal(t, "https://blog.example/feed.xml", sub.URL)
}

func TestFeedService_Subscribe_Duplicate(t *testing.T) {
	feedURL := "https://blog.example/rss"
	cfg, svc := newFeedService(t, mapTransport(map[string]string{
		feedURL: rssBody("Blog Feed", "first"),
	}))
	require.NoError(t, cfg.AddFeed(config.Feed{Name: "Already Here", URL: feedURL}, ""))

	_, _, err := svc.Subscribe(context.Background(), feedURL, "", "")
	require.ErrorIs(t, err, service.ErrConflict)

	var conflict *service.FeedConflictError
	require.ErrorAs(t, err, &conflict)
	require.Equal(t, "Already Here", conflict.ExistingFeed.Name)
}

func TestFeedService_Subscribe_FirstFetchFailureKeepsSubscription(t *testing.T) {
	feedURL := "https://blog.example/rss"
	body := rssBody("Blog Feed", "first")

	// The discovery fetch succeeds; the refresh fetch right after hits
	// a flaky server.
	var mu sync.Mutex
	calls := 0
	transport := func(req *http.Request) (*http.Response, error) {
		mu.Lock()
		calls++
		first := calls == 1
		mu.Unlock()
		if first {
			return okResponse(req, body), nil
		}
		return &http.Response{
			StatusCode: http.StatusInternalServerError,
			Body:       io.NopCloser(strings.NewReader("boom")),
			Header:     make(http.Header),
			Request:    req,
		}, nil
	}

	cfg, svc := newFeedService(t, transport)

	sub, outcome, err := svc.Subscribe(context.Background(), feedURL, "", "")
	require.NoError(t, err)
	require.Equal(t, feedURL, sub.URL)

	var netErr *feed.NetworkError
	require.ErrorAs(t, outcome.Err, &netErr)

	_, ok := cfg.FindFeed(feedURL)
	require.True(t, ok)
}

func TestFeedService_Subscribe_EmptyInput(t *testing.T) {
	_, svc := newFeedService(t, mapTransport(nil))
	_, _, err := svc.Subscribe(context.Background(), "   ", "", "")
	require.ErrorIs(t, err, service.ErrInvalid)
}

func TestFeedService_Subscribe_NothingDiscovered(t *testing.T) {
	_, svc := newFeedService(t, mapTransport(map[string]string{
		"https://blog.example": "<html><body>no feeds here</body></html>",
	}))
	_, _, err := svc.Subscribe(context.Background(), "https://blog.example", "", "")
	require.ErrorIs(t, err, feed.ErrDiscoveryExhausted)
}
