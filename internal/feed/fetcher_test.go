package feed_test

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"tidings/internal/feed"
	"tidings/internal/network"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newTestFetcher(transport roundTripperFunc) *feed.Fetcher {
	client := &http.Client{Transport: transport}
	return feed.NewFetcher(network.NewClientFactoryForTest(client), nil, 0)
}

func TestFetcher_Fetch_Success(t *testing.T) {
	feedURL := "https://example.com/rss"
	fetcher := newTestFetcher(func(req *http.Request) (*http.Response, error) {
		require.Equal(t, feedURL, req.URL.String())
		require.Empty(t, req.Header.Get("If-None-Match"))
		require.Empty(t, req.Header.Get("If-Modified-Since"))
		header := make(http.Header)
		header.Set("ETag", `"abc123"`)
		header.Set("Last-Modified", "Mon, 02 Jan 2006 15:04:05 GMT")
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(sampleRSS)),
			Header:     header,
			Request:    req,
		}, nil
	})

	result, err := fetcher.Fetch(context.Background(), feedURL, nil, nil)
	require.NoError(t, err)
	require.False(t, result.NotModified)
	require.Equal(t, "Example Feed", result.Meta.Title)
	require.Len(t, result.Articles, 2)
	require.Equal(t, `"abc123"`, result.ETag)
	require.Equal(t, "Mon, 02 Jan 2006 15:04:05 GMT", result.LastModified)
}

func TestFetcher_Fetch_SendsValidators(t *testing.T) {
	etag := `"abc123"`
	lastModified := "Mon, 02 Jan 2006 15:04:05 GMT"

	fetcher := newTestFetcher(func(req *http.Request) (*http.Response, error) {
		require.Equal(t, etag, req.Header.Get("If-None-Match"))
		require.Equal(t, lastModified, req.Header.Get("If-Modified-Since"))
		return &http.Response{
			StatusCode: http.StatusNotModified,
			Body:       io.NopCloser(strings.NewReader("")),
			Request:    req,
		}, nil
	})

	result, err := fetcher.Fetch(context.Background(), "https://example.com/rss", &etag, &lastModified)
	require.NoError(t, err)
	require.True(t, result.NotModified)
	require.Empty(t, result.Articles)
}

func TestFetcher_Fetch_HTTPError(t *testing.T) {
	fetcher := newTestFetcher(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusInternalServerError,
			Body:       io.NopCloser(strings.NewReader("boom")),
			Request:    req,
		}, nil
	})

	_, err := fetcher.Fetch(context.Background(), "https://example.com/rss", nil, nil)
	require.Error(t, err)

	var netErr *feed.NetworkError
	require.ErrorAs(t, err, &netErr)
	require.Equal(t, "https://example.com/rss", netErr.URL)
	require.Contains(t, netErr.Error(), "500")
}

func TestFetcher_Fetch_NotAFeed(t *testing.T) {
	fetcher := newTestFetcher(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader("<html><body>welcome</body></html>")),
			Request:    req,
		}, nil
	})

	_, err := fetcher.Fetch(context.Background(), "https://example.com/rss", nil, nil)
	require.Error(t, err)

	var parseErr *feed.ParseError
	require.ErrorAs(t, err, &parseErr)
}

func TestFetcher_Fetch_SetsUserAgent(t *testing.T) {
	fetcher := newTestFetcher(func(req *http.Request) (*http.Response, error) {
		require.Contains(t, req.Header.Get("User-Agent"), "tidings/")
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(sampleRSS)),
			Request:    req,
		}, nil
	})

	_, err := fetcher.Fetch(context.Background(), "https://example.com/rss", nil, nil)
	require.NoError(t, err)
}

func TestFetcher_Fetch_EmptyValidatorsNotSent(t *testing.T) {
	empty := ""
	fetcher := newTestFetcher(func(req *http.Request) (*http.Response, error) {
		_, hasETag := req.Header["If-None-Match"]
		_, hasModified := req.Header["If-Modified-Since"]
		require.False(t, hasETag)
		require.False(t, hasModified)
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(sampleRSS)),
			Request:    req,
		}, nil
	})

	_, err := fetcher.Fetch(context.Background(), "https://example.com/rss", &empty, &empty)
	require.NoError(t, err)
}
