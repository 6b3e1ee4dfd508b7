package update_test

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"tidings/internal/config"
	"tidings/internal/network"
	"tidings/internal/update"
)

func TestIsNewer(t *testing.T) {
	cases := []struct {
		latest  string
		current string
		want    bool
	}{
		{"1.2.4", "1.2.3", true},
		{"1.2.3", "1.2.3", false},
		{"1.2.2", "1.2.3", false},
		{"2.0.0", "1.9.9", true},
		{"1.10.0", "1.9.0", true},
		{"v1.3.0", "1.2.9", true},
		{"1.3.0-beta.1", "1.2.9", true},
		{"1.2.3+build5", "1.2.3", false},
		{"", "1.0.0", false},
		{"garbage", "0.0.1", false},
	}
	for _, tc := range cases {
		t.Run(tc.latest+" vs "+tc.current, func(t *testing.T) {
			require.Equal(t, tc.want, update.IsNewer(tc.latest, tc.current))
		})
	}
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newChecker(transport roundTripperFunc) *update.Checker {
	clients := network.NewClientFactoryForTest(&http.Client{Transport: transport})
	return update.NewChecker(clients)
}

func TestChecker_Check_NewerAvailable(t *testing.T) {
	var gotURL string
	checker := newChecker(func(req *http.Request) (*http.Response, error) {
		gotURL = req.URL.String()
		body := `{"tag_name": "v99.0.0", "html_url": "https://github.com/tidings-feed/tidings/releases/tag/v99.0.0"}`
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(body)),
			Header:     make(http.Header),
			Request:    req,
		}, nil
	})

	result, err := checker.Check(context.Background())
	require.NoError(t, err)
	require.Equal(t, "https://api.github.com/repos/tidings-feed/tidings/releases/latest", gotURL)
	require.Equal(t, config.AppVersion, result.Current)
	require.Equal(t, "99.0.0", result.Latest)
	require.Equal(t, "https://github.com/tidings-feed/tidings/releases/tag/v99.0.0", result.URL)
	require.True(t, result.Available)
}

func TestChecker_Check_UpToDate(t *testing.T) {
	checker := newChecker(func(req *http.Request) (*http.Response, error) {
		body := `{"tag_name": "v` + config.AppVersion + `", "html_url": "https://github.com/tidings-feed/tidings/releases"}`
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(body)),
			Header:     make(http.Header),
			Request:    req,
		}, nil
	})

	result, err := checker.Check(context.Background())
	require.NoError(t, err)
	require.Equal(t, config.AppVersion, result.Latest)
	require.False(t, result.Available)
}

func TestChecker_Check_APIError(t *testing.T) {
	checker := newChecker(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusForbidden,
			Body:       io.NopCloser(strings.NewReader("rate limited")),
			Header:     make(http.Header),
			Request:    req,
		}, nil
	})

	_, err := checker.Check(context.Background())
	require.ErrorContains(t, err, "HTTP 403")
}
