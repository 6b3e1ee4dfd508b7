package network_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"tidings/internal/network"
)

func TestExtractHost(t *testing.T) {
	require.Equal(t, "example.com", network.ExtractHost("https://example.com/feed.xml"))
	require.Equal(t, "example.com", network.ExtractHost("https://EXAMPLE.com:8443/rss"))
	require.Equal(t, "not a url", network.ExtractHost("not a url"))
}

func TestHostLimiter_DistinctHostsDoNotBlock(t *testing.T) {
	limiter := network.NewHostLimiter(rate.Every(time.Hour), 1)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// One token per host: two different hosts must both pass immediately.
	require.NoError(t, limiter.Wait(ctx, "https://a.example.com/feed"))
	require.NoError(t, limiter.Wait(ctx, "https://b.example.com/feed"))
}

func TestHostLimiter_SameHostIsSpaced(t *testing.T) {
	limiter := network.NewHostLimiter(rate.Every(time.Hour), 1)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	require.NoError(t, limiter.Wait(ctx, "https://a.example.com/feed"))
	// A second request against the same host has no token left and
	// must fail once the context expires rather than waiting an hour.
	err := limiter.Wait(ctx, "https://a.example.com/other")
	require.Error(t, err)
}
