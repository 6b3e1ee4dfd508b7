package network

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

// HostLimiter spaces requests per host so a refresh cycle hitting many
// feeds on the same server stays polite. Each host gets its own token
// bucket; distinct hosts never wait on each other.
type HostLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewHostLimiter allows one request per interval per host, with the
// given burst.
func NewHostLimiter(limit rate.Limit, burst int) *HostLimiter {
	return &HostLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
		burst:    burst,
	}
}

func (l *HostLimiter) limiterFor(host string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	limiter, ok := l.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[host] = limiter
	}
	return limiter
}

// Wait blocks until the host's limiter admits a request or the context
// expires.
func (l *HostLimiter) Wait(ctx context.Context, rawURL string) error {
	return l.limiterFor(ExtractHost(rawURL)).Wait(ctx)
}

// ExtractHost returns the lowercased hostname of a URL, or the raw
// string when it does not parse. Unparsable inputs still get a bucket.
func ExtractHost(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Hostname() == "" {
		return strings.ToLower(rawURL)
	}
	return strings.ToLower(parsed.Hostname())
}
