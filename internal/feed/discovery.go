package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"tidings/internal/config"
	"tidings/internal/network"
)

const defaultDiscoveryTimeout = 15 * time.Second

// feedMIMETypes are the alternate-link content types that declare a
// feed document.
var feedMIMETypes = map[string]bool{
	"application/rss+xml":   true,
	"application/atom+xml":  true,
	"application/feed+json": true,
	"application/json":      true,
}

// probeSuffixes are the conventional feed locations tried against the
// site origin, in order.
var probeSuffixes = []string{
	"/feed",
	"/feed/",
	"/rss",
	"/rss/",
	"/rss.xml",
	"/feed.xml",
	"/atom.xml",
	"/index.xml",
	"/feed.json",
	"/.rss",
	"/blog/feed",
	"/blog/rss",
}

// Candidate is one verified feed endpoint produced by discovery.
type Candidate struct {
	URL   string
	Title string
}

// Resolver turns an arbitrary page or site URL into feed endpoints.
// Stages run in order: the URL itself as a feed, alternate links
// declared in its HTML, then conventional path probes against the
// origin. Every stage is independently fallible; candidates are only
// reported after their content parses as a feed.
type Resolver struct {
	clients *network.ClientFactory
	timeout time.Duration
}

func NewResolver(clients *network.ClientFactory, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = defaultDiscoveryTimeout
	}
	return &Resolver{clients: clients, timeout: timeout}
}

// Discover resolves the input to feed candidates. With all=false it
// stops at the first verified feed; with all=true it collects every
// candidate the stages produce. The whole resolution shares one
// timeout. ErrDiscoveryExhausted is returned only when every stage
// came up empty.
func (r *Resolver) Discover(ctx context.Context, input string, all bool) ([]Candidate, error) {
	normalized, err := NormalizeURL(input)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var found []Candidate
	seen := make(map[string]bool)
	add := func(c Candidate) {
		if !seen[c.URL] {
			seen[c.URL] = true
			found = append(found, c)
		}
	}

	// Stage 1: the input may already be a feed.
	body, finalURL, fetchErr := r.fetchBody(ctx, normalized)
	if fetchErr == nil {
		if meta, _, err := Parse(finalURL, body); err == nil {
			add(Candidate{URL: finalURL, Title: meta.Title})
			if !all {
				return found, nil
			}
		}
	}

	// Stage 2: alternate links declared in the page HTML.
	if fetchErr == nil {
		for _, href := range alternateLinks(body, finalURL) {
			if ctx.Err() != nil {
				break
			}
			if c, ok := r.verify(ctx, href); ok {
				add(c)
				if !all {
					return found, nil
				}
			}
		}
	}

	// Stage 3: conventional suffixes against the origin.
	if origin, err := originOf(normalized); err == nil {
		for _, suffix := range probeSuffixes {
			if ctx.Err() != nil {
				break
			}
			if c, ok := r.verify(ctx, origin+suffix); ok {
				add(c)
				if !all {
					return found, nil
				}
			}
		}
	}

	if len(found) == 0 {
		if ctx.Err() != nil {
			return nil, &NetworkError{URL: normalized, Err: ctx.Err()}
		}
		return nil, ErrDiscoveryExhausted
	}
	return found, nil
}

// verify fetches a candidate URL and keeps it only if it parses as a
// feed. All failures are swallowed; they just rule the candidate out.
func (r *Resolver) verify(ctx context.Context, candidateURL string) (Candidate, bool) {
	body, finalURL, err := r.fetchBody(ctx, candidateURL)
	if err != nil {
		return Candidate{}, false
	}
	meta, _, err := Parse(finalURL, body)
	if err != nil {
		return Candidate{}, false
	}
	return Candidate{URL: finalURL, Title: meta.Title}, true
}

func (r *Resolver) fetchBody(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, rawURL, err
	}
	req.Header.Set("User-Agent", config.UserAgent)

	client := r.clients.NewHTTPClient(ctx, r.timeout)
	resp, err := client.Do(req)
	if err != nil {
		return nil, rawURL, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, rawURL, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, rawURL, err
	}

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}
	return body, finalURL, nil
}

// alternateLinks scans an HTML document for feed declarations:
// <link rel="alternate"> elements with a feed content type, plus
// anchors whose target looks like a conventional feed path. Relative
// references are resolved against the page URL.
func alternateLinks(body []byte, pageURL string) []string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}

	var links []string
	seen := make(map[string]bool)
	add := func(href string) {
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		resolved := base.ResolveReference(ref).String()
		if !seen[resolved] {
			seen[resolved] = true
			links = append(links, resolved)
		}
	}

	tokenizer := html.NewTokenizer(strings.NewReader(string(body)))
	for {
		tt := tokenizer.Next()
		if tt == html.ErrorToken {
			break
		}
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}
		token := tokenizer.Token()
		switch token.Data {
		case "link":
			var rel, typ, href string
			for _, attr := range token.Attr {
				switch attr.Key {
				case "rel":
					rel = strings.ToLower(attr.Val)
				case "type":
					typ = strings.ToLower(strings.TrimSpace(attr.Val))
				case "href":
					href = attr.Val
				}
			}
			if rel == "alternate" && feedMIMETypes[typ] && href != "" {
				add(href)
			}
		case "a":
			for _, attr := range token.Attr {
				if attr.Key != "href" {
					continue
				}
				if looksLikeFeedPath(attr.Val) {
					add(attr.Val)
				}
			}
		}
	}
	return links
}

func looksLikeFeedPath(href string) bool {
	lower := strings.ToLower(href)
	for _, marker := range []string{"rss", "atom.xml", "feed.xml", "feed.json", "/feed"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// NormalizeURL prepares user input for discovery: trims whitespace,
// assumes https when no scheme is given, and rejects anything that
// does not resolve to a host.
func NormalizeURL(input string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", fmt.Errorf("empty URL")
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("parse URL %q: %w", input, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("URL %q has no host", input)
	}
	return parsed.String(), nil
}

func originOf(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("URL %q has no origin", rawURL)
	}
	return parsed.Scheme + "://" + parsed.Host, nil
}
