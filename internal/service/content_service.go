package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Noooste/azuretls-client"
	"github.com/microcosm-cc/bluemonday"
	readability "codeberg.org/readeck/go-readability/v2"

	"tidings/internal/cache"
	"tidings/internal/config"
	"tidings/internal/logger"
	"tidings/internal/network"
)

const contentTimeout = 30 * time.Second

// ContentService fetches an article's page and extracts the readable
// main content for offline reading.
type ContentService interface {
	FetchContent(ctx context.Context, feedURL, key string) (string, error)
}

type contentService struct {
	store     *cache.Store
	clients   *network.ClientFactory
	sanitizer *bluemonday.Policy
}

func NewContentService(store *cache.Store, clients *network.ClientFactory) ContentService {
	// Sanitizer policy similar to DOMPurify. Scripts and embedded
	// widgets interfere with readability parsing.
	p := bluemonday.UGCPolicy()
	p.AllowElements("article", "section", "header", "footer", "nav", "aside", "main", "figure", "figcaption")
	p.AllowAttrs("id", "class", "lang", "dir").Globally()

	return &contentService{
		store:     store,
		clients:   clients,
		sanitizer: p,
	}
}

// FetchContent returns the article's extracted content, downloading
// and extracting it on first access. The result is stored on the
// article so later reads work offline.
func (s *contentService) FetchContent(ctx context.Context, feedURL, key string) (string, error) {
	article, ok := s.store.FindArticle(feedURL, key)
	if !ok {
		return "", ErrNotFound
	}

	if article.Content != nil && *article.Content != "" {
		return *article.Content, nil
	}

	if article.Link == nil || *article.Link == "" {
		return "", ErrInvalid
	}
	pageURL := *article.Link

	body, err := s.fetchPage(ctx, pageURL)
	if err != nil {
		return "", err
	}

	// Sanitize before extraction, the way DOMPurify precedes
	// Readability in the JS world.
	sanitized := s.sanitizer.Sanitize(string(body))

	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("parse URL failed: %w", err)
	}

	parser := readability.NewParser()
	extracted, err := parser.Parse(strings.NewReader(sanitized), parsedURL)
	if err != nil {
		return "", fmt.Errorf("parse content failed: %w", err)
	}

	var buf bytes.Buffer
	if err := extracted.RenderHTML(&buf); err != nil {
		return "", fmt.Errorf("render failed: %w", err)
	}

	content := buf.String()
	if content == "" {
		return "", ErrInvalid
	}

	s.store.SetContent(feedURL, key, content)
	return content, nil
}

// fetchPage downloads the page with the plain client, falling back to
// a browser-impersonating session when the host answers with a
// bot-wall status.
func (s *contentService) fetchPage(ctx context.Context, pageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", config.UserAgent)

	client := s.clients.NewHTTPClient(ctx, contentTimeout)
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read body failed: %w", err)
		}
		return body, nil
	case http.StatusForbidden, http.StatusTooManyRequests, http.StatusServiceUnavailable:
		logger.Debug("content fetch bot-walled, impersonating",
			"module", "service", "action", "fetch", "resource", "content", "result", "retry",
			"status_code", resp.StatusCode)
		return s.fetchImpersonated(ctx, pageURL)
	default:
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}
}

func (s *contentService) fetchImpersonated(ctx context.Context, pageURL string) ([]byte, error) {
	session := s.clients.NewAzureSession(ctx, contentTimeout)
	defer session.Close()

	headers := azuretls.OrderedHeaders{
		{"accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8"},
		{"accept-language", "en-US,en;q=0.9"},
		{"sec-ch-ua", config.ChromeSecChUa},
		{"sec-ch-ua-mobile", "?0"},
		{"sec-ch-ua-platform", `"Windows"`},
		{"sec-fetch-dest", "document"},
		{"sec-fetch-mode", "navigate"},
		{"sec-fetch-site", "none"},
		{"user-agent", config.ChromeUserAgent},
	}

	resp, err := session.Do(&azuretls.Request{
		Method:         http.MethodGet,
		Url:            pageURL,
		OrderedHeaders: headers,
	})
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d after browser retry", resp.StatusCode)
	}
	return resp.Body, nil
}
