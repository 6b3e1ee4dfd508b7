package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"tidings/internal/cache"
	"tidings/internal/config"
	"tidings/internal/feed"
)

// FeedService manages subscriptions: resolving user input to a feed
// endpoint and adding it to the config tree.
type FeedService interface {
	Discover(ctx context.Context, input string) ([]feed.Candidate, error)
	Subscribe(ctx context.Context, input, folderName, titleOverride string) (config.Feed, RefreshOutcome, error)
}

type feedService struct {
	cfg      *config.Config
	store    *cache.Store
	resolver *feed.Resolver
	refresh  RefreshService
}

func NewFeedService(cfg *config.Config, store *cache.Store, resolver *feed.Resolver, refresh RefreshService) FeedService {
	return &feedService{
		cfg:      cfg,
		store:    store,
		resolver: resolver,
		refresh:  refresh,
	}
}

// Discover lists every verified feed endpoint reachable from the
// input, for the caller to choose from.
func (s *feedService) Discover(ctx context.Context, input string) ([]feed.Candidate, error) {
	return s.resolver.Discover(ctx, input, true)
}

// Subscribe resolves the input to its first feed endpoint, adds it to
// the config and fetches it once. The subscription sticks even when
// that first fetch fails; the fetch error travels in the returned
// outcome.
func (s *feedService) Subscribe(ctx context.Context, input, folderName, titleOverride string) (config.Feed, RefreshOutcome, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return config.Feed{}, RefreshOutcome{}, ErrInvalid
	}

	candidates, err := s.resolver.Discover(ctx, trimmed, false)
	if err != nil {
		return config.Feed{}, RefreshOutcome{}, err
	}
	candidate := candidates[0]

	if existing, ok := s.cfg.FindFeed(candidate.URL); ok {
		return config.Feed{}, RefreshOutcome{}, &FeedConflictError{ExistingFeed: existing}
	}

	sub := config.Feed{
		Name: subscriptionName(titleOverride, candidate),
		URL:  candidate.URL,
	}
	if err := s.cfg.AddFeed(sub, folderName); err != nil {
		return config.Feed{}, RefreshOutcome{}, err
	}
	if err := s.cfg.Save(); err != nil {
		return config.Feed{}, RefreshOutcome{}, fmt.Errorf("save config: %w", err)
	}
	sub.Folder = folderName
	s.store.EnsureFeed(sub.URL, sub.Name, folderName)

	// A failed first fetch does not undo the subscription; the error
	// travels in the outcome. Only infrastructure failures propagate.
	outcome, err := s.refresh.RefreshFeed(ctx, sub.URL)
	if err != nil && outcome.Err == nil {
		return sub, outcome, err
	}
	return sub, outcome, nil
}

func subscriptionName(titleOverride string, candidate feed.Candidate) string {
	if titleOverride != "" {
		return titleOverride
	}
	if candidate.Title != "" {
		return candidate.Title
	}
	if parsed, err := url.Parse(candidate.URL); err == nil && parsed.Host != "" {
		return parsed.Host
	}
	return candidate.URL
}
