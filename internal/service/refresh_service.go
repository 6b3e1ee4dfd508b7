package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"tidings/internal/cache"
	"tidings/internal/config"
	"tidings/internal/feed"
	"tidings/internal/logger"
)

// RefreshOutcome is the per-feed result of one refresh cycle. Exactly
// one of NewArticles, NotModified or Err is meaningful.
type RefreshOutcome struct {
	Feed        config.Feed
	NewArticles int
	NotModified bool
	Err         error
}

// RefreshSummary reports one finished refresh cycle. Outcomes follow
// the subscription order of the config tree.
type RefreshSummary struct {
	CycleID  string
	Started  time.Time
	Duration time.Duration
	Outcomes []RefreshOutcome
}

// NewArticles returns the cycle's total of newly merged articles.
func (s RefreshSummary) NewArticles() int {
	total := 0
	for _, o := range s.Outcomes {
		total += o.NewArticles
	}
	return total
}

// Failed returns how many feeds ended the cycle with an error.
func (s RefreshSummary) Failed() int {
	failed := 0
	for _, o := range s.Outcomes {
		if o.Err != nil {
			failed++
		}
	}
	return failed
}

type RefreshService interface {
	RefreshAll(ctx context.Context) (RefreshSummary, error)
	RefreshFeed(ctx context.Context, feedURL string) (RefreshOutcome, error)
	IsRefreshing() bool
}

type refreshService struct {
	cfg     *config.Config
	store   *cache.Store
	fetcher *feed.Fetcher

	mu           sync.Mutex
	isRefreshing bool
}

func NewRefreshService(cfg *config.Config, store *cache.Store, fetcher *feed.Fetcher) RefreshService {
	return &refreshService{
		cfg:     cfg,
		store:   store,
		fetcher: fetcher,
	}
}

// RefreshAll fetches every subscribed feed concurrently and merges the
// results into the cache. A second call while a cycle is running
// returns ErrRefreshInProgress instead of starting another one. Feeds
// that fail fetch or parse are reported in the summary and leave their
// cached articles untouched; a fetch still in flight when the cycle
// deadline passes is abandoned and its eventual result discarded.
func (s *refreshService) RefreshAll(ctx context.Context) (RefreshSummary, error) {
	s.mu.Lock()
	if s.isRefreshing {
		s.mu.Unlock()
		return RefreshSummary{}, ErrRefreshInProgress
	}
	s.isRefreshing = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isRefreshing = false
		s.mu.Unlock()
	}()

	subs := s.cfg.AllFeeds()
	for _, sub := range subs {
		s.store.EnsureFeed(sub.URL, sub.Name, sub.Folder)
	}

	summary := RefreshSummary{
		CycleID: uuid.New().String(),
		Started: time.Now(),
	}
	logger.Info("refresh cycle started",
		"module", "service", "action", "refresh", "resource", "feed", "result", "ok",
		"cycle_id", summary.CycleID, "feeds", len(subs))

	cycleCtx, cancel := context.WithTimeout(ctx, s.cycleDeadline())
	defer cancel()

	// Buffered so abandoned workers can still deliver without leaking.
	outcomes := make(chan RefreshOutcome, len(subs))
	go func() {
		g := new(errgroup.Group)
		g.SetLimit(s.concurrency())
		for _, sub := range subs {
			if cycleCtx.Err() != nil {
				break
			}
			sub := sub
			g.Go(func() error {
				outcomes <- s.refreshOne(cycleCtx, sub)
				return nil
			})
		}
		g.Wait()
		close(outcomes)
	}()

	byURL := make(map[string]RefreshOutcome, len(subs))
collect:
	for len(byURL) < len(subs) {
		select {
		case outcome, ok := <-outcomes:
			if !ok {
				break collect
			}
			byURL[outcome.Feed.URL] = outcome
		case <-cycleCtx.Done():
			break collect
		}
	}
	// The deadline can fire with finished outcomes still buffered;
	// collect those instead of misreporting them as timeouts.
drain:
	for {
		select {
		case outcome, ok := <-outcomes:
			if !ok {
				break drain
			}
			byURL[outcome.Feed.URL] = outcome
		default:
			break drain
		}
	}

	for _, sub := range subs {
		outcome, ok := byURL[sub.URL]
		if !ok {
			outcome = RefreshOutcome{
				Feed: sub,
				Err:  &feed.NetworkError{URL: sub.URL, Err: cycleCtx.Err()},
			}
			s.store.RecordError(sub.URL, outcome.Err)
		}
		summary.Outcomes = append(summary.Outcomes, outcome)
	}
	summary.Duration = time.Since(summary.Started)

	logger.Info("refresh cycle finished",
		"module", "service", "action", "refresh", "resource", "feed", "result", "ok",
		"cycle_id", summary.CycleID, "new_articles", summary.NewArticles(),
		"failed", summary.Failed(), "duration_ms", summary.Duration.Milliseconds())

	// Flush on the parent context: the cycle deadline bounds fetches,
	// not the local write-back.
	if err := s.store.Flush(ctx); err != nil {
		logger.Error("cache flush failed",
			"module", "service", "action", "refresh", "resource", "feed", "result", "failed",
			"cycle_id", summary.CycleID, "error", err)
		return summary, fmt.Errorf("flush cache: %w", err)
	}
	return summary, nil
}

func (s *refreshService) IsRefreshing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRefreshing
}

// RefreshFeed fetches a single subscribed feed and merges the result.
func (s *refreshService) RefreshFeed(ctx context.Context, feedURL string) (RefreshOutcome, error) {
	sub, ok := s.cfg.FindFeed(feedURL)
	if !ok {
		return RefreshOutcome{}, fmt.Errorf("feed %s: %w", feedURL, ErrNotFound)
	}
	s.store.EnsureFeed(sub.URL, sub.Name, sub.Folder)

	outcome := s.refreshOne(ctx, sub)
	if err := s.store.Flush(ctx); err != nil {
		return outcome, fmt.Errorf("flush cache: %w", err)
	}
	if outcome.Err != nil {
		return outcome, outcome.Err
	}
	return outcome, nil
}

// refreshOne runs the fetch/merge path for one feed. Failures are
// isolated: they mark the feed's health and never propagate as worker
// errors, so one broken feed cannot end the cycle for the others.
func (s *refreshService) refreshOne(ctx context.Context, sub config.Feed) RefreshOutcome {
	outcome := RefreshOutcome{Feed: sub}

	etag, lastModified := s.store.FetchTokens(sub.URL)
	result, err := s.fetcher.Fetch(ctx, sub.URL, etag, lastModified)
	if err != nil {
		outcome.Err = err
		s.store.RecordError(sub.URL, err)
		logger.Warn("feed refresh failed",
			"module", "service", "action", "refresh", "resource", "feed", "result", "failed",
			"feed_url", sub.URL, "error", err)
		return outcome
	}

	// A fetch that finishes after the deadline passed is stale: the
	// cycle already reported this feed as timed out.
	if ctx.Err() != nil {
		outcome.Err = &feed.NetworkError{URL: sub.URL, Err: ctx.Err()}
		s.store.RecordError(sub.URL, outcome.Err)
		return outcome
	}

	if result.NotModified {
		outcome.NotModified = true
		s.store.TouchNotModified(sub.URL)
		return outcome
	}

	outcome.NewArticles = s.store.Merge(sub.URL, result)
	return outcome
}

func (s *refreshService) concurrency() int {
	if s.cfg.Fetch.Concurrency > 0 {
		return s.cfg.Fetch.Concurrency
	}
	return 10
}

func (s *refreshService) cycleDeadline() time.Duration {
	if s.cfg.Fetch.CycleDeadlineSeconds > 0 {
		return time.Duration(s.cfg.Fetch.CycleDeadlineSeconds) * time.Second
	}
	return 2 * time.Minute
}
