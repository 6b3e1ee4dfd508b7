package service

import (
	"context"
	"fmt"
	"time"

	"tidings/internal/cache"
	"tidings/internal/config"
	"tidings/internal/model"
)

// FeedStatus pairs a subscription with its cached health and counts.
type FeedStatus struct {
	Feed          config.Feed
	Unread        int
	Total         int
	LastFetchedAt *time.Time
	LastError     *string
}

// ArticleService serves the cached articles and applies local
// read-state changes. Every change that flips a read flag is queued
// for the next sync push when a queue is attached.
type ArticleService interface {
	Overview() []FeedStatus
	Articles(feedURL string, unreadOnly bool, limit int) ([]model.Article, error)
	Article(feedURL, key string) (model.Article, error)
	MarkRead(ctx context.Context, feedURL, key string, read bool) (bool, error)
	MarkAllRead(ctx context.Context, feedURL string) (int, error)
	SetStarred(feedURL, key string, starred bool) (bool, error)
}

type articleService struct {
	cfg   *config.Config
	store *cache.Store
	queue *PendingQueue
}

// NewArticleService wires the cache behind the read operations. A nil
// queue disables change tracking, for installations without a sync
// account.
func NewArticleService(cfg *config.Config, store *cache.Store, queue *PendingQueue) ArticleService {
	return &articleService{cfg: cfg, store: store, queue: queue}
}

// Overview reports every subscription in config order with its unread
// count and last fetch health.
func (s *articleService) Overview() []FeedStatus {
	unread := s.store.UnreadCounts()

	var out []FeedStatus
	for _, sub := range s.cfg.AllFeeds() {
		status := FeedStatus{Feed: sub, Unread: unread[sub.URL]}
		if meta, ok := s.store.Feed(sub.URL); ok {
			status.LastFetchedAt = meta.LastFetchedAt
			status.LastError = meta.LastError
		}
		if articles, ok := s.store.Articles(sub.URL); ok {
			status.Total = len(articles)
		}
		out = append(out, status)
	}
	return out
}

// Articles lists a feed's cached articles newest first.
func (s *articleService) Articles(feedURL string, unreadOnly bool, limit int) ([]model.Article, error) {
	articles, ok := s.store.Articles(feedURL)
	if !ok {
		return nil, fmt.Errorf("feed %s: %w", feedURL, ErrNotFound)
	}
	if unreadOnly {
		filtered := articles[:0]
		for _, a := range articles {
			if !a.Read {
				filtered = append(filtered, a)
			}
		}
		articles = filtered
	}
	if limit > 0 && len(articles) > limit {
		articles = articles[:limit]
	}
	return articles, nil
}

func (s *articleService) Article(feedURL, key string) (model.Article, error) {
	article, ok := s.store.FindArticle(feedURL, key)
	if !ok {
		return model.Article{}, fmt.Errorf("article %s in %s: %w", key, feedURL, ErrNotFound)
	}
	return article, nil
}

// MarkRead flips one article's read flag. The change is queued for
// push only when the flag actually changed, so repeated marks stay
// idempotent.
func (s *articleService) MarkRead(ctx context.Context, feedURL, key string, read bool) (bool, error) {
	if _, ok := s.store.FindArticle(feedURL, key); !ok {
		return false, fmt.Errorf("article %s in %s: %w", key, feedURL, ErrNotFound)
	}
	if !s.store.SetRead(feedURL, key, read) {
		return false, nil
	}
	if s.queue != nil {
		if err := s.queue.Enqueue(ctx, feedURL, key, read); err != nil {
			return true, fmt.Errorf("queue read-state change: %w", err)
		}
	}
	return true, nil
}

// MarkAllRead marks a whole feed read and queues one change per
// article that flipped.
func (s *articleService) MarkAllRead(ctx context.Context, feedURL string) (int, error) {
	if _, ok := s.store.Feed(feedURL); !ok {
		return 0, fmt.Errorf("feed %s: %w", feedURL, ErrNotFound)
	}
	flipped := s.store.MarkAllRead(feedURL)
	if s.queue != nil {
		for _, key := range flipped {
			if err := s.queue.Enqueue(ctx, feedURL, key, true); err != nil {
				return len(flipped), fmt.Errorf("queue read-state change: %w", err)
			}
		}
	}
	return len(flipped), nil
}

// SetStarred flips the local starred flag. Stars never sync.
func (s *articleService) SetStarred(feedURL, key string, starred bool) (bool, error) {
	if _, ok := s.store.FindArticle(feedURL, key); !ok {
		return false, fmt.Errorf("article %s in %s: %w", key, feedURL, ErrNotFound)
	}
	return s.store.SetStarred(feedURL, key, starred), nil
}
