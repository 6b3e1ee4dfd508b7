// Package cache holds the offline article arena: one entry per feed,
// each guarding its own articles and read-state. Entries are locked
// individually so concurrent refreshes of different feeds never
// serialize against each other.
package cache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"tidings/internal/feed"
	"tidings/internal/model"
	"tidings/internal/repository"
)

// Store is the in-memory arena backed by the cache repository. The
// outer lock guards only the entry map; every mutation of one feed's
// articles happens under that entry's own lock.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
	repo    repository.CacheRepository
}

type entry struct {
	mu       sync.Mutex
	feed     model.Feed
	articles []model.Article
	index    map[string]int
	dirty    bool
}

func New(repo repository.CacheRepository) *Store {
	return &Store{
		entries: make(map[string]*entry),
		repo:    repo,
	}
}

// Load replaces the arena with the persisted state. A missing or
// empty database yields an empty arena, not an error.
func (s *Store) Load(ctx context.Context) error {
	persisted, err := s.repo.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load cache: %w", err)
	}

	entries := make(map[string]*entry, len(persisted))
	for _, record := range persisted {
		e := &entry{
			feed:     record.Feed,
			articles: record.Articles,
			index:    make(map[string]int, len(record.Articles)),
		}
		for i, article := range record.Articles {
			e.index[article.Key] = i
		}
		entries[record.Feed.URL] = e
	}

	s.mu.Lock()
	s.entries = entries
	s.mu.Unlock()
	return nil
}

func (s *Store) lookup(feedURL string) (*entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[feedURL]
	return e, ok
}

// EnsureFeed creates the entry for a subscribed feed if it does not
// exist yet and keeps the config-owned fields (title, folder) current.
func (s *Store) EnsureFeed(feedURL, title, folderName string) {
	if e, ok := s.lookup(feedURL); ok {
		e.mu.Lock()
		if title != "" && e.feed.Title != title {
			e.feed.Title = title
			e.dirty = true
		}
		if e.feed.FolderName != folderName {
			e.feed.FolderName = folderName
			e.dirty = true
		}
		e.mu.Unlock()
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[feedURL]; ok {
		return
	}
	now := time.Now().UTC()
	s.entries[feedURL] = &entry{
		feed: model.Feed{
			URL:        feedURL,
			Title:      title,
			FolderName: folderName,
			CreatedAt:  now,
			UpdatedAt:  now,
		},
		index: make(map[string]int),
		dirty: true,
	}
}

// Feed returns a copy of one feed's metadata.
func (s *Store) Feed(feedURL string) (model.Feed, bool) {
	e, ok := s.lookup(feedURL)
	if !ok {
		return model.Feed{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.feed, true
}

// Feeds returns copies of all feed metadata in the arena, ordered by
// URL for determinism.
func (s *Store) Feeds() []model.Feed {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	feeds := make([]model.Feed, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		feeds = append(feeds, e.feed)
		e.mu.Unlock()
	}
	sort.Slice(feeds, func(i, j int) bool { return feeds[i].URL < feeds[j].URL })
	return feeds
}

// Articles returns a copy of one feed's articles, newest first.
func (s *Store) Articles(feedURL string) ([]model.Article, bool) {
	e, ok := s.lookup(feedURL)
	if !ok {
		return nil, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	articles := make([]model.Article, len(e.articles))
	copy(articles, e.articles)
	return articles, true
}

// FindArticle returns a copy of one article by its identity key.
func (s *Store) FindArticle(feedURL, key string) (model.Article, bool) {
	e, ok := s.lookup(feedURL)
	if !ok {
		return model.Article{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	pos, ok := e.index[key]
	if !ok {
		return model.Article{}, false
	}
	return e.articles[pos], true
}

// FetchTokens returns the stored conditional-request validators for a
// feed.
func (s *Store) FetchTokens(feedURL string) (etag, lastModified *string) {
	e, ok := s.lookup(feedURL)
	if !ok {
		return nil, nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.feed.ETag, e.feed.LastModified
}

// Merge applies one successful fetch to a feed's entry and reports how
// many articles were new. Existing articles are enriched, never
// overwritten: absent fields fill in from the fresh copy, read-state
// and everything already present stay as they are. New articles come
// in unread, inserted by descending publish time. Articles that have
// disappeared upstream are kept.
func (s *Store) Merge(feedURL string, result feed.FetchResult) int {
	e, ok := s.lookup(feedURL)
	if !ok {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	now := time.Now().UTC()
	added := 0
	resort := false

	for _, incoming := range result.Articles {
		if pos, exists := e.index[incoming.Key]; exists {
			enriched, datedNow := enrich(&e.articles[pos], incoming, now)
			if enriched {
				e.dirty = true
			}
			if datedNow {
				resort = true
			}
			continue
		}
		incoming.Read = false
		incoming.CachedAt = now
		incoming.UpdatedAt = now
		e.articles = append(e.articles, incoming)
		e.index[incoming.Key] = len(e.articles) - 1
		added++
	}

	if added > 0 || resort {
		sortArticles(e.articles)
		for i, article := range e.articles {
			e.index[article.Key] = i
		}
	}

	if result.Meta.SiteURL != "" {
		siteURL := result.Meta.SiteURL
		e.feed.SiteURL = &siteURL
	}
	if result.Meta.Description != "" {
		description := result.Meta.Description
		e.feed.Description = &description
	}
	e.feed.ETag = optional(result.ETag)
	e.feed.LastModified = optional(result.LastModified)
	e.feed.LastFetchedAt = &now
	e.feed.LastError = nil
	e.feed.UpdatedAt = now
	e.dirty = true
	return added
}

// TouchNotModified records a fetch that the server answered with "not
// modified": the cache is confirmed current, nothing else changes.
func (s *Store) TouchNotModified(feedURL string) {
	e, ok := s.lookup(feedURL)
	if !ok {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	now := time.Now().UTC()
	e.feed.LastFetchedAt = &now
	e.feed.LastError = nil
	e.feed.UpdatedAt = now
	e.dirty = true
}

// RecordError stores a fetch failure on the feed. Cached articles are
// left exactly as they were.
func (s *Store) RecordError(feedURL string, fetchErr error) {
	e, ok := s.lookup(feedURL)
	if !ok {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	now := time.Now().UTC()
	message := fetchErr.Error()
	e.feed.LastError = &message
	e.feed.LastFetchedAt = &now
	e.feed.UpdatedAt = now
	e.dirty = true
}

// SetRead flips one article's read flag and reports whether anything
// changed.
func (s *Store) SetRead(feedURL, key string, read bool) bool {
	e, ok := s.lookup(feedURL)
	if !ok {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	pos, ok := e.index[key]
	if !ok {
		return false
	}
	if e.articles[pos].Read == read {
		return false
	}
	e.articles[pos].Read = read
	e.articles[pos].UpdatedAt = time.Now().UTC()
	e.dirty = true
	return true
}

// SetStarred flips one article's starred flag and reports whether
// anything changed. Starring is local only and never queued for sync.
func (s *Store) SetStarred(feedURL, key string, starred bool) bool {
	e, ok := s.lookup(feedURL)
	if !ok {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	pos, ok := e.index[key]
	if !ok {
		return false
	}
	if e.articles[pos].Starred == starred {
		return false
	}
	e.articles[pos].Starred = starred
	e.articles[pos].UpdatedAt = time.Now().UTC()
	e.dirty = true
	return true
}

// MarkAllRead marks every unread article in a feed as read and
// returns the keys that flipped.
func (s *Store) MarkAllRead(feedURL string) []string {
	e, ok := s.lookup(feedURL)
	if !ok {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	now := time.Now().UTC()
	var flipped []string
	for i := range e.articles {
		if e.articles[i].Read {
			continue
		}
		e.articles[i].Read = true
		e.articles[i].UpdatedAt = now
		flipped = append(flipped, e.articles[i].Key)
	}
	if len(flipped) > 0 {
		e.dirty = true
	}
	return flipped
}

// MatchRemote attaches a remote article id to the local article it
// corresponds to. Matching prefers an id recorded by an earlier sync,
// then the article link, then the lowercased title. Reports whether a
// local article was found.
func (s *Store) MatchRemote(feedURL, remoteID, link, title string) bool {
	e, ok := s.lookup(feedURL)
	if !ok {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	pos := -1
	for i := range e.articles {
		if e.articles[i].RemoteID != nil && *e.articles[i].RemoteID == remoteID {
			pos = i
			break
		}
	}
	if pos < 0 && link != "" {
		for i := range e.articles {
			if e.articles[i].Link != nil && *e.articles[i].Link == link {
				pos = i
				break
			}
		}
	}
	if pos < 0 && title != "" {
		want := strings.ToLower(title)
		for i := range e.articles {
			if strings.ToLower(e.articles[i].Title) == want {
				pos = i
				break
			}
		}
	}
	if pos < 0 {
		return false
	}
	if e.articles[pos].RemoteID == nil || *e.articles[pos].RemoteID != remoteID {
		id := remoteID
		e.articles[pos].RemoteID = &id
		e.articles[pos].UpdatedAt = time.Now().UTC()
		e.dirty = true
	}
	return true
}

// ReconcileRemoteRead overwrites the read flag of every article with a
// known remote id: unread when the id is in the remote unread set,
// read otherwise. Returns how many articles flipped. Remote opinion
// wins for everything it covers; articles the remote has never
// reported stay untouched.
func (s *Store) ReconcileRemoteRead(feedURL string, unread map[string]bool) int {
	e, ok := s.lookup(feedURL)
	if !ok {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	now := time.Now().UTC()
	changed := 0
	for i := range e.articles {
		if e.articles[i].RemoteID == nil {
			continue
		}
		read := !unread[*e.articles[i].RemoteID]
		if e.articles[i].Read == read {
			continue
		}
		e.articles[i].Read = read
		e.articles[i].UpdatedAt = now
		changed++
	}
	if changed > 0 {
		e.dirty = true
	}
	return changed
}

// SetFeedSyncID records the remote subscription id for a feed.
func (s *Store) SetFeedSyncID(feedURL, syncID string) {
	e, ok := s.lookup(feedURL)
	if !ok {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.feed.SyncID != nil && *e.feed.SyncID == syncID {
		return
	}
	id := syncID
	e.feed.SyncID = &id
	e.feed.UpdatedAt = time.Now().UTC()
	e.dirty = true
}

// SetContent stores extracted full-page content on an article.
func (s *Store) SetContent(feedURL, key, content string) bool {
	e, ok := s.lookup(feedURL)
	if !ok {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	pos, ok := e.index[key]
	if !ok {
		return false
	}
	e.articles[pos].Content = &content
	e.articles[pos].UpdatedAt = time.Now().UTC()
	e.dirty = true
	return true
}

// UnreadCounts returns the number of unread articles per feed URL.
func (s *Store) UnreadCounts() map[string]int {
	s.mu.RLock()
	entries := make(map[string]*entry, len(s.entries))
	for url, e := range s.entries {
		entries[url] = e
	}
	s.mu.RUnlock()

	counts := make(map[string]int, len(entries))
	for url, e := range entries {
		e.mu.Lock()
		n := 0
		for i := range e.articles {
			if !e.articles[i].Read {
				n++
			}
		}
		counts[url] = n
		e.mu.Unlock()
	}
	return counts
}

// Flush persists every entry changed since the last flush. Entries
// that save cleanly stop being dirty; entries that fail stay dirty so
// the next flush retries them. All failures are joined into the
// returned error.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	var errs []error
	for _, e := range entries {
		e.mu.Lock()
		if !e.dirty {
			e.mu.Unlock()
			continue
		}
		saved, err := s.repo.UpsertFeed(ctx, e.feed)
		if err != nil {
			e.mu.Unlock()
			errs = append(errs, fmt.Errorf("save feed %s: %w", e.feed.URL, err))
			continue
		}
		e.feed = saved
		for i := range e.articles {
			e.articles[i].FeedID = saved.ID
		}
		if err := s.repo.SaveArticles(ctx, saved.ID, e.articles); err != nil {
			e.mu.Unlock()
			errs = append(errs, fmt.Errorf("save articles %s: %w", e.feed.URL, err))
			continue
		}
		e.dirty = false
		e.mu.Unlock()
	}
	return errors.Join(errs...)
}

// enrich fills fields absent on the cached article from a fresh copy
// of the same entry. Present fields are never replaced; the one
// exception is a placeholder title, which a real title may supersede.
// The second return reports that a publish timestamp appeared, which
// invalidates the current sort position.
func enrich(cached *model.Article, incoming model.Article, now time.Time) (changed, dated bool) {
	if cached.Link == nil && incoming.Link != nil {
		cached.Link = incoming.Link
		changed = true
	}
	if cached.Author == nil && incoming.Author != nil {
		cached.Author = incoming.Author
		changed = true
	}
	if cached.Summary == nil && incoming.Summary != nil {
		cached.Summary = incoming.Summary
		changed = true
	}
	if cached.PublishedAt == nil && incoming.PublishedAt != nil {
		cached.PublishedAt = incoming.PublishedAt
		changed = true
		dated = true
	}
	if cached.Title == "Untitled" && incoming.Title != "" && incoming.Title != "Untitled" {
		cached.Title = incoming.Title
		changed = true
	}
	if changed {
		cached.UpdatedAt = now
	}
	return changed, dated
}

func sortArticles(articles []model.Article) {
	sort.SliceStable(articles, func(i, j int) bool {
		return sortTime(articles[i]).After(sortTime(articles[j]))
	})
}

func sortTime(a model.Article) time.Time {
	if a.PublishedAt != nil {
		return *a.PublishedAt
	}
	return a.CachedAt
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
