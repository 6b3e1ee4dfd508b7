package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"tidings/internal/cache"
	"tidings/internal/feed"
	"tidings/internal/model"
	"tidings/internal/repository"
	"tidings/internal/repository/mock"
	"tidings/internal/repository/testutil"
)

const feedURL = "https://example.com/rss"

func newStore(t *testing.T) *cache.Store {
	t.Helper()
	repo := repository.NewCacheRepository(testutil.NewTestDB(t))
	store := cache.New(repo)
	require.NoError(t, store.Load(context.Background()))
	store.EnsureFeed(feedURL, "Example", "Tech")
	return store
}

func timeAt(v string) *time.Time {
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		panic(err)
	}
	t = t.UTC()
	return &t
}

func strPtr(v string) *string {
	return &v
}

func article(key, title string, published *time.Time) model.Article {
	return model.Article{
		Key:         key,
		Title:       title,
		Link:        strPtr("https://example.com/" + key),
		Summary:     strPtr("summary of " + key),
		PublishedAt: published,
	}
}

func TestStore_Merge_IdempotentNoDuplicates(t *testing.T) {
	store := newStore(t)
	result := feed.FetchResult{
		Articles: []model.Article{
			article("a", "First", timeAt("2026-02-01T10:00:00Z")),
			article("b", "Second", timeAt("2026-01-15T10:00:00Z")),
		},
	}

	require.Equal(t, 2, store.Merge(feedURL, result))
	require.Equal(t, 0, store.Merge(feedURL, result))

	articles, ok := store.Articles(feedURL)
	require.True(t, ok)
	require.Len(t, articles, 2)
}

func TestStore_Merge_OrdersByPublishedDescending(t *testing.T) {
	store := newStore(t)
	store.Merge(feedURL, feed.FetchResult{
		Articles: []model.Article{
			article("old", "Old", timeAt("2026-01-15T10:00:00Z")),
			article("new", "New", timeAt("2026-02-01T10:00:00Z")),
		},
	})

	articles, _ := store.Articles(feedURL)
	require.Equal(t, "new", articles[0].Key)
	require.Equal(t, "old", articles[1].Key)

	// An undated article sorts by its cache time, which is now and
	// therefore newest.
	store.Merge(feedURL, feed.FetchResult{
		Articles: []model.Article{article("undated", "Undated", nil)},
	})
	articles, _ = store.Articles(feedURL)
	require.Equal(t, "undated", articles[0].Key)
	require.False(t, articles[0].CachedAt.IsZero())
}

func TestStore_Merge_NewArticlesDefaultUnread(t *testing.T) {
	store := newStore(t)
	incoming := article("a", "First", nil)
	incoming.Read = true // upstream flags must not leak into local state
	store.Merge(feedURL, feed.FetchResult{Articles: []model.Article{incoming}})

	got, ok := store.FindArticle(feedURL, "a")
	require.True(t, ok)
	require.False(t, got.Read)
}

func TestStore_Merge_ReadStateSurvivesRefetch(t *testing.T) {
	store := newStore(t)
	result := feed.FetchResult{Articles: []model.Article{article("a", "First", nil)}}
	store.Merge(feedURL, result)

	require.True(t, store.SetRead(feedURL, "a", true))
	store.Merge(feedURL, result)

	got, _ := store.FindArticle(feedURL, "a")
	require.True(t, got.Read)
}

func TestStore_Merge_EnrichesAbsentFieldsOnly(t *testing.T) {
	store := newStore(t)
	bare := model.Article{Key: "a", Title: "Untitled"}
	store.Merge(feedURL, feed.FetchResult{Articles: []model.Article{bare}})

	full := article("a", "Real Title", timeAt("2026-02-01T10:00:00Z"))
	full.Author = strPtr("Jo")
	store.Merge(feedURL, feed.FetchResult{Articles: []model.Article{full}})

	got, _ := store.FindArticle(feedURL, "a")
	require.Equal(t, "Real Title", got.Title)
	require.Equal(t, "https://example.com/a", *got.Link)
	require.Equal(t, "Jo", *got.Author)
	require.Equal(t, "summary of a", *got.Summary)
	require.Equal(t, *timeAt("2026-02-01T10:00:00Z"), *got.PublishedAt)

	// A later fetch with different values must not clobber what is
	// already present.
	altered := article("a", "Changed Title", timeAt("2027-01-01T00:00:00Z"))
	altered.Summary = strPtr("different")
	store.Merge(feedURL, feed.FetchResult{Articles: []model.Article{altered}})

	got, _ = store.FindArticle(feedURL, "a")
	require.Equal(t, "Real Title", got.Title)
	require.Equal(t, "summary of a", *got.Summary)
	require.Equal(t, *timeAt("2026-02-01T10:00:00Z"), *got.PublishedAt)
}

func TestStore_Merge_EnrichedDateResorts(t *testing.T) {
	store := newStore(t)
	store.Merge(feedURL, feed.FetchResult{
		Articles: []model.Article{
			article("dated", "Dated", timeAt("2026-02-01T10:00:00Z")),
			{Key: "late", Title: "Late"},
		},
	})

	// Undated article sits first on cache time.
	articles, _ := store.Articles(feedURL)
	require.Equal(t, "late", articles[0].Key)

	// Upstream later supplies its real (older) publish time; the entry
	// must move to its chronological place.
	store.Merge(feedURL, feed.FetchResult{
		Articles: []model.Article{article("late", "Late", timeAt("2026-01-01T10:00:00Z"))},
	})
	articles, _ = store.Articles(feedURL)
	require.Equal(t, "dated", articles[0].Key)
	require.Equal(t, "late", articles[1].Key)
}

func TestStore_Merge_VanishedArticlesKept(t *testing.T) {
	store := newStore(t)
	store.Merge(feedURL, feed.FetchResult{
		Articles: []model.Article{
			article("a", "First", timeAt("2026-02-01T10:00:00Z")),
			article("b", "Second", timeAt("2026-01-15T10:00:00Z")),
		},
	})

	// Upstream dropped "b"; offline history keeps it.
	store.Merge(feedURL, feed.FetchResult{
		Articles: []model.Article{article("a", "First", timeAt("2026-02-01T10:00:00Z"))},
	})

	articles, _ := store.Articles(feedURL)
	require.Len(t, articles, 2)
}

func TestStore_Merge_UpdatesFeedMetadata(t *testing.T) {
	store := newStore(t)
	store.Merge(feedURL, feed.FetchResult{
		Meta:         feed.Meta{SiteURL: "https://example.com", Description: "Site"},
		ETag:         `"v1"`,
		LastModified: "Mon, 02 Jan 2006 15:04:05 GMT",
	})

	etag, lastModified := store.FetchTokens(feedURL)
	require.Equal(t, `"v1"`, *etag)
	require.Equal(t, "Mon, 02 Jan 2006 15:04:05 GMT", *lastModified)

	meta, ok := store.Feed(feedURL)
	require.True(t, ok)
	require.Equal(t, "https://example.com", *meta.SiteURL)
	require.NotNil(t, meta.LastFetchedAt)
	require.Nil(t, meta.LastError)
}

func TestStore_RecordError_KeepsArticles(t *testing.T) {
	store := newStore(t)
	store.Merge(feedURL, feed.FetchResult{
		Articles: []model.Article{article("a", "First", nil)},
	})

	store.RecordError(feedURL, errors.New("connection refused"))

	meta, _ := store.Feed(feedURL)
	require.NotNil(t, meta.LastError)
	require.Contains(t, *meta.LastError, "connection refused")

	articles, _ := store.Articles(feedURL)
	require.Len(t, articles, 1)

	// The next good fetch clears the error.
	store.TouchNotModified(feedURL)
	meta, _ = store.Feed(feedURL)
	require.Nil(t, meta.LastError)
}

func TestStore_MarkAllRead(t *testing.T) {
	store := newStore(t)
	store.Merge(feedURL, feed.FetchResult{
		Articles: []model.Article{
			article("a", "First", timeAt("2026-02-01T10:00:00Z")),
			article("b", "Second", timeAt("2026-01-15T10:00:00Z")),
		},
	})
	require.True(t, store.SetRead(feedURL, "a", true))

	flipped := store.MarkAllRead(feedURL)
	require.Equal(t, []string{"b"}, flipped)
	require.Empty(t, store.MarkAllRead(feedURL))

	counts := store.UnreadCounts()
	require.Equal(t, 0, counts[feedURL])
}

func TestStore_SetRead_ReportsChange(t *testing.T) {
	store := newStore(t)
	store.Merge(feedURL, feed.FetchResult{Articles: []model.Article{article("a", "First", nil)}})

	require.True(t, store.SetRead(feedURL, "a", true))
	require.False(t, store.SetRead(feedURL, "a", true))
	require.True(t, store.SetRead(feedURL, "a", false))
	require.False(t, store.SetRead(feedURL, "nope", true))
}

func TestStore_SetStarred_ReportsChange(t *testing.T) {
	store := newStore(t)
	store.Merge(feedURL, feed.FetchResult{Articles: []model.Article{article("a", "First", nil)}})

	require.True(t, store.SetStarred(feedURL, "a", true))
	require.False(t, store.SetStarred(feedURL, "a", true))

	got, ok := store.FindArticle(feedURL, "a")
	require.True(t, ok)
	require.True(t, got.Starred)

	// A refetch of the same entry leaves the star alone.
	store.Merge(feedURL, feed.FetchResult{Articles: []model.Article{article("a", "First", nil)}})
	got, _ = store.FindArticle(feedURL, "a")
	require.True(t, got.Starred)

	require.True(t, store.SetStarred(feedURL, "a", false))
	require.False(t, store.SetStarred(feedURL, "nope", true))
}

func TestStore_MatchRemote(t *testing.T) {
	store := newStore(t)
	store.Merge(feedURL, feed.FetchResult{
		Articles: []model.Article{
			article("a", "First Post", nil),
			{Key: "b", Title: "Linkless Piece"},
		},
	})

	// By link.
	require.True(t, store.MatchRemote(feedURL, "item-1", "https://example.com/a", "other title"))
	got, _ := store.FindArticle(feedURL, "a")
	require.Equal(t, "item-1", *got.RemoteID)

	// By case-insensitive title when no link matches.
	require.True(t, store.MatchRemote(feedURL, "item-2", "https://elsewhere.test/x", "LINKLESS PIECE"))
	got, _ = store.FindArticle(feedURL, "b")
	require.Equal(t, "item-2", *got.RemoteID)

	// By previously recorded id even when link and title changed.
	require.True(t, store.MatchRemote(feedURL, "item-1", "", ""))

	require.False(t, store.MatchRemote(feedURL, "item-9", "https://nowhere.test/y", "No Such Article"))
}

func TestStore_ReconcileRemoteRead(t *testing.T) {
	store := newStore(t)
	store.Merge(feedURL, feed.FetchResult{
		Articles: []model.Article{
			article("a", "First", nil),
			article("b", "Second", nil),
			article("c", "Local Only", nil),
		},
	})
	store.MatchRemote(feedURL, "item-a", "https://example.com/a", "")
	store.MatchRemote(feedURL, "item-b", "https://example.com/b", "")
	store.SetRead(feedURL, "a", true)

	// Remote says item-a is unread and item-b is read: both local
	// flags flip, the unmatched article keeps its state.
	changed := store.ReconcileRemoteRead(feedURL, map[string]bool{"item-a": true})
	require.Equal(t, 2, changed)

	a, _ := store.FindArticle(feedURL, "a")
	b, _ := store.FindArticle(feedURL, "b")
	c, _ := store.FindArticle(feedURL, "c")
	require.False(t, a.Read)
	require.True(t, b.Read)
	require.False(t, c.Read)
}

func TestStore_FlushAndReload(t *testing.T) {
	database := testutil.NewTestDB(t)
	repo := repository.NewCacheRepository(database)

	store := cache.New(repo)
	require.NoError(t, store.Load(context.Background()))
	store.EnsureFeed(feedURL, "Example", "Tech")
	store.Merge(feedURL, feed.FetchResult{
		Meta: feed.Meta{SiteURL: "https://example.com"},
		ETag: `"v1"`,
		Articles: []model.Article{
			article("a", "First", timeAt("2026-02-01T10:00:00Z")),
			article("b", "Second", timeAt("2026-01-15T10:00:00Z")),
		},
	})
	store.SetRead(feedURL, "b", true)
	store.SetFeedSyncID(feedURL, "feed/42")
	require.NoError(t, store.Flush(context.Background()))

	reloaded := cache.New(repo)
	require.NoError(t, reloaded.Load(context.Background()))

	meta, ok := reloaded.Feed(feedURL)
	require.True(t, ok)
	require.Equal(t, "Example", meta.Title)
	require.Equal(t, `"v1"`, *meta.ETag)
	require.Equal(t, "feed/42", *meta.SyncID)

	articles, ok := reloaded.Articles(feedURL)
	require.True(t, ok)
	require.Len(t, articles, 2)
	require.Equal(t, "a", articles[0].Key)
	require.False(t, articles[0].Read)
	require.True(t, articles[1].Read)
}

func TestStore_Flush_RetriesFailedEntries(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mock.NewMockCacheRepository(ctrl)
	repo.EXPECT().LoadAll(gomock.Any()).Return(nil, nil)

	saved := model.Feed{ID: 7, URL: feedURL, Title: "Example"}
	gomock.InOrder(
		repo.EXPECT().UpsertFeed(gomock.Any(), gomock.Any()).Return(model.Feed{}, errors.New("disk full")),
		repo.EXPECT().UpsertFeed(gomock.Any(), gomock.Any()).Return(saved, nil),
	)
	repo.EXPECT().SaveArticles(gomock.Any(), int64(7), gomock.Any()).Return(nil)

	store := cache.New(repo)
	require.NoError(t, store.Load(context.Background()))
	store.EnsureFeed(feedURL, "Example", "")
	store.Merge(feedURL, feed.FetchResult{Articles: []model.Article{article("a", "First", nil)}})

	err := store.Flush(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "disk full")

	// The entry stays dirty, so the next flush saves it.
	require.NoError(t, store.Flush(context.Background()))

	// Clean entries are skipped entirely afterwards.
	require.NoError(t, store.Flush(context.Background()))
}

func TestStore_UnknownFeedIsNoop(t *testing.T) {
	store := newStore(t)
	require.Equal(t, 0, store.Merge("https://unknown.test/rss", feed.FetchResult{
		Articles: []model.Article{article("a", "First", nil)},
	}))
	_, ok := store.Articles("https://unknown.test/rss")
	require.False(t, ok)
	require.False(t, store.SetRead("https://unknown.test/rss", "a", true))
}
