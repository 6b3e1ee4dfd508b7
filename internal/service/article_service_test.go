package service_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tidings/internal/cache"
	"tidings/internal/config"
	"tidings/internal/feed"
	"tidings/internal/model"
	"tidings/internal/repository"
	"tidings/internal/repository/testutil"
	"tidings/internal/service"
)

type articleHarness struct {
	cfg   *config.Config
	store *cache.Store
	queue *service.PendingQueue
	svc   service.ArticleService
}

func newArticleHarness(t *testing.T) *articleHarness {
	t.Helper()

	cfg, err := config.LoadFrom(filepath.Join(t.TempDir(), "config.toml"))
	require.NoError(t, err)
	cfg.Folders = nil
	cfg.Feeds = nil

	db := testutil.NewTestDB(t)
	store := cache.New(repository.NewCacheRepository(db))
	require.NoError(t, store.Load(context.Background()))
	queue := service.NewPendingQueue(repository.NewSyncRepository(db))

	return &articleHarness{
		cfg:   cfg,
		store: store,
		queue: queue,
		svc:   service.NewArticleService(cfg, store, queue),
	}
}

func (h *articleHarness) seed(t *testing.T, feedURL, name, folder string, articles ...model.Article) {
	t.Helper()
	require.NoError(t, h.cfg.AddFeed(config.Feed{Name: name, URL: feedURL}, folder))
	h.store.EnsureFeed(feedURL, name, folder)
	if len(articles) > 0 {
		h.store.Merge(feedURL, feed.FetchResult{Meta: feed.Meta{Title: name}, Articles: articles})
	}
}

func (h *articleHarness) pending(t *testing.T) []model.PendingChange {
	t.Helper()
	rows, err := h.queue.Pending(context.Background())
	require.NoError(t, err)
	return rows
}

func datedArticle(key, title string, published time.Time) model.Article {
	return model.Article{Key: key, Title: title, PublishedAt: &published}
}

func TestArticleService_Overview(t *testing.T) {
	h := newArticleHarness(t)
	base := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

	h.seed(t, "https://alpha.example/rss", "Alpha", "News",
		datedArticle("a1", "First", base),
		datedArticle("a2", "Second", base.Add(time.Hour)),
	)
	h.seed(t, "https://beta.example/rss", "Beta", "",
		datedArticle("b1", "Lone", base),
	)
	h.store.SetRead("https://alpha.example/rss", "a1", true)

	statuses := h.svc.Overview()
	require.Len(t, statuses, 2)

	require.Equal(t, "Alpha", statuses[0].Feed.Name)
	require.Equal(t, 1, statuses[0].Unread)
	require.Equal(t, 2, statuses[0].Total)
	require.NotNil(t, statuses[0].LastFetchedAt)
	require.Nil(t, statuses[0].LastError)

	require.Equal(t, "Beta", statuses[1].Feed.Name)
	require.Equal(t, 1, statuses[1].Unread)
	require.Equal(t, 1, statuses[1].Total)
}

func TestArticleService_Articles_FilterAndLimit(t *testing.T) {
	h := newArticleHarness(t)
	feedURL := "https://alpha.example/rss"
	base := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

	h.seed(t, feedURL, "Alpha", "",
		datedArticle("old", "Oldest", base),
		datedArticle("mid", "Middle", base.Add(time.Hour)),
		datedArticle("new", "Newest", base.Add(2*time.Hour)),
	)
	h.store.SetRead(feedURL, "mid", true)

	all, err := h.svc.Articles(feedURL, false, 0)
	require.NoError(t, err)
	require.Equal(t, []string{"new", "mid", "old"}, articleKeys(all))

	unread, err := h.svc.Articles(feedURL, true, 0)
	require.NoError(t, err)
	require.Equal(t, []string{"new", "old"}, articleKeys(unread))

	limited, err := h.svc.Articles(feedURL, false, 2)
	require.NoError(t, err)
	require.Equal(t, []string{"new", "mid"}, articleKeys(limited))

	_, err = h.svc.Articles("https://nope.example/rss", false, 0)
	require.ErrorIs(t, err, service.ErrNotFound)
}

func articleKeys(articles []model.Article) []string {
	keys := make([]string, len(articles))
	for i, a := range articles {
		keys[i] = a.Key
	}
	return keys
}

func TestArticleService_MarkRead_QueuesOnlyOnChange(t *testing.T) {
	h := newArticleHarness(t)
	feedURL := "https://alpha.example/rss"
	h.seed(t, feedURL, "Alpha", "",
		datedArticle("a1", "First", time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)),
	)
	ctx := context.Background()

	changed, err := h.svc.MarkRead(ctx, feedURL, "a1", true)
	require.NoError(t, err)
	require.True(t, changed)

	// Marking an already-read article queues nothing.
	changed, err = h.svc.MarkRead(ctx, feedURL, "a1", true)
	require.NoError(t, err)
	require.False(t, changed)

	rows := h.pending(t)
	require.Len(t, rows, 1)
	require.Equal(t, feedURL, rows[0].FeedURL)
	require.Equal(t, "a1", rows[0].ArticleKey)
	require.True(t, rows[0].Read)

	changed, err = h.svc.MarkRead(ctx, feedURL, "a1", false)
	require.NoError(t, err)
	require.True(t, changed)

	rows = h.pending(t)
	require.Len(t, rows, 2)
	require.False(t, rows[1].Read)

	article, err := h.svc.Article(feedURL, "a1")
	require.NoError(t, err)
	require.False(t, article.Read)

	_, err = h.svc.MarkRead(ctx, feedURL, "nope", true)
	require.ErrorIs(t, err, service.ErrNotFound)
}

func TestArticleService_MarkAllRead(t *testing.T) {
	h := newArticleHarness(t)
	feedURL := "https://alpha.example/rss"
	base := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

	h.seed(t, feedURL, "Alpha", "",
		datedArticle("a1", "First", base),
		datedArticle("a2", "Second", base.Add(time.Hour)),
		datedArticle("a3", "Third", base.Add(2*time.Hour)),
	)
	h.store.SetRead(feedURL, "a2", true)
	ctx := context.Background()

	count, err := h.svc.MarkAllRead(ctx, feedURL)
	require.NoError(t, err)
	require.Equal(t, 2, count)

	rows := h.pending(t)
	require.Len(t, rows, 2)
	queued := map[string]bool{}
	for _, row := range rows {
		require.True(t, row.Read)
		queued[row.ArticleKey] = true
	}
	require.True(t, queued["a1"])
	require.True(t, queued["a3"])

	// A second pass finds nothing left to flip.
	count, err = h.svc.MarkAllRead(ctx, feedURL)
	require.NoError(t, err)
	require.Zero(t, count)
	require.Len(t, h.pending(t), 2)

	_, err = h.svc.MarkAllRead(ctx, "https://nope.example/rss")
	require.ErrorIs(t, err, service.ErrNotFound)
}

func TestArticleService_SetStarred_NeverQueues(t *testing.T) {
	h := newArticleHarness(t)
	feedURL := "https://alpha.example/rss"
	h.seed(t, feedURL, "Alpha", "",
		datedArticle("a1", "First", time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)),
	)

	changed, err := h.svc.SetStarred(feedURL, "a1", true)
	require.NoError(t, err)
	require.True(t, changed)

	article, err := h.svc.Article(feedURL, "a1")
	require.NoError(t, err)
	require.True(t, article.Starred)

	changed, err = h.svc.SetStarred(feedURL, "a1", true)
	require.NoError(t, err)
	require.False(t, changed)

	require.Empty(t, h.pending(t))

	_, err = h.svc.SetStarred(feedURL, "nope", true)
	require.ErrorIs(t, err, service.ErrNotFound)
}

func TestArticleService_NilQueue(t *testing.T) {
	h := newArticleHarness(t)
	feedURL := "https://alpha.example/rss"
	h.seed(t, feedURL, "Alpha", "",
		datedArticle("a1", "First", time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)),
	)
	svc := service.NewArticleService(h.cfg, h.store, nil)

	changed, err := svc.MarkRead(context.Background(), feedURL, "a1", true)
	require.NoError(t, err)
	require.True(t, changed)

	article, err := svc.Article(feedURL, "a1")
	require.NoError(t, err)
	require.True(t, article.Read)
	require.Empty(t, h.pending(t))
}
