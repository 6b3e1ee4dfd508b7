// Package testutil provides database fixtures for repository tests.
package testutil

import (
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"tidings/internal/db"
	"tidings/internal/model"
	"tidings/internal/snowflake"
)

var snowflakeOnce sync.Once

// NewTestDB opens a migrated SQLite database in a per-test temp dir.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()
	snowflakeOnce.Do(func() {
		if err := snowflake.Init(1); err != nil {
			t.Fatalf("init snowflake: %v", err)
		}
	})

	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })
	return database
}

// SeedFeed inserts a feed row and returns its id.
func SeedFeed(t *testing.T, database *sql.DB, feed model.Feed) int64 {
	t.Helper()
	id := snowflake.NextID()
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := database.Exec(`
		INSERT INTO feeds (id, url, title, folder_name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id, feed.URL, feed.Title, feed.FolderName, now, now,
	)
	if err != nil {
		t.Fatalf("seed feed: %v", err)
	}
	return id
}

// SeedArticle inserts an article row and returns its id.
func SeedArticle(t *testing.T, database *sql.DB, article model.Article) int64 {
	t.Helper()
	id := snowflake.NextID()
	now := time.Now().UTC()
	var publishedAt interface{}
	if article.PublishedAt != nil {
		publishedAt = article.PublishedAt.UTC().Format(time.RFC3339)
	}
	cachedAt := article.CachedAt
	if cachedAt.IsZero() {
		cachedAt = now
	}
	_, err := database.Exec(`
		INSERT INTO articles (id, feed_id, key, title, published_at, read, starred, cached_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, article.FeedID, article.Key, article.Title, publishedAt,
		article.Read, article.Starred,
		cachedAt.UTC().Format(time.RFC3339), now.Format(time.RFC3339),
	)
	if err != nil {
		t.Fatalf("seed article: %v", err)
	}
	return id
}
