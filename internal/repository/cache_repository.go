package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"tidings/internal/model"
	"tidings/internal/snowflake"
)

// FeedWithArticles is one persisted arena entry: feed metadata plus
// its articles, newest published first.
type FeedWithArticles struct {
	Feed     model.Feed
	Articles []model.Article
}

// CacheRepository persists the offline article arena. Articles are
// keyed by (feed_id, key) and upserted; nothing here ever deletes an
// article.
type CacheRepository interface {
	LoadAll(ctx context.Context) ([]FeedWithArticles, error)
	UpsertFeed(ctx context.Context, feed model.Feed) (model.Feed, error)
	SaveArticles(ctx context.Context, feedID int64, articles []model.Article) error
}

type cacheRepository struct {
	db dbtx
}

func NewCacheRepository(db dbtx) CacheRepository {
	return &cacheRepository{db: db}
}

const feedColumns = `id, url, title, folder_name, site_url, description, etag, last_modified, last_fetched_at, sync_id, last_error, created_at, updated_at`

const articleColumns = `id, feed_id, key, title, link, author, summary, content, remote_id, published_at, read, starred, cached_at, updated_at`

func (r *cacheRepository) LoadAll(ctx context.Context) ([]FeedWithArticles, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+feedColumns+` FROM feeds ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query feeds: %w", err)
	}
	defer rows.Close()

	var entries []FeedWithArticles
	index := make(map[int64]int)
	for rows.Next() {
		feed, err := scanFeed(rows)
		if err != nil {
			return nil, fmt.Errorf("scan feed: %w", err)
		}
		index[feed.ID] = len(entries)
		entries = append(entries, FeedWithArticles{Feed: feed})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feeds: %w", err)
	}

	arows, err := r.db.QueryContext(ctx, `
		SELECT `+articleColumns+` FROM articles
		ORDER BY feed_id, COALESCE(published_at, cached_at) DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer arows.Close()

	for arows.Next() {
		article, err := scanArticle(arows)
		if err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		i, ok := index[article.FeedID]
		if !ok {
			continue
		}
		entries[i].Articles = append(entries[i].Articles, article)
	}
	if err := arows.Err(); err != nil {
		return nil, fmt.Errorf("iterate articles: %w", err)
	}

	return entries, nil
}

func (r *cacheRepository) UpsertFeed(ctx context.Context, feed model.Feed) (model.Feed, error) {
	var existingID int64
	err := r.db.QueryRowContext(ctx, `SELECT id FROM feeds WHERE url = ?`, feed.URL).Scan(&existingID)
	if err != nil && err != sql.ErrNoRows {
		return model.Feed{}, fmt.Errorf("find feed by url: %w", err)
	}

	now := time.Now().UTC()
	feed.UpdatedAt = now

	if err == sql.ErrNoRows {
		feed.ID = snowflake.NextID()
		feed.CreatedAt = now
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO feeds (id, url, title, folder_name, site_url, description, etag, last_modified, last_fetched_at, sync_id, last_error, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			feed.ID, feed.URL, feed.Title, feed.FolderName,
			nullableString(feed.SiteURL), nullableString(feed.Description),
			nullableString(feed.ETag), nullableString(feed.LastModified),
			nullableTime(feed.LastFetchedAt), nullableString(feed.SyncID),
			nullableString(feed.LastError), formatTime(feed.CreatedAt), formatTime(feed.UpdatedAt),
		)
		if err != nil {
			return model.Feed{}, fmt.Errorf("insert feed: %w", err)
		}
		return feed, nil
	}

	feed.ID = existingID
	_, err = r.db.ExecContext(ctx, `
		UPDATE feeds
		SET title = ?, folder_name = ?, site_url = ?, description = ?, etag = ?, last_modified = ?, last_fetched_at = ?, sync_id = ?, last_error = ?, updated_at = ?
		WHERE id = ?`,
		feed.Title, feed.FolderName,
		nullableString(feed.SiteURL), nullableString(feed.Description),
		nullableString(feed.ETag), nullableString(feed.LastModified),
		nullableTime(feed.LastFetchedAt), nullableString(feed.SyncID),
		nullableString(feed.LastError), formatTime(feed.UpdatedAt),
		feed.ID,
	)
	if err != nil {
		return model.Feed{}, fmt.Errorf("update feed: %w", err)
	}
	return feed, nil
}

func (r *cacheRepository) SaveArticles(ctx context.Context, feedID int64, articles []model.Article) error {
	for _, article := range articles {
		id := article.ID
		if id == 0 {
			id = snowflake.NextID()
		}
		now := time.Now().UTC()
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO articles (id, feed_id, key, title, link, author, summary, content, remote_id, published_at, read, starred, cached_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (feed_id, key) DO UPDATE SET
				title = excluded.title,
				link = excluded.link,
				author = excluded.author,
				summary = excluded.summary,
				content = excluded.content,
				remote_id = excluded.remote_id,
				published_at = excluded.published_at,
				read = excluded.read,
				starred = excluded.starred,
				updated_at = excluded.updated_at`,
			id, feedID, article.Key, article.Title,
			nullableString(article.Link), nullableString(article.Author),
			nullableString(article.Summary), nullableString(article.Content),
			nullableString(article.RemoteID), nullableTime(article.PublishedAt),
			article.Read, article.Starred,
			formatTime(article.CachedAt), formatTime(now),
		)
		if err != nil {
			return fmt.Errorf("save article %s: %w", article.Key, err)
		}
	}
	return nil
}

func scanFeed(scanner interface{ Scan(dest ...interface{}) error }) (model.Feed, error) {
	var feed model.Feed
	var siteURL, description, etag, lastModified, lastFetchedAt, syncID, lastError sql.NullString
	var createdAt, updatedAt string

	err := scanner.Scan(
		&feed.ID, &feed.URL, &feed.Title, &feed.FolderName,
		&siteURL, &description, &etag, &lastModified, &lastFetchedAt,
		&syncID, &lastError, &createdAt, &updatedAt,
	)
	if err != nil {
		return model.Feed{}, err
	}

	feed.SiteURL = stringPtr(siteURL)
	feed.Description = stringPtr(description)
	feed.ETag = stringPtr(etag)
	feed.LastModified = stringPtr(lastModified)
	feed.LastFetchedAt = timePtr(lastFetchedAt)
	feed.SyncID = stringPtr(syncID)
	feed.LastError = stringPtr(lastError)
	feed.CreatedAt = parseTime(createdAt)
	feed.UpdatedAt = parseTime(updatedAt)
	return feed, nil
}

func scanArticle(scanner interface{ Scan(dest ...interface{}) error }) (model.Article, error) {
	var article model.Article
	var link, author, summary, content, remoteID, publishedAt sql.NullString
	var cachedAt, updatedAt string

	err := scanner.Scan(
		&article.ID, &article.FeedID, &article.Key, &article.Title,
		&link, &author, &summary, &content, &remoteID, &publishedAt,
		&article.Read, &article.Starred, &cachedAt, &updatedAt,
	)
	if err != nil {
		return model.Article{}, err
	}

	article.Link = stringPtr(link)
	article.Author = stringPtr(author)
	article.Summary = stringPtr(summary)
	article.Content = stringPtr(content)
	article.RemoteID = stringPtr(remoteID)
	article.PublishedAt = timePtr(publishedAt)
	article.CachedAt = parseTime(cachedAt)
	article.UpdatedAt = parseTime(updatedAt)
	return article, nil
}
