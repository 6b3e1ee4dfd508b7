package db

import (
	"database/sql"
	"fmt"
)

// Base schema - uses Snowflake IDs (no AUTOINCREMENT)
const baseSchema = `
CREATE TABLE IF NOT EXISTS feeds (
  id INTEGER PRIMARY KEY,
  url TEXT NOT NULL UNIQUE,
  title TEXT NOT NULL,
  folder_name TEXT NOT NULL DEFAULT '',
  site_url TEXT,
  description TEXT,
  etag TEXT,
  last_modified TEXT,
  last_fetched_at TEXT,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS articles (
  id INTEGER PRIMARY KEY,
  feed_id INTEGER NOT NULL,
  key TEXT NOT NULL,
  title TEXT NOT NULL,
  link TEXT,
  author TEXT,
  summary TEXT,
  content TEXT,
  published_at TEXT,
  read INTEGER NOT NULL DEFAULT 0,
  cached_at TEXT NOT NULL,
  updated_at TEXT NOT NULL,
  FOREIGN KEY (feed_id) REFERENCES feeds(id) ON DELETE CASCADE,
  UNIQUE (feed_id, key)
);

CREATE INDEX IF NOT EXISTS idx_articles_feed_id ON articles(feed_id);
CREATE INDEX IF NOT EXISTS idx_articles_feed_published ON articles(feed_id, published_at DESC);
`

func Migrate(db *sql.DB) error {
	if _, err := db.Exec(baseSchema); err != nil {
		return fmt.Errorf("migrate base schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

func hasColumn(db *sql.DB, table, column string) (bool, error) {
	var count int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, table, column,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check %s.%s column: %w", table, column, err)
	}
	return count > 0, nil
}

func runMigrations(db *sql.DB) error {
	// Migration 1: track per-feed fetch errors
	ok, err := hasColumn(db, "feeds", "last_error")
	if err != nil {
		return err
	}
	if !ok {
		if _, err := db.Exec(`ALTER TABLE feeds ADD COLUMN last_error TEXT`); err != nil {
			return fmt.Errorf("add last_error column: %w", err)
		}
	}

	// Migration 2: starred flag for bookmarking
	ok, err = hasColumn(db, "articles", "starred")
	if err != nil {
		return err
	}
	if !ok {
		if _, err := db.Exec(`ALTER TABLE articles ADD COLUMN starred INTEGER NOT NULL DEFAULT 0`); err != nil {
			return fmt.Errorf("add starred column: %w", err)
		}
	}

	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_articles_read ON articles(read)`); err != nil {
		return fmt.Errorf("create idx_articles_read: %w", err)
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_articles_feed_read ON articles(feed_id, read)`); err != nil {
		return fmt.Errorf("create idx_articles_feed_read: %w", err)
	}

	// Migration 3: remote sync support (subscription ids, item ids,
	// session state, pending change queue)
	ok, err = hasColumn(db, "feeds", "sync_id")
	if err != nil {
		return err
	}
	if !ok {
		if _, err := db.Exec(`ALTER TABLE feeds ADD COLUMN sync_id TEXT`); err != nil {
			return fmt.Errorf("add sync_id column: %w", err)
		}
	}

	ok, err = hasColumn(db, "articles", "remote_id")
	if err != nil {
		return err
	}
	if !ok {
		if _, err := db.Exec(`ALTER TABLE articles ADD COLUMN remote_id TEXT`); err != nil {
			return fmt.Errorf("add remote_id column: %w", err)
		}
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS pending_changes (
  id INTEGER PRIMARY KEY,
  feed_url TEXT NOT NULL,
  article_key TEXT NOT NULL,
  read INTEGER NOT NULL,
  queued_at TEXT NOT NULL
)`); err != nil {
		return fmt.Errorf("create pending_changes table: %w", err)
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_pending_changes_queued ON pending_changes(queued_at)`); err != nil {
		return fmt.Errorf("create idx_pending_changes_queued: %w", err)
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS sync_state (
  id INTEGER PRIMARY KEY CHECK (id = 1),
  auth_token TEXT NOT NULL DEFAULT '',
  change_token INTEGER NOT NULL DEFAULT 0,
  last_sync_at TEXT,
  updated_at TEXT NOT NULL
)`); err != nil {
		return fmt.Errorf("create sync_state table: %w", err)
	}

	return nil
}
