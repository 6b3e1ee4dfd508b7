package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"tidings/internal/model"
	"tidings/internal/snowflake"
)

// SyncRepository persists the remote session state and the pending
// read-state change queue. The queue is append-only; rows leave it
// only through DeleteChanges after a confirmed push, or ClearQueue on
// logout.
type SyncRepository interface {
	GetState(ctx context.Context) (model.SyncState, error)
	SaveState(ctx context.Context, state model.SyncState) error
	ResetState(ctx context.Context) error
	EnqueueChange(ctx context.Context, change model.PendingChange) (model.PendingChange, error)
	ListChanges(ctx context.Context) ([]model.PendingChange, error)
	DeleteChanges(ctx context.Context, ids []int64) error
	ClearQueue(ctx context.Context) error
}

type syncRepository struct {
	db dbtx
}

func NewSyncRepository(db dbtx) SyncRepository {
	return &syncRepository{db: db}
}

func (r *syncRepository) GetState(ctx context.Context) (model.SyncState, error) {
	var state model.SyncState
	var lastSyncAt sql.NullString
	var updatedAt string

	err := r.db.QueryRowContext(ctx, `
		SELECT auth_token, change_token, last_sync_at, updated_at
		FROM sync_state WHERE id = 1`).
		Scan(&state.AuthToken, &state.ChangeToken, &lastSyncAt, &updatedAt)
	if err == sql.ErrNoRows {
		return model.SyncState{}, nil
	}
	if err != nil {
		return model.SyncState{}, fmt.Errorf("query sync state: %w", err)
	}

	state.LastSyncAt = timePtr(lastSyncAt)
	state.UpdatedAt = parseTime(updatedAt)
	return state, nil
}

func (r *syncRepository) SaveState(ctx context.Context, state model.SyncState) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sync_state (id, auth_token, change_token, last_sync_at, updated_at)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			auth_token = excluded.auth_token,
			change_token = excluded.change_token,
			last_sync_at = excluded.last_sync_at,
			updated_at = excluded.updated_at`,
		state.AuthToken, state.ChangeToken, nullableTime(state.LastSyncAt), formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("save sync state: %w", err)
	}
	return nil
}

func (r *syncRepository) ResetState(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sync_state WHERE id = 1`); err != nil {
		return fmt.Errorf("reset sync state: %w", err)
	}
	return nil
}

func (r *syncRepository) EnqueueChange(ctx context.Context, change model.PendingChange) (model.PendingChange, error) {
	change.ID = snowflake.NextID()
	if change.QueuedAt.IsZero() {
		change.QueuedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO pending_changes (id, feed_url, article_key, read, queued_at)
		VALUES (?, ?, ?, ?, ?)`,
		change.ID, change.FeedURL, change.ArticleKey, change.Read, formatTime(change.QueuedAt),
	)
	if err != nil {
		return model.PendingChange{}, fmt.Errorf("enqueue change: %w", err)
	}
	return change, nil
}

func (r *syncRepository) ListChanges(ctx context.Context) ([]model.PendingChange, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, feed_url, article_key, read, queued_at
		FROM pending_changes ORDER BY queued_at, id`)
	if err != nil {
		return nil, fmt.Errorf("query pending changes: %w", err)
	}
	defer rows.Close()

	var changes []model.PendingChange
	for rows.Next() {
		var change model.PendingChange
		var queuedAt string
		if err := rows.Scan(&change.ID, &change.FeedURL, &change.ArticleKey, &change.Read, &queuedAt); err != nil {
			return nil, fmt.Errorf("scan pending change: %w", err)
		}
		change.QueuedAt = parseTime(queuedAt)
		changes = append(changes, change)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending changes: %w", err)
	}
	return changes, nil
}

func (r *syncRepository) DeleteChanges(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	query := `DELETE FROM pending_changes WHERE id IN (` + strings.Join(placeholders, ", ") + `)`
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete pending changes: %w", err)
	}
	return nil
}

func (r *syncRepository) ClearQueue(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM pending_changes`); err != nil {
		return fmt.Errorf("clear pending changes: %w", err)
	}
	return nil
}
