package model

import "time"

// SyncState is the single persisted row tracking the remote session.
// ChangeToken is the server-assigned change-sequence bound (the highest
// item timestamp observed); it only advances after a fully successful
// sync cycle.
type SyncState struct {
	AuthToken   string
	ChangeToken int64
	LastSyncAt  *time.Time
	UpdatedAt   time.Time
}

// PendingChange is one queued local read-state mutation awaiting push.
// The queue is append-only and survives failed sync cycles; rows are
// deleted only once the server confirms the batch that carried them.
type PendingChange struct {
	ID         int64
	FeedURL    string
	ArticleKey string
	Read       bool
	QueuedAt   time.Time
}
