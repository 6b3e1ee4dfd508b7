package service

import (
	"context"
	"sync"

	"tidings/internal/model"
	"tidings/internal/repository"
)

// PendingQueue wraps the persisted read-state change queue. Its mutex
// serializes local toggles against the sync pull, so a toggle issued
// while remote state is being applied lands strictly before or after
// the application, never interleaved with it.
type PendingQueue struct {
	mu   sync.Mutex
	repo repository.SyncRepository
}

func NewPendingQueue(repo repository.SyncRepository) *PendingQueue {
	return &PendingQueue{repo: repo}
}

// Enqueue records one local read-state change for the next push.
func (q *PendingQueue) Enqueue(ctx context.Context, feedURL, articleKey string, read bool) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, err := q.repo.EnqueueChange(ctx, model.PendingChange{
		FeedURL:    feedURL,
		ArticleKey: articleKey,
		Read:       read,
	})
	return err
}

// Pending returns the queued changes in enqueue order.
func (q *PendingQueue) Pending(ctx context.Context) ([]model.PendingChange, error) {
	return q.repo.ListChanges(ctx)
}

// Confirm removes changes whose push the server acknowledged.
func (q *PendingQueue) Confirm(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	return q.repo.DeleteChanges(ctx, ids)
}

// Clear drops the whole queue. Used on logout.
func (q *PendingQueue) Clear(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.repo.ClearQueue(ctx)
}

// withLock runs fn while holding the queue mutex. The sync pull uses
// it to apply remote read state without racing a concurrent Enqueue.
func (q *PendingQueue) withLock(fn func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	fn()
}
