package service

import (
	"errors"
	"fmt"

	"tidings/internal/config"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrInvalid           = errors.New("invalid")
	ErrRefreshInProgress = errors.New("refresh already in progress")
	ErrSyncInProgress    = errors.New("sync already in progress")
	ErrSyncNotConfigured = errors.New("sync is not configured")
)

// FeedConflictError is returned when a subscription URL already exists.
type FeedConflictError struct {
	ExistingFeed config.Feed
}

func (e *FeedConflictError) Error() string {
	return fmt.Sprintf("already subscribed to %s", e.ExistingFeed.URL)
}

func (e *FeedConflictError) Is(target error) bool {
	return target == ErrConflict
}
