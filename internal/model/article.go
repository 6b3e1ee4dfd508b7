package model

import "time"

// Article is the canonical form every feed entry is reduced to,
// independent of the source format. Key is the stable identity used
// for deduplication across fetches: the entry GUID when present, the
// entry link otherwise, or a title+timestamp hash as a last resort.
type Article struct {
	ID          int64
	FeedID      int64
	Key         string
	Title       string
	Link        *string
	Author      *string
	Summary     *string
	Content     *string
	RemoteID    *string
	PublishedAt *time.Time
	Read        bool
	Starred     bool
	CachedAt    time.Time
	UpdatedAt   time.Time
}
