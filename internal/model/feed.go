package model

import "time"

type Feed struct {
	ID            int64
	Title         string
	URL           string
	FolderName    string
	SiteURL       *string
	Description   *string
	ETag          *string
	LastModified  *string
	SyncID        *string
	LastError     *string
	LastFetchedAt *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
