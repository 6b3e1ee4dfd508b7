// Package greader speaks the Google Reader wire dialect used by
// FreshRSS, Miniflux and compatible servers: ClientLogin
// authentication, subscription lists, item-id streams and edit-tag
// state changes.
package greader

import "strings"

// Well-known stream ids.
const (
	StreamReadingList = "user/-/state/com.google/reading-list"
	StreamRead        = "user/-/state/com.google/read"
	StreamStarred     = "user/-/state/com.google/starred"
	StreamKeptUnread  = "user/-/state/com.google/kept-unread"
	StreamBroadcast   = "user/-/state/com.google/broadcast"
)

// Category is a folder label attached to a subscription. The id has
// the form "user/-/label/{name}".
type Category struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Type  string `json:"type,omitempty"`
}

// Subscription is one remote feed. The id has the form "feed/{id}"
// and is the stream id used to fetch the feed's items.
type Subscription struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	URL        string     `json:"url"`
	HTMLURL    string     `json:"htmlUrl,omitempty"`
	IconURL    string     `json:"iconUrl,omitempty"`
	Categories []Category `json:"categories,omitempty"`
}

// Folder returns the first category label, which is how the dialect
// expresses folder membership. Empty means the feed sits at the root.
func (s Subscription) Folder() string {
	if len(s.Categories) == 0 {
		return ""
	}
	return s.Categories[0].Label
}

type subscriptionList struct {
	Subscriptions []Subscription `json:"subscriptions"`
}

// ItemRef is one entry of an item-id stream. The id is a signed
// decimal string; TimestampUsec orders items by crawl time.
type ItemRef struct {
	ID            string `json:"id"`
	TimestampUsec string `json:"timestampUsec,omitempty"`
}

// ItemRefsPage is one page of an item-id stream. A non-empty
// continuation means more pages follow.
type ItemRefsPage struct {
	ItemRefs     []ItemRef `json:"itemRefs"`
	Continuation string    `json:"continuation,omitempty"`
}

// Origin names the feed an item came from.
type Origin struct {
	StreamID string `json:"streamId"`
	Title    string `json:"title,omitempty"`
	HTMLURL  string `json:"htmlUrl,omitempty"`
}

// LinkRef is a link attached to an item.
type LinkRef struct {
	Href string `json:"href"`
	Type string `json:"type,omitempty"`
}

// ItemBody carries an item's HTML content.
type ItemBody struct {
	Direction string `json:"direction,omitempty"`
	Content   string `json:"content"`
}

// Item is one article as the server reports it. The id is the long
// form "tag:google.com,2005:reader/item/{hex}".
type Item struct {
	ID            string    `json:"id"`
	Origin        *Origin   `json:"origin,omitempty"`
	Title         string    `json:"title,omitempty"`
	Author        string    `json:"author,omitempty"`
	Published     int64     `json:"published,omitempty"`
	Updated       int64     `json:"updated,omitempty"`
	TimestampUsec string    `json:"timestampUsec,omitempty"`
	Categories    []string  `json:"categories,omitempty"`
	Canonical     []LinkRef `json:"canonical,omitempty"`
	Alternate     []LinkRef `json:"alternate,omitempty"`
	Summary       *ItemBody `json:"summary,omitempty"`
	Content       *ItemBody `json:"content,omitempty"`
}

// IsRead reports whether the server has the item in the read state.
func (i Item) IsRead() bool {
	for _, category := range i.Categories {
		if strings.HasSuffix(category, "/state/com.google/read") {
			return true
		}
	}
	return false
}

// Link returns the item's canonical URL, falling back to the first
// alternate link.
func (i Item) Link() string {
	if len(i.Canonical) > 0 {
		return i.Canonical[0].Href
	}
	if len(i.Alternate) > 0 {
		return i.Alternate[0].Href
	}
	return ""
}

// Body returns the item's HTML, preferring full content over the
// summary.
func (i Item) Body() string {
	if i.Content != nil {
		return i.Content.Content
	}
	if i.Summary != nil {
		return i.Summary.Content
	}
	return ""
}

// StreamContents is a page of full items from one stream.
type StreamContents struct {
	ID           string `json:"id"`
	Title        string `json:"title,omitempty"`
	Updated      int64  `json:"updated,omitempty"`
	Continuation string `json:"continuation,omitempty"`
	Items        []Item `json:"items"`
}

// StreamOptions narrow a stream query. Zero values are omitted from
// the request.
type StreamOptions struct {
	// Count limits the page size (server parameter n).
	Count int
	// Continuation resumes a paginated query (parameter c).
	Continuation string
	// OlderThan and NewerThan bound items by timestamp in seconds
	// (parameters ot and nt).
	OlderThan int64
	NewerThan int64
	// ExcludeTarget drops items carrying a stream id (parameter xt).
	ExcludeTarget string
	// UnreadOnly is shorthand for excluding the read state.
	UnreadOnly bool
}

// UserInfo identifies the authenticated account.
type UserInfo struct {
	UserID    string `json:"userId"`
	UserName  string `json:"userName"`
	UserEmail string `json:"userEmail,omitempty"`
}
