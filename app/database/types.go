package database

import (
	"time"
)

// Post is a synced content record. ExternalID carries the feed-provided item
// identifier and is immutable once set; it is the join key between feed items
// and posts across runs.
type Post struct {
	ID          int64
	Title       string
	Content     string
	Status      string
	PublishedAt time.Time
	ModifiedAt  time.Time
	ExternalID  string
	CreatedAt   time.Time
}

// Attachment is a locally stored copy of a remote media file, owned by a post.
// SourceURL is the original remote URL and the dedup key within a post.
type Attachment struct {
	ID        int64
	PostID    int64
	SourceURL string
	LocalPath string
	LocalURL  string
	MimeType  string
	CreatedAt time.Time
}

type Category struct {
	ID   int64
	Name string
}
