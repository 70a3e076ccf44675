package feed

import (
	"time"
)

// Metadata describes the feed itself; Title names the umbrella category a
// source's posts are filed under.
type Metadata struct {
	Title       string
	Link        string
	Description string
}

// Item is one normalized feed entry. ExternalID is the feed-provided
// identifier (GUID, falling back to the item link) used to match items to
// posts across runs; it may be empty when the feed supplies neither.
type Item struct {
	ExternalID  string
	Title       string
	Link        string
	Content     string
	PublishedAt time.Time
	Categories  []string
}
