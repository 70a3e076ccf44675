package tenant

import (
	"strings"
	"time"
)

const (
	ImageHotlinking   = "hotlinking"
	ImageLocalStorage = "local_storage"
)

const (
	RecurrenceHourly     = "hourly"
	RecurrenceTwiceDaily = "twicedaily"
	RecurrenceDaily      = "daily"
)

// Config is one tenant's sync settings, loaded from <tenants-dir>/<id>.yml.
type Config struct {
	ID string // Derived from filename (without .yml extension)

	Enabled bool `yaml:"enabled"`

	// Sources is the newline-delimited list of feed URLs to sync.
	Sources string `yaml:"sources"`

	Recurrence        string `yaml:"recurrence"`          // hourly, twicedaily, daily
	ImageStorage      string `yaml:"image_storage"`       // hotlinking, local_storage
	MaxAttachmentSize int64  `yaml:"max_attachment_size"` // bytes, 0 = unlimited
	ItemsPerFeed      int    `yaml:"items_per_feed"`
	ExtractContent    bool   `yaml:"extract_content"`
}

// SourceURLs splits the newline-delimited source list, dropping blanks.
func (c *Config) SourceURLs() []string {
	var urls []string
	for _, line := range strings.Split(c.Sources, "\n") {
		if url := strings.TrimSpace(line); url != "" {
			urls = append(urls, url)
		}
	}
	return urls
}

// RecurrenceInterval translates the recurrence name into a duration.
func (c *Config) RecurrenceInterval() time.Duration {
	switch c.Recurrence {
	case RecurrenceHourly:
		return time.Hour
	case RecurrenceTwiceDaily:
		return 12 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// ImageImportEnabled reports whether embedded images should be downloaded
// and rewritten rather than hotlinked.
func (c *Config) ImageImportEnabled() bool {
	return c.ImageStorage == ImageLocalStorage
}
