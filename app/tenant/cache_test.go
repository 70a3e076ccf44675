package tenant

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/jhalves/rss-sync/app/sync"
)

func writeTenantFile(t *testing.T, dir, tenantID, content string) {
	t.Helper()

	if err := os.WriteFile(filepath.Join(dir, tenantID+".yml"), []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write tenant file: %v", err)
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	writeTenantFile(t, dir, "demo", `
enabled: true
sources: |
  https://example.com/feed.xml
  https://other.example.com/rss

recurrence: hourly
image_storage: local_storage
max_attachment_size: 1048576
items_per_feed: 10
extract_content: true
`)

	cache := NewCache(dir)
	config, err := cache.LoadConfig("demo")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.ID != "demo" {
		t.Errorf("Expected ID derived from filename, got: %s", config.ID)
	}
	if !config.Enabled {
		t.Error("Expected enabled")
	}
	expected := []string{"https://example.com/feed.xml", "https://other.example.com/rss"}
	if !reflect.DeepEqual(config.SourceURLs(), expected) {
		t.Errorf("Expected sources %v, got: %v", expected, config.SourceURLs())
	}
	if config.Recurrence != RecurrenceHourly {
		t.Errorf("Expected hourly recurrence, got: %s", config.Recurrence)
	}
	if !config.ImageImportEnabled() {
		t.Error("Expected image import enabled for local_storage mode")
	}
	if config.MaxAttachmentSize != 1048576 {
		t.Errorf("Expected max attachment size 1048576, got: %d", config.MaxAttachmentSize)
	}
	if config.ItemsPerFeed != 10 {
		t.Errorf("Expected items per feed 10, got: %d", config.ItemsPerFeed)
	}
	if !config.ExtractContent {
		t.Error("Expected extract_content true")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	dir := t.TempDir()
	writeTenantFile(t, dir, "minimal", `
enabled: true
sources: "https://example.com/feed.xml"
`)

	cache := NewCache(dir)
	config, err := cache.LoadConfig("minimal")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.Recurrence != RecurrenceDaily {
		t.Errorf("Expected daily default recurrence, got: %s", config.Recurrence)
	}
	if config.ImageStorage != ImageHotlinking {
		t.Errorf("Expected hotlinking default, got: %s", config.ImageStorage)
	}
	if config.ImageImportEnabled() {
		t.Error("Expected image import disabled by default")
	}
	if config.ItemsPerFeed != sync.DefaultItemsPerFeed {
		t.Errorf("Expected default items per feed %d, got: %d", sync.DefaultItemsPerFeed, config.ItemsPerFeed)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"enabled without sources", "enabled: true\n"},
		{"bad recurrence", "enabled: true\nsources: \"https://example.com/feed\"\nrecurrence: weekly\n"},
		{"bad image storage", "enabled: true\nsources: \"https://example.com/feed\"\nimage_storage: cdn\n"},
		{"negative attachment size", "enabled: true\nsources: \"https://example.com/feed\"\nmax_attachment_size: -1\n"},
		{"negative items per feed", "enabled: true\nsources: \"https://example.com/feed\"\nitems_per_feed: -1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeTenantFile(t, dir, "bad", tt.content)

			if _, err := NewCache(dir).LoadConfig("bad"); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestRunLoadsAllTenants(t *testing.T) {
	dir := t.TempDir()
	writeTenantFile(t, dir, "first", "enabled: true\nsources: \"https://a.example.com/feed\"\n")
	writeTenantFile(t, dir, "second", "enabled: false\n")

	cache := NewCache(dir)
	if err := cache.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if cache.GetConfigCount() != 2 {
		t.Errorf("Expected 2 tenants, got: %d", cache.GetConfigCount())
	}

	enabled := cache.GetEnabledConfigs()
	if len(enabled) != 1 {
		t.Fatalf("Expected 1 enabled tenant, got: %d", len(enabled))
	}
	if _, ok := enabled["first"]; !ok {
		t.Error("Expected tenant 'first' to be enabled")
	}

	if _, err := cache.GetConfig("missing"); err == nil {
		t.Error("Expected error for unknown tenant")
	}
}

func TestRunMissingDirectory(t *testing.T) {
	cache := NewCache(filepath.Join(t.TempDir(), "absent"))
	if err := cache.Run(); err != nil {
		t.Errorf("Expected missing tenants dir to be tolerated, got: %v", err)
	}
}

func TestRecurrenceInterval(t *testing.T) {
	tests := []struct {
		recurrence string
		expected   time.Duration
	}{
		{RecurrenceHourly, time.Hour},
		{RecurrenceTwiceDaily, 12 * time.Hour},
		{RecurrenceDaily, 24 * time.Hour},
		{"", 24 * time.Hour},
	}

	for _, tt := range tests {
		config := &Config{Recurrence: tt.recurrence}
		if got := config.RecurrenceInterval(); got != tt.expected {
			t.Errorf("Recurrence %q: expected %v, got: %v", tt.recurrence, tt.expected, got)
		}
	}
}
