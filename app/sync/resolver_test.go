package sync

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/jhalves/rss-sync/app/database"
	"github.com/jhalves/rss-sync/app/feed"
)

func newTestPostRepo(t *testing.T) database.PostRepository {
	t.Helper()

	db, err := database.NewConnection(filepath.Join(t.TempDir(), "content.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return database.NewPostRepository(db)
}

func TestResolveUnknownItemCreates(t *testing.T) {
	resolver := NewResolver(newTestPostRepo(t))

	decision, existing, err := resolver.Resolve(feed.Item{ExternalID: "guid-1"})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if decision != DecisionCreate {
		t.Errorf("Expected create, got: %s", decision)
	}
	if existing != nil {
		t.Error("Expected no existing post")
	}
}

func TestResolveStaleness(t *testing.T) {
	posts := newTestPostRepo(t)
	resolver := NewResolver(posts)

	modified := time.Date(2023, 7, 3, 10, 0, 0, 0, time.UTC)
	if _, err := posts.CreatePost(&database.Post{
		Title:       "Existing",
		Status:      "publish",
		PublishedAt: modified,
		ModifiedAt:  modified,
		ExternalID:  "guid-1",
	}); err != nil {
		t.Fatalf("Failed to create post: %v", err)
	}

	tests := []struct {
		name        string
		publishedAt time.Time
		expected    Decision
	}{
		{"strictly newer updates", modified.Add(time.Hour), DecisionUpdate},
		{"equal timestamp skips", modified, DecisionSkip},
		{"older skips", modified.Add(-time.Hour), DecisionSkip},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision, existing, err := resolver.Resolve(feed.Item{
				ExternalID:  "guid-1",
				PublishedAt: tt.publishedAt,
			})
			if err != nil {
				t.Fatalf("Resolve failed: %v", err)
			}
			if decision != tt.expected {
				t.Errorf("Expected %s, got: %s", tt.expected, decision)
			}
			if existing == nil {
				t.Error("Expected the existing post to be returned")
			}
		})
	}
}
