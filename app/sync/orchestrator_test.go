package sync

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/jhalves/rss-sync/app/database"
	"github.com/jhalves/rss-sync/app/feed"
)

type fakeFeed struct {
	metadata *feed.Metadata
	items    []feed.Item
	err      error
}

type fakeClient struct {
	feeds map[string]fakeFeed
}

func (c *fakeClient) Fetch(_ context.Context, sourceURL string) (*feed.Metadata, []feed.Item, error) {
	f, ok := c.feeds[sourceURL]
	if !ok {
		return nil, nil, errors.New("unknown feed")
	}
	return f.metadata, f.items, f.err
}

func newTestOrchestrator(t *testing.T, client Client) (*Orchestrator, database.PostRepository) {
	t.Helper()

	db, err := database.NewConnection(filepath.Join(t.TempDir(), "content.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	posts := database.NewPostRepository(db)
	terms := database.NewTermRepository(db)

	return NewOrchestrator(client, posts, terms, nil, nil), posts
}

func testItems(count int, publishedAt time.Time) []feed.Item {
	items := make([]feed.Item, 0, count)
	for i := 0; i < count; i++ {
		items = append(items, feed.Item{
			ExternalID:  fmt.Sprintf("guid-%d", i),
			Title:       fmt.Sprintf("Item %d", i),
			Link:        fmt.Sprintf("https://example.com/%d", i),
			Content:     fmt.Sprintf("<p>Content %d</p>", i),
			PublishedAt: publishedAt,
			Categories:  []string{"Tech News", "go"},
		})
	}
	return items
}

func TestRunCreatesThenSkipsUnchanged(t *testing.T) {
	publishedAt := time.Date(2023, 7, 3, 10, 0, 0, 0, time.UTC)
	client := &fakeClient{feeds: map[string]fakeFeed{
		"https://example.com/feed": {
			metadata: &feed.Metadata{Title: "Example Feed"},
			items:    testItems(3, publishedAt),
		},
	}}
	orchestrator, posts := newTestOrchestrator(t, client)

	first := orchestrator.Run(context.Background(), []string{"https://example.com/feed"}, Options{})
	created, updated, skipped, failed := first.Totals()
	if created != 3 || updated != 0 || skipped != 0 || failed != 0 {
		t.Errorf("Expected 3 creates on first run, got created=%d updated=%d skipped=%d failed=%d",
			created, updated, skipped, failed)
	}

	// An unchanged feed must produce zero writes on the next run.
	second := orchestrator.Run(context.Background(), []string{"https://example.com/feed"}, Options{})
	created, updated, skipped, failed = second.Totals()
	if created != 0 || updated != 0 || skipped != 3 || failed != 0 {
		t.Errorf("Expected 3 skips on second run, got created=%d updated=%d skipped=%d failed=%d",
			created, updated, skipped, failed)
	}

	count, err := posts.GetPostCount()
	if err != nil {
		t.Fatalf("Failed to count posts: %v", err)
	}
	if count != 3 {
		t.Errorf("Expected 3 posts, got: %d", count)
	}
}

func TestRunUpdatesNewerItems(t *testing.T) {
	publishedAt := time.Date(2023, 7, 3, 10, 0, 0, 0, time.UTC)
	client := &fakeClient{feeds: map[string]fakeFeed{
		"https://example.com/feed": {
			metadata: &feed.Metadata{Title: "Example Feed"},
			items:    testItems(1, publishedAt),
		},
	}}
	orchestrator, posts := newTestOrchestrator(t, client)

	orchestrator.Run(context.Background(), []string{"https://example.com/feed"}, Options{})

	// Republish the same item with a newer timestamp and fresh content.
	client.feeds["https://example.com/feed"] = fakeFeed{
		metadata: &feed.Metadata{Title: "Example Feed"},
		items: []feed.Item{{
			ExternalID:  "guid-0",
			Title:       "Item 0 revised",
			Content:     "<p>Revised</p>",
			PublishedAt: publishedAt.Add(time.Hour),
		}},
	}

	report := orchestrator.Run(context.Background(), []string{"https://example.com/feed"}, Options{})
	created, updated, _, _ := report.Totals()
	if created != 0 || updated != 1 {
		t.Errorf("Expected exactly one update, got created=%d updated=%d", created, updated)
	}

	post, err := posts.GetByExternalID("guid-0")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if post == nil {
		t.Fatal("Expected post to exist")
	}
	if post.Title != "Item 0 revised" || post.Content != "<p>Revised</p>" {
		t.Errorf("Expected updated title and content, got %q / %q", post.Title, post.Content)
	}
	if !post.ModifiedAt.Equal(publishedAt.Add(time.Hour)) {
		t.Errorf("Expected modified timestamp advanced to the item's, got: %v", post.ModifiedAt)
	}

	count, err := posts.GetPostCount()
	if err != nil {
		t.Fatalf("Failed to count posts: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 post after update, got: %d", count)
	}
}

func TestRunEnforcesItemCap(t *testing.T) {
	publishedAt := time.Date(2023, 7, 3, 10, 0, 0, 0, time.UTC)
	client := &fakeClient{feeds: map[string]fakeFeed{
		"https://example.com/feed": {
			metadata: &feed.Metadata{Title: "Example Feed"},
			items:    testItems(50, publishedAt),
		},
	}}
	orchestrator, posts := newTestOrchestrator(t, client)

	report := orchestrator.Run(context.Background(), []string{"https://example.com/feed"}, Options{})
	if got := report.Sources[0].Fetched; got != DefaultItemsPerFeed {
		t.Errorf("Expected cap at %d items, got: %d", DefaultItemsPerFeed, got)
	}

	count, err := posts.GetPostCount()
	if err != nil {
		t.Fatalf("Failed to count posts: %v", err)
	}
	if count != DefaultItemsPerFeed {
		t.Errorf("Expected %d posts, got: %d", DefaultItemsPerFeed, count)
	}
}

func TestRunSourceIsolation(t *testing.T) {
	publishedAt := time.Date(2023, 7, 3, 10, 0, 0, 0, time.UTC)
	client := &fakeClient{feeds: map[string]fakeFeed{
		"https://good.example.com/feed": {
			metadata: &feed.Metadata{Title: "Good Feed"},
			items:    testItems(2, publishedAt),
		},
	}}
	orchestrator, _ := newTestOrchestrator(t, client)

	report := orchestrator.Run(context.Background(),
		[]string{"https://bad.example.com/feed", "https://good.example.com/feed"}, Options{})

	if !report.Sources[0].FetchFailed {
		t.Error("Expected the unreachable source to be marked failed")
	}
	if report.Sources[1].Created != 2 {
		t.Errorf("Expected the healthy source to sync 2 items, got: %d", report.Sources[1].Created)
	}
	if report.AllSourcesFailed() {
		t.Error("Expected AllSourcesFailed to be false with one healthy source")
	}
}

func TestRunAllSourcesFailed(t *testing.T) {
	orchestrator, _ := newTestOrchestrator(t, &fakeClient{feeds: map[string]fakeFeed{}})

	report := orchestrator.Run(context.Background(),
		[]string{"https://a.example.com/feed", "https://b.example.com/feed"}, Options{})
	if !report.AllSourcesFailed() {
		t.Error("Expected AllSourcesFailed to be true when every fetch fails")
	}

	empty := orchestrator.Run(context.Background(), nil, Options{})
	if empty.AllSourcesFailed() {
		t.Error("Expected AllSourcesFailed to be false for an empty source list")
	}
}

func TestRunSkipsItemsWithoutExternalID(t *testing.T) {
	publishedAt := time.Date(2023, 7, 3, 10, 0, 0, 0, time.UTC)
	client := &fakeClient{feeds: map[string]fakeFeed{
		"https://example.com/feed": {
			metadata: &feed.Metadata{Title: "Example Feed"},
			items: []feed.Item{
				{Title: "No identity", PublishedAt: publishedAt},
				{ExternalID: "guid-1", Title: "Has identity", PublishedAt: publishedAt},
			},
		},
	}}
	orchestrator, posts := newTestOrchestrator(t, client)

	report := orchestrator.Run(context.Background(), []string{"https://example.com/feed"}, Options{})
	created, _, skipped, failed := report.Totals()
	if created != 1 || skipped != 1 || failed != 0 {
		t.Errorf("Expected created=1 skipped=1 failed=0, got created=%d skipped=%d failed=%d",
			created, skipped, failed)
	}

	count, err := posts.GetPostCount()
	if err != nil {
		t.Fatalf("Failed to count posts: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 post, got: %d", count)
	}
}

func TestRunStoresTagsInFeedOrder(t *testing.T) {
	publishedAt := time.Date(2023, 7, 3, 10, 0, 0, 0, time.UTC)
	client := &fakeClient{feeds: map[string]fakeFeed{
		"https://example.com/feed": {
			metadata: &feed.Metadata{Title: "Example Feed"},
			items: []feed.Item{{
				ExternalID:  "guid-1",
				Title:       "Tagged",
				PublishedAt: publishedAt,
				Categories:  []string{"Tech News", "go", "Open Source"},
			}},
		},
	}}
	orchestrator, posts := newTestOrchestrator(t, client)

	orchestrator.Run(context.Background(), []string{"https://example.com/feed"}, Options{})

	post, err := posts.GetByExternalID("guid-1")
	if err != nil || post == nil {
		t.Fatalf("Lookup failed: post=%v err=%v", post, err)
	}

	tags, err := posts.GetTags(post.ID)
	if err != nil {
		t.Fatalf("Failed to read tags: %v", err)
	}
	expected := []string{"Tech-News", "go", "Open-Source"}
	if !reflect.DeepEqual(tags, expected) {
		t.Errorf("Expected tags %v, got: %v", expected, tags)
	}
}
