package sync

import (
	"path/filepath"
	"reflect"
	"testing"

	"github.com/jhalves/rss-sync/app/database"
)

func TestExtractTags(t *testing.T) {
	tests := []struct {
		name     string
		terms    []string
		expected []string
	}{
		{"spaces become hyphens", []string{"Tech News", "Open Source"}, []string{"Tech-News", "Open-Source"}},
		{"already hyphenated", []string{"a-b"}, []string{"a-b"}},
		{"order preserved", []string{"zebra", "alpha", "zebra"}, []string{"zebra", "alpha", "zebra"}},
		{"empty input", nil, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractTags(tt.terms)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestResolveCategoryFindOrCreate(t *testing.T) {
	db, err := database.NewConnection(filepath.Join(t.TempDir(), "content.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	defer db.Close()

	taxonomy := NewTaxonomy(database.NewTermRepository(db))

	first, err := taxonomy.ResolveCategory("Example Feed")
	if err != nil {
		t.Fatalf("First resolve failed: %v", err)
	}

	second, err := taxonomy.ResolveCategory("Example Feed")
	if err != nil {
		t.Fatalf("Second resolve failed: %v", err)
	}
	if first != second {
		t.Errorf("Expected the same category ID, got %d and %d", first, second)
	}

	other, err := taxonomy.ResolveCategory("Another Feed")
	if err != nil {
		t.Fatalf("Resolve of different title failed: %v", err)
	}
	if other == first {
		t.Error("Expected a distinct category for a different feed title")
	}
}
