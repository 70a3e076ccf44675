package sync

import (
	"strings"

	"github.com/jhalves/rss-sync/app/database"
)

// Taxonomy maps feed metadata and item categories onto local categories and
// tags.
type Taxonomy struct {
	terms database.TermRepository
}

func NewTaxonomy(terms database.TermRepository) *Taxonomy {
	return &Taxonomy{terms: terms}
}

// ResolveCategory finds or creates the umbrella category for a source, named
// after the feed's own title.
func (t *Taxonomy) ResolveCategory(feedTitle string) (int64, error) {
	return t.terms.FindOrCreateCategory(feedTitle)
}

// ExtractTags maps raw feed category terms to tag strings by replacing
// spaces with hyphens. Order is preserved, no deduplication, no
// case-folding.
func ExtractTags(terms []string) []string {
	tags := make([]string, 0, len(terms))
	for _, term := range terms {
		tags = append(tags, strings.ReplaceAll(term, " ", "-"))
	}
	return tags
}
