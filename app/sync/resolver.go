package sync

import (
	"fmt"

	"github.com/jhalves/rss-sync/app/database"
	"github.com/jhalves/rss-sync/app/feed"
)

type Decision int

const (
	DecisionCreate Decision = iota
	DecisionUpdate
	DecisionSkip
)

func (d Decision) String() string {
	switch d {
	case DecisionCreate:
		return "create"
	case DecisionUpdate:
		return "update"
	default:
		return "skip"
	}
}

// Resolver decides, per item, whether a matching post already exists and
// whether it is stale.
type Resolver struct {
	posts database.PostRepository
}

func NewResolver(posts database.PostRepository) *Resolver {
	return &Resolver{posts: posts}
}

// Resolve matches the item against existing posts by external ID. A missing
// post means create; an existing post is updated only when the item's
// publish timestamp is strictly newer than the post's modification
// timestamp. Equal timestamps resolve to skip, which is what makes re-runs
// against an unchanged feed produce zero writes.
func (r *Resolver) Resolve(item feed.Item) (Decision, *database.Post, error) {
	existing, err := r.posts.GetByExternalID(item.ExternalID)
	if err != nil {
		return DecisionSkip, nil, fmt.Errorf("failed to resolve item identity: %w", err)
	}

	if existing == nil {
		return DecisionCreate, nil, nil
	}

	if item.PublishedAt.After(existing.ModifiedAt) {
		return DecisionUpdate, existing, nil
	}

	return DecisionSkip, existing, nil
}
