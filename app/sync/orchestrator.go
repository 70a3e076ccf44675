package sync

import (
	"context"
	"log/slog"
	"time"

	"github.com/jhalves/rss-sync/app/database"
	"github.com/jhalves/rss-sync/app/feed"
)

// DefaultItemsPerFeed bounds per-run work for sources that do not configure
// their own cap.
const DefaultItemsPerFeed = 5

type Client interface {
	Fetch(ctx context.Context, sourceURL string) (*feed.Metadata, []feed.Item, error)
}

type Localizer interface {
	Run(ctx context.Context, postID int64, html string, publishedAt time.Time) (string, error)
}

type ContentExtractor interface {
	Run(ctx context.Context, link string) (string, error)
}

type Options struct {
	ImageImport    bool
	ItemsPerFeed   int
	ExtractContent bool
}

type SourceReport struct {
	URL         string
	FetchFailed bool
	Fetched     int
	Created     int
	Updated     int
	Skipped     int
	Failed      int
	Localized   int
}

type Report struct {
	Sources  []SourceReport
	Duration time.Duration
}

// Totals sums the per-source counters.
func (r *Report) Totals() (created, updated, skipped, failed int) {
	for _, s := range r.Sources {
		created += s.Created
		updated += s.Updated
		skipped += s.Skipped
		failed += s.Failed
	}
	return
}

// AllSourcesFailed reports whether every source fetch failed, i.e. the run
// accomplished nothing and is worth retrying.
func (r *Report) AllSourcesFailed() bool {
	if len(r.Sources) == 0 {
		return false
	}
	for _, s := range r.Sources {
		if !s.FetchFailed {
			return false
		}
	}
	return true
}

// Orchestrator drives one full sync run across configured feed sources.
// Failures are contained at the item and source boundary; nothing aborts the
// run as a whole.
type Orchestrator struct {
	client    Client
	posts     database.PostRepository
	taxonomy  *Taxonomy
	resolver  *Resolver
	localizer Localizer
	extractor ContentExtractor
}

func NewOrchestrator(client Client, posts database.PostRepository, terms database.TermRepository,
	localizer Localizer, extractor ContentExtractor) *Orchestrator {
	return &Orchestrator{
		client:    client,
		posts:     posts,
		taxonomy:  NewTaxonomy(terms),
		resolver:  NewResolver(posts),
		localizer: localizer,
		extractor: extractor,
	}
}

// Run syncs every source URL independently and returns a per-source report.
func (o *Orchestrator) Run(ctx context.Context, sources []string, opts Options) Report {
	if opts.ItemsPerFeed <= 0 {
		opts.ItemsPerFeed = DefaultItemsPerFeed
	}

	start := time.Now()
	report := Report{Sources: make([]SourceReport, 0, len(sources))}

	for _, sourceURL := range sources {
		report.Sources = append(report.Sources, o.syncSource(ctx, sourceURL, opts))
	}

	report.Duration = time.Since(start)

	return report
}

func (o *Orchestrator) syncSource(ctx context.Context, sourceURL string, opts Options) SourceReport {
	sr := SourceReport{URL: sourceURL}

	metadata, items, err := o.client.Fetch(ctx, sourceURL)
	if err != nil {
		slog.Warn("Feed fetch failed, skipping source", "source", sourceURL, "error", err)
		sr.FetchFailed = true
		return sr
	}

	if len(items) > opts.ItemsPerFeed {
		items = items[:opts.ItemsPerFeed]
	}
	sr.Fetched = len(items)

	for _, item := range items {
		decision, localized, err := o.syncItem(ctx, metadata, item, opts)
		if err != nil {
			slog.Error("Item sync failed", "source", sourceURL, "external_id", item.ExternalID, "error", err)
			sr.Failed++
			continue
		}

		switch decision {
		case DecisionCreate:
			sr.Created++
		case DecisionUpdate:
			sr.Updated++
		case DecisionSkip:
			sr.Skipped++
		}
		if localized {
			sr.Localized++
		}
	}

	slog.Info("Source synced", "source", sourceURL, "fetched", sr.Fetched,
		"created", sr.Created, "updated", sr.Updated, "skipped", sr.Skipped,
		"failed", sr.Failed, "localized", sr.Localized)

	return sr
}

func (o *Orchestrator) syncItem(ctx context.Context, metadata *feed.Metadata, item feed.Item, opts Options) (Decision, bool, error) {
	if item.ExternalID == "" {
		// Without a stable identity the item would be re-created on every
		// run, so it is skipped instead.
		slog.Warn("Item has no external ID, skipping", "title", item.Title, "link", item.Link)
		return DecisionSkip, false, nil
	}

	decision, existing, err := o.resolver.Resolve(item)
	if err != nil {
		return decision, false, err
	}

	if decision == DecisionSkip {
		return decision, false, nil
	}

	if opts.ExtractContent && item.Content == "" && item.Link != "" && o.extractor != nil {
		content, err := o.extractor.Run(ctx, item.Link)
		if err != nil {
			slog.Debug("Content extraction failed, keeping feed content", "link", item.Link, "error", err)
		} else {
			item.Content = content
		}
	}

	var postID int64
	switch decision {
	case DecisionCreate:
		post := &database.Post{
			Title:       item.Title,
			Content:     item.Content,
			Status:      "publish",
			PublishedAt: item.PublishedAt,
			ModifiedAt:  item.PublishedAt,
			ExternalID:  item.ExternalID,
		}
		postID, err = o.posts.CreatePost(post)
		if err != nil {
			return decision, false, err
		}
	case DecisionUpdate:
		postID = existing.ID
		if err := o.posts.UpdatePost(postID, item.Title, item.Content, item.PublishedAt); err != nil {
			return decision, false, err
		}
	}

	categoryID, err := o.taxonomy.ResolveCategory(metadata.Title)
	if err != nil {
		return decision, false, err
	}

	tags := ExtractTags(item.Categories)
	if err := o.posts.SetCategoriesAndTags(postID, []int64{categoryID}, tags); err != nil {
		return decision, false, err
	}

	localized := false
	if opts.ImageImport && o.localizer != nil {
		rewritten, err := o.localizer.Run(ctx, postID, item.Content, item.PublishedAt)
		if err != nil {
			// The stored content stays as persisted above; localization
			// failures never fail the item.
			slog.Error("Media localization failed, keeping stored content",
				"post_id", postID, "external_id", item.ExternalID, "error", err)
		} else if rewritten != item.Content {
			if err := o.posts.UpdatePostContent(postID, rewritten); err != nil {
				return decision, false, err
			}
			localized = true
		}
	}

	return decision, localized, nil
}
