package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// FetchError marks a source as unreachable or unparseable for this run.
// The orchestrator skips the source and carries on with the others.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

type cacheEntry struct {
	metadata  *Metadata
	items     []Item
	fetchedAt time.Time
}

// Client fetches and parses remote feeds. Results are cached per URL for
// cacheTTL so repeated runs within the window do not hit upstream again.
type Client struct {
	parser     *Parser
	httpClient *http.Client
	userAgent  string
	cacheTTL   time.Duration

	mu    sync.Mutex
	cache map[string]cacheEntry
}

func NewClient(httpClient *http.Client, userAgent string, cacheTTL time.Duration) *Client {
	return &Client{
		parser:     NewParser(),
		httpClient: httpClient,
		userAgent:  userAgent,
		cacheTTL:   cacheTTL,
		cache:      make(map[string]cacheEntry),
	}
}

// Fetch returns the normalized items of the feed at sourceURL in feed order.
// All failures are reported as *FetchError.
func (c *Client) Fetch(ctx context.Context, sourceURL string) (*Metadata, []Item, error) {
	c.mu.Lock()
	entry, ok := c.cache[sourceURL]
	c.mu.Unlock()

	if ok && time.Since(entry.fetchedAt) < c.cacheTTL {
		return entry.metadata, entry.items, nil
	}

	data, err := c.download(ctx, sourceURL)
	if err != nil {
		return nil, nil, &FetchError{URL: sourceURL, Err: err}
	}

	metadata, items, err := c.parser.Run(data)
	if err != nil {
		return nil, nil, &FetchError{URL: sourceURL, Err: err}
	}

	c.mu.Lock()
	c.cache[sourceURL] = cacheEntry{metadata: metadata, items: items, fetchedAt: time.Now()}
	c.mu.Unlock()

	return metadata, items, nil
}

func (c *Client) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("empty response body")
	}

	return data, nil
}
