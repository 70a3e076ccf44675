package feed

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-shiori/go-readability"
)

// ContentExtractor fills in item content for feeds that only ship a bare
// summary, by fetching the item link and running it through readability.
type ContentExtractor struct {
	httpClient *http.Client
	userAgent  string
}

func NewContentExtractor(httpClient *http.Client, userAgent string) *ContentExtractor {
	return &ContentExtractor{
		httpClient: httpClient,
		userAgent:  userAgent,
	}
}

func (e *ContentExtractor) Run(ctx context.Context, link string) (string, error) {
	pageURL, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("invalid item link: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", link, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", e.userAgent)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	article, err := readability.FromReader(resp.Body, pageURL)
	if err != nil {
		return "", fmt.Errorf("failed to extract content: %w", err)
	}

	if article.Content == "" {
		return "", fmt.Errorf("no content extracted from %s", link)
	}

	slog.Debug("Content extracted successfully",
		"link", link,
		"title", article.Title,
		"content_length", len(article.Content))

	return article.Content, nil
}
