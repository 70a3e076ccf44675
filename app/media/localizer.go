package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/jhalves/rss-sync/app/database"
)

// HTML is treated as text here on purpose: DOM parsing would change
// whitespace and attribute-ordering fidelity of the stored content.
var imgSrcPattern = regexp.MustCompile(`(?i)<img[^>]+src\s*=\s*["']([^"']+)["']`)

// Localizer downloads images referenced by post content, registers them as
// attachments, and rewrites the content to point at the local copies.
// Already-imported URLs are reused via attachment lookup instead of being
// fetched again.
type Localizer struct {
	attachments database.AttachmentRepository
	uploads     *UploadStore
	httpClient  *http.Client
	userAgent   string
	maxSize     int64
}

// NewLocalizer creates a localizer. maxSize caps the downloaded byte count
// per image; zero means unlimited.
func NewLocalizer(attachments database.AttachmentRepository, uploads *UploadStore,
	httpClient *http.Client, userAgent string, maxSize int64) *Localizer {
	return &Localizer{
		attachments: attachments,
		uploads:     uploads,
		httpClient:  httpClient,
		userAgent:   userAgent,
		maxSize:     maxSize,
	}
}

// Run rewrites every <img> reference in html to a locally stored copy and
// returns the rewritten content. On any error the original stored content
// must be left untouched by the caller; no partial rewrite is returned.
func (l *Localizer) Run(ctx context.Context, postID int64, html string, publishedAt time.Time) (string, error) {
	matches := imgSrcPattern.FindAllStringSubmatch(html, -1)
	if len(matches) == 0 {
		return html, nil
	}

	seen := make(map[string]bool)
	var sourceURLs []string
	for _, m := range matches {
		if u := m[1]; !seen[u] {
			seen[u] = true
			sourceURLs = append(sourceURLs, u)
		}
	}

	remap := make(map[string]string)
	var remapOrder []string
	addRemap := func(from, to string) {
		if _, ok := remap[from]; !ok {
			remap[from] = to
			remapOrder = append(remapOrder, from)
		}
	}

	for _, sourceURL := range sourceURLs {
		att, err := l.attachments.GetByPostAndSource(postID, sourceURL)
		if err != nil {
			return "", fmt.Errorf("attachment lookup failed: %w", err)
		}

		if att != nil {
			slog.Debug("Reusing imported attachment", "post_id", postID, "source_url", sourceURL, "local_url", att.LocalURL)
			addRemap(sourceURL, att.LocalURL)
			continue
		}

		localURL, finalURL, err := l.importImage(ctx, postID, sourceURL, publishedAt)
		if err != nil {
			return "", err
		}

		addRemap(sourceURL, localURL)
		if finalURL != "" && finalURL != sourceURL {
			addRemap(finalURL, localURL)
		}
	}

	rewritten := html
	for _, original := range remapOrder {
		rewritten = strings.ReplaceAll(rewritten, original, remap[original])
	}

	return rewritten, nil
}

// importImage downloads one remote image into a freshly allocated placeholder
// and registers it as an attachment of the post. It returns the local URL and
// the redirect-final remote URL as reported by the transport.
func (l *Localizer) importImage(ctx context.Context, postID int64, rawURL string, publishedAt time.Time) (string, string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", "", &ImportFileError{URL: rawURL, Reason: ReasonNoResponse, Detail: err.Error()}
	}

	base := path.Base(parsed.Path)
	if base == "." || base == "/" {
		base = "image"
	}

	placeholder, err := l.uploads.Allocate(base, publishedAt)
	if errors.Is(err, ErrUnsupportedType) {
		placeholder, err = l.uploads.Allocate(base+".jpeg", publishedAt)
	}
	if err != nil {
		return "", "", &UploadDirError{Filename: base, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		os.Remove(placeholder.Path)
		return "", "", &ImportFileError{URL: rawURL, Reason: ReasonNoResponse, Detail: err.Error()}
	}
	req.Header.Set("User-Agent", l.userAgent)

	resp, err := l.httpClient.Do(req)
	if err != nil {
		os.Remove(placeholder.Path)
		return "", "", &ImportFileError{URL: rawURL, Reason: ReasonNoResponse, Detail: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		os.Remove(placeholder.Path)
		return "", "", &ImportFileError{URL: rawURL, Reason: ReasonBadStatus, Detail: resp.Status}
	}

	written, err := l.writeBody(placeholder.Path, resp.Body)
	if err != nil {
		os.Remove(placeholder.Path)
		return "", "", &ImportFileError{URL: rawURL, Reason: ReasonNoResponse, Detail: err.Error()}
	}

	if l.maxSize > 0 && written > l.maxSize {
		os.Remove(placeholder.Path)
		return "", "", &ImportFileError{URL: rawURL, Reason: ReasonTooLarge,
			Detail: fmt.Sprintf("exceeds %d bytes", l.maxSize)}
	}

	if resp.ContentLength >= 0 && written != resp.ContentLength {
		os.Remove(placeholder.Path)
		return "", "", &ImportFileError{URL: rawURL, Reason: ReasonSizeMismatch,
			Detail: fmt.Sprintf("declared %d bytes, got %d", resp.ContentLength, written)}
	}

	if written == 0 {
		os.Remove(placeholder.Path)
		return "", "", &ImportFileError{URL: rawURL, Reason: ReasonZeroSize}
	}

	att := &database.Attachment{
		PostID:    postID,
		SourceURL: rawURL,
		LocalPath: placeholder.Path,
		LocalURL:  placeholder.URL,
		MimeType:  MimeTypeFor(placeholder.Path),
	}
	if _, err := l.attachments.RegisterAttachment(att); err != nil {
		os.Remove(placeholder.Path)
		return "", "", fmt.Errorf("failed to register attachment: %w", err)
	}

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	slog.Debug("Imported image", "post_id", postID, "source_url", rawURL,
		"local_url", placeholder.URL, "bytes", written)

	return placeholder.URL, finalURL, nil
}

func (l *Localizer) writeBody(dest string, body io.Reader) (int64, error) {
	f, err := os.OpenFile(dest, os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("failed to open placeholder: %w", err)
	}

	// LimitReader leaves one extra byte so the size-cap check can tell
	// "exactly at the cap" from "over it".
	reader := body
	if l.maxSize > 0 {
		reader = io.LimitReader(body, l.maxSize+1)
	}

	written, copyErr := io.Copy(f, reader)
	closeErr := f.Close()

	if copyErr != nil {
		return written, fmt.Errorf("failed to write body: %w", copyErr)
	}
	if closeErr != nil {
		return written, fmt.Errorf("failed to close placeholder: %w", closeErr)
	}

	return written, nil
}
