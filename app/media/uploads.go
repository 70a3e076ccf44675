package media

import (
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ErrUnsupportedType is returned by Allocate when the filename's extension
// is not a recognized media type.
var ErrUnsupportedType = errors.New("unsupported file type")

var allowedExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".bmp":  "image/bmp",
	".svg":  "image/svg+xml",
	".ico":  "image/vnd.microsoft.icon",
	".avif": "image/avif",
}

// UploadStore allocates placeholder files for downloaded media under a
// year/month directory tree scoped by the owning post's publish date, and
// maps stored files to public URLs.
type UploadStore struct {
	baseDir string
	baseURL string
}

func NewUploadStore(baseDir, baseURL string) *UploadStore {
	return &UploadStore{
		baseDir: baseDir,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

type Placeholder struct {
	Path string
	URL  string
}

// Allocate creates an empty placeholder file for the given filename under
// the date-scoped upload directory. Name collisions get a numeric suffix so
// an existing upload is never overwritten.
func (s *UploadStore) Allocate(filename string, scope time.Time) (*Placeholder, error) {
	name := SanitizeFilename(filename)

	ext := strings.ToLower(filepath.Ext(name))
	if _, ok := allowedExtensions[ext]; !ok {
		return nil, ErrUnsupportedType
	}

	year := scope.Format("2006")
	month := scope.Format("01")

	dir := filepath.Join(s.baseDir, year, month)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	stem := strings.TrimSuffix(name, ext)
	candidate := name
	for i := 1; ; i++ {
		f, err := os.OpenFile(filepath.Join(dir, candidate), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			f.Close()
			break
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("failed to create placeholder: %w", err)
		}
		candidate = fmt.Sprintf("%s-%d%s", stem, i, ext)
	}

	return &Placeholder{
		Path: filepath.Join(dir, candidate),
		URL:  fmt.Sprintf("%s/%s/%s/%s", s.baseURL, year, month, candidate),
	}, nil
}

// MimeTypeFor derives the MIME type of a stored file from its extension.
func MimeTypeFor(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if t, ok := allowedExtensions[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}

var foldTransformer = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// SanitizeFilename folds the name to plain ASCII where possible and strips
// characters that are unsafe in filenames or URLs.
func SanitizeFilename(name string) string {
	if folded, _, err := transform.String(foldTransformer, name); err == nil {
		name = folded
	}

	name = unsafeFilenameChars.ReplaceAllString(name, "-")
	name = strings.Trim(name, "-.")

	if name == "" {
		name = "file"
	}

	return name
}
