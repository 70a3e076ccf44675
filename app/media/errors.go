package media

import (
	"fmt"
)

// UploadDirError reports that a local placeholder file could not be
// allocated before any network call was made. The owning post keeps its
// content as-is; only the image import is skipped.
type UploadDirError struct {
	Filename string
	Err      error
}

func (e *UploadDirError) Error() string {
	return fmt.Sprintf("failed to allocate upload placeholder for %q: %v", e.Filename, e.Err)
}

func (e *UploadDirError) Unwrap() error {
	return e.Err
}

type ImportReason string

const (
	ReasonNoResponse   ImportReason = "no-response"
	ReasonBadStatus    ImportReason = "bad-status"
	ReasonSizeMismatch ImportReason = "size-mismatch"
	ReasonZeroSize     ImportReason = "zero-size"
	ReasonTooLarge     ImportReason = "too-large"
)

// ImportFileError reports a failed media download. The partial file has
// already been removed when this error is returned.
type ImportFileError struct {
	URL    string
	Reason ImportReason
	Detail string
}

func (e *ImportFileError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("failed to import %s: %s", e.URL, e.Reason)
	}
	return fmt.Sprintf("failed to import %s: %s (%s)", e.URL, e.Reason, e.Detail)
}
