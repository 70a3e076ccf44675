package database

import (
	"database/sql"
	"fmt"
	"time"
)

var _ AttachmentRepository = (*AttachmentRepositoryImpl)(nil)

type AttachmentRepositoryImpl struct {
	db *DB
}

func NewAttachmentRepository(db *DB) *AttachmentRepositoryImpl {
	return &AttachmentRepositoryImpl{db: db}
}

// GetByPostAndSource looks up a previously imported attachment by its owning
// post and original remote URL, or nil when the pair has not been seen.
func (r *AttachmentRepositoryImpl) GetByPostAndSource(postID int64, sourceURL string) (*Attachment, error) {
	var att Attachment
	var createdAt int64

	err := r.db.QueryRow(`
		SELECT id, post_id, source_url, local_path, local_url, mime_type, created_at
		FROM attachments
		WHERE post_id = ? AND source_url = ?
	`, postID, sourceURL).Scan(&att.ID, &att.PostID, &att.SourceURL,
		&att.LocalPath, &att.LocalURL, &att.MimeType, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get attachment: %w", err)
	}

	att.CreatedAt = time.Unix(createdAt, 0).UTC()

	return &att, nil
}

func (r *AttachmentRepositoryImpl) GetAttachmentCount(postID int64) (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM attachments WHERE post_id = ?", postID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get attachment count: %w", err)
	}
	return count, nil
}

func (r *AttachmentRepositoryImpl) RegisterAttachment(att *Attachment) (int64, error) {
	result, err := r.db.Exec(`
		INSERT INTO attachments (post_id, source_url, local_path, local_url, mime_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, att.PostID, att.SourceURL, att.LocalPath, att.LocalURL, att.MimeType, time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to register attachment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get inserted attachment ID: %w", err)
	}

	return id, nil
}
