package database

import (
	"time"
)

type PostRepository interface {
	GetByExternalID(externalID string) (*Post, error)
	GetPost(id int64) (*Post, error)
	GetPostCount() (int, error)

	CreatePost(post *Post) (int64, error)
	UpdatePost(id int64, title, content string, modifiedAt time.Time) error
	UpdatePostContent(id int64, content string) error

	SetCategoriesAndTags(postID int64, categoryIDs []int64, tags []string) error
	GetTags(postID int64) ([]string, error)
}

type AttachmentRepository interface {
	GetByPostAndSource(postID int64, sourceURL string) (*Attachment, error)
	GetAttachmentCount(postID int64) (int, error)

	RegisterAttachment(att *Attachment) (int64, error)
}

type TermRepository interface {
	FindOrCreateCategory(name string) (int64, error)
}
