package database

import (
	"database/sql"
	"fmt"
	"time"
)

var _ PostRepository = (*PostRepositoryImpl)(nil)

type PostRepositoryImpl struct {
	db *DB
}

func NewPostRepository(db *DB) *PostRepositoryImpl {
	return &PostRepositoryImpl{db: db}
}

// GetByExternalID returns the post carrying the given external item
// identifier, or nil when no such post exists. The unique index on
// external_id guarantees at most one match.
func (r *PostRepositoryImpl) GetByExternalID(externalID string) (*Post, error) {
	row := r.db.QueryRow(`
		SELECT id, title, content, status, published_at, modified_at, external_id, created_at
		FROM posts
		WHERE external_id = ?
	`, externalID)

	post, err := scanPost(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post by external ID: %w", err)
	}

	return post, nil
}

func (r *PostRepositoryImpl) GetPost(id int64) (*Post, error) {
	row := r.db.QueryRow(`
		SELECT id, title, content, status, published_at, modified_at, external_id, created_at
		FROM posts
		WHERE id = ?
	`, id)

	post, err := scanPost(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}

	return post, nil
}

func (r *PostRepositoryImpl) GetPostCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM posts").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get post count: %w", err)
	}
	return count, nil
}

func (r *PostRepositoryImpl) CreatePost(post *Post) (int64, error) {
	result, err := r.db.Exec(`
		INSERT INTO posts (title, content, status, published_at, modified_at, external_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, post.Title, post.Content, post.Status,
		post.PublishedAt.Unix(), post.ModifiedAt.Unix(), post.ExternalID,
		time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to create post: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get inserted post ID: %w", err)
	}

	return id, nil
}

// UpdatePost refreshes the mutable fields of a post. external_id is
// deliberately left untouched.
func (r *PostRepositoryImpl) UpdatePost(id int64, title, content string, modifiedAt time.Time) error {
	_, err := r.db.Exec(`
		UPDATE posts
		SET title = ?, content = ?, modified_at = ?
		WHERE id = ?
	`, title, content, modifiedAt.Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to update post: %w", err)
	}

	return nil
}

// UpdatePostContent rewrites only the content column, used after media
// localization. modified_at is preserved so the staleness check keeps
// comparing against the feed's own timestamp.
func (r *PostRepositoryImpl) UpdatePostContent(id int64, content string) error {
	_, err := r.db.Exec(`UPDATE posts SET content = ? WHERE id = ?`, content, id)
	if err != nil {
		return fmt.Errorf("failed to update post content: %w", err)
	}

	return nil
}

// SetCategoriesAndTags replaces the post's category and tag assignments.
func (r *PostRepositoryImpl) SetCategoriesAndTags(postID int64, categoryIDs []int64, tags []string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM post_categories WHERE post_id = ?`, postID); err != nil {
		return fmt.Errorf("failed to clear post categories: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM post_tags WHERE post_id = ?`, postID); err != nil {
		return fmt.Errorf("failed to clear post tags: %w", err)
	}

	for _, categoryID := range categoryIDs {
		if _, err := tx.Exec(`
			INSERT OR IGNORE INTO post_categories (post_id, category_id) VALUES (?, ?)
		`, postID, categoryID); err != nil {
			return fmt.Errorf("failed to assign category: %w", err)
		}
	}

	for i, tag := range tags {
		if _, err := tx.Exec(`
			INSERT OR IGNORE INTO post_tags (post_id, tag, position) VALUES (?, ?, ?)
		`, postID, tag, i); err != nil {
			return fmt.Errorf("failed to assign tag: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit taxonomy update: %w", err)
	}

	return nil
}

func (r *PostRepositoryImpl) GetTags(postID int64) ([]string, error) {
	rows, err := r.db.Query(`
		SELECT tag FROM post_tags WHERE post_id = ? ORDER BY position
	`, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to get post tags: %w", err)
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, fmt.Errorf("failed to scan tag row: %w", err)
		}
		tags = append(tags, tag)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tag rows: %w", err)
	}

	return tags, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*Post, error) {
	var post Post
	var publishedAt, modifiedAt, createdAt int64

	err := row.Scan(&post.ID, &post.Title, &post.Content, &post.Status,
		&publishedAt, &modifiedAt, &post.ExternalID, &createdAt)
	if err != nil {
		return nil, err
	}

	post.PublishedAt = time.Unix(publishedAt, 0).UTC()
	post.ModifiedAt = time.Unix(modifiedAt, 0).UTC()
	post.CreatedAt = time.Unix(createdAt, 0).UTC()

	return &post, nil
}
