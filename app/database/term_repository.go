package database

import (
	"database/sql"
	"fmt"
)

var _ TermRepository = (*TermRepositoryImpl)(nil)

type TermRepositoryImpl struct {
	db *DB
}

func NewTermRepository(db *DB) *TermRepositoryImpl {
	return &TermRepositoryImpl{db: db}
}

// FindOrCreateCategory resolves a category by exact name, creating it when
// absent. Resolution is idempotent, so callers can safely re-resolve on
// every run without a persistent name cache.
func (r *TermRepositoryImpl) FindOrCreateCategory(name string) (int64, error) {
	var id int64
	err := r.db.QueryRow(`SELECT id FROM categories WHERE name = ?`, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("failed to look up category: %w", err)
	}

	result, err := r.db.Exec(`INSERT INTO categories (name) VALUES (?)`, name)
	if err != nil {
		return 0, fmt.Errorf("failed to create category: %w", err)
	}

	id, err = result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get inserted category ID: %w", err)
	}

	return id, nil
}
