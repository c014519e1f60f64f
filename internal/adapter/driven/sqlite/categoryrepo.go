package sqlite

import (
	"context"
	"fmt"

	"github.com/ericfisherdev/promptvault/internal/domain/model"
	"github.com/ericfisherdev/promptvault/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CategoryStore = (*CategoryRepo)(nil)

// CategoryRepo is the SQLite implementation of the CategoryStore port.
type CategoryRepo struct {
	db *DB
}

// NewCategoryRepo creates a new CategoryRepo backed by the given DB.
func NewCategoryRepo(db *DB) *CategoryRepo {
	return &CategoryRepo{db: db}
}

// List returns all categories keyed by name.
func (r *CategoryRepo) List(ctx context.Context) (map[string]model.Category, error) {
	const query = `SELECT name, color, description, created_at FROM categories`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := map[string]model.Category{}
	for rows.Next() {
		var c model.Category
		var createdAt string
		if err := rows.Scan(&c.Name, &c.Color, &c.Description, &createdAt); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		if c.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at for category %q: %w", c.Name, err)
		}
		categories[c.Name] = c
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}

	return categories, nil
}

// Save inserts or updates a single category by name.
func (r *CategoryRepo) Save(ctx context.Context, c model.Category) error {
	const query = `INSERT INTO categories (name, color, description, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET color = excluded.color, description = excluded.description`

	_, err := r.db.Writer.ExecContext(ctx, query, c.Name, c.Color, c.Description, timeString(c.CreatedAt))
	if err != nil {
		return fmt.Errorf("save category %q: %w", c.Name, err)
	}
	return nil
}

// ReplaceAll atomically replaces the full category set.
func (r *CategoryRepo) ReplaceAll(ctx context.Context, categories map[string]model.Category) error {
	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace categories: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM categories`); err != nil {
		return fmt.Errorf("clear categories: %w", err)
	}

	const insert = `INSERT INTO categories (name, color, description, created_at) VALUES (?, ?, ?, ?)`
	for name, c := range categories {
		// The map key is authoritative for the stored name.
		_, err := tx.ExecContext(ctx, insert, name, c.Color, c.Description, timeString(c.CreatedAt))
		if err != nil {
			return fmt.Errorf("replace category %q: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace categories: %w", err)
	}
	return nil
}
