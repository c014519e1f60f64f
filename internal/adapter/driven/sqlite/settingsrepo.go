package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ericfisherdev/promptvault/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SettingsStore = (*SettingsRepo)(nil)

// SettingsRepo is the SQLite implementation of the SettingsStore port.
// Values are replaced whole; there is no version column and concurrent
// writers to the same key resolve last-write-wins.
type SettingsRepo struct {
	db *DB
}

// NewSettingsRepo creates a new SettingsRepo backed by the given DB.
func NewSettingsRepo(db *DB) *SettingsRepo {
	return &SettingsRepo{db: db}
}

// Get retrieves the raw value for key. Returns ("", nil) if absent.
func (r *SettingsRepo) Get(ctx context.Context, key string) (string, error) {
	const query = `SELECT value FROM settings WHERE key = ?`

	var value string
	err := r.db.Reader.QueryRowContext(ctx, query, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, nil
}

// Set stores or replaces the value for key.
func (r *SettingsRepo) Set(ctx context.Context, key, value string) error {
	const query = `INSERT OR REPLACE INTO settings (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)`

	if _, err := r.db.Writer.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}

// Delete removes the value for key. Removing an absent key is not an error.
func (r *SettingsRepo) Delete(ctx context.Context, key string) error {
	const query = `DELETE FROM settings WHERE key = ?`

	if _, err := r.db.Writer.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("delete setting %q: %w", key, err)
	}
	return nil
}
