package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/ericfisherdev/promptvault/internal/domain/model"
	"github.com/ericfisherdev/promptvault/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CacheStore = (*CacheRepo)(nil)

// CacheRepo is the SQLite implementation of the CacheStore port. Entries are
// keyed (store, url); headers are stored as JSON. The worker drops whole
// stores by name when its version tag changes.
type CacheRepo struct {
	db *DB
}

// NewCacheRepo creates a new CacheRepo backed by the given DB.
func NewCacheRepo(db *DB) *CacheRepo {
	return &CacheRepo{db: db}
}

// Put stores or replaces the entry under (entry.Store, entry.URL).
func (r *CacheRepo) Put(ctx context.Context, entry model.CacheEntry) error {
	headers, err := json.Marshal(entry.Header)
	if err != nil {
		return fmt.Errorf("marshal headers for %s: %w", entry.URL, err)
	}

	const query = `INSERT OR REPLACE INTO cache_entries (store, url, status, headers, body, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	_, err = r.db.Writer.ExecContext(ctx, query,
		entry.Store, entry.URL, entry.Status, string(headers), entry.Body, timeString(entry.FetchedAt),
	)
	if err != nil {
		return fmt.Errorf("put cache entry %s in %s: %w", entry.URL, entry.Store, err)
	}
	return nil
}

// Get retrieves the entry for url in the named store. Returns (nil, nil) on a
// cache miss.
func (r *CacheRepo) Get(ctx context.Context, store, url string) (*model.CacheEntry, error) {
	const query = `SELECT status, headers, body, fetched_at FROM cache_entries WHERE store = ? AND url = ?`

	entry := model.CacheEntry{Store: store, URL: url}
	var headers, fetchedAt string
	err := r.db.Reader.QueryRowContext(ctx, query, store, url).Scan(&entry.Status, &headers, &entry.Body, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cache entry %s in %s: %w", url, store, err)
	}

	entry.Header = http.Header{}
	if err := json.Unmarshal([]byte(headers), &entry.Header); err != nil {
		return nil, fmt.Errorf("parse headers for %s: %w", url, err)
	}
	if entry.FetchedAt, err = parseTime(fetchedAt); err != nil {
		return nil, fmt.Errorf("parse fetched_at for %s: %w", url, err)
	}

	return &entry, nil
}

// ListStores returns the distinct store names currently present.
func (r *CacheRepo) ListStores(ctx context.Context) ([]string, error) {
	const query = `SELECT DISTINCT store FROM cache_entries ORDER BY store`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list cache stores: %w", err)
	}
	defer rows.Close()

	var stores []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan cache store name: %w", err)
		}
		stores = append(stores, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cache stores: %w", err)
	}

	return stores, nil
}

// DropStore deletes every entry in the named store.
func (r *CacheRepo) DropStore(ctx context.Context, store string) error {
	const query = `DELETE FROM cache_entries WHERE store = ?`

	if _, err := r.db.Writer.ExecContext(ctx, query, store); err != nil {
		return fmt.Errorf("drop cache store %q: %w", store, err)
	}
	return nil
}

// DropAll deletes every entry in every store.
func (r *CacheRepo) DropAll(ctx context.Context) error {
	if _, err := r.db.Writer.ExecContext(ctx, `DELETE FROM cache_entries`); err != nil {
		return fmt.Errorf("drop all cache stores: %w", err)
	}
	return nil
}
