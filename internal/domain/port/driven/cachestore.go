package driven

import (
	"context"

	"github.com/ericfisherdev/promptvault/internal/domain/model"
)

// CacheStore defines the driven port for the offline cache worker's named,
// versioned response stores. Eviction is wholesale: a store is dropped by
// name when its version tag is superseded.
type CacheStore interface {
	// Put stores or replaces the entry under (entry.Store, entry.URL).
	Put(ctx context.Context, entry model.CacheEntry) error

	// Get retrieves the entry for url in the named store.
	// Returns (nil, nil) on a cache miss.
	Get(ctx context.Context, store, url string) (*model.CacheEntry, error)

	// ListStores returns the distinct store names currently present.
	ListStores(ctx context.Context) ([]string, error)

	// DropStore deletes every entry in the named store.
	DropStore(ctx context.Context, store string) error

	// DropAll deletes every entry in every store.
	DropAll(ctx context.Context) error
}
