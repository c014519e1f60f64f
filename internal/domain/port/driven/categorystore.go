package driven

import (
	"context"

	"github.com/ericfisherdev/promptvault/internal/domain/model"
)

// CategoryStore defines the driven port for category persistence.
type CategoryStore interface {
	// List returns all categories keyed by name.
	List(ctx context.Context) (map[string]model.Category, error)

	// Save inserts or updates a single category by name.
	Save(ctx context.Context, c model.Category) error

	// ReplaceAll atomically replaces the full category set.
	ReplaceAll(ctx context.Context, categories map[string]model.Category) error
}
