package driven

import (
	"context"

	"github.com/ericfisherdev/promptvault/internal/domain/model"
)

// PromptStore defines the driven port for prompt persistence. The backup
// service reads the full set for snapshots and replaces it wholesale on
// restore; incremental edits come from the UI layer.
type PromptStore interface {
	// List returns all prompts in stable creation order.
	List(ctx context.Context) ([]model.Prompt, error)

	// Save inserts or updates a single prompt by ID.
	Save(ctx context.Context, p model.Prompt) error

	// ReplaceAll atomically replaces the full prompt set.
	ReplaceAll(ctx context.Context, prompts []model.Prompt) error
}
