package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ericfisherdev/promptvault/internal/domain/model"
	"github.com/ericfisherdev/promptvault/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.PromptStore = (*PromptRepo)(nil)

// PromptRepo is the SQLite implementation of the PromptStore port.
// Tags are stored as a JSON array; the position column preserves the
// sequence order that backup documents carry.
type PromptRepo struct {
	db *DB
}

// NewPromptRepo creates a new PromptRepo backed by the given DB.
func NewPromptRepo(db *DB) *PromptRepo {
	return &PromptRepo{db: db}
}

// List returns all prompts in stored position order.
func (r *PromptRepo) List(ctx context.Context) ([]model.Prompt, error) {
	const query = `SELECT id, title, content, category, tags, favorite, created_at, updated_at
		FROM prompts ORDER BY position, created_at`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list prompts: %w", err)
	}
	defer rows.Close()

	prompts := []model.Prompt{}
	for rows.Next() {
		var p model.Prompt
		var tagsJSON, createdAt, updatedAt string
		var favorite int
		if err := rows.Scan(&p.ID, &p.Title, &p.Content, &p.CategoryName, &tagsJSON, &favorite, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan prompt: %w", err)
		}

		if err := json.Unmarshal([]byte(tagsJSON), &p.Tags); err != nil {
			return nil, fmt.Errorf("parse tags for prompt %s: %w", p.ID, err)
		}
		p.Favorite = favorite != 0

		if p.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at for prompt %s: %w", p.ID, err)
		}
		if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, fmt.Errorf("parse updated_at for prompt %s: %w", p.ID, err)
		}

		prompts = append(prompts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate prompts: %w", err)
	}

	return prompts, nil
}

// Save inserts or updates a single prompt by ID. Position is preserved for
// existing rows and appended for new ones.
func (r *PromptRepo) Save(ctx context.Context, p model.Prompt) error {
	tagsJSON, err := marshalTags(p.Tags)
	if err != nil {
		return fmt.Errorf("save prompt %s: %w", p.ID, err)
	}

	const query = `INSERT INTO prompts (id, title, content, category, tags, favorite, position, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, COALESCE((SELECT position FROM prompts WHERE id = ?), (SELECT COALESCE(MAX(position), -1) + 1 FROM prompts)), ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title,
			content = excluded.content,
			category = excluded.category,
			tags = excluded.tags,
			favorite = excluded.favorite,
			updated_at = excluded.updated_at`

	_, err = r.db.Writer.ExecContext(ctx, query,
		p.ID, p.Title, p.Content, p.CategoryName, tagsJSON, boolToInt(p.Favorite), p.ID,
		timeString(p.CreatedAt), timeString(p.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("save prompt %s: %w", p.ID, err)
	}
	return nil
}

// ReplaceAll atomically replaces the full prompt set, assigning positions in
// slice order. Used by restore, which is all-or-nothing per data kind.
func (r *PromptRepo) ReplaceAll(ctx context.Context, prompts []model.Prompt) error {
	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace prompts: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM prompts`); err != nil {
		return fmt.Errorf("clear prompts: %w", err)
	}

	const insert = `INSERT INTO prompts (id, title, content, category, tags, favorite, position, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	for i, p := range prompts {
		tagsJSON, err := marshalTags(p.Tags)
		if err != nil {
			return fmt.Errorf("replace prompt %s: %w", p.ID, err)
		}
		_, err = tx.ExecContext(ctx, insert,
			p.ID, p.Title, p.Content, p.CategoryName, tagsJSON, boolToInt(p.Favorite), i,
			timeString(p.CreatedAt), timeString(p.UpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("replace prompt %s: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace prompts: %w", err)
	}
	return nil
}

func marshalTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("marshal tags: %w", err)
	}
	return string(data), nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func timeString(t time.Time) string {
	if t.IsZero() {
		t = time.Now().UTC()
	}
	return t.UTC().Format(time.RFC3339)
}
