package sqlite

import (
	"context"

	"github.com/ericfisherdev/promptvault/internal/domain/port/driven"
)

// themeKey is the settings key holding the active UI theme.
const themeKey = "theme"

// Compile-time interface satisfaction check.
var _ driven.ThemeStore = (*ThemeRepo)(nil)

// ThemeRepo is the SQLite implementation of the ThemeStore port. The theme
// is a single settings row; an absent row means no theme has been chosen.
type ThemeRepo struct {
	settings *SettingsRepo
}

// NewThemeRepo creates a new ThemeRepo backed by the given DB.
func NewThemeRepo(db *DB) *ThemeRepo {
	return &ThemeRepo{settings: NewSettingsRepo(db)}
}

// Current returns the active theme name, or "" when none is set.
func (r *ThemeRepo) Current(ctx context.Context) (string, error) {
	return r.settings.Get(ctx, themeKey)
}

// Apply persists and activates the given theme.
func (r *ThemeRepo) Apply(ctx context.Context, theme string) error {
	return r.settings.Set(ctx, themeKey, theme)
}
