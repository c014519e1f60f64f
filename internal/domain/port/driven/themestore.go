package driven

import "context"

// ThemeStore defines the driven port for the active UI theme. Restore applies
// a theme only when the backup document carries one; absence leaves the
// current theme untouched.
type ThemeStore interface {
	// Current returns the active theme name, or "" when none is set.
	Current(ctx context.Context) (string, error)

	// Apply persists and activates the given theme.
	Apply(ctx context.Context, theme string) error
}
