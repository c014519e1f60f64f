package driven

import "context"

// SettingsStore defines the driven port for keyed durable settings.
// It is a single shared mutable resource with no transaction discipline:
// writers replace whole values and last write wins.
type SettingsStore interface {
	// Get retrieves the raw value for key. Returns ("", nil) if absent.
	Get(ctx context.Context, key string) (string, error)

	// Set stores or replaces the value for key.
	Set(ctx context.Context, key, value string) error

	// Delete removes the value for key. Removing an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
