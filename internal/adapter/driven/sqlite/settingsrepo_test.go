package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsRepo_GetAbsentKey(t *testing.T) {
	repo := NewSettingsRepo(setupTestDB(t))

	value, err := repo.Get(context.Background(), "githubSettings")
	require.NoError(t, err)
	assert.Empty(t, value)
}

func TestSettingsRepo_SetGetRoundTrip(t *testing.T) {
	repo := NewSettingsRepo(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "githubSettings", `{"enabled":true,"repositoryName":"alice/prompts"}`))

	value, err := repo.Get(ctx, "githubSettings")
	require.NoError(t, err)
	assert.JSONEq(t, `{"enabled":true,"repositoryName":"alice/prompts"}`, value)
}

func TestSettingsRepo_SetReplacesWholeValue(t *testing.T) {
	repo := NewSettingsRepo(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "lastBackup", "2026-08-01T00:00:00Z"))
	require.NoError(t, repo.Set(ctx, "lastBackup", "2026-08-30T00:00:00Z"))

	value, err := repo.Get(ctx, "lastBackup")
	require.NoError(t, err)
	assert.Equal(t, "2026-08-30T00:00:00Z", value)
}

func TestSettingsRepo_Delete(t *testing.T) {
	repo := NewSettingsRepo(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "theme", "dark"))
	require.NoError(t, repo.Delete(ctx, "theme"))

	value, err := repo.Get(ctx, "theme")
	require.NoError(t, err)
	assert.Empty(t, value)

	// Deleting an absent key is not an error.
	require.NoError(t, repo.Delete(ctx, "theme"))
}

func TestThemeRepo_ApplyAndCurrent(t *testing.T) {
	repo := NewThemeRepo(setupTestDB(t))
	ctx := context.Background()

	theme, err := repo.Current(ctx)
	require.NoError(t, err)
	assert.Empty(t, theme)

	require.NoError(t, repo.Apply(ctx, "dark"))
	require.NoError(t, repo.Apply(ctx, "light"))

	theme, err = repo.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "light", theme)
}
