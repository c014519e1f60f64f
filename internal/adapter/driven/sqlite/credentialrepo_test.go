package sqlite

import (
	"context"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/promptvault/internal/domain/port/driven"
)

func testKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return key
}

func TestCredentialRepo_SetGetRoundTrip(t *testing.T) {
	repo := NewCredentialRepo(setupTestDB(t), testKey(t))
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "github", "token", "ghp_secret"))

	value, err := repo.Get(ctx, "github", "token")
	require.NoError(t, err)
	assert.Equal(t, "ghp_secret", value)
}

func TestCredentialRepo_GetAbsent(t *testing.T) {
	repo := NewCredentialRepo(setupTestDB(t), testKey(t))

	value, err := repo.Get(context.Background(), "github", "token")
	require.NoError(t, err)
	assert.Empty(t, value)
}

func TestCredentialRepo_ValueIsEncryptedAtRest(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepo(db, testKey(t))
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "github", "token", "ghp_secret"))

	var stored string
	err := db.Reader.QueryRowContext(ctx, `SELECT value FROM credentials WHERE service = 'github' AND key = 'token'`).Scan(&stored)
	require.NoError(t, err)
	assert.NotContains(t, stored, "ghp_secret")
}

func TestCredentialRepo_SetReplaces(t *testing.T) {
	repo := NewCredentialRepo(setupTestDB(t), testKey(t))
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "github", "token", "old"))
	require.NoError(t, repo.Set(ctx, "github", "token", "new"))

	value, err := repo.Get(ctx, "github", "token")
	require.NoError(t, err)
	assert.Equal(t, "new", value)

	creds, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, creds, 1)
}

func TestCredentialRepo_Delete(t *testing.T) {
	repo := NewCredentialRepo(setupTestDB(t), testKey(t))
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "github", "token", "ghp_secret"))
	require.NoError(t, repo.Delete(ctx, "github", "token"))

	value, err := repo.Get(ctx, "github", "token")
	require.NoError(t, err)
	assert.Empty(t, value)
}

func TestCredentialRepo_NilKeyDisablesStorage(t *testing.T) {
	repo := NewCredentialRepo(setupTestDB(t), nil)
	ctx := context.Background()

	err := repo.Set(ctx, "github", "token", "ghp_secret")
	assert.ErrorIs(t, err, driven.ErrEncryptionKeyNotSet)

	_, err = repo.Get(ctx, "github", "token")
	assert.ErrorIs(t, err, driven.ErrEncryptionKeyNotSet)

	_, err = repo.List(ctx)
	assert.ErrorIs(t, err, driven.ErrEncryptionKeyNotSet)
}
