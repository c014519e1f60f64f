package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/promptvault/internal/domain/backuperr"
	"github.com/ericfisherdev/promptvault/internal/domain/model"
	"github.com/ericfisherdev/promptvault/internal/domain/port/driven"
)

type memCredentials struct {
	values map[string]string
	setErr error
}

func credKey(service, key string) string { return service + "/" + key }

func (m *memCredentials) Set(_ context.Context, service, key, plaintext string) error {
	if m.setErr != nil {
		return m.setErr
	}
	if m.values == nil {
		m.values = map[string]string{}
	}
	m.values[credKey(service, key)] = plaintext
	return nil
}

func (m *memCredentials) Get(_ context.Context, service, key string) (string, error) {
	return m.values[credKey(service, key)], nil
}

func (m *memCredentials) List(context.Context) ([]model.StoredCredential, error) {
	return nil, nil
}

func (m *memCredentials) Delete(_ context.Context, service, key string) error {
	delete(m.values, credKey(service, key))
	return nil
}

type countingInvalidator struct {
	invalidations int
}

func (c *countingInvalidator) Invalidate() { c.invalidations++ }

func TestSetToken_StoresTrimmedAndInvalidates(t *testing.T) {
	creds := &memCredentials{}
	inv := &countingInvalidator{}
	svc := NewTokenService(creds, inv)

	require.NoError(t, svc.SetToken(context.Background(), "  ghp_secret \n"))

	stored, err := creds.Get(context.Background(), driven.CredentialServiceGitHub, driven.CredentialKeyToken)
	require.NoError(t, err)
	assert.Equal(t, "ghp_secret", stored)
	assert.Equal(t, 1, inv.invalidations)
}

func TestSetToken_RejectsBlank(t *testing.T) {
	creds := &memCredentials{}
	inv := &countingInvalidator{}
	svc := NewTokenService(creds, inv)

	err := svc.SetToken(context.Background(), "   ")

	require.Error(t, err)
	assert.True(t, backuperr.IsConfig(err))
	assert.Empty(t, creds.values)
	assert.Zero(t, inv.invalidations)
}

func TestSetToken_StoreErrorDoesNotInvalidate(t *testing.T) {
	creds := &memCredentials{setErr: driven.ErrEncryptionKeyNotSet}
	inv := &countingInvalidator{}
	svc := NewTokenService(creds, inv)

	err := svc.SetToken(context.Background(), "ghp_secret")

	require.ErrorIs(t, err, driven.ErrEncryptionKeyNotSet)
	assert.Zero(t, inv.invalidations)
}

func TestClearToken_RemovesAndInvalidates(t *testing.T) {
	creds := &memCredentials{}
	inv := &countingInvalidator{}
	svc := NewTokenService(creds, inv)

	require.NoError(t, svc.SetToken(context.Background(), "ghp_secret"))
	require.NoError(t, svc.ClearToken(context.Background()))

	stored, err := svc.TokenStored(context.Background())
	require.NoError(t, err)
	assert.False(t, stored)
	assert.Equal(t, 2, inv.invalidations)
}

func TestTokenStored(t *testing.T) {
	creds := &memCredentials{}
	svc := NewTokenService(creds, &countingInvalidator{})

	stored, err := svc.TokenStored(context.Background())
	require.NoError(t, err)
	assert.False(t, stored)

	require.NoError(t, svc.SetToken(context.Background(), "ghp_secret"))

	stored, err = svc.TokenStored(context.Background())
	require.NoError(t, err)
	assert.True(t, stored)
}
