package application

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/promptvault/internal/domain/port/driven"
)

type countingFactory struct {
	fakeFactory
	creates int
}

func (c *countingFactory) CreateClient(ctx context.Context) (driven.RemoteStore, error) {
	c.creates++
	return c.fakeFactory.CreateClient(ctx)
}

func TestClientProvider_CachesCreatedClient(t *testing.T) {
	remote := &fakeRemote{}
	factory := &countingFactory{fakeFactory: fakeFactory{remote: remote}}
	provider := NewClientProvider(factory)

	ctx := context.Background()
	first, err := provider.CreateClient(ctx)
	require.NoError(t, err)
	second, err := provider.CreateClient(ctx)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, factory.creates)
	assert.True(t, provider.HasClient())
}

func TestClientProvider_InvalidateForcesFreshClient(t *testing.T) {
	factory := &countingFactory{fakeFactory: fakeFactory{remote: &fakeRemote{}}}
	provider := NewClientProvider(factory)

	ctx := context.Background()
	_, err := provider.CreateClient(ctx)
	require.NoError(t, err)

	provider.Invalidate()
	assert.False(t, provider.HasClient())

	_, err = provider.CreateClient(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, factory.creates)
}

func TestClientProvider_CreateErrorIsNotCached(t *testing.T) {
	factory := &countingFactory{fakeFactory: fakeFactory{createErr: errors.New("no token")}}
	provider := NewClientProvider(factory)

	ctx := context.Background()
	_, err := provider.CreateClient(ctx)
	require.Error(t, err)
	assert.False(t, provider.HasClient())

	factory.createErr = nil
	factory.remote = &fakeRemote{}
	_, err = provider.CreateClient(ctx)
	require.NoError(t, err)
	assert.True(t, provider.HasClient())
}

func TestClientProvider_IsAvailable(t *testing.T) {
	factory := &countingFactory{fakeFactory: fakeFactory{createErr: errors.New("no token")}}
	provider := NewClientProvider(factory)

	assert.False(t, provider.IsAvailable(context.Background()))

	factory.createErr = nil
	factory.remote = &fakeRemote{}
	assert.True(t, provider.IsAvailable(context.Background()))
}
