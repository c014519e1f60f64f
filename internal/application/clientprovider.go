package application

import (
	"context"
	"sync"

	"github.com/ericfisherdev/promptvault/internal/domain/port/driven"
)

// ClientProvider caches the remote client produced by a ClientFactory and
// enables runtime hot-swap. It holds a mutex-protected reference to the
// current driven.RemoteStore, allowing credential updates to take effect
// without restarting the daemon: Invalidate drops the cached client and the
// next CreateClient resolves a fresh credential.
type ClientProvider struct {
	factory driven.ClientFactory

	mu     sync.RWMutex
	client driven.RemoteStore
}

var (
	_ driven.ClientFactory = (*ClientProvider)(nil)
	_ ClientInvalidator    = (*ClientProvider)(nil)
)

// NewClientProvider wraps factory with a hot-swappable client cache.
func NewClientProvider(factory driven.ClientFactory) *ClientProvider {
	return &ClientProvider{factory: factory}
}

// CreateClient returns the cached client, constructing one through the
// underlying factory on first use or after Invalidate.
func (p *ClientProvider) CreateClient(ctx context.Context) (driven.RemoteStore, error) {
	p.mu.RLock()
	client := p.client
	p.mu.RUnlock()
	if client != nil {
		return client, nil
	}

	client, err := p.factory.CreateClient(ctx)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.client = client
	p.mu.Unlock()
	return client, nil
}

// IsAvailable reports whether a client is held or could be constructed.
func (p *ClientProvider) IsAvailable(ctx context.Context) bool {
	if p.HasClient() {
		return true
	}
	return p.factory.IsAvailable(ctx)
}

// IsConfigured delegates the live connectivity probe to the factory.
func (p *ClientProvider) IsConfigured(ctx context.Context) bool {
	return p.factory.IsConfigured(ctx)
}

// Invalidate drops the cached client. The next caller of CreateClient will
// receive a freshly constructed one.
func (p *ClientProvider) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.client = nil
}

// HasClient returns true if a non-nil client is currently held.
func (p *ClientProvider) HasClient() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.client != nil
}
