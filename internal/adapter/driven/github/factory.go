package github

import (
	"context"
	"errors"
	"net/http"

	"github.com/ericfisherdev/promptvault/internal/domain/backuperr"
	"github.com/ericfisherdev/promptvault/internal/domain/port/driven"
)

// Factory constructs authenticated remote clients on demand. The credential
// strategy is fixed at startup; tokens are resolved per call so an expired
// connector credential is transparently refreshed.
type Factory struct {
	source  driven.CredentialSource
	version string

	// baseURL and httpClient override the production API endpoint. Both are
	// empty outside tests.
	baseURL    string
	httpClient *http.Client
}

// NewFactory creates a Factory that authenticates via source.
func NewFactory(source driven.CredentialSource, version string) *Factory {
	return &Factory{source: source, version: version}
}

// NewFactoryWithEndpoint creates a Factory pointed at a custom API endpoint.
// Intended for testing against an httptest server.
func NewFactoryWithEndpoint(source driven.CredentialSource, version, baseURL string, httpClient *http.Client) *Factory {
	return &Factory{source: source, version: version, baseURL: baseURL, httpClient: httpClient}
}

// CreateClient resolves a credential and wraps it in an authenticated client.
// Credential failures keep their AuthError identity; anything else is wrapped
// in a ClientCreationError.
func (f *Factory) CreateClient(ctx context.Context) (driven.RemoteStore, error) {
	cred, err := f.source.Token(ctx)
	if err != nil {
		var authErr *backuperr.AuthError
		if errors.As(err, &authErr) {
			return nil, err
		}
		return nil, &backuperr.ClientCreationError{Err: err}
	}

	if f.baseURL != "" {
		client, err := NewClientWithHTTPClient(f.httpClient, f.baseURL)
		if err != nil {
			return nil, &backuperr.UnavailableError{Err: err}
		}
		return client, nil
	}

	return NewClient(cred.Token, f.version), nil
}

// IsAvailable is a non-throwing probe: true when a credential resolves and a
// client can be constructed. No network traffic.
func (f *Factory) IsAvailable(ctx context.Context) bool {
	_, err := f.CreateClient(ctx)
	return err == nil
}

// IsConfigured additionally performs one live connectivity check against the
// remote API. Returns false, never an error, so callers can gate state
// cheaply.
func (f *Factory) IsConfigured(ctx context.Context) bool {
	client, err := f.CreateClient(ctx)
	if err != nil {
		return false
	}

	if _, err := client.CurrentUser(ctx); err != nil {
		return false
	}
	return true
}
