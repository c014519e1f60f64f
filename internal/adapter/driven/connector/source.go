// Package connector implements the CredentialSource port. Two strategies
// exist: the embedded-platform connector, which exchanges an identity token
// for a short-lived access token, and the stored user token. The strategy is
// selected once at startup.
package connector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/ericfisherdev/promptvault/internal/config"
	"github.com/ericfisherdev/promptvault/internal/domain/backuperr"
	"github.com/ericfisherdev/promptvault/internal/domain/model"
	"github.com/ericfisherdev/promptvault/internal/domain/port/driven"
)

// refreshSkew re-fetches connector credentials slightly before their stated
// expiry so a token never goes stale mid-request.
const refreshSkew = 30 * time.Second

// Compile-time interface satisfaction checks.
var (
	_ driven.CredentialSource = (*Source)(nil)
	_ driven.CredentialSource = (*StoredTokenSource)(nil)
	_ driven.CredentialSource = (*Chain)(nil)
)

// Source obtains access tokens from the embedded-platform connector endpoint.
// The resolved credential is cached in process memory only and re-fetched
// once expired; it is never written to durable storage.
type Source struct {
	endpoint      string
	identityToken string
	httpClient    *http.Client
	now           func() time.Time

	mu     sync.Mutex
	cached model.Credential
}

// NewSource creates a connector Source. endpoint and identityToken may be
// empty; Token then fails with an AuthError rather than at construction.
func NewSource(endpoint, identityToken string, httpClient *http.Client) *Source {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Source{
		endpoint:      endpoint,
		identityToken: identityToken,
		httpClient:    httpClient,
		now:           time.Now,
	}
}

// tokenResponse is the connector's exchange payload.
type tokenResponse struct {
	AccessToken string     `json:"access_token"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

// Token returns the cached credential while it is valid, otherwise exchanges
// the identity token for a fresh one.
func (s *Source) Token(ctx context.Context) (model.Credential, error) {
	if s.endpoint == "" || s.identityToken == "" {
		return model.Credential{}, &backuperr.AuthError{Reason: "connector unavailable"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.expired(s.cached) {
		return s.cached, nil
	}

	cred, err := s.exchange(ctx)
	if err != nil {
		return model.Credential{}, err
	}
	s.cached = cred

	slog.Debug("connector credential refreshed", "expires_at", cred.ExpiresAt)
	return cred, nil
}

// expired applies the refresh skew on top of the credential's own expiry.
func (s *Source) expired(cred model.Credential) bool {
	if cred.ExpiresAt == nil {
		return cred.Expired(s.now())
	}
	return cred.Expired(s.now().Add(refreshSkew))
}

func (s *Source) exchange(ctx context.Context) (model.Credential, error) {
	body, err := json.Marshal(map[string]string{"identity_token": s.identityToken})
	if err != nil {
		return model.Credential{}, fmt.Errorf("marshal connector request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return model.Credential{}, &backuperr.AuthError{Reason: "connector unavailable", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return model.Credential{}, &backuperr.AuthError{Reason: "connector unavailable", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return model.Credential{}, &backuperr.AuthError{
			Reason: "connector unavailable",
			Err:    fmt.Errorf("connector responded %d", resp.StatusCode),
		}
	}

	var payload tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return model.Credential{}, &backuperr.AuthError{Reason: "connector unavailable", Err: err}
	}
	if payload.AccessToken == "" {
		return model.Credential{}, &backuperr.AuthError{
			Reason: "connector unavailable",
			Err:    fmt.Errorf("connector returned empty access_token"),
		}
	}

	return model.Credential{Token: payload.AccessToken, ExpiresAt: payload.ExpiresAt}, nil
}

// StoredTokenSource reads the user-supplied token: the encrypted credential
// store first, then the environment-provided fallback.
type StoredTokenSource struct {
	creds    driven.CredentialStore
	envToken string
}

// NewStoredTokenSource creates the user-token source. creds may be nil when
// credential persistence is disabled; envToken may be empty.
func NewStoredTokenSource(creds driven.CredentialStore, envToken string) *StoredTokenSource {
	return &StoredTokenSource{creds: creds, envToken: envToken}
}

// Token returns the stored token, or an AuthError telling the user to supply
// one.
func (s *StoredTokenSource) Token(ctx context.Context) (model.Credential, error) {
	if s.creds != nil {
		stored, err := s.creds.Get(ctx, driven.CredentialServiceGitHub, driven.CredentialKeyToken)
		if err != nil && !errors.Is(err, driven.ErrEncryptionKeyNotSet) {
			return model.Credential{}, fmt.Errorf("read stored token: %w", err)
		}
		if stored != "" {
			return model.Credential{Token: stored}, nil
		}
	}

	if s.envToken != "" {
		return model.Credential{Token: s.envToken}, nil
	}

	return model.Credential{}, &backuperr.AuthError{
		Reason: "token required: set PROMPTVAULT_GITHUB_TOKEN or store a GitHub token in settings",
	}
}

// Chain tries each source in order and returns the first credential that
// resolves. The last failure is returned when every source fails.
type Chain struct {
	sources []driven.CredentialSource
}

// NewChain creates a Chain over the given sources.
func NewChain(sources ...driven.CredentialSource) *Chain {
	return &Chain{sources: sources}
}

// Token tries the sources in order.
func (c *Chain) Token(ctx context.Context) (model.Credential, error) {
	var lastErr error
	for _, source := range c.sources {
		cred, err := source.Token(ctx)
		if err == nil {
			return cred, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = &backuperr.AuthError{Reason: "no credential sources configured"}
	}
	return model.Credential{}, lastErr
}

// Resolve selects the credential strategy for this process. The connector
// path is chosen when the embedded platform is detected and degrades to the
// stored-token path when the connector errors at runtime.
func Resolve(cfg *config.Config, creds driven.CredentialStore, hostname string) driven.CredentialSource {
	stored := NewStoredTokenSource(creds, cfg.GitHubToken)

	if cfg.ConnectorDetected(hostname) {
		slog.Info("embedded platform detected, using connector credential source", "endpoint", cfg.ConnectorURL)
		return NewChain(NewSource(cfg.ConnectorURL, cfg.IdentityToken, nil), stored)
	}

	slog.Info("using stored-token credential source")
	return stored
}
