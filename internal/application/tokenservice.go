package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/ericfisherdev/promptvault/internal/domain/backuperr"
	"github.com/ericfisherdev/promptvault/internal/domain/port/driven"
)

// ClientInvalidator drops any cached remote client so the next remote call
// authenticates with fresh credentials.
type ClientInvalidator interface {
	Invalidate()
}

// TokenService manages the user-supplied GitHub token in the encrypted
// credential store. It is the write side of the stored-token credential
// source: every mutation invalidates the cached remote client so the change
// takes effect without restarting the daemon.
type TokenService struct {
	creds    driven.CredentialStore
	provider ClientInvalidator
}

// NewTokenService creates a TokenService over the given store and provider.
func NewTokenService(creds driven.CredentialStore, provider ClientInvalidator) *TokenService {
	return &TokenService{creds: creds, provider: provider}
}

// SetToken stores or replaces the token. Surrounding whitespace is trimmed;
// a blank token is rejected rather than stored.
func (s *TokenService) SetToken(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return &backuperr.ConfigError{Message: "token must not be empty"}
	}

	if err := s.creds.Set(ctx, driven.CredentialServiceGitHub, driven.CredentialKeyToken, token); err != nil {
		return fmt.Errorf("store token: %w", err)
	}

	s.provider.Invalidate()
	return nil
}

// ClearToken removes the stored token.
func (s *TokenService) ClearToken(ctx context.Context) error {
	if err := s.creds.Delete(ctx, driven.CredentialServiceGitHub, driven.CredentialKeyToken); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}

	s.provider.Invalidate()
	return nil
}

// TokenStored reports whether a token is present without revealing it.
func (s *TokenService) TokenStored(ctx context.Context) (bool, error) {
	stored, err := s.creds.Get(ctx, driven.CredentialServiceGitHub, driven.CredentialKeyToken)
	if err != nil {
		return false, fmt.Errorf("read stored token: %w", err)
	}
	return stored != "", nil
}
