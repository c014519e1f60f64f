package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/promptvault/internal/domain/model"
)

// ErrEncryptionKeyNotSet is returned by CredentialStore operations when
// PROMPTVAULT_ENCRYPTION_KEY has not been configured.
var ErrEncryptionKeyNotSet = errors.New("encryption key not configured: set PROMPTVAULT_ENCRYPTION_KEY")

// Credential store slot for the user-supplied GitHub token.
const (
	CredentialServiceGitHub = "github"
	CredentialKeyToken      = "token"
)

// CredentialStore defines the driven port for encrypted credential persistence.
// The adapter layer is responsible for encryption/decryption; this interface
// operates on plaintext values at the domain boundary.
type CredentialStore interface {
	// Set stores or replaces the credential identified by (service, key) with
	// the provided plaintext value. Returns ErrEncryptionKeyNotSet if the
	// adapter was constructed without an encryption key.
	Set(ctx context.Context, service, key, plaintext string) error

	// Get retrieves the plaintext credential for (service, key).
	// Returns ("", nil) if no such credential exists.
	Get(ctx context.Context, service, key string) (string, error)

	// List returns all stored credentials. Values are decrypted plaintext.
	List(ctx context.Context) ([]model.StoredCredential, error)

	// Delete removes the credential for (service, key).
	Delete(ctx context.Context, service, key string) error
}
