package driven

import (
	"context"

	"github.com/ericfisherdev/promptvault/internal/domain/model"
)

// CredentialSource defines the driven port for access-token acquisition.
// Two strategies exist: the embedded-platform connector and the user-supplied
// stored token. The strategy is selected once at startup.
type CredentialSource interface {
	// Token returns a usable credential or a backuperr.AuthError explaining
	// what is missing.
	Token(ctx context.Context) (model.Credential, error)
}
