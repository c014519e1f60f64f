package driven

import "context"

// ClientFactory defines the driven port for remote client construction.
// Implementations resolve a credential per call and wrap it in an
// authenticated RemoteStore handle.
type ClientFactory interface {
	// CreateClient returns a ready client, a backuperr.AuthError when no
	// credential resolves, or a backuperr.ClientCreationError otherwise.
	CreateClient(ctx context.Context) (RemoteStore, error)

	// IsAvailable is a non-throwing local probe.
	IsAvailable(ctx context.Context) bool

	// IsConfigured performs one live connectivity check. False, never an
	// error, on any failure.
	IsConfigured(ctx context.Context) bool
}
