package driven

import (
	"context"

	"github.com/ericfisherdev/promptvault/internal/domain/model"
)

// Exporter defines the driven port for local snapshot export. It is the
// fallback destination when the remote store is unreachable and the target of
// explicit local exports. It never touches the network.
type Exporter interface {
	// WriteSnapshot writes doc to local storage and returns the path of the
	// JSON snapshot file.
	WriteSnapshot(ctx context.Context, doc model.BackupDocument) (string, error)
}
