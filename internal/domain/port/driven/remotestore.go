package driven

import (
	"context"
	"errors"
)

// ErrFileNotFound indicates the requested remote object does not exist.
// The backup service treats this as the create-vs-update branch point.
var ErrFileNotFound = errors.New("remote file not found")

// ErrSHAMismatch indicates an update was rejected because the supplied content
// hash no longer matches the remote object. Callers must not retry as a blind
// overwrite.
var ErrSHAMismatch = errors.New("remote file changed since last read")

// RemoteFile is the adapter-neutral view of a repository content object.
type RemoteFile struct {
	Name    string
	Path    string
	SHA     string
	Size    int
	HTMLURL string
	Content []byte // Decoded content; only populated by GetFile.
}

// RemoteStore defines the driven port for the repository contents API used as
// the backup destination.
type RemoteStore interface {
	// GetFile fetches one object at path on ref. Returns ErrFileNotFound
	// (possibly wrapped) when the object does not exist.
	GetFile(ctx context.Context, repoFullName, path, ref string) (*RemoteFile, error)

	// PutFile creates the object when sha is empty, or updates it when sha
	// carries the current content hash. An update with a stale sha fails with
	// ErrSHAMismatch; the remote store never silently overwrites.
	PutFile(ctx context.Context, repoFullName, path, branch, message string, content []byte, sha string) (*RemoteFile, error)

	// ListDir lists the objects directly under path on ref. Content is not
	// populated. Returns ErrFileNotFound when the directory does not exist.
	ListDir(ctx context.Context, repoFullName, path, ref string) ([]RemoteFile, error)

	// CurrentUser returns the login of the authenticated user. Used as a
	// cheap connectivity and credential probe.
	CurrentUser(ctx context.Context) (string, error)
}
