// Package backuperr defines the error taxonomy for the backup subsystem.
// Low-level transport and storage errors are re-classified into these types at
// the service boundary so callers always see an actionable message.
package backuperr

import (
	"errors"
	"fmt"
)

// AuthError indicates no usable credential could be resolved.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("authentication failed: %s", e.Reason)
}

func (e *AuthError) Unwrap() error { return e.Err }

// UnavailableError indicates no remote API implementation could be resolved.
type UnavailableError struct {
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("github api unavailable: %v", e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// ClientCreationError wraps any failure while constructing the remote client.
type ClientCreationError struct {
	Err error
}

func (e *ClientCreationError) Error() string {
	return fmt.Sprintf("failed to create github client: %v", e.Err)
}

func (e *ClientCreationError) Unwrap() error { return e.Err }

// ConfigError indicates the backup feature is disabled or misconfigured.
// Message tells the user what to configure.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string { return e.Message }

// FormatError indicates a backup document failed structural validation.
type FormatError struct {
	Message string
}

func (e *FormatError) Error() string { return e.Message }

// BackupError is the composite failure for a backup attempt. FallbackErr is
// set only when the local-export fallback was attempted and also failed.
type BackupError struct {
	Err         error
	FallbackErr error
}

func (e *BackupError) Error() string {
	if e.FallbackErr != nil {
		return fmt.Sprintf("backup failed: %v (local export also failed: %v)", e.Err, e.FallbackErr)
	}
	return fmt.Sprintf("backup failed: %v", e.Err)
}

func (e *BackupError) Unwrap() error { return e.Err }

// IsConfig reports whether err is (or wraps) a ConfigError.
func IsConfig(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// IsAuth reports whether err is (or wraps) an AuthError.
func IsAuth(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}
