package shared

import "fmt"

var (
	// Per-operation errors, recoverable by the caller.
	ErrNotFound = fmt.Errorf("entity not found")
	ErrConflict = fmt.Errorf("concurrent modification detected")

	// ErrIntegrity signals a rejected write that would break referential
	// integrity, e.g. a playlist referencing an unknown track.
	ErrIntegrity = fmt.Errorf("referential integrity violation")

	// ErrInvalidEntity signals failed entity validation before any write.
	ErrInvalidEntity = fmt.Errorf("invalid entity")

	// ErrBackendUnavailable wraps driver and connection failures. Transient;
	// callers may retry with backoff.
	ErrBackendUnavailable = fmt.Errorf("storage backend unavailable")

	// ErrCapability signals an operation the active backend cannot fulfill,
	// e.g. a range query against a pure key-value backend.
	ErrCapability = fmt.Errorf("operation not supported by backend")

	// ErrConfiguration signals missing or malformed startup configuration.
	// Fatal: the selector never falls back to a different backend.
	ErrConfiguration = fmt.Errorf("invalid configuration")
)
