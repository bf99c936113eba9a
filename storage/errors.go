package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrReadBounds is returned when a read range exceeds the current
	// stream length. Reads never substitute zero filled data.
	ErrReadBounds = errors.New("storage: read bounds exceeded")

	// ErrNotImplemented is returned by contract operations no backend
	// implements. Callers must not assume the operation was a no-op.
	ErrNotImplemented = errors.New("storage: not implemented")

	// ErrAccessConflict is the engine error for an object creation that
	// collides with an object already held under another session. It is
	// the only engine error the Secure backend recovers from, by
	// falling back to opening the existing object.
	ErrAccessConflict = errors.New("storage: object exists under another session")

	// ErrObjectNotFound is the engine error for opening an object that
	// does not exist.
	ErrObjectNotFound = errors.New("storage: object not found")
)

func readBoundsError(length, offset, end uint64) error {
	return fmt.Errorf("%w: %d < %d..%d", ErrReadBounds, length, offset, end)
}
