package storage

import (
	"context"
	"io"
)

// RandomAccess is the byte range contract every feed stream backend
// satisfies. Offsets and lengths are bytes.
//
// Write extends the stream when offset+len(data) exceeds the current
// length. Read fails with ErrReadBounds if the requested range exceeds
// the current length; it never zero fills missing data. Truncate sets
// the length exactly, shrinking or zero extending as required.
//
// ReadToWriter and DeleteRange are part of the contract but
// unimplemented by every current backend; both fail with
// ErrNotImplemented rather than silently degrading.
type RandomAccess interface {
	Write(ctx context.Context, offset uint64, data []byte) error
	Read(ctx context.Context, offset uint64, length uint64) ([]byte, error)
	ReadToWriter(ctx context.Context, offset uint64, length uint64, w io.Writer) error
	DeleteRange(ctx context.Context, offset uint64, length uint64) error
	Truncate(ctx context.Context, length uint64) error
	Len(ctx context.Context) (uint64, error)
	IsEmpty(ctx context.Context) (bool, error)

	// SyncAll forces a durability flush if the write policy does not
	// already guarantee one.
	SyncAll(ctx context.Context) error

	// Close releases the backend, flushing buffered writes best effort
	// first. The flush may block; losing buffered writes silently is the
	// worse trade.
	Close() error
}
