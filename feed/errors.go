package feed

import "errors"

var (
	// ErrNoPublicKey is returned when construction is attempted without
	// a verifying key.
	ErrNoPublicKey = errors.New("feed: a public key is required")

	// ErrNoStore is returned when construction is attempted without a
	// storage handle.
	ErrNoStore = errors.New("feed: a store is required")

	// ErrInvalidSecretKey is returned when signing key bytes fail
	// validation. Invalid bytes are fatal, never silently dropped.
	ErrInvalidSecretKey = errors.New("feed: invalid secret key bytes")

	// ErrCorruptIndex is returned when a persisted root node's index
	// does not match its expected slot, or an expected root is missing
	// from storage entirely.
	ErrCorruptIndex = errors.New("feed: corrupt tree index")

	// ErrNodeNotFound is returned by the store when the tree stream
	// holds no record for the requested flat index.
	ErrNodeNotFound = errors.New("feed: tree node not found")

	// ErrNotWritable is returned for operations requiring the signing
	// key on a feed constructed without one.
	ErrNotWritable = errors.New("feed: feed is not writable")
)

// stream header failures
var (
	ErrBadMagic      = errors.New("feed: stream header magic invalid")
	ErrBadVersion    = errors.New("feed: stream header version invalid")
	ErrBadRecordSize = errors.New("feed: stream header record size invalid")
	ErrBadRegionSize = errors.New("feed: header region too small")
)

// checkpoint failures
var (
	ErrCheckpointVerify = errors.New("feed: checkpoint signature verification failed")
	ErrCheckpointState  = errors.New("feed: checkpoint state does not match the feed")
)
