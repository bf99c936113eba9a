package feed

import (
	"context"
	"crypto/ed25519"

	"github.com/datatrails/go-datatrails-common/logger"

	"github.com/ntauth/hypercore/bitfield"
)

// Peer is a replication peer. Replication is a layer above this core;
// reconstruction always yields an empty peer list.
type Peer struct{}

// Feed is the reconstructed runtime state of an authenticated append
// only log. A Feed is only ever observed ready: construction either
// fully succeeds or fails as a whole.
//
// The Feed exclusively owns its key pair, bitfield and tree state. The
// Store is shared with whatever layers address the same streams and is
// not serialised here; concurrent callers coordinate externally.
type Feed struct {
	roots      []Node
	byteLength uint64
	length     uint64
	bitfield   *bitfield.Bitfield
	tree       *bitfield.TreeIndex
	publicKey  ed25519.PublicKey
	secretKey  ed25519.PrivateKey
	store      *Store
	peers      []Peer
	log        logger.Logger
}

// Roots returns the full root set in ascending flat index order.
func (f *Feed) Roots() []Node {
	out := make([]Node, len(f.roots))
	copy(out, f.roots)
	return out
}

// ByteLength is the total data bytes committed across all blocks.
func (f *Feed) ByteLength() uint64 {
	return f.byteLength
}

// Len is the committed block count.
func (f *Feed) Len() uint64 {
	return f.length
}

// Writable reports whether the feed holds a signing key.
func (f *Feed) Writable() bool {
	return f.secretKey != nil
}

// PublicKey returns the verifying key.
func (f *Feed) PublicKey() ed25519.PublicKey {
	return f.publicKey
}

// Has reports whether block i's data is locally available.
func (f *Feed) Has(i uint64) bool {
	return f.bitfield.Get(i)
}

// Tree returns the derived tree index.
func (f *Feed) Tree() *bitfield.TreeIndex {
	return f.tree
}

// Store returns the shared storage handle.
func (f *Feed) Store() *Store {
	return f.store
}

// Peers returns the peer list. Always empty at this layer.
func (f *Feed) Peers() []Peer {
	return f.peers
}

// Close flushes every stream under ctx best effort, then releases
// them. A failed flush is logged, never allowed to mask the close.
func (f *Feed) Close(ctx context.Context) error {
	if err := f.store.SyncAll(ctx); err != nil {
		f.log.Infof("close: flush failed: %v", err)
	}
	return f.store.Close()
}
