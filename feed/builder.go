package feed

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/datatrails/go-datatrails-common/logger"

	"github.com/ntauth/hypercore/bitfield"
	"github.com/ntauth/hypercore/flattree"
)

// Config carries the inputs to feed reconstruction. PublicKey and
// Store are required; SecretKey is the optional raw signing key and
// makes the feed writable. Log defaults to the process logger.
type Config struct {
	PublicKey ed25519.PublicKey
	SecretKey []byte
	Store     *Store
	Log       logger.Logger
}

// New reconstructs a feed from whatever bytes already exist in the
// configured store, or initialises it fresh. See the package
// documentation for the ordered guarantees; any failure aborts the
// whole construction and no partial feed is returned.
func New(ctx context.Context, cfg Config) (*Feed, error) {
	if len(cfg.PublicKey) != PublicKeyBytes {
		return nil, fmt.Errorf("%w: got %d bytes", ErrNoPublicKey, len(cfg.PublicKey))
	}
	if cfg.Store == nil {
		return nil, ErrNoStore
	}
	log := cfg.Log
	if log == nil {
		log = logger.Sugar.WithServiceName("feed")
	}

	// The signing key is validated by re-derivation before anything is
	// persisted; bad key material must fail before any other mutation.
	var secretKey ed25519.PrivateKey
	if cfg.SecretKey != nil {
		var err error
		if secretKey, err = ValidateSecretKey(cfg.SecretKey); err != nil {
			return nil, err
		}
	}

	if err := cfg.Store.WritePublicKey(ctx, cfg.PublicKey); err != nil {
		return nil, err
	}
	if secretKey != nil {
		if err := cfg.Store.WriteSecretKey(ctx, secretKey); err != nil {
			return nil, err
		}
	}

	// Load the availability bitfield if one was persisted; absence just
	// means a fresh feed. The tree index derived from the tree plane is
	// the sole authority for the committed block count.
	pages, err := cfg.Store.ReadBitfield(ctx)
	if err != nil {
		return nil, err
	}
	var blocks, treeBits *bitfield.Bitfield
	if pages == nil {
		blocks, treeBits = bitfield.New(), bitfield.New()
	} else {
		blocks, treeBits = bitfield.FromBytes(pages)
	}
	tree := bitfield.NewTreeIndex(treeBits)
	length := tree.Blocks()

	roots, byteLength, err := fetchRoots(ctx, cfg.Store, length)
	if err != nil {
		return nil, err
	}

	log.Debugf("feed ready: blocks=%d bytes=%d roots=%d writable=%v",
		length, byteLength, len(roots), secretKey != nil)

	return &Feed{
		roots:      roots,
		byteLength: byteLength,
		length:     length,
		bitfield:   blocks,
		tree:       tree,
		publicKey:  cfg.PublicKey,
		secretKey:  secretKey,
		store:      cfg.Store,
		peers:      []Peer{},
		log:        log,
	}, nil
}

// fetchRoots recomputes the expected full root set from the block
// count alone, fetches each root by flat index, and sums the subtree
// byte lengths. A missing root, a fetched node landing outside its
// expected slot, or any slot left unfilled, is index corruption and
// fatal; a root is never defaulted to "not present". Backend read
// failures are not corruption and propagate as themselves.
func fetchRoots(ctx context.Context, store *Store, length uint64) ([]Node, uint64, error) {
	indexes, err := flattree.FullRoots(2 * length)
	if err != nil {
		return nil, 0, err
	}

	roots := make([]Node, len(indexes))
	filled := make([]bool, len(indexes))
	for _, index := range indexes {
		node, err := store.GetNode(ctx, index)
		if errors.Is(err, ErrNodeNotFound) {
			return nil, 0, fmt.Errorf("%w: root %d expected for %d blocks: %v",
				ErrCorruptIndex, index, length, err)
		}
		if err != nil {
			return nil, 0, fmt.Errorf("fetching root %d: %w", index, err)
		}
		slot := -1
		for i, want := range indexes {
			if want == node.Index {
				slot = i
				break
			}
		}
		if slot < 0 {
			return nil, 0, fmt.Errorf(
				"%w: node at %d records index %d, not a root of %d blocks",
				ErrCorruptIndex, index, node.Index, length)
		}
		roots[slot] = node
		filled[slot] = true
	}
	for i, ok := range filled {
		if !ok {
			return nil, 0, fmt.Errorf("%w: root slot %d (flat index %d) unfilled",
				ErrCorruptIndex, i, indexes[i])
		}
	}

	byteLength := uint64(0)
	for _, root := range roots {
		byteLength += root.Length
	}
	return roots, byteLength, nil
}
