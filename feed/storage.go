package feed

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/datatrails/go-datatrails-common/logger"

	"github.com/ntauth/hypercore/storage"
)

// Stream names, one storage.RandomAccess each.
const (
	StreamKey       = "key"
	StreamSecretKey = "secret_key"
	StreamBitfield  = "bitfield"
	StreamTree      = "tree"
	StreamData      = "data"
)

// CreateStream opens the backend for one named stream. It is how the
// backend choice (disk, secure engine, anything satisfying the
// contract) is deferred to construction time.
type CreateStream func(name string) (storage.RandomAccess, error)

// Store addresses a feed's persisted streams: key material, bitfield,
// tree node records and block data. It owns the stream formats; the
// backends underneath stay byte oriented.
type Store struct {
	key      storage.RandomAccess
	secret   storage.RandomAccess
	bitfield storage.RandomAccess
	tree     storage.RandomAccess
	data     storage.RandomAccess
	log      logger.Logger
}

// NewStore opens all feed streams through create.
func NewStore(log logger.Logger, create CreateStream) (*Store, error) {
	s := &Store{log: log}
	for _, stream := range []struct {
		name string
		ra   *storage.RandomAccess
	}{
		{StreamKey, &s.key},
		{StreamSecretKey, &s.secret},
		{StreamBitfield, &s.bitfield},
		{StreamTree, &s.tree},
		{StreamData, &s.data},
	} {
		ra, err := create(stream.name)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("create stream %s: %w", stream.name, err)
		}
		*stream.ra = ra
	}
	return s, nil
}

// NewDiskStore opens a Store over one file per stream under dir.
func NewDiskStore(log logger.Logger, dir string, opts ...storage.Option) (*Store, error) {
	return NewStore(log, func(name string) (storage.RandomAccess, error) {
		return storage.NewDisk(log, filepath.Join(dir, name), opts...)
	})
}

// WritePublicKey persists the verifying key.
func (s *Store) WritePublicKey(ctx context.Context, pub ed25519.PublicKey) error {
	if err := s.key.Write(ctx, 0, pub); err != nil {
		return fmt.Errorf("write public key: %w", err)
	}
	return nil
}

// ReadPublicKey reads the persisted verifying key.
func (s *Store) ReadPublicKey(ctx context.Context) (ed25519.PublicKey, error) {
	b, err := s.key.Read(ctx, 0, PublicKeyBytes)
	if err != nil {
		return nil, fmt.Errorf("read public key: %w", err)
	}
	return ed25519.PublicKey(b), nil
}

// WriteSecretKey persists the signing key.
func (s *Store) WriteSecretKey(ctx context.Context, sec ed25519.PrivateKey) error {
	if err := s.secret.Write(ctx, 0, sec); err != nil {
		return fmt.Errorf("write secret key: %w", err)
	}
	return nil
}

// ReadSecretKey reads the persisted signing key.
func (s *Store) ReadSecretKey(ctx context.Context) (ed25519.PrivateKey, error) {
	b, err := s.secret.Read(ctx, 0, SecretKeyBytes)
	if err != nil {
		return nil, fmt.Errorf("read secret key: %w", err)
	}
	return ed25519.PrivateKey(b), nil
}

// ReadBitfield returns the persisted bitfield pages, or nil when the
// stream has never been written. An initialised stream with a bad
// header is corruption and fails; absence never does.
func (s *Store) ReadBitfield(ctx context.Context) ([]byte, error) {
	length, err := s.bitfield.Len(ctx)
	if err != nil {
		return nil, fmt.Errorf("bitfield length: %w", err)
	}
	if length == 0 {
		return nil, nil
	}
	if err = s.checkHeader(ctx, s.bitfield, BitfieldMagic, 0); err != nil {
		return nil, fmt.Errorf("bitfield stream: %w", err)
	}
	pages, err := s.bitfield.Read(ctx, HeaderBytes, length-HeaderBytes)
	if err != nil {
		return nil, fmt.Errorf("read bitfield: %w", err)
	}
	return pages, nil
}

// WriteBitfield replaces the persisted bitfield pages wholesale.
func (s *Store) WriteBitfield(ctx context.Context, pages []byte) error {
	if err := s.ensureHeader(ctx, s.bitfield, BitfieldMagic, 0); err != nil {
		return fmt.Errorf("bitfield stream: %w", err)
	}
	if err := s.bitfield.Write(ctx, HeaderBytes, pages); err != nil {
		return fmt.Errorf("write bitfield: %w", err)
	}
	// drop any stale tail from a previously larger bitfield
	if err := s.bitfield.Truncate(ctx, HeaderBytes+uint64(len(pages))); err != nil {
		return fmt.Errorf("truncate bitfield: %w", err)
	}
	return nil
}

// GetNode reads the tree node record at the given flat index.
// ErrNodeNotFound distinguishes an absent record from an unreadable
// one; callers decide whether absence is fatal.
func (s *Store) GetNode(ctx context.Context, index uint64) (Node, error) {
	rec, err := s.tree.Read(ctx, nodeRecordOffset(index), NodeRecordBytes)
	if err != nil {
		if errors.Is(err, storage.ErrReadBounds) {
			return Node{}, fmt.Errorf("%w: flat index %d", ErrNodeNotFound, index)
		}
		return Node{}, fmt.Errorf("get node %d: %w", index, err)
	}
	n := decodeNodeRecord(rec)
	if n.blank() {
		return Node{}, fmt.Errorf("%w: flat index %d", ErrNodeNotFound, index)
	}
	return n, nil
}

// PutNode writes the record for n at its flat index slot.
func (s *Store) PutNode(ctx context.Context, n Node) error {
	if err := s.ensureHeader(ctx, s.tree, TreeMagic, NodeRecordBytes); err != nil {
		return fmt.Errorf("tree stream: %w", err)
	}
	rec := make([]byte, NodeRecordBytes)
	encodeNodeRecord(rec, n)
	if err := s.tree.Write(ctx, nodeRecordOffset(n.Index), rec); err != nil {
		return fmt.Errorf("put node %d: %w", n.Index, err)
	}
	return nil
}

// WriteData writes block bytes at offset in the data stream.
func (s *Store) WriteData(ctx context.Context, offset uint64, data []byte) error {
	return s.data.Write(ctx, offset, data)
}

// ReadData reads block bytes from the data stream.
func (s *Store) ReadData(ctx context.Context, offset uint64, length uint64) ([]byte, error) {
	return s.data.Read(ctx, offset, length)
}

// SyncAll flushes every stream.
func (s *Store) SyncAll(ctx context.Context) error {
	for _, ra := range s.streams() {
		if err := ra.SyncAll(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Close releases every stream, attempting all of them even when one
// fails.
func (s *Store) Close() error {
	var errs []error
	for _, ra := range s.streams() {
		if err := ra.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Store) streams() []storage.RandomAccess {
	var out []storage.RandomAccess
	for _, ra := range []storage.RandomAccess{s.key, s.secret, s.bitfield, s.tree, s.data} {
		if ra != nil {
			out = append(out, ra)
		}
	}
	return out
}

// ensureHeader initialises the stream header when the stream is new,
// and verifies it otherwise.
func (s *Store) ensureHeader(ctx context.Context, ra storage.RandomAccess, magic string, recordBytes uint16) error {
	length, err := ra.Len(ctx)
	if err != nil {
		return err
	}
	if length == 0 {
		region := make([]byte, HeaderBytes)
		if err = encodeHeader(region, magic, recordBytes); err != nil {
			return err
		}
		return ra.Write(ctx, 0, region)
	}
	return s.checkHeader(ctx, ra, magic, recordBytes)
}

// checkHeader verifies the header of a non empty stream. A zero filled
// header on a non empty stream is corruption: formats are never
// guessed or repaired.
func (s *Store) checkHeader(ctx context.Context, ra storage.RandomAccess, magic string, recordBytes uint16) error {
	region, err := ra.Read(ctx, 0, HeaderBytes)
	if err != nil {
		return err
	}
	ok, err := decodeHeader(region, magic, recordBytes)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: header uninitialised on a non empty stream", ErrBadMagic)
	}
	return nil
}
