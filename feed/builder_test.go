package feed

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ntauth/hypercore/bitfield"
	"github.com/ntauth/hypercore/storage"
	"github.com/ntauth/hypercore/storage/storagetest"
)

func testLogger(t *testing.T) logger.Logger {
	t.Helper()
	logger.New("NOOP")
	t.Cleanup(logger.OnExit)
	return logger.Sugar.WithServiceName("feedtest")
}

func newDiskStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewDiskStore(testLogger(t), t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// seedRoots persists node records and the matching bitfield so that a
// subsequent reconstruction sees count committed blocks with the given
// roots.
func seedRoots(t *testing.T, s *Store, count uint64, roots []Node) {
	t.Helper()
	ctx := context.Background()

	blocks := bitfield.New()
	tree := bitfield.New()
	for i := uint64(0); i < count; i++ {
		blocks.Set(i, true)
	}
	for _, n := range roots {
		tree.Set(n.Index, true)
		require.NoError(t, s.PutNode(ctx, n))
	}
	require.NoError(t, s.WriteBitfield(ctx, bitfield.Pages(blocks, tree)))
}

func testNode(index, length uint64) Node {
	return Node{Index: index, Hash: LeafHash([]byte{byte(index)}), Length: length}
}

func TestNewFreshFeed(t *testing.T) {
	ctx := context.Background()
	s := newDiskStore(t)
	pub, sec, err := GenerateKeyPair()
	require.NoError(t, err)

	f, err := New(ctx, Config{PublicKey: pub, SecretKey: sec, Store: s})
	require.NoError(t, err)

	assert.Equal(t, uint64(0), f.Len())
	assert.Equal(t, uint64(0), f.ByteLength())
	assert.Empty(t, f.Roots())
	assert.Empty(t, f.Peers())
	assert.True(t, f.Writable())

	// both keys were persisted
	gotPub, err := s.ReadPublicKey(ctx)
	require.NoError(t, err)
	assert.Equal(t, pub, gotPub)
	gotSec, err := s.ReadSecretKey(ctx)
	require.NoError(t, err)
	assert.Equal(t, sec, gotSec)
}

func TestNewReadOnlyFeed(t *testing.T) {
	ctx := context.Background()
	s := newDiskStore(t)
	pub, _, err := GenerateKeyPair()
	require.NoError(t, err)

	f, err := New(ctx, Config{PublicKey: pub, Store: s})
	require.NoError(t, err)
	assert.False(t, f.Writable())
}

func TestNewConfigValidation(t *testing.T) {
	ctx := context.Background()
	pub, _, err := GenerateKeyPair()
	require.NoError(t, err)

	_, err = New(ctx, Config{Store: newDiskStore(t)})
	assert.ErrorIs(t, err, ErrNoPublicKey)

	_, err = New(ctx, Config{PublicKey: pub})
	assert.ErrorIs(t, err, ErrNoStore)
}

func TestNewInvalidSecretKeyFailsBeforeMutation(t *testing.T) {
	ctx := context.Background()
	s := newDiskStore(t)
	pub, sec, err := GenerateKeyPair()
	require.NoError(t, err)

	// corrupt the embedded public half
	bad := make([]byte, len(sec))
	copy(bad, sec)
	bad[40] ^= 0xff

	_, err = New(ctx, Config{PublicKey: pub, SecretKey: bad, Store: s})
	require.ErrorIs(t, err, ErrInvalidSecretKey)

	// nothing was persisted, not even the public key
	_, err = s.ReadPublicKey(ctx)
	assert.ErrorIs(t, err, storage.ErrReadBounds)
}

func TestReconstructionFromPersistedRoots(t *testing.T) {
	ctx := context.Background()
	s := newDiskStore(t)
	pub, _, err := GenerateKeyPair()
	require.NoError(t, err)

	// seven blocks decompose into subtrees rooted at 3, 9 and 12
	seedRoots(t, s, 7, []Node{
		testNode(3, 10),
		testNode(9, 20),
		testNode(12, 5),
	})

	f, err := New(ctx, Config{PublicKey: pub, Store: s})
	require.NoError(t, err)

	assert.Equal(t, uint64(7), f.Len())
	assert.Equal(t, uint64(35), f.ByteLength())

	roots := f.Roots()
	require.Len(t, roots, 3)
	assert.Equal(t, uint64(3), roots[0].Index)
	assert.Equal(t, uint64(9), roots[1].Index)
	assert.Equal(t, uint64(12), roots[2].Index)

	for i := uint64(0); i < 7; i++ {
		assert.True(t, f.Has(i), "block %d", i)
	}
	assert.False(t, f.Has(7))
}

func TestReconstructionMissingRootIsCorrupt(t *testing.T) {
	ctx := context.Background()
	s := newDiskStore(t)
	pub, _, err := GenerateKeyPair()
	require.NoError(t, err)

	// root 9 is expected for seven blocks but never persisted; the
	// highest tree bit still claims seven blocks
	seedRoots(t, s, 7, []Node{
		testNode(3, 10),
		testNode(12, 5),
	})

	_, err = New(ctx, Config{PublicKey: pub, Store: s})
	assert.ErrorIs(t, err, ErrCorruptIndex)
}

func TestReconstructionIndexMismatchIsCorrupt(t *testing.T) {
	ctx := context.Background()
	s := newDiskStore(t)
	pub, _, err := GenerateKeyPair()
	require.NoError(t, err)

	seedRoots(t, s, 7, []Node{
		testNode(3, 10),
		testNode(9, 20),
		testNode(12, 5),
	})

	// overwrite root 9's record with one recording a foreign index
	rec := make([]byte, NodeRecordBytes)
	encodeNodeRecord(rec, testNode(11, 20))
	require.NoError(t, s.tree.Write(ctx, nodeRecordOffset(9), rec))

	_, err = New(ctx, Config{PublicKey: pub, Store: s})
	assert.ErrorIs(t, err, ErrCorruptIndex)
}

// faultyStream wraps a backend and fails reads on demand, leaving
// writes and metadata untouched.
type faultyStream struct {
	storage.RandomAccess
	fail *bool
	err  error
}

func (f *faultyStream) Read(ctx context.Context, offset uint64, length uint64) ([]byte, error) {
	if *f.fail {
		return nil, f.err
	}
	return f.RandomAccess.Read(ctx, offset, length)
}

func TestReconstructionPropagatesBackendReadFailure(t *testing.T) {
	ctx := context.Background()
	log := testLogger(t)
	dir := t.TempDir()
	errDevice := errors.New("simulated device failure")
	fail := false

	s, err := NewStore(log, func(name string) (storage.RandomAccess, error) {
		ra, err := storage.NewDisk(log, filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		if name == StreamTree {
			return &faultyStream{RandomAccess: ra, fail: &fail, err: errDevice}, nil
		}
		return ra, nil
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	pub, _, err := GenerateKeyPair()
	require.NoError(t, err)

	seedRoots(t, s, 2, []Node{testNode(1, 512)})
	fail = true

	// a backend read failure while fetching roots is an I/O error, not
	// index corruption, and survives the wrap chain intact
	_, err = New(ctx, Config{PublicKey: pub, Store: s})
	require.ErrorIs(t, err, errDevice)
	assert.NotErrorIs(t, err, ErrCorruptIndex)
	assert.NotErrorIs(t, err, ErrNodeNotFound)
}

func TestReconstructionOverSecureBackend(t *testing.T) {
	ctx := context.Background()
	log := testLogger(t)
	engine := storagetest.NewMemEngine()
	handle := storage.NewEngineHandle(engine)
	pub, sec, err := GenerateKeyPair()
	require.NoError(t, err)

	ids := map[string]storage.ObjectID{}
	secureStore := func(session storage.Session) (*Store, error) {
		return NewStore(log, func(name string) (storage.RandomAccess, error) {
			id, ok := ids[name]
			if !ok {
				id = storage.NewObjectID()
				ids[name] = id
			}
			return storage.NewSecure(ctx, log, handle, storage.SecureConfig{
				Session:  session,
				ObjectID: id,
			})
		})
	}

	s1, err := secureStore(1)
	require.NoError(t, err)
	seedRoots(t, s1, 3, []Node{
		testNode(1, 64),
		testNode(4, 32),
	})
	f1, err := New(ctx, Config{PublicKey: pub, SecretKey: sec, Store: s1})
	require.NoError(t, err)
	require.Equal(t, uint64(96), f1.ByteLength())
	require.NoError(t, f1.Close(ctx))

	// a second session collides on every stream object and resolves via
	// open; the rebuilt feed observes the persisted state
	s2, err := secureStore(2)
	require.NoError(t, err)
	f2, err := New(ctx, Config{PublicKey: pub, Store: s2})
	require.NoError(t, err)
	defer f2.Close(ctx)

	assert.Equal(t, uint64(3), f2.Len())
	assert.Equal(t, uint64(96), f2.ByteLength())
	assert.Equal(t, f1.Roots(), f2.Roots())
}

func TestReconstructionDiskRoundTrip(t *testing.T) {
	ctx := context.Background()
	log := testLogger(t)
	dir := t.TempDir()
	pub, sec, err := GenerateKeyPair()
	require.NoError(t, err)

	s, err := NewDiskStore(log, dir)
	require.NoError(t, err)
	seedRoots(t, s, 2, []Node{testNode(1, 512)})
	f, err := New(ctx, Config{PublicKey: pub, SecretKey: sec, Store: s})
	require.NoError(t, err)
	require.NoError(t, f.Close(ctx))

	s, err = NewDiskStore(log, dir)
	require.NoError(t, err)
	f, err = New(ctx, Config{PublicKey: pub, Store: s})
	require.NoError(t, err)
	defer f.Close(ctx)

	assert.Equal(t, uint64(2), f.Len())
	assert.Equal(t, uint64(512), f.ByteLength())
	require.Len(t, f.Roots(), 1)
	assert.Equal(t, uint64(1), f.Roots()[0].Index)
}
