package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger(t *testing.T) logger.Logger {
	t.Helper()
	logger.New("NOOP")
	t.Cleanup(logger.OnExit)
	return logger.Sugar.WithServiceName("storagetest")
}

func TestDiskWriteReadRoundTrip(t *testing.T) {
	ctx := context.Background()
	d, err := NewDisk(testLogger(t), filepath.Join(t.TempDir(), "feed", "data"))
	require.NoError(t, err)
	defer d.Close()

	require.NoError(t, d.Write(ctx, 0, []byte("hello")))
	require.NoError(t, d.Write(ctx, 5, []byte(" world")))

	got, err := d.Read(ctx, 0, 11)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello world"), got)

	// overwrite a middle range and read it back exactly
	require.NoError(t, d.Write(ctx, 6, []byte("WORLD")))
	got, err = d.Read(ctx, 6, 5)
	require.NoError(t, err)
	assert.Equal(t, []byte("WORLD"), got)
}

func TestDiskReadBounds(t *testing.T) {
	ctx := context.Background()
	d, err := NewDisk(testLogger(t), filepath.Join(t.TempDir(), "data"))
	require.NoError(t, err)
	defer d.Close()

	require.NoError(t, d.Write(ctx, 0, []byte("abc")))

	_, err = d.Read(ctx, 0, 4)
	assert.ErrorIs(t, err, ErrReadBounds)
	_, err = d.Read(ctx, 3, 1)
	assert.ErrorIs(t, err, ErrReadBounds)

	// offset+length wrapping around uint64 must not pass the check
	_, err = d.Read(ctx, 2, ^uint64(0))
	assert.ErrorIs(t, err, ErrReadBounds)
	_, err = d.Read(ctx, ^uint64(0), 2)
	assert.ErrorIs(t, err, ErrReadBounds)

	// a failed read leaves the length unchanged
	length, err := d.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), length)
}

func TestDiskLengthLaw(t *testing.T) {
	ctx := context.Background()
	d, err := NewDisk(testLogger(t), filepath.Join(t.TempDir(), "data"))
	require.NoError(t, err)
	defer d.Close()

	require.NoError(t, d.Write(ctx, 10, []byte("xyz")))
	length, err := d.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(13), length)

	// a write entirely inside the current length does not shrink it
	require.NoError(t, d.Write(ctx, 0, []byte("a")))
	length, err = d.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(13), length)
}

func TestDiskTruncate(t *testing.T) {
	ctx := context.Background()
	d, err := NewDisk(testLogger(t), filepath.Join(t.TempDir(), "data"))
	require.NoError(t, err)
	defer d.Close()

	require.NoError(t, d.Write(ctx, 0, []byte("abcdef")))
	require.NoError(t, d.Truncate(ctx, 4))

	length, err := d.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), length)

	require.NoError(t, d.Truncate(ctx, 0))
	empty, err := d.IsEmpty(ctx)
	require.NoError(t, err)
	assert.True(t, empty)
}

func TestDiskReopenSeedsLength(t *testing.T) {
	ctx := context.Background()
	log := testLogger(t)
	filename := filepath.Join(t.TempDir(), "data")

	d, err := NewDisk(log, filename)
	require.NoError(t, err)
	require.NoError(t, d.Write(ctx, 0, []byte("persisted")))
	require.NoError(t, d.Close())

	d, err = NewDisk(log, filename)
	require.NoError(t, err)
	defer d.Close()

	length, err := d.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(9), length)

	got, err := d.Read(ctx, 0, 9)
	require.NoError(t, err)
	assert.Equal(t, []byte("persisted"), got)
}

func TestDiskUnimplemented(t *testing.T) {
	ctx := context.Background()
	d, err := NewDisk(testLogger(t), filepath.Join(t.TempDir(), "data"))
	require.NoError(t, err)
	defer d.Close()

	err = d.DeleteRange(ctx, 0, 10)
	assert.ErrorIs(t, err, ErrNotImplemented)
	err = d.ReadToWriter(ctx, 0, 10, nil)
	assert.ErrorIs(t, err, ErrNotImplemented)
}

func TestDiskDeferredSync(t *testing.T) {
	ctx := context.Background()
	d, err := NewDisk(
		testLogger(t), filepath.Join(t.TempDir(), "data"), WithAutoSync(false))
	require.NoError(t, err)
	defer d.Close()

	require.NoError(t, d.Write(ctx, 0, []byte("deferred")))
	require.NoError(t, d.SyncAll(ctx))
}
