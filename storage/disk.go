package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/datatrails/go-datatrails-common/logger"
)

// DiskOptions carries the configurable fields of the Disk backend.
type DiskOptions struct {
	// AutoSync selects sync-after-every-write. When false, durability is
	// deferred until the caller invokes SyncAll (or Close).
	AutoSync bool
}

// Option is a generic option type used for storage implementations.
// Implementations type assert to their own options record and ignore
// options whose assertion fails.
type Option func(any)

func WithAutoSync(autoSync bool) Option {
	return func(opts any) {
		if o, ok := opts.(*DiskOptions); ok {
			o.AutoSync = autoSync
		}
	}
}

// Disk implements RandomAccess over a local file.
//
// The length is seeded from filesystem metadata at open and maintained
// incrementally on write and truncate. Individual reads and writes are
// not serialised by the backend; concurrent callers sharing one Disk
// must coordinate externally.
type Disk struct {
	filename string
	f        *os.File
	length   uint64
	autoSync bool
	log      logger.Logger
}

// NewDisk opens or creates the file at filename, creating parent
// directories as needed. AutoSync defaults to true.
func NewDisk(log logger.Logger, filename string, opts ...Option) (*Disk, error) {
	options := DiskOptions{AutoSync: true}
	for _, opt := range opts {
		opt(&options)
	}

	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	f, err := os.OpenFile(filename, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filename, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat %s: %w", filename, err)
	}

	return &Disk{
		filename: filename,
		f:        f,
		length:   uint64(info.Size()),
		autoSync: options.AutoSync,
		log:      log,
	}, nil
}

func (d *Disk) Write(ctx context.Context, offset uint64, data []byte) error {
	if _, err := d.f.WriteAt(data, int64(offset)); err != nil {
		return fmt.Errorf("write %s at %d+%d: %w", d.filename, offset, len(data), err)
	}
	if d.autoSync {
		if err := d.f.Sync(); err != nil {
			return fmt.Errorf("sync %s: %w", d.filename, err)
		}
	}
	if end := offset + uint64(len(data)); end > d.length {
		d.length = end
	}
	return nil
}

func (d *Disk) Read(ctx context.Context, offset uint64, length uint64) ([]byte, error) {
	// the two-step comparison keeps offset+length overflow inside the
	// bounds check
	if offset > d.length || length > d.length-offset {
		return nil, readBoundsError(d.length, offset, offset+length)
	}
	buf := make([]byte, length)
	// Short reads inside the tracked length are sparse file regions;
	// those bytes really are zero.
	if _, err := d.f.ReadAt(buf, int64(offset)); err != nil && err != io.EOF {
		return nil, fmt.Errorf("read %s at %d+%d: %w", d.filename, offset, length, err)
	}
	return buf, nil
}

func (d *Disk) ReadToWriter(ctx context.Context, offset uint64, length uint64, w io.Writer) error {
	return fmt.Errorf("%w: read to writer", ErrNotImplemented)
}

func (d *Disk) DeleteRange(ctx context.Context, offset uint64, length uint64) error {
	return fmt.Errorf("%w: delete range %d+%d", ErrNotImplemented, offset, length)
}

func (d *Disk) Truncate(ctx context.Context, length uint64) error {
	if err := d.f.Truncate(int64(length)); err != nil {
		return fmt.Errorf("truncate %s to %d: %w", d.filename, length, err)
	}
	d.length = length
	if d.autoSync {
		if err := d.f.Sync(); err != nil {
			return fmt.Errorf("sync %s: %w", d.filename, err)
		}
	}
	return nil
}

func (d *Disk) Len(ctx context.Context) (uint64, error) {
	return d.length, nil
}

func (d *Disk) IsEmpty(ctx context.Context) (bool, error) {
	return d.length == 0, nil
}

func (d *Disk) SyncAll(ctx context.Context) error {
	if d.autoSync {
		return nil
	}
	if err := d.f.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", d.filename, err)
	}
	return nil
}

// Close flushes and releases the file. The flush is best effort: a
// failed sync is logged, never allowed to mask the close itself.
func (d *Disk) Close() error {
	if d.f == nil {
		return nil
	}
	if err := d.f.Sync(); err != nil {
		d.log.Infof("close %s: flush failed: %v", d.filename, err)
	}
	err := d.f.Close()
	d.f = nil
	return err
}
