package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/datatrails/go-datatrails-common/logger"
)

// SecureConfig identifies the engine object a Secure backend addresses
// and the session it operates under. ObjectType defaults to ObjectData.
// Attributes are optional and only consulted at creation.
type SecureConfig struct {
	Session    Session
	ObjectID   ObjectID
	ObjectType ObjectType
	StorageID  uint32
	Flags      uint32
	Attributes ObjectAttributes
}

// Secure implements RandomAccess over an object held by a secure
// storage engine.
//
// Construction attempts to create the object and falls back to opening
// it when creation fails with ErrAccessConflict; any other creation
// failure is fatal. After resolution the object is synced and the
// length seeded from its metadata, so a feed opened over an existing
// object observes the persisted length immediately.
type Secure struct {
	handle *EngineHandle
	cfg    SecureConfig
	object Object
	length uint64
	log    logger.Logger
}

// NewSecure resolves cfg against the engine behind handle and returns
// the backend. The create-or-open sequence runs under the handle lock;
// see EngineHandle.
func NewSecure(ctx context.Context, log logger.Logger, handle *EngineHandle, cfg SecureConfig) (*Secure, error) {
	if cfg.ObjectType == ObjectUndefined {
		cfg.ObjectType = ObjectData
	}

	object, err := resolveObject(ctx, handle, cfg)
	if err != nil {
		return nil, err
	}

	if err = object.Sync(ctx); err != nil {
		return nil, fmt.Errorf("sync object %s: %w", cfg.ObjectID, err)
	}
	info, err := object.Info(ctx)
	if err != nil {
		return nil, fmt.Errorf("stat object %s: %w", cfg.ObjectID, err)
	}

	return &Secure{
		handle: handle,
		cfg:    cfg,
		object: object,
		length: info.Size,
		log:    log,
	}, nil
}

// resolveObject runs the create-or-open sequence for cfg. Only an
// access conflict on create is recovered, once, by opening the
// existing object under the caller's session.
func resolveObject(ctx context.Context, handle *EngineHandle, cfg SecureConfig) (Object, error) {
	handle.mu.Lock()
	defer handle.mu.Unlock()

	object, err := handle.engine.CreateObject(
		ctx, cfg.Session, cfg.ObjectID, cfg.ObjectType, cfg.StorageID, cfg.Flags, cfg.Attributes)
	if err == nil {
		return object, nil
	}
	if !errors.Is(err, ErrAccessConflict) {
		return nil, fmt.Errorf("create object %s: %w", cfg.ObjectID, err)
	}

	object, err = handle.engine.OpenObject(ctx, cfg.Session, cfg.ObjectID, cfg.StorageID, cfg.Flags)
	if err != nil {
		return nil, fmt.Errorf("open object %s after create conflict: %w", cfg.ObjectID, err)
	}
	return object, nil
}

func (s *Secure) Write(ctx context.Context, offset uint64, data []byte) error {
	if _, err := s.object.WriteAt(ctx, data, offset); err != nil {
		return fmt.Errorf("write object %s at %d+%d: %w", s.cfg.ObjectID, offset, len(data), err)
	}
	if end := offset + uint64(len(data)); end > s.length {
		s.length = end
	}
	return nil
}

func (s *Secure) Read(ctx context.Context, offset uint64, length uint64) ([]byte, error) {
	if offset > s.length || length > s.length-offset {
		return nil, readBoundsError(s.length, offset, offset+length)
	}
	buf := make([]byte, length)
	if _, err := s.object.ReadAt(ctx, buf, offset); err != nil {
		return nil, fmt.Errorf("read object %s at %d+%d: %w", s.cfg.ObjectID, offset, length, err)
	}
	return buf, nil
}

func (s *Secure) ReadToWriter(ctx context.Context, offset uint64, length uint64, w io.Writer) error {
	return fmt.Errorf("%w: read to writer", ErrNotImplemented)
}

func (s *Secure) DeleteRange(ctx context.Context, offset uint64, length uint64) error {
	return fmt.Errorf("%w: delete range %d+%d", ErrNotImplemented, offset, length)
}

func (s *Secure) Truncate(ctx context.Context, length uint64) error {
	if err := s.object.SetSize(ctx, length); err != nil {
		return fmt.Errorf("truncate object %s to %d: %w", s.cfg.ObjectID, length, err)
	}
	s.length = length
	return nil
}

func (s *Secure) Len(ctx context.Context) (uint64, error) {
	return s.length, nil
}

func (s *Secure) IsEmpty(ctx context.Context) (bool, error) {
	return s.length == 0, nil
}

func (s *Secure) SyncAll(ctx context.Context) error {
	if err := s.object.Sync(ctx); err != nil {
		return fmt.Errorf("sync object %s: %w", s.cfg.ObjectID, err)
	}
	return nil
}

// Close flushes the object best effort and releases it. Mirrors the
// Disk teardown guarantee.
func (s *Secure) Close() error {
	if s.object == nil {
		return nil
	}
	if err := s.object.Sync(context.Background()); err != nil {
		s.log.Infof("close object %s: flush failed: %v", s.cfg.ObjectID, err)
	}
	s.object = nil
	return nil
}
