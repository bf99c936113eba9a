package storage

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Session is the opaque authenticated session token issued by the
// engine's auth subsystem. This package never inspects it.
type Session uint64

// ObjectID identifies an object within a storage unit of the engine.
type ObjectID uuid.UUID

// NewObjectID returns a fresh random object id.
func NewObjectID() ObjectID {
	return ObjectID(uuid.New())
}

func (id ObjectID) String() string {
	return uuid.UUID(id).String()
}

// ObjectType classifies the content of an engine object. The engine may
// apply type specific handling; this package only forwards it.
type ObjectType uint8

const (
	ObjectUndefined ObjectType = iota
	// ObjectData is plain byte stream content, the default.
	ObjectData
	// ObjectCryptoKeypair marks objects holding key material.
	ObjectCryptoKeypair
)

// ObjectAttributes are engine defined attributes supplied at creation.
type ObjectAttributes map[string][]byte

// ObjectInfo is the metadata the engine reports for an object.
type ObjectInfo struct {
	Size uint64
}

// Object is the file-like surface an engine object must expose.
type Object interface {
	ReadAt(ctx context.Context, p []byte, offset uint64) (int, error)
	WriteAt(ctx context.Context, p []byte, offset uint64) (int, error)
	SetSize(ctx context.Context, size uint64) error
	Info(ctx context.Context) (ObjectInfo, error)
	Sync(ctx context.Context) error
}

// Engine is the secure storage engine surface consumed by the Secure
// backend. Access control and persistence are entirely the engine's
// concern.
//
// CreateObject fails with ErrAccessConflict when the identity already
// exists under another session, and engines must report that case
// distinctly from other failures: it is the one error the caller
// recovers from.
type Engine interface {
	CreateObject(
		ctx context.Context,
		session Session,
		id ObjectID,
		otype ObjectType,
		storageID uint32,
		flags uint32,
		attributes ObjectAttributes,
	) (Object, error)

	OpenObject(
		ctx context.Context,
		session Session,
		id ObjectID,
		storageID uint32,
		flags uint32,
	) (Object, error)
}

// EngineHandle is the shared, internally synchronised handle through
// which all Secure backends address one engine. The lock scope is
// strictly the create-or-open sequence: serialising it is what makes
// the access-conflict fallback observe a consistent outcome when two
// callers race on the same object identity. Per object reads and
// writes are not serialised here.
type EngineHandle struct {
	mu     sync.Mutex
	engine Engine
}

func NewEngineHandle(engine Engine) *EngineHandle {
	return &EngineHandle{engine: engine}
}
