// Package storagetest provides an in memory secure storage engine for
// exercising the Secure backend and feeds built over it.
package storagetest

import (
	"context"
	"fmt"
	"sync"

	"github.com/ntauth/hypercore/storage"
)

type objectKey struct {
	storageID uint32
	id        storage.ObjectID
}

// MemEngine is an in memory storage.Engine. Objects persist for the
// lifetime of the engine, so a second construction against the same
// identity exercises the create conflict path exactly as a real engine
// would.
type MemEngine struct {
	mu      sync.Mutex
	objects map[objectKey]*memObject
}

func NewMemEngine() *MemEngine {
	return &MemEngine{objects: map[objectKey]*memObject{}}
}

func (e *MemEngine) CreateObject(
	ctx context.Context,
	session storage.Session,
	id storage.ObjectID,
	otype storage.ObjectType,
	storageID uint32,
	flags uint32,
	attributes storage.ObjectAttributes,
) (storage.Object, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	key := objectKey{storageID: storageID, id: id}
	if existing, ok := e.objects[key]; ok {
		return nil, fmt.Errorf(
			"%w: object %s held by session %d", storage.ErrAccessConflict, id, existing.owner)
	}
	obj := &memObject{
		owner: session,
		otype: otype,
		flags: flags,
		attrs: attributes,
	}
	e.objects[key] = obj
	return obj, nil
}

func (e *MemEngine) OpenObject(
	ctx context.Context,
	session storage.Session,
	id storage.ObjectID,
	storageID uint32,
	flags uint32,
) (storage.Object, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	obj, ok := e.objects[objectKey{storageID: storageID, id: id}]
	if !ok {
		return nil, fmt.Errorf("%w: object %s", storage.ErrObjectNotFound, id)
	}
	return obj, nil
}

type memObject struct {
	mu    sync.Mutex
	owner storage.Session
	otype storage.ObjectType
	flags uint32
	attrs storage.ObjectAttributes
	data  []byte
	syncs int
}

func (o *memObject) ReadAt(ctx context.Context, p []byte, offset uint64) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	end := offset + uint64(len(p))
	if end > uint64(len(o.data)) {
		return 0, fmt.Errorf("storagetest: read %d..%d past object size %d", offset, end, len(o.data))
	}
	return copy(p, o.data[offset:end]), nil
}

func (o *memObject) WriteAt(ctx context.Context, p []byte, offset uint64) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	end := offset + uint64(len(p))
	if end > uint64(len(o.data)) {
		grown := make([]byte, end)
		copy(grown, o.data)
		o.data = grown
	}
	return copy(o.data[offset:end], p), nil
}

func (o *memObject) SetSize(ctx context.Context, size uint64) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if size <= uint64(len(o.data)) {
		o.data = o.data[:size]
		return nil
	}
	grown := make([]byte, size)
	copy(grown, o.data)
	o.data = grown
	return nil
}

func (o *memObject) Info(ctx context.Context) (storage.ObjectInfo, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return storage.ObjectInfo{Size: uint64(len(o.data))}, nil
}

func (o *memObject) Sync(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.syncs++
	return nil
}

// Syncs reports how many times the object has been flushed. Test only.
func (o *memObject) Syncs() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.syncs
}
