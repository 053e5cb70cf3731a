package abi

import (
	"context"
	"sync"
)

// ReleaseFunc frees an engine-owned record through the engine's free entry point.
type ReleaseFunc func(ctx context.Context, ptr uint32) error

// EngineBuffer is an engine-owned record the host has borrowed. The host must
// copy out what it needs and then call Release, which runs the engine's
// matching free entry point exactly once.
type EngineBuffer struct {
	release ReleaseFunc
	err     error
	ptr     uint32
	once    sync.Once
}

// Borrow wraps ptr. A null ptr yields a buffer whose Release is a no-op.
func Borrow(ptr uint32, release ReleaseFunc) *EngineBuffer {
	return &EngineBuffer{ptr: ptr, release: release}
}

func (b *EngineBuffer) Ptr() uint32 {
	return b.ptr
}

// Owner is always EngineOwned; the type exists so host code cannot free the
// record with its own allocator.
func (b *EngineBuffer) Owner() Owner {
	return EngineOwned
}

// Release frees the record. Later calls return the first call's result.
func (b *EngineBuffer) Release(ctx context.Context) error {
	b.once.Do(func() {
		if b.ptr == 0 || b.release == nil {
			return
		}
		b.err = b.release(ctx, b.ptr)
	})
	return b.err
}
