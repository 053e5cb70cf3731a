package abi

import (
	"sync"

	tsgobridge "github.com/wippyai/tsgo-bridge"
)

type Memory = tsgobridge.Memory
type Allocator = tsgobridge.Allocator
type Heap = tsgobridge.Heap

// Owner says which side of the boundary must free a block.
type Owner uint8

const (
	// HostOwned blocks are freed by the host after the consuming call returns.
	HostOwned Owner = iota
	// EngineOwned blocks are freed by the engine, or by the host only through
	// the engine's matching free entry point.
	EngineOwned
)

func (o Owner) String() string {
	if o == EngineOwned {
		return "engine"
	}
	return "host"
}

// Allocation is one block in engine memory.
type Allocation struct {
	Ptr   uint32
	Size  uint32
	Align uint32
	Owner Owner
}

// AllocationList records host-owned allocations so they can be freed together.
type AllocationList struct {
	allocations []Allocation
}

var allocationListPool = sync.Pool{
	New: func() any {
		return &AllocationList{allocations: make([]Allocation, 0, 16)}
	},
}

func NewAllocationList() *AllocationList {
	return allocationListPool.Get().(*AllocationList)
}

const maxPooledAllocationCapacity = 256

// Release returns to pool. Must call after Free(); list invalid after Release.
func (al *AllocationList) Release() {
	if cap(al.allocations) > maxPooledAllocationCapacity {
		return
	}
	al.Reset()
	allocationListPool.Put(al)
}

func (al *AllocationList) FreeAndRelease(allocator Allocator) {
	al.Free(allocator)
	al.Release()
}

func (al *AllocationList) Add(ptr, size, align uint32) {
	al.allocations = append(al.allocations, Allocation{
		Ptr:   ptr,
		Size:  size,
		Align: align,
	})
}

// Free releases every allocation, newest first, and empties the list.
func (al *AllocationList) Free(allocator Allocator) {
	if allocator == nil {
		return
	}
	for i := len(al.allocations) - 1; i >= 0; i-- {
		a := al.allocations[i]
		if a.Ptr != 0 {
			allocator.Free(a.Ptr, a.Size, a.Align)
		}
	}
	al.Reset()
}

// Detach hands every allocation over to the engine. The list forgets them
// without freeing; the engine is now responsible for them.
func (al *AllocationList) Detach() []Allocation {
	out := make([]Allocation, len(al.allocations))
	for i, a := range al.allocations {
		a.Owner = EngineOwned
		out[i] = a
	}
	al.Reset()
	return out
}

func (al *AllocationList) Reset() {
	al.allocations = al.allocations[:0]
}

func (al *AllocationList) Count() int {
	return len(al.allocations)
}
