package abi

import (
	"encoding/binary"
	"fmt"
	"sort"
	"sync"
)

const (
	pageSize = 64 * 1024
	// arenaBase keeps address 0 free so it can mean null.
	arenaBase = 16
	// DefaultArenaPages bounds an Arena at 256MB.
	DefaultArenaPages = 4096
)

type span struct {
	off  uint32
	size uint32
}

// Arena is a Go-owned linear memory with a first-fit allocator. It lets an
// in-process engine speak the same pointer-based ABI as a wasm engine.
// All methods are safe for concurrent use.
type Arena struct {
	mem      []byte
	free     []span
	live     map[uint32]uint32
	top      uint32
	maxBytes uint32
	mu       sync.Mutex
}

// NewArena creates an arena that may grow to maxPages 64KB pages.
// maxPages of 0 means DefaultArenaPages.
func NewArena(maxPages uint32) *Arena {
	if maxPages == 0 {
		maxPages = DefaultArenaPages
	}
	if maxPages > 65535 {
		maxPages = 65535
	}
	return &Arena{
		mem:      make([]byte, pageSize),
		live:     make(map[uint32]uint32),
		top:      arenaBase,
		maxBytes: maxPages * pageSize,
	}
}

func alignUp(v, align uint32) uint32 {
	if align <= 1 {
		return v
	}
	return (v + align - 1) &^ (align - 1)
}

// Alloc returns a block of at least size bytes. Blocks are 8-byte aligned
// unless a larger power-of-two alignment is requested.
func (a *Arena) Alloc(size, align uint32) (uint32, error) {
	if size == 0 {
		size = 1
	}
	if align < dataAlign {
		align = dataAlign
	}
	size = alignUp(size, dataAlign)

	a.mu.Lock()
	defer a.mu.Unlock()

	for i, s := range a.free {
		start := alignUp(s.off, align)
		if start+size > s.off+s.size {
			continue
		}
		a.takeFree(i, start, size)
		a.live[start] = size
		return start, nil
	}

	start := alignUp(a.top, align)
	end := uint64(start) + uint64(size)
	if end > uint64(a.maxBytes) {
		return 0, fmt.Errorf("arena exhausted: need %d bytes, limit %d", size, a.maxBytes)
	}
	if err := a.grow(uint32(end)); err != nil {
		return 0, err
	}
	if start > a.top {
		a.insertFree(span{off: a.top, size: start - a.top})
	}
	a.top = uint32(end)
	a.live[start] = size
	return start, nil
}

func (a *Arena) grow(end uint32) error {
	if end <= uint32(len(a.mem)) {
		return nil
	}
	n := uint64(len(a.mem))
	for n < uint64(end) {
		n *= 2
	}
	if n > uint64(a.maxBytes) {
		n = uint64(a.maxBytes)
	}
	grown := make([]byte, n)
	copy(grown, a.mem)
	a.mem = grown
	return nil
}

// takeFree carves [start, start+size) out of free span i.
func (a *Arena) takeFree(i int, start, size uint32) {
	s := a.free[i]
	a.free = append(a.free[:i], a.free[i+1:]...)
	if start > s.off {
		a.insertFree(span{off: s.off, size: start - s.off})
	}
	if tail := s.off + s.size - (start + size); tail > 0 {
		a.insertFree(span{off: start + size, size: tail})
	}
}

func (a *Arena) insertFree(s span) {
	i := sort.Search(len(a.free), func(i int) bool { return a.free[i].off >= s.off })
	a.free = append(a.free, span{})
	copy(a.free[i+1:], a.free[i:])
	a.free[i] = s

	// coalesce with neighbours
	if i+1 < len(a.free) && a.free[i].off+a.free[i].size == a.free[i+1].off {
		a.free[i].size += a.free[i+1].size
		a.free = append(a.free[:i+1], a.free[i+2:]...)
	}
	if i > 0 && a.free[i-1].off+a.free[i-1].size == a.free[i].off {
		a.free[i-1].size += a.free[i].size
		a.free = append(a.free[:i], a.free[i+1:]...)
	}
}

// Free releases the block at ptr. Unknown pointers and double frees are ignored.
func (a *Arena) Free(ptr, _, _ uint32) {
	if ptr == 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	size, ok := a.live[ptr]
	if !ok {
		return
	}
	delete(a.live, ptr)
	clear(a.mem[ptr : ptr+size])
	a.insertFree(span{off: ptr, size: size})
}

// Live is the number of blocks currently allocated.
func (a *Arena) Live() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.live)
}

// Size is the current size of the arena's memory in bytes.
func (a *Arena) Size() uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return uint32(len(a.mem))
}

func (a *Arena) bounds(offset, length uint32) error {
	if uint64(offset)+uint64(length) > uint64(len(a.mem)) {
		return fmt.Errorf("out of bounds: offset=%d, length=%d, size=%d", offset, length, len(a.mem))
	}
	return nil
}

// Read returns a copy; the arena may move its backing storage when it grows.
func (a *Arena) Read(offset, length uint32) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.bounds(offset, length); err != nil {
		return nil, err
	}
	out := make([]byte, length)
	copy(out, a.mem[offset:offset+length])
	return out, nil
}

func (a *Arena) Write(offset uint32, data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.bounds(offset, uint32(len(data))); err != nil {
		return err
	}
	copy(a.mem[offset:], data)
	return nil
}

func (a *Arena) ReadU8(offset uint32) (uint8, error) {
	b, err := a.Read(offset, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (a *Arena) ReadU32(offset uint32) (uint32, error) {
	b, err := a.Read(offset, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (a *Arena) WriteU8(offset uint32, value uint8) error {
	return a.Write(offset, []byte{value})
}

func (a *Arena) WriteU32(offset uint32, value uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], value)
	return a.Write(offset, buf[:])
}

var _ Heap = (*Arena)(nil)
