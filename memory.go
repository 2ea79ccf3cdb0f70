package gudaflow

import (
	"fmt"
	"sync"
)

// MemcpyKind specifies the direction of memory transfer.
// Device memory is host-addressable, so every kind is a plain copy; the
// direction is kept for logging and to mirror accelerator APIs.
type MemcpyKind int

const (
	MemcpyHostToHost     MemcpyKind = iota // Host to host transfer
	MemcpyHostToDevice                     // Host to device transfer
	MemcpyDeviceToHost                     // Device to host transfer
	MemcpyDeviceToDevice                   // Device to device transfer
)

func (k MemcpyKind) String() string {
	switch k {
	case MemcpyHostToHost:
		return "HostToHost"
	case MemcpyHostToDevice:
		return "HostToDevice"
	case MemcpyDeviceToHost:
		return "DeviceToHost"
	case MemcpyDeviceToDevice:
		return "DeviceToDevice"
	default:
		return fmt.Sprintf("MemcpyKind(%d)", int(k))
	}
}

// DevicePtr refers to a device allocation of float32 elements. The zero
// value is a null pointer.
type DevicePtr struct {
	id   uint64
	data []float32
}

// MemoryPool manages device memory allocation with efficient reuse.
// It keeps a free list of released blocks and refuses allocations that
// would exceed its capacity.
type MemoryPool struct {
	mu         sync.Mutex
	capacity   int64
	nextID     uint64
	allocated  map[uint64]*allocation
	freeList   []*allocation
	totalAlloc int64
	peakAlloc  int64
}

type allocation struct {
	id   uint64
	buf  []float32
	used bool
}

// NewMemoryPool creates a pool bounded by capacity bytes.
func NewMemoryPool(capacity uint64) *MemoryPool {
	return &MemoryPool{
		capacity:  int64(capacity),
		allocated: make(map[uint64]*allocation),
	}
}

// Allocate returns a zeroed device allocation of n float32 elements.
func (mp *MemoryPool) Allocate(n int) (DevicePtr, error) {
	if n <= 0 {
		return DevicePtr{}, ErrInvalidSize
	}
	mp.mu.Lock()
	defer mp.mu.Unlock()

	// Round up to alignment
	aligned := (n + MemoryAlignment - 1) &^ (MemoryAlignment - 1)

	// Try to reuse from free list
	for i, alloc := range mp.freeList {
		if len(alloc.buf) >= aligned {
			mp.freeList = append(mp.freeList[:i], mp.freeList[i+1:]...)
			// A reused block gets a fresh id so stale pointers to it
			// no longer resolve.
			delete(mp.allocated, alloc.id)
			mp.nextID++
			alloc.id = mp.nextID
			mp.allocated[alloc.id] = alloc
			alloc.used = true
			clear(alloc.buf)
			mp.track(int64(len(alloc.buf)) * 4)
			return DevicePtr{id: alloc.id, data: alloc.buf[:n:n]}, nil
		}
	}

	bytes := int64(aligned) * 4
	if mp.capacity > 0 && mp.totalAlloc+bytes > mp.capacity {
		return DevicePtr{}, ErrOutOfMemory
	}

	mp.nextID++
	alloc := &allocation{
		id:   mp.nextID,
		buf:  make([]float32, aligned),
		used: true,
	}
	mp.allocated[alloc.id] = alloc
	mp.track(bytes)

	return DevicePtr{id: alloc.id, data: alloc.buf[:n:n]}, nil
}

func (mp *MemoryPool) track(bytes int64) {
	mp.totalAlloc += bytes
	if mp.totalAlloc > mp.peakAlloc {
		mp.peakAlloc = mp.totalAlloc
	}
}

// Free returns memory to the pool. Freeing a null pointer is a no-op.
func (mp *MemoryPool) Free(ptr DevicePtr) error {
	if ptr.IsNil() {
		return nil
	}
	mp.mu.Lock()
	defer mp.mu.Unlock()

	alloc, ok := mp.allocated[ptr.id]
	if !ok {
		// Ids are never handed out twice; a known id missing from the
		// table belonged to a block that was freed and reused since.
		if ptr.id <= mp.nextID {
			return ErrDoubleFree
		}
		return NewMemoryError("Free", "pointer not found in allocation pool", nil)
	}
	if !alloc.used {
		return ErrDoubleFree
	}

	alloc.used = false
	mp.freeList = append(mp.freeList, alloc)
	mp.totalAlloc -= int64(len(alloc.buf)) * 4
	return nil
}

// GetStats returns memory pool statistics in bytes
func (mp *MemoryPool) GetStats() (allocated, peak int64) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.totalAlloc, mp.peakAlloc
}

// Malloc allocates n float32 elements of device memory.
func (ctx *Context) Malloc(n int) (DevicePtr, error) {
	return ctx.memory.Allocate(n)
}

// Free releases device memory allocated by Malloc.
func (ctx *Context) Free(ptr DevicePtr) error {
	return ctx.memory.Free(ptr)
}

// Memcpy synchronously copies n float32 elements from src to dst. Either
// side may be a DevicePtr, a []float32 or a *HostBuffer.
func (ctx *Context) Memcpy(dst, src interface{}, n int, kind MemcpyKind) error {
	d, err := float32View("Memcpy", dst)
	if err != nil {
		return err
	}
	s, err := float32View("Memcpy", src)
	if err != nil {
		return err
	}
	if n < 0 || n > len(d) || n > len(s) {
		return NewInvalidArgError("Memcpy",
			fmt.Sprintf("%s copy of %d elements exceeds dst %d / src %d", kind, n, len(d), len(s)))
	}
	copy(d[:n], s[:n])
	return nil
}

func float32View(op string, v interface{}) ([]float32, error) {
	switch t := v.(type) {
	case DevicePtr:
		return t.data, nil
	case []float32:
		return t, nil
	case *HostBuffer:
		return t.Data, nil
	default:
		return nil, NewInvalidArgError(op, fmt.Sprintf("unsupported operand type: %T", v))
	}
}

// Float32 returns a float32 slice view of the device memory.
func (d DevicePtr) Float32() []float32 {
	return d.data
}

// Len returns the number of float32 elements.
func (d DevicePtr) Len() int {
	return len(d.data)
}

// Size returns the size in bytes of the memory region
func (d DevicePtr) Size() int {
	return len(d.data) * 4
}

// IsNil reports whether d is the null pointer.
func (d DevicePtr) IsNil() bool {
	return d.id == 0
}
