// Package gudaflow provides an accelerator-style execution runtime for the
// CPU: device memory regions mirrored from host buffers, independently
// ordered command queues with explicit cross-queue wait edges, and
// data-parallel kernel launches.
//
// Example usage:
//
//	ctx := gudaflow.NewContext(1, 2)
//	defer ctx.Destroy()
//
//	// Mirror host buffers on the device
//	ctx.EnterData(1, gudaflow.EnterCopyIn, a, b)
//	ctx.EnterData(1, gudaflow.EnterCreate, c)
//
//	// Queue 2 waits for everything queue 1 has been given so far
//	ctx.Launch(gudaflow.LaunchConfig{Queue: 2, WaitOn: []gudaflow.QueueID{1}, N: n},
//	    myKernel, a, b, c)
//
//	// Copy c back once queue 2 is done, then block the host
//	ctx.ExitData(1, []gudaflow.QueueID{2}, gudaflow.ExitCopyOut, c)
//	ctx.Drain(1)
package gudaflow

import (
	"fmt"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
)

// Device represents the compute device. In gudaflow this is the CPU with
// its cores and available memory.
type Device struct {
	ID         int    // Unique device identifier
	Name       string // Human-readable device name
	TotalMem   uint64 // Total available memory in bytes
	NumCores   int    // Number of CPU cores
	MaxThreads int    // Maximum concurrent kernel workers
	Features   string // Detected instruction set extensions
}

// Context owns the queues, device memory and region table of one run.
// The queue set is fixed at creation; enqueueing on any other id fails.
type Context struct {
	device    *Device
	streams   map[QueueID]*Stream
	memory    *MemoryPool
	regions   *regionTable
	workers   *WorkerPool
	destroyed atomic.Bool
	destroyMu sync.Mutex
}

var (
	defaultDevice *Device
	initOnce      sync.Once
)

func init() {
	initOnce.Do(func() {
		defaultDevice = &Device{
			ID:         0,
			Name:       "CPU",
			TotalMem:   getSystemMemory(),
			NumCores:   runtime.NumCPU(),
			MaxThreads: runtime.NumCPU(),
			Features:   GetCPUInfo(),
		}
	})
}

// GetDevice returns the current device information.
func GetDevice() *Device {
	return defaultDevice
}

// NewContext creates a context owning DefaultQueue plus the given queues.
// Each queue gets its own worker goroutine. Negative or duplicate ids are a
// programming error and panic.
func NewContext(queues ...QueueID) *Context {
	ctx := &Context{
		device:  defaultDevice,
		streams: make(map[QueueID]*Stream, len(queues)+1),
		memory:  NewMemoryPool(defaultDevice.TotalMem),
		regions: newRegionTable(),
		workers: NewWorkerPool(defaultDevice.MaxThreads),
	}
	ctx.streams[DefaultQueue] = newStream(DefaultQueue)
	for _, q := range queues {
		if q < 0 {
			panic(fmt.Sprintf("gudaflow: negative queue id %d", q))
		}
		if _, dup := ctx.streams[q]; dup {
			panic(fmt.Sprintf("gudaflow: duplicate queue id %d", q))
		}
		ctx.streams[q] = newStream(q)
	}
	Logger().Debug("context created", "queues", ctx.Queues(), "device", ctx.device.Name)
	return ctx
}

// Device returns the device this context runs on.
func (ctx *Context) Device() *Device {
	return ctx.device
}

// Queues returns the ids of the queues owned by the context, ascending.
func (ctx *Context) Queues() []QueueID {
	ids := make([]QueueID, 0, len(ctx.streams))
	for id := range ctx.streams {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// HasQueue reports whether q belongs to the context.
func (ctx *Context) HasQueue(q QueueID) bool {
	_, ok := ctx.streams[q]
	return ok
}

// MemoryStats returns the bytes currently allocated and the peak.
func (ctx *Context) MemoryStats() (allocated, peak int64) {
	return ctx.memory.GetStats()
}

// Destroy drains every queue, stops the queue workers and the kernel
// worker pool, and releases device memory still held by present regions.
// It returns the first operation failure seen while draining. Calling
// Destroy more than once is a no-op.
func (ctx *Context) Destroy() error {
	ctx.destroyMu.Lock()
	defer ctx.destroyMu.Unlock()
	if ctx.destroyed.Load() {
		return nil
	}
	err := ctx.Synchronize()
	ctx.destroyed.Store(true)
	for _, s := range ctx.streams {
		s.close()
	}
	ctx.workers.Close()
	for _, ptr := range ctx.regions.releaseAll() {
		ctx.memory.Free(ptr)
	}
	Logger().Debug("context destroyed")
	return err
}
