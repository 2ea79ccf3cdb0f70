package gudaflow

import (
	"fmt"
	"runtime"
	"sync"
)

// Kernel is a data-parallel body over the half-open index range [lo, hi).
// args holds the device views of the buffers passed to Launch, in order.
// Implementations must be safe to call concurrently on disjoint ranges.
type Kernel func(args [][]float32, lo, hi int)

// LaunchConfig describes where and over what range a kernel runs.
type LaunchConfig struct {
	Name      string    // Operation name for logs and errors
	Queue     QueueID   // Queue the launch is enqueued on
	WaitOn    []QueueID // Queues whose current tail must complete first
	N         int       // Number of elements, range [0, N)
	BlockSize int       // Elements per block; DefaultBlockSize if zero
}

// Launch enqueues kernel over [0, cfg.N) on cfg.Queue. Every buffer must
// be present on the device: a launch against an absent region fails here,
// before anything is enqueued, with a precondition error. The kernel sees
// the device mirrors, never the host slices.
func (ctx *Context) Launch(cfg LaunchConfig, kernel Kernel, bufs ...*HostBuffer) (*Handle, error) {
	name := cfg.Name
	if name == "" {
		name = "kernel"
	}
	if cfg.N <= 0 {
		return nil, NewInvalidArgError(name, fmt.Sprintf("launch size must be positive, got %d", cfg.N))
	}
	block := cfg.BlockSize
	if block == 0 {
		block = DefaultBlockSize
	}
	if block < 0 || block > MaxBlockSize {
		return nil, NewInvalidArgError(name, fmt.Sprintf("block size %d out of range", block))
	}

	args := make([][]float32, len(bufs))
	for i, buf := range bufs {
		if buf == nil {
			return nil, NewInvalidArgError(name, "nil buffer")
		}
		ptr, ok := ctx.regions.lookup(buf)
		if !ok {
			return nil, notPresent(name, buf)
		}
		if ptr.Len() < cfg.N {
			return nil, NewInvalidArgError(name,
				fmt.Sprintf("launch size %d exceeds %s device length %d", cfg.N, buf.Name, ptr.Len()))
		}
		args[i] = ptr.data
	}

	n := cfg.N
	return ctx.Enqueue(name, cfg.Queue, cfg.WaitOn, func() error {
		ctx.launchInternal(kernel, args, n, block)
		return nil
	})
}

// launchInternal splits [0, n) into blocks and spreads them over the
// worker pool. Each worker gets a contiguous run of blocks to keep its
// accesses sequential. A single block runs inline.
func (ctx *Context) launchInternal(kernel Kernel, args [][]float32, n, block int) {
	gridSize := (n + block - 1) / block
	numWorkers := ctx.workers.Size()
	if gridSize < numWorkers {
		numWorkers = gridSize
	}
	if numWorkers <= 1 {
		kernel(args, 0, n)
		return
	}

	blocksPerWorker := (gridSize + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup
	var panicked interface{}
	var panicOnce sync.Once
	for w := 0; w < numWorkers; w++ {
		lo := w * blocksPerWorker * block
		if lo >= n {
			break
		}
		hi := lo + blocksPerWorker*block
		if hi > n {
			hi = n
		}
		wg.Add(1)
		ctx.workers.Submit(func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					panicOnce.Do(func() { panicked = r })
				}
			}()
			kernel(args, lo, hi)
		})
	}
	wg.Wait()

	// Re-raise on the stream goroutine so the operation fails.
	if panicked != nil {
		panic(panicked)
	}
}

// WorkerPool manages a pool of worker goroutines for kernel execution
type WorkerPool struct {
	workers int
	tasks   chan func()
	wg      sync.WaitGroup
	once    sync.Once
}

// NewWorkerPool creates a new worker pool
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	pool := &WorkerPool{
		workers: workers,
		tasks:   make(chan func(), workers*2),
	}

	for i := 0; i < workers; i++ {
		pool.wg.Add(1)
		go pool.worker()
	}

	return pool
}

func (wp *WorkerPool) worker() {
	defer wp.wg.Done()
	for task := range wp.tasks {
		task()
	}
}

// Size returns the number of workers.
func (wp *WorkerPool) Size() int {
	return wp.workers
}

// Submit adds a task to the pool. Tasks must not submit further tasks.
func (wp *WorkerPool) Submit(task func()) {
	wp.tasks <- task
}

// Close shuts down the worker pool
func (wp *WorkerPool) Close() {
	wp.once.Do(func() {
		close(wp.tasks)
	})
	wp.wg.Wait()
}
