// Package gudaflow configuration constants
package gudaflow

// Thread and block dimensions
const (
	// Default number of elements a kernel block processes
	DefaultBlockSize = 256

	// Maximum elements per block
	MaxBlockSize = 1 << 20
)

// Queue parameters
const (
	// DefaultQueue is the queue every context owns. Synchronous work runs here.
	DefaultQueue QueueID = 0

	// Initial capacity of a stream's pending list
	StreamPendingCapacity = 64
)

// Memory pool parameters
const (
	// Memory alignment for allocations, in float32 elements (one cache line)
	MemoryAlignment = 16

	// Assumed device memory when the host cannot be queried (16GB)
	defaultSystemMemory = 16 * 1024 * 1024 * 1024
)

// Verification parameters
const (
	// DefaultVerifyTolerance is the maximum absolute per-element difference
	DefaultVerifyTolerance = 1e-4

	// MaxReportedMismatches bounds the itemized mismatches in a VerifyResult
	MaxReportedMismatches = 5
)
