//go:build !linux

package gudaflow

// getSystemMemory returns the portable default; only Linux queries the kernel.
func getSystemMemory() uint64 {
	return defaultSystemMemory
}
