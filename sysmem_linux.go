//go:build linux

package gudaflow

import "golang.org/x/sys/unix"

// getSystemMemory returns total physical memory in bytes as reported by
// sysinfo(2), falling back to the portable default if the call fails.
func getSystemMemory() uint64 {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return defaultSystemMemory
	}
	total := uint64(info.Totalram) * uint64(info.Unit)
	if total == 0 {
		return defaultSystemMemory
	}
	return total
}
