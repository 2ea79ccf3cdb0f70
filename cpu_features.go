package gudaflow

import (
	"runtime"
	"strings"

	"golang.org/x/sys/cpu"
)

// CPUFeatures tracks the instruction set extensions of the host that backs
// the device. Kernels are plain Go; the features are reported so runs on
// different hosts can be told apart.
type CPUFeatures struct {
	HasSSE4    bool
	HasAVX     bool
	HasAVX2    bool
	HasAVX512F bool
	HasFMA     bool
	HasNEON    bool // ARM64 Advanced SIMD
	HasFP16    bool // ARM64 half precision arithmetic
}

var cpuFeatures CPUFeatures

func init() {
	detectCPUFeatures()
}

func detectCPUFeatures() {
	cpuFeatures = CPUFeatures{
		HasSSE4:    cpu.X86.HasSSE41 || cpu.X86.HasSSE42,
		HasAVX:     cpu.X86.HasAVX,
		HasAVX2:    cpu.X86.HasAVX2,
		HasAVX512F: cpu.X86.HasAVX512F,
		HasFMA:     cpu.X86.HasFMA,
		HasNEON:    cpu.ARM64.HasASIMD,
		HasFP16:    cpu.ARM64.HasFPHP && cpu.ARM64.HasASIMDHP,
	}
}

// GetCPUFeatures returns the detected host features.
func GetCPUFeatures() CPUFeatures {
	return cpuFeatures
}

// List returns the names of the detected extensions in a stable order.
func (f CPUFeatures) List() []string {
	var features []string
	if f.HasSSE4 {
		features = append(features, "SSE4")
	}
	if f.HasAVX {
		features = append(features, "AVX")
	}
	if f.HasAVX2 {
		features = append(features, "AVX2")
	}
	if f.HasFMA {
		features = append(features, "FMA")
	}
	if f.HasAVX512F {
		features = append(features, "AVX512F")
	}
	if f.HasNEON {
		features = append(features, "NEON")
	}
	if f.HasFP16 {
		features = append(features, "FP16")
	}
	return features
}

// GetCPUInfo returns a string describing the host architecture and features
func GetCPUInfo() string {
	features := cpuFeatures.List()
	if len(features) == 0 {
		return runtime.GOARCH + ": no SIMD extensions detected"
	}
	return runtime.GOARCH + ": " + strings.Join(features, ", ")
}
