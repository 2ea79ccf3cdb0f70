// Package kernels implements the three elementwise stages of the pipeline.
//
// Every stage reads A and B and updates C in place over an index range.
// Indices are independent within a stage, so any partition of [0, n) into
// ranges, processed in any order, produces the same C.
//
// Arithmetic is float32 with an explicit conversion after every product so
// the compiler cannot contract a multiply-add into an FMA; the stages give
// bit-identical results however they are scheduled.
package kernels

import "fmt"

// Stage identifies one pipeline stage.
type Stage int

const (
	StageCombine      Stage = iota // S1: C = A + B
	StageScaleBlend                // S2: C = 2C + A/2
	StageGuardedFused              // S3: C += AB/(C+1), guarded
)

var stageNames = [...]string{
	StageCombine:      "combine",
	StageScaleBlend:   "scale-blend",
	StageGuardedFused: "guarded-fused",
}

func (s Stage) String() string {
	if s >= 0 && int(s) < len(stageNames) {
		return stageNames[s]
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// Stages returns the stages in pipeline order.
func Stages() []Stage {
	return []Stage{StageCombine, StageScaleBlend, StageGuardedFused}
}

// RangeFn applies a stage to c over [lo, hi).
type RangeFn func(a, b, c []float32, lo, hi int)

// Catalog maps stages to their implementations.
var Catalog = [...]RangeFn{
	StageCombine:      Combine,
	StageScaleBlend:   ScaleBlend,
	StageGuardedFused: GuardedFused,
}

// Combine computes c[i] = a[i] + b[i].
func Combine(a, b, c []float32, lo, hi int) {
	a, b, c = a[lo:hi], b[lo:hi], c[lo:hi]
	for i := range c {
		c[i] = a[i] + b[i]
	}
}

// ScaleBlend computes c[i] = c[i]*2 + a[i]*0.5.
func ScaleBlend(a, _, c []float32, lo, hi int) {
	a, c = a[lo:hi], c[lo:hi]
	for i := range c {
		c[i] = float32(c[i]*2) + float32(a[i]*0.5)
	}
}

// GuardedFused computes c[i] += a[i]*b[i] / (c[i]+1). Where c[i]+1 is
// exactly zero the division is skipped and c[i] += a[i]*b[i].
func GuardedFused(a, b, c []float32, lo, hi int) {
	a, b, c = a[lo:hi], b[lo:hi], c[lo:hi]
	for i := range c {
		prod := float32(a[i] * b[i])
		denom := c[i] + 1
		if denom != 0 {
			c[i] = c[i] + float32(prod/denom)
		} else {
			c[i] = c[i] + prod
		}
	}
}

// Apply runs stage over [lo, hi). It panics on an unknown stage.
func Apply(stage Stage, a, b, c []float32, lo, hi int) {
	if stage < 0 || int(stage) >= len(Catalog) {
		panic(fmt.Sprintf("kernels: unknown stage %d", int(stage)))
	}
	Catalog[stage](a, b, c, lo, hi)
}

// Kernel adapts stage to the launch signature, where args holds the
// device views of A, B and C in that order.
func Kernel(stage Stage) func(args [][]float32, lo, hi int) {
	fn := Catalog[stage]
	return func(args [][]float32, lo, hi int) {
		fn(args[0], args[1], args[2], lo, hi)
	}
}

// Reference runs iterations passes of all three stages over the whole
// buffers on the calling goroutine. It is the plain-loop baseline the
// engines are checked against.
func Reference(a, b, c []float32, iterations int) {
	n := len(c)
	for it := 0; it < iterations; it++ {
		for _, s := range Stages() {
			Apply(s, a, b, c, 0, n)
		}
	}
}
