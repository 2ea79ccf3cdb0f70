package engine

import (
	"fmt"

	"github.com/LynnColeArt/gudaflow"
)

// Buffers are the three host buffers an engine run works on. A and B are
// read-only once initialized; C holds the result.
type Buffers struct {
	A, B, C *gudaflow.HostBuffer
}

// NewBuffers allocates three zeroed buffers of n elements. An allocation
// failure is returned before any buffer is usable.
func NewBuffers(n int) (*Buffers, error) {
	a, err := gudaflow.NewHostBuffer("A", n)
	if err != nil {
		return nil, err
	}
	b, err := gudaflow.NewHostBuffer("B", n)
	if err != nil {
		return nil, err
	}
	c, err := gudaflow.NewHostBuffer("C", n)
	if err != nil {
		return nil, err
	}
	return &Buffers{A: a, B: b, C: c}, nil
}

// FromSlices wraps copies of existing data. All three slices must have the
// same, non-zero length.
func FromSlices(a, b, c []float32) (*Buffers, error) {
	if len(a) == 0 || len(a) != len(b) || len(a) != len(c) {
		return nil, gudaflow.NewInvalidArgError("FromSlices",
			fmt.Sprintf("buffer lengths differ or are zero: %d, %d, %d", len(a), len(b), len(c)))
	}
	return &Buffers{
		A: &gudaflow.HostBuffer{Name: "A", Data: append([]float32(nil), a...)},
		B: &gudaflow.HostBuffer{Name: "B", Data: append([]float32(nil), b...)},
		C: &gudaflow.HostBuffer{Name: "C", Data: append([]float32(nil), c...)},
	}, nil
}

// Len returns the element count.
func (b *Buffers) Len() int {
	return b.C.Len()
}

// Initialize fills A[i] = i*0.001, B[i] = i*0.002 and clears C.
func (b *Buffers) Initialize() {
	for i := range b.A.Data {
		b.A.Data[i] = float32(i) * 0.001
		b.B.Data[i] = float32(i) * 0.002
	}
	b.Reset()
}

// Reset clears C, leaving the inputs untouched.
func (b *Buffers) Reset() {
	b.C.Fill(0)
}

// Clone returns an independent copy, so two engines can start from
// identical inputs.
func (b *Buffers) Clone() *Buffers {
	return &Buffers{
		A: b.A.Clone(b.A.Name),
		B: b.B.Clone(b.B.Name),
		C: b.C.Clone(b.C.Name),
	}
}

func (b *Buffers) all() []*gudaflow.HostBuffer {
	return []*gudaflow.HostBuffer{b.A, b.B, b.C}
}
