package gudaflow

import (
	"fmt"
	"math"
)

// HostBuffer is a named, contiguous sequence of float32 values in host
// memory. The engine that creates a buffer owns it; the device only ever
// holds a mirror entered through EnterData.
type HostBuffer struct {
	Name string
	Data []float32
}

// NewHostBuffer allocates a zeroed host buffer of n elements. Requests that
// exceed the device's host memory fail with ErrOutOfMemory instead of
// letting the runtime abort.
func NewHostBuffer(name string, n int) (*HostBuffer, error) {
	if n <= 0 {
		return nil, ErrInvalidSize
	}
	bytes := uint64(n) * 4
	if n > math.MaxInt/4 || bytes > defaultDevice.TotalMem {
		return nil, &Error{
			Type:    ErrTypeMemory,
			Op:      "NewHostBuffer",
			Message: ErrOutOfMemory.(*Error).Message,
			Context: fmt.Sprintf("%s: %d elements", name, n),
		}
	}
	return &HostBuffer{Name: name, Data: make([]float32, n)}, nil
}

// Len returns the number of elements.
func (b *HostBuffer) Len() int {
	return len(b.Data)
}

// Fill sets every element to v.
func (b *HostBuffer) Fill(v float32) {
	for i := range b.Data {
		b.Data[i] = v
	}
}

// Clone returns a deep copy of the buffer under a new name.
func (b *HostBuffer) Clone(name string) *HostBuffer {
	return &HostBuffer{Name: name, Data: append([]float32(nil), b.Data...)}
}

func (b *HostBuffer) String() string {
	return fmt.Sprintf("%s[%d]", b.Name, len(b.Data))
}
