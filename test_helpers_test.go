package gudaflow

import (
	"testing"
)

// newTestContext creates a context with the given queues and destroys it
// when the test ends.
func newTestContext(t testing.TB, queues ...QueueID) *Context {
	t.Helper()
	ctx := NewContext(queues...)
	t.Cleanup(func() { ctx.Destroy() })
	return ctx
}

// BufferOrFail allocates a host buffer filled by fn and fails the test if unsuccessful
func BufferOrFail(t testing.TB, name string, n int, fn func(i int) float32) *HostBuffer {
	t.Helper()
	buf, err := NewHostBuffer(name, n)
	if err != nil {
		t.Fatalf("Failed to allocate %s[%d]: %v", name, n, err)
	}
	if fn != nil {
		for i := range buf.Data {
			buf.Data[i] = fn(i)
		}
	}
	return buf
}

// EnterOrFail mirrors buffers on the device and fails the test if unsuccessful
func EnterOrFail(t testing.TB, ctx *Context, q QueueID, mode EnterMode, bufs ...*HostBuffer) {
	t.Helper()
	if _, err := ctx.EnterData(q, mode, bufs...); err != nil {
		t.Fatalf("EnterData failed: %v", err)
	}
}

// LaunchOrFail launches a kernel and fails the test if unsuccessful
func LaunchOrFail(t testing.TB, ctx *Context, cfg LaunchConfig, kernel Kernel, bufs ...*HostBuffer) *Handle {
	t.Helper()
	h, err := ctx.Launch(cfg, kernel, bufs...)
	if err != nil {
		t.Fatalf("Kernel launch failed: %v", err)
	}
	return h
}

// DrainOrFail drains a queue and fails the test if unsuccessful
func DrainOrFail(t testing.TB, ctx *Context, q QueueID) {
	t.Helper()
	if err := ctx.Drain(q); err != nil {
		t.Fatalf("Drain(%d) failed: %v", q, err)
	}
}
