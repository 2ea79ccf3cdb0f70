package gudaflow

import (
	"fmt"
	"sync"
)

// RegionState is the presence of a host buffer's mirror on the device.
type RegionState int

const (
	RegionAbsent RegionState = iota
	RegionPresent
)

func (s RegionState) String() string {
	if s == RegionPresent {
		return "present"
	}
	return "absent"
}

// EnterMode selects what EnterData does besides allocating the mirror.
type EnterMode int

const (
	// EnterCopyIn allocates the mirror and transfers the host contents.
	EnterCopyIn EnterMode = iota
	// EnterCreate only allocates; the mirror starts zeroed.
	EnterCreate
)

func (m EnterMode) String() string {
	if m == EnterCreate {
		return "create"
	}
	return "copyin"
}

// ExitMode selects what ExitData does before releasing the mirror.
type ExitMode int

const (
	// ExitCopyOut transfers the device contents back to the host.
	ExitCopyOut ExitMode = iota
	// ExitDelete releases the mirror without a transfer.
	ExitDelete
)

func (m ExitMode) String() string {
	if m == ExitDelete {
		return "delete"
	}
	return "copyout"
}

// regionTable is the host-side present table. Entries change at enqueue
// time; the transfers they imply run later on a queue.
type regionTable struct {
	mu      sync.Mutex
	regions map[*HostBuffer]DevicePtr
}

func newRegionTable() *regionTable {
	return &regionTable{regions: make(map[*HostBuffer]DevicePtr)}
}

func (rt *regionTable) lookup(buf *HostBuffer) (DevicePtr, bool) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	ptr, ok := rt.regions[buf]
	return ptr, ok
}

func (rt *regionTable) releaseAll() []DevicePtr {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	ptrs := make([]DevicePtr, 0, len(rt.regions))
	for buf, ptr := range rt.regions {
		ptrs = append(ptrs, ptr)
		delete(rt.regions, buf)
	}
	return ptrs
}

// Present reports whether buf has a device mirror.
func (ctx *Context) Present(buf *HostBuffer) bool {
	_, ok := ctx.regions.lookup(buf)
	return ok
}

// RegionState returns the state of buf's device mirror.
func (ctx *Context) RegionState(buf *HostBuffer) RegionState {
	if ctx.Present(buf) {
		return RegionPresent
	}
	return RegionAbsent
}

// DeviceView returns the device mirror of buf. It fails with a precondition
// error if the region is absent.
func (ctx *Context) DeviceView(buf *HostBuffer) (DevicePtr, error) {
	ptr, ok := ctx.regions.lookup(buf)
	if !ok {
		return DevicePtr{}, notPresent("DeviceView", buf)
	}
	return ptr, nil
}

// EnterData establishes device mirrors for bufs. Allocation happens now and
// the regions are present as soon as EnterData returns; with EnterCopyIn the
// host-to-device transfer is enqueued on q and completes asynchronously.
//
// Entering a buffer that is already present is an invalid argument. If any
// allocation fails, mirrors allocated by this call are released and nothing
// is enqueued.
func (ctx *Context) EnterData(q QueueID, mode EnterMode, bufs ...*HostBuffer) (*Handle, error) {
	if ctx.destroyed.Load() {
		return nil, ErrContextDestroyed
	}
	if !ctx.HasQueue(q) {
		return nil, unknownQueue("EnterData", q)
	}
	if err := checkBuffers("EnterData", bufs); err != nil {
		return nil, err
	}

	ctx.regions.mu.Lock()
	ptrs := make([]DevicePtr, len(bufs))
	for i, buf := range bufs {
		if _, ok := ctx.regions.regions[buf]; ok {
			ctx.regions.mu.Unlock()
			ctx.freeAll(ptrs[:i])
			return nil, NewInvalidArgError("EnterData", fmt.Sprintf("buffer %s already present", buf))
		}
		ptr, err := ctx.memory.Allocate(buf.Len())
		if err != nil {
			ctx.regions.mu.Unlock()
			ctx.freeAll(ptrs[:i])
			return nil, NewMemoryError("EnterData", fmt.Sprintf("allocating mirror of %s", buf), err)
		}
		ptrs[i] = ptr
	}
	for i, buf := range bufs {
		ctx.regions.regions[buf] = ptrs[i]
	}
	ctx.regions.mu.Unlock()

	Logger().Info("enter data", "queue", q, "mode", mode, "buffers", bufNames(bufs))

	name := "enter " + mode.String()
	if mode == EnterCreate {
		return ctx.Enqueue(name, q, nil, func() error { return nil })
	}
	return ctx.Enqueue(name, q, nil, func() error {
		for i, buf := range bufs {
			copy(ptrs[i].data, buf.Data)
		}
		return nil
	})
}

// ExitData removes the device mirrors of bufs. The regions become absent as
// soon as ExitData returns. The copy-out (for ExitCopyOut) and the release
// of device memory are enqueued on q behind the wait edges in waitOn; the
// host contents are valid once q is drained. The memory is released even
// if q or an awaited queue has failed, in which case the copy-out is
// skipped.
//
// Exiting an absent region is a precondition error.
func (ctx *Context) ExitData(q QueueID, waitOn []QueueID, mode ExitMode, bufs ...*HostBuffer) (*Handle, error) {
	if ctx.destroyed.Load() {
		return nil, ErrContextDestroyed
	}
	if !ctx.HasQueue(q) {
		return nil, unknownQueue("ExitData", q)
	}
	for _, w := range waitOn {
		if !ctx.HasQueue(w) {
			return nil, unknownQueue("ExitData", w)
		}
	}
	if err := checkBuffers("ExitData", bufs); err != nil {
		return nil, err
	}

	ctx.regions.mu.Lock()
	ptrs := make([]DevicePtr, len(bufs))
	for i, buf := range bufs {
		ptr, ok := ctx.regions.regions[buf]
		if !ok {
			ctx.regions.mu.Unlock()
			return nil, notPresent("ExitData", buf)
		}
		ptrs[i] = ptr
	}
	for _, buf := range bufs {
		delete(ctx.regions.regions, buf)
	}
	ctx.regions.mu.Unlock()

	Logger().Info("exit data", "queue", q, "mode", mode, "buffers", bufNames(bufs))

	copyOut := func() error {
		if mode == ExitCopyOut {
			for i, buf := range bufs {
				copy(buf.Data, ptrs[i].data)
			}
		}
		return nil
	}
	return ctx.enqueue("exit "+mode.String(), q, waitOn, copyOut, func() error {
		return ctx.freeAll(ptrs)
	})
}

// UpdateHost enqueues a device-to-host transfer of present regions without
// changing their state.
func (ctx *Context) UpdateHost(q QueueID, waitOn []QueueID, bufs ...*HostBuffer) (*Handle, error) {
	return ctx.update("UpdateHost", MemcpyDeviceToHost, q, waitOn, bufs)
}

// UpdateDevice enqueues a host-to-device transfer of present regions without
// changing their state.
func (ctx *Context) UpdateDevice(q QueueID, waitOn []QueueID, bufs ...*HostBuffer) (*Handle, error) {
	return ctx.update("UpdateDevice", MemcpyHostToDevice, q, waitOn, bufs)
}

func (ctx *Context) update(op string, kind MemcpyKind, q QueueID, waitOn []QueueID, bufs []*HostBuffer) (*Handle, error) {
	if err := checkBuffers(op, bufs); err != nil {
		return nil, err
	}
	ptrs := make([]DevicePtr, len(bufs))
	for i, buf := range bufs {
		ptr, ok := ctx.regions.lookup(buf)
		if !ok {
			return nil, notPresent(op, buf)
		}
		ptrs[i] = ptr
	}
	return ctx.Enqueue(op, q, waitOn, func() error {
		for i, buf := range bufs {
			var err error
			if kind == MemcpyDeviceToHost {
				err = ctx.Memcpy(buf, ptrs[i], buf.Len(), kind)
			} else {
				err = ctx.Memcpy(ptrs[i], buf, buf.Len(), kind)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (ctx *Context) freeAll(ptrs []DevicePtr) error {
	var first error
	for _, ptr := range ptrs {
		if err := ctx.memory.Free(ptr); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func checkBuffers(op string, bufs []*HostBuffer) error {
	if len(bufs) == 0 {
		return NewInvalidArgError(op, "no buffers given")
	}
	for _, buf := range bufs {
		if buf == nil || buf.Len() == 0 {
			return NewInvalidArgError(op, "nil or empty buffer")
		}
	}
	return nil
}

func notPresent(op string, buf *HostBuffer) error {
	return NewPreconditionError(op, ErrNotPresent.(*Error).Message, buf.Name)
}

func bufNames(bufs []*HostBuffer) []string {
	names := make([]string, len(bufs))
	for i, b := range bufs {
		names[i] = b.Name
	}
	return names
}
