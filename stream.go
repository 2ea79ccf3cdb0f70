package gudaflow

import (
	"fmt"
	"sync"
)

// QueueID names one of a context's command queues.
type QueueID int

// Handle tracks one enqueued operation. Done is closed when the operation
// has finished, successfully or not; Err is valid only after that.
type Handle struct {
	name  string
	queue QueueID
	seq   uint64
	done  chan struct{}
	err   error
}

// Name returns the operation name given at enqueue time.
func (h *Handle) Name() string { return h.name }

// Queue returns the queue the operation was enqueued on.
func (h *Handle) Queue() QueueID { return h.queue }

// Seq returns the operation's position on its queue, starting at 1.
func (h *Handle) Seq() uint64 { return h.seq }

// Done returns a channel closed when the operation completes.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Wait blocks until the operation completes and returns its error.
func (h *Handle) Wait() error {
	<-h.done
	return h.err
}

// Err returns the operation's failure, or nil. It must only be called
// after Done is closed.
func (h *Handle) Err() error { return h.err }

// Completed reports whether the operation has finished without blocking.
func (h *Handle) Completed() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// operation is a unit of work on a stream. deps are the handles captured
// from other queues when the wait edges were declared. release, if set,
// runs after the dependencies even when run is skipped.
type operation struct {
	handle  *Handle
	deps    []*Handle
	run     func() error
	release func() error
}

// Stream represents an ordered sequence of operations that execute
// asynchronously. Operations within a stream execute in order, but
// operations in different streams may execute concurrently unless a wait
// edge orders them.
type Stream struct {
	id      QueueID
	mu      sync.Mutex
	cond    *sync.Cond
	pending []*operation
	last    *Handle
	seq     uint64
	closed  bool
	exited  chan struct{}
}

func newStream(id QueueID) *Stream {
	s := &Stream{
		id:      id,
		pending: make([]*operation, 0, StreamPendingCapacity),
		exited:  make(chan struct{}),
	}
	s.cond = sync.NewCond(&s.mu)

	go s.worker()
	return s
}

// ID returns the queue id served by the stream.
func (s *Stream) ID() QueueID {
	return s.id
}

// worker executes operations in FIFO order. Once an operation fails every
// later operation on the stream is skipped and inherits the failure; only
// their release steps still run.
func (s *Stream) worker() {
	defer close(s.exited)

	var failed error
	for {
		s.mu.Lock()
		for len(s.pending) == 0 && !s.closed {
			s.cond.Wait()
		}
		if len(s.pending) == 0 {
			s.mu.Unlock()
			return
		}
		op := s.pending[0]
		s.pending[0] = nil
		s.pending = s.pending[1:]
		s.mu.Unlock()

		err := failed
		for _, dep := range op.deps {
			<-dep.done
			if err == nil && dep.err != nil {
				err = dep.err
			}
		}
		if err == nil {
			err = execute(op, op.run)
		}
		if op.release != nil {
			if rerr := execute(op, op.release); err == nil {
				err = rerr
			}
		}
		if err != nil && failed == nil {
			failed = err
			Logger().Warn("operation failed", "queue", s.id, "op", op.handle.name, "err", err)
		}
		op.handle.err = err
		close(op.handle.done)
	}
}

// execute runs fn on behalf of op, converting a panic into an execution
// error.
func execute(op *operation, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewExecutionError(op.handle.name, "operation panicked", fmt.Errorf("%v", r))
		}
	}()
	return fn()
}

// submit appends an operation and returns its handle without blocking.
func (s *Stream) submit(name string, deps []*Handle, run, release func() error) *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	h := &Handle{
		name:  name,
		queue: s.id,
		seq:   s.seq,
		done:  make(chan struct{}),
	}
	s.pending = append(s.pending, &operation{handle: h, deps: deps, run: run, release: release})
	s.last = h
	s.cond.Signal()
	return h
}

// tail returns the handle of the most recently enqueued operation, or nil
// if nothing has been enqueued yet.
func (s *Stream) tail() *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Synchronize waits for every operation enqueued so far and returns the
// failure of the last one, if any.
func (s *Stream) Synchronize() error {
	h := s.tail()
	if h == nil {
		return nil
	}
	return h.Wait()
}

func (s *Stream) close() {
	s.mu.Lock()
	s.closed = true
	s.cond.Broadcast()
	s.mu.Unlock()
	<-s.exited
}

// Enqueue appends fn to queue q and returns immediately. For every id in
// waitOn the operation will not start until all operations enqueued on
// that queue before this call have completed. Waiting on q itself is
// implied by queue order and ignored.
//
// Enqueue fails only if q or an id in waitOn is not owned by the context.
//
// A failure is sticky: every later operation on the same queue, and every
// operation waiting on a failed one, completes with that failure without
// running. Device memory held by regions exited after the failure is still
// released.
func (ctx *Context) Enqueue(name string, q QueueID, waitOn []QueueID, fn func() error) (*Handle, error) {
	return ctx.enqueue(name, q, waitOn, fn, nil)
}

func (ctx *Context) enqueue(name string, q QueueID, waitOn []QueueID, fn, release func() error) (*Handle, error) {
	if ctx.destroyed.Load() {
		return nil, ErrContextDestroyed
	}
	s, ok := ctx.streams[q]
	if !ok {
		return nil, unknownQueue(name, q)
	}
	var deps []*Handle
	for _, w := range waitOn {
		ws, ok := ctx.streams[w]
		if !ok {
			return nil, unknownQueue(name, w)
		}
		if w == q {
			continue
		}
		if h := ws.tail(); h != nil {
			deps = append(deps, h)
		}
	}
	h := s.submit(name, deps, fn, release)
	Logger().Debug("enqueue", "op", name, "queue", q, "seq", h.seq, "waits", len(deps))
	return h, nil
}

// Drain blocks until every operation enqueued on q so far has completed,
// including the operations they waited on, and returns the first failure.
func (ctx *Context) Drain(q QueueID) error {
	s, ok := ctx.streams[q]
	if !ok {
		return unknownQueue("Drain", q)
	}
	Logger().Debug("drain", "queue", q)
	return s.Synchronize()
}

// Synchronize drains every queue and returns the first failure.
func (ctx *Context) Synchronize() error {
	var first error
	for _, q := range ctx.Queues() {
		if err := ctx.streams[q].Synchronize(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func unknownQueue(op string, q QueueID) error {
	return &Error{
		Type:    ErrTypeInvalidArg,
		Op:      op,
		Message: ErrUnknownQueue.(*Error).Message,
		Context: q,
	}
}
