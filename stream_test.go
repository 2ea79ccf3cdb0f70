package gudaflow

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueFIFOOrder(t *testing.T) {
	ctx := newTestContext(t, 1, 2)

	var mu sync.Mutex
	var order []int
	record := func(i int) func() error {
		return func() error {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return nil
		}
	}

	// Queue 2 makes progress at its own pace; every other queue-1
	// operation waits on it.
	const ops = 200
	for i := 0; i < ops; i++ {
		_, err := ctx.Enqueue("jitter", 2, nil, func() error {
			time.Sleep(time.Duration(i%3) * 10 * time.Microsecond)
			return nil
		})
		require.NoError(t, err)

		var wait []QueueID
		if i%2 == 1 {
			wait = []QueueID{2}
		}
		_, err = ctx.Enqueue(fmt.Sprint(i), 1, wait, record(i))
		require.NoError(t, err)
	}
	require.NoError(t, ctx.Drain(1))

	require.Len(t, order, ops)
	for i, v := range order {
		assert.Equal(t, i, v, "queue 1 ran operation %d at position %d", v, i)
	}
}

func TestHandleSequence(t *testing.T) {
	ctx := newTestContext(t, 1)

	h1, err := ctx.Enqueue("a", 1, nil, func() error { return nil })
	require.NoError(t, err)
	h2, err := ctx.Enqueue("b", 1, nil, func() error { return nil })
	require.NoError(t, err)

	assert.Equal(t, QueueID(1), h1.Queue())
	assert.Equal(t, uint64(1), h1.Seq())
	assert.Equal(t, uint64(2), h2.Seq())
	assert.Equal(t, "b", h2.Name())
	require.NoError(t, h2.Wait())
	assert.True(t, h1.Completed(), "earlier operation must complete before a later one on the same queue")
}

func TestEnqueueDoesNotBlock(t *testing.T) {
	ctx := newTestContext(t, 1)

	gate := make(chan struct{})
	var value atomic.Int32

	returned := make(chan *Handle)
	go func() {
		// The first op holds the queue; the rest pile up behind it.
		ctx.Enqueue("gate", 1, nil, func() error { <-gate; return nil })
		var last *Handle
		for i := 0; i < 5000; i++ {
			last, _ = ctx.Enqueue("store", 1, nil, func() error { value.Store(7); return nil })
		}
		returned <- last
	}()

	var h *Handle
	select {
	case h = <-returned:
	case <-time.After(5 * time.Second):
		t.Fatal("Enqueue blocked while the queue was busy")
	}

	assert.False(t, h.Completed(), "operation completed before its queue was released")
	assert.Equal(t, int32(0), value.Load(), "effect observable before drain")

	close(gate)
	require.NoError(t, ctx.Drain(1))
	assert.True(t, h.Completed())
	assert.Equal(t, int32(7), value.Load())
}

func TestWaitEdgeOrdersAcrossQueues(t *testing.T) {
	ctx := newTestContext(t, 1, 2)

	gate := make(chan struct{})
	var producerDone atomic.Bool
	var consumerSaw atomic.Bool

	_, err := ctx.Enqueue("producer", 1, nil, func() error {
		<-gate
		producerDone.Store(true)
		return nil
	})
	require.NoError(t, err)

	consumer, err := ctx.Enqueue("consumer", 2, []QueueID{1}, func() error {
		consumerSaw.Store(producerDone.Load())
		return nil
	})
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	assert.False(t, consumer.Completed(), "consumer ran before the queue it waits on")

	close(gate)
	require.NoError(t, ctx.Drain(2))
	assert.True(t, consumerSaw.Load(), "consumer did not observe the producer's effect")
}

func TestWaitEdgeCapturedAtEnqueue(t *testing.T) {
	ctx := newTestContext(t, 1, 2)

	first := make(chan struct{})
	later := make(chan struct{})
	defer close(later)

	ctx.Enqueue("first", 1, nil, func() error { <-first; return nil })
	consumer, err := ctx.Enqueue("consumer", 2, []QueueID{1}, func() error { return nil })
	require.NoError(t, err)

	// Enqueued after the edge was declared: the consumer must not wait for it.
	ctx.Enqueue("later", 1, nil, func() error { <-later; return nil })

	close(first)
	select {
	case <-consumer.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("consumer waited on an operation enqueued after its wait edge")
	}
	assert.NoError(t, consumer.Err())
}

func TestDrainIncludesUpstream(t *testing.T) {
	ctx := newTestContext(t, 1, 2)

	gate := make(chan struct{})
	var upstream atomic.Bool
	ctx.Enqueue("upstream", 2, nil, func() error {
		<-gate
		upstream.Store(true)
		return nil
	})
	ctx.Enqueue("downstream", 1, []QueueID{2}, func() error { return nil })

	go func() {
		time.Sleep(10 * time.Millisecond)
		close(gate)
	}()
	require.NoError(t, ctx.Drain(1))
	assert.True(t, upstream.Load(), "drain returned before the awaited queue finished")
}

func TestDrainEmptyQueue(t *testing.T) {
	ctx := newTestContext(t, 1)
	assert.NoError(t, ctx.Drain(1))
	assert.NoError(t, ctx.Drain(DefaultQueue))
	assert.NoError(t, ctx.Synchronize())
}

func TestUnknownQueue(t *testing.T) {
	ctx := newTestContext(t, 1)

	tests := []struct {
		name   string
		queue  QueueID
		waitOn []QueueID
	}{
		{"target", 3, nil},
		{"wait", 1, []QueueID{1, 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ran := false
			h, err := ctx.Enqueue("op", tt.queue, tt.waitOn, func() error { ran = true; return nil })
			require.Error(t, err)
			assert.Nil(t, h)
			assert.True(t, errors.Is(err, ErrUnknownQueue))
			assert.True(t, IsInvalidArgError(err))
			require.NoError(t, ctx.Synchronize())
			assert.False(t, ran, "operation enqueued despite the error")
		})
	}

	assert.True(t, errors.Is(ctx.Drain(9), ErrUnknownQueue))
}

func TestFailurePropagation(t *testing.T) {
	ctx := newTestContext(t, 1, 2, 3)

	boom := errors.New("boom")
	var laterRan, waiterRan, independentRan atomic.Bool

	ctx.Enqueue("fail", 1, nil, func() error { return boom })
	ctx.Enqueue("later", 1, nil, func() error { laterRan.Store(true); return nil })
	waiter, _ := ctx.Enqueue("waiter", 2, []QueueID{1}, func() error { waiterRan.Store(true); return nil })
	ctx.Enqueue("independent", 3, nil, func() error { independentRan.Store(true); return nil })

	err := ctx.Drain(1)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, waiter.Wait(), boom)
	assert.NoError(t, ctx.Drain(3))

	assert.False(t, laterRan.Load(), "operation after a failure ran")
	assert.False(t, waiterRan.Load(), "operation waiting on a failure ran")
	assert.True(t, independentRan.Load())

	assert.ErrorIs(t, ctx.Synchronize(), boom)
}

func TestPanicBecomesExecutionError(t *testing.T) {
	ctx := newTestContext(t, 1)

	h, err := ctx.Enqueue("panics", 1, nil, func() error { panic("kernel fault") })
	require.NoError(t, err)

	err = h.Wait()
	require.Error(t, err)
	assert.True(t, IsExecutionError(err))
	assert.Contains(t, err.Error(), "kernel fault")
}

func TestContextQueues(t *testing.T) {
	ctx := newTestContext(t, 5, 2)
	assert.Equal(t, []QueueID{DefaultQueue, 2, 5}, ctx.Queues())
	assert.True(t, ctx.HasQueue(5))
	assert.False(t, ctx.HasQueue(1))

	assert.Panics(t, func() { NewContext(1, 1) })
	assert.Panics(t, func() { NewContext(-1) })
}

func TestDestroy(t *testing.T) {
	ctx := NewContext(1)

	var ran atomic.Bool
	ctx.Enqueue("pending", 1, nil, func() error {
		time.Sleep(5 * time.Millisecond)
		ran.Store(true)
		return nil
	})
	require.NoError(t, ctx.Destroy())
	assert.True(t, ran.Load(), "Destroy did not drain pending work")

	_, err := ctx.Enqueue("late", 1, nil, func() error { return nil })
	assert.ErrorIs(t, err, ErrContextDestroyed)
	assert.NoError(t, ctx.Destroy())
}
