// Package engine runs the three-stage pipeline on a gudaflow context,
// either strictly sequentially on one queue or overlapped across two
// queues joined by wait edges. Both variants produce the same C.
package engine

import (
	"fmt"
	"time"

	"github.com/LynnColeArt/gudaflow"
	"github.com/LynnColeArt/gudaflow/kernels"
)

// Engine runs Config.Iterations passes of the pipeline over a set of
// buffers. On return without error the result is in Buffers.C on the host
// and no device region of the buffers remains present.
type Engine interface {
	Name() string
	Run(bufs *Buffers) error
}

// Sequential runs every stage to completion before issuing the next, on
// the default queue.
type Sequential struct {
	ctx *gudaflow.Context
	cfg Config
}

// NewSequential returns a sequential engine issuing work on ctx.
func NewSequential(ctx *gudaflow.Context, cfg Config) *Sequential {
	return &Sequential{ctx: ctx, cfg: cfg}
}

func (e *Sequential) Name() string { return "sequential" }

// Run mirrors A, B and C on the device, then for each iteration launches
// S1, S2 and S3, draining the queue after each one.
func (e *Sequential) Run(bufs *Buffers) (err error) {
	if err := checkRun(e.cfg, bufs); err != nil {
		return err
	}
	ctx, q := e.ctx, gudaflow.DefaultQueue
	start := time.Now()

	if _, err := ctx.EnterData(q, gudaflow.EnterCopyIn, bufs.all()...); err != nil {
		return err
	}
	defer func() {
		if err != nil {
			release(ctx, q, bufs)
		}
	}()

	for it := 0; it < e.cfg.Iterations; it++ {
		for _, s := range kernels.Stages() {
			if _, err := ctx.Launch(e.cfg.launch(s, q), kernels.Kernel(s), bufs.all()...); err != nil {
				return err
			}
			if err := ctx.Drain(q); err != nil {
				return err
			}
		}
	}

	if _, err := ctx.ExitData(q, nil, gudaflow.ExitCopyOut, bufs.C); err != nil {
		return err
	}
	if _, err := ctx.ExitData(q, nil, gudaflow.ExitDelete, bufs.A, bufs.B); err != nil {
		return err
	}
	if err := ctx.Drain(q); err != nil {
		return err
	}

	gudaflow.Logger().Info("engine run", "engine", e.Name(), "n", e.cfg.N,
		"iterations", e.cfg.Iterations, "elapsed", time.Since(start))
	return nil
}

// Overlapped issues S1 and S3 on Q1 and S2 on Q2. S2 waits on Q1 and S3
// waits on Q2, so each stage sees the previous stage's C while the host
// issues the whole loop without blocking.
type Overlapped struct {
	ctx *gudaflow.Context
	cfg Config
}

// NewOverlapped returns an overlapped engine issuing work on ctx, which
// must own queues Q1 and Q2.
func NewOverlapped(ctx *gudaflow.Context, cfg Config) *Overlapped {
	return &Overlapped{ctx: ctx, cfg: cfg}
}

func (e *Overlapped) Name() string { return "overlapped" }

// Run enters A and B (copy-in) and C (create) on Q1, optionally warms the
// device up with one drained no-op kernel, then issues every iteration
// without draining. The copy-out of C and the release of A and B are
// ordered behind the last S3 on Q1, and Q1 is drained once at the end.
func (e *Overlapped) Run(bufs *Buffers) (err error) {
	if err := checkRun(e.cfg, bufs); err != nil {
		return err
	}
	ctx := e.ctx
	start := time.Now()

	if _, err := ctx.EnterData(Q1, gudaflow.EnterCopyIn, bufs.A, bufs.B); err != nil {
		return err
	}
	defer func() {
		if err != nil {
			release(ctx, Q1, bufs)
		}
	}()
	if _, err := ctx.EnterData(Q1, gudaflow.EnterCreate, bufs.C); err != nil {
		return err
	}

	if e.cfg.Warmup {
		warm := gudaflow.LaunchConfig{Name: "warmup", Queue: Q1, N: 1}
		if _, err := ctx.Launch(warm, noop, bufs.A); err != nil {
			return err
		}
		if err := ctx.Drain(Q1); err != nil {
			return err
		}
	}

	for it := 0; it < e.cfg.Iterations; it++ {
		if _, err := ctx.Launch(e.cfg.launch(kernels.StageCombine, Q1), kernels.Kernel(kernels.StageCombine), bufs.all()...); err != nil {
			return err
		}
		if _, err := ctx.Launch(e.cfg.launch(kernels.StageScaleBlend, Q2, Q1), kernels.Kernel(kernels.StageScaleBlend), bufs.all()...); err != nil {
			return err
		}
		if _, err := ctx.Launch(e.cfg.launch(kernels.StageGuardedFused, Q1, Q2), kernels.Kernel(kernels.StageGuardedFused), bufs.all()...); err != nil {
			return err
		}
	}

	// The last S3 is on Q1, so queue order alone puts the copy-out after it.
	if _, err := ctx.ExitData(Q1, nil, gudaflow.ExitCopyOut, bufs.C); err != nil {
		return err
	}
	if _, err := ctx.ExitData(Q1, nil, gudaflow.ExitDelete, bufs.A, bufs.B); err != nil {
		return err
	}
	if err := ctx.Drain(Q1); err != nil {
		return err
	}

	gudaflow.Logger().Info("engine run", "engine", e.Name(), "n", e.cfg.N,
		"iterations", e.cfg.Iterations, "warmup", e.cfg.Warmup, "elapsed", time.Since(start))
	return nil
}

func noop(args [][]float32, lo, hi int) {
	_ = args[0][lo:hi]
}

func (c Config) launch(s kernels.Stage, q gudaflow.QueueID, waitOn ...gudaflow.QueueID) gudaflow.LaunchConfig {
	return gudaflow.LaunchConfig{
		Name:      s.String(),
		Queue:     q,
		WaitOn:    waitOn,
		N:         c.N,
		BlockSize: c.BlockSize,
	}
}

func checkRun(cfg Config, bufs *Buffers) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if bufs == nil {
		return gudaflow.NewInvalidArgError("Run", "nil buffers")
	}
	for _, b := range bufs.all() {
		if b == nil || b.Len() != cfg.N {
			return gudaflow.NewInvalidArgError("Run", fmt.Sprintf("every buffer must hold %d elements", cfg.N))
		}
	}
	return nil
}

// release deletes whatever regions of bufs are still present after a
// failed run. Failures here are secondary to the one being returned.
func release(ctx *gudaflow.Context, q gudaflow.QueueID, bufs *Buffers) {
	for _, b := range bufs.all() {
		if ctx.Present(b) {
			ctx.ExitData(q, nil, gudaflow.ExitDelete, b)
		}
	}
	ctx.Drain(q)
}
