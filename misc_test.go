package gudaflow

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHostBuffer(t *testing.T) {
	buf, err := NewHostBuffer("A", 10)
	require.NoError(t, err)
	assert.Equal(t, 10, buf.Len())
	assert.Equal(t, "A[10]", buf.String())

	buf.Fill(2)
	clone := buf.Clone("B")
	clone.Data[0] = 5
	assert.Equal(t, float32(2), buf.Data[0], "clone shares storage")
	assert.Equal(t, "B", clone.Name)

	_, err = NewHostBuffer("zero", 0)
	assert.ErrorIs(t, err, ErrInvalidSize)

	// More than the device has: reported, not a runtime abort.
	huge := int(GetDevice().TotalMem/4) + 1
	if strings.HasSuffix(runtime.GOARCH, "64") {
		_, err = NewHostBuffer("huge", huge)
		assert.ErrorIs(t, err, ErrOutOfMemory)
		assert.True(t, IsMemoryError(err))
	}
}

// Element counts whose byte size does not fit in a uint64 must still be
// reported as too large.
func TestNewHostBufferSizeOverflow(t *testing.T) {
	sizes := []int{math.MaxInt, math.MaxInt/4 + 1}
	if strconv.IntSize == 64 {
		shift := 62
		sizes = append(sizes, 1<<shift) // 4 * 2^62 wraps to zero bytes
	}
	for _, n := range sizes {
		buf, err := NewHostBuffer("wrap", n)
		assert.Nil(t, buf)
		assert.ErrorIs(t, err, ErrOutOfMemory, "n=%d", n)
	}
}

func TestDeviceInfo(t *testing.T) {
	dev := GetDevice()
	assert.Equal(t, "CPU", dev.Name)
	assert.Equal(t, runtime.NumCPU(), dev.NumCores)
	assert.Positive(t, dev.TotalMem)
	assert.True(t, strings.HasPrefix(dev.Features, runtime.GOARCH+":"), "features %q", dev.Features)

	features := GetCPUFeatures()
	assert.Equal(t, len(features.List()) == 0, strings.Contains(GetCPUInfo(), "no SIMD"))
}

func TestLoggerDefaultSilent(t *testing.T) {
	l := Logger()
	require.NotNil(t, l)
	for _, level := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn} {
		assert.False(t, l.Enabled(context.Background(), level), "default logger enabled for %v", level)
	}
}

func TestSetLoggerCapturesRuntimeActivity(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })

	var out bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&out, &slog.HandlerOptions{Level: slog.LevelDebug})))

	ctx := newTestContext(t, 1)
	buf := BufferOrFail(t, "logged", 4, nil)
	EnterOrFail(t, ctx, 1, EnterCopyIn, buf)
	ctx.Enqueue("failing", 1, nil, func() error { return errors.New("nope") })
	ctx.Drain(1)

	logs := out.String()
	assert.Contains(t, logs, "enter data")
	assert.Contains(t, logs, "enqueue")
	assert.Contains(t, logs, "operation failed")

	SetLogger(nil)
	assert.False(t, Logger().Enabled(context.Background(), slog.LevelError))
}

func TestRunReportRoundTrip(t *testing.T) {
	r := NewRunReport(4, 1)
	r.AddEngine("sequential", 2*time.Second, nil)
	r.AddEngine("overlapped", time.Second, nil)
	v := Verify([]float32{1, 2}, []float32{1, 3}, 1e-4)
	r.Verification = &v

	assert.InDelta(t, 2.0, r.Speedup(), 1e-9)

	path := filepath.Join(t.TempDir(), "reports", "run.json")
	require.NoError(t, WriteReport(path, r))

	got, err := ReadReport(path)
	require.NoError(t, err)
	assert.Equal(t, 4, got.N)
	require.Len(t, got.Engines, 2)
	assert.Equal(t, "pass", got.Engines[1].Status)
	require.NotNil(t, got.Verification)
	assert.Equal(t, 1, got.Verification.MismatchCount)
	assert.Equal(t, 1, got.Verification.Mismatches[0].Index)
}

func TestRunReportFailedEngine(t *testing.T) {
	r := NewRunReport(4, 1)
	r.AddEngine("overlapped", 0, ErrUnknownQueue)
	assert.Equal(t, "fail", r.Engines[0].Status)
	assert.Contains(t, r.Engines[0].Error, "unknown queue")
	assert.Zero(t, r.Speedup())

	_, err := ReadReport(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
