package gudaflow

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyMatch(t *testing.T) {
	ref := []float32{8.0, 8.815789, 9.4, 9.785714}
	got := []float32{8.0, 8.81582, 9.40005, 9.785714}

	r := Verify(ref, got, DefaultVerifyTolerance)
	assert.True(t, r.OK)
	assert.Zero(t, r.MismatchCount)
	assert.Empty(t, r.Mismatches)
	assert.Equal(t, 4, r.TotalItems)
	assert.Contains(t, r.String(), "PASS")
}

func TestVerifyReportsFirstMismatches(t *testing.T) {
	const n = 100
	ref := make([]float32, n)
	got := make([]float32, n)
	for i := 10; i < 30; i++ {
		got[i] = 1
	}

	r := Verify(ref, got, 1e-4)
	require.False(t, r.OK)
	assert.Equal(t, 20, r.MismatchCount)
	require.Len(t, r.Mismatches, MaxReportedMismatches)
	for k, m := range r.Mismatches {
		assert.Equal(t, 10+k, m.Index)
		assert.Equal(t, float32(0), m.Reference)
		assert.Equal(t, float32(1), m.Candidate)
	}
	assert.Equal(t, float32(1), r.MaxAbsError)
	assert.Contains(t, r.String(), "Mismatch at 10: ref=0.000000, test=1.000000")
}

func TestVerifyTolerance(t *testing.T) {
	tests := []struct {
		name      string
		ref, got  float32
		tolerance float32
		ok        bool
	}{
		{"exact", 1, 1, 0, true},
		{"at tolerance", 1, 1.5, 0.5, true},
		{"beyond tolerance", 1, 1.5001, 0.5, false},
		{"signed zero", 0, float32(math.Copysign(0, -1)), 0, true},
		{"both NaN", float32(math.NaN()), float32(math.NaN()), 1e-4, true},
		{"one NaN", 1, float32(math.NaN()), 1e-4, false},
		{"same infinity", float32(math.Inf(1)), float32(math.Inf(1)), 1e-4, true},
		{"opposite infinity", float32(math.Inf(1)), float32(math.Inf(-1)), 1e-4, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Verify([]float32{tt.ref}, []float32{tt.got}, tt.tolerance)
			assert.Equal(t, tt.ok, r.OK)
		})
	}
}

func TestVerifyLengthMismatch(t *testing.T) {
	r := Verify([]float32{1, 2, 3}, []float32{1, 2}, 1e-4)
	assert.False(t, r.OK)
	assert.Equal(t, 1, r.MismatchCount)
	assert.Equal(t, 3, r.TotalItems)
	assert.Empty(t, r.Mismatches)
}

func TestVerifyIdempotent(t *testing.T) {
	ref := []float32{1, 2, 3, 4, 5, 6, 7}
	got := []float32{1, 2.1, 3, 4.5, 5, 6, 9}
	refCopy := append([]float32(nil), ref...)
	gotCopy := append([]float32(nil), got...)

	first := Verify(ref, got, 1e-4)
	second := Verify(ref, got, 1e-4)

	assert.Equal(t, first, second)
	assert.Equal(t, refCopy, ref, "Verify modified the reference")
	assert.Equal(t, gotCopy, got, "Verify modified the candidate")
}

func TestFloat32ULPDiff(t *testing.T) {
	one := float32(1)
	next := math.Nextafter32(one, 2)

	assert.Equal(t, 0, Float32ULPDiff(one, one))
	assert.Equal(t, 1, Float32ULPDiff(one, next))
	assert.Equal(t, 1, Float32ULPDiff(next, one))
	assert.Equal(t, 2, Float32ULPDiff(math.SmallestNonzeroFloat32, -math.SmallestNonzeroFloat32))
	assert.Equal(t, math.MaxInt32, Float32ULPDiff(one, float32(math.NaN())))
}
