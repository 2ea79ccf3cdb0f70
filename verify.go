// Package gudaflow tolerance-based verification for floating-point comparisons
package gudaflow

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats/scalar"
)

// Mismatch is one element that differs by more than the tolerance.
type Mismatch struct {
	Index     int     `json:"index"`
	Reference float32 `json:"reference"`
	Candidate float32 `json:"candidate"`
}

// VerifyResult is the outcome of comparing a candidate buffer against a
// reference.
type VerifyResult struct {
	OK            bool       `json:"ok"`
	MismatchCount int        `json:"mismatch_count"`
	Mismatches    []Mismatch `json:"mismatches,omitempty"` // first MaxReportedMismatches
	TotalItems    int        `json:"total_items"`
	Tolerance     float32    `json:"tolerance"`
	MaxAbsError   float32    `json:"max_abs_error"`
	MaxULPError   int        `json:"max_ulp_error"`
}

// Verify compares candidate against reference element by element. An
// element mismatches when the absolute difference exceeds tolerance. Two
// NaNs compare equal; a NaN against a number is a mismatch. Indices present
// in only one of the slices count as mismatches but are not itemized.
//
// Verify does not modify its inputs and returns the same result for the
// same arguments.
func Verify(reference, candidate []float32, tolerance float32) VerifyResult {
	n := len(reference)
	if len(candidate) < n {
		n = len(candidate)
	}
	longest := len(reference)
	if len(candidate) > longest {
		longest = len(candidate)
	}

	result := VerifyResult{
		TotalItems:    longest,
		Tolerance:     tolerance,
		MismatchCount: longest - n,
	}

	for i := 0; i < n; i++ {
		ref, got := reference[i], candidate[i]
		if Float32WithinAbs(ref, got, tolerance) {
			continue
		}
		result.MismatchCount++
		if len(result.Mismatches) < MaxReportedMismatches {
			result.Mismatches = append(result.Mismatches, Mismatch{Index: i, Reference: ref, Candidate: got})
		}

		// Clamped so the result stays JSON-encodable.
		absDiff := float32(math.Min(math.Abs(float64(ref)-float64(got)), math.MaxFloat32))
		if absDiff > result.MaxAbsError {
			result.MaxAbsError = absDiff
		}
		if ulp := Float32ULPDiff(ref, got); ulp > result.MaxULPError {
			result.MaxULPError = ulp
		}
	}

	result.OK = result.MismatchCount == 0
	return result
}

// Float32WithinAbs reports whether |a-b| <= tol, treating two NaNs as equal.
func Float32WithinAbs(a, b, tol float32) bool {
	if math.IsNaN(float64(a)) && math.IsNaN(float64(b)) {
		return true
	}
	return scalar.EqualWithinAbs(float64(a), float64(b), float64(tol))
}

// Float32ULPDiff computes the difference in ULPs between two float32 values
func Float32ULPDiff(a, b float32) int {
	if a == b {
		return 0
	}
	if math.IsNaN(float64(a)) || math.IsNaN(float64(b)) {
		return math.MaxInt32
	}

	aBits := math.Float32bits(a)
	bBits := math.Float32bits(b)

	// Different signs, measure the distance through zero
	if (aBits^bBits)&0x80000000 != 0 {
		return int(aBits&0x7fffffff) + int(bBits&0x7fffffff)
	}

	if aBits > bBits {
		return int(aBits - bBits)
	}
	return int(bBits - aBits)
}

// String formats the verification result for display
func (r VerifyResult) String() string {
	if r.OK {
		return fmt.Sprintf("PASS: all %d values match within %g", r.TotalItems, r.Tolerance)
	}

	var sb strings.Builder
	errorRate := float64(r.MismatchCount) / float64(r.TotalItems) * 100
	fmt.Fprintf(&sb, "FAIL: %d/%d values differ (%.2f%%)\n", r.MismatchCount, r.TotalItems, errorRate)
	fmt.Fprintf(&sb, "  Max absolute error: %e\n", r.MaxAbsError)
	fmt.Fprintf(&sb, "  Max ULP difference: %d", r.MaxULPError)
	for _, m := range r.Mismatches {
		fmt.Fprintf(&sb, "\n  Mismatch at %d: ref=%.6f, test=%.6f", m.Index, m.Reference, m.Candidate)
	}
	return sb.String()
}
