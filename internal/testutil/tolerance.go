package testutil

import (
	"math"
	"math/cmplx"
	"testing"
)

// RequireComplexNear fails t if got and want differ by more than rel times
// |want| (or rel in absolute terms when want is zero).
func RequireComplexNear(t *testing.T, got, want complex128, rel float64) {
	t.Helper()
	scale := cmplx.Abs(want)
	if scale == 0 {
		scale = 1
	}
	if diff := cmplx.Abs(got - want); !(diff <= rel*scale) {
		t.Fatalf("got %v, want %v (|diff| %g > %g)", got, want, diff, rel*scale)
	}
}

// RequireSpectrumNear applies RequireComplexNear element-wise.
func RequireSpectrumNear(t *testing.T, got, want []complex128, rel float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}
	for i := range got {
		scale := cmplx.Abs(want[i])
		if scale == 0 {
			scale = 1
		}
		if diff := cmplx.Abs(got[i] - want[i]); !(diff <= rel*scale) {
			t.Fatalf("index %d: got %v, want %v (|diff| %g > %g)", i, got[i], want[i], diff, rel*scale)
		}
	}
}

// RequireSliceNearlyEqual fails t if got and want differ in length or if
// any element pair differs by more than rel relative to want.
func RequireSliceNearlyEqual(t *testing.T, got, want []float64, rel float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}
	for i := range got {
		scale := math.Abs(want[i])
		if scale == 0 {
			scale = 1
		}
		if diff := math.Abs(got[i] - want[i]); !(diff <= rel*scale) {
			t.Fatalf("index %d: got %v, want %v (diff %g > %g)", i, got[i], want[i], diff, rel*scale)
		}
	}
}
