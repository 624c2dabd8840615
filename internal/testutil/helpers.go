// Package testutil provides reusable test helpers for the resynthesis engine.
package testutil

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
)

// Default tolerances for various test scenarios.
const (
	SpectralTolerance = 1e-9
	SignalTolerance   = 1e-6
)

// AssertNoNaNOrInf verifies that no elements in the slice are NaN or Inf.
func AssertNoNaNOrInf(t *testing.T, s []float64, msgAndArgs ...any) bool {
	t.Helper()
	for i, v := range s {
		if math.IsNaN(v) {
			return assert.Fail(t, "found NaN", "s[%d] is NaN", i)
		}
		if math.IsInf(v, 0) {
			return assert.Fail(t, "found Inf", "s[%d] is Inf", i)
		}
	}
	return true
}

// AssertComplexInDelta verifies two spectra are element-wise within tolerance.
func AssertComplexInDelta(t *testing.T, expected, actual []complex128, tolerance float64, msgAndArgs ...any) bool {
	t.Helper()
	if !assert.Len(t, actual, len(expected), msgAndArgs...) {
		return false
	}
	for i := range expected {
		if d := cmplx.Abs(expected[i] - actual[i]); d > tolerance {
			return assert.Fail(t, "spectra differ",
				"bin %d: expected %v, got %v (|diff|=%e > %e)", i, expected[i], actual[i], d, tolerance)
		}
	}
	return true
}

// AssertNonDecreasing verifies that a sequence never goes down.
func AssertNonDecreasing(t *testing.T, s []int, msgAndArgs ...any) bool {
	t.Helper()
	for i := 1; i < len(s); i++ {
		if s[i] < s[i-1] {
			return assert.Fail(t, "sequence decreased",
				"s[%d]=%d < s[%d]=%d", i, s[i], i-1, s[i-1])
		}
	}
	return true
}

// AssertRelativeError verifies that the relative error between actual and expected is within tolerance.
func AssertRelativeError(t *testing.T, expected, actual, tolerance float64, msgAndArgs ...any) bool {
	t.Helper()
	if expected == 0 {
		return assert.InDelta(t, expected, actual, tolerance, msgAndArgs...)
	}
	relError := math.Abs(actual-expected) / math.Abs(expected)
	return assert.LessOrEqual(t, relError, tolerance,
		"relative error %e exceeds tolerance %e (expected=%f, actual=%f)",
		relError, tolerance, expected, actual)
}

// Sine generates n samples of a sine wave.
func Sine(n int, freq, sampleRate, amp float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/sampleRate)
	}
	return out
}

// Chord sums sines at the given frequencies, each with amplitude amp.
func Chord(n int, sampleRate, amp float64, freqs ...float64) []float64 {
	out := make([]float64, n)
	for _, f := range freqs {
		for i, v := range Sine(n, f, sampleRate, amp) {
			out[i] += v
		}
	}
	return out
}

// Spectrum builds a deterministic, non-trivial spectrum of n bins.
func Spectrum(n int, seed float64) []complex128 {
	out := make([]complex128, n)
	for i := range out {
		mag := 1 + 0.5*math.Sin(seed+float64(i)*0.37)
		ph := math.Mod(seed*1.3+float64(i)*0.91, 2*math.Pi) - math.Pi
		out[i] = cmplx.Rect(mag, ph)
	}
	return out
}
