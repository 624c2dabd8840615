// Package mathutil provides small numeric helpers shared by the spectral modules.
package mathutil

import (
	"cmp"
	"math"
	"math/cmplx"
)

// Clamp limits v to [lo, hi].
func Clamp[T cmp.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampFinite is like Clamp but maps NaN to lo.
func ClampFinite(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return Clamp(v, lo, hi)
}

// NextPowerOfTwo returns the smallest power of two >= n (1 for n <= 1).
func NextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// WrapPhase maps an angle into (-π, π].
func WrapPhase(p float64) float64 {
	p = math.Mod(p+math.Pi, twoPi)
	if p <= 0 {
		p += twoPi
	}
	return p - math.Pi
}

// Lerp interpolates between a and b by t.
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// Magnitudes writes |x[i]| into dst and returns it.
func Magnitudes(dst []float64, x []complex128) []float64 {
	if cap(dst) < len(x) {
		dst = make([]float64, len(x))
	}
	dst = dst[:len(x)]
	for i, c := range x {
		dst[i] = cmplx.Abs(c)
	}
	return dst
}

// DBToGain converts decibels to linear amplitude.
func DBToGain(db float64) float64 {
	return math.Pow(10, db/dbDivisor)
}

const (
	twoPi     = 2 * math.Pi
	dbDivisor = 20.0
)
