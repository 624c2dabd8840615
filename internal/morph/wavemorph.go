package morph

import (
	"math"
	"math/cmplx"

	"github.com/tphakala/go-resynth/internal/module"
	"github.com/tphakala/go-resynth/internal/param"
)

// WaveMorph strips a synthetic harmonic series from both operands, cross
// synthesizes the residuals, and adds b's own series back onto b.
//
// The harmonic content of a is not restored.
type WaveMorph struct {
	*CrossSynthesis

	shape *param.Slot
	start *param.Slot

	residual []complex128
	harmA    []complex128
	harmB    []complex128
}

// NewWaveMorph returns a wave morph.
func NewWaveMorph() module.Morph {
	cs := newCrossSynthesis(IDWaveMorph,
		param.Enum(ParamWaveShape, "Wave Shape", 0, ShapeSquare, ShapeSaw, ShapeTriangle),
		param.Number(ParamStartFrequency, "Start Frequency", 0, maxStartFrequency, defaultStartFrequency),
	)
	w := &WaveMorph{CrossSynthesis: cs}
	w.shape = cs.Params().Slot(ParamWaveShape)
	w.start = cs.Params().Slot(ParamStartFrequency)
	return w
}

// Reset allocates residual and harmonic buffers.
func (w *WaveMorph) Reset(f module.Format) {
	w.CrossSynthesis.Reset(f)
	bins := f.Bins()
	w.residual = make([]complex128, bins)
	w.harmA = make([]complex128, bins)
	w.harmB = make([]complex128, bins)
}

// Morph processes each channel pair.
func (w *WaveMorph) Morph(a, b [][]complex128) {
	for ch := range min(len(a), len(b)) {
		w.morphChannel(a[ch], b[ch])
	}
}

func (w *WaveMorph) morphChannel(a, b []complex128) {
	n := len(b)
	if n != len(a) || n > len(w.residual) {
		return
	}
	f0 := minHarmonicBin(w.start.Float(), n)
	shape := Shape(w.shape.Index())

	res := w.residual[:n]
	copy(res, a)
	extractHarmonics(res, w.harmA, f0, shape)
	nb := extractHarmonics(b, w.harmB, f0, shape)

	w.blend(res, b)

	restoreHarmonics(b, w.harmB, nb, f0)
}

// Shape selects the closed-form harmonic amplitude law.
type Shape int

const (
	Square Shape = iota
	Saw
	Triangle
)

// HarmonicAmplitude returns the relative amplitude of harmonic k (k >= 1)
// of shape, with harmonic 1 at unit amplitude.
func HarmonicAmplitude(shape Shape, k int) float64 {
	if k < 1 {
		return 0
	}
	switch shape {
	case Saw:
		return 1 / float64(k)
	case Triangle:
		if k%2 == 0 {
			return 0
		}
		sign := 1.0
		if (k-1)/2%2 == 1 {
			sign = -1
		}
		return sign / float64(k*k)
	default:
		if k%2 == 0 {
			return 0
		}
		return 1 / float64(k)
	}
}

// minHarmonicBin converts a start-frequency fraction of the band into the
// fundamental bin, never below bin 1.
func minHarmonicBin(fraction float64, bins int) int {
	return max(1, int(math.Round(fraction*float64(bins))))
}

// extractHarmonics subtracts the series built on bin f0 from x in ascending
// bin order and stores each subtracted value in h. It stops as soon as the
// next harmonic would fall outside x and returns the number removed.
func extractHarmonics(x, h []complex128, f0 int, shape Shape) int {
	if f0 < 1 || f0 >= len(x) {
		return 0
	}
	fund := x[f0]
	mag, ph := cmplx.Abs(fund), cmplx.Phase(fund)
	n := 0
	for k := 1; k*f0 < len(x) && k <= len(h); k++ {
		v := cmplx.Rect(mag*HarmonicAmplitude(shape, k), float64(k)*ph)
		h[k-1] = v
		x[k*f0] -= v
		n = k
	}
	return n
}

// restoreHarmonics adds the first n stored harmonics back onto x in
// descending bin order.
func restoreHarmonics(x, h []complex128, n, f0 int) {
	for k := n; k >= 1; k-- {
		x[k*f0] += h[k-1]
	}
}
