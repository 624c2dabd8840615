package morph

import (
	"math"
	"math/cmplx"

	"github.com/tphakala/simd/f64"
	"gonum.org/v1/gonum/dsp/fourier"
)

// envelope computes a cepstrally smoothed log-magnitude envelope.
// All buffers are allocated up front so compute does not allocate.
type envelope struct {
	fft    *fourier.FFT
	n      int
	logMag []complex128
	ceps   []float64
	smooth []complex128
	scale  float64
}

func newEnvelope(frameSize int) *envelope {
	bins := frameSize/2 + 1
	return &envelope{
		fft:    fourier.NewFFT(frameSize),
		n:      frameSize,
		logMag: make([]complex128, bins),
		ceps:   make([]float64, frameSize),
		smooth: make([]complex128, bins),
		scale:  1.0 / float64(frameSize),
	}
}

// lifterLength maps emphasis in [0,1] to the number of cepstral
// coefficients kept. Higher emphasis keeps fewer, giving a smoother envelope.
func (e *envelope) lifterLength(emphasis float64) int {
	hi := max(e.n/lifterDivisor, minLifter)
	keep := int(math.Round(float64(hi) - emphasis*float64(hi-minLifter)))
	return min(max(keep, 1), e.n/2)
}

// compute writes the smoothed natural-log envelope of x into dst.
func (e *envelope) compute(dst []float64, x []complex128, keep int) {
	for i, c := range x {
		e.logMag[i] = complex(math.Log(cmplx.Abs(c)+logFloor), 0)
	}
	e.ceps = e.fft.Sequence(e.ceps, e.logMag)
	// gonum does not normalise the inverse transform
	f64.Scale(e.ceps, e.ceps, e.scale)

	for q := keep; q <= e.n-keep; q++ {
		e.ceps[q] = 0
	}

	e.smooth = e.fft.Coefficients(e.smooth, e.ceps)
	for i := range dst {
		dst[i] = real(e.smooth[i])
	}
}
