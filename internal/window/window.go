// Package window provides window tables and the streaming STFT framer used
// by the realtime path.
package window

import (
	"gonum.org/v1/gonum/dsp/window"

	"github.com/tphakala/go-resynth/internal/config"
)

// Table returns n coefficients of the window selected by mode. Unknown
// modes clamp to the nearest legal mode.
func Table(mode config.WindowMode, n int) []float64 {
	seq := make([]float64, n)
	for i := range seq {
		seq[i] = 1
	}
	if n < 2 {
		return seq
	}
	switch config.ClampWindowMode(mode) {
	case config.WindowHamming:
		return window.Hamming(seq)
	case config.WindowBlackman:
		return window.Blackman(seq)
	case config.WindowBlackmanHarris:
		return window.BlackmanHarris(seq)
	default:
		return window.Hann(seq)
	}
}

// Apply multiplies x by w element-wise into dst.
func Apply(dst, x, w []float64) {
	for i := range dst {
		dst[i] = x[i] * w[i]
	}
}
