// Package config holds the DSP settings owned by the parameter coordinator.
//
// Every field clamps itself to its legal domain on Validate; a DSP value
// never carries an illegal setting after validation, so callers never have
// to handle a "no legal value" case.
package config

import (
	"fmt"

	"github.com/tphakala/go-resynth/internal/mathutil"
)

// WindowMode selects a window shape. The zero value is not a legal mode.
type WindowMode int

const (
	WindowHann WindowMode = iota + 1
	WindowHamming
	WindowBlackman
	WindowBlackmanHarris
)

// String returns the display label of the window mode.
func (m WindowMode) String() string {
	switch m {
	case WindowHann:
		return "hann"
	case WindowHamming:
		return "hamming"
	case WindowBlackman:
		return "blackman"
	case WindowBlackmanHarris:
		return "blackman-harris"
	default:
		return fmt.Sprintf("window(%d)", int(m))
	}
}

// Valid reports whether m is one of the four window shapes.
func (m WindowMode) Valid() bool {
	return m >= minWindowMode && m <= maxWindowMode
}

// WindowModes lists the legal window modes in ordinal order.
func WindowModes() []WindowMode {
	return []WindowMode{WindowHann, WindowHamming, WindowBlackman, WindowBlackmanHarris}
}

// DSP holds the spectral processing settings.
type DSP struct {
	// ChunkSize is the analysis/synthesis frame length in samples.
	// Always a power of two after Validate.
	ChunkSize int

	// BufferWindow is the number of chunks of input history retained.
	BufferWindow int

	// OutputWindow shapes resynthesized frames before overlap-add.
	OutputWindow WindowMode

	// AnalysisWindow shapes frames before the forward transform, both for
	// live input and for brain analysis.
	AnalysisWindow WindowMode

	// Algorithm is the transform registry ordinal.
	Algorithm int

	// OverlapAdd enables 75% overlapped frames.
	OverlapAdd bool
}

// Default returns the default DSP settings.
func Default() DSP {
	return DSP{
		ChunkSize:      DefaultChunkSize,
		BufferWindow:   DefaultBufferWindow,
		OutputWindow:   WindowHann,
		AnalysisWindow: WindowHann,
		Algorithm:      0,
		OverlapAdd:     true,
	}
}

// Validate clamps every field to its legal domain. It never fails.
func (c *DSP) Validate() {
	c.ChunkSize = ClampChunkSize(c.ChunkSize)
	c.BufferWindow = ClampBufferWindow(c.BufferWindow)
	c.OutputWindow = ClampWindowMode(c.OutputWindow)
	c.AnalysisWindow = ClampWindowMode(c.AnalysisWindow)
	if c.Algorithm < 0 {
		c.Algorithm = 0
	}
}

// Equal reports structural equality.
func (c DSP) Equal(other DSP) bool {
	return c == other
}

// Hop returns the frame advance in samples.
func (c DSP) Hop() int {
	if c.OverlapAdd {
		return c.ChunkSize / overlapDivisor
	}
	return c.ChunkSize
}

// ClampChunkSize limits n to [MinChunkSize, MaxChunkSize] and rounds it up to
// the next power of two.
func ClampChunkSize(n int) int {
	n = mathutil.Clamp(n, MinChunkSize, MaxChunkSize)
	return mathutil.NextPowerOfTwo(n)
}

// ClampBufferWindow limits n to [MinBufferWindow, MaxBufferWindow].
func ClampBufferWindow(n int) int {
	return mathutil.Clamp(n, MinBufferWindow, MaxBufferWindow)
}

// ClampWindowMode maps m onto the nearest legal window mode.
func ClampWindowMode(m WindowMode) WindowMode {
	return mathutil.Clamp(m, minWindowMode, maxWindowMode)
}
