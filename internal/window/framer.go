package window

import (
	"github.com/tphakala/simd/f64"
	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/tphakala/go-resynth/internal/config"
	"github.com/tphakala/go-resynth/internal/module"
)

// FrameFunc processes one spectral frame per channel in place.
type FrameFunc func(spectra, scratch [][]complex128)

// Sizing is the derived framing state of a Framer.
type Sizing struct {
	ChunkSize      int
	Hop            int
	InputCapacity  int
	OutputWindow   config.WindowMode
	AnalysisWindow config.WindowMode
}

// Framer performs streaming STFT analysis, per-frame processing and
// overlap-add resynthesis. A Framer is built off the realtime path and
// never allocates while processing blocks no larger than its capacity.
// It is not safe for concurrent use.
type Framer struct {
	sizing Sizing
	format module.Format

	fft       *fourier.FFT
	analysis  []float64
	synthesis []float64
	norm      []float64
	scale     float64

	in      []*Ring
	out     []*Ring
	accum   [][]float64
	frame   []float64
	spectra [][]complex128
	scratch [][]complex128
}

// NewFramer builds a framer for cfg. cfg is validated on a copy.
func NewFramer(cfg config.DSP, sampleRate float64, channels int) *Framer {
	cfg.Validate()
	channels = max(channels, 1)
	n := cfg.ChunkSize
	hop := cfg.Hop()

	f := &Framer{
		sizing: Sizing{
			ChunkSize:      n,
			Hop:            hop,
			InputCapacity:  n * cfg.BufferWindow,
			OutputWindow:   cfg.OutputWindow,
			AnalysisWindow: cfg.AnalysisWindow,
		},
		format:    module.Format{SampleRate: sampleRate, FrameSize: n, Channels: channels},
		fft:       fourier.NewFFT(n),
		analysis:  Table(cfg.AnalysisWindow, n),
		synthesis: Table(cfg.OutputWindow, n),
		scale:     1.0 / float64(n),
		frame:     make([]float64, n),
	}
	f.norm = overlapNorm(f.analysis, f.synthesis, hop)

	bins := f.format.Bins()
	capacity := max(f.sizing.InputCapacity, n+hop)
	for range channels {
		f.in = append(f.in, NewRing(capacity))
		f.out = append(f.out, NewRing(capacity+n))
		f.accum = append(f.accum, make([]float64, n))
		f.spectra = append(f.spectra, make([]complex128, bins))
		f.scratch = append(f.scratch, make([]complex128, bins))
	}
	f.prime()
	return f
}

// prime pads the input so the first frame ends on the first real sample and
// pads the output by one hop, giving a constant latency of one chunk.
func (f *Framer) prime() {
	for ch := range f.in {
		f.in[ch].WriteZeros(f.sizing.ChunkSize - f.sizing.Hop)
		f.out[ch].WriteZeros(f.sizing.Hop)
	}
}

// overlapNorm returns, for each position within a hop, the summed product
// of analysis and synthesis windows over every frame covering it.
func overlapNorm(analysis, synthesis []float64, hop int) []float64 {
	norm := make([]float64, hop)
	for i := range analysis {
		norm[i%hop] += analysis[i] * synthesis[i]
	}
	for i, v := range norm {
		if v < normFloor {
			norm[i] = normFloor
		}
	}
	return norm
}

// Sizing returns the framing parameters.
func (f *Framer) Sizing() Sizing { return f.sizing }

// Format returns the module format frames are produced in.
func (f *Framer) Format() module.Format { return f.format }

// Latency returns the input-to-output delay in samples.
func (f *Framer) Latency() int { return f.sizing.ChunkSize }

// Process consumes in and fills out, one slice per channel. fn is invoked
// once per complete frame. Channels beyond the framer's channel count are
// copied through unchanged.
func (f *Framer) Process(in, out [][]float64, fn FrameFunc) {
	channels := min(len(in), len(out), len(f.in))
	for ch := range channels {
		f.in[ch].Write(in[ch])
	}
	for ch := channels; ch < min(len(in), len(out)); ch++ {
		copy(out[ch], in[ch])
	}
	if channels == 0 {
		return
	}

	n, hop := f.sizing.ChunkSize, f.sizing.Hop
	for f.in[0].Available() >= n {
		for ch := range channels {
			f.in[ch].PeekInto(f.frame)
			f.in[ch].Discard(hop)
			Apply(f.frame, f.frame, f.analysis)
			f.spectra[ch] = f.fft.Coefficients(f.spectra[ch], f.frame)
		}

		if fn != nil {
			fn(f.spectra[:channels], f.scratch[:channels])
		}

		for ch := range channels {
			f.synthesize(ch)
		}
	}

	for ch := range channels {
		got := f.out[ch].ReadInto(out[ch])
		for i := got; i < len(out[ch]); i++ {
			out[ch][i] = 0
		}
	}
}

// synthesize inverse-transforms channel ch, overlap-adds it and emits one
// hop of finished samples.
func (f *Framer) synthesize(ch int) {
	n, hop := f.sizing.ChunkSize, f.sizing.Hop
	f.frame = f.fft.Sequence(f.frame, f.spectra[ch])
	// gonum does not normalise the inverse transform
	f64.Scale(f.frame, f.frame, f.scale)

	acc := f.accum[ch]
	for i := range n {
		acc[i] += f.frame[i] * f.synthesis[i]
	}
	for i := range hop {
		acc[i] /= f.norm[i]
	}
	f.out[ch].Write(acc[:hop])

	copy(acc, acc[hop:])
	for i := n - hop; i < n; i++ {
		acc[i] = 0
	}
}

// Reset drops buffered audio and re-primes the output latency.
func (f *Framer) Reset() {
	for ch := range f.in {
		f.in[ch].Clear()
		f.out[ch].Clear()
		for i := range f.accum[ch] {
			f.accum[ch][i] = 0
		}
	}
	f.prime()
}

const normFloor = 1e-3
