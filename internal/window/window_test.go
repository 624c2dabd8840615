package window

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-resynth/internal/config"
	"github.com/tphakala/go-resynth/internal/testutil"
)

func TestTableShapes(t *testing.T) {
	const n = 64
	for _, mode := range config.WindowModes() {
		w := Table(mode, n)
		require.Len(t, w, n)
		testutil.AssertNoNaNOrInf(t, w)
		for i := range n / 2 {
			assert.InDelta(t, w[i], w[n-1-i], 1e-12, "%s not symmetric at %d", mode, i)
		}
		assert.Greater(t, w[n/2], 0.9, "%s peak", mode)
	}
	assert.InDelta(t, 0.0, Table(config.WindowHann, n)[0], 1e-12)
	assert.InDelta(t, 0.08, Table(config.WindowHamming, n)[0], 1e-9)
	assert.Equal(t, Table(config.WindowBlackmanHarris, n), Table(config.WindowMode(42), n))
	assert.Equal(t, []float64{1}, Table(config.WindowHann, 1))
}

func TestRingFIFO(t *testing.T) {
	r := NewRing(4)
	r.Write([]float64{1, 2, 3})
	dst := make([]float64, 2)
	assert.Equal(t, 2, r.ReadInto(dst))
	assert.Equal(t, []float64{1, 2}, dst)

	r.Write([]float64{4, 5, 6, 7}) // wraps and grows
	assert.Equal(t, 5, r.Available())
	assert.GreaterOrEqual(t, r.Capacity(), 5)

	all := make([]float64, 8)
	n := r.PeekInto(all)
	assert.Equal(t, []float64{3, 4, 5, 6, 7}, all[:n])
	r.Discard(2)
	n = r.ReadInto(all)
	assert.Equal(t, []float64{5, 6, 7}, all[:n])

	r.WriteZeros(3)
	assert.Equal(t, 3, r.Available())
	r.Clear()
	assert.Equal(t, 0, r.Available())
}

func feed(f *Framer, in []float64, block int, fn FrameFunc) []float64 {
	out := make([]float64, 0, len(in))
	buf := make([]float64, block)
	for pos := 0; pos < len(in); pos += block {
		end := min(pos+block, len(in))
		o := buf[:end-pos]
		f.Process([][]float64{in[pos:end]}, [][]float64{o}, fn)
		out = append(out, o...)
	}
	return out
}

func TestFramerIdentityReconstruction(t *testing.T) {
	for _, mode := range config.WindowModes() {
		t.Run(mode.String(), func(t *testing.T) {
			cfg := config.Default()
			cfg.ChunkSize = 256
			cfg.OverlapAdd = true
			cfg.AnalysisWindow = mode
			cfg.OutputWindow = mode
			f := NewFramer(cfg, 48000, 1)
			require.Equal(t, 256, f.Latency())

			in := testutil.Chord(4096, 48000, 0.3, 440, 1234, 5000)
			out := feed(f, in, 100, nil)
			require.Len(t, out, len(in))

			lat := f.Latency()
			for i := range lat {
				assert.InDelta(t, 0, out[i], 1e-12, "latency region must be silent")
			}
			for i := lat; i < len(out); i++ {
				if !assert.InDelta(t, in[i-lat], out[i], testutil.SignalTolerance, "sample %d", i) {
					break
				}
			}
		})
	}
}

func TestFramerInvokesFramePerHop(t *testing.T) {
	cfg := config.Default()
	cfg.ChunkSize = 128
	cfg.OverlapAdd = true
	f := NewFramer(cfg, 48000, 2)

	frames := 0
	fn := func(spectra, scratch [][]complex128) {
		frames++
		require.Len(t, spectra, 2)
		require.Len(t, scratch, 2)
		assert.Len(t, spectra[0], 65)
	}
	in := make([]float64, 1024)
	out := make([]float64, 1024)
	f.Process([][]float64{in, in}, [][]float64{out, make([]float64, 1024)}, fn)
	// 96 samples of priming plus 1024 input = 1120, frames at every 32 samples
	assert.Equal(t, (1120-128)/32+1, frames)
}

func TestFramerMutesSpectrum(t *testing.T) {
	cfg := config.Default()
	cfg.ChunkSize = 64
	f := NewFramer(cfg, 48000, 1)
	in := testutil.Sine(1024, 1000, 48000, 1)
	out := feed(f, in, 64, func(spectra, _ [][]complex128) {
		for i := range spectra[0] {
			spectra[0][i] = 0
		}
	})
	for _, v := range out {
		assert.InDelta(t, 0, v, 1e-12)
	}
}

func TestFramerPassesExtraChannels(t *testing.T) {
	cfg := config.Default()
	cfg.ChunkSize = 64
	f := NewFramer(cfg, 48000, 1)
	extra := []float64{1, 2, 3}
	outExtra := make([]float64, 3)
	f.Process([][]float64{{0, 0, 0}, extra}, [][]float64{make([]float64, 3), outExtra}, nil)
	assert.Equal(t, extra, outExtra)
}

func TestFramerSizingAndReset(t *testing.T) {
	cfg := config.Default()
	cfg.ChunkSize = 4000
	cfg.BufferWindow = 3
	cfg.OverlapAdd = false
	cfg.OutputWindow = config.WindowBlackman
	f := NewFramer(cfg, 44100, 1)
	s := f.Sizing()
	assert.Equal(t, 4096, s.ChunkSize)
	assert.Equal(t, 4096, s.Hop)
	assert.Equal(t, 3*4096, s.InputCapacity)
	assert.Equal(t, config.WindowBlackman, s.OutputWindow)
	assert.Equal(t, 2049, f.Format().Bins())

	f.Process([][]float64{testutil.Sine(5000, 100, 44100, 1)}, [][]float64{make([]float64, 5000)}, nil)
	f.Reset()
	out := make([]float64, 100)
	f.Process([][]float64{make([]float64, 100)}, [][]float64{out}, nil)
	for _, v := range out {
		assert.InDelta(t, 0, v, 0)
	}
}
