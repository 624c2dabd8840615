// Package brain holds the analyzed sample material used by sample-based
// transforms.
//
// Source audio is analyzed into fixed-size chunks. The analysis lives in an
// immutable Snapshot that is replaced atomically, so the realtime path can
// search it without locks while a background job builds the next one. Work
// functions commit only on success; a cancelled job leaves the previous
// snapshot in place.
package brain

import (
	"context"
	"errors"
	"math"
	"math/cmplx"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/tphakala/simd/f64"
	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/tphakala/go-resynth/internal/config"
	"github.com/tphakala/go-resynth/internal/jobs"
	"github.com/tphakala/go-resynth/internal/mathutil"
	"github.com/tphakala/go-resynth/internal/window"
)

var (
	// ErrEmpty indicates an operation that needs source material.
	ErrEmpty = errors.New("brain is empty")

	// ErrInvalidFormat indicates undecodable brain or audio data.
	ErrInvalidFormat = errors.New("invalid brain data")
)

// Settings are the analysis parameters of a snapshot.
type Settings struct {
	ChunkSize      int
	AnalysisWindow config.WindowMode
	OutputWindow   config.WindowMode
}

// SettingsFrom extracts the analysis settings of cfg.
func SettingsFrom(cfg config.DSP) Settings {
	return Settings{
		ChunkSize:      cfg.ChunkSize,
		AnalysisWindow: cfg.AnalysisWindow,
		OutputWindow:   cfg.OutputWindow,
	}
}

// Chunk is one analyzed frame of source material.
type Chunk struct {
	Offset  int
	Spectra [][]complex128
	Mags    [][]float64
	Energy  float64
}

// Snapshot is an immutable analysis of the source material.
type Snapshot struct {
	Settings
	Samples int
	Chunks  []Chunk
}

// Summary describes the brain for presentation.
type Summary struct {
	Chunks         int
	Seconds        float64
	Channels       int
	ChunkSize      int
	AnalysisWindow config.WindowMode
	OutputWindow   config.WindowMode
}

// Store is the brain. Work functions must not run concurrently with each
// other; the job manager guarantees that. Nearest and Empty are safe from
// any goroutine.
type Store struct {
	sampleRate float64
	channels   int
	logger     zerolog.Logger

	mu       sync.RWMutex
	source   [][]float64
	settings Settings

	snap atomic.Pointer[Snapshot]
}

// New creates an empty brain.
func New(sampleRate float64, channels int, settings Settings, logger zerolog.Logger) *Store {
	settings = normalize(settings)
	s := &Store{
		sampleRate: sampleRate,
		channels:   max(channels, 1),
		logger:     logger.With().Str("component", "brain").Logger(),
		source:     make([][]float64, max(channels, 1)),
		settings:   settings,
	}
	s.snap.Store(&Snapshot{Settings: settings})
	return s
}

func normalize(s Settings) Settings {
	s.ChunkSize = config.ClampChunkSize(s.ChunkSize)
	s.AnalysisWindow = config.ClampWindowMode(s.AnalysisWindow)
	s.OutputWindow = config.ClampWindowMode(s.OutputWindow)
	return s
}

// SampleRate returns the rate source material is stored at.
func (s *Store) SampleRate() float64 { return s.sampleRate }

// Channels returns the stored channel count.
func (s *Store) Channels() int { return s.channels }

// Settings returns the settings of the committed snapshot.
func (s *Store) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Snapshot returns the committed analysis.
func (s *Store) Snapshot() *Snapshot { return s.snap.Load() }

// Empty reports whether the brain holds no analyzed chunks.
func (s *Store) Empty() bool {
	return len(s.snap.Load().Chunks) == 0
}

// Summary describes the committed snapshot.
func (s *Store) Summary() Summary {
	snap := s.snap.Load()
	return Summary{
		Chunks:         len(snap.Chunks),
		Seconds:        float64(snap.Samples) / s.sampleRate,
		Channels:       s.channels,
		ChunkSize:      snap.ChunkSize,
		AnalysisWindow: snap.AnalysisWindow,
		OutputWindow:   snap.OutputWindow,
	}
}

// Rechunk re-segments and re-analyzes the source at a new chunk size.
func (s *Store) Rechunk(ctx context.Context, chunkSize int, progress jobs.Progress) error {
	next := s.Settings()
	next.ChunkSize = chunkSize
	return s.rebuild(ctx, s.sourceRef(), next, progress)
}

// Reanalyze recomputes the analysis with new window shapes.
func (s *Store) Reanalyze(ctx context.Context, analysis, output config.WindowMode, progress jobs.Progress) error {
	next := s.Settings()
	next.AnalysisWindow = analysis
	next.OutputWindow = output
	return s.rebuild(ctx, s.sourceRef(), next, progress)
}

// Retune re-analyzes the source with settings in one pass.
func (s *Store) Retune(ctx context.Context, settings Settings, progress jobs.Progress) error {
	return s.rebuild(ctx, s.sourceRef(), settings, progress)
}

// Append adds source material and analyzes the result. samples holds one
// slice per channel; missing channels repeat the available ones.
func (s *Store) Append(ctx context.Context, samples [][]float64, progress jobs.Progress) error {
	if len(samples) == 0 {
		return nil
	}
	old := s.sourceRef()
	next := make([][]float64, s.channels)
	for ch := range next {
		add := samples[ch%len(samples)]
		buf := make([]float64, 0, len(old[ch])+len(add))
		next[ch] = append(append(buf, old[ch]...), add...)
	}
	return s.rebuild(ctx, next, s.Settings(), progress)
}

// Clear drops all source material.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.source = make([][]float64, s.channels)
	s.snap.Store(&Snapshot{Settings: s.settings})
}

func (s *Store) sourceRef() [][]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.source
}

// rebuild analyzes source with settings and commits both on success.
func (s *Store) rebuild(ctx context.Context, source [][]float64, settings Settings, progress jobs.Progress) error {
	settings = normalize(settings)
	snap, err := analyze(ctx, source, settings, progress)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.source = source
	s.settings = settings
	s.snap.Store(snap)
	s.mu.Unlock()

	s.logger.Debug().
		Int("chunks", len(snap.Chunks)).
		Int("chunk_size", settings.ChunkSize).
		Stringer("analysis_window", settings.AnalysisWindow).
		Msg("brain analysis committed")
	return nil
}

// analyze splits source into non-overlapping chunks and transforms each.
// The final partial chunk is zero padded. ctx is polled between chunks.
func analyze(ctx context.Context, source [][]float64, settings Settings, progress jobs.Progress) (*Snapshot, error) {
	if progress == nil {
		progress = func(int, int) {}
	}
	n := settings.ChunkSize
	samples := 0
	if len(source) > 0 {
		samples = len(source[0])
	}
	total := (samples + n - 1) / n
	snap := &Snapshot{Settings: settings, Samples: samples, Chunks: make([]Chunk, 0, total)}

	fft := fourier.NewFFT(n)
	win := window.Table(settings.AnalysisWindow, n)
	frame := make([]float64, n)

	progress(0, total)
	for i := range total {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		off := i * n
		c := Chunk{
			Offset:  off,
			Spectra: make([][]complex128, len(source)),
			Mags:    make([][]float64, len(source)),
		}
		for ch, src := range source {
			clear(frame)
			copy(frame, src[off:min(off+n, len(src))])
			window.Apply(frame, frame, win)
			c.Spectra[ch] = fft.Coefficients(nil, frame)
			c.Mags[ch] = mathutil.Magnitudes(nil, c.Spectra[ch])
			c.Energy += f64.DotProduct(c.Mags[ch], c.Mags[ch])
		}
		snap.Chunks = append(snap.Chunks, c)
		progress(i+1, total)
	}
	return snap, nil
}

// Nearest returns the spectra of the stored chunk closest to spectra and a
// normalized distance in [0, 1]. In energy mode only total frame energy is
// compared, otherwise per-bin magnitudes. It reports false when the brain
// is empty or was analyzed at a different frame size. Nearest does not lock
// or allocate; the returned spectra must not be modified.
func (s *Store) Nearest(spectra [][]complex128, byEnergy bool) ([][]complex128, float64, bool) {
	snap := s.snap.Load()
	if len(snap.Chunks) == 0 || len(spectra) == 0 {
		return nil, 0, false
	}
	if len(spectra[0]) != len(snap.Chunks[0].Mags[0]) {
		return nil, 0, false
	}

	best, bestDist := -1, math.Inf(1)
	if byEnergy {
		e := energy(spectra)
		for i := range snap.Chunks {
			d := ratio(math.Abs(e-snap.Chunks[i].Energy), e+snap.Chunks[i].Energy)
			if !math.IsNaN(d) && d < bestDist {
				best, bestDist = i, d
			}
		}
	} else {
		for i := range snap.Chunks {
			d := magnitudeDistance(spectra, snap.Chunks[i].Mags)
			if !math.IsNaN(d) && d < bestDist {
				best, bestDist = i, d
			}
		}
	}
	// A non-finite live frame has no meaningful distance to anything.
	if best < 0 {
		return nil, 0, false
	}
	return snap.Chunks[best].Spectra, bestDist, true
}

func energy(spectra [][]complex128) float64 {
	e := 0.0
	for _, x := range spectra {
		for _, c := range x {
			e += real(c)*real(c) + imag(c)*imag(c)
		}
	}
	return e
}

func magnitudeDistance(spectra [][]complex128, mags [][]float64) float64 {
	num, den := 0.0, 0.0
	for ch := range min(len(spectra), len(mags)) {
		x, m := spectra[ch], mags[ch]
		for i := range min(len(x), len(m)) {
			a := cmplx.Abs(x[i])
			num += math.Abs(a - m[i])
			den += a + m[i]
		}
	}
	return ratio(num, den)
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}
