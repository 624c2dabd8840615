package coordinator

import (
	"context"
	"math"
	"math/rand/v2"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-resynth/internal/brain"
	"github.com/tphakala/go-resynth/internal/config"
	"github.com/tphakala/go-resynth/internal/jobs"
	"github.com/tphakala/go-resynth/internal/module"
	"github.com/tphakala/go-resynth/internal/morph"
	"github.com/tphakala/go-resynth/internal/pending"
	"github.com/tphakala/go-resynth/internal/testutil"
	"github.com/tphakala/go-resynth/internal/transform"
	"github.com/tphakala/go-resynth/internal/window"
)

const (
	testRate    = 48000
	waitTimeout = 5 * time.Second
)

type progressCall struct {
	label          string
	current, total int
}

// gatedSink records progress and, once armed, holds the worker inside its
// first progress report until released.
type gatedSink struct {
	mu      sync.Mutex
	calls   []progressCall
	gate    chan struct{}
	entered chan struct{}
	once    sync.Once
}

func (s *gatedSink) arm() {
	s.gate = make(chan struct{})
	s.entered = make(chan struct{})
	s.once = sync.Once{}
}

func (s *gatedSink) Progress(label string, current, total int) {
	s.mu.Lock()
	s.calls = append(s.calls, progressCall{label, current, total})
	gate, entered := s.gate, s.entered
	s.mu.Unlock()
	if gate != nil {
		s.once.Do(func() { close(entered) })
		<-gate
	}
}

func (s *gatedSink) waitEntered(t *testing.T) {
	t.Helper()
	select {
	case <-s.entered:
	case <-time.After(waitTimeout):
		t.Fatal("job never reported progress")
	}
}

func (s *gatedSink) release() { close(s.gate) }

func (s *gatedSink) snapshot() []progressCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]progressCall(nil), s.calls...)
}

type harness struct {
	c       *Coordinator
	brain   *brain.Store
	jobs    *jobs.Manager
	pending *pending.Set
	tslot   *module.Slot[module.Transform]
	mslot   *module.Slot[module.Morph]
	fslot   *module.Slot[*window.Framer]
	sink    *gatedSink
}

func newHarness(t *testing.T, filled bool) *harness {
	t.Helper()
	cfg := config.Default()
	h := &harness{
		brain:   brain.New(testRate, 2, brain.SettingsFrom(cfg), zerolog.Nop()),
		jobs:    jobs.NewManager(zerolog.Nop()),
		pending: &pending.Set{},
		tslot:   &module.Slot[module.Transform]{},
		mslot:   &module.Slot[module.Morph]{},
		fslot:   &module.Slot[*window.Framer]{},
		sink:    &gatedSink{},
	}
	if filled {
		samples := testutil.Chord(1<<16, testRate, 0.3, 110, 440, 1760)
		require.NoError(t, h.brain.Append(context.Background(), [][]float64{samples}, nil))
	}
	c, err := New(Deps{
		Config:        cfg,
		SampleRate:    testRate,
		Channels:      2,
		Transforms:    transform.NewRegistry(),
		Morphs:        morph.NewRegistry(),
		Brain:         h.brain,
		Jobs:          h.jobs,
		Pending:       h.pending,
		TransformSlot: h.tslot,
		MorphSlot:     h.mslot,
		FramerSlot:    h.fslot,
		Progress:      h.sink,
		Logger:        zerolog.Nop(),
	})
	require.NoError(t, err)
	h.c = c
	t.Cleanup(func() { h.jobs.Close(waitTimeout) })
	return h
}

type echo struct {
	index      int
	raw        float64
	suppressed bool
}

type echoLog struct {
	mu      sync.Mutex
	entries []echo
}

func (l *echoLog) snapshot() []echo {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]echo(nil), l.entries...)
}

// recordEchoes logs every store write as the coordinator sees it, along with
// whether reanalysis suppression was raised at that moment. Call it before
// starting work that writes back.
func (h *harness) recordEchoes() *echoLog {
	l := &echoLog{}
	inner := h.c.params.observer
	h.c.params.observer = func(index int, raw float64) {
		l.mu.Lock()
		l.entries = append(l.entries, echo{index, raw, h.pending.Has(pending.SuppressReanalysis)})
		l.mu.Unlock()
		inner(index, raw)
	}
	return l
}

func (h *harness) wait(t *testing.T, handle *jobs.Handle) jobs.Result {
	t.Helper()
	require.NotNil(t, handle)
	res, ok := handle.Wait(waitTimeout)
	require.True(t, ok, "job did not finish")
	return res
}

// settle waits for the in-flight job, if any.
func (h *harness) settle(t *testing.T) {
	t.Helper()
	if handle := h.jobs.Current(); handle != nil {
		h.wait(t, handle)
	}
}

func (h *harness) index(t *testing.T, id string) int {
	t.Helper()
	idx, ok := h.c.Table().IndexOf(id)
	require.True(t, ok, id)
	return idx
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(Deps{})
	assert.ErrorIs(t, err, ErrMissingDependency)
}

func TestInitialState(t *testing.T) {
	h := newHarness(t, false)
	assert.Equal(t, config.Default(), h.c.Config())
	assert.Equal(t, CoreCount+h.c.Table().Len(), h.c.Params().Len())
	assert.Equal(t, CoreCount, h.c.Table().Base())
	assert.InDelta(t, 1024, h.c.Params().Get(IndexChunkSize), 0)
	assert.InDelta(t, 1, h.c.Params().Get(IndexOverlapAdd), 0)

	tr, ok := h.tslot.Acquire()
	require.True(t, ok)
	assert.Equal(t, transform.IDPassthrough, tr.ID())
	m, ok := h.mslot.Acquire()
	require.True(t, ok)
	assert.Equal(t, morph.IDNull, m.ID())
	f, ok := h.fslot.Acquire()
	require.True(t, ok)
	assert.Equal(t, 1024, f.Sizing().ChunkSize)

	gate := h.index(t, transform.ParamThreshold)
	assert.InDelta(t, -48, h.c.Params().Get(gate), 0, "dynamic defaults come from the winning descriptor")
	assert.Equal(t, "chunk-size", CoreName(IndexChunkSize))
	assert.Equal(t, "index(99)", CoreName(99))
}

func TestRechunkRunsOnceAndCommits(t *testing.T) {
	h := newHarness(t, true)
	h.sink.arm()

	h.c.Params().Set(IndexChunkSize, 4096)
	h.sink.waitEntered(t)
	handle := h.jobs.Current()
	require.NotNil(t, handle)
	assert.Equal(t, jobs.Rechunk, handle.Kind())
	h.sink.release()
	res := h.wait(t, handle)
	require.False(t, res.Cancelled)
	require.NoError(t, res.Err)

	calls := h.sink.snapshot()
	currents := make([]int, 0, len(calls))
	starts := 0
	for _, call := range calls {
		assert.Equal(t, "Rechunking", call.label)
		currents = append(currents, call.current)
		if call.current == 0 {
			starts++
		}
	}
	assert.Equal(t, 1, starts, "exactly one job")
	testutil.AssertNonDecreasing(t, currents)
	last := calls[len(calls)-1]
	assert.Equal(t, last.total, last.current)

	assert.True(t, h.pending.Has(pending.BrainSummaryDirty))
	assert.True(t, h.pending.Has(pending.HostDirty))
	assert.True(t, h.pending.Has(pending.ConfigDirty))
	assert.False(t, h.pending.Has(pending.SuppressReanalysis))
	assert.Equal(t, 4096, h.c.Config().ChunkSize)
	assert.Equal(t, 4096, h.brain.Settings().ChunkSize)
	assert.False(t, h.jobs.Active())

	f, _ := h.fslot.Acquire()
	assert.Equal(t, 4096, f.Sizing().ChunkSize)
	assert.Equal(t, 4096, h.c.Format().FrameSize)
}

func TestRechunkSameSizeIsNoop(t *testing.T) {
	h := newHarness(t, true)
	h.c.Params().Set(IndexChunkSize, 1000) // clamps to 1024
	assert.False(t, h.jobs.Active())
	assert.False(t, h.pending.Has(pending.ConfigDirty))
}

func TestCancelledRechunkRollsBack(t *testing.T) {
	h := newHarness(t, true)
	before := h.c.Config()
	h.sink.arm()

	h.c.Params().Set(IndexChunkSize, 4096)
	h.sink.waitEntered(t)
	handle := h.jobs.Current()

	// A second edit while the job runs changes the configuration only.
	h.c.Params().Set(IndexChunkSize, 2048)
	assert.Same(t, handle, h.jobs.Current(), "no second job")
	assert.Equal(t, 2048, h.c.Config().ChunkSize)

	handle.Cancel()
	h.sink.release()
	res := h.wait(t, handle)
	require.True(t, res.Cancelled)

	assert.Equal(t, before, h.c.Config())
	assert.InDelta(t, 1024, h.c.Params().Get(IndexChunkSize), 0)
	assert.Equal(t, 1024, h.brain.Settings().ChunkSize)
	assert.False(t, h.pending.Has(pending.SuppressReanalysis))
	assert.False(t, h.pending.Has(pending.BrainSummaryDirty))
	assert.False(t, h.jobs.Active(), "rollback must not start a job")

	f, _ := h.fslot.Acquire()
	assert.Equal(t, 1024, f.Sizing().ChunkSize)
	assert.False(t, h.c.Reconcile(), "brain already matches restored configuration")
}

func TestEditDuringJobIsReconciled(t *testing.T) {
	h := newHarness(t, true)
	h.sink.arm()

	h.c.Params().Set(IndexChunkSize, 4096)
	h.sink.waitEntered(t)
	handle := h.jobs.Current()
	h.c.Params().Set(IndexChunkSize, 2048)
	h.sink.release()
	h.wait(t, handle)

	assert.Equal(t, 4096, h.brain.Settings().ChunkSize)
	assert.Equal(t, 2048, h.c.Config().ChunkSize)

	require.True(t, h.c.Reconcile())
	h.settle(t)
	assert.Equal(t, 2048, h.brain.Settings().ChunkSize)
	assert.False(t, h.c.Reconcile())
}

func TestCancelledReconcileWaitsForNextEdit(t *testing.T) {
	h := newHarness(t, true)
	h.sink.arm()
	h.c.Params().Set(IndexChunkSize, 4096)
	h.sink.waitEntered(t)
	handle := h.jobs.Current()
	h.c.Params().Set(IndexChunkSize, 2048)
	h.sink.release()
	h.wait(t, handle)

	h.sink.arm()
	require.True(t, h.c.Reconcile())
	h.sink.waitEntered(t)
	handle = h.jobs.Current()
	handle.Cancel()
	h.sink.release()
	require.True(t, h.wait(t, handle).Cancelled)

	assert.Equal(t, 4096, h.brain.Settings().ChunkSize, "cancelled retune keeps the old analysis")
	assert.Equal(t, 2048, h.c.Config().ChunkSize)
	assert.False(t, h.c.Reconcile(), "a cancelled reconcile is not resubmitted")

	h.c.Params().Set(IndexChunkSize, 1024)
	h.settle(t)
	assert.Equal(t, 1024, h.brain.Settings().ChunkSize)
}

func TestEmptyBrainCommitsWithoutJob(t *testing.T) {
	h := newHarness(t, false)
	h.c.Params().Set(IndexChunkSize, 4096)
	assert.False(t, h.jobs.Active())
	assert.Equal(t, 4096, h.c.Config().ChunkSize)
	assert.Equal(t, 4096, h.brain.Settings().ChunkSize)
	assert.True(t, h.pending.Has(pending.ConfigDirty))
	assert.False(t, h.pending.Has(pending.BrainSummaryDirty))

	h.c.Params().Set(IndexAnalysisWindow, float64(config.WindowHamming))
	assert.False(t, h.jobs.Active())
	assert.Equal(t, config.WindowHamming, h.brain.Settings().AnalysisWindow)
	assert.Empty(t, h.sink.snapshot())
}

func TestLockedWindowChangeAndCancel(t *testing.T) {
	h := newHarness(t, true)
	h.c.Params().Set(IndexWindowLock, 1)
	require.True(t, h.c.WindowLock())
	before := h.c.Config()
	require.Equal(t, config.WindowHann, before.AnalysisWindow)
	h.sink.arm()

	h.c.Params().Set(IndexOutputWindow, float64(config.WindowBlackman))
	h.sink.waitEntered(t)
	handle := h.jobs.Current()
	assert.Equal(t, jobs.Reanalyze, handle.Kind())

	cfg := h.c.Config()
	assert.Equal(t, config.WindowBlackman, cfg.OutputWindow)
	assert.Equal(t, config.WindowBlackman, cfg.AnalysisWindow, "synchronized before the job runs")
	assert.InDelta(t, float64(config.WindowBlackman), h.c.Params().Get(IndexAnalysisWindow), 0)
	assert.False(t, h.pending.Has(pending.SuppressReanalysis))

	echoes := h.recordEchoes()
	handle.Cancel()
	h.sink.release()
	res := h.wait(t, handle)
	require.True(t, res.Cancelled)

	assert.Equal(t, []echo{
		{index: IndexAnalysisWindow, raw: float64(config.WindowHann), suppressed: true},
		{index: IndexOutputWindow, raw: float64(config.WindowHann), suppressed: true},
	}, echoes.snapshot(), "dependent window is written back first, each under suppression")
	assert.Equal(t, before, h.c.Config())
	assert.InDelta(t, float64(config.WindowHann), h.c.Params().Get(IndexOutputWindow), 0)
	assert.InDelta(t, float64(config.WindowHann), h.c.Params().Get(IndexAnalysisWindow), 0)
	assert.Equal(t, config.WindowHann, h.brain.Settings().AnalysisWindow)
	assert.False(t, h.jobs.Active(), "rollback must not spawn a reanalysis")
	assert.False(t, h.pending.Has(pending.SuppressReanalysis))

	starts := 0
	for _, call := range h.sink.snapshot() {
		if call.current == 0 {
			starts++
		}
	}
	assert.Equal(t, 1, starts)
}

func TestUnlockedWindowChange(t *testing.T) {
	h := newHarness(t, true)
	h.c.Params().Set(IndexAnalysisWindow, float64(config.WindowBlackmanHarris))
	h.settle(t)
	cfg := h.c.Config()
	assert.Equal(t, config.WindowBlackmanHarris, cfg.AnalysisWindow)
	assert.Equal(t, config.WindowHann, cfg.OutputWindow)
	assert.Equal(t, config.WindowBlackmanHarris, h.brain.Settings().AnalysisWindow)
	assert.True(t, h.pending.Has(pending.BrainSummaryDirty))

	h.c.Params().Set(IndexOutputWindow, 42)
	h.settle(t)
	assert.Equal(t, config.WindowBlackmanHarris, h.c.Config().OutputWindow, "clamped")
}

func TestAlgorithmStagesPendingOnly(t *testing.T) {
	h := newHarness(t, true)
	initial, _ := h.tslot.Acquire()
	h.pending.Drain()

	h.c.Params().Set(IndexAlgorithm, 2)
	cur, _ := h.tslot.Current()
	assert.Same(t, initial, cur, "current is never written by the coordinator")
	staged, ok := h.tslot.Pending()
	require.True(t, ok)
	assert.Equal(t, transform.IDBrainMatch, staged.ID())
	assert.True(t, staged.Active(), "brain-match bound to the filled brain")
	assert.True(t, h.pending.Has(pending.RebuildTransformUI))
	assert.Equal(t, 2, h.c.Config().Algorithm)

	for _, ord := range []float64{-1, 4, 1e9, math.NaN()} {
		h.c.Params().Set(IndexAlgorithm, ord)
		staged, _ := h.tslot.Pending()
		assert.Equal(t, transform.IDPassthrough, staged.ID(), "ordinal %v", ord)
		assert.Equal(t, 0, h.c.Config().Algorithm)
	}
}

func TestMorphModeStages(t *testing.T) {
	h := newHarness(t, false)
	h.c.Params().Set(IndexMorphMode, 3)
	staged, ok := h.mslot.Pending()
	require.True(t, ok)
	assert.Equal(t, morph.IDWaveMorph, staged.ID())
	assert.Equal(t, 3, h.c.MorphMode())
	assert.True(t, h.pending.Has(pending.RebuildMorphUI))

	h.c.Params().Set(IndexMorphMode, 17)
	assert.Equal(t, 0, h.c.MorphMode())
}

func TestDynamicParameterRouting(t *testing.T) {
	h := newHarness(t, false)
	threshold := h.index(t, transform.ParamThreshold)
	matchMode := h.index(t, transform.ParamMatchMode)

	h.c.Params().Set(IndexAlgorithm, 1)
	gate, _ := h.tslot.Acquire()
	require.Equal(t, transform.IDSpectralGate, gate.ID())

	h.c.Params().Set(threshold, -30)
	assert.InDelta(t, -30, gate.Params().Number(transform.ParamThreshold), 0)

	// The gate threshold does not leak into brain-match's distance gate.
	h.c.Params().Set(IndexAlgorithm, 2)
	match, _ := h.tslot.Acquire()
	require.Equal(t, transform.IDBrainMatch, match.ID())
	assert.InDelta(t, 1, match.Params().Number(transform.ParamMatchThreshold), 0)

	h.pending.Drain()
	h.c.Params().Set(matchMode, 1)
	assert.Equal(t, transform.MatchEnergy, match.Params().EnumString(transform.ParamMatchMode))
	assert.True(t, h.pending.Has(pending.RebuildTransformUI))

	h.pending.Drain()
	h.c.Params().Set(h.index(t, transform.ParamMix), 0.25)
	assert.InDelta(t, 0.25, match.Params().Number(transform.ParamMix), 0)
	assert.False(t, h.pending.Has(pending.RebuildTransformUI))
}

func TestDynamicMorphParameter(t *testing.T) {
	h := newHarness(t, false)
	h.c.Params().Set(IndexMorphMode, 1)
	h.pending.Drain()

	h.c.Params().Set(h.index(t, morph.ParamMorphMode), 1)
	m, _ := h.mslot.Latest()
	assert.Equal(t, morph.ModeCepstral, m.Params().EnumString(morph.ParamMorphMode))
	assert.True(t, h.pending.Has(pending.RebuildMorphUI))

	ids := make([]string, 0)
	for _, d := range h.c.Schema(module.RoleMorph) {
		ids = append(ids, d.ID)
	}
	assert.Contains(t, ids, morph.ParamEmphasis)
	assert.Empty(t, h.c.Schema(module.RoleTransform), "passthrough has no parameters")
}

func TestParameterMessages(t *testing.T) {
	h := newHarness(t, false)
	before := h.c.Config()

	err := h.c.OnParameterMessage(EncodeMessage(IndexChunkSize, 4096)[:7])
	require.ErrorIs(t, err, ErrMalformedMessage)
	err = h.c.OnParameterMessage(EncodeMessage(h.c.Params().Len(), 1))
	require.ErrorIs(t, err, ErrMalformedMessage)
	assert.Equal(t, before, h.c.Config())
	assert.False(t, h.pending.Has(pending.ConfigDirty))

	require.NoError(t, h.c.OnParameterMessage(EncodeMessage(IndexChunkSize, 4096)))
	assert.Equal(t, 4096, h.c.Config().ChunkSize)
	assert.InDelta(t, 4096, h.c.Params().Get(IndexChunkSize), 0)
}

func TestCoreEditsAlwaysValid(t *testing.T) {
	h := newHarness(t, false)
	rng := rand.New(rand.NewPCG(1, 2))
	raws := []float64{math.NaN(), math.Inf(1), math.Inf(-1), -1e12, 1e12, 0, -3}
	for range 500 {
		index := rng.IntN(CoreCount)
		raw := rng.NormFloat64() * 5000
		if rng.IntN(4) == 0 {
			raw = raws[rng.IntN(len(raws))]
		}
		h.c.Params().Set(index, raw)

		cfg := h.c.Config()
		require.GreaterOrEqual(t, cfg.ChunkSize, 1)
		require.GreaterOrEqual(t, cfg.BufferWindow, 1)
		require.True(t, cfg.OutputWindow.Valid())
		require.True(t, cfg.AnalysisWindow.Valid())
		require.GreaterOrEqual(t, cfg.Algorithm, 0)
	}
	assert.False(t, h.jobs.Active())
}

func TestBufferWindowAndOverlap(t *testing.T) {
	h := newHarness(t, false)
	h.c.Params().Set(IndexBufferWindow, 4)
	h.c.Params().Set(IndexOverlapAdd, 0)
	f, _ := h.fslot.Acquire()
	s := f.Sizing()
	assert.Equal(t, 4*1024, s.InputCapacity)
	assert.Equal(t, 1024, s.Hop)
	assert.False(t, h.c.Config().OverlapAdd)
}

func TestBrainJobs(t *testing.T) {
	h := newHarness(t, false)
	samples := testutil.Sine(8192, 440, testRate, 0.5)

	handle, err := h.c.CreateBrain([][]float64{samples})
	require.NoError(t, err)
	res := h.wait(t, handle)
	require.NoError(t, res.Err)
	assert.False(t, h.brain.Empty())
	assert.True(t, h.pending.Has(pending.BrainSummaryDirty))

	path := filepath.Join(t.TempDir(), "brain.wav")
	handle, err = h.c.ExportBrain(path)
	require.NoError(t, err)
	require.NoError(t, h.wait(t, handle).Err)
	assert.FileExists(t, path)

	chunks := h.brain.Summary().Chunks
	handle, err = h.c.ImportBrain(path)
	require.NoError(t, err)
	require.NoError(t, h.wait(t, handle).Err)
	assert.Equal(t, 2*chunks, h.brain.Summary().Chunks)

	handle, err = h.c.ImportBrain(filepath.Join(t.TempDir(), "missing.wav"))
	require.NoError(t, err)
	assert.Error(t, h.wait(t, handle).Err)

	labels := map[string]bool{}
	for _, call := range h.sink.snapshot() {
		labels[call.label] = true
	}
	assert.True(t, labels["Creating brain"])
	assert.True(t, labels["Exporting"])
	assert.True(t, labels["Importing"])
}

func TestRestoreAppliesWithoutJobs(t *testing.T) {
	h := newHarness(t, true)
	values := h.c.Params().Values()
	values[IndexChunkSize] = 2048
	values[IndexAnalysisWindow] = float64(config.WindowBlackman)
	values[IndexOutputWindow] = float64(config.WindowHamming)
	values[IndexAlgorithm] = 1
	values[h.index(t, transform.ParamThreshold)] = -20
	h.pending.Drain()

	h.c.Restore(values)
	assert.False(t, h.jobs.Active(), "restore must not start a job")
	assert.False(t, h.pending.Has(pending.SuppressReanalysis))
	assert.True(t, h.pending.Has(pending.ConfigDirty|pending.HostDirty))

	cfg := h.c.Config()
	assert.Equal(t, 2048, cfg.ChunkSize)
	assert.Equal(t, config.WindowBlackman, cfg.AnalysisWindow)
	assert.Equal(t, config.WindowHamming, cfg.OutputWindow)
	assert.Equal(t, values, h.c.Params().Values())

	gate, _ := h.tslot.Acquire()
	require.Equal(t, transform.IDSpectralGate, gate.ID())
	assert.InDelta(t, -20, gate.Params().Number(transform.ParamThreshold), 0)

	// The brain still holds the old analysis until reconciled.
	assert.Equal(t, 1024, h.brain.Settings().ChunkSize)
	require.True(t, h.c.Reconcile())
	h.settle(t)
	assert.Equal(t, brain.SettingsFrom(cfg), h.brain.Settings())
}

func TestRestoreIgnoresExtraValues(t *testing.T) {
	h := newHarness(t, false)
	values := append(h.c.Params().Values(), 1, 2, 3)
	assert.NotPanics(t, func() { h.c.Restore(values) })
	assert.Equal(t, values[:h.c.Params().Len()], h.c.Params().Values())
}
