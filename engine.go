package resynth

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tphakala/go-resynth/internal/brain"
	"github.com/tphakala/go-resynth/internal/config"
	"github.com/tphakala/go-resynth/internal/coordinator"
	"github.com/tphakala/go-resynth/internal/jobs"
	"github.com/tphakala/go-resynth/internal/logging"
	"github.com/tphakala/go-resynth/internal/module"
	"github.com/tphakala/go-resynth/internal/morph"
	"github.com/tphakala/go-resynth/internal/pending"
	"github.com/tphakala/go-resynth/internal/persist"
	"github.com/tphakala/go-resynth/internal/transform"
	"github.com/tphakala/go-resynth/internal/uisync"
	"github.com/tphakala/go-resynth/internal/window"
)

// Common errors returned by the engine.
var (
	// ErrInvalidConfig indicates invalid engine options.
	ErrInvalidConfig = errors.New("invalid engine configuration")

	// ErrInvalidState indicates saved state that cannot be decoded.
	ErrInvalidState = errors.New("invalid engine state")
)

// Options holds engine configuration.
type Options struct {
	// SampleRate of the processed audio in Hz.
	SampleRate float64

	// Channels is the number of audio channels to process.
	Channels int

	// DSP is the initial processing configuration. The zero value selects
	// config.Default.
	DSP config.DSP

	// Persist controls how SaveState stores the brain.
	Persist persist.Options

	// Presenter receives refresh requests from Tick. Nil discards them.
	Presenter uisync.Presenter

	// Progress receives background job progress. Optional.
	Progress coordinator.ProgressSink

	// Logger overrides the default logger.
	Logger *zerolog.Logger
}

// Validate checks if the options are valid.
func (o *Options) Validate() error {
	if o.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate must be positive", ErrInvalidConfig)
	}

	if o.Channels < 1 {
		return fmt.Errorf("%w: channels must be at least 1", ErrInvalidConfig)
	}

	if o.Channels > maxChannels {
		return fmt.Errorf("%w: too many channels (max %d)", ErrInvalidConfig, maxChannels)
	}

	return nil
}

// Engine is one resynthesis session.
type Engine struct {
	opts   Options
	logger zerolog.Logger

	pending pending.Set
	brain   *brain.Store
	jobs    *jobs.Manager
	coord   *coordinator.Coordinator
	syncer  *uisync.Syncer

	framerSlot    module.Slot[*window.Framer]
	transformSlot module.Slot[module.Transform]
	morphSlot     module.Slot[module.Morph]

	// Realtime state, touched only by Process.
	transform module.Transform
	morph     module.Morph
	frameFn   window.FrameFunc
}

// New creates an engine session.
func New(opts Options) (*Engine, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.DSP == (config.DSP{}) {
		opts.DSP = config.Default()
	}
	opts.DSP.Validate()

	base := *logging.GetDefaultLogger()
	if opts.Logger != nil {
		base = *opts.Logger
	}

	e := &Engine{
		opts:   opts,
		logger: base.With().Str("component", "engine").Logger(),
	}
	e.frameFn = e.processFrame
	e.brain = brain.New(opts.SampleRate, opts.Channels, brain.SettingsFrom(opts.DSP), base)
	e.jobs = jobs.NewManager(base)

	coord, err := coordinator.New(coordinator.Deps{
		Config:        opts.DSP,
		SampleRate:    opts.SampleRate,
		Channels:      opts.Channels,
		Transforms:    transform.NewRegistry(),
		Morphs:        morph.NewRegistry(),
		Brain:         e.brain,
		Jobs:          e.jobs,
		Pending:       &e.pending,
		TransformSlot: &e.transformSlot,
		MorphSlot:     &e.morphSlot,
		FramerSlot:    &e.framerSlot,
		Progress:      opts.Progress,
		Logger:        base,
	})
	if err != nil {
		return nil, err
	}
	e.coord = coord
	e.syncer = uisync.New(&e.pending, opts.Presenter, base)

	e.logger.Info().
		Float64("sample_rate", opts.SampleRate).
		Int("channels", opts.Channels).
		Int("parameters", coord.Params().Len()).
		Msg("engine created")
	return e, nil
}

// Process resynthesizes one block, one slice per channel. in and out must
// not alias. Staged framers and modules are picked up here. Process never
// blocks and, for blocks within the framer's buffer window, never
// allocates. Audio passes through unchanged until a framer is available.
func (e *Engine) Process(in, out [][]float64) {
	f, ok := e.framerSlot.Acquire()
	e.transform, _ = e.transformSlot.Acquire()
	e.morph, _ = e.morphSlot.Acquire()
	if !ok || f == nil {
		for ch := range min(len(in), len(out)) {
			copy(out[ch], in[ch])
		}
		return
	}
	f.Process(in, out, e.frameFn)
}

// processFrame runs the transform, then blends the nearest brain frame into
// the result when a morph is active.
func (e *Engine) processFrame(spectra, scratch [][]complex128) {
	if t := e.transform; t != nil && t.Active() {
		t.Transform(spectra)
	}

	m := e.morph
	if m == nil || !m.Active() {
		return
	}
	match, _, ok := e.brain.Nearest(spectra, false)
	if !ok || len(match) == 0 {
		return
	}
	for ch := range scratch {
		copy(scratch[ch], match[min(ch, len(match)-1)])
	}
	m.Morph(scratch, spectra)
}

// SetParameter writes a raw parameter value the way a host would.
func (e *Engine) SetParameter(index int, raw float64) {
	e.coord.Params().Set(index, raw)
}

// Parameter returns the raw value at index.
func (e *Engine) Parameter(index int) float64 {
	return e.coord.Params().Get(index)
}

// ParameterMessage applies a binary parameter message from the
// presentation layer.
func (e *Engine) ParameterMessage(msg []byte) error {
	return e.coord.OnParameterMessage(msg)
}

// ParameterCount returns the number of parameter indices.
func (e *Engine) ParameterCount() int {
	return e.coord.Params().Len()
}

// Tick runs idle work: it performs pending presentation refreshes and
// reconciles the brain with edits made while a job was running. It returns
// the flags that were handled.
func (e *Engine) Tick() pending.Flag {
	handled := e.syncer.Tick()
	e.coord.Reconcile()
	return handled
}

// Latency returns the processing delay in samples for the current
// configuration.
func (e *Engine) Latency() int {
	if f, ok := e.framerSlot.Latest(); ok && f != nil {
		return f.Latency()
	}
	return e.coord.Config().ChunkSize
}

// Coordinator returns the parameter coordinator.
func (e *Engine) Coordinator() *coordinator.Coordinator { return e.coord }

// Brain returns the brain store.
func (e *Engine) Brain() *brain.Store { return e.brain }

// Jobs returns the background job manager.
func (e *Engine) Jobs() *jobs.Manager { return e.jobs }

// Close cancels any running job and waits for it to finish.
func (e *Engine) Close() error {
	if !e.jobs.Close(closeTimeoutSeconds * time.Second) {
		return fmt.Errorf("background job did not stop within %ds", closeTimeoutSeconds)
	}
	e.logger.Debug().Msg("engine closed")
	return nil
}
