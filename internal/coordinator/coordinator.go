// Package coordinator translates external parameter changes into
// configuration updates, module rebuilds and background jobs, and rolls
// all of it back when a job is cancelled.
//
// The coordinator runs on the idle context and on the job worker. It is the
// only writer of the configuration and of the pending module slots; the
// realtime path only ever acquires from the slots.
package coordinator

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tphakala/go-resynth/internal/brain"
	"github.com/tphakala/go-resynth/internal/config"
	"github.com/tphakala/go-resynth/internal/jobs"
	"github.com/tphakala/go-resynth/internal/module"
	"github.com/tphakala/go-resynth/internal/param"
	"github.com/tphakala/go-resynth/internal/pending"
	"github.com/tphakala/go-resynth/internal/window"
)

var (
	// ErrMissingDependency indicates an incomplete dependency bundle.
	ErrMissingDependency = errors.New("missing coordinator dependency")

	// ErrMalformedMessage indicates a parameter message that was dropped.
	ErrMalformedMessage = errors.New("malformed parameter message")
)

// ProgressSink receives job progress. Calls arrive on the job worker.
type ProgressSink interface {
	Progress(label string, current, total int)
}

// Deps is the immutable dependency bundle of a coordinator.
type Deps struct {
	Config     config.DSP
	SampleRate float64
	Channels   int

	Transforms *module.Registry[module.Transform]
	Morphs     *module.Registry[module.Morph]

	Brain   *brain.Store
	Jobs    *jobs.Manager
	Pending *pending.Set

	TransformSlot *module.Slot[module.Transform]
	MorphSlot     *module.Slot[module.Morph]
	FramerSlot    *module.Slot[*window.Framer]

	// Progress is optional.
	Progress ProgressSink
	Logger   zerolog.Logger
}

func (d Deps) validate() error {
	switch {
	case d.Transforms == nil, d.Morphs == nil:
		return fmt.Errorf("%w: registries", ErrMissingDependency)
	case d.Brain == nil:
		return fmt.Errorf("%w: brain", ErrMissingDependency)
	case d.Jobs == nil:
		return fmt.Errorf("%w: job manager", ErrMissingDependency)
	case d.Pending == nil:
		return fmt.Errorf("%w: pending set", ErrMissingDependency)
	case d.TransformSlot == nil, d.MorphSlot == nil, d.FramerSlot == nil:
		return fmt.Errorf("%w: slots", ErrMissingDependency)
	case d.SampleRate <= 0, d.Channels < 1:
		return fmt.Errorf("%w: format", ErrMissingDependency)
	}
	return nil
}

// Coordinator is the parameter change state machine of one session.
type Coordinator struct {
	d      Deps
	log    zerolog.Logger
	table  *param.Table
	params *Params

	mu         sync.Mutex
	cfg        config.DSP
	morphMode  int
	windowLock bool
	stale      bool
}

// New builds a coordinator, binds the parameter table and stages the
// initial framer and modules.
func New(d Deps) (*Coordinator, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}
	cfg := d.Config
	cfg.Validate()
	cfg.Algorithm = d.Transforms.Normalize(cfg.Algorithm)

	sources := append(d.Transforms.ParamSets(), d.Morphs.ParamSets()...)
	c := &Coordinator{
		d:     d,
		log:   d.Logger.With().Str("component", "coordinator").Logger(),
		table: param.Build(CoreCount, sources...),
		cfg:   cfg,
	}
	c.params = newParams(CoreCount+c.table.Len(), c.OnParameterChange)

	for i, raw := range coreRaw(cfg, 0, false) {
		c.params.store(i, raw)
	}
	for _, b := range c.table.Bindings() {
		c.params.store(b.Index, b.Default)
	}

	c.mu.Lock()
	c.stageFramer()
	c.stageTransform()
	c.stageMorph()
	c.mu.Unlock()

	c.log.Debug().
		Int("bindings", c.table.Len()).
		Int("chunk_size", cfg.ChunkSize).
		Msg("coordinator ready")
	return c, nil
}

// Config returns the current configuration.
func (c *Coordinator) Config() config.DSP {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// MorphMode returns the selected morph ordinal.
func (c *Coordinator) MorphMode() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.morphMode
}

// WindowLock reports whether the analysis and output windows are locked.
func (c *Coordinator) WindowLock() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.windowLock
}

// Table returns the binding table of dynamic parameters.
func (c *Coordinator) Table() *param.Table { return c.table }

// Params returns the external parameter store.
func (c *Coordinator) Params() *Params { return c.params }

// Format returns the module format for the current configuration.
func (c *Coordinator) Format() module.Format {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.format()
}

// Schema returns the abbreviated parameter form of the latest module of
// role.
func (c *Coordinator) Schema(role module.Role) []param.Descriptor {
	var m module.Module
	var ok bool
	switch role {
	case module.RoleTransform:
		m, ok = c.d.TransformSlot.Latest()
	case module.RoleMorph:
		m, ok = c.d.MorphSlot.Latest()
	}
	if !ok {
		return nil
	}
	return m.Params().Descriptors(false)
}

// format must be called with c.mu held.
func (c *Coordinator) format() module.Format {
	return module.Format{SampleRate: c.d.SampleRate, FrameSize: c.cfg.ChunkSize, Channels: c.d.Channels}
}

// The stage helpers build off the realtime path and publish through the
// pending slots. They must be called with c.mu held.

func (c *Coordinator) stageFramer() {
	c.d.FramerSlot.Stage(window.NewFramer(c.cfg, c.d.SampleRate, c.d.Channels))
}

func (c *Coordinator) stageTransform() {
	t := c.d.Transforms.New(c.cfg.Algorithm)
	c.prepare(t)
	c.d.TransformSlot.Stage(t)
}

func (c *Coordinator) stageMorph() {
	m := c.d.Morphs.New(c.morphMode)
	c.prepare(m)
	c.d.MorphSlot.Stage(m)
}

// stageAll restages everything sized by the chunk size.
func (c *Coordinator) stageAll() {
	c.stageFramer()
	c.stageTransform()
	c.stageMorph()
}

// prepare resets m for the current format, offers it the brain and applies
// every bound parameter value it owns.
func (c *Coordinator) prepare(m module.Module) {
	m.Reset(c.format())
	if m.TryBindSampleStore(c.d.Brain) {
		c.log.Debug().Str("module", m.ID()).Msg("module bound to brain")
	}
	for _, b := range c.table.Bindings() {
		if !m.Params().Owns(b.ID) {
			continue
		}
		v, err := b.Convert(c.params.Get(b.Index))
		if err != nil {
			continue
		}
		_ = m.Params().Apply(b.ID, v)
	}
}
