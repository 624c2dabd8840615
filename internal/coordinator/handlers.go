package coordinator

import (
	"context"
	"errors"

	"github.com/tphakala/go-resynth/internal/brain"
	"github.com/tphakala/go-resynth/internal/config"
	"github.com/tphakala/go-resynth/internal/jobs"
	"github.com/tphakala/go-resynth/internal/pending"
)

// OnParameterChange handles "index changed to raw". Core indices go to their
// dedicated handler; every other index is routed through the binding table.
// It must not be called with c.mu held.
func (c *Coordinator) OnParameterChange(index int, raw float64) {
	switch index {
	case IndexChunkSize:
		c.onChunkSize(raw)
	case IndexBufferWindow:
		c.onBufferWindow(raw)
	case IndexAlgorithm:
		c.onAlgorithm(raw)
	case IndexOutputWindow, IndexAnalysisWindow:
		c.onWindow(index, raw)
	case IndexOverlapAdd:
		c.onOverlapAdd(raw)
	case IndexMorphMode:
		c.onMorphMode(raw)
	case IndexWindowLock:
		c.onWindowLock(raw)
	default:
		c.onDynamic(index, raw)
	}
}

func (c *Coordinator) onChunkSize(raw float64) {
	size := config.ClampChunkSize(integer(raw))
	if c.d.Pending.TestAndClear(pending.SuppressReanalysis) {
		c.applyChunkSize(size)
		return
	}

	c.mu.Lock()
	prev := c.cfg.ChunkSize
	if size == prev {
		c.mu.Unlock()
		return
	}
	c.cfg.ChunkSize = size
	c.stageAll()
	settings := c.brainSettings()
	c.mu.Unlock()
	c.d.Pending.Raise(pending.ConfigDirty)

	c.log.Debug().Int("from", prev).Int("to", size).Msg("chunk size changed")
	c.launch(jobs.Job{
		Kind:  jobs.Rechunk,
		Label: "Rechunking",
		Work: func(ctx context.Context, progress jobs.Progress) error {
			return c.d.Brain.Rechunk(ctx, settings.ChunkSize, progress)
		},
	}, settings, func() { c.rollbackChunkSize(prev) })
}

// applyChunkSize commits size without a job.
func (c *Coordinator) applyChunkSize(size int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cfg.ChunkSize == size {
		return
	}
	c.cfg.ChunkSize = size
	c.stageAll()
	c.d.Pending.Raise(pending.ConfigDirty)
}

func (c *Coordinator) rollbackChunkSize(prev int) {
	c.log.Info().Int("chunk_size", prev).Msg("rechunk cancelled, restoring chunk size")
	c.applyChunkSize(prev)
	c.writeBack(IndexChunkSize, float64(prev))
}

func (c *Coordinator) onWindow(index int, raw float64) {
	mode := windowMode(raw)
	if c.d.Pending.TestAndClear(pending.SuppressReanalysis) {
		c.mu.Lock()
		if *windowField(&c.cfg, index) != mode {
			*windowField(&c.cfg, index) = mode
			c.stageFramer()
			c.d.Pending.Raise(pending.ConfigDirty)
		}
		c.mu.Unlock()
		return
	}

	c.mu.Lock()
	prev := c.cfg
	*windowField(&c.cfg, index) = mode
	other := pairedWindow(index)
	synced := c.windowLock && *windowField(&c.cfg, other) != mode
	if synced {
		*windowField(&c.cfg, other) = mode
	}
	if c.cfg.Equal(prev) {
		c.mu.Unlock()
		return
	}
	c.stageFramer()
	settings := c.brainSettings()
	c.mu.Unlock()
	c.d.Pending.Raise(pending.ConfigDirty)

	// The paired write is an echo of this edit, not a second edit.
	if synced {
		c.writeBack(other, float64(mode))
	}

	c.log.Debug().Str("window", CoreName(index)).Stringer("mode", mode).Bool("synced", synced).Msg("window changed")
	c.launch(jobs.Job{
		Kind:  jobs.Reanalyze,
		Label: "Reanalyzing",
		Work: func(ctx context.Context, progress jobs.Progress) error {
			return c.d.Brain.Reanalyze(ctx, settings.AnalysisWindow, settings.OutputWindow, progress)
		},
	}, settings, func() { c.rollbackWindows(index, prev, synced) })
}

// rollbackWindows restores both windows in one step, then writes the
// dependent window back before the triggering one.
func (c *Coordinator) rollbackWindows(trigger int, prev config.DSP, synced bool) {
	other := pairedWindow(trigger)
	c.log.Info().Str("window", CoreName(trigger)).Msg("reanalysis cancelled, restoring windows")

	c.mu.Lock()
	*windowField(&c.cfg, trigger) = *windowField(&prev, trigger)
	if synced {
		*windowField(&c.cfg, other) = *windowField(&prev, other)
	}
	c.stageFramer()
	c.mu.Unlock()
	c.d.Pending.Raise(pending.ConfigDirty)

	if synced {
		c.writeBack(other, float64(*windowField(&prev, other)))
	}
	c.writeBack(trigger, float64(*windowField(&prev, trigger)))
}

func windowField(cfg *config.DSP, index int) *config.WindowMode {
	if index == IndexAnalysisWindow {
		return &cfg.AnalysisWindow
	}
	return &cfg.OutputWindow
}

func pairedWindow(index int) int {
	if index == IndexAnalysisWindow {
		return IndexOutputWindow
	}
	return IndexAnalysisWindow
}

// writeBack stores a value the coordinator already applied into the
// parameter store. The suppression flag makes the echo a no-op instead of
// a fresh edit.
func (c *Coordinator) writeBack(index int, raw float64) {
	c.d.Pending.Raise(pending.SuppressReanalysis)
	c.params.Set(index, raw)
	// A store without an observer leaves the flag raised.
	c.d.Pending.TestAndClear(pending.SuppressReanalysis)
	c.d.Pending.Raise(pending.HostDirty)
}

func (c *Coordinator) onBufferWindow(raw float64) {
	n := config.ClampBufferWindow(integer(raw))
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cfg.BufferWindow == n {
		return
	}
	c.cfg.BufferWindow = n
	c.stageFramer()
	c.d.Pending.Raise(pending.ConfigDirty)
}

func (c *Coordinator) onOverlapAdd(raw float64) {
	on := boolean(raw)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cfg.OverlapAdd == on {
		return
	}
	c.cfg.OverlapAdd = on
	c.stageFramer()
	c.d.Pending.Raise(pending.ConfigDirty)
}

func (c *Coordinator) onAlgorithm(raw float64) {
	ord := c.d.Transforms.Normalize(integer(raw))
	c.mu.Lock()
	c.cfg.Algorithm = ord
	c.stageTransform()
	c.mu.Unlock()
	c.log.Debug().Str("transform", c.d.Transforms.At(ord).ID).Msg("transform staged")
	c.d.Pending.Raise(pending.RebuildTransformUI, pending.ConfigDirty)
}

func (c *Coordinator) onMorphMode(raw float64) {
	ord := c.d.Morphs.Normalize(integer(raw))
	c.mu.Lock()
	c.morphMode = ord
	c.stageMorph()
	c.mu.Unlock()
	c.log.Debug().Str("morph", c.d.Morphs.At(ord).ID).Msg("morph staged")
	c.d.Pending.Raise(pending.RebuildMorphUI, pending.ConfigDirty)
}

func (c *Coordinator) onWindowLock(raw float64) {
	c.mu.Lock()
	c.windowLock = boolean(raw)
	c.mu.Unlock()
	c.d.Pending.Raise(pending.ConfigDirty)
}

// brainSettings must be called with c.mu held.
func (c *Coordinator) brainSettings() brain.Settings {
	return brain.SettingsFrom(c.cfg)
}

// launch runs job unless the edit can be committed without one. While
// another job is in flight the edit stays applied to the configuration only
// and the brain is marked stale for Reconcile. An empty brain is retuned in
// place. rollback runs if the job is cancelled or fails.
func (c *Coordinator) launch(job jobs.Job, settings brain.Settings, rollback func()) {
	if c.d.Jobs.Active() {
		c.markStale(job.Kind)
		return
	}
	if c.d.Brain.Empty() {
		if err := c.d.Brain.Retune(context.Background(), settings, nil); err != nil {
			c.log.Warn().Err(err).Msg("retuning empty brain failed")
		}
		return
	}

	job.OnProgress = c.forwardProgress
	job.OnComplete = func(r jobs.Result) {
		switch {
		case r.Cancelled:
			rollback()
		case r.Err != nil:
			c.log.Error().Err(r.Err).Stringer("kind", r.Kind).Msg("job failed, restoring configuration")
			rollback()
		default:
			c.d.Pending.Raise(pending.BrainSummaryDirty, pending.HostDirty)
		}
	}
	if _, err := c.d.Jobs.Submit(job); err != nil {
		if errors.Is(err, jobs.ErrJobActive) {
			c.markStale(job.Kind)
			return
		}
		c.log.Error().Err(err).Stringer("kind", job.Kind).Msg("job submission failed")
	}
}

func (c *Coordinator) markStale(kind jobs.Kind) {
	c.mu.Lock()
	c.stale = true
	c.mu.Unlock()
	c.log.Debug().Stringer("kind", kind).Msg("job active, edit applied to configuration only")
}

func (c *Coordinator) forwardProgress(label string, current, total int) {
	if c.d.Progress != nil {
		c.d.Progress.Progress(label, current, total)
	}
}
