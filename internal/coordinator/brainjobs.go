package coordinator

import (
	"context"

	"github.com/tphakala/go-resynth/internal/jobs"
	"github.com/tphakala/go-resynth/internal/pending"
)

// CreateBrain appends samples, one slice per channel, to the brain in the
// background.
func (c *Coordinator) CreateBrain(samples [][]float64) (*jobs.Handle, error) {
	return c.submitBrainJob(jobs.CreateBrain, "Creating brain", func(ctx context.Context, progress jobs.Progress) error {
		return c.d.Brain.Append(ctx, samples, progress)
	})
}

// ImportBrain appends the audio of a WAV file to the brain in the
// background.
func (c *Coordinator) ImportBrain(path string) (*jobs.Handle, error) {
	return c.submitBrainJob(jobs.Import, "Importing", func(ctx context.Context, progress jobs.Progress) error {
		return c.d.Brain.ImportWAV(ctx, path, progress)
	})
}

// ExportBrain writes the brain's source material to a WAV file in the
// background.
func (c *Coordinator) ExportBrain(path string) (*jobs.Handle, error) {
	return c.submitBrainJob(jobs.Export, "Exporting", func(ctx context.Context, progress jobs.Progress) error {
		return c.d.Brain.ExportWAV(ctx, path, progress)
	})
}

// submitBrainJob runs a job that changes the brain but no configuration, so
// cancellation needs no rollback.
func (c *Coordinator) submitBrainJob(kind jobs.Kind, label string, work func(context.Context, jobs.Progress) error) (*jobs.Handle, error) {
	return c.d.Jobs.Submit(jobs.Job{
		Kind:       kind,
		Label:      label,
		Work:       work,
		OnProgress: c.forwardProgress,
		OnComplete: func(r jobs.Result) {
			switch {
			case r.Cancelled:
				c.log.Info().Stringer("kind", kind).Msg("brain job cancelled")
			case r.Err != nil:
				c.log.Error().Err(r.Err).Stringer("kind", kind).Msg("brain job failed")
			case kind != jobs.Export:
				c.d.Pending.Raise(pending.BrainSummaryDirty, pending.HostDirty)
			}
		},
	})
}

// Reconcile brings the brain's analysis in line with the configuration
// after edits that arrived while another job was running. It reports
// whether a job was submitted. Cancelling that job rolls nothing back and
// is not retried: the brain keeps its old analysis, so brain-backed modules
// stay idle until the next edit that triggers analysis.
func (c *Coordinator) Reconcile() bool {
	c.mu.Lock()
	stale := c.stale
	settings := c.brainSettings()
	c.mu.Unlock()
	if !stale || c.d.Jobs.Active() {
		return false
	}

	c.mu.Lock()
	c.stale = false
	c.mu.Unlock()
	if c.d.Brain.Settings() == settings {
		return false
	}
	if c.d.Brain.Empty() {
		if err := c.d.Brain.Retune(context.Background(), settings, nil); err != nil {
			c.log.Warn().Err(err).Msg("retuning empty brain failed")
		}
		return false
	}

	_, err := c.submitBrainJob(jobs.Rechunk, "Rechunking", func(ctx context.Context, progress jobs.Progress) error {
		return c.d.Brain.Retune(ctx, settings, progress)
	})
	if err != nil {
		c.mu.Lock()
		c.stale = true
		c.mu.Unlock()
		return false
	}
	c.log.Debug().Int("chunk_size", settings.ChunkSize).Msg("reconciling brain with configuration")
	return true
}
