package coordinator

import "github.com/tphakala/go-resynth/internal/pending"

// Restore replaces parameter values from saved state, in index order.
// Chunk size and window values are applied without a job and the brain is
// left for Reconcile. Values beyond the parameter count are ignored.
func (c *Coordinator) Restore(values []float64) {
	n := min(len(values), c.params.Len())
	for i := range n {
		analysis := isAnalysisIndex(i)
		if analysis {
			c.d.Pending.Raise(pending.SuppressReanalysis)
		}
		c.params.Set(i, values[i])
		if analysis {
			c.d.Pending.TestAndClear(pending.SuppressReanalysis)
		}
	}

	c.mu.Lock()
	c.stale = true
	c.mu.Unlock()
	c.d.Pending.Raise(pending.ConfigDirty, pending.HostDirty, pending.RebuildTransformUI, pending.RebuildMorphUI)
	c.log.Debug().Int("values", n).Msg("parameters restored")
}

// isAnalysisIndex reports whether index feeds the brain analysis.
func isAnalysisIndex(index int) bool {
	switch index {
	case IndexChunkSize, IndexOutputWindow, IndexAnalysisWindow:
		return true
	}
	return false
}
