// Package resynth is a frequency-domain audio resynthesis engine.
//
// Streamed audio is cut into overlapping chunks, transformed to the
// frequency domain, passed through a selectable spectral transform and an
// optional morph stage, and resynthesized by overlap-add. Sample-based
// transforms and morphs draw on the brain: a store of previously analyzed
// audio that is rebuilt in the background whenever the chunk size or the
// window shapes change.
//
// # Quick Start
//
//	e, err := resynth.New(resynth.Options{SampleRate: 48000, Channels: 2})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer e.Close()
//
//	// Feed the brain from another recording.
//	if _, err := e.Coordinator().ImportBrain("texture.wav"); err != nil {
//	    log.Fatal(err)
//	}
//
//	// Select the brain-match transform.
//	e.SetParameter(coordinator.IndexAlgorithm, 2)
//
//	for block := range blocks {
//	    e.Process(block.In, block.Out) // realtime context
//	}
//
//	// On the idle context, at UI rate:
//	e.Tick()
//
// # Parameters
//
// Parameters are addressed by a flat index. Indices below
// [coordinator.CoreCount] are the core parameters (chunk size, buffer
// window, algorithm, windows, overlap-add, morph mode and window lock).
// The remaining indices are assigned once per session to the union of every
// module's parameters, so the layout is stable for saved state.
//
// # Threads
//
// Process may be called from a realtime thread. It never blocks and never
// allocates: new framers and modules are built off that thread and picked
// up at the start of the next Process call. SetParameter, Tick, SaveState
// and LoadState belong to the idle context. Background jobs report through
// the pending-update set, which Tick drains into the Presenter.
//
// # Cancellation
//
// A chunk-size or window edit launches a rechunk or reanalysis of the
// brain. Cancelling that job with [jobs.Manager.Cancel] restores the edited
// parameters, including a window synchronized by the window lock.
package resynth
