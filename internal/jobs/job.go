// Package jobs runs long operations off the realtime path, one at a time,
// with progress reporting and cooperative cancellation.
package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Kind identifies what a job does.
type Kind int

const (
	Rechunk Kind = iota
	Reanalyze
	Export
	Import
	CreateBrain
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case Rechunk:
		return "rechunk"
	case Reanalyze:
		return "reanalyze"
	case Export:
		return "export"
	case Import:
		return "import"
	case CreateBrain:
		return "create-brain"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Errors returned by the manager.
var (
	// ErrJobActive indicates a job is already in flight.
	ErrJobActive = errors.New("job already active")

	// ErrNilWork indicates a job without a work function.
	ErrNilWork = errors.New("job has no work function")

	// ErrPanic wraps a panic recovered from a work function.
	ErrPanic = errors.New("job panicked")
)

// Progress reports how far a work function has come. A total <= 0 means
// the amount of work is unknown.
type Progress func(current, total int)

// Job describes one unit of background work.
//
// Work must poll ctx between items and return ctx.Err() when it stops early.
// OnProgress and OnComplete run on the worker goroutine.
type Job struct {
	Kind       Kind
	Label      string
	Work       func(ctx context.Context, progress Progress) error
	OnProgress func(label string, current, total int)
	OnComplete func(Result)
}

// Result is the outcome of a finished job. Cancellation is an outcome, not
// an error: a cancelled job has Cancelled set and a nil Err.
type Result struct {
	ID        uuid.UUID
	Kind      Kind
	Cancelled bool
	Err       error
}

// outcome returns the metric label for r.
func (r Result) outcome() string {
	switch {
	case r.Cancelled:
		return "cancelled"
	case r.Err != nil:
		return "failed"
	default:
		return "completed"
	}
}
