package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Handle refers to a submitted job.
type Handle struct {
	id     uuid.UUID
	kind   Kind
	label  string
	cancel context.CancelFunc
	done   chan struct{}
	result Result
}

// ID returns the job id.
func (h *Handle) ID() uuid.UUID { return h.id }

// Kind returns the job kind.
func (h *Handle) Kind() Kind { return h.kind }

// Label returns the job label.
func (h *Handle) Label() string { return h.label }

// Cancel requests cooperative cancellation. It does not wait.
func (h *Handle) Cancel() { h.cancel() }

// Done is closed once the completion callback has returned.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Wait blocks until the job finishes or timeout elapses. The boolean is
// false on timeout.
func (h *Handle) Wait(timeout time.Duration) (Result, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-h.done:
		return h.result, true
	case <-timer.C:
		return Result{}, false
	}
}
