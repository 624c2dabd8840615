package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Manager runs at most one job at a time.
type Manager struct {
	logger zerolog.Logger

	mu     sync.Mutex
	active *Handle
}

// NewManager creates a job manager.
func NewManager(logger zerolog.Logger) *Manager {
	return &Manager{logger: logger.With().Str("component", "jobs").Logger()}
}

// Submit starts job on a new worker goroutine. It fails with ErrJobActive
// while another job is in flight; jobs never run concurrently.
func (m *Manager) Submit(job Job) (*Handle, error) {
	if job.Work == nil {
		return nil, ErrNilWork
	}

	m.mu.Lock()
	if m.active != nil {
		m.mu.Unlock()
		jobsRejectedTotal.WithLabelValues(job.Kind.String()).Inc()
		return nil, fmt.Errorf("%w: %s", ErrJobActive, job.Kind)
	}
	ctx, cancel := context.WithCancel(context.Background())
	h := &Handle{
		id:     uuid.New(),
		kind:   job.Kind,
		label:  job.Label,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	m.active = h
	m.mu.Unlock()

	jobsSubmittedTotal.WithLabelValues(job.Kind.String()).Inc()
	jobActive.Set(1)
	jobProgressRatio.Set(0)
	m.logger.Debug().Str("job", h.id.String()).Stringer("kind", job.Kind).Msg("job started")

	go m.run(ctx, h, job)
	return h, nil
}

func (m *Manager) run(ctx context.Context, h *Handle, job Job) {
	defer h.cancel()

	err := m.work(ctx, job)
	res := Result{ID: h.id, Kind: job.Kind}
	switch {
	case errors.Is(err, context.Canceled):
		res.Cancelled = true
	case err != nil:
		res.Err = err
	}
	h.result = res

	jobsFinishedTotal.WithLabelValues(job.Kind.String(), res.outcome()).Inc()
	event := m.logger.Debug()
	if res.Err != nil {
		event = m.logger.Warn().Err(res.Err)
	}
	event.Str("job", h.id.String()).Stringer("kind", job.Kind).Str("outcome", res.outcome()).Msg("job finished")

	// The completion callback observes the job as still active.
	if job.OnComplete != nil {
		job.OnComplete(res)
	}

	m.mu.Lock()
	m.active = nil
	m.mu.Unlock()
	jobActive.Set(0)
	close(h.done)
}

func (m *Manager) work(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	progress := func(current, total int) {
		if total > 0 {
			jobProgressRatio.Set(float64(current) / float64(total))
		}
		if job.OnProgress != nil {
			job.OnProgress(job.Label, current, total)
		}
	}
	return job.Work(ctx, progress)
}

// Active reports whether a job is in flight.
func (m *Manager) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active != nil
}

// Current returns the in-flight job, or nil.
func (m *Manager) Current() *Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Cancel requests cancellation of the in-flight job and reports whether
// there was one.
func (m *Manager) Cancel() bool {
	h := m.Current()
	if h == nil {
		return false
	}
	h.Cancel()
	return true
}

// Close cancels the in-flight job and waits up to timeout for it to stop.
func (m *Manager) Close(timeout time.Duration) bool {
	h := m.Current()
	if h == nil {
		return true
	}
	h.Cancel()
	_, ok := h.Wait(timeout)
	return ok
}
