package module

import "sync/atomic"

type holder[T any] struct {
	v T
}

// Slot hands modules from a single writer to a single realtime reader.
//
// The writer builds and resets a module off the realtime path and Stages
// it. The reader calls Acquire at the start of each processing cycle, which
// promotes a staged module to current with one pointer store. The reader
// therefore sees either the old or the new module in full.
type Slot[T any] struct {
	pending atomic.Pointer[holder[T]]
	current atomic.Pointer[holder[T]]
}

// Stage replaces the pending module. A previously staged module that was
// never acquired is dropped.
func (s *Slot[T]) Stage(v T) {
	s.pending.Store(&holder[T]{v: v})
}

// Acquire promotes any pending module and returns the current one.
// It never blocks or allocates. Current is published before pending is
// cleared, so the module is never absent from both. A module staged during
// promotion stays pending for the next cycle.
func (s *Slot[T]) Acquire() (T, bool) {
	if p := s.pending.Load(); p != nil {
		s.current.Store(p)
		s.pending.CompareAndSwap(p, nil)
	}
	return s.Current()
}

// Current returns the module last acquired.
func (s *Slot[T]) Current() (T, bool) {
	h := s.current.Load()
	if h == nil {
		var zero T
		return zero, false
	}
	return h.v, true
}

// Pending returns the staged module, if any.
func (s *Slot[T]) Pending() (T, bool) {
	h := s.pending.Load()
	if h == nil {
		var zero T
		return zero, false
	}
	return h.v, true
}

// Latest returns the pending module if one is staged, else the current one.
func (s *Slot[T]) Latest() (T, bool) {
	if v, ok := s.Pending(); ok {
		return v, true
	}
	return s.Current()
}

// Each calls fn for the pending module and, if different, the current one.
// Pending is loaded first: a module promoted after that load is already
// current when current is read.
func (s *Slot[T]) Each(fn func(T)) {
	p := s.pending.Load()
	if p != nil {
		fn(p.v)
	}
	if cur := s.current.Load(); cur != nil && cur != p {
		fn(cur.v)
	}
}
