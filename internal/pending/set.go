// Package pending implements the lock-free flag set used to hand "something
// needs refreshing" notices from any goroutine to the idle tick.
package pending

import (
	"strings"
	"sync/atomic"
)

// Flag is a member of the pending-update set. Flags may be OR'ed together.
type Flag uint32

const (
	BrainSummaryDirty Flag = 1 << iota
	ConfigDirty
	HostDirty
	RebuildTransformUI
	RebuildMorphUI
	SuppressReanalysis

	// All is the union of every defined flag.
	All = BrainSummaryDirty | ConfigDirty | HostDirty | RebuildTransformUI | RebuildMorphUI | SuppressReanalysis
)

var flagNames = []struct {
	flag Flag
	name string
}{
	{BrainSummaryDirty, "brain-summary"},
	{ConfigDirty, "config"},
	{HostDirty, "host"},
	{RebuildTransformUI, "rebuild-transform-ui"},
	{RebuildMorphUI, "rebuild-morph-ui"},
	{SuppressReanalysis, "suppress-reanalysis"},
}

// Has reports whether every bit of f is set in the receiver.
func (f Flag) Has(other Flag) bool {
	return other != 0 && f&other == other
}

// String lists the set members joined by '|'.
func (f Flag) String() string {
	if f == 0 {
		return "none"
	}
	var parts []string
	for _, fn := range flagNames {
		if f&fn.flag != 0 {
			parts = append(parts, fn.name)
		}
	}
	return strings.Join(parts, "|")
}

// Set is an atomic bit-set. The zero value is empty and ready to use.
//
// Any goroutine may Raise. Consumers use TestAndClear or Drain, which clear
// only the bits they observed, so a Raise racing with a clear is never lost.
type Set struct {
	bits atomic.Uint32
}

// Raise sets the given flags.
func (s *Set) Raise(flags ...Flag) {
	var mask Flag
	for _, f := range flags {
		mask |= f
	}
	if mask != 0 {
		s.bits.Or(uint32(mask))
	}
}

// TestAndClear clears f and reports whether any of its bits were set.
func (s *Set) TestAndClear(f Flag) bool {
	old := s.bits.And(^uint32(f))
	return Flag(old)&f != 0
}

// Drain clears and returns every flag that was set at the time of the call.
func (s *Set) Drain() Flag {
	observed := s.bits.Load()
	if observed == 0 {
		return 0
	}
	s.bits.And(^observed)
	return Flag(observed)
}

// Has peeks at f without clearing it.
func (s *Set) Has(f Flag) bool {
	return Flag(s.bits.Load()).Has(f)
}

// Snapshot returns the current flags without clearing them.
func (s *Set) Snapshot() Flag {
	return Flag(s.bits.Load())
}
