// Package module defines the spectral processing module contract, the
// ordered module registries, and the pending/current slot used to hand a
// freshly built module to the realtime path.
package module

import (
	"fmt"

	"github.com/tphakala/go-resynth/internal/param"
)

// Role distinguishes the primary transform from the secondary morph stage.
type Role int

const (
	RoleTransform Role = iota
	RoleMorph
)

// String returns the role name.
func (r Role) String() string {
	switch r {
	case RoleTransform:
		return "transform"
	case RoleMorph:
		return "morph"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// Format describes the frames a module will process.
type Format struct {
	SampleRate float64
	FrameSize  int
	Channels   int
}

// Bins returns the number of complex bins per channel frame.
func (f Format) Bins() int {
	return f.FrameSize/binsDivisor + 1
}

// SampleStore is the capability exposed by the brain to modules that
// resynthesize from stored material. Implementations must be safe to call
// from the realtime path: no locks, no allocation.
type SampleStore interface {
	// Nearest returns the stored frame closest to spectra. With byEnergy the
	// match uses frame energy only, otherwise per-bin magnitudes.
	Nearest(spectra [][]complex128, byEnergy bool) (match [][]complex128, distance float64, ok bool)

	// Empty reports whether the store holds any analyzed material.
	Empty() bool
}

// Module is a spectral processing unit with a self-describing parameter
// surface.
type Module interface {
	// ID returns the registry id of the variant.
	ID() string

	// Role returns whether the module is a transform or a morph.
	Role() Role

	// Params returns the live parameter set.
	Params() *param.Set

	// Reset prepares internal buffers for the given format. Called off the
	// realtime path before the module is staged.
	Reset(Format)

	// Active reports whether invoking the module has any effect. Callers may
	// skip inactive modules entirely.
	Active() bool

	// TryBindSampleStore offers the brain to the module and reports whether
	// the module uses it.
	TryBindSampleStore(SampleStore) bool
}

// Transform processes one frame per channel in place.
type Transform interface {
	Module
	Transform(frames [][]complex128)
}

// Morph blends a into b, writing the result into b.
type Morph interface {
	Module
	Morph(a, b [][]complex128)
}

// Base carries the identity and parameters common to every module.
// Variants embed it and override what they need.
type Base struct {
	id     string
	role   Role
	params *param.Set
}

// NewBase returns a Base for a variant.
func NewBase(id string, role Role, descs ...param.Descriptor) Base {
	return Base{id: id, role: role, params: param.NewSet(descs...)}
}

func (b *Base) ID() string                          { return b.id }
func (b *Base) Role() Role                          { return b.role }
func (b *Base) Params() *param.Set                  { return b.params }
func (b *Base) Reset(Format)                        {}
func (b *Base) Active() bool                        { return true }
func (b *Base) TryBindSampleStore(SampleStore) bool { return false }

const binsDivisor = 2
