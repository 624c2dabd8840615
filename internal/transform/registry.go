// Package transform implements the primary spectral transform stage.
//
// Transforms process one frame per channel in place. Ordinal 0 of the
// registry is the passthrough, which unknown algorithm ordinals fall back to.
package transform

import "github.com/tphakala/go-resynth/internal/module"

// Registry ids, in registry order.
const (
	IDPassthrough  = "passthrough"
	IDSpectralGate = "spectral-gate"
	IDBrainMatch   = "brain-match"
	IDBinShift     = "bin-shift"
)

// NewRegistry returns the transform registry.
func NewRegistry() *module.Registry[module.Transform] {
	return module.NewRegistry(
		module.Entry[module.Transform]{ID: IDPassthrough, Label: "Passthrough", New: NewPassthrough, IncludeInUI: true},
		module.Entry[module.Transform]{ID: IDSpectralGate, Label: "Spectral Gate", New: NewSpectralGate, IncludeInUI: true},
		module.Entry[module.Transform]{ID: IDBrainMatch, Label: "Brain Match", New: NewBrainMatch, IncludeInUI: true},
		module.Entry[module.Transform]{ID: IDBinShift, Label: "Bin Shift", New: NewBinShift, IncludeInUI: true},
	)
}
