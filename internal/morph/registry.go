// Package morph implements the secondary spectral blending stage.
//
// Every morph reads operand a and writes the blended result into operand b.
package morph

import "github.com/tphakala/go-resynth/internal/module"

// Registry ids, in registry order.
const (
	IDNull           = "null"
	IDCrossSynthesis = "cross-synthesis"
	IDVocoder        = "spectral-vocoder"
	IDWaveMorph      = "wave-morph"
)

// NewRegistry returns the morph registry. Ordinal 0 is the null morph.
func NewRegistry() *module.Registry[module.Morph] {
	return module.NewRegistry(
		module.Entry[module.Morph]{ID: IDNull, Label: "Off", New: NewNull, IncludeInUI: true},
		module.Entry[module.Morph]{ID: IDCrossSynthesis, Label: "Cross Synthesis", New: NewCrossSynthesis, IncludeInUI: true},
		module.Entry[module.Morph]{ID: IDVocoder, Label: "Spectral Vocoder", New: NewVocoder, IncludeInUI: false},
		module.Entry[module.Morph]{ID: IDWaveMorph, Label: "Wave Morph", New: NewWaveMorph, IncludeInUI: true},
	)
}
