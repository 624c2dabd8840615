package morph

import (
	"github.com/tphakala/go-resynth/internal/module"
	"github.com/tphakala/go-resynth/internal/param"
)

// Vocoder exposes a sensitivity control but leaves the spectrum unchanged.
// It stays inert until a vocoder algorithm is specified.
type Vocoder struct {
	module.Base
}

// NewVocoder returns the spectral vocoder placeholder.
func NewVocoder() module.Morph {
	return &Vocoder{Base: module.NewBase(IDVocoder, module.RoleMorph,
		param.Number(ParamSensitivity, "Sensitivity", 0, 1, defaultSensitivity),
	)}
}

// Active reports false until a vocoder algorithm exists.
func (v *Vocoder) Active() bool { return false }

func (v *Vocoder) Morph(_, _ [][]complex128) {}
