package transform

import (
	"github.com/tphakala/go-resynth/internal/mathutil"
	"github.com/tphakala/go-resynth/internal/module"
	"github.com/tphakala/go-resynth/internal/param"
)

// SpectralGate zeroes bins quieter than a threshold relative to the loudest
// bin of the frame. Inverted, it zeroes the louder bins instead.
type SpectralGate struct {
	module.Base

	threshold *param.Slot
	invert    *param.Slot

	mags []float64
}

// NewSpectralGate returns a spectral gate.
func NewSpectralGate() module.Transform {
	g := &SpectralGate{Base: module.NewBase(IDSpectralGate, module.RoleTransform,
		param.Number(ParamThreshold, "Threshold (dB)", minGateDB, maxGateDB, defaultGateDB),
		param.Boolean(ParamInvert, "Invert", false),
	)}
	g.threshold = g.Params().Slot(ParamThreshold)
	g.invert = g.Params().Slot(ParamInvert)
	return g
}

func (g *SpectralGate) Reset(f module.Format) {
	g.mags = make([]float64, f.Bins())
}

func (g *SpectralGate) Transform(frames [][]complex128) {
	gain := mathutil.DBToGain(g.threshold.Float())
	invert := g.invert.Bool()
	for _, x := range frames {
		if len(x) > len(g.mags) {
			continue
		}
		mags := mathutil.Magnitudes(g.mags[:len(x)], x)
		peak := 0.0
		for _, m := range mags {
			peak = max(peak, m)
		}
		floor := peak * gain
		for i, m := range mags {
			if (m < floor) != invert {
				x[i] = 0
			}
		}
	}
}
