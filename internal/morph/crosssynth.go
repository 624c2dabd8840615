package morph

import (
	"math"
	"math/cmplx"

	"github.com/tphakala/simd/c128"

	"github.com/tphakala/go-resynth/internal/mathutil"
	"github.com/tphakala/go-resynth/internal/module"
	"github.com/tphakala/go-resynth/internal/param"
)

// CrossSynthesis moves b towards a by two independent amounts: one for
// magnitude, one for phase. In cepstral mode the magnitude blend acts on the
// smoothed spectral envelope only, keeping b's fine structure.
type CrossSynthesis struct {
	module.Base

	mode     *param.Slot
	magAmt   *param.Slot
	phaseAmt *param.Slot
	emphasis *param.Slot

	bins int
	rot  []complex128
	envA []float64
	envB []float64
	env  *envelope
}

// NewCrossSynthesis returns a cross-synthesis morph.
func NewCrossSynthesis() module.Morph {
	return newCrossSynthesis(IDCrossSynthesis)
}

func crossSynthesisParams() []param.Descriptor {
	mode := param.Enum(ParamMorphMode, "Morph Mode", 0, ModePolar, ModeCepstral)
	mode.Rebuild = true
	emphasis := param.Number(ParamEmphasis, "Envelope Emphasis", 0, 1, defaultEmphasis)
	emphasis.ShowIf = func(s *param.Set) bool { return s.EnumString(ParamMorphMode) == ModeCepstral }
	return []param.Descriptor{
		mode,
		param.Number(ParamMagnitudeMorph, "Magnitude Morph", 0, 1, defaultMagnitudeMorph),
		param.Number(ParamPhaseMorph, "Phase Morph", 0, 1, defaultPhaseMorph),
		emphasis,
	}
}

func newCrossSynthesis(id string, extra ...param.Descriptor) *CrossSynthesis {
	descs := append(crossSynthesisParams(), extra...)
	m := &CrossSynthesis{Base: module.NewBase(id, module.RoleMorph, descs...)}
	m.bindSlots()
	return m
}

func (m *CrossSynthesis) bindSlots() {
	p := m.Params()
	m.mode = p.Slot(ParamMorphMode)
	m.magAmt = p.Slot(ParamMagnitudeMorph)
	m.phaseAmt = p.Slot(ParamPhaseMorph)
	m.emphasis = p.Slot(ParamEmphasis)
}

// Reset allocates per-bin work buffers for the frame size.
func (m *CrossSynthesis) Reset(f module.Format) {
	m.bins = f.Bins()
	m.rot = make([]complex128, m.bins)
	m.envA = make([]float64, m.bins)
	m.envB = make([]float64, m.bins)
	m.env = nil
	if f.FrameSize >= minFrameSize && f.FrameSize%2 == 0 {
		m.env = newEnvelope(f.FrameSize)
	}
}

// Morph blends every channel of a into the matching channel of b.
func (m *CrossSynthesis) Morph(a, b [][]complex128) {
	for ch := range min(len(a), len(b)) {
		m.blend(a[ch], b[ch])
	}
}

func (m *CrossSynthesis) cepstral() bool {
	return m.mode.Index() == 1 && m.env != nil
}

// blend moves b towards a in place. With both amounts at zero b is left
// exactly as it was.
func (m *CrossSynthesis) blend(a, b []complex128) {
	n := len(b)
	if n != len(a) || n > len(m.rot) {
		return
	}
	magAmt := m.magAmt.Float()
	phaseAmt := m.phaseAmt.Float()
	rot := m.rot[:n]

	if m.cepstral() && n == m.bins {
		keep := m.env.lifterLength(m.emphasis.Float())
		m.env.compute(m.envA, a, keep)
		m.env.compute(m.envB, b, keep)
		for i := range n {
			gain := math.Exp(magAmt * (m.envA[i] - m.envB[i]))
			rot[i] = cmplx.Rect(gain, phaseAmt*phaseDelta(a[i], b[i]))
		}
	} else {
		for i := range n {
			magB := cmplx.Abs(b[i])
			target := mathutil.Lerp(magB, cmplx.Abs(a[i]), magAmt)
			turn := phaseAmt * phaseDelta(a[i], b[i])
			if magB == 0 {
				b[i] = cmplx.Rect(target, cmplx.Phase(a[i])*phaseAmt)
				rot[i] = 1
				continue
			}
			rot[i] = cmplx.Rect(target/magB, turn)
		}
	}

	c128.Mul(b, b, rot)
}

// phaseDelta returns the wrapped phase difference arg(a) - arg(b).
func phaseDelta(a, b complex128) float64 {
	return mathutil.WrapPhase(cmplx.Phase(a) - cmplx.Phase(b))
}
