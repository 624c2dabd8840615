package transform

import (
	"math/cmplx"

	"github.com/tphakala/go-resynth/internal/mathutil"
	"github.com/tphakala/go-resynth/internal/module"
	"github.com/tphakala/go-resynth/internal/param"
)

// BrainMatch replaces each frame with the closest frame held by the bound
// sample store, blended by mix. Matches further away than match-threshold are
// ignored. In magnitude mode, spread smooths the matched magnitudes across
// neighbouring bins while keeping the matched phases.
type BrainMatch struct {
	module.Base

	threshold *param.Slot
	mix       *param.Slot
	mode      *param.Slot
	spread    *param.Slot

	store module.SampleStore
	mags  []float64
}

// NewBrainMatch returns a sample-store backed transform.
func NewBrainMatch() module.Transform {
	mode := param.Enum(ParamMatchMode, "Match Mode", 0, MatchMagnitude, MatchEnergy)
	mode.Rebuild = true
	spread := param.Number(ParamSpread, "Spread", 0, 1, defaultSpread)
	spread.ShowIf = func(s *param.Set) bool { return s.EnumString(ParamMatchMode) == MatchMagnitude }

	b := &BrainMatch{Base: module.NewBase(IDBrainMatch, module.RoleTransform,
		param.Number(ParamMatchThreshold, "Match Threshold", 0, 1, defaultMatchThreshold),
		param.Number(ParamMix, "Mix", 0, 1, defaultMix),
		mode,
		spread,
	)}
	p := b.Params()
	b.threshold = p.Slot(ParamMatchThreshold)
	b.mix = p.Slot(ParamMix)
	b.mode = p.Slot(ParamMatchMode)
	b.spread = p.Slot(ParamSpread)
	return b
}

func (b *BrainMatch) Reset(f module.Format) {
	b.mags = make([]float64, f.Bins())
}

// TryBindSampleStore keeps store for lookups. It must be called before the
// module is staged.
func (b *BrainMatch) TryBindSampleStore(store module.SampleStore) bool {
	b.store = store
	return store != nil
}

func (b *BrainMatch) Active() bool {
	return b.store != nil && !b.store.Empty()
}

func (b *BrainMatch) Transform(frames [][]complex128) {
	if b.store == nil || len(frames) == 0 {
		return
	}
	byEnergy := b.mode.Index() == 1
	match, distance, ok := b.store.Nearest(frames, byEnergy)
	if !ok || len(match) == 0 || distance > b.threshold.Float() {
		return
	}

	mix := b.mix.Float()
	spread := 0.0
	if !byEnergy {
		spread = b.spread.Float()
	}
	for ch, x := range frames {
		m := match[ch%len(match)]
		n := min(len(x), len(m), len(b.mags))
		if spread > 0 {
			b.smear(m[:n], spread)
		}
		for i := range n {
			src := m[i]
			if spread > 0 {
				src = cmplx.Rect(b.mags[i], cmplx.Phase(m[i]))
			}
			x[i] = complex(
				mathutil.Lerp(real(x[i]), real(src), mix),
				mathutil.Lerp(imag(x[i]), imag(src), mix),
			)
		}
	}
}

// smear fills b.mags with the magnitudes of m blended towards their local
// average by amount.
func (b *BrainMatch) smear(m []complex128, amount float64) {
	n := len(m)
	for i := range n {
		sum, count := 0.0, 0
		for j := i - spreadTaps/2; j <= i+spreadTaps/2; j++ {
			if j >= 0 && j < n {
				sum += cmplx.Abs(m[j])
				count++
			}
		}
		b.mags[i] = mathutil.Lerp(cmplx.Abs(m[i]), sum/float64(count), amount)
	}
}
