package transform

import (
	"math"

	"github.com/tphakala/go-resynth/internal/module"
	"github.com/tphakala/go-resynth/internal/param"
)

// BinShift moves every bin up or down by a whole number of bins. Bins
// shifted past either edge are dropped and vacated bins are silent.
type BinShift struct {
	module.Base

	shift *param.Slot
	tmp   []complex128
}

// NewBinShift returns a bin shifter.
func NewBinShift() module.Transform {
	s := &BinShift{Base: module.NewBase(IDBinShift, module.RoleTransform,
		param.Number(ParamShift, "Shift (bins)", -maxShift, maxShift, 0),
	)}
	s.shift = s.Params().Slot(ParamShift)
	return s
}

func (s *BinShift) Reset(f module.Format) {
	s.tmp = make([]complex128, f.Bins())
}

func (s *BinShift) Active() bool {
	return int(math.Round(s.shift.Float())) != 0
}

func (s *BinShift) Transform(frames [][]complex128) {
	k := int(math.Round(s.shift.Float()))
	if k == 0 {
		return
	}
	for _, x := range frames {
		n := len(x)
		if n > len(s.tmp) {
			continue
		}
		tmp := s.tmp[:n]
		for i := range tmp {
			tmp[i] = 0
		}
		for i := range n {
			if j := i + k; j >= 0 && j < n {
				tmp[j] = x[i]
			}
		}
		copy(x, tmp)
	}
}
