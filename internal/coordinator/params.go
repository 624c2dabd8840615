package coordinator

import (
	"math"
	"sync/atomic"
)

// Params is the external parameter store: one raw float64 per index. Every
// Set is echoed to the observer, the way a host reports automation and
// state writes back to the plugin.
type Params struct {
	values   []atomic.Uint64
	observer func(index int, raw float64)
}

func newParams(n int, observer func(int, float64)) *Params {
	return &Params{values: make([]atomic.Uint64, n), observer: observer}
}

// Len returns the number of indices.
func (p *Params) Len() int { return len(p.values) }

// Get returns the raw value at index, or 0 when out of range.
func (p *Params) Get(index int) float64 {
	if index < 0 || index >= len(p.values) {
		return 0
	}
	return math.Float64frombits(p.values[index].Load())
}

// Set stores raw and notifies the observer. Out-of-range indices are
// ignored. Callers must not hold locks the observer takes.
func (p *Params) Set(index int, raw float64) {
	if !p.store(index, raw) {
		return
	}
	if p.observer != nil {
		p.observer(index, raw)
	}
}

// Values returns a copy of every raw value in index order.
func (p *Params) Values() []float64 {
	out := make([]float64, len(p.values))
	for i := range p.values {
		out[i] = math.Float64frombits(p.values[i].Load())
	}
	return out
}

func (p *Params) store(index int, raw float64) bool {
	if index < 0 || index >= len(p.values) {
		return false
	}
	p.values[index].Store(math.Float64bits(raw))
	return true
}
