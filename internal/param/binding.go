package param

import (
	"fmt"
	"math"

	"github.com/tphakala/go-resynth/internal/mathutil"
)

// Binding maps one external parameter index to a module parameter id.
type Binding struct {
	Index int
	Descriptor
}

// Convert turns a raw external value into a typed value:
// numbers pass through, booleans test raw >= 0.5, enums round the raw
// ordinal into the value list, and text is not routable.
func (b Binding) Convert(raw float64) (Value, error) {
	switch b.Kind {
	case KindNumber:
		return NumberValue(raw), nil
	case KindBoolean:
		return BoolValue(raw >= boolThreshold), nil
	case KindEnum:
		if len(b.Values) == 0 {
			return Value{}, fmt.Errorf("%w: enum %q has no values", ErrUnsupportedKind, b.ID)
		}
		ord := 0
		if !math.IsNaN(raw) {
			ord = mathutil.Clamp(int(math.Round(raw)), 0, len(b.Values)-1)
		}
		return EnumValue(b.Values[ord]), nil
	default:
		return Value{}, fmt.Errorf("%w: %q is %s", ErrUnsupportedKind, b.ID, b.Kind)
	}
}

// Raw converts a typed value back to its raw external representation.
func (b Binding) Raw(v Value) float64 {
	switch v.Kind {
	case KindNumber:
		return v.Number
	case KindBoolean:
		if v.Bool {
			return 1
		}
		return 0
	case KindEnum:
		return float64(max(b.EnumIndex(v.Str), 0))
	default:
		return 0
	}
}

// Table is the union of every registered module's parameters, indexed by
// external parameter index. It is read-only after Build.
type Table struct {
	base     int
	bindings []Binding
	byID     map[string]int
}

// Build unions the full descriptor lists of sources in order. The first
// source to declare an id owns it; later declarations of the same id are
// dropped. Indices are assigned from base upwards in iteration order.
func Build(base int, sources ...*Set) *Table {
	t := &Table{base: base, byID: make(map[string]int)}
	for _, src := range sources {
		if src == nil {
			continue
		}
		for _, d := range src.Descriptors(true) {
			if _, taken := t.byID[d.ID]; taken {
				continue
			}
			b := Binding{Index: base + len(t.bindings), Descriptor: d}
			t.byID[d.ID] = len(t.bindings)
			t.bindings = append(t.bindings, b)
		}
	}
	return t
}

// Base returns the first dynamic index.
func (t *Table) Base() int { return t.base }

// Len returns the number of bindings.
func (t *Table) Len() int { return len(t.bindings) }

// Lookup returns the binding at external index.
func (t *Table) Lookup(index int) (Binding, bool) {
	i := index - t.base
	if i < 0 || i >= len(t.bindings) {
		return Binding{}, false
	}
	return t.bindings[i], true
}

// IndexOf returns the external index bound to id.
func (t *Table) IndexOf(id string) (int, bool) {
	i, ok := t.byID[id]
	if !ok {
		return 0, false
	}
	return t.base + i, true
}

// Bindings returns a copy of every binding in index order.
func (t *Table) Bindings() []Binding {
	out := make([]Binding, len(t.bindings))
	copy(out, t.bindings)
	return out
}
