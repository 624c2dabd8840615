package param

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/tphakala/go-resynth/internal/mathutil"
)

// Slot holds the live value of one parameter. Reads and writes are atomic,
// so the realtime path can read a slot while the coordinator writes it.
type Slot struct {
	desc Descriptor
	bits atomic.Uint64
	text atomic.Pointer[string]
}

// Float returns the numeric value (0/1 for booleans, ordinal for enums).
func (s *Slot) Float() float64 {
	return math.Float64frombits(s.bits.Load())
}

// Bool returns the value as a boolean.
func (s *Slot) Bool() bool {
	return s.Float() >= boolThreshold
}

// Index returns the enum ordinal.
func (s *Slot) Index() int {
	return int(s.Float())
}

func (s *Slot) store(v float64) {
	s.bits.Store(math.Float64bits(v))
}

// Set is the parameter surface of one module: its descriptors plus their
// live values, addressable by id.
type Set struct {
	slots []*Slot
	byID  map[string]*Slot
}

// NewSet builds a set from descriptors, initialised to their defaults.
// Later duplicates of an id are ignored.
func NewSet(descs ...Descriptor) *Set {
	s := &Set{byID: make(map[string]*Slot, len(descs))}
	for _, d := range descs {
		if _, dup := s.byID[d.ID]; dup {
			continue
		}
		sl := &Slot{desc: d}
		sl.store(d.Default)
		text := d.DefaultText
		sl.text.Store(&text)
		s.slots = append(s.slots, sl)
		s.byID[d.ID] = sl
	}
	return s
}

// Slot returns the slot for id, or nil.
func (s *Set) Slot(id string) *Slot {
	return s.byID[id]
}

// Owns reports whether id is declared by this set.
func (s *Set) Owns(id string) bool {
	_, ok := s.byID[id]
	return ok
}

// Descriptor returns the descriptor for id.
func (s *Set) Descriptor(id string) (Descriptor, bool) {
	sl, ok := s.byID[id]
	if !ok {
		return Descriptor{}, false
	}
	return sl.desc, true
}

// Descriptors returns the declared descriptors in declaration order. With
// full=false, hidden parameters and parameters whose ShowIf is false are
// omitted.
func (s *Set) Descriptors(full bool) []Descriptor {
	out := make([]Descriptor, 0, len(s.slots))
	for _, sl := range s.slots {
		if !full {
			if sl.desc.Hidden {
				continue
			}
			if sl.desc.ShowIf != nil && !sl.desc.ShowIf(s) {
				continue
			}
		}
		out = append(out, sl.desc)
	}
	return out
}

// RequiresRebuild reports whether changing id changes the visible form.
func (s *Set) RequiresRebuild(id string) bool {
	sl, ok := s.byID[id]
	return ok && sl.desc.Rebuild
}

// Number returns a numeric parameter, or 0 for an unknown id.
func (s *Set) Number(id string) float64 {
	if sl, ok := s.byID[id]; ok {
		return sl.Float()
	}
	return 0
}

// SetNumber stores v clamped to the declared range.
func (s *Set) SetNumber(id string, v float64) bool {
	sl, ok := s.byID[id]
	if !ok || sl.desc.Kind != KindNumber {
		return false
	}
	sl.store(mathutil.ClampFinite(v, sl.desc.Min, sl.desc.Max))
	return true
}

// Bool returns a boolean parameter.
func (s *Set) Bool(id string) bool {
	if sl, ok := s.byID[id]; ok {
		return sl.Bool()
	}
	return false
}

// SetBool stores a boolean parameter.
func (s *Set) SetBool(id string, v bool) bool {
	sl, ok := s.byID[id]
	if !ok || sl.desc.Kind != KindBoolean {
		return false
	}
	if v {
		sl.store(1)
	} else {
		sl.store(0)
	}
	return true
}

// EnumIndex returns the ordinal of an enum parameter, or -1.
func (s *Set) EnumIndex(id string) int {
	sl, ok := s.byID[id]
	if !ok || sl.desc.Kind != KindEnum {
		return -1
	}
	return sl.Index()
}

// EnumString returns the current member of an enum parameter.
func (s *Set) EnumString(id string) string {
	sl, ok := s.byID[id]
	if !ok || sl.desc.Kind != KindEnum || len(sl.desc.Values) == 0 {
		return ""
	}
	return sl.desc.Values[mathutil.Clamp(sl.Index(), 0, len(sl.desc.Values)-1)]
}

// SetEnumString selects the member named v. Unknown members are ignored.
func (s *Set) SetEnumString(id, v string) bool {
	sl, ok := s.byID[id]
	if !ok || sl.desc.Kind != KindEnum {
		return false
	}
	idx := sl.desc.EnumIndex(v)
	if idx < 0 {
		return false
	}
	sl.store(float64(idx))
	return true
}

// SetEnumIndex selects the member at ordinal i, clamped into range.
func (s *Set) SetEnumIndex(id string, i int) bool {
	sl, ok := s.byID[id]
	if !ok || sl.desc.Kind != KindEnum || len(sl.desc.Values) == 0 {
		return false
	}
	sl.store(float64(mathutil.Clamp(i, 0, len(sl.desc.Values)-1)))
	return true
}

// Text returns a text parameter.
func (s *Set) Text(id string) string {
	if sl, ok := s.byID[id]; ok {
		return *sl.text.Load()
	}
	return ""
}

// SetText stores a text parameter.
func (s *Set) SetText(id, v string) bool {
	sl, ok := s.byID[id]
	if !ok || sl.desc.Kind != KindText {
		return false
	}
	sl.text.Store(&v)
	return true
}

// Apply stores a typed value, dispatching on the declared kind.
func (s *Set) Apply(id string, v Value) error {
	sl, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownID, id)
	}
	if sl.desc.Kind != v.Kind {
		return fmt.Errorf("%w: %q is %s, got %s", ErrKindMismatch, id, sl.desc.Kind, v.Kind)
	}
	switch v.Kind {
	case KindNumber:
		s.SetNumber(id, v.Number)
	case KindBoolean:
		s.SetBool(id, v.Bool)
	case KindEnum:
		if !s.SetEnumString(id, v.Str) {
			return fmt.Errorf("%w: %q has no member %q", ErrUnknownID, id, v.Str)
		}
	case KindText:
		s.SetText(id, v.Str)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedKind, v.Kind)
	}
	return nil
}

// Get returns the typed value of id.
func (s *Set) Get(id string) (Value, bool) {
	sl, ok := s.byID[id]
	if !ok {
		return Value{}, false
	}
	switch sl.desc.Kind {
	case KindNumber:
		return NumberValue(sl.Float()), true
	case KindBoolean:
		return BoolValue(sl.Bool()), true
	case KindEnum:
		return EnumValue(s.EnumString(id)), true
	default:
		return TextValue(s.Text(id)), true
	}
}

const boolThreshold = 0.5
