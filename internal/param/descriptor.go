// Package param describes module parameters and binds them to the external
// parameter index space.
package param

import (
	"errors"
	"fmt"
)

// Kind is the declared value type of a parameter.
type Kind int

const (
	KindNumber Kind = iota
	KindBoolean
	KindEnum
	KindText
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindBoolean:
		return "boolean"
	case KindEnum:
		return "enum"
	case KindText:
		return "text"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Common errors returned by parameter accessors.
var (
	// ErrUnknownID indicates the parameter id is not declared.
	ErrUnknownID = errors.New("unknown parameter id")

	// ErrUnsupportedKind indicates the value kind cannot be routed.
	ErrUnsupportedKind = errors.New("unsupported parameter kind")

	// ErrKindMismatch indicates a value of the wrong kind was supplied.
	ErrKindMismatch = errors.New("parameter kind mismatch")
)

// Descriptor declares one module parameter.
type Descriptor struct {
	ID    string
	Label string
	Kind  Kind

	// Min, Max and Default apply to numbers. For booleans Default is 0 or 1,
	// for enums it is the default ordinal.
	Min, Max, Default float64

	// Values lists enum members in ordinal order.
	Values []string

	// DefaultText is the initial value of a text parameter.
	DefaultText string

	// Hidden parameters are left out of abbreviated views.
	Hidden bool

	// ShowIf, when set, hides the parameter from abbreviated views unless it
	// returns true for the owning set.
	ShowIf func(*Set) bool

	// Rebuild marks parameters whose value changes which other parameters
	// are shown, so the presentation layer must rebuild its form.
	Rebuild bool
}

// Number declares a numeric parameter.
func Number(id, label string, lo, hi, def float64) Descriptor {
	return Descriptor{ID: id, Label: label, Kind: KindNumber, Min: lo, Max: hi, Default: def}
}

// Boolean declares an on/off parameter.
func Boolean(id, label string, def bool) Descriptor {
	d := Descriptor{ID: id, Label: label, Kind: KindBoolean, Min: 0, Max: 1}
	if def {
		d.Default = 1
	}
	return d
}

// Enum declares an enumerated parameter with default ordinal def.
func Enum(id, label string, def int, values ...string) Descriptor {
	return Descriptor{
		ID: id, Label: label, Kind: KindEnum,
		Min: 0, Max: float64(len(values) - 1), Default: float64(def),
		Values: values,
	}
}

// Text declares a free text parameter.
func Text(id, label, def string) Descriptor {
	return Descriptor{ID: id, Label: label, Kind: KindText, DefaultText: def}
}

// EnumIndex returns the ordinal of s, or -1 if s is not a member.
func (d Descriptor) EnumIndex(s string) int {
	for i, v := range d.Values {
		if v == s {
			return i
		}
	}
	return -1
}

// Value is a typed parameter value.
type Value struct {
	Kind   Kind
	Number float64
	Bool   bool
	Str    string
}

// NumberValue wraps a number.
func NumberValue(v float64) Value { return Value{Kind: KindNumber, Number: v} }

// BoolValue wraps a boolean.
func BoolValue(v bool) Value { return Value{Kind: KindBoolean, Bool: v} }

// EnumValue wraps an enum member.
func EnumValue(v string) Value { return Value{Kind: KindEnum, Str: v} }

// TextValue wraps a text value.
func TextValue(v string) Value { return Value{Kind: KindText, Str: v} }
