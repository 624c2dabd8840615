package module

import "github.com/tphakala/go-resynth/internal/param"

// Entry is one constructible module variant.
type Entry[T Module] struct {
	ID          string
	Label       string
	New         func() T
	IncludeInUI bool
}

// Registry is an ordered catalog of module variants. Ordinals index the
// declaration order.
type Registry[T Module] struct {
	entries    []Entry[T]
	prototypes []T
}

// NewRegistry builds a registry preserving declaration order. It panics on
// an empty registry, which would leave ordinal 0 undefined.
func NewRegistry[T Module](entries ...Entry[T]) *Registry[T] {
	if len(entries) == 0 {
		panic("module: empty registry")
	}
	r := &Registry[T]{entries: entries}
	r.prototypes = make([]T, len(entries))
	for i, e := range entries {
		r.prototypes[i] = e.New()
	}
	return r
}

// Len returns the number of entries.
func (r *Registry[T]) Len() int { return len(r.entries) }

// Normalize maps an out-of-range ordinal to 0.
func (r *Registry[T]) Normalize(ordinal int) int {
	if ordinal < 0 || ordinal >= len(r.entries) {
		return 0
	}
	return ordinal
}

// At returns the entry at ordinal, wrapping unknown ordinals to 0.
func (r *Registry[T]) At(ordinal int) Entry[T] {
	return r.entries[r.Normalize(ordinal)]
}

// New constructs the variant at ordinal, wrapping unknown ordinals to 0.
func (r *Registry[T]) New(ordinal int) T {
	return r.At(ordinal).New()
}

// IndexOf returns the ordinal of id, or -1.
func (r *Registry[T]) IndexOf(id string) int {
	for i, e := range r.entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// Entries returns every entry in declaration order.
func (r *Registry[T]) Entries() []Entry[T] {
	out := make([]Entry[T], len(r.entries))
	copy(out, r.entries)
	return out
}

// Labels returns display labels, optionally restricted to UI entries.
func (r *Registry[T]) Labels(uiOnly bool) []string {
	out := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		if uiOnly && !e.IncludeInUI {
			continue
		}
		out = append(out, e.Label)
	}
	return out
}

// ParamSets returns the parameter sets of cached prototypes, one per entry,
// in declaration order. Used to build the binding table.
func (r *Registry[T]) ParamSets() []*param.Set {
	out := make([]*param.Set, len(r.prototypes))
	for i, p := range r.prototypes {
		out[i] = p.Params()
	}
	return out
}
