package morph

import "github.com/tphakala/go-resynth/internal/module"

// Null leaves b untouched and reports itself inactive.
type Null struct {
	module.Base
}

// NewNull returns the identity morph.
func NewNull() module.Morph {
	return &Null{Base: module.NewBase(IDNull, module.RoleMorph)}
}

func (n *Null) Active() bool { return false }

func (n *Null) Morph(_, _ [][]complex128) {}
