package transform

import "github.com/tphakala/go-resynth/internal/module"

// Passthrough leaves frames untouched.
type Passthrough struct {
	module.Base
}

// NewPassthrough returns the identity transform.
func NewPassthrough() module.Transform {
	return &Passthrough{Base: module.NewBase(IDPassthrough, module.RoleTransform)}
}

func (p *Passthrough) Active() bool { return false }

func (p *Passthrough) Transform([][]complex128) {}
