package coordinator

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/tphakala/go-resynth/internal/module"
	"github.com/tphakala/go-resynth/internal/pending"
)

// MessageSize is the length of a binary parameter message: a uint32 index
// followed by a float64 raw value, both little-endian.
const MessageSize = 12

// EncodeMessage builds a binary parameter message.
func EncodeMessage(index int, raw float64) []byte {
	msg := make([]byte, MessageSize)
	binary.LittleEndian.PutUint32(msg, uint32(index))
	binary.LittleEndian.PutUint64(msg[4:], math.Float64bits(raw))
	return msg
}

// OnParameterMessage decodes a binary parameter message and stores it in
// the parameter store, which routes it through OnParameterChange. Malformed
// messages are dropped without touching any state.
func (c *Coordinator) OnParameterMessage(msg []byte) error {
	if len(msg) < MessageSize {
		c.log.Debug().Int("len", len(msg)).Msg("dropped truncated parameter message")
		return fmt.Errorf("%w: %d bytes", ErrMalformedMessage, len(msg))
	}
	index := binary.LittleEndian.Uint32(msg)
	if uint64(index) >= uint64(c.params.Len()) {
		c.log.Debug().Uint32("index", index).Msg("dropped parameter message for unknown index")
		return fmt.Errorf("%w: index %d out of range", ErrMalformedMessage, index)
	}
	raw := math.Float64frombits(binary.LittleEndian.Uint64(msg[4:]))
	c.params.Set(int(index), raw)
	return nil
}

// onDynamic forwards a module parameter to every live module that owns it,
// both the current and any staged instance.
func (c *Coordinator) onDynamic(index int, raw float64) {
	b, ok := c.table.Lookup(index)
	if !ok {
		c.log.Debug().Int("index", index).Msg("no binding for parameter index")
		return
	}
	v, err := b.Convert(raw)
	if err != nil {
		c.log.Debug().Err(err).Msg("parameter change dropped")
		return
	}

	rebuild := func(m module.Module, flag pending.Flag) {
		p := m.Params()
		if !p.Owns(b.ID) {
			return
		}
		if err := p.Apply(b.ID, v); err != nil {
			c.log.Debug().Err(err).Str("module", m.ID()).Msg("parameter change rejected")
			return
		}
		if p.RequiresRebuild(b.ID) {
			c.d.Pending.Raise(flag)
		}
	}
	c.d.TransformSlot.Each(func(t module.Transform) { rebuild(t, pending.RebuildTransformUI) })
	c.d.MorphSlot.Each(func(m module.Morph) { rebuild(m, pending.RebuildMorphUI) })
}
