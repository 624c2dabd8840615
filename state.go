package resynth

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/tphakala/go-resynth/internal/persist"
)

// SaveState encodes every parameter value and the brain section.
//
// Layout, little-endian: magic "RSYN", uint32 version, uint32 parameter
// count, one float64 per parameter in index order, then the brain section.
func (e *Engine) SaveState() ([]byte, error) {
	values := e.coord.Params().Values()

	var blob []byte
	if e.opts.Persist.InlineBrain && e.opts.Persist.ExternalPath == "" {
		var err error
		if blob, err = e.brain.MarshalBinary(); err != nil {
			return nil, fmt.Errorf("encoding brain: %w", err)
		}
	}

	out := make([]byte, 0, stateHeaderSize+len(values)*rawValueSize+len(blob)+64)
	out = append(out, stateMagic[:]...)
	out = binary.LittleEndian.AppendUint32(out, stateVersion)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(values)))
	for _, v := range values {
		out = binary.LittleEndian.AppendUint64(out, math.Float64bits(v))
	}
	out = persist.AppendSection(out, e.opts.Persist, blob)

	e.logger.Debug().
		Int("parameters", len(values)).
		Int("brain_bytes", len(blob)).
		Msg("state saved")
	return out, nil
}

// LoadState restores state produced by SaveState. Any running job is
// cancelled first. A missing or unreadable brain section leaves the brain
// as it is; an external reference is imported in the background.
func (e *Engine) LoadState(data []byte) error {
	values, pos, err := decodeValues(data)
	if err != nil {
		return err
	}

	if !e.jobs.Close(closeTimeoutSeconds * time.Second) {
		return fmt.Errorf("background job did not stop within %ds", closeTimeoutSeconds)
	}

	sec, _, ok := persist.ReadSection(data, pos)
	if ok && sec.Mode == persist.ModeInline && len(sec.Blob) > 0 {
		if err := e.brain.UnmarshalBinary(sec.Blob); err != nil {
			e.logger.Warn().Err(err).Msg("saved brain could not be decoded, keeping current brain")
		}
	}

	e.coord.Restore(values)

	if ok && sec.Mode == persist.ModeExternal {
		e.brain.Clear()
		e.coord.Reconcile()
		if _, err := e.coord.ImportBrain(sec.Path); err != nil {
			e.logger.Warn().Err(err).Str("path", sec.Path).Msg("external brain import not started")
		}
		return nil
	}
	e.coord.Reconcile()
	return nil
}

// decodeValues validates the state header and returns the parameter values
// and the offset of the brain section.
func decodeValues(data []byte) ([]float64, int, error) {
	if len(data) < stateHeaderSize || [4]byte(data[:4]) != stateMagic {
		return nil, 0, fmt.Errorf("%w: bad header", ErrInvalidState)
	}
	if v := binary.LittleEndian.Uint32(data[4:]); v != stateVersion {
		return nil, 0, fmt.Errorf("%w: unsupported version %d", ErrInvalidState, v)
	}
	count := int(binary.LittleEndian.Uint32(data[8:]))
	end := stateHeaderSize + count*rawValueSize
	if count < 0 || end > len(data) {
		return nil, 0, fmt.Errorf("%w: %d values truncated", ErrInvalidState, count)
	}

	values := make([]float64, count)
	for i := range values {
		off := stateHeaderSize + i*rawValueSize
		values[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[off:]))
	}
	return values, end, nil
}
