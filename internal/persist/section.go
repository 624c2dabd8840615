// Package persist encodes the brain section of saved engine state.
//
// Layout, little-endian:
//
//	tag     [4]byte "BRNS"
//	length  int32   bytes following this field
//	mode    uint8   0 inline, 1 external
//	inline:   int32 blob length, blob (length 0 when inline storage is off)
//	external: int32 path length, UTF-8 path
//
// Readers treat an unknown tag or a truncated section as absent.
package persist

import (
	"encoding/binary"
	"errors"
)

// Tag identifies the brain section.
var Tag = [4]byte{'B', 'R', 'N', 'S'}

// Mode selects how the brain is stored.
type Mode uint8

const (
	ModeInline Mode = iota
	ModeExternal
)

// ErrTruncated indicates a section shorter than its declared length.
var ErrTruncated = errors.New("truncated brain section")

// Options controls how a session writes its brain section. It is owned by
// the session, never global.
type Options struct {
	// InlineBrain embeds the brain blob. When false and ExternalPath is
	// empty an inline section with an empty blob is written.
	InlineBrain bool

	// ExternalPath, when set, stores a reference to a brain file instead
	// of the blob.
	ExternalPath string
}

// Section is a decoded brain section.
type Section struct {
	Mode Mode
	Blob []byte
	Path string
}

const (
	tagSize    = 4
	lengthSize = 4
	modeSize   = 1
	headerSize = tagSize + lengthSize
)

// AppendSection appends the brain section for opts to dst.
func AppendSection(dst []byte, opts Options, blob []byte) []byte {
	mode := ModeInline
	var payload []byte
	switch {
	case opts.ExternalPath != "":
		mode = ModeExternal
		payload = []byte(opts.ExternalPath)
	case opts.InlineBrain:
		payload = blob
	}

	dst = append(dst, Tag[:]...)
	dst = binary.LittleEndian.AppendUint32(dst, uint32(int32(modeSize+lengthSize+len(payload))))
	dst = append(dst, byte(mode))
	dst = binary.LittleEndian.AppendUint32(dst, uint32(int32(len(payload))))
	return append(dst, payload...)
}

// ReadSection decodes the section starting at pos. When no valid section is
// present it returns ok=false and next=pos.
func ReadSection(data []byte, pos int) (sec Section, next int, ok bool) {
	sec, next, err := decode(data, pos)
	if err != nil {
		return Section{}, pos, false
	}
	return sec, next, true
}

var errUnknownTag = errors.New("unknown section tag")

func decode(data []byte, pos int) (Section, int, error) {
	if pos < 0 || len(data)-pos < headerSize {
		return Section{}, pos, ErrTruncated
	}
	if [4]byte(data[pos:pos+tagSize]) != Tag {
		return Section{}, pos, errUnknownTag
	}
	length := int(int32(binary.LittleEndian.Uint32(data[pos+tagSize:])))
	body := pos + headerSize
	if length < modeSize+lengthSize || len(data)-body < length {
		return Section{}, pos, ErrTruncated
	}

	mode := Mode(data[body])
	n := int(int32(binary.LittleEndian.Uint32(data[body+modeSize:])))
	payload := body + modeSize + lengthSize
	if n < 0 || n > length-modeSize-lengthSize {
		return Section{}, pos, ErrTruncated
	}

	sec := Section{Mode: mode}
	switch mode {
	case ModeInline:
		sec.Blob = append([]byte(nil), data[payload:payload+n]...)
	case ModeExternal:
		sec.Path = string(data[payload : payload+n])
	default:
		return Section{}, pos, errUnknownTag
	}
	return sec, body + length, nil
}
