package brain

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/tphakala/go-resynth/internal/config"
)

var blobMagic = [4]byte{'B', 'R', 'N', '1'}

type blobHeader struct {
	Magic          [4]byte
	SampleRate     float64
	Channels       uint32
	Frames         uint32
	ChunkSize      uint32
	AnalysisWindow uint8
	OutputWindow   uint8
}

// MarshalBinary encodes the source material and analysis settings. The
// analysis itself is recomputed on load.
func (s *Store) MarshalBinary() ([]byte, error) {
	s.mu.RLock()
	source, settings := s.source, s.settings
	s.mu.RUnlock()

	frames := 0
	if len(source) > 0 {
		frames = len(source[0])
	}
	hdr := blobHeader{
		Magic:          blobMagic,
		SampleRate:     s.sampleRate,
		Channels:       uint32(len(source)),
		Frames:         uint32(frames),
		ChunkSize:      uint32(settings.ChunkSize),
		AnalysisWindow: uint8(settings.AnalysisWindow),
		OutputWindow:   uint8(settings.OutputWindow),
	}

	var buf bytes.Buffer
	buf.Grow(binary.Size(hdr) + len(source)*frames*8)
	if err := binary.Write(&buf, binary.LittleEndian, hdr); err != nil {
		return nil, err
	}
	var word [8]byte
	for _, ch := range source {
		for _, v := range ch[:frames] {
			binary.LittleEndian.PutUint64(word[:], math.Float64bits(v))
			buf.Write(word[:])
		}
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary replaces the brain with data produced by MarshalBinary
// and analyzes it synchronously. Channels are mapped onto the store's
// channel count.
func (s *Store) UnmarshalBinary(data []byte) error {
	var hdr blobHeader
	r := bytes.NewReader(data)
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidFormat, err)
	}
	if hdr.Magic != blobMagic || hdr.Channels == 0 {
		return fmt.Errorf("%w: bad header", ErrInvalidFormat)
	}
	channels, frames := int(hdr.Channels), int(hdr.Frames)
	// Bound frames by the body before multiplying header fields.
	if frames > r.Len()/8/channels || r.Len() != channels*frames*8 {
		return fmt.Errorf("%w: expected %d sample bytes, got %d", ErrInvalidFormat, channels*frames*8, r.Len())
	}

	body := data[len(data)-r.Len():]
	src := make([][]float64, channels)
	for ch := range src {
		src[ch] = make([]float64, frames)
		for i := range frames {
			off := (ch*frames + i) * 8
			src[ch][i] = math.Float64frombits(binary.LittleEndian.Uint64(body[off:]))
		}
	}
	source := make([][]float64, s.channels)
	for ch := range source {
		source[ch] = src[ch%channels]
	}

	settings := Settings{
		ChunkSize:      int(hdr.ChunkSize),
		AnalysisWindow: config.WindowMode(hdr.AnalysisWindow),
		OutputWindow:   config.WindowMode(hdr.OutputWindow),
	}
	return s.rebuild(context.Background(), source, settings, nil)
}
