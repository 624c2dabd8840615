package brain

import (
	"context"
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/tphakala/go-resynth/internal/jobs"
)

const (
	exportBitDepth    = 16
	exportBlockFrames = 4096
	pcmFormat         = 1
)

// ReadWAV decodes a WAV file into per-channel samples mapped onto channels
// output channels, or the file's own channel count when channels is not
// positive. It returns the file's sample rate.
func ReadWAV(path string, channels int) ([][]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open input file: %w", err)
	}
	defer func() { _ = f.Close() }()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return nil, 0, fmt.Errorf("%w: not a WAV file: %s", ErrInvalidFormat, path)
	}
	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read audio data: %w", err)
	}
	srcChannels := int(decoder.NumChans)
	if buf.Format != nil && buf.Format.NumChannels > 0 {
		srcChannels = buf.Format.NumChannels
	}
	if channels <= 0 {
		channels = srcChannels
	}
	return Deinterleave(buf.Data, srcChannels, channels, int(decoder.BitDepth)), int(decoder.SampleRate), nil
}

// ImportWAV appends the audio of a WAV file to the brain.
func (s *Store) ImportWAV(ctx context.Context, path string, progress jobs.Progress) error {
	samples, rate, err := ReadWAV(path, s.channels)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if float64(rate) != s.sampleRate {
		s.logger.Warn().Int("file_rate", rate).Float64("brain_rate", s.sampleRate).
			Str("path", path).Msg("imported audio sample rate differs from session rate")
	}
	return s.Append(ctx, samples, progress)
}

// ExportWAV writes the brain's source material as 16-bit PCM. A cancelled
// or failed export removes the partial file.
func (s *Store) ExportWAV(ctx context.Context, path string, progress jobs.Progress) (err error) {
	if progress == nil {
		progress = func(int, int) {}
	}
	source := s.sourceRef()
	frames := 0
	if len(source) > 0 {
		frames = len(source[0])
	}
	if frames == 0 {
		return ErrEmpty
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(path)
		}
	}()

	format := &audio.Format{NumChannels: s.channels, SampleRate: int(s.sampleRate)}
	enc := wav.NewEncoder(f, format.SampleRate, exportBitDepth, s.channels, pcmFormat)
	block := make([][]float64, s.channels)
	total := (frames + exportBlockFrames - 1) / exportBlockFrames
	progress(0, total)
	for i := range total {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := i * exportBlockFrames
		end := min(start+exportBlockFrames, frames)
		for ch := range block {
			block[ch] = source[ch][start:end]
		}
		buf := &audio.IntBuffer{Format: format, Data: Interleave(block, exportBitDepth), SourceBitDepth: exportBitDepth}
		if err := enc.Write(buf); err != nil {
			return fmt.Errorf("failed to write audio data: %w", err)
		}
		progress(i+1, total)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to finalize WAV file: %w", err)
	}
	return f.Close()
}
