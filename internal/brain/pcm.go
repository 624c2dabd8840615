package brain

import "github.com/tphakala/go-resynth/internal/mathutil"

// Bit depths understood by the PCM converters
const (
	bitsPerSample16 = 16
	bitsPerSample24 = 24
	bitsPerSample32 = 32

	maxInt16 = 32767.0
	maxInt24 = 8388607.0
	maxInt32 = 2147483647.0
)

// FullScale returns the largest sample magnitude for bitDepth. Unknown
// depths are treated as 16-bit.
func FullScale(bitDepth int) float64 {
	switch bitDepth {
	case bitsPerSample24:
		return maxInt24
	case bitsPerSample32:
		return maxInt32
	default:
		return maxInt16
	}
}

// Deinterleave converts interleaved integer PCM to per-channel samples in
// [-1, 1]. Output channel ch takes input channel ch modulo the input
// channel count, so mono sources fan out to every output channel.
func Deinterleave(data []int, srcChannels, dstChannels, bitDepth int) [][]float64 {
	srcChannels = max(srcChannels, 1)
	frames := len(data) / srcChannels
	scale := 1.0 / FullScale(bitDepth)
	out := make([][]float64, dstChannels)
	for ch := range out {
		src := ch % srcChannels
		samples := make([]float64, frames)
		for i := range samples {
			samples[i] = float64(data[i*srcChannels+src]) * scale
		}
		out[ch] = samples
	}
	return out
}

// Interleave converts per-channel samples to interleaved integer PCM,
// clipping to full scale. Channels are truncated to the shortest one.
func Interleave(channels [][]float64, bitDepth int) []int {
	if len(channels) == 0 {
		return nil
	}
	frames := len(channels[0])
	for _, c := range channels[1:] {
		frames = min(frames, len(c))
	}
	scale := FullScale(bitDepth)
	out := make([]int, frames*len(channels))
	for i := range frames {
		for ch, c := range channels {
			out[i*len(channels)+ch] = int(mathutil.Clamp(c[i], -1, 1) * scale)
		}
	}
	return out
}
