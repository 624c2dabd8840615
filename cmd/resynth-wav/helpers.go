package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	resynth "github.com/tphakala/go-resynth"
	"github.com/tphakala/go-resynth/internal/brain"
	"github.com/tphakala/go-resynth/internal/config"
	"github.com/tphakala/go-resynth/internal/coordinator"
	"github.com/tphakala/go-resynth/internal/morph"
	"github.com/tphakala/go-resynth/internal/param"
	"github.com/tphakala/go-resynth/internal/transform"
)

const pcmFormat = 1

// assignments collects repeated -set id=value flags.
type assignments []string

func (a *assignments) String() string { return strings.Join(*a, ",") }

func (a *assignments) Set(v string) error {
	if !strings.Contains(v, "=") {
		return fmt.Errorf("expected id=value, got %q", v)
	}
	*a = append(*a, v)
	return nil
}

// coreEdit is one core parameter write.
type coreEdit struct {
	index int
	raw   float64
}

// coreFlags are the flags that map onto core parameters. All default to
// "leave alone" so state restored with -load survives.
type coreFlags struct {
	algorithm string
	morph     string
	chunk     int
	window    string
}

func defineCoreFlags(fs *flag.FlagSet) *coreFlags {
	f := &coreFlags{}
	fs.StringVar(&f.algorithm, "algorithm", "", "Transform: passthrough, spectral-gate, brain-match, bin-shift")
	fs.StringVar(&f.morph, "morph", "", "Morph: null, cross-synthesis, spectral-vocoder, wave-morph")
	fs.IntVar(&f.chunk, "chunk", 0, "Chunk size in samples (power of two, 16-65536)")
	fs.StringVar(&f.window, "window", "", "Analysis and output window: hann, hamming, blackman, blackman-harris")
	return f
}

func (f *coreFlags) edits() ([]coreEdit, error) {
	return coreEdits(f.algorithm, f.morph, f.chunk, f.window)
}

// coreEdits translates the core flags into parameter writes. Zero or empty
// flags leave the parameter alone.
func coreEdits(algorithm, morphID string, chunk int, windowName string) ([]coreEdit, error) {
	var edits []coreEdit

	if algorithm != "" {
		ord := transform.NewRegistry().IndexOf(algorithm)
		if ord < 0 {
			return nil, fmt.Errorf("unknown transform %q", algorithm)
		}
		edits = append(edits, coreEdit{coordinator.IndexAlgorithm, float64(ord)})
	}

	if morphID != "" {
		ord := morph.NewRegistry().IndexOf(morphID)
		if ord < 0 {
			return nil, fmt.Errorf("unknown morph %q", morphID)
		}
		edits = append(edits, coreEdit{coordinator.IndexMorphMode, float64(ord)})
	}

	if chunk > 0 {
		edits = append(edits, coreEdit{coordinator.IndexChunkSize, float64(chunk)})
	}

	if windowName != "" {
		mode, err := parseWindow(windowName)
		if err != nil {
			return nil, err
		}
		edits = append(edits,
			coreEdit{coordinator.IndexAnalysisWindow, float64(mode)},
			coreEdit{coordinator.IndexOutputWindow, float64(mode)},
		)
	}
	return edits, nil
}

func parseWindow(name string) (config.WindowMode, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, m := range config.WindowModes() {
		if m.String() == name {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown window %q", name)
}

// resolveAssignment maps id=value onto a parameter index and raw value.
// Enum values may be given by name or ordinal.
func resolveAssignment(table *param.Table, a string) (int, float64, error) {
	id, value, _ := strings.Cut(a, "=")
	id = strings.TrimSpace(id)
	index, ok := table.IndexOf(id)
	if !ok {
		return 0, 0, fmt.Errorf("unknown parameter %q", id)
	}
	b, _ := table.Lookup(index)
	value = strings.TrimSpace(value)

	if raw, err := strconv.ParseFloat(value, 64); err == nil {
		return index, raw, nil
	}
	switch b.Kind {
	case param.KindEnum:
		if ord := b.EnumIndex(value); ord >= 0 {
			return index, float64(ord), nil
		}
		return 0, 0, fmt.Errorf("parameter %q has no value %q (want one of %s)", id, value, strings.Join(b.Values, ", "))
	case param.KindBoolean:
		on, err := strconv.ParseBool(value)
		if err != nil {
			return 0, 0, fmt.Errorf("parameter %q: %w", id, err)
		}
		if on {
			return index, 1, nil
		}
		return index, 0, nil
	default:
		return 0, 0, fmt.Errorf("parameter %q: invalid number %q", id, value)
	}
}

// progressPrinter prints job progress to stderr in 10% steps.
type progressPrinter struct {
	verbose bool
	last    int
}

func (p *progressPrinter) Progress(label string, current, total int) {
	if !p.verbose || total <= 0 {
		return
	}
	pct := current * 100 / total
	if current == 0 {
		p.last = 0
	}
	if pct >= p.last+10 || current == total {
		fmt.Fprintf(os.Stderr, "%s: %d%%\n", label, pct)
		p.last = pct
	}
}

// render streams input through e in blocks, flushes the engine latency and
// returns output aligned with the input.
func render(e *resynth.Engine, input [][]float64, block int) [][]float64 {
	channels := len(input)
	frames := len(input[0])
	latency := e.Latency()
	total := frames + latency

	out := make([][]float64, channels)
	for ch := range out {
		out[ch] = make([]float64, total)
	}
	zeros := make([]float64, block)
	in := make([][]float64, channels)
	dst := make([][]float64, channels)

	for pos := 0; pos < total; pos += block {
		end := min(pos+block, total)
		for ch := range channels {
			switch {
			case end <= frames:
				in[ch] = input[ch][pos:end]
			case pos >= frames:
				in[ch] = zeros[:end-pos]
			default:
				// Straddles the end of the input.
				in[ch] = make([]float64, end-pos)
				copy(in[ch], input[ch][pos:frames])
			}
			dst[ch] = out[ch][pos:end]
		}
		e.Process(in, dst)
	}

	for ch := range out {
		out[ch] = out[ch][latency:]
	}
	return out
}

// writeWAV writes per-channel samples as integer PCM.
func writeWAV(path string, channels [][]float64, rate, bitDepth int) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
	}()

	enc := wav.NewEncoder(f, rate, bitDepth, len(channels), pcmFormat)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: len(channels), SampleRate: rate},
		Data:           brain.Interleave(channels, bitDepth),
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("failed to write audio data: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to finalize WAV file: %w", err)
	}
	return nil
}
