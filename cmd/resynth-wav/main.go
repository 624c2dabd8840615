// Command resynth-wav runs a WAV file through the spectral resynthesis
// engine.
//
// Usage:
//
//	resynth-wav -algorithm spectral-gate -set threshold=-40 input.wav output.wav
//	resynth-wav -brain texture.wav -algorithm brain-match -set mix=0.7 voice.wav out.wav
//	resynth-wav -brain texture.wav -morph cross-synthesis -chunk 2048 in.wav out.wav
//	resynth-wav -load session.rsyn -save session.rsyn in.wav out.wav
//
// Output is aligned with the input: the engine latency is flushed and
// trimmed.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime/pprof"
	"time"

	resynth "github.com/tphakala/go-resynth"
	"github.com/tphakala/go-resynth/internal/brain"
	"github.com/tphakala/go-resynth/internal/coordinator"
	"github.com/tphakala/go-resynth/internal/logging"
	"github.com/tphakala/go-resynth/internal/persist"
	"github.com/tphakala/go-resynth/internal/transform"
)

const (
	// Samples per channel handed to the engine per call
	blockSize = 4096

	outputBitDepth  = 16
	minRequiredArgs = 2

	jobTimeout = 10 * time.Minute
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	core := defineCoreFlags(flag.CommandLine)
	brainPath := flag.String("brain", "", "WAV file to build the brain from")
	loadPath := flag.String("load", "", "Restore engine state from file before processing")
	savePath := flag.String("save", "", "Write engine state to file after processing")
	inline := flag.Bool("inline-brain", true, "Embed the brain in saved state")
	var sets assignments
	flag.Var(&sets, "set", "Module parameter as id=value (repeatable)")
	verbose := flag.Bool("v", false, "Verbose output")
	cpuprofile := flag.String("cpuprofile", "", "Write CPU profile to file")
	flag.Parse()

	args := flag.Args()
	if len(args) < minRequiredArgs {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] input.wav output.wav\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		return errors.New("insufficient arguments")
	}

	logging.SetLevel("warn")
	if *verbose {
		logging.SetLevel("debug")
	}
	logger := logging.Component("resynth-wav")

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			return fmt.Errorf("could not create CPU profile: %w", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			_ = f.Close()
			return fmt.Errorf("could not start CPU profile: %w", err)
		}
		defer func() {
			pprof.StopCPUProfile()
			_ = f.Close()
		}()
	}

	inputPath, outputPath := args[0], args[1]
	input, rate, err := brain.ReadWAV(inputPath, 0)
	if err != nil {
		return err
	}
	if len(input) == 0 {
		return fmt.Errorf("no channels in %s", inputPath)
	}

	e, err := resynth.New(resynth.Options{
		SampleRate: float64(rate),
		Channels:   len(input),
		Persist:    persist.Options{InlineBrain: *inline},
		Progress:   &progressPrinter{verbose: *verbose},
	})
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	if *loadPath != "" {
		data, err := os.ReadFile(*loadPath)
		if err != nil {
			return fmt.Errorf("failed to read state: %w", err)
		}
		if err := e.LoadState(data); err != nil {
			return err
		}
		if err := waitIdle(e); err != nil {
			return err
		}
	}

	edits, err := core.edits()
	if err != nil {
		return err
	}
	for _, ed := range edits {
		e.SetParameter(ed.index, ed.raw)
	}
	for _, a := range sets {
		index, raw, err := resolveAssignment(e.Coordinator().Table(), a)
		if err != nil {
			return err
		}
		e.SetParameter(index, raw)
	}
	if err := waitIdle(e); err != nil {
		return err
	}

	if *brainPath != "" {
		h, err := e.Coordinator().ImportBrain(*brainPath)
		if err != nil {
			return err
		}
		res, ok := h.Wait(jobTimeout)
		if !ok {
			return errors.New("brain import timed out")
		}
		if res.Err != nil {
			return fmt.Errorf("brain import failed: %w", res.Err)
		}
	}
	if err := waitIdle(e); err != nil {
		return err
	}

	logger.Debug().
		Str("input", inputPath).
		Int("sample_rate", rate).
		Int("channels", len(input)).
		Int("chunk_size", e.Coordinator().Config().ChunkSize).
		Msg("processing")

	start := time.Now()
	output := render(e, input, blockSize)
	elapsed := time.Since(start)

	if err := writeWAV(outputPath, output, rate, outputBitDepth); err != nil {
		return err
	}

	if *savePath != "" {
		data, err := e.SaveState()
		if err != nil {
			return err
		}
		if err := os.WriteFile(*savePath, data, 0o644); err != nil {
			return fmt.Errorf("failed to write state: %w", err)
		}
	}

	frames := len(input[0])
	cfg := e.Coordinator().Config()
	summary := e.Brain().Summary()
	fmt.Printf("Resynthesized %s -> %s\n", filepath.Base(inputPath), filepath.Base(outputPath))
	fmt.Printf("  %d Hz, %d channels, %d samples\n", rate, len(input), frames)
	algorithm := transform.NewRegistry().At(int(e.Parameter(coordinator.IndexAlgorithm))).ID
	fmt.Printf("  Chunk %d, transform %s, brain %d chunks (%.2fs)\n",
		cfg.ChunkSize, algorithm, summary.Chunks, summary.Seconds)
	fmt.Printf("  Duration: %.2fs, Speed: %.1fx realtime\n",
		elapsed.Seconds(), float64(frames)/float64(rate)/elapsed.Seconds())
	return nil
}

// waitIdle drains reconcile work so processing sees a brain analyzed with
// the final configuration.
func waitIdle(e *resynth.Engine) error {
	for {
		e.Tick()
		h := e.Jobs().Current()
		if h == nil {
			return nil
		}
		res, ok := h.Wait(jobTimeout)
		if !ok {
			return fmt.Errorf("%s timed out", h.Label())
		}
		if res.Err != nil {
			return fmt.Errorf("%s failed: %w", h.Label(), res.Err)
		}
	}
}
