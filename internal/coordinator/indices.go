package coordinator

import (
	"fmt"
	"math"

	"github.com/tphakala/go-resynth/internal/config"
)

// Core parameter indices. Dynamic module parameters follow at CoreCount.
const (
	IndexChunkSize = iota
	IndexBufferWindow
	IndexAlgorithm
	IndexOutputWindow
	IndexAnalysisWindow
	IndexOverlapAdd
	IndexMorphMode
	IndexWindowLock

	CoreCount
)

var coreNames = [CoreCount]string{
	"chunk-size",
	"buffer-window",
	"algorithm",
	"output-window",
	"analysis-window",
	"overlap-add",
	"morph-mode-select",
	"window-lock",
}

// CoreName returns the name of a core index.
func CoreName(index int) string {
	if index < 0 || index >= CoreCount {
		return fmt.Sprintf("index(%d)", index)
	}
	return coreNames[index]
}

// integer converts a raw value to the nearest int, mapping NaN to 0 and
// saturating at the int32 range.
func integer(raw float64) int {
	if math.IsNaN(raw) {
		return 0
	}
	return int(math.Round(math.Max(math.MinInt32, math.Min(math.MaxInt32, raw))))
}

func boolean(raw float64) bool { return raw >= boolThreshold }

func rawBool(v bool) float64 {
	if v {
		return 1
	}
	return 0
}

func windowMode(raw float64) config.WindowMode {
	return config.ClampWindowMode(config.WindowMode(integer(raw)))
}

// coreRaw returns the raw values of the core indices for cfg.
func coreRaw(cfg config.DSP, morphMode int, lock bool) [CoreCount]float64 {
	return [CoreCount]float64{
		IndexChunkSize:      float64(cfg.ChunkSize),
		IndexBufferWindow:   float64(cfg.BufferWindow),
		IndexAlgorithm:      float64(cfg.Algorithm),
		IndexOutputWindow:   float64(cfg.OutputWindow),
		IndexAnalysisWindow: float64(cfg.AnalysisWindow),
		IndexOverlapAdd:     rawBool(cfg.OverlapAdd),
		IndexMorphMode:      float64(morphMode),
		IndexWindowLock:     rawBool(lock),
	}
}

const boolThreshold = 0.5
