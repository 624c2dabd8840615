package morph

// Parameter ids
const (
	ParamMorphMode      = "morph-mode"
	ParamMagnitudeMorph = "magnitude-morph"
	ParamPhaseMorph     = "phase-morph"
	ParamEmphasis       = "emphasis"
	ParamSensitivity    = "sensitivity"
	ParamWaveShape      = "wave-shape"
	ParamStartFrequency = "start-frequency"
)

// Morph modes
const (
	ModePolar    = "polar"
	ModeCepstral = "cepstral"
)

// Wave shapes
const (
	ShapeSquare   = "square"
	ShapeSaw      = "saw"
	ShapeTriangle = "triangle"
)

// Parameter defaults
const (
	defaultMagnitudeMorph = 0.5
	defaultPhaseMorph     = 0.5
	defaultEmphasis       = 0.5
	defaultSensitivity    = 0.5
	defaultStartFrequency = 0.01
	maxStartFrequency     = 0.5
)

// Cepstral envelope constants
const (
	minLifter     = 2     // Fewest cepstral coefficients kept (smoothest envelope)
	lifterDivisor = 8     // Most coefficients kept = frameSize / lifterDivisor
	logFloor      = 1e-12 // Added to magnitudes before log
	minFrameSize  = 4     // Below this the cepstrum is meaningless
)
