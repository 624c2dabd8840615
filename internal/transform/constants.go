package transform

// Parameter ids
const (
	ParamThreshold      = "threshold"
	ParamMatchThreshold = "match-threshold"
	ParamInvert         = "invert"
	ParamMix            = "mix"
	ParamMatchMode      = "match-mode"
	ParamSpread         = "spread"
	ParamShift          = "shift"
)

// Brain match modes
const (
	MatchMagnitude = "magnitude"
	MatchEnergy    = "energy"
)

// Parameter ranges and defaults
const (
	minGateDB     = -96.0
	maxGateDB     = 0.0
	defaultGateDB = -48.0

	defaultMatchThreshold = 1.0
	defaultMix            = 1.0
	defaultSpread         = 0.0

	maxShift = 64.0
)

// spreadTaps is the width of the neighbourhood averaged by spread.
const spreadTaps = 3
