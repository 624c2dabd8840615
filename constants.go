package resynth

// Channel limits
const (
	maxChannels = 256 // Maximum supported channel count
)

// Saved state layout
const (
	stateVersion    = 1
	stateHeaderSize = 12 // magic + version + parameter count
	rawValueSize    = 8
)

var stateMagic = [4]byte{'R', 'S', 'Y', 'N'}

// closeTimeout bounds how long Close waits for a cancelled job.
const closeTimeoutSeconds = 5
