package config

// Chunk size limits in samples
const (
	MinChunkSize     = 16
	MaxChunkSize     = 65536
	DefaultChunkSize = 1024
)

// Buffer window limits in chunks
const (
	MinBufferWindow     = 1
	MaxBufferWindow     = 1024
	DefaultBufferWindow = 8
)

const (
	minWindowMode  = WindowHann
	maxWindowMode  = WindowBlackmanHarris
	overlapDivisor = 4 // 75% overlap
)
