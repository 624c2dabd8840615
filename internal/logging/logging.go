// Package logging provides the shared zerolog logger used across the engine.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	defaultLogger     *zerolog.Logger
	defaultLoggerOnce sync.Once
	defaultOutput     io.Writer = os.Stderr
)

// GetDefaultLogger returns the process-wide logger, creating it on first use.
func GetDefaultLogger() *zerolog.Logger {
	defaultLoggerOnce.Do(func() {
		output := zerolog.ConsoleWriter{Out: defaultOutput, TimeFormat: time.RFC3339}
		logger := zerolog.New(output).With().Timestamp().Logger()
		defaultLogger = &logger
	})
	return defaultLogger
}

// Component returns a sub-logger tagged with the component name.
func Component(name string) zerolog.Logger {
	return GetDefaultLogger().With().Str("component", name).Logger()
}

// SetLevel changes the global log level. Unknown names fall back to info.
// The level applies to every logger derived from GetDefaultLogger.
func SetLevel(level string) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn", "warning":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case "disabled", "off", "none":
		zerolog.SetGlobalLevel(zerolog.Disabled)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
