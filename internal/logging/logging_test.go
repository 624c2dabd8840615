package logging

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestSetLevel(t *testing.T) {
	prev := zerolog.GlobalLevel()
	defer zerolog.SetGlobalLevel(prev)

	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{" WARN ", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"off", zerolog.Disabled},
		{"bogus", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		SetLevel(tt.in)
		assert.Equal(t, tt.want, zerolog.GlobalLevel(), "level %q", tt.in)
	}
}

func TestGetDefaultLoggerIsShared(t *testing.T) {
	assert.Same(t, GetDefaultLogger(), GetDefaultLogger())
}
