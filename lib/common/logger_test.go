package common

import (
	"testing"

	"github.com/lni/dragonboat/v4/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want logger.LogLevel
	}{
		{"debug", logger.DEBUG},
		{"INFO", logger.INFO},
		{"warn", logger.WARNING},
		{"warning", logger.WARNING},
		{"error", logger.ERROR},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLogLevel(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseLogLevel("verbose")
	assert.Error(t, err)
}

func TestInitLoggers(t *testing.T) {
	require.NoError(t, InitLoggers("error"))
	assert.Error(t, InitLoggers("nope"))
}

func TestLoggerPanicf(t *testing.T) {
	l := CreateLogger("test")
	assert.PanicsWithValue(t, "boom 1", func() {
		l.Panicf("boom %d", 1)
	})
}
