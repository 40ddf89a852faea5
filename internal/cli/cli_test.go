package cli

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/charlescerisier/avimosh/avi"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{" warn ", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"loud", slog.LevelInfo},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), tt.in)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "warn")

	logger.Info("hidden")
	logger.Warn("shown", "file", "a.avi")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "a.avi")
	assert.NotContains(t, buf.String(), "\x1b[", "no colors off a terminal")
}

func TestGuard(t *testing.T) {
	assert.False(t, IsTerminal(&bytes.Buffer{}))

	g := Guard(strings.NewReader("y\n"), &bytes.Buffer{}, 0)
	assert.False(t, g.Allow(avi.SafeFramesCount))

	g = Guard(strings.NewReader(""), &bytes.Buffer{}, avi.SafeFramesCount*2)
	assert.True(t, g.Allow(avi.SafeFramesCount))
	assert.False(t, g.Allow(avi.SafeFramesCount*2+1))
}

func TestWatchSignalsStop(t *testing.T) {
	ctx, stop := WatchSignals(NewLogger(&bytes.Buffer{}, "error"))
	assert.NoError(t, ctx.Err())

	stop()
	<-ctx.Done()
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}
