package avi

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenLeavesSourceUntouched(t *testing.T) {
	path := writeSample(t, sample{videos: 20, keyEvery: 5})
	want, err := os.ReadFile(path)
	require.NoError(t, err)

	c, err := Open(path, WithGuard(Unconditional()))
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.RemoveAllKeyframes())
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.avi"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestOpenLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	c, err := Open(writeSample(t, sample{videos: 3, keyEvery: 1}), WithGuard(Unconditional()), WithLogger(logger))
	require.NoError(t, err)
	defer c.Close()

	assert.Contains(t, buf.String(), "parsed index")
	assert.Contains(t, buf.String(), "entries=3")
}

func TestOpenBelowCapacityThreshold(t *testing.T) {
	path := writeSample(t, sample{videos: 3})
	c, err := Open(path, WithGuard(Limit(0)))
	require.NoError(t, err, "guard is not consulted below the threshold")
	c.Close()
}

func TestGlitch(t *testing.T) {
	c := openSample(t, sample{videos: 20, keyEvery: 5, audio: true})

	var seen int
	require.NoError(t, c.Glitch(TargetAudioframe, func(data []byte) Edit {
		seen++
		return Replace(bytes.Repeat([]byte{0}, len(data)))
	}))
	assert.Equal(t, 20, seen)
	assert.Equal(t, 40, c.Frames().Len())
	assert.Equal(t, []byte{0, 0, 0, 0}, frameAt(t, c.Frames(), 1).Data)
	assert.Equal(t, videoPayload(0), frameAt(t, c.Frames(), 0).Data)

	require.NoError(t, c.Glitch(TargetDeltaframe, func([]byte) Edit { return Remove() }))
	assert.Equal(t, 24, c.Frames().Len())
	assert.Equal(t, 4, c.Frames().SizeOf(TargetVideoframe))
}

func TestGlitchPluralTargets(t *testing.T) {
	c := openSample(t, sample{videos: 10, keyEvery: 5})
	fs := c.Frames()

	assert.Equal(t, 2, fs.SizeOf(Target("keyframes")))
	assert.Equal(t, 2, fs.SizeOf(Target("iframes")))
	assert.Equal(t, 8, fs.SizeOf(Target("deltaframes")))
	assert.Equal(t, 0, fs.SizeOf(Target("bframes")))

	var seen int
	require.NoError(t, c.Glitch(Target("deltaframes"), func([]byte) Edit {
		seen++
		return Remove()
	}))
	assert.Equal(t, 8, seen)
	assert.Equal(t, 2, fs.Len())
	assert.True(t, c.HasKeyframe())

	require.NoError(t, c.Glitch(Target("keyframes"), func([]byte) Edit { return Remove() }))
	assert.Equal(t, 0, fs.Len())
	assert.False(t, c.HasKeyframe())
}

func TestGlitchWithIndex(t *testing.T) {
	c := openSample(t, sample{videos: 30, keyEvery: 10, audio: true})

	var indices []int
	require.NoError(t, c.GlitchWithIndex(TargetKeyframe, func(data []byte, i int) Edit {
		indices = append(indices, i)
		if i == 1 {
			return Remove()
		}
		return Keep
	}))
	// Only selected frames are counted.
	assert.Equal(t, []int{0, 1, 2}, indices)
	assert.Equal(t, 59, c.Frames().Len())
	assert.Equal(t, 2, c.Frames().SizeOf(TargetKeyframe))
}

func TestContainerMutateAndSwap(t *testing.T) {
	c := openSample(t, sample{videos: 10, keyEvery: 5})
	other := openSample(t, sample{videos: 4, keyEvery: 1})

	require.NoError(t, c.MutateKeyframesIntoDeltaframes())
	assert.False(t, c.HasKeyframe())

	require.NoError(t, c.SwapFrames(other.Frames()))
	assert.True(t, c.Frames().Equal(other.Frames()))
	assert.True(t, c.HasKeyframe())

	assert.ErrorIs(t, c.SwapFrames(nil), ErrType)
}

func TestFramesContainerIsIndependent(t *testing.T) {
	c := openSample(t, sample{videos: 10, keyEvery: 5})

	copied, err := c.Frames().Container()
	require.NoError(t, err)
	defer copied.Close()

	require.NoError(t, copied.RemoveAllKeyframes())
	assert.Equal(t, 8, copied.Frames().Len())
	assert.Equal(t, 10, c.Frames().Len())
}

func TestOutput(t *testing.T) {
	c := openSample(t, sample{videos: 10, keyEvery: 5})
	dir := t.TempDir()

	first := filepath.Join(dir, "first.avi")
	require.NoError(t, c.Output(first, false))
	assert.True(t, IsFormatted(first))

	// Overwriting replaces the file in place.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "second.avi"), []byte("stale"), 0o644))
	second := filepath.Join(dir, "second.avi")
	require.NoError(t, c.Output(second, true))
	assert.True(t, IsFormatted(second))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "no temporary files are left behind")

	assert.Equal(t, 0, c.Frames().Len())
	assert.Equal(t, 0, c.Frames().SizeOf(TargetAll))
	assert.False(t, c.HasKeyframe())
	f, err := c.Frames().At(0)
	assert.NoError(t, err)
	assert.Nil(t, f)

	assert.ErrorIs(t, c.Output(first, false), ErrClosed)
	assert.ErrorIs(t, c.MutateKeyframesIntoDeltaframes(), ErrClosed)
	_, err = c.Info()
	assert.ErrorIs(t, err, ErrClosed)
	assert.NoError(t, c.Close())
}

func TestOutputUnwritable(t *testing.T) {
	c := openSample(t, sample{videos: 2, keyEvery: 1})
	err := c.Output(filepath.Join(t.TempDir(), "missing", "out.avi"), false)
	assert.Error(t, err)
}
