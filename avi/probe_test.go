package avi

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbe(t *testing.T) {
	f, err := os.Open(writeSample(t, sample{videos: 50, keyEvery: 10, audio: true, junk: true}))
	require.NoError(t, err)
	defer f.Close()

	info, err := Probe(f)
	require.NoError(t, err)

	assert.Equal(t, 50, info.TotalFrames)
	assert.Equal(t, 2*time.Second, info.Duration)
	assert.Equal(t, 1, info.VideoStreams)
	assert.Equal(t, 1, info.AudioStreams)
	require.Len(t, info.Streams, 2)

	video := info.Streams[0]
	assert.Equal(t, StreamTypeVideo, video.Type)
	assert.Equal(t, "XVID", video.Codec.Name)
	assert.Equal(t, 32, video.Codec.Width)
	assert.Equal(t, 24, video.Codec.Height)
	assert.InDelta(t, 25.0, video.Codec.FPS, 0.001)
	assert.Equal(t, 50, video.Length)

	audio := info.Streams[1]
	assert.Equal(t, StreamTypeAudio, audio.Type)
	assert.Equal(t, 1, audio.Index)
	assert.Equal(t, 8000, audio.Codec.SampleRate)
	assert.Equal(t, 1, audio.Codec.Channels)
	assert.Equal(t, 8, audio.Codec.BitDepth)
	assert.Equal(t, "0x0001", audio.Codec.Name)
}

func TestProbeRejects(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not riff", "RIFX\x00\x00\x00\x00AVI "},
		{"not avi", "RIFF\x00\x00\x00\x00WAVE"},
		{"no hdrl", "RIFF\x0c\x00\x00\x00AVI JUNK\x00\x00\x00\x00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Probe(strings.NewReader(tt.data))
			assert.ErrorIs(t, err, ErrUnsupported)
		})
	}
}

func TestContainerInfo(t *testing.T) {
	c := openSample(t, sample{videos: 20, keyEvery: 5})
	require.NoError(t, c.RemoveAllKeyframes())

	info, err := c.Info()
	require.NoError(t, err)
	assert.Equal(t, 16, info.TotalFrames)

	// Info does not disturb later edits.
	require.NoError(t, c.Frames().Push(NewFrame([]byte{1}, "00dc", 0)))
	assert.Equal(t, 17, c.Frames().Len())
}
