package avi

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMuxer(t *testing.T) {
	muxer := NewMuxer()
	assert.NotNil(t, muxer)
}

func TestMuxerCreate(t *testing.T) {
	muxer := NewMuxer()
	defer muxer.Close()

	// Test creating file in non-existent directory
	err := muxer.CreateFile("/nonexistent/path/test.avi")
	assert.Error(t, err)

	// Test adding stream without creating file first
	muxer2 := NewMuxer()
	defer muxer2.Close()

	videoCodec := Codec{
		Name:   "TEST",
		Type:   StreamTypeVideo,
		Width:  640,
		Height: 480,
		FPS:    30.0,
	}

	_, err = muxer2.AddStream(videoCodec)
	assert.Error(t, err)
	assert.Error(t, muxer2.WriteFrame(NewFrame(nil, "00dc", 0)))
	assert.Error(t, muxer2.Finalize())
}

func TestMuxerAddStream(t *testing.T) {
	muxer := NewMuxer()
	defer muxer.Close()

	require.NoError(t, muxer.CreateFile(filepath.Join(t.TempDir(), "streams.avi")))

	videoIndex, err := muxer.AddStream(Codec{
		Name:   "MJPG",
		FourCC: [4]byte{'M', 'J', 'P', 'G'},
		Type:   StreamTypeVideo,
		Width:  640,
		Height: 480,
		FPS:    30.0,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, videoIndex)

	audioIndex, err := muxer.AddStream(Codec{
		Name:       "PCM",
		Type:       StreamTypeAudio,
		Channels:   2,
		SampleRate: 44100,
		BitDepth:   16,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, audioIndex)
}

func TestMuxerWriteFrame(t *testing.T) {
	muxer := NewMuxer()
	defer muxer.Close()

	require.NoError(t, muxer.CreateFile(filepath.Join(t.TempDir(), "frames.avi")))
	_, err := muxer.AddStream(Codec{Type: StreamTypeVideo, Width: 8, Height: 8, FPS: 10})
	require.NoError(t, err)

	assert.NoError(t, muxer.WriteFrame(NewFrame([]byte{1, 2, 3}, "00dc", keyframeFlag)))
	assert.Error(t, muxer.WriteFrame(NewFrame([]byte{1}, "01wb", 0)), "no stream 1")
	assert.Error(t, muxer.WriteFrame(NewFrame([]byte{1}, "ix00", 0)))
	assert.ErrorIs(t, muxer.WriteFrame(nil), ErrType)
}

func TestMuxerLayout(t *testing.T) {
	path := writeSample(t, sample{videos: 9, keyEvery: 3, audio: true})
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, RIFFSignature, string(data[0:4]))
	assert.Equal(t, uint32(len(data)-8), binary.LittleEndian.Uint32(data[4:8]))
	assert.Equal(t, AVISignature, string(data[8:12]))
	assert.Equal(t, LISTSignature, string(data[12:16]))
	assert.Equal(t, HDRLList, string(data[20:24]))
	assert.Equal(t, AVIHChunk, string(data[24:28]))
	assert.Equal(t, uint32(9), binary.LittleEndian.Uint32(data[totalFramesOffset:]))

	idx1Pos := len(data) - chunkHeaderSize - 18*indexEntrySize
	assert.Equal(t, IDX1Chunk, string(data[idx1Pos:idx1Pos+4]))
	assert.Equal(t, uint32(18*indexEntrySize), binary.LittleEndian.Uint32(data[idx1Pos+4:]))
	assert.Equal(t, "00dc", string(data[idx1Pos+8:idx1Pos+12]))
	assert.Equal(t, uint32(4), binary.LittleEndian.Uint32(data[idx1Pos+16:]))

	assert.True(t, IsFormatted(path))
}

func TestStreamIndexOf(t *testing.T) {
	tests := []struct {
		id    string
		index int
		ok    bool
	}{
		{"00dc", 0, true},
		{"01wb", 1, true},
		{"12dc", 12, true},
		{"ix00", 0, false},
		{"0", 0, false},
	}

	for _, tt := range tests {
		index, ok := streamIndexOf(tt.id)
		assert.Equal(t, tt.ok, ok, tt.id)
		if tt.ok {
			assert.Equal(t, tt.index, index, tt.id)
		}
	}
}
