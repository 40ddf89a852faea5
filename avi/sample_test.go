package avi

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	code := m.Run()
	RemoveTemp()
	os.Exit(code)
}

// sample describes a synthetic AVI written by writeSample.
type sample struct {
	videos   int  // number of 00dc chunks
	keyEvery int  // every keyEvery-th video chunk is a keyframe; 0 for none
	audio    bool // interleave one 01wb chunk after each video chunk
	junk     bool // put a JUNK chunk between hdrl and movi
	absolute bool // store idx1 offsets relative to the file start
}

func videoPayload(i int) []byte {
	b := make([]byte, 5+i%11)
	for j := range b {
		b[j] = byte(i*7 + j)
	}
	return b
}

func audioPayload(i int) []byte {
	b := make([]byte, 4+i%3)
	for j := range b {
		b[j] = byte(0x80 + i + j)
	}
	return b
}

func writeSample(t *testing.T, s sample) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "sample.avi")
	m := NewMuxer()
	require.NoError(t, m.CreateFile(path))

	_, err := m.AddStream(Codec{
		Name:   "XVID",
		FourCC: [4]byte{'X', 'V', 'I', 'D'},
		Type:   StreamTypeVideo,
		Width:  32,
		Height: 24,
		FPS:    25,
	})
	require.NoError(t, err)
	if s.audio {
		_, err = m.AddStream(Codec{
			Type:       StreamTypeAudio,
			Channels:   1,
			SampleRate: 8000,
			BitDepth:   8,
		})
		require.NoError(t, err)
	}

	entries := 0
	for i := 0; i < s.videos; i++ {
		var flag uint32
		if s.keyEvery > 0 && i%s.keyEvery == 0 {
			flag = keyframeFlag
		}
		require.NoError(t, m.WriteFrame(NewFrame(videoPayload(i), "00dc", flag)))
		entries++
		if s.audio {
			require.NoError(t, m.WriteFrame(NewFrame(audioPayload(i), "01wb", keyframeFlag)))
			entries++
		}
	}
	require.NoError(t, m.Finalize())
	require.NoError(t, m.Close())

	if !s.junk && !s.absolute {
		return path
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	hdrlEnd := 20 + int(binary.LittleEndian.Uint32(data[16:20]))
	if s.junk {
		junk := append([]byte(JUNKSignature), 16, 0, 0, 0)
		junk = append(junk, make([]byte, 16)...)
		data = append(data[:hdrlEnd:hdrlEnd], append(junk, data[hdrlEnd:]...)...)
		hdrlEnd += len(junk)
		binary.LittleEndian.PutUint32(data[4:8], uint32(len(data)-8))
	}
	if s.absolute {
		moviPos := uint32(hdrlEnd + 8)
		idx1Pos := len(data) - chunkHeaderSize - entries*indexEntrySize
		for i := 0; i < entries; i++ {
			at := idx1Pos + chunkHeaderSize + i*indexEntrySize + 8
			off := binary.LittleEndian.Uint32(data[at:])
			binary.LittleEndian.PutUint32(data[at:], off+moviPos)
		}
	}
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func openSample(t *testing.T, s sample) *Container {
	t.Helper()

	c, err := Open(writeSample(t, s), WithGuard(Unconditional()))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func frameAt(t *testing.T, fs *Frames, n int) *Frame {
	t.Helper()

	f, err := fs.At(n)
	require.NoError(t, err)
	require.NotNil(t, f)
	return f
}
