package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charlescerisier/avimosh/avi"
)

func TestMain(m *testing.M) {
	code := m.Run()
	avi.RemoveTemp()
	os.Exit(code)
}

func writeClip(t *testing.T, name string, n int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	m := avi.NewMuxer()
	require.NoError(t, m.CreateFile(path))
	_, err := m.AddStream(avi.Codec{Name: "DIVX", FourCC: [4]byte{'D', 'I', 'V', 'X'}, Type: avi.StreamTypeVideo, Width: 16, Height: 16, FPS: 30})
	require.NoError(t, err)

	for i := 0; i < n; i++ {
		var flag uint32
		if i%10 == 0 {
			flag = 0x10
		}
		require.NoError(t, m.WriteFrame(avi.NewFrame([]byte{byte(i), byte(i >> 8), 7}, "00dc", flag)))
	}
	require.NoError(t, m.Finalize())
	require.NoError(t, m.Close())
	return path
}

func openFrames(t *testing.T, path string) *avi.Frames {
	t.Helper()

	c, err := avi.Open(path, avi.WithGuard(avi.Unconditional()))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c.Frames()
}

func TestParseRange(t *testing.T) {
	tests := []struct {
		in      string
		head    int
		tail    *int
		wantErr bool
	}{
		{"10:20", 10, intPtr(20), false},
		{"-5:", -5, nil, false},
		{":3", 0, intPtr(3), false},
		{":", 0, nil, false},
		{"7", 0, nil, true},
		{"a:1", 0, nil, true},
		{"1:b", 0, nil, true},
	}

	for _, tt := range tests {
		head, tail, err := parseRange(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.head, head, tt.in)
		assert.Equal(t, tt.tail, tail, tt.in)
	}
}

func intPtr(v int) *int { return &v }

func TestRemuxRangeRepeat(t *testing.T) {
	in := writeClip(t, "in.avi", 50)
	out := filepath.Join(t.TempDir(), "out.avi")

	config := Config{InputFile: in, OutputFile: out, Range: "10:20", Repeat: 3}
	require.NoError(t, remuxFile(config, avi.WithGuard(avi.Unconditional())))

	fs := openFrames(t, out)
	assert.Equal(t, 30, fs.Len())
	assert.Equal(t, 3, fs.SizeOf(avi.TargetKeyframe))

	f, err := fs.At(10)
	require.NoError(t, err)
	assert.Equal(t, []byte{10, 0, 7}, f.Data)
}

func TestRemuxAppend(t *testing.T) {
	a := writeClip(t, "a.avi", 12)
	b := writeClip(t, "b.avi", 5)
	out := filepath.Join(t.TempDir(), "ab.avi")

	config := Config{InputFile: a, OutputFile: out, Repeat: 1, Append: []string{b, b}}
	require.NoError(t, remuxFile(config, avi.WithGuard(avi.Unconditional())))

	fs := openFrames(t, out)
	assert.Equal(t, 22, fs.Len())
	assert.Equal(t, 4, fs.SizeOf(avi.TargetKeyframe))
}

func TestRemuxRebuild(t *testing.T) {
	in := writeClip(t, "in.avi", 30)
	out := filepath.Join(t.TempDir(), "out.avi")

	config := Config{InputFile: in, OutputFile: out, Range: "-10:", Repeat: 1, Rebuild: true}
	require.NoError(t, remuxFile(config, avi.WithGuard(avi.Unconditional())))

	c, err := avi.Open(out, avi.WithGuard(avi.Unconditional()))
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, 10, c.Frames().Len())
	info, err := c.Info()
	require.NoError(t, err)
	assert.Equal(t, 10, info.TotalFrames)
	require.Len(t, info.Streams, 1)
	assert.Equal(t, "DIVX", info.Streams[0].Codec.Name)
	assert.Equal(t, 10, info.Streams[0].Length)
}

func TestRemuxDryRun(t *testing.T) {
	in := writeClip(t, "in.avi", 5)
	out := filepath.Join(t.TempDir(), "out.avi")

	config := Config{InputFile: in, OutputFile: out, Repeat: 2, DryRun: true}
	require.NoError(t, remuxFile(config, avi.WithGuard(avi.Unconditional())))
	assert.NoFileExists(t, out)
}

func TestRemuxInvalid(t *testing.T) {
	in := writeClip(t, "in.avi", 5)
	out := filepath.Join(t.TempDir(), "out.avi")

	err := remuxFile(Config{InputFile: in, OutputFile: out, Range: "4:1", Repeat: 1}, avi.WithGuard(avi.Unconditional()))
	assert.ErrorIs(t, err, avi.ErrRange)

	err = remuxFile(Config{InputFile: in, OutputFile: out, Repeat: -1}, avi.WithGuard(avi.Unconditional()))
	assert.Error(t, err)
	assert.NoFileExists(t, out)
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.5 KB", formatBytes(1536))
	assert.Equal(t, "2.0 MB", formatBytes(2<<20))
	assert.Equal(t, "(none)", formatCodecName(""))
}
