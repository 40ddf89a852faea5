package avi

import (
	"encoding/binary"
	"io"
	"time"
)

// StreamType represents the type of media stream
type StreamType string

const (
	StreamTypeVideo StreamType = "video"
	StreamTypeAudio StreamType = "audio"
)

// Codec represents codec information
type Codec struct {
	Name       string
	FourCC     [4]byte
	Type       StreamType
	Width      int     // for video
	Height     int     // for video
	FPS        float64 // for video
	Channels   int     // for audio
	SampleRate int     // for audio
	BitDepth   int     // for audio
}

// Stream represents a media stream declared in the hdrl list
type Stream struct {
	Index    int
	Type     StreamType
	Codec    Codec
	Duration time.Duration
	Length   int // frames (or samples) declared by strh
}

// FileInfo contains the header metadata of an AVI file
type FileInfo struct {
	Duration     time.Duration
	TotalFrames  int
	Streams      []Stream
	VideoStreams int
	AudioStreams int
}

// AVIMainHeader represents the main AVI header (avih chunk)
type AVIMainHeader struct {
	MicroSecPerFrame    uint32    // Frame display rate
	MaxBytesPerSec      uint32    // Maximum data rate
	PaddingGranularity  uint32    // Data alignment
	Flags               uint32    // File flags
	TotalFrames         uint32    // Total number of frames
	InitialFrames       uint32    // Initial frames for interleaved files
	Streams             uint32    // Number of streams
	SuggestedBufferSize uint32    // Suggested buffer size
	Width               uint32    // Video width
	Height              uint32    // Video height
	Reserved            [4]uint32 // Reserved fields
}

// AVIStreamHeader represents a stream header (strh chunk)
type AVIStreamHeader struct {
	Type                [4]byte // Stream type (vids, auds, etc.)
	Handler             [4]byte // Codec handler
	Flags               uint32  // Stream flags
	Priority            uint16  // Stream priority
	Language            uint16  // Language
	InitialFrames       uint32  // Initial frames
	Scale               uint32  // Time scale
	Rate                uint32  // Sample rate
	Start               uint32  // Start time
	Length              uint32  // Stream length
	SuggestedBufferSize uint32  // Suggested buffer size
	Quality             uint32  // Quality
	SampleSize          uint32  // Sample size
	Frame               struct { // Frame rectangle
		Left   uint16
		Top    uint16
		Right  uint16
		Bottom uint16
	}
}

// BitmapInfoHeader represents video format info
type BitmapInfoHeader struct {
	Size          uint32  // Structure size
	Width         int32   // Image width
	Height        int32   // Image height
	Planes        uint16  // Number of planes
	BitCount      uint16  // Bits per pixel
	Compression   [4]byte // Compression type
	SizeImage     uint32  // Image size
	XPelsPerMeter int32   // Horizontal resolution
	YPelsPerMeter int32   // Vertical resolution
	ClrUsed       uint32  // Colors used
	ClrImportant  uint32  // Important colors
}

// WaveFormat represents PCM audio format info (strf chunk without cbSize)
type WaveFormat struct {
	FormatTag      uint16 // Audio format
	Channels       uint16 // Number of channels
	SamplesPerSec  uint32 // Sample rate
	AvgBytesPerSec uint32 // Average bytes per second
	BlockAlign     uint16 // Block alignment
	BitsPerSample  uint16 // Bits per sample
}

// IndexEntry is one idx1 record. Offset is relative to the movi tag.
type IndexEntry struct {
	ChunkID [4]byte // Chunk identifier
	Flags   uint32  // Flags
	Offset  uint32  // Offset from the movi tag
	Size    uint32  // Payload size, padding excluded
}

// ID returns the chunk identifier as a string.
func (e IndexEntry) ID() string {
	return ChunkIDToString(e.ChunkID)
}

// IsVideo reports whether the entry indexes a video chunk.
func (e IndexEntry) IsVideo() bool {
	return IsVideoChunkID(e.ID())
}

// IsKeyframe reports whether the entry indexes a video keyframe.
func (e IndexEntry) IsKeyframe() bool {
	return e.IsVideo() && e.Flags&keyframeFlag != 0
}

func (e IndexEntry) appendBinary(b []byte) []byte {
	b = append(b, e.ChunkID[:]...)
	b = binary.LittleEndian.AppendUint32(b, e.Flags)
	b = binary.LittleEndian.AppendUint32(b, e.Offset)
	return binary.LittleEndian.AppendUint32(b, e.Size)
}

// Muxer interface for writing AVI files
type Muxer interface {
	// Create creates a new AVI writer
	Create(w io.WriteSeeker) error

	// CreateFile creates a new AVI file for writing (convenience method)
	CreateFile(filename string) error

	// AddStream adds a new stream to the file
	AddStream(codec Codec) (int, error)

	// WriteFrame queues a frame for the movi list
	WriteFrame(frame *Frame) error

	// Finalize finalizes the file (writes headers, indices)
	Finalize() error

	// Close closes the writer
	Close() error
}

// Writer wraps an io.WriteSeeker for AVI writing
type Writer struct {
	w        io.WriteSeeker
	filename string
	streams  []Stream
	frames   []*Frame
}
