package avi

import (
	"encoding/binary"
	"errors"
	"fmt"
	"regexp"
)

// AVI Format Constants
const (
	// RIFF chunk identifiers
	RIFFSignature = "RIFF"
	AVISignature  = "AVI "
	LISTSignature = "LIST"
	JUNKSignature = "JUNK"

	// AVI List types
	HDRLList = "hdrl"
	STRLList = "strl"
	MOVIList = "movi"

	// Chunk types
	AVIHChunk = "avih"
	STRHChunk = "strh"
	STRFChunk = "strf"
	IDX1Chunk = "idx1"

	// Stream types
	STREAMTypeVideo = "vids"
	STREAMTypeAudio = "auds"
)

// Layout of the fields patched on every rewrite.
const (
	riffPrologueSize   = 12
	riffSizeOffset     = 4
	totalFramesOffset  = 48
	chunkHeaderSize    = 8
	indexEntrySize     = 16
	keyframeFlag       = 0x10 // AVIIF_KEYFRAME
	mainHeaderSize     = 56
	streamHeaderSize   = 56
	bitmapInfoSize     = 40
	waveFormatBaseSize = 16
)

// BufferSize bounds every bulk copy between stores.
const BufferSize = 1 << 24

// SafeFramesCount is the entry count at which the capacity guard is consulted.
const SafeFramesCount = 150000

var (
	videoChunkPattern = regexp.MustCompile(`^..d[bc]$`)
	audioChunkPattern = regexp.MustCompile(`^..wb$`)
)

// RIFFHeader represents the main RIFF header
type RIFFHeader struct {
	Signature [4]byte // "RIFF"
	FileSize  uint32  // File size minus 8 bytes
	Type      [4]byte // "AVI "
}

// ChunkHeader represents a generic chunk header
type ChunkHeader struct {
	ID   [4]byte // Chunk identifier
	Size uint32  // Chunk data size
}

// LISTHeader represents a LIST chunk header
type LISTHeader struct {
	ChunkHeader
	Type [4]byte // List type
}

// MakeChunkID builds a stream chunk id such as "00dc" or "01wb".
func MakeChunkID(streamIndex int, twoCC string) [4]byte {
	var id [4]byte
	id[0] = byte('0' + (streamIndex / 10))
	id[1] = byte('0' + (streamIndex % 10))
	id[2] = twoCC[0]
	id[3] = twoCC[1]
	return id
}

func ChunkIDToString(id [4]byte) string {
	return string(id[:])
}

func StringToChunkID(s string) [4]byte {
	var id [4]byte
	copy(id[:], s)
	return id
}

func WriteChunkHeader(header ChunkHeader) []byte {
	data := make([]byte, chunkHeaderSize)
	copy(data[0:4], header.ID[:])
	binary.LittleEndian.PutUint32(data[4:8], header.Size)
	return data
}

func AlignSize(size uint32) uint32 {
	return (size + 1) &^ 1 // Align to even boundary
}

// IsVideoChunkID reports whether id names a video chunk (..db or ..dc).
func IsVideoChunkID(id string) bool {
	return videoChunkPattern.MatchString(id)
}

// IsAudioChunkID reports whether id names an audio chunk (..wb).
func IsAudioChunkID(id string) bool {
	return audioChunkPattern.MatchString(id)
}

func IsVideoStream(streamType [4]byte) bool {
	return string(streamType[:]) == STREAMTypeVideo
}

func IsAudioStream(streamType [4]byte) bool {
	return string(streamType[:]) == STREAMTypeAudio
}

var (
	// ErrUnsupported is the cause of every FormatError.
	ErrUnsupported = errors.New("unsupported file")
	// ErrType reports an argument of the wrong kind, such as a nil Frame.
	ErrType = errors.New("invalid argument type")
	// ErrRange reports inverted or otherwise invalid bounds.
	ErrRange = errors.New("wrong range passed")
	// ErrClosed reports use of a store or container after Close.
	ErrClosed = errors.New("file already closed")
	// ErrCapacity reports that the capacity guard declined to continue.
	ErrCapacity = errors.New("too many frames")
)

// AVIError wraps an underlying failure with the operation that hit it.
type AVIError struct {
	Op  string
	Err error
}

func (e *AVIError) Error() string {
	return fmt.Sprintf("avi: %s: %v", e.Op, e.Err)
}

func (e *AVIError) Unwrap() error {
	return e.Err
}

// FormatError is returned when a file fails structural validation.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	if e.Reason == "" {
		return "avi: unsupported file passed"
	}
	return fmt.Sprintf("avi: unsupported file passed: %s", e.Reason)
}

func (e *FormatError) Unwrap() error {
	return ErrUnsupported
}
