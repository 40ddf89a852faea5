package avi

import "fmt"

// Kind classifies a chunk by its stream identifier.
type Kind int

const (
	KindOther Kind = iota
	KindVideo
	KindAudio
)

func (k Kind) String() string {
	switch k {
	case KindVideo:
		return "video"
	case KindAudio:
		return "audio"
	default:
		return "other"
	}
}

// KindOf derives the Kind of a chunk identifier such as "00dc" or "01wb".
func KindOf(id string) Kind {
	switch {
	case IsVideoChunkID(id):
		return KindVideo
	case IsAudioChunkID(id):
		return KindAudio
	default:
		return KindOther
	}
}

// Frame is one media chunk: its payload plus the metadata taken from idx1.
// A Frame is a detached copy; changing it has no effect on the file unless
// it is handed back through Frames.Each or one of the edit operations.
type Frame struct {
	Data []byte
	ID   string
	Flag uint32
}

// NewFrame builds a Frame. A nil payload becomes an empty one.
func NewFrame(data []byte, id string, flag uint32) *Frame {
	if data == nil {
		data = []byte{}
	}
	return &Frame{Data: data, ID: id, Flag: flag}
}

func (f *Frame) segment() {}

// Kind returns the classification derived from ID.
func (f *Frame) Kind() Kind { return KindOf(f.ID) }

// IsVideoFrame reports whether the frame belongs to a video stream.
func (f *Frame) IsVideoFrame() bool { return f.Kind() == KindVideo }

// IsAudioFrame reports whether the frame belongs to an audio stream.
func (f *Frame) IsAudioFrame() bool { return f.Kind() == KindAudio }

// IsKeyframe reports whether the frame is a video keyframe.
func (f *Frame) IsKeyframe() bool {
	return f.IsVideoFrame() && f.Flag&keyframeFlag != 0
}

// IsDeltaframe reports whether the frame is a video frame without the
// keyframe bit.
func (f *Frame) IsDeltaframe() bool {
	return f.IsVideoFrame() && f.Flag&keyframeFlag == 0
}

// IsIFrame is an alias for IsKeyframe.
func (f *Frame) IsIFrame() bool { return f.IsKeyframe() }

// IsPFrame is an alias for IsDeltaframe.
func (f *Frame) IsPFrame() bool { return f.IsDeltaframe() }

func (f *Frame) String() string {
	return fmt.Sprintf("Frame{id=%s flag=0x%x size=%d}", f.ID, f.Flag, len(f.Data))
}

func (f *Frame) entry() IndexEntry {
	return IndexEntry{
		ChunkID: StringToChunkID(f.ID),
		Flags:   f.Flag,
		Size:    uint32(len(f.Data)),
	}
}
