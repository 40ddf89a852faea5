package avi

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/samber/lo"
)

// Option configures a Container and the Frames built over it.
type Option func(*options)

type options struct {
	logger *slog.Logger
	guard  Guard
}

// WithLogger sets the logger used for structural events.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithGuard sets the policy consulted for oversized collections.
func WithGuard(g Guard) Option {
	return func(o *options) { o.guard = g }
}

// DefaultGuard is used when no WithGuard option is given. It asks on the
// terminal, and once affirmed it stays affirmed for the whole process.
var DefaultGuard Guard = NewPrompt(os.Stdin, os.Stderr)

func newOptions(opts []Option) *options {
	o := &options{logger: slog.Default(), guard: DefaultGuard}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Frames is the editable, index-driven view over the chunks of one AVI
// file. The idx1 entries are the single source of truth: entry order is the
// order chunks are written on the next rewrite.
type Frames struct {
	*slog.Logger
	io      *File
	opts    *options
	entries []IndexEntry
	moviPos int64 // position of the movi tag
	idx1Pos int64 // position of the idx1 tag
}

// newFrames parses the index of a validated file.
func newFrames(f *File, opts *options) (*Frames, error) {
	fs := &Frames{
		Logger: opts.logger,
		io:     f,
		opts:   opts,
	}
	if err := fs.parse(); err != nil {
		return nil, err
	}
	return fs, nil
}

func (fs *Frames) parse() error {
	r := fs.io
	r.SeekTo(riffPrologueSize)

	for {
		tag, err := r.ReadFourCC()
		if err != nil {
			return err
		}
		if tag != LISTSignature && tag != JUNKSignature {
			break
		}
		size, err := r.ReadUint32()
		if err != nil {
			return err
		}
		listType, err := r.ReadFourCC()
		if err != nil {
			return err
		}
		if listType == MOVIList {
			fs.moviPos = r.Pos() - 4
		}
		r.Move(int64(size) - 4)
	}

	fs.idx1Pos = r.Pos() - 4 // here must be idx1
	size, err := r.ReadUint32()
	if err != nil {
		return err
	}
	end := int64(size) + r.Pos()

	fs.entries = fs.entries[:0]
	for {
		id, err := r.ReadFourCC()
		if err != nil {
			return err
		}
		if len(id) == 0 || r.Pos() >= end {
			break
		}
		e := IndexEntry{ChunkID: StringToChunkID(id)}
		if e.Flags, err = r.ReadUint32(); err != nil {
			return err
		}
		if e.Offset, err = r.ReadUint32(); err != nil {
			return err
		}
		if e.Size, err = r.ReadUint32(); err != nil {
			return err
		}
		fs.entries = append(fs.entries, e)
	}

	if err := fs.fixOffsetsIfNeeded(); err != nil {
		return err
	}
	if err := checkCapacity(fs.opts.guard, len(fs.entries)); err != nil {
		return err
	}

	r.SeekTo(0)
	fs.Debug("parsed index", "path", r.Path(), "entries", len(fs.entries), "movi", fs.moviPos, "idx1", fs.idx1Pos)
	return nil
}

// fixOffsetsIfNeeded rebases offsets that some encoders store relative to
// the start of the file instead of the movi tag.
func (fs *Frames) fixOffsetsIfNeeded() error {
	if len(fs.entries) == 0 {
		return nil
	}
	pos := fs.io.Pos()
	defer fs.io.SeekTo(pos)

	m0 := fs.entries[0]
	fs.io.SeekTo(fs.moviPos + int64(m0.Offset))
	id, err := fs.io.ReadFourCC()
	if err != nil {
		return err
	}
	if id != m0.ID() {
		fs.Debug("rebasing absolute idx1 offsets", "movi", fs.moviPos)
		for i := range fs.entries {
			fs.entries[i].Offset -= uint32(fs.moviPos)
		}
	}
	return nil
}

// Len returns the number of frames.
func (fs *Frames) Len() int { return len(fs.entries) }

// SizeOf returns the number of frames selected by target.
func (fs *Frames) SizeOf(target Target) int {
	return lo.CountBy(fs.entries, target.matchEntry)
}

// Entries returns a copy of the index entries in order.
func (fs *Frames) Entries() []IndexEntry {
	return append([]IndexEntry(nil), fs.entries...)
}

// At returns the frame at index n, or nil when n is out of range.
func (fs *Frames) At(n int) (*Frame, error) {
	if n < 0 || n >= len(fs.entries) {
		return nil, nil
	}
	f, err := fs.read(fs.entries[n])
	fs.io.SeekTo(0)
	return f, err
}

// First returns the first frame, or nil for an empty collection.
func (fs *Frames) First() (*Frame, error) { return fs.At(0) }

// Last returns the last frame, or nil for an empty collection.
func (fs *Frames) Last() (*Frame, error) { return fs.At(fs.Len() - 1) }

func (fs *Frames) read(e IndexEntry) (*Frame, error) {
	fs.io.SeekTo(fs.moviPos + int64(e.Offset) + chunkHeaderSize)
	data, err := fs.io.ReadBytes(int(e.Size))
	if err != nil {
		return nil, err
	}
	return NewFrame(data, e.ID(), e.Flags), nil
}

// Equal reports whether both collections hold the same ordered
// (id, flag, offset, size) entries. Payloads are not compared.
func (fs *Frames) Equal(other *Frames) bool {
	if other == nil || len(fs.entries) != len(other.entries) {
		return false
	}
	for i, e := range fs.entries {
		if e != other.entries[i] {
			return false
		}
	}
	return true
}

// HasKeyframe reports whether any frame is currently a keyframe.
func (fs *Frames) HasKeyframe() bool {
	return lo.ContainsBy(fs.entries, IndexEntry.IsKeyframe)
}

func (fs *Frames) videoCount() int {
	return lo.CountBy(fs.entries, IndexEntry.IsVideo)
}

func (fs *Frames) String() string {
	return fmt.Sprintf("Frames{path=%s size=%d}", fs.io.Path(), fs.Len())
}

func (fs *Frames) segment() {}
