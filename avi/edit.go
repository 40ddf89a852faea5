package avi

import (
	"fmt"

	"github.com/samber/lo"
)

type editOp int

const (
	opKeep editOp = iota
	opRemove
	opReplace
)

// Edit tells Frames.Each what to do with the frame it just visited.
type Edit struct {
	op   editOp
	data []byte
}

// Keep writes the frame back as the callback left it: a changed ID, Flag or
// Data on the *Frame takes effect.
var Keep = Edit{}

// Remove drops the chunk from the rewritten file.
func Remove() Edit { return Edit{op: opRemove} }

// Replace keeps the chunk with data as its new payload. A nil or empty
// slice keeps the chunk with a zero-length payload; it never removes it.
func Replace(data []byte) Edit {
	if data == nil {
		data = []byte{}
	}
	return Edit{op: opReplace, data: data}
}

// EditFunc is called by Frames.Each with each frame and its index.
type EditFunc func(f *Frame, i int) Edit

// Segment is a Frame or a Frames. It is what SliceSave returns and what
// Splice accepts as replacements.
type Segment interface {
	segment()
}

// Each visits every frame in order and rewrites the file from what fn
// returns. Every index entry from before the call is invalid afterwards.
func (fs *Frames) Each(fn EditFunc) error {
	temp, err := TempFile()
	if err != nil {
		return err
	}
	defer temp.Discard()

	entries, err := fs.dataTo(temp, fn)
	if err != nil {
		return err
	}
	return fs.overwrite(temp, entries)
}

// dataTo streams the chunks that survive fn into dst as RIFF sub-chunks
// and returns their entries, with offsets relative to a movi tag that will
// precede dst. The receiver's entries are left untouched.
func (fs *Frames) dataTo(dst *File, fn EditFunc) ([]IndexEntry, error) {
	kept := make([]IndexEntry, 0, len(fs.entries))
	for i, m := range fs.entries {
		frame, err := fs.read(m)
		if err != nil {
			return nil, err
		}
		if fn != nil {
			edit := fn(frame, i)
			switch edit.op {
			case opRemove:
				continue
			case opReplace:
				frame.Data = edit.data
			}
		}
		e, err := writeChunk(dst, frame)
		if err != nil {
			return nil, err
		}
		kept = append(kept, e)
	}
	return kept, nil
}

// writeChunk appends frame at the cursor of dst and returns its entry.
func writeChunk(dst *File, frame *Frame) (IndexEntry, error) {
	e := frame.entry()
	e.Offset = uint32(dst.Pos()) + 4 // 4 for 'movi'

	if _, err := dst.Write(WriteChunkHeader(ChunkHeader{ID: e.ChunkID, Size: e.Size})); err != nil {
		return e, err
	}
	if _, err := dst.Write(frame.Data); err != nil {
		return e, err
	}
	if len(frame.Data)%2 == 1 {
		if _, err := dst.Write([]byte{0}); err != nil {
			return e, err
		}
	}
	return e, nil
}

// overwrite replaces the movi data and the idx1 index with data and
// entries, truncates the file and patches the header counters. entries
// become the receiver's entries once everything is written.
func (fs *Frames) overwrite(data *File, entries []IndexEntry) error {
	if err := checkCapacity(fs.opts.guard, len(entries)); err != nil {
		return err
	}

	dataSize, err := data.Size()
	if err != nil {
		return err
	}

	w := fs.io
	w.SeekTo(fs.moviPos - 4) // 4 for size
	if err := w.WriteUint32(uint32(dataSize) + 4); err != nil {
		return err
	}
	if err := w.WriteString(MOVIList); err != nil {
		return err
	}
	if _, err := copyStore(w, data); err != nil {
		return err
	}

	fs.idx1Pos = w.Pos()
	if err := w.WriteString(IDX1Chunk); err != nil {
		return err
	}
	if err := w.WriteUint32(uint32(len(entries) * indexEntrySize)); err != nil {
		return err
	}
	index := make([]byte, 0, len(entries)*indexEntrySize)
	for _, m := range entries {
		index = m.appendBinary(index)
	}
	if _, err := w.Write(index); err != nil {
		return err
	}

	eof := w.Pos()
	if err := w.Truncate(eof); err != nil {
		return err
	}

	w.SeekTo(riffSizeOffset)
	if err := w.WriteUint32(uint32(eof - 8)); err != nil {
		return err
	}
	w.SeekTo(totalFramesOffset)
	if err := w.WriteUint32(uint32(lo.CountBy(entries, IndexEntry.IsVideo))); err != nil {
		return err
	}
	w.SeekTo(0)

	fs.entries = entries
	fs.Debug("rewrote container", "path", w.Path(), "entries", len(entries), "movi_bytes", dataSize, "size", eof)
	return nil
}

// Clear removes all frames.
func (fs *Frames) Clear() error {
	temp, err := TempFile()
	if err != nil {
		return err
	}
	defer temp.Discard()

	return fs.overwrite(temp, nil)
}

// Concat appends the frames of other after the receiver's. other is not
// modified.
func (fs *Frames) Concat(other *Frames) error {
	if other == nil {
		return &AVIError{Op: "concat", Err: fmt.Errorf("%w: want *Frames", ErrType)}
	}

	thisData, err := TempFile()
	if err != nil {
		return err
	}
	defer thisData.Discard()
	otherData, err := TempFile()
	if err != nil {
		return err
	}
	defer otherData.Discard()

	thisEntries, err := fs.dataTo(thisData, nil)
	if err != nil {
		return err
	}
	otherEntries, err := other.dataTo(otherData, nil)
	if err != nil {
		return err
	}

	thisSize, err := thisData.Size()
	if err != nil {
		return err
	}
	thisData.SeekTo(thisSize)
	if _, err := copyStore(thisData, otherData); err != nil {
		return err
	}

	for _, m := range otherEntries {
		m.Offset += uint32(thisSize)
		thisEntries = append(thisEntries, m)
	}
	return fs.overwrite(thisData, thisEntries)
}

// Push appends frame.
func (fs *Frames) Push(frame *Frame) error {
	if frame == nil {
		return &AVIError{Op: "push", Err: fmt.Errorf("%w: want *Frame", ErrType)}
	}

	thisData, err := TempFile()
	if err != nil {
		return err
	}
	defer thisData.Discard()

	entries, err := fs.dataTo(thisData, nil)
	if err != nil {
		return err
	}
	e, err := writeChunk(thisData, frame)
	if err != nil {
		return err
	}
	return fs.overwrite(thisData, append(entries, e))
}

// Range is an inclusive pair of bounds. A negative Last counts from the
// end, so Range{3, -1} selects from 3 up to the one before last.
type Range struct {
	First, Last int
}

func (r Range) bounds() (head, tail int) {
	head, tail = r.First, r.Last+1
	if tail <= 0 {
		tail--
	}
	return head, tail
}

// HeadAndTail resolves a head and an optional exclusive tail against the
// current length. Negative values count from the end; without a tail the
// range runs to the end. A tail before the head is a range error.
func (fs *Frames) HeadAndTail(head int, tail ...int) (int, int, error) {
	n := len(fs.entries)
	if head < 0 {
		head += n
	}
	t := max(n, head)
	if len(tail) > 0 {
		t = tail[0]
		if t < 0 {
			t += n
		}
	}
	if t < head {
		return 0, 0, &AVIError{Op: "slice", Err: fmt.Errorf("%w: [%d, %d)", ErrRange, head, t)}
	}
	t = min(max(t, 0), n)
	return min(max(head, 0), t), t, nil
}

// Slice returns a new collection, backed by a new Container, holding the
// frames in [head, tail). Negative bounds count from the end.
func (fs *Frames) Slice(head, tail int) (*Frames, error) {
	h, t, err := fs.HeadAndTail(head, tail)
	if err != nil {
		return nil, err
	}
	return fs.slice(h, t)
}

// SliceFrom returns a new collection with every frame from head on.
func (fs *Frames) SliceFrom(head int) (*Frames, error) {
	h, t, err := fs.HeadAndTail(head)
	if err != nil {
		return nil, err
	}
	return fs.slice(h, t)
}

// SliceRange is Slice with inclusive bounds; see Range.
func (fs *Frames) SliceRange(r Range) (*Frames, error) {
	return fs.Slice(r.bounds())
}

func (fs *Frames) slice(head, tail int) (*Frames, error) {
	c, err := fs.Container()
	if err != nil {
		return nil, err
	}
	err = c.frames.Each(func(_ *Frame, i int) Edit {
		if head <= i && i < tail {
			return Keep
		}
		return Remove()
	})
	if err != nil {
		c.frames.release()
		return nil, err
	}
	return c.frames, nil
}

// release discards the backing store of an intermediate collection.
func (fs *Frames) release() {
	fs.io.Discard()
}

// SliceSave removes the frames in [head, tail) from the receiver and
// returns them: a *Frame when exactly one frame was removed, a *Frames
// otherwise.
func (fs *Frames) SliceSave(head, tail int) (Segment, error) {
	h, t, err := fs.HeadAndTail(head, tail)
	if err != nil {
		return nil, err
	}
	return fs.sliceSave(h, t)
}

// SliceSaveRange is SliceSave with inclusive bounds; see Range.
func (fs *Frames) SliceSaveRange(r Range) (Segment, error) {
	return fs.SliceSave(r.bounds())
}

func (fs *Frames) sliceSave(head, tail int) (Segment, error) {
	var sliced Segment
	if tail-head == 1 {
		f, err := fs.At(head)
		if err != nil {
			return nil, err
		}
		sliced = f
	} else {
		s, err := fs.slice(head, tail)
		if err != nil {
			return nil, err
		}
		sliced = s
	}

	header, err := fs.slice(0, head)
	if err != nil {
		return nil, err
	}
	defer header.release()
	footer, err := fs.slice(tail, len(fs.entries))
	if err != nil {
		return nil, err
	}
	defer footer.release()
	if err := fs.replaceWith(header, footer); err != nil {
		return nil, err
	}
	return sliced, nil
}

// replaceWith clears the receiver and concatenates parts into it.
func (fs *Frames) replaceWith(parts ...*Frames) error {
	if err := fs.Clear(); err != nil {
		return err
	}
	for _, p := range parts {
		if err := fs.Concat(p); err != nil {
			return err
		}
	}
	return nil
}

// Splice removes count frames starting at index and inserts replacements,
// each a *Frame or a *Frames, in their place.
func (fs *Frames) Splice(index, count int, replacements ...Segment) error {
	for _, r := range replacements {
		switch v := r.(type) {
		case *Frame:
			if v == nil {
				return &AVIError{Op: "splice", Err: fmt.Errorf("%w: nil frame", ErrType)}
			}
		case *Frames:
			if v == nil {
				return &AVIError{Op: "splice", Err: fmt.Errorf("%w: nil frames", ErrType)}
			}
		default:
			return &AVIError{Op: "splice", Err: fmt.Errorf("%w: cannot splice frames with %T", ErrType, r)}
		}
	}
	if count < 0 {
		return &AVIError{Op: "splice", Err: fmt.Errorf("%w: negative count %d", ErrRange, count)}
	}

	if index < 0 {
		index = max(index+len(fs.entries), 0)
	}
	head, tail, err := fs.HeadAndTail(index, index+count)
	if err != nil {
		return err
	}
	header, err := fs.slice(0, head)
	if err != nil {
		return err
	}
	defer header.release()
	footer, err := fs.slice(tail, len(fs.entries))
	if err != nil {
		return err
	}
	defer footer.release()

	for _, r := range replacements {
		switch v := r.(type) {
		case *Frame:
			err = header.Push(v)
		case *Frames:
			err = header.Concat(v)
		}
		if err != nil {
			return err
		}
	}
	return fs.replaceWith(header, footer)
}

// Add returns a new collection holding the receiver's frames followed by
// other's. Neither operand is modified.
func (fs *Frames) Add(other *Frames) (*Frames, error) {
	if other == nil {
		return nil, &AVIError{Op: "add", Err: fmt.Errorf("%w: want *Frames", ErrType)}
	}
	c, err := fs.Container()
	if err != nil {
		return nil, err
	}
	if err := c.frames.Concat(other); err != nil {
		c.frames.release()
		return nil, err
	}
	return c.frames, nil
}

// Mul returns a new collection repeating the receiver's frames times times.
func (fs *Frames) Mul(times int) (*Frames, error) {
	if times < 0 {
		return nil, &AVIError{Op: "mul", Err: fmt.Errorf("%w: negative times %d", ErrRange, times)}
	}
	result, err := fs.slice(0, 0)
	if err != nil {
		return nil, err
	}
	for i := 0; i < times; i++ {
		if err := result.Concat(fs); err != nil {
			result.release()
			return nil, err
		}
	}
	return result, nil
}

// Insert inserts frames at index n, shifting later frames.
func (fs *Frames) Insert(n int, frames ...*Frame) error {
	if lo.Contains(frames, nil) {
		return &AVIError{Op: "insert", Err: fmt.Errorf("%w: nil frame", ErrType)}
	}
	head, _, err := fs.HeadAndTail(n)
	if err != nil {
		return err
	}
	newFrames, err := fs.slice(0, head)
	if err != nil {
		return err
	}
	defer newFrames.release()
	for _, f := range frames {
		if err := newFrames.Push(f); err != nil {
			return err
		}
	}
	footer, err := fs.slice(head, len(fs.entries))
	if err != nil {
		return err
	}
	defer footer.release()
	if err := newFrames.Concat(footer); err != nil {
		return err
	}
	return fs.replaceWith(newFrames)
}

// DeleteAt removes and returns the frame at index n.
func (fs *Frames) DeleteAt(n int) (*Frame, error) {
	if n < 0 {
		n += len(fs.entries)
	}
	if n < 0 || n >= len(fs.entries) {
		return nil, &AVIError{Op: "delete", Err: fmt.Errorf("%w: index %d of %d", ErrRange, n, len(fs.entries))}
	}
	s, err := fs.sliceSave(n, n+1)
	if err != nil {
		return nil, err
	}
	return s.(*Frame), nil
}

// MutateKeyframesIntoDeltaframes turns keyframes into deltaframes by
// zeroing their flags. With indices, only frames at those indices are
// considered; without, all frames are.
func (fs *Frames) MutateKeyframesIntoDeltaframes(indices ...int) error {
	var selected map[int]struct{}
	if len(indices) > 0 {
		selected = lo.Associate(indices, func(i int) (int, struct{}) { return i, struct{}{} })
	}
	return fs.Each(func(f *Frame, i int) Edit {
		if selected != nil {
			if _, ok := selected[i]; !ok {
				return Keep
			}
		}
		if f.IsKeyframe() {
			f.Flag = 0
			return Replace(f.Data)
		}
		return Keep
	})
}
