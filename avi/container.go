package avi

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
)

// Container owns a private scratch copy of an AVI file and the Frames view
// over it. Changes made through the Container or its Frames only reach the
// filesystem through Output.
type Container struct {
	*slog.Logger
	file   *File
	frames *Frames
	opts   *options
	closed bool
}

// GlitchFunc receives the payload of a selected frame and says what to do
// with it.
type GlitchFunc func(data []byte) Edit

// GlitchIndexFunc is GlitchFunc with the index of the frame among the
// selected frames.
type GlitchIndexFunc func(data []byte, i int) Edit

// Open copies the file at path into scratch storage, validates it and
// parses its index.
func Open(path string, opts ...Option) (*Container, error) {
	return open(path, newOptions(opts))
}

func open(path string, o *options) (*Container, error) {
	src, err := OpenFile(path, os.O_RDONLY)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	file, err := TempFile()
	if err != nil {
		return nil, err
	}
	if _, err := copyStore(file, src); err != nil {
		file.Discard()
		return nil, err
	}

	if err := Validate(file); err != nil {
		file.Discard()
		return nil, err
	}

	frames, err := newFrames(file, o)
	if err != nil {
		file.Discard()
		return nil, err
	}

	o.logger.Debug("opened container", "src", path, "scratch", file.Path(), "frames", frames.Len())
	return &Container{
		Logger: o.logger,
		file:   file,
		frames: frames,
		opts:   o,
	}, nil
}

// Container returns a new Container over a copy of the collection's
// current state.
func (fs *Frames) Container() (*Container, error) {
	return open(fs.io.Path(), fs.opts)
}

// Frames returns the editable frame collection.
func (c *Container) Frames() *Frames { return c.frames }

// Output writes the current state to dst and, when closeAfter is set,
// closes the Container. The file is written next to dst and renamed into
// place, so dst is either the old file or the complete new one.
func (c *Container) Output(dst string, closeAfter bool) error {
	if c.closed {
		return &AVIError{Op: "output", Err: ErrClosed}
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".tmp-*")
	if err != nil {
		return &AVIError{Op: "output", Err: err}
	}
	tmpName := tmp.Name()
	commit := func() error {
		if _, err := copyStore(tmp, c.file); err != nil {
			return err
		}
		c.file.SeekTo(0)
		if err := tmp.Chmod(0o644); err != nil {
			return err
		}
		if err := tmp.Sync(); err != nil {
			return err
		}
		if err := tmp.Close(); err != nil {
			return err
		}
		return os.Rename(tmpName, dst)
	}
	if err := commit(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		var ae *AVIError
		if errors.As(err, &ae) {
			return err
		}
		return &AVIError{Op: "output", Err: err}
	}

	c.Debug("wrote container", "dst", dst, "frames", c.frames.Len())
	if closeAfter {
		return c.Close()
	}
	return nil
}

// Close releases the scratch store. Reads and edits through the Container
// or its Frames afterwards fail with ErrClosed, and the collection reports
// no frames.
func (c *Container) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.frames.entries = nil
	return c.file.Discard()
}

// Glitch calls fn with the payload of every frame selected by target.
// Other frames pass through unchanged.
func (c *Container) Glitch(target Target, fn GlitchFunc) error {
	return c.GlitchWithIndex(target, func(data []byte, _ int) Edit {
		return fn(data)
	})
}

// GlitchWithIndex is Glitch with the running index among selected frames.
func (c *Container) GlitchWithIndex(target Target, fn GlitchIndexFunc) error {
	if c.closed {
		return &AVIError{Op: "glitch", Err: ErrClosed}
	}
	i := 0
	return c.frames.Each(func(f *Frame, _ int) Edit {
		if !target.Match(f) {
			return Keep
		}
		edit := fn(f.Data, i)
		i++
		return edit
	})
}

// HasKeyframe reports whether any frame is currently a keyframe.
func (c *Container) HasKeyframe() bool {
	return c.frames.HasKeyframe()
}

// RemoveAllKeyframes drops every keyframe chunk.
func (c *Container) RemoveAllKeyframes() error {
	return c.Glitch(TargetKeyframe, func([]byte) Edit { return Remove() })
}

// MutateKeyframesIntoDeltaframes is Frames.MutateKeyframesIntoDeltaframes.
func (c *Container) MutateKeyframesIntoDeltaframes(indices ...int) error {
	if c.closed {
		return &AVIError{Op: "mutate keyframes", Err: ErrClosed}
	}
	return c.frames.MutateKeyframesIntoDeltaframes(indices...)
}

// SwapFrames replaces all frames with the frames of other.
func (c *Container) SwapFrames(other *Frames) error {
	if c.closed {
		return &AVIError{Op: "swap frames", Err: ErrClosed}
	}
	if other == nil {
		return &AVIError{Op: "swap frames", Err: ErrType}
	}
	if err := c.frames.Clear(); err != nil {
		return err
	}
	return c.frames.Concat(other)
}

// Info returns the stream headers of the container.
func (c *Container) Info() (*FileInfo, error) {
	if c.closed {
		return nil, &AVIError{Op: "info", Err: ErrClosed}
	}
	defer c.file.SeekTo(0)
	return Probe(c.file)
}

// Streams returns the streams declared in the hdrl list.
func (c *Container) Streams() ([]Stream, error) {
	info, err := c.Info()
	if err != nil {
		return nil, err
	}
	return info.Streams, nil
}
