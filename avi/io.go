package avi

import (
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

// File is a random-access byte store over a real file. It keeps its own
// cursor, so a File must not be shared between readers without external
// synchronization.
type File struct {
	f      *os.File
	path   string
	pos    int64
	closed bool
}

// OpenFile opens name with the given os flags and positions the cursor at 0.
func OpenFile(name string, flag int) (*File, error) {
	f, err := os.OpenFile(name, flag, 0o644)
	if err != nil {
		return nil, &AVIError{Op: "open", Err: err}
	}
	return &File{f: f, path: name}, nil
}

// Path returns the path the store was opened from.
func (f *File) Path() string { return f.path }

// Pos returns the cursor position.
func (f *File) Pos() int64 { return f.pos }

// SeekTo moves the cursor to an absolute position without I/O.
func (f *File) SeekTo(pos int64) { f.pos = pos }

// Move moves the cursor by delta bytes without I/O.
func (f *File) Move(delta int64) { f.pos += delta }

// Seek implements io.Seeker.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	var newPos int64

	switch whence {
	case io.SeekStart:
		newPos = offset
	case io.SeekCurrent:
		newPos = f.pos + offset
	case io.SeekEnd:
		size, err := f.Size()
		if err != nil {
			return 0, err
		}
		newPos = size + offset
	default:
		return 0, &AVIError{Op: "seek", Err: errors.New("invalid seek whence")}
	}

	if newPos < 0 {
		return 0, &AVIError{Op: "seek", Err: errors.New("seek before start of file")}
	}

	f.pos = newPos
	return newPos, nil
}

// Size returns the current length of the underlying file.
func (f *File) Size() (int64, error) {
	if f.closed {
		return 0, ErrClosed
	}
	stat, err := f.f.Stat()
	if err != nil {
		return 0, &AVIError{Op: "stat", Err: err}
	}
	return stat.Size(), nil
}

// Read implements io.Reader.
func (f *File) Read(p []byte) (int, error) {
	if f.closed {
		return 0, ErrClosed
	}
	n, err := f.f.ReadAt(p, f.pos)
	f.pos += int64(n)
	if n > 0 && errors.Is(err, io.EOF) {
		err = nil
	}
	return n, err
}

// ReadBytes reads up to n bytes. Near the end of the file it returns fewer
// bytes, possibly none, without an error.
func (f *File) ReadBytes(n int) ([]byte, error) {
	if f.closed {
		return nil, ErrClosed
	}
	if n <= 0 || f.pos < 0 {
		return []byte{}, nil
	}
	size, err := f.Size()
	if err != nil {
		return nil, err
	}
	if rest := size - f.pos; int64(n) > rest {
		n = int(max(rest, 0))
	}
	buf := make([]byte, n)
	m, err := f.f.ReadAt(buf, f.pos)
	f.pos += int64(m)
	if err != nil && !errors.Is(err, io.EOF) {
		return buf[:m], &AVIError{Op: "read", Err: err}
	}
	return buf[:m], nil
}

// ReadUint32 reads a little-endian uint32.
func (f *File) ReadUint32() (uint32, error) {
	b, err := f.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	if len(b) < 4 {
		return 0, &AVIError{Op: "read uint32", Err: io.ErrUnexpectedEOF}
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadString reads up to n bytes as ASCII.
func (f *File) ReadString(n int) (string, error) {
	b, err := f.ReadBytes(n)
	return string(b), err
}

// ReadFourCC reads a chunk tag. At the end of the file the tag is shorter
// than four bytes, usually empty.
func (f *File) ReadFourCC() (string, error) {
	return f.ReadString(4)
}

// Write implements io.Writer, growing the file as needed.
func (f *File) Write(p []byte) (int, error) {
	if f.closed {
		return 0, ErrClosed
	}
	n, err := f.f.WriteAt(p, f.pos)
	f.pos += int64(n)
	if err != nil {
		return n, &AVIError{Op: "write", Err: err}
	}
	return n, nil
}

// WriteUint32 writes a little-endian uint32.
func (f *File) WriteUint32(v uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	_, err := f.Write(b[:])
	return err
}

// WriteString writes s as raw bytes.
func (f *File) WriteString(s string) error {
	_, err := f.Write([]byte(s))
	return err
}

// Truncate changes the file length. The cursor is left where it is.
func (f *File) Truncate(size int64) error {
	if f.closed {
		return ErrClosed
	}
	if err := f.f.Truncate(size); err != nil {
		return &AVIError{Op: "truncate", Err: err}
	}
	return nil
}

// Close releases the descriptor. Closing twice is a no-op.
func (f *File) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	if err := f.f.Close(); err != nil {
		return &AVIError{Op: "close", Err: err}
	}
	return nil
}

// Discard closes the store and removes its file.
func (f *File) Discard() error {
	err := f.Close()
	if rmErr := os.Remove(f.path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) && err == nil {
		err = &AVIError{Op: "remove", Err: rmErr}
	}
	return err
}

// copyStore appends everything in src, from position 0, to dst at its
// cursor, BufferSize bytes at a time.
func copyStore(dst io.Writer, src *File) (int64, error) {
	src.SeekTo(0)
	var total int64
	for {
		d, err := src.ReadBytes(BufferSize)
		if err != nil {
			return total, err
		}
		if len(d) == 0 {
			return total, nil
		}
		n, err := dst.Write(d)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
}

var scratch struct {
	mu  sync.Mutex
	dir string
	seq int64
}

// TempFile allocates an anonymous scratch store. Every scratch store lives
// in one directory created on first use and removed by RemoveTemp.
func TempFile() (*File, error) {
	scratch.mu.Lock()
	defer scratch.mu.Unlock()

	if scratch.dir == "" {
		dir, err := os.MkdirTemp("", "avimosh-")
		if err != nil {
			return nil, &AVIError{Op: "create temp dir", Err: err}
		}
		scratch.dir = dir
	}

	name := filepath.Join(scratch.dir, strconv.FormatInt(scratch.seq, 10))
	scratch.seq++
	return OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC)
}

// TempDir returns the scratch directory, or "" before the first TempFile.
func TempDir() string {
	scratch.mu.Lock()
	defer scratch.mu.Unlock()
	return scratch.dir
}

// RemoveTemp removes the scratch directory and everything in it. Stores
// still open become unusable. A later TempFile creates a new directory;
// identifiers keep increasing.
func RemoveTemp() error {
	scratch.mu.Lock()
	defer scratch.mu.Unlock()

	if scratch.dir == "" {
		return nil
	}
	dir := scratch.dir
	scratch.dir = ""
	if err := os.RemoveAll(dir); err != nil {
		return &AVIError{Op: "remove temp dir", Err: err}
	}
	return nil
}
