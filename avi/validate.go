package avi

import (
	"errors"
	"os"
)

// Validate checks that f holds a RIFF/AVI file whose top-level LIST and
// JUNK chunks are followed by an idx1 chunk. It never writes and restores
// the cursor before returning.
func Validate(f *File) error {
	pos := f.Pos()
	defer f.SeekTo(pos)

	if _, err := f.Size(); err != nil {
		return err
	}
	f.SeekTo(0)

	if sig, err := f.ReadFourCC(); err != nil {
		return err
	} else if sig != RIFFSignature {
		return &FormatError{Reason: "RIFF sign is not found"}
	}

	// The declared RIFF size is ignored.
	if _, err := f.ReadUint32(); err != nil {
		return formatCause(err, "RIFF size is missing")
	}

	if sig, err := f.ReadFourCC(); err != nil {
		return err
	} else if sig != AVISignature {
		return &FormatError{Reason: "AVI sign is not found"}
	}

	for {
		tag, err := f.ReadFourCC()
		if err != nil {
			return err
		}
		if tag != LISTSignature && tag != JUNKSignature {
			break
		}
		size, err := f.ReadUint32()
		if err != nil {
			return formatCause(err, "chunk size is missing")
		}
		f.Move(int64(size))
	}

	f.Move(-4)

	// we require idx1
	if tag, err := f.ReadFourCC(); err != nil {
		return err
	} else if tag != IDX1Chunk {
		return &FormatError{Reason: "idx1 is not found"}
	}
	if _, err := f.ReadUint32(); err != nil {
		return formatCause(err, "idx1 size is missing")
	}
	return nil
}

// IsFormatted reports whether the file at path passes Validate.
func IsFormatted(path string) bool {
	f, err := OpenFile(path, os.O_RDONLY)
	if err != nil {
		return false
	}
	defer f.Close()
	return Validate(f) == nil
}

// formatCause turns a truncated read into a FormatError; other I/O failures
// pass through unchanged.
func formatCause(err error, reason string) error {
	var ae *AVIError
	if errors.As(err, &ae) && ae.Op == "read uint32" {
		return &FormatError{Reason: reason}
	}
	return err
}
