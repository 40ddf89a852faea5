package avi

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/samber/lo"
)

// Probe reads the hdrl list of an AVI file: the main header and one Stream
// per strl list. It does not touch movi or idx1.
func Probe(r io.ReadSeeker) (*FileInfo, error) {
	var riffHeader RIFFHeader
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, &AVIError{Op: "seek", Err: err}
	}
	if err := binary.Read(r, binary.LittleEndian, &riffHeader); err != nil {
		return nil, &AVIError{Op: "read riff header", Err: err}
	}
	if string(riffHeader.Signature[:]) != RIFFSignature {
		return nil, &FormatError{Reason: "RIFF sign is not found"}
	}
	if string(riffHeader.Type[:]) != AVISignature {
		return nil, &FormatError{Reason: "AVI sign is not found"}
	}

	p := &prober{r: r, info: &FileInfo{}}
	if err := p.parseChunks(); err != nil {
		return nil, err
	}

	p.info.VideoStreams = lo.CountBy(p.info.Streams, func(s Stream) bool { return s.Type == StreamTypeVideo })
	p.info.AudioStreams = lo.CountBy(p.info.Streams, func(s Stream) bool { return s.Type == StreamTypeAudio })
	return p.info, nil
}

type prober struct {
	r    io.ReadSeeker
	info *FileInfo
}

// parseChunks walks the top-level chunks until the hdrl list is parsed.
func (p *prober) parseChunks() error {
	for {
		var header ChunkHeader
		if err := binary.Read(p.r, binary.LittleEndian, &header); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return &FormatError{Reason: "hdrl is not found"}
			}
			return &AVIError{Op: "read chunk header", Err: err}
		}

		if ChunkIDToString(header.ID) != LISTSignature {
			if _, err := p.r.Seek(int64(AlignSize(header.Size)), io.SeekCurrent); err != nil {
				return &AVIError{Op: "skip chunk", Err: err}
			}
			continue
		}

		var listType [4]byte
		if err := binary.Read(p.r, binary.LittleEndian, &listType); err != nil {
			return &AVIError{Op: "read list type", Err: err}
		}
		if string(listType[:]) == HDRLList {
			return p.parseHDRLList(header.Size - 4)
		}
		if _, err := p.r.Seek(int64(AlignSize(header.Size-4)), io.SeekCurrent); err != nil {
			return &AVIError{Op: "skip list", Err: err}
		}
	}
}

// parseHDRLList parses the header list
func (p *prober) parseHDRLList(size uint32) error {
	endPos, err := p.r.Seek(0, io.SeekCurrent)
	if err != nil {
		return &AVIError{Op: "get position", Err: err}
	}
	endPos += int64(size)

	for {
		pos, err := p.r.Seek(0, io.SeekCurrent)
		if err != nil || pos >= endPos {
			break
		}

		var header ChunkHeader
		if err := binary.Read(p.r, binary.LittleEndian, &header); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return &AVIError{Op: "read hdrl chunk", Err: err}
		}

		switch ChunkIDToString(header.ID) {
		case AVIHChunk:
			if err := p.parseAVIHChunk(header.Size); err != nil {
				return err
			}
		case LISTSignature:
			if err := p.parseSTRLList(header.Size); err != nil {
				return err
			}
		default:
			if _, err := p.r.Seek(int64(AlignSize(header.Size)), io.SeekCurrent); err != nil {
				return &AVIError{Op: "skip hdrl chunk", Err: err}
			}
		}
	}

	return nil
}

// parseAVIHChunk parses the main AVI header
func (p *prober) parseAVIHChunk(size uint32) error {
	var header AVIMainHeader
	if err := binary.Read(p.r, binary.LittleEndian, &header); err != nil {
		return &AVIError{Op: "read avih", Err: err}
	}

	p.info.TotalFrames = int(header.TotalFrames)
	if header.MicroSecPerFrame > 0 {
		p.info.Duration = time.Duration(header.TotalFrames) * time.Duration(header.MicroSecPerFrame) * time.Microsecond
	}

	if size > mainHeaderSize {
		if _, err := p.r.Seek(int64(AlignSize(size)-mainHeaderSize), io.SeekCurrent); err != nil {
			return &AVIError{Op: "skip avih remainder", Err: err}
		}
	}
	return nil
}

// parseSTRLList parses a stream list
func (p *prober) parseSTRLList(size uint32) error {
	var listType [4]byte
	if err := binary.Read(p.r, binary.LittleEndian, &listType); err != nil {
		return &AVIError{Op: "read strl type", Err: err}
	}

	if string(listType[:]) != STRLList {
		if _, err := p.r.Seek(int64(AlignSize(size-4)), io.SeekCurrent); err != nil {
			return &AVIError{Op: "skip non-strl", Err: err}
		}
		return nil
	}

	stream := Stream{Index: len(p.info.Streams)}

	endPos, err := p.r.Seek(0, io.SeekCurrent)
	if err != nil {
		return &AVIError{Op: "get strl position", Err: err}
	}
	endPos += int64(size - 4)

	for {
		pos, err := p.r.Seek(0, io.SeekCurrent)
		if err != nil || pos >= endPos {
			break
		}

		var header ChunkHeader
		if err := binary.Read(p.r, binary.LittleEndian, &header); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return &AVIError{Op: "read strl chunk", Err: err}
		}

		switch ChunkIDToString(header.ID) {
		case STRHChunk:
			err = p.parseSTRHChunk(header.Size, &stream)
		case STRFChunk:
			err = p.parseSTRFChunk(header.Size, &stream)
		default:
			// strn, strd, etc.
			_, err = p.r.Seek(int64(AlignSize(header.Size)), io.SeekCurrent)
		}
		if err != nil {
			return err
		}
	}

	p.info.Streams = append(p.info.Streams, stream)
	return nil
}

// parseSTRHChunk parses a stream header
func (p *prober) parseSTRHChunk(size uint32, stream *Stream) error {
	var header AVIStreamHeader
	if err := binary.Read(p.r, binary.LittleEndian, &header); err != nil {
		return &AVIError{Op: "read strh", Err: err}
	}

	if IsVideoStream(header.Type) {
		stream.Type = StreamTypeVideo
	} else if IsAudioStream(header.Type) {
		stream.Type = StreamTypeAudio
	}
	stream.Codec.Type = stream.Type
	stream.Codec.FourCC = header.Handler
	stream.Codec.Name = printable(header.Handler[:])
	stream.Length = int(header.Length)

	if header.Rate > 0 && header.Scale > 0 {
		if stream.Type == StreamTypeVideo {
			stream.Codec.FPS = float64(header.Rate) / float64(header.Scale)
		}
		if header.Length > 0 {
			stream.Duration = time.Duration(header.Length) * time.Duration(header.Scale) * time.Second / time.Duration(header.Rate)
		}
	}

	if size > streamHeaderSize {
		if _, err := p.r.Seek(int64(AlignSize(size)-streamHeaderSize), io.SeekCurrent); err != nil {
			return &AVIError{Op: "skip strh remainder", Err: err}
		}
	}
	return nil
}

// parseSTRFChunk parses stream format chunk
func (p *prober) parseSTRFChunk(size uint32, stream *Stream) error {
	var read uint32
	switch {
	case stream.Type == StreamTypeVideo && size >= bitmapInfoSize:
		var bih BitmapInfoHeader
		if err := binary.Read(p.r, binary.LittleEndian, &bih); err != nil {
			return &AVIError{Op: "read bitmap info", Err: err}
		}
		stream.Codec.Width = int(bih.Width)
		stream.Codec.Height = int(bih.Height)
		if bih.Height < 0 {
			stream.Codec.Height = -stream.Codec.Height
		}
		if stream.Codec.Name == "" {
			stream.Codec.Name = printable(bih.Compression[:])
		}
		read = bitmapInfoSize
	case stream.Type == StreamTypeAudio && size >= waveFormatBaseSize:
		var wfx WaveFormat
		if err := binary.Read(p.r, binary.LittleEndian, &wfx); err != nil {
			return &AVIError{Op: "read wave format", Err: err}
		}
		stream.Codec.Channels = int(wfx.Channels)
		stream.Codec.SampleRate = int(wfx.SamplesPerSec)
		stream.Codec.BitDepth = int(wfx.BitsPerSample)
		if stream.Codec.Name == "" {
			stream.Codec.Name = fmt.Sprintf("0x%04x", wfx.FormatTag)
		}
		read = waveFormatBaseSize
	}

	if rest := AlignSize(size) - read; rest > 0 {
		if _, err := p.r.Seek(int64(rest), io.SeekCurrent); err != nil {
			return &AVIError{Op: "skip strf remainder", Err: err}
		}
	}
	return nil
}

// printable drops NUL and other unprintable bytes from a FourCC.
func printable(b []byte) string {
	out := make([]byte, 0, len(b))
	for _, c := range b {
		if c >= 32 && c <= 126 {
			out = append(out, c)
		}
	}
	return string(out)
}
