package avi

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// NewMuxer creates a new AVI muxer
func NewMuxer() Muxer {
	return &Writer{}
}

// Create creates a new AVI writer
func (w *Writer) Create(writer io.WriteSeeker) error {
	w.w = writer
	w.filename = "" // No filename when using writer directly
	w.streams = nil
	w.frames = nil

	return nil
}

// CreateFile creates a new AVI file for writing (convenience method)
func (w *Writer) CreateFile(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return &AVIError{Op: "create", Err: err}
	}

	w.filename = filename
	return w.Create(file)
}

// AddStream adds a new stream to the file
func (w *Writer) AddStream(codec Codec) (int, error) {
	if w.w == nil {
		return -1, &AVIError{Op: "add stream", Err: fmt.Errorf("file not created")}
	}

	stream := Stream{
		Index: len(w.streams),
		Type:  codec.Type,
		Codec: codec,
	}

	w.streams = append(w.streams, stream)
	return stream.Index, nil
}

// WriteFrame queues a frame for the movi list. The first two characters of
// its ID must name a stream added with AddStream.
func (w *Writer) WriteFrame(frame *Frame) error {
	if w.w == nil {
		return &AVIError{Op: "write frame", Err: fmt.Errorf("file not created")}
	}
	if frame == nil {
		return &AVIError{Op: "write frame", Err: ErrType}
	}

	index, ok := streamIndexOf(frame.ID)
	if !ok || index >= len(w.streams) {
		return &AVIError{Op: "write frame", Err: fmt.Errorf("invalid stream index in chunk id %q", frame.ID)}
	}

	w.frames = append(w.frames, frame)
	return nil
}

// streamIndexOf parses the two leading digits of a chunk id.
func streamIndexOf(id string) (int, bool) {
	if len(id) != 4 || id[0] < '0' || id[0] > '9' || id[1] < '0' || id[1] > '9' {
		return 0, false
	}
	return int(id[0]-'0')*10 + int(id[1]-'0'), true
}

// Finalize finalizes the file (writes headers, indices)
func (w *Writer) Finalize() error {
	if w.w == nil {
		return &AVIError{Op: "finalize", Err: fmt.Errorf("file not created")}
	}

	return w.writeAVIFile()
}

// writeAVIFile writes the complete AVI file structure
func (w *Writer) writeAVIFile() error {
	moviSize := w.calculateMOVISize()
	hdrlSize := w.calculateHDRLSize()
	idx1Size := w.calculateIDX1Size()

	// AVI signature + hdrl list + movi list + idx1 chunk, each with its header
	totalSize := 4 + 8 + hdrlSize + 8 + moviSize + 8 + idx1Size

	riffHeader := RIFFHeader{
		Signature: StringToChunkID(RIFFSignature),
		FileSize:  totalSize,
		Type:      StringToChunkID(AVISignature),
	}

	if err := binary.Write(w.w, binary.LittleEndian, &riffHeader); err != nil {
		return &AVIError{Op: "write riff header", Err: err}
	}

	if err := w.writeHDRLList(); err != nil {
		return err
	}

	if err := w.writeMOVIList(); err != nil {
		return err
	}

	return w.writeIDX1Chunk()
}

// writeHDRLList writes the header list
func (w *Writer) writeHDRLList() error {
	listHeader := LISTHeader{
		ChunkHeader: ChunkHeader{
			ID:   StringToChunkID(LISTSignature),
			Size: w.calculateHDRLSize(),
		},
		Type: StringToChunkID(HDRLList),
	}

	if err := binary.Write(w.w, binary.LittleEndian, &listHeader); err != nil {
		return &AVIError{Op: "write hdrl list", Err: err}
	}

	if err := w.writeAVIHChunk(); err != nil {
		return err
	}

	for i := range w.streams {
		if err := w.writeSTRLList(i); err != nil {
			return err
		}
	}

	return nil
}

// writeAVIHChunk writes the main AVI header. TotalFrames lands at file
// offset 48, the field every rewrite patches.
func (w *Writer) writeAVIHChunk() error {
	var microSecPerFrame uint32
	var width, height uint32

	for _, stream := range w.streams {
		if stream.Type == StreamTypeVideo {
			width = uint32(stream.Codec.Width)
			height = uint32(stream.Codec.Height)
			if stream.Codec.FPS > 0 {
				microSecPerFrame = uint32(1000000.0 / stream.Codec.FPS)
			}
			break
		}
	}

	var totalFrames uint32
	for _, frame := range w.frames {
		if frame.IsVideoFrame() {
			totalFrames++
		}
	}

	header := AVIMainHeader{
		MicroSecPerFrame: microSecPerFrame,
		Flags:            0x810, // AVIF_HASINDEX | AVIF_ISINTERLEAVED
		TotalFrames:      totalFrames,
		Streams:          uint32(len(w.streams)),
		Width:            width,
		Height:           height,
	}

	chunkHeader := ChunkHeader{
		ID:   StringToChunkID(AVIHChunk),
		Size: mainHeaderSize,
	}

	if err := binary.Write(w.w, binary.LittleEndian, &chunkHeader); err != nil {
		return &AVIError{Op: "write avih header", Err: err}
	}

	if err := binary.Write(w.w, binary.LittleEndian, &header); err != nil {
		return &AVIError{Op: "write avih", Err: err}
	}

	return nil
}

// writeSTRLList writes a stream list
func (w *Writer) writeSTRLList(streamIndex int) error {
	listHeader := LISTHeader{
		ChunkHeader: ChunkHeader{
			ID:   StringToChunkID(LISTSignature),
			Size: w.calculateSTRLSize(streamIndex),
		},
		Type: StringToChunkID(STRLList),
	}

	if err := binary.Write(w.w, binary.LittleEndian, &listHeader); err != nil {
		return &AVIError{Op: "write strl list", Err: err}
	}

	if err := w.writeSTRHChunk(streamIndex); err != nil {
		return err
	}

	return w.writeSTRFChunk(streamIndex)
}

// writeSTRHChunk writes a stream header
func (w *Writer) writeSTRHChunk(streamIndex int) error {
	stream := w.streams[streamIndex]

	var streamType [4]byte
	if stream.Type == StreamTypeVideo {
		streamType = StringToChunkID(STREAMTypeVideo)
	} else if stream.Type == StreamTypeAudio {
		streamType = StringToChunkID(STREAMTypeAudio)
	}

	var scale, rate uint32 = 1, 1
	if stream.Type == StreamTypeVideo && stream.Codec.FPS > 0 {
		scale = 1000
		rate = uint32(stream.Codec.FPS * 1000)
	} else if stream.Type == StreamTypeAudio && stream.Codec.SampleRate > 0 {
		rate = uint32(stream.Codec.SampleRate)
	}

	var length uint32
	for _, frame := range w.frames {
		if index, _ := streamIndexOf(frame.ID); index == streamIndex {
			length++
		}
	}

	header := AVIStreamHeader{
		Type:    streamType,
		Handler: stream.Codec.FourCC,
		Scale:   scale,
		Rate:    rate,
		Length:  length,
		Quality: 0xFFFFFFFF,
	}

	if stream.Type == StreamTypeVideo {
		header.Frame.Right = uint16(stream.Codec.Width)
		header.Frame.Bottom = uint16(stream.Codec.Height)
	}

	chunkHeader := ChunkHeader{
		ID:   StringToChunkID(STRHChunk),
		Size: streamHeaderSize,
	}

	if err := binary.Write(w.w, binary.LittleEndian, &chunkHeader); err != nil {
		return &AVIError{Op: "write strh header", Err: err}
	}

	if err := binary.Write(w.w, binary.LittleEndian, &header); err != nil {
		return &AVIError{Op: "write strh", Err: err}
	}

	return nil
}

// writeSTRFChunk writes stream format chunk
func (w *Writer) writeSTRFChunk(streamIndex int) error {
	stream := w.streams[streamIndex]

	var format any
	var size uint32
	switch stream.Type {
	case StreamTypeVideo:
		format = &BitmapInfoHeader{
			Size:        bitmapInfoSize,
			Width:       int32(stream.Codec.Width),
			Height:      int32(stream.Codec.Height),
			Planes:      1,
			BitCount:    24,
			Compression: stream.Codec.FourCC,
		}
		size = bitmapInfoSize
	case StreamTypeAudio:
		format = &WaveFormat{
			FormatTag:      1, // PCM
			Channels:       uint16(stream.Codec.Channels),
			SamplesPerSec:  uint32(stream.Codec.SampleRate),
			AvgBytesPerSec: uint32(stream.Codec.SampleRate * stream.Codec.Channels * stream.Codec.BitDepth / 8),
			BlockAlign:     uint16(stream.Codec.Channels * stream.Codec.BitDepth / 8),
			BitsPerSample:  uint16(stream.Codec.BitDepth),
		}
		size = waveFormatBaseSize
	default:
		return nil
	}

	chunkHeader := ChunkHeader{
		ID:   StringToChunkID(STRFChunk),
		Size: size,
	}

	if err := binary.Write(w.w, binary.LittleEndian, &chunkHeader); err != nil {
		return &AVIError{Op: "write strf header", Err: err}
	}

	if err := binary.Write(w.w, binary.LittleEndian, format); err != nil {
		return &AVIError{Op: "write strf", Err: err}
	}

	return nil
}

// writeMOVIList writes the movie data list
func (w *Writer) writeMOVIList() error {
	listHeader := LISTHeader{
		ChunkHeader: ChunkHeader{
			ID:   StringToChunkID(LISTSignature),
			Size: w.calculateMOVISize(),
		},
		Type: StringToChunkID(MOVIList),
	}

	if err := binary.Write(w.w, binary.LittleEndian, &listHeader); err != nil {
		return &AVIError{Op: "write movi list", Err: err}
	}

	for _, frame := range w.frames {
		if err := w.writeFrameData(frame); err != nil {
			return err
		}
	}

	return nil
}

// writeFrameData writes a single chunk, padded to an even length
func (w *Writer) writeFrameData(frame *Frame) error {
	chunkHeader := ChunkHeader{
		ID:   StringToChunkID(frame.ID),
		Size: uint32(len(frame.Data)),
	}

	if err := binary.Write(w.w, binary.LittleEndian, &chunkHeader); err != nil {
		return &AVIError{Op: "write frame header", Err: err}
	}

	if _, err := w.w.Write(frame.Data); err != nil {
		return &AVIError{Op: "write frame data", Err: err}
	}

	if len(frame.Data)%2 == 1 {
		if _, err := w.w.Write([]byte{0}); err != nil {
			return &AVIError{Op: "write padding", Err: err}
		}
	}

	return nil
}

// writeIDX1Chunk writes the index chunk
func (w *Writer) writeIDX1Chunk() error {
	chunkHeader := ChunkHeader{
		ID:   StringToChunkID(IDX1Chunk),
		Size: w.calculateIDX1Size(),
	}

	if err := binary.Write(w.w, binary.LittleEndian, &chunkHeader); err != nil {
		return &AVIError{Op: "write idx1 header", Err: err}
	}

	var currentOffset uint32 = 4 // Skip movi signature
	for _, frame := range w.frames {
		entry := frame.entry()
		entry.Offset = currentOffset

		if err := binary.Write(w.w, binary.LittleEndian, &entry); err != nil {
			return &AVIError{Op: "write index entry", Err: err}
		}

		currentOffset += chunkHeaderSize + AlignSize(entry.Size)
	}

	return nil
}

// Helper functions to calculate sizes
func (w *Writer) calculateHDRLSize() uint32 {
	size := uint32(4)               // hdrl signature
	size += 8 + mainHeaderSize // avih chunk header + data

	for i := range w.streams {
		size += w.calculateSTRLSize(i) + 8 // strl size + LIST header
	}

	return size
}

func (w *Writer) calculateSTRLSize(streamIndex int) uint32 {
	size := uint32(4)                 // strl signature
	size += 8 + streamHeaderSize // strh chunk header + data

	switch w.streams[streamIndex].Type {
	case StreamTypeVideo:
		size += 8 + bitmapInfoSize
	case StreamTypeAudio:
		size += 8 + waveFormatBaseSize
	}

	return size
}

func (w *Writer) calculateMOVISize() uint32 {
	size := uint32(4) // movi signature

	for _, frame := range w.frames {
		size += chunkHeaderSize + AlignSize(uint32(len(frame.Data)))
	}

	return size
}

func (w *Writer) calculateIDX1Size() uint32 {
	return uint32(len(w.frames) * indexEntrySize)
}

// Close closes the file
func (w *Writer) Close() error {
	if w.w != nil {
		if closer, ok := w.w.(io.Closer); ok {
			return closer.Close()
		}
	}
	return nil
}
