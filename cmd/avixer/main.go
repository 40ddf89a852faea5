package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/charlescerisier/avimosh/avi"
	"github.com/charlescerisier/avimosh/internal/cli"
)

// OutputFormat represents different output formats
type OutputFormat string

const (
	OutputJSON OutputFormat = "json"
	OutputText OutputFormat = "text"
)

// Config holds CLI configuration
type Config struct {
	InputFile    string
	OutputFile   string
	OutputFormat OutputFormat
	ShowStreams  bool
	ShowFrames   bool
	Verbose      bool
}

// FrameInfo represents one idx1 entry for JSON output
type FrameInfo struct {
	Index  int    `json:"index"`
	ID     string `json:"id"`
	Kind   string `json:"kind"`
	Flags  string `json:"flags"`
	Offset uint32 `json:"offset"`
	Size   uint32 `json:"size"`
}

// StreamInfo represents stream information for JSON output
type StreamInfo struct {
	Index      int     `json:"index"`
	CodecType  string  `json:"codec_type"`
	CodecName  string  `json:"codec_name,omitempty"`
	Width      int     `json:"width,omitempty"`
	Height     int     `json:"height,omitempty"`
	FPS        float64 `json:"fps,omitempty"`
	Channels   int     `json:"channels,omitempty"`
	SampleRate int     `json:"sample_rate,omitempty"`
	BitDepth   int     `json:"bit_depth,omitempty"`
	Length     int     `json:"length,omitempty"`
	Duration   string  `json:"duration,omitempty"`
}

// FormatInfo summarizes the frame index
type FormatInfo struct {
	Filename    string `json:"filename"`
	Duration    string `json:"duration,omitempty"`
	TotalFrames int    `json:"total_frames"`
	Entries     int    `json:"entries"`
	Keyframes   int    `json:"keyframes"`
	Deltaframes int    `json:"deltaframes"`
	Audioframes int    `json:"audioframes"`
}

// FileOutput represents the complete file information for JSON output
type FileOutput struct {
	Format  FormatInfo   `json:"format"`
	Streams []StreamInfo `json:"streams,omitempty"`
	Frames  []FrameInfo  `json:"frames,omitempty"`
}

func main() {
	config := parseFlags()
	logger := cli.NewLogger(os.Stderr, logLevel(config.Verbose))
	slog.SetDefault(logger)

	if config.InputFile == "" {
		fmt.Fprintf(os.Stderr, "Error: input file is required\n")
		flag.Usage()
		os.Exit(1)
	}

	// Check if input file exists
	if _, err := os.Stat(config.InputFile); os.IsNotExist(err) {
		logger.Error("input file does not exist", "file", config.InputFile)
		os.Exit(1)
	}

	_, stop := cli.WatchSignals(logger)
	defer stop()
	err := analyzeFile(config,
		avi.WithLogger(logger),
		avi.WithGuard(cli.Guard(os.Stdin, os.Stderr, 0)),
	)
	avi.RemoveTemp()
	if err != nil {
		logger.Error("failed to analyze file", "file", config.InputFile, "err", err)
		os.Exit(1)
	}
}

func logLevel(verbose bool) string {
	if verbose {
		return "debug"
	}
	return "info"
}

func parseFlags() Config {
	var config Config

	flag.StringVar(&config.InputFile, "i", "", "Input AVI file")
	flag.StringVar(&config.OutputFile, "o", "", "Output file (default: input.avi.json)")
	flag.BoolVar(&config.ShowStreams, "show-streams", true, "Show stream information")
	flag.BoolVar(&config.ShowFrames, "show-frames", false, "Show the frame index")
	flag.BoolVar(&config.Verbose, "v", false, "Verbose output")

	var format string
	flag.StringVar(&format, "f", "json", "Output format (json, text)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] -i input.avi\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -i video.avi                    # Analyze video.avi, output to video.avi.json\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -i video.avi -o info.json       # Analyze video.avi, output to info.json\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -i video.avi -f text            # Text output instead of JSON\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -i video.avi -show-frames       # Include the frame index\n", os.Args[0])
	}

	flag.Parse()

	// Set output format
	switch strings.ToLower(format) {
	case "json":
		config.OutputFormat = OutputJSON
	case "text":
		config.OutputFormat = OutputText
	default:
		fmt.Fprintf(os.Stderr, "Error: unsupported output format '%s'\n", format)
		os.Exit(1)
	}

	// Set default output file if not specified
	if config.OutputFile == "" && config.OutputFormat == OutputJSON && config.InputFile != "" {
		config.OutputFile = config.InputFile + ".json"
	}

	return config
}

func analyzeFile(config Config, opts ...avi.Option) error {
	c, err := avi.Open(config.InputFile, opts...)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer c.Close()

	info, err := c.Info()
	if err != nil {
		return fmt.Errorf("failed to get file info: %w", err)
	}

	output := buildOutput(config, info, c.Frames())
	slog.Debug("analyzed file",
		"file", config.InputFile,
		"streams", len(info.Streams),
		"entries", output.Format.Entries,
		"keyframes", output.Format.Keyframes)

	var w io.Writer = os.Stdout
	if config.OutputFile != "" {
		f, err := os.Create(config.OutputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	switch config.OutputFormat {
	case OutputJSON:
		err = writeJSON(w, output)
	case OutputText:
		err = writeText(w, output)
	default:
		return fmt.Errorf("unsupported output format")
	}
	if err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if config.OutputFile != "" {
		slog.Debug("output written", "file", config.OutputFile)
	}
	return nil
}

func buildOutput(config Config, info *avi.FileInfo, frames *avi.Frames) FileOutput {
	output := FileOutput{
		Format: FormatInfo{
			Filename:    filepath.Base(config.InputFile),
			TotalFrames: info.TotalFrames,
			Entries:     frames.Len(),
			Keyframes:   frames.SizeOf(avi.TargetKeyframe),
			Deltaframes: frames.SizeOf(avi.TargetDeltaframe),
			Audioframes: frames.SizeOf(avi.TargetAudioframe),
		},
	}
	if info.Duration > 0 {
		output.Format.Duration = info.Duration.String()
	}

	if config.ShowStreams {
		for _, stream := range info.Streams {
			streamInfo := StreamInfo{
				Index:     stream.Index,
				CodecType: string(stream.Type),
				CodecName: stream.Codec.Name,
				Length:    stream.Length,
			}
			if stream.Duration > 0 {
				streamInfo.Duration = stream.Duration.String()
			}

			if stream.Type == avi.StreamTypeVideo {
				streamInfo.Width = stream.Codec.Width
				streamInfo.Height = stream.Codec.Height
				streamInfo.FPS = stream.Codec.FPS
			} else if stream.Type == avi.StreamTypeAudio {
				streamInfo.Channels = stream.Codec.Channels
				streamInfo.SampleRate = stream.Codec.SampleRate
				streamInfo.BitDepth = stream.Codec.BitDepth
			}

			output.Streams = append(output.Streams, streamInfo)
		}
	}

	if config.ShowFrames {
		for i, e := range frames.Entries() {
			output.Frames = append(output.Frames, FrameInfo{
				Index:  i,
				ID:     e.ID(),
				Kind:   avi.KindOf(e.ID()).String(),
				Flags:  formatFlags(e),
				Offset: e.Offset,
				Size:   e.Size,
			})
		}
	}

	return output
}

// formatFlags renders the keyframe bit the way ffprobe does.
func formatFlags(e avi.IndexEntry) string {
	if e.IsKeyframe() {
		return "K_"
	}
	return "__"
}

func writeJSON(w io.Writer, output FileOutput) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "    ")
	return encoder.Encode(output)
}

func writeText(w io.Writer, output FileOutput) error {
	f := output.Format
	fmt.Fprintf(w, "File: %s\n", f.Filename)
	if f.Duration != "" {
		fmt.Fprintf(w, "Duration: %s\n", f.Duration)
	}
	fmt.Fprintf(w, "Frames: %d entries, %d keyframes, %d deltaframes, %d audio\n\n",
		f.Entries, f.Keyframes, f.Deltaframes, f.Audioframes)

	if len(output.Streams) > 0 {
		fmt.Fprintf(w, "Streams:\n")
		for _, stream := range output.Streams {
			fmt.Fprintf(w, "  Stream #%d: %s", stream.Index, stream.CodecType)

			if stream.CodecType == string(avi.StreamTypeVideo) {
				fmt.Fprintf(w, " (%s) %dx%d", stream.CodecName, stream.Width, stream.Height)
				if stream.FPS > 0 {
					fmt.Fprintf(w, " @ %.2f fps", stream.FPS)
				}
			} else if stream.CodecType == string(avi.StreamTypeAudio) {
				fmt.Fprintf(w, " (%s) %d Hz, %d channels", stream.CodecName, stream.SampleRate, stream.Channels)
				if stream.BitDepth > 0 {
					fmt.Fprintf(w, ", %d bit", stream.BitDepth)
				}
			}

			if stream.Duration != "" {
				fmt.Fprintf(w, ", duration: %s", stream.Duration)
			}
			fmt.Fprintf(w, "\n")
		}
	}

	if len(output.Frames) > 0 {
		fmt.Fprintf(w, "\nFrames:\n")
		for _, frame := range output.Frames {
			fmt.Fprintf(w, "  %6d %s %-5s %s offset=%d size=%d\n",
				frame.Index, frame.ID, frame.Kind, frame.Flags, frame.Offset, frame.Size)
		}
	}

	return nil
}
