package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charlescerisier/avimosh/avi"
	"github.com/charlescerisier/avimosh/internal/cli"
)

// Config holds CLI configuration
type Config struct {
	InputFile  string
	OutputFile string
	Range      string
	Repeat     int
	Append     []string
	Rebuild    bool
	Verbose    bool
	Progress   bool
	DryRun     bool
}

// Version can be set at build time
var version = "dev"

type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }
func (s *stringList) Set(v string) error { *s = append(*s, v); return nil }

func main() {
	config := parseFlags()
	level := "info"
	if config.Verbose {
		level = "debug"
	}
	logger := cli.NewLogger(os.Stderr, level)
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

	// Set default output file if not specified
	if config.OutputFile == "" {
		dir := filepath.Dir(config.InputFile)
		base := filepath.Base(config.InputFile)
		ext := filepath.Ext(base)
		name := base[:len(base)-len(ext)]
		config.OutputFile = filepath.Join(dir, name+"_remuxed"+ext)
	}

	_, stop := cli.WatchSignals(logger)
	defer stop()
	err := remuxFile(config,
		avi.WithLogger(logger),
		avi.WithGuard(cli.Guard(os.Stdin, os.Stderr, 0)),
	)
	avi.RemoveTemp()
	if err != nil {
		logger.Error("failed to remux file", "file", config.InputFile, "err", err)
		os.Exit(1)
	}
}

func parseFlags() Config {
	var config Config
	var appends stringList

	flag.StringVar(&config.InputFile, "i", "", "Input AVI file (required)")
	flag.StringVar(&config.OutputFile, "o", "", "Output AVI file (default: input_remuxed.avi)")
	flag.StringVar(&config.Range, "range", "", "Keep frames in HEAD:TAIL (tail exclusive, negative counts from the end)")
	flag.IntVar(&config.Repeat, "repeat", 1, "Repeat the kept frames N times")
	flag.Var(&appends, "append", "Append the frames of another AVI file (repeatable)")
	flag.BoolVar(&config.Rebuild, "rebuild", false, "Rewrite all headers instead of patching the input's")
	flag.BoolVar(&config.Verbose, "v", false, "Verbose output")
	flag.BoolVar(&config.Progress, "p", false, "Show progress")
	flag.BoolVar(&config.DryRun, "dry-run", false, "Analyze input without creating output")

	var showVersion bool
	flag.BoolVar(&showVersion, "version", false, "Show version")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "aviremux %s - AVI frame editor\n", version)
		fmt.Fprintf(os.Stderr, "\nUsage: %s [options] -i input.avi\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -i video.avi                     # Copy to video_remuxed.avi\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -i video.avi -range 100:200      # Keep frames 100 to 199\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -i video.avi -range -50: -repeat 4  # Loop the last 50 frames\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -i a.avi -append b.avi -o ab.avi # Join two files\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -i video.avi --dry-run           # Analyze without writing\n", os.Args[0])
	}

	flag.Parse()

	if showVersion {
		fmt.Printf("aviremux %s\n", version)
		os.Exit(0)
	}

	config.Append = appends
	return config
}

// parseRange parses HEAD:TAIL where either side may be empty.
func parseRange(s string) (head int, tail *int, err error) {
	h, t, ok := strings.Cut(s, ":")
	if !ok {
		return 0, nil, fmt.Errorf("invalid range %q: want HEAD:TAIL", s)
	}
	if h != "" {
		if head, err = strconv.Atoi(h); err != nil {
			return 0, nil, fmt.Errorf("invalid range head %q: %w", h, err)
		}
	}
	if t != "" {
		v, err := strconv.Atoi(t)
		if err != nil {
			return 0, nil, fmt.Errorf("invalid range tail %q: %w", t, err)
		}
		tail = &v
	}
	return head, tail, nil
}

// edit applies the range, repeat and append options to frames and returns
// the resulting collection, which is frames itself when nothing changed.
func edit(config Config, frames *avi.Frames, opts []avi.Option) (*avi.Frames, error) {
	result := frames

	if config.Range != "" {
		head, tail, err := parseRange(config.Range)
		if err != nil {
			return nil, err
		}
		if tail == nil {
			result, err = result.SliceFrom(head)
		} else {
			result, err = result.Slice(head, *tail)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to slice frames: %w", err)
		}
	}

	if config.Repeat < 0 {
		return nil, fmt.Errorf("invalid repeat count %d", config.Repeat)
	}
	if config.Repeat != 1 {
		repeated, err := result.Mul(config.Repeat)
		if err != nil {
			return nil, fmt.Errorf("failed to repeat frames: %w", err)
		}
		result = repeated
	}

	for _, file := range config.Append {
		other, err := avi.Open(file, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", file, err)
		}
		err = result.Concat(other.Frames())
		other.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to append %s: %w", file, err)
		}
	}

	return result, nil
}

func remuxFile(config Config, opts ...avi.Option) error {
	startTime := time.Now()
	logger := slog.Default()

	logger.Debug("opening input file", "file", config.InputFile)
	c, err := avi.Open(config.InputFile, opts...)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer c.Close()

	inputInfo, err := os.Stat(config.InputFile)
	if err != nil {
		return fmt.Errorf("failed to stat input file: %w", err)
	}

	streams, err := c.Streams()
	if err != nil {
		return fmt.Errorf("failed to get streams: %w", err)
	}

	if config.Verbose || config.DryRun {
		fmt.Printf("\nInput file information:\n")
		fmt.Printf("  File: %s\n", filepath.Base(config.InputFile))
		fmt.Printf("  Size: %s\n", formatBytes(inputInfo.Size()))
		fmt.Printf("  Frames: %d (%d keyframes)\n", c.Frames().Len(), c.Frames().SizeOf(avi.TargetKeyframe))

		fmt.Printf("\nStream details:\n")
		for _, stream := range streams {
			fmt.Printf("  Stream #%d: %s\n", stream.Index, stream.Type)
			if stream.Type == avi.StreamTypeVideo {
				fmt.Printf("    Codec: %s\n", formatCodecName(stream.Codec.Name))
				fmt.Printf("    Resolution: %dx%d @ %.2f fps\n",
					stream.Codec.Width, stream.Codec.Height, stream.Codec.FPS)
			} else if stream.Type == avi.StreamTypeAudio {
				fmt.Printf("    Codec: %s\n", formatCodecName(stream.Codec.Name))
				fmt.Printf("    Format: %d Hz, %d channels, %d bit\n",
					stream.Codec.SampleRate, stream.Codec.Channels, stream.Codec.BitDepth)
			}
			fmt.Printf("    Duration: %v\n", stream.Duration)
		}
	}

	frames, err := edit(config, c.Frames(), opts)
	if err != nil {
		return err
	}

	if config.DryRun {
		fmt.Printf("\nDry run complete: %d frames would be written. No output file created.\n", frames.Len())
		return nil
	}

	if config.Rebuild {
		err = rebuild(config, streams, frames)
	} else {
		err = output(c, frames, config.OutputFile)
	}
	if err != nil {
		return err
	}

	outputInfo, err := os.Stat(config.OutputFile)
	if err != nil {
		return fmt.Errorf("failed to stat output file: %w", err)
	}

	elapsed := time.Since(startTime)

	// Summary
	fmt.Printf("\nRemuxing completed successfully!\n")
	fmt.Printf("\nSummary:\n")
	fmt.Printf("  Input:  %s (%s)\n", filepath.Base(config.InputFile), formatBytes(inputInfo.Size()))
	fmt.Printf("  Output: %s (%s)\n", filepath.Base(config.OutputFile), formatBytes(outputInfo.Size()))
	fmt.Printf("  Streams: %d\n", len(streams))
	fmt.Printf("  Frames: %d\n", frames.Len())
	fmt.Printf("  Time: %v\n", elapsed)

	return nil
}

// output writes frames through the input's container, keeping its headers.
func output(c *avi.Container, frames *avi.Frames, dst string) error {
	if frames != c.Frames() {
		if err := c.SwapFrames(frames); err != nil {
			return fmt.Errorf("failed to collect frames: %w", err)
		}
	}
	if err := c.Output(dst, false); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// rebuild writes a fresh file with new hdrl, movi and idx1 lists.
func rebuild(config Config, streams []avi.Stream, frames *avi.Frames) error {
	logger := slog.Default()

	muxer := avi.NewMuxer()
	defer muxer.Close()

	if err := muxer.CreateFile(config.OutputFile); err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	for _, stream := range streams {
		newIndex, err := muxer.AddStream(stream.Codec)
		if err != nil {
			return fmt.Errorf("failed to add stream: %w", err)
		}
		logger.Debug("added stream", "index", stream.Index, "type", stream.Type, "new_index", newIndex)
	}

	total := frames.Len()
	for i := 0; i < total; i++ {
		frame, err := frames.At(i)
		if err != nil {
			return fmt.Errorf("failed to read frame %d: %w", i, err)
		}
		// Chunks of undeclared streams cannot be indexed by the new header.
		if err := muxer.WriteFrame(frame); err != nil {
			logger.Warn("skipping frame", "index", i, "id", frame.ID, "err", err)
			continue
		}

		// Show progress
		if config.Progress && (i+1)%100 == 0 {
			progress := float64(i+1) / float64(total) * 100
			fmt.Printf("\r  Progress: %d/%d frames (%.1f%%)", i+1, total, progress)
		}
	}

	if config.Progress {
		fmt.Printf("\r  Progress: %d/%d frames (100.0%%)\n", total, total)
	}

	logger.Debug("finalizing output file", "file", config.OutputFile)
	if err := muxer.Finalize(); err != nil {
		return fmt.Errorf("failed to finalize output: %w", err)
	}
	return nil
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

func formatCodecName(name string) string {
	if name == "" {
		return "(none)"
	}
	return name
}
