package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/charlescerisier/avimosh/avi"
	"github.com/charlescerisier/avimosh/internal/cli"
)

func main() {
	fs := flag.NewFlagSet("datamosh", flag.ContinueOnError)
	config, err := parseFlags(fs, os.Args[1:])
	if errors.Is(err, flag.ErrHelp) || errors.Is(err, errHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		fs.Usage()
		os.Exit(1)
	}

	logger := cli.NewLogger(os.Stderr, config.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := cli.WatchSignals(logger)
	defer stop()

	err = run(ctx, config,
		avi.WithLogger(logger),
		avi.WithGuard(cli.Guard(os.Stdin, os.Stderr, config.MaxFrames)),
	)
	if rmErr := avi.RemoveTemp(); rmErr != nil {
		logger.Warn("failed to remove scratch files", "err", rmErr)
	}
	if err != nil {
		logger.Error("datamosh failed", "err", err)
		os.Exit(1)
	}
}

// run glitches the first input, appends the others and writes the result.
func run(ctx context.Context, config Config, opts ...avi.Option) error {
	startTime := time.Now()
	logger := slog.Default()

	a, err := avi.Open(config.Inputs[0], opts...)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", config.Inputs[0], err)
	}
	defer a.Close()

	if !config.Fake {
		err = a.GlitchWithIndex(avi.TargetKeyframe, func(data []byte, i int) avi.Edit {
			if !config.All && i == 0 {
				return avi.Keep
			}
			return avi.Replace(nil)
		})
		if err != nil {
			return fmt.Errorf("failed to glitch %s: %w", config.Inputs[0], err)
		}
	}

	if config.All || config.Fake {
		err = a.MutateKeyframesIntoDeltaframes()
	} else if n := a.Frames().Len(); n > 1 {
		// Everything but the first frame.
		indices := make([]int, 0, n-1)
		for i := 1; i < n; i++ {
			indices = append(indices, i)
		}
		err = a.MutateKeyframesIntoDeltaframes(indices...)
	}
	if err != nil {
		return fmt.Errorf("failed to mutate keyframes: %w", err)
	}

	for _, input := range config.Inputs[1:] {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := appendInput(a, input, config.Fake, opts); err != nil {
			return err
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := a.Output(config.Output, true); err != nil {
		return fmt.Errorf("failed to write %s: %w", config.Output, err)
	}

	logger.Info("datamosh complete",
		"output", config.Output,
		"inputs", len(config.Inputs),
		"elapsed", time.Since(startTime).Round(time.Millisecond))
	return nil
}

// appendInput glitches every keyframe of input and concatenates its frames
// onto a.
func appendInput(a *avi.Container, input string, fake bool, opts []avi.Option) error {
	b, err := avi.Open(input, opts...)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", input, err)
	}
	defer b.Close()

	if !fake {
		err = b.Glitch(avi.TargetKeyframe, func([]byte) avi.Edit {
			return avi.Replace(nil)
		})
		if err != nil {
			return fmt.Errorf("failed to glitch %s: %w", input, err)
		}
	}
	if err := b.MutateKeyframesIntoDeltaframes(); err != nil {
		return fmt.Errorf("failed to mutate keyframes of %s: %w", input, err)
	}
	if err := a.Frames().Concat(b.Frames()); err != nil {
		return fmt.Errorf("failed to append %s: %w", input, err)
	}
	return nil
}
