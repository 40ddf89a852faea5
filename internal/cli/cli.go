// Package cli holds the plumbing shared by the avimosh commands: console
// logging and the choice of capacity guard.
package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/phsym/console-slog"

	"github.com/charlescerisier/avimosh/avi"
)

// ParseLevel maps a level name such as "debug" or "WARN" to a slog.Level.
// Unknown names fall back to info.
func ParseLevel(level string) slog.Level {
	var lv slog.LevelVar
	if err := lv.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return slog.LevelInfo
	}
	return lv.Level()
}

// NewLogger returns a console logger writing to w. Colors are only used
// when w is a terminal.
func NewLogger(w io.Writer, level string) *slog.Logger {
	return slog.New(console.NewHandler(w, &console.HandlerOptions{
		Level:      ParseLevel(level),
		NoColor:    !IsTerminal(w),
		TimeFormat: "15:04:05.000",
	}))
}

// IsTerminal reports whether v is a file attached to a terminal.
func IsTerminal(v any) bool {
	f, ok := v.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Guard picks the capacity guard for a command. With a terminal on in the
// user is asked; otherwise oversized files are accepted up to max entries,
// and max <= 0 accepts none.
func Guard(in io.Reader, out io.Writer, max int) avi.Guard {
	if IsTerminal(in) {
		return avi.NewPrompt(in, out)
	}
	return avi.Limit(max)
}

// WatchSignals returns a context for the command's work. On SIGINT or
// SIGTERM the scratch directory is removed and the process exits with 130.
// The returned stop function ends the watch.
func WatchSignals(logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigs:
			logger.Warn("interrupted, removing scratch files", "signal", sig.String(), "dir", avi.TempDir())
			cancel()
			avi.RemoveTemp()
			os.Exit(130)
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigs)
		cancel()
	}
}
