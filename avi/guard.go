package avi

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Guard decides whether a collection with count entries may be processed.
// It is only consulted once count reaches SafeFramesCount.
type Guard interface {
	Allow(count int) bool
}

// GuardFunc adapts a function to Guard.
type GuardFunc func(count int) bool

func (g GuardFunc) Allow(count int) bool { return g(count) }

// Unconditional returns a Guard that always proceeds.
func Unconditional() Guard {
	return GuardFunc(func(int) bool { return true })
}

// Limit returns a Guard that refuses collections larger than max entries.
func Limit(max int) Guard {
	return GuardFunc(func(count int) bool { return count <= max })
}

// Prompt asks for confirmation on Out and reads the answer from In. Once
// the user has answered "y", later checks proceed without asking.
type Prompt struct {
	in  *bufio.Reader
	out io.Writer

	mu       sync.Mutex
	affirmed bool
}

// NewPrompt returns an interactive Guard.
func NewPrompt(in io.Reader, out io.Writer) *Prompt {
	return &Prompt{in: bufio.NewReader(in), out: out}
}

func (p *Prompt) Allow(count int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.affirmed {
		return true
	}

	fmt.Fprintf(p.out, "WARNING: The avi data has too many frames (%d).\n"+
		"It may use a large memory to process.\n"+
		"We recommend to chop the movie to smaller chunks before you glitch.\n"+
		"Do you want to continue anyway? [yN] ", count)

	answer, _ := p.in.ReadString('\n')
	p.affirmed = strings.TrimSpace(answer) == "y"
	return p.affirmed
}

func checkCapacity(g Guard, count int) error {
	if g == nil || count < SafeFramesCount {
		return nil
	}
	if !g.Allow(count) {
		return &AVIError{Op: "check frames count", Err: fmt.Errorf("%w: %d", ErrCapacity, count)}
	}
	return nil
}
