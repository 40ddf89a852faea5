package avi

import (
	"fmt"
	"strings"
)

// Target selects which frames Container.Glitch and Frames.SizeOf act on.
type Target string

const (
	TargetAll        Target = "all"
	TargetKeyframe   Target = "keyframe"
	TargetDeltaframe Target = "deltaframe"
	TargetVideoframe Target = "videoframe"
	TargetAudioframe Target = "audioframe"
)

// ParseTarget accepts the target names and their aliases: plural forms
// ("keyframes"), "iframe" for keyframe and "pframe" for deltaframe.
func ParseTarget(s string) (Target, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	name = strings.TrimSuffix(name, "s")
	switch name {
	case "all":
		return TargetAll, nil
	case "keyframe", "iframe":
		return TargetKeyframe, nil
	case "deltaframe", "pframe":
		return TargetDeltaframe, nil
	case "videoframe":
		return TargetVideoframe, nil
	case "audioframe":
		return TargetAudioframe, nil
	}
	return "", &AVIError{Op: "parse target", Err: fmt.Errorf("%w: unknown target %q", ErrType, s)}
}

// Match reports whether f is selected by t. Aliases accepted by
// ParseTarget match like their canonical name; unknown targets match
// nothing.
func (t Target) Match(f *Frame) bool {
	switch t.canonical() {
	case TargetAll:
		return true
	case TargetKeyframe:
		return f.IsKeyframe()
	case TargetDeltaframe:
		return f.IsDeltaframe()
	case TargetVideoframe:
		return f.IsVideoFrame()
	case TargetAudioframe:
		return f.IsAudioFrame()
	}
	return false
}

func (t Target) canonical() Target {
	switch t {
	case TargetAll, TargetKeyframe, TargetDeltaframe, TargetVideoframe, TargetAudioframe:
		return t
	}
	if c, err := ParseTarget(string(t)); err == nil {
		return c
	}
	return t
}

func (t Target) matchEntry(e IndexEntry) bool {
	return t.Match(&Frame{ID: e.ID(), Flag: e.Flags})
}
