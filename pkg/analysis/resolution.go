package analysis

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// ErrResolutionOutOfRange is returned when a resolution step leaves the
// valid range. The resolution is reset to the default and no partition is
// computed.
var ErrResolutionOutOfRange = errors.New("resolution out of range")

// Resolution is the community-detection resolution in tenths, so that
// repeated ±0.1 steps never accumulate floating-point drift.
type Resolution int

const (
	MinResolution     Resolution = 1  // 0.1
	MaxResolution     Resolution = 40 // 4.0
	DefaultResolution Resolution = 10 // 1.0
	ResolutionStep    Resolution = 1
)

// ResolutionCommand is a resolution adjustment sent by a UI control.
type ResolutionCommand int

const (
	ResolutionUp ResolutionCommand = iota
	ResolutionDown
	ResolutionReset
)

func (c ResolutionCommand) String() string {
	switch c {
	case ResolutionUp:
		return "+0.1"
	case ResolutionDown:
		return "-0.1"
	case ResolutionReset:
		return "reset"
	}
	return "unknown"
}

// ParseResolutionCommand maps "+", "-" and "reset"/"0" onto commands.
func ParseResolutionCommand(s string) (ResolutionCommand, error) {
	switch s {
	case "+", "+0.1", "up":
		return ResolutionUp, nil
	case "-", "-0.1", "down":
		return ResolutionDown, nil
	case "0", "reset":
		return ResolutionReset, nil
	}
	return 0, fmt.Errorf("unknown resolution command %q", s)
}

// ResolutionFromFloat rounds v to tenths and checks the range.
func ResolutionFromFloat(v float64) (Resolution, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return DefaultResolution, fmt.Errorf("%w: %v", ErrResolutionOutOfRange, v)
	}
	r := Resolution(math.Round(v * 10))
	if !r.Valid() {
		return DefaultResolution, fmt.Errorf("%w: %s not in [%s, %s]", ErrResolutionOutOfRange, r, MinResolution, MaxResolution)
	}
	return r, nil
}

// Valid reports whether r lies within [MinResolution, MaxResolution].
func (r Resolution) Valid() bool {
	return r >= MinResolution && r <= MaxResolution
}

// Float64 returns the resolution as passed to the modularity function.
func (r Resolution) Float64() float64 {
	return float64(r) / 10
}

func (r Resolution) String() string {
	return strconv.FormatFloat(r.Float64(), 'f', 1, 64)
}

// Apply returns the resolution after cmd. A step leaving the valid range
// yields DefaultResolution together with ErrResolutionOutOfRange.
func (r Resolution) Apply(cmd ResolutionCommand) (Resolution, error) {
	var next Resolution
	switch cmd {
	case ResolutionUp:
		next = r + ResolutionStep
	case ResolutionDown:
		next = r - ResolutionStep
	case ResolutionReset:
		return DefaultResolution, nil
	default:
		return r, fmt.Errorf("unknown resolution command %d", cmd)
	}
	if !next.Valid() {
		return DefaultResolution, fmt.Errorf("%w: %s not in [%s, %s], reset to %s",
			ErrResolutionOutOfRange, next, MinResolution, MaxResolution, DefaultResolution)
	}
	return next, nil
}
