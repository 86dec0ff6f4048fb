package gcode

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Mode selects how a matching line is rewritten.
type Mode string

const (
	// ModeSplice swaps only the Z value and keeps the rest of the line.
	ModeSplice Mode = "splice"
	// ModeTruncate reduces a matching line to "G1 ... Z<value>\n", dropping any
	// text before G1 and after the number.
	ModeTruncate Mode = "truncate"
)

// ParseMode maps a configuration value onto a Mode.
func ParseMode(value string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(value))) {
	case "", ModeSplice:
		return ModeSplice, nil
	case ModeTruncate:
		return ModeTruncate, nil
	default:
		return "", fmt.Errorf("gcode: unknown substitution mode %q", value)
	}
}

// heightPattern finds the last Z word of a G1 move. Group 1 runs from G1 to
// the Z letter, group 2 is the unsigned decimal height.
var heightPattern = regexp.MustCompile(`([Gg]1 .*[zZ])(\d+(?:\.\d*)?|\.\d+)`)

// Offset is the lift applied to repetition index.
func Offset(index int, unitHeight, gapHeight float64) float64 {
	return float64(index) * (unitHeight + gapHeight)
}

// HeightTransformer lifts the Z coordinate of G1 lines by a fixed offset.
type HeightTransformer struct {
	Offset float64
	Mode   Mode
}

// NewHeightTransformer builds the transformer for one repetition index.
func NewHeightTransformer(index int, unitHeight, gapHeight float64, mode Mode) HeightTransformer {
	return HeightTransformer{Offset: Offset(index, unitHeight, gapHeight), Mode: mode}
}

// Apply rewrites line when it carries a G1 height. Lines without one are
// returned unchanged and ok is false.
func (t HeightTransformer) Apply(line string) (out string, ok bool) {
	loc := heightPattern.FindStringSubmatchIndex(line)
	if loc == nil {
		return line, false
	}
	value, err := strconv.ParseFloat(line[loc[4]:loc[5]], 64)
	if err != nil {
		return line, false
	}
	lifted := strconv.FormatFloat(t.Offset+value, 'f', 3, 64)
	if t.Mode == ModeTruncate {
		return line[loc[2]:loc[3]] + lifted + "\n", true
	}
	return line[:loc[4]] + lifted + line[loc[5]:], true
}
