package gcode

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	DefaultStartMarker = "<repetition>"
	DefaultEndMarker   = "</repetition>"
)

var (
	ErrStartMarkerMissing = errors.New("gcode: start marker not found")
	ErrEndMarkerMissing   = errors.New("gcode: end marker not found")
	ErrNegativeCount      = errors.New("gcode: repetition count must be >= 0")
)

// Options parameterizes one rewrite.
type Options struct {
	Count       int
	UnitHeight  float64
	GapHeight   float64
	StartMarker string
	EndMarker   string
	Mode        Mode

	// Lenient restores the silent fallback for missing markers: without a start
	// marker the whole file is prologue, without an end marker the region runs
	// to end of file.
	Lenient bool

	// OnRepetition, when set, is called after each repetition is written.
	OnRepetition func(index int)
}

// Stats describes a finished rewrite.
type Stats struct {
	PrologueLines int
	RegionLines   int
	EpilogueLines int
	OutputLines   int
	Substituted   int
	Repetitions   int
	Bytes         int64
	StartFound    bool
	EndFound      bool
}

func (o *Options) markers() (string, string) {
	start, end := o.StartMarker, o.EndMarker
	if start == "" {
		start = DefaultStartMarker
	}
	if end == "" {
		end = DefaultEndMarker
	}
	return start, end
}

// Rewrite copies src to dst, replaying the marked region opts.Count times.
// The region is buffered once and replayed from memory.
func Rewrite(ctx context.Context, src io.Reader, dst io.Writer, opts Options) (Stats, error) {
	var stats Stats
	if opts.Count < 0 {
		return stats, ErrNegativeCount
	}
	startMarker, endMarker := opts.markers()
	scanner := NewScanner(src)

	prologue, found, err := scanner.ReadUntil(startMarker)
	if err != nil {
		return stats, fmt.Errorf("gcode: read prologue: %w", err)
	}
	stats.StartFound = found
	if !found && !opts.Lenient {
		return stats, fmt.Errorf("%w: %q", ErrStartMarkerMissing, startMarker)
	}

	region, found, err := scanner.ReadUntil(endMarker)
	if err != nil {
		return stats, fmt.Errorf("gcode: read region: %w", err)
	}
	stats.EndFound = found
	if !found && !opts.Lenient {
		return stats, fmt.Errorf("%w: %q", ErrEndMarkerMissing, endMarker)
	}

	epilogue, err := scanner.ReadRest()
	if err != nil {
		return stats, fmt.Errorf("gcode: read epilogue: %w", err)
	}
	stats.PrologueLines = len(prologue)
	stats.RegionLines = len(region)
	stats.EpilogueLines = len(epilogue)

	w := &lineWriter{w: bufio.NewWriter(dst), stats: &stats}
	w.writeAll(prologue)
	last := len(region) - 1
	for i := 0; i < opts.Count; i++ {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		t := NewHeightTransformer(i, opts.UnitHeight, opts.GapHeight, opts.Mode)
		for j, line := range region {
			out, ok := t.Apply(line)
			if ok {
				stats.Substituted++
			}
			// A region cut off at end of file may end without a newline; the
			// next repetition or the epilogue must still start on its own line.
			if j == last && !strings.HasSuffix(out, "\n") && (i < opts.Count-1 || len(epilogue) > 0) {
				out += "\n"
			}
			w.write(out)
		}
		if w.err != nil {
			return stats, fmt.Errorf("gcode: write repetition %d: %w", i, w.err)
		}
		stats.Repetitions++
		if opts.OnRepetition != nil {
			opts.OnRepetition(i)
		}
	}
	w.writeAll(epilogue)
	if w.err == nil {
		w.err = w.w.Flush()
	}
	if w.err != nil {
		return stats, fmt.Errorf("gcode: write output: %w", w.err)
	}
	return stats, nil
}

type lineWriter struct {
	w     *bufio.Writer
	stats *Stats
	err   error
}

func (lw *lineWriter) write(line string) {
	if lw.err != nil {
		return
	}
	n, err := lw.w.WriteString(line)
	lw.stats.Bytes += int64(n)
	lw.stats.OutputLines++
	lw.err = err
}

func (lw *lineWriter) writeAll(lines []string) {
	for _, line := range lines {
		lw.write(line)
	}
}
