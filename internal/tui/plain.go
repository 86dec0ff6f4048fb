package tui

import (
	"fmt"
	"io"

	"github.com/kingrea/stacker/internal/gcode"
	"github.com/kingrea/stacker/internal/stacker"
)

// PlainReporter prints one line per event, for pipes and log files.
type PlainReporter struct {
	w     io.Writer
	total int
}

var _ stacker.Observer = (*PlainReporter)(nil)

// NewPlainReporter reports on total requests to w.
func NewPlainReporter(w io.Writer, total int) *PlainReporter {
	return &PlainReporter{w: w, total: total}
}

func (p *PlainReporter) RequestStarted(index int, req stacker.Request) {
	fmt.Fprintf(p.w, "[%d/%d] %s: stacking %d repetition(s)\n", index+1, p.total, req.Path, req.Count)
}

func (p *PlainReporter) RepetitionWritten(int, stacker.Request, int) {}

func (p *PlainReporter) RequestFinished(index int, req stacker.Request, stats gcode.Stats, err error) {
	if err != nil {
		fmt.Fprintf(p.w, "[%d/%d] %s: failed: %v\n", index+1, p.total, req.Path, err)
		return
	}
	fmt.Fprintf(p.w, "[%d/%d] %s: %d lines, %d height edits\n", index+1, p.total, req.Path, stats.OutputLines, stats.Substituted)
}
