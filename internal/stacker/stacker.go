// Package stacker drives the g-code rewrite for every configured output,
// one file at a time.
package stacker

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/kingrea/stacker/internal/config"
	"github.com/kingrea/stacker/internal/gcode"
	"github.com/kingrea/stacker/internal/logbook"
)

// ErrSourceMissing is returned before any output is touched when the source
// program cannot be found.
var ErrSourceMissing = errors.New("stacker: source not found")

// Request asks for one output file with Count repetitions of the region.
type Request struct {
	Path  string
	Count int
}

// Option customizes Runner construction.
type Option func(*Runner)

// WithObserver routes progress events to obs.
func WithObserver(obs Observer) Option {
	return func(r *Runner) {
		if obs != nil {
			r.observer = obs
		}
	}
}

// WithLogbook records run events in book.
func WithLogbook(book *logbook.Logbook) Option {
	return func(r *Runner) {
		r.logbook = book
	}
}

// Runner produces every output described by a configuration.
type Runner struct {
	cfg      *config.Config
	observer Observer
	logbook  *logbook.Logbook
}

// New validates cfg and returns a runner for it.
func New(cfg *config.Config, opts ...Option) (*Runner, error) {
	if cfg == nil {
		return nil, fmt.Errorf("stacker: config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r := &Runner{cfg: cfg, observer: NopObserver{}}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Requests lists the outputs in the order they will be written.
func (r *Runner) Requests() []Request {
	reqs := make([]Request, 0, len(r.cfg.Outputs))
	for _, out := range r.cfg.Outputs {
		reqs = append(reqs, Request{Path: out.Path, Count: out.Count})
	}
	return reqs
}

// Run writes each output in turn. The first failure stops the run; results
// for the requests finished so far, plus the failed one, are returned with it.
func (r *Runner) Run(ctx context.Context) ([]Result, error) {
	if err := r.checkSource(); err != nil {
		r.logbook.Error("%v", err)
		return nil, err
	}
	reqs := r.Requests()
	r.logbook.Info("run started: source=%s requests=%d unit=%.3f gap=%.3f mode=%s",
		r.cfg.Source, len(reqs), r.cfg.UnitHeight, r.cfg.GapHeight, r.cfg.Mode())

	results := make([]Result, 0, len(reqs))
	for i, req := range reqs {
		if err := ctx.Err(); err != nil {
			r.logbook.Warn("run cancelled before %s", req.Path)
			return results, err
		}
		r.observer.RequestStarted(i, req)
		stats, err := r.runOne(ctx, i, req)
		r.observer.RequestFinished(i, req, stats, err)
		results = append(results, Result{Request: req, Stats: stats, Err: err})
		if err != nil {
			r.logbook.Error("write %s: %v", req.Path, err)
			return results, fmt.Errorf("stacker: write %s: %w", req.Path, err)
		}
		r.logbook.Info("wrote %s: repetitions=%d lines=%d substituted=%d bytes=%d",
			req.Path, stats.Repetitions, stats.OutputLines, stats.Substituted, stats.Bytes)
	}
	r.logbook.Info("run finished: %d output(s)", len(results))
	return results, nil
}

func (r *Runner) checkSource() error {
	info, err := os.Stat(r.cfg.Source)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrSourceMissing, r.cfg.Source)
		}
		return fmt.Errorf("stacker: stat source: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("stacker: source %s is a directory", r.cfg.Source)
	}
	return nil
}

func (r *Runner) runOne(ctx context.Context, index int, req Request) (gcode.Stats, error) {
	src, err := os.Open(r.cfg.Source)
	if err != nil {
		return gcode.Stats{}, fmt.Errorf("open source: %w", err)
	}
	defer src.Close()

	out, err := createAtomic(req.Path)
	if err != nil {
		return gcode.Stats{}, err
	}
	defer out.Abort()

	stats, err := gcode.Rewrite(ctx, src, out, gcode.Options{
		Count:       req.Count,
		UnitHeight:  r.cfg.UnitHeight,
		GapHeight:   r.cfg.GapHeight,
		StartMarker: r.cfg.Markers.Start,
		EndMarker:   r.cfg.Markers.End,
		Mode:        r.cfg.Mode(),
		Lenient:     r.cfg.LenientMarkers,
		OnRepetition: func(rep int) {
			r.observer.RepetitionWritten(index, req, rep)
		},
	})
	if err != nil {
		return stats, err
	}
	if !stats.StartFound {
		r.logbook.Warn("%s: start marker %q not found, copied source unchanged", req.Path, r.cfg.Markers.Start)
	} else if !stats.EndFound {
		r.logbook.Warn("%s: end marker %q not found, region runs to end of file", req.Path, r.cfg.Markers.End)
	}
	if err := out.Commit(); err != nil {
		return stats, err
	}
	return stats, nil
}
