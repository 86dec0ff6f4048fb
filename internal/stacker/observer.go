package stacker

import "github.com/kingrea/stacker/internal/gcode"

// Observer receives progress events from a Runner. Calls arrive on the
// goroutine executing Run, in request order.
type Observer interface {
	RequestStarted(index int, req Request)
	RepetitionWritten(index int, req Request, repetition int)
	RequestFinished(index int, req Request, stats gcode.Stats, err error)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) RequestStarted(int, Request) {}
func (NopObserver) RepetitionWritten(int, Request, int) {}
func (NopObserver) RequestFinished(int, Request, gcode.Stats, error) {}

// Result records the outcome of one request.
type Result struct {
	Request Request
	Stats   gcode.Stats
	Err     error
}
