// Package dispatch implements the cooperative priority loop that drives
// the controller: an ordered list of callbacks polled highest priority
// first, forever.
package dispatch

import (
	"context"
	"time"
)

// Status is the tri-state result a callback reports to the loop.
type Status int

const (
	// NotApplicable means the callback had nothing to do.
	NotApplicable Status = iota
	// Done means the callback did its work and the loop may move on.
	Done
	// Eager means more work is immediately pending; the loop restarts
	// from the top so higher-priority callbacks are polled again first.
	Eager
)

// Callback is a unit of cooperative work. Callbacks must be bounded and
// non-blocking; the loop never preempts them.
type Callback func() Status

// idleSleep bounds CPU use when every callback reports NotApplicable.
// It is well under the 10ms base tick, so ticks are never missed.
const idleSleep = 500 * time.Microsecond

// Loop polls callbacks in strict priority order.
type Loop struct {
	callbacks []Callback
}

// New creates a loop with callbacks ordered from highest priority to
// lowest.
func New(callbacks ...Callback) *Loop {
	return &Loop{callbacks: callbacks}
}

// RunOnce makes a single pass. An Eager result short-circuits back to
// the caller so the next pass starts from the top; lower-priority
// callbacks only run once every higher-priority callback had nothing
// eager to do. It reports whether any callback did work.
func (l *Loop) RunOnce() bool {
	busy := false
	for _, cb := range l.callbacks {
		switch cb() {
		case Eager:
			return true
		case Done:
			busy = true
		}
	}
	return busy
}

// Run polls the callbacks until the context is cancelled, sleeping
// briefly whenever a full pass found no work.
func (l *Loop) Run(ctx context.Context) {
	for ctx.Err() == nil {
		if !l.RunOnce() {
			time.Sleep(idleSleep)
		}
	}
}
