// Package tick converts a fixed-period timer interrupt into cooperative
// 10ms, 100ms and 1s cadences.
package tick

import "sync/atomic"

// Result reports whether a Poll serviced a tick.
type Result int

const (
	// NoTick means the timer has not fired since the last Poll.
	NoTick Result = iota
	// Ticked means the 10ms handler ran (and possibly the slower ones).
	Ticked
)

const cadenceDivider = 10

// Scheduler derives the 10ms, 100ms and 1s cadences from the base tick.
// Interrupt is the only method safe to call from the timer context; all
// other state is owned by the cooperative main context.
type Scheduler struct {
	pending atomic.Bool

	count100ms uint8 // down counters, always in [0,10]
	count1s    uint8

	on10ms  func()
	on100ms func()
	on1s    func()
}

// New creates a Scheduler with the given cadence handlers. Nil handlers
// are allowed and skipped.
func New(on10ms, on100ms, on1s func()) *Scheduler {
	return &Scheduler{
		count100ms: cadenceDivider,
		count1s:    cadenceDivider,
		on10ms:     on10ms,
		on100ms:    on100ms,
		on1s:       on1s,
	}
}

// Interrupt marks that the base tick period has elapsed. It is the timer
// interrupt entry point: O(1), non-blocking, and safe to call concurrently
// with Poll. Ticks are not queued; if Poll falls behind, ticks are dropped.
func (s *Scheduler) Interrupt() {
	s.pending.Store(true)
}

// Poll services a pending tick. It always runs the 10ms handler, runs the
// 100ms handler every tenth tick, and the 1s handler every tenth 100ms
// boundary. All due handlers run in the same Poll call, so cadences never
// skip as long as Poll is called at least once per base tick period.
func (s *Scheduler) Poll() Result {
	if !s.pending.Swap(false) {
		return NoTick
	}

	if s.on10ms != nil {
		s.on10ms()
	}

	if s.count100ms--; s.count100ms != 0 {
		return Ticked
	}
	s.count100ms = cadenceDivider
	if s.on100ms != nil {
		s.on100ms()
	}

	if s.count1s--; s.count1s != 0 {
		return Ticked
	}
	s.count1s = cadenceDivider
	if s.on1s != nil {
		s.on1s()
	}

	return Ticked
}
