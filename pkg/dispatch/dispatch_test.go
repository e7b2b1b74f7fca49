package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// scripted is a callback returning canned statuses in order, repeating
// the last one when exhausted.
type scripted struct {
	statuses []Status
	calls    int
}

func (s *scripted) poll() Status {
	i := s.calls
	s.calls++
	if i >= len(s.statuses) {
		i = len(s.statuses) - 1
	}
	if i < 0 {
		return NotApplicable
	}
	return s.statuses[i]
}

func TestRunOnce_PriorityOrder(t *testing.T) {
	var order []string
	loop := New(
		func() Status { order = append(order, "high"); return Done },
		func() Status { order = append(order, "low"); return Done },
	)

	assert.True(t, loop.RunOnce())
	assert.Equal(t, []string{"high", "low"}, order)
}

func TestRunOnce_EagerShortCircuits(t *testing.T) {
	high := &scripted{statuses: []Status{Eager, Eager, Done}}
	low := &scripted{statuses: []Status{Done}}
	loop := New(high.poll, low.poll)

	// while the high-priority callback is eager, the low one starves
	assert.True(t, loop.RunOnce())
	assert.True(t, loop.RunOnce())
	assert.Equal(t, 0, low.calls)

	// once it settles, the pass reaches the low-priority callback
	assert.True(t, loop.RunOnce())
	assert.Equal(t, 1, low.calls)
	assert.Equal(t, 3, high.calls)
}

func TestRunOnce_AllIdle(t *testing.T) {
	loop := New(
		func() Status { return NotApplicable },
		func() Status { return NotApplicable },
	)

	assert.False(t, loop.RunOnce())
}

func TestRunOnce_NotApplicableFallsThrough(t *testing.T) {
	low := &scripted{statuses: []Status{Done}}
	loop := New(
		func() Status { return NotApplicable },
		low.poll,
	)

	assert.True(t, loop.RunOnce())
	assert.Equal(t, 1, low.calls)
}

func TestRun_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	loop := New(func() Status {
		calls++
		if calls >= 3 {
			cancel()
		}
		return Done
	})

	done := make(chan struct{})
	go func() {
		loop.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loop did not stop on cancel")
	}
	assert.GreaterOrEqual(t, calls, 3)
}
