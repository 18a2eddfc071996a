package timer

import (
	"sync"
	"time"
)

// State is the lifecycle state of a Timer.
type State int

const (
	// Pending means the countdown is running.
	Pending State = iota
	// Fired means the callback ran.
	Fired
	// Cancelled means Cancel stopped the countdown before it fired.
	Cancelled
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Fired:
		return "fired"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Timer is a one-shot countdown. A Timer leaves Pending exactly once.
type Timer struct {
	mu       sync.Mutex
	state    State
	stop     Stopper
	deadline time.Time
}

// Start schedules fn to run after d on clock.
func Start(clock Clock, d time.Duration, fn func()) *Timer {
	t := &Timer{state: Pending, deadline: clock.Now().Add(d)}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stop = clock.AfterFunc(d, func() {
		t.mu.Lock()
		if t.state != Pending {
			t.mu.Unlock()
			return
		}
		t.state = Fired
		t.mu.Unlock()
		fn()
	})
	return t
}

// Cancel stops a pending countdown. It is safe to call on a nil Timer, on
// a Timer that already fired, and more than once; those calls are no-ops.
// Cancel reports whether this call moved the timer from Pending to Cancelled.
func (t *Timer) Cancel() bool {
	if t == nil {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != Pending {
		return false
	}
	t.state = Cancelled
	if t.stop != nil {
		t.stop.Stop()
	}
	return true
}

// State returns the current state.
func (t *Timer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Deadline returns when the countdown was due.
func (t *Timer) Deadline() time.Time {
	return t.deadline
}
