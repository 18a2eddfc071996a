// Package eventloop runs page work on a single goroutine.
//
// The document model is single-threaded. Everything that touches it
// (timer expirations, server messages, user interactions driven by the
// CLI) is posted to a Loop and executed in order, one task at a time.
package eventloop

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/vango-dev/livehooks/pkg/timer"
)

// ErrStopped is returned when posting to a loop that has finished running.
var ErrStopped = errors.New("eventloop: stopped")

// DefaultQueueSize is the task buffer used by New.
const DefaultQueueSize = 256

// Loop is a FIFO task queue drained by Run.
type Loop struct {
	tasks  chan func()
	done   chan struct{}
	once   sync.Once
	logger *slog.Logger
}

// New creates a loop. Nothing runs until Run is called.
func New(logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		tasks:  make(chan func(), DefaultQueueSize),
		done:   make(chan struct{}),
		logger: logger.With("component", "eventloop"),
	}
}

// Post queues fn. It blocks while the queue is full and returns
// ErrStopped once the loop has exited.
func (l *Loop) Post(fn func()) error {
	select {
	case <-l.done:
		return ErrStopped
	default:
	}
	select {
	case l.tasks <- fn:
		return nil
	case <-l.done:
		return ErrStopped
	}
}

// Call posts fn and waits for it to finish.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if err := l.Post(func() {
		defer close(finished)
		fn()
	}); err != nil {
		return err
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run executes tasks until ctx is cancelled. A panicking task is logged
// and does not stop the loop.
func (l *Loop) Run(ctx context.Context) error {
	defer l.once.Do(func() { close(l.done) })
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.tasks:
			l.run(fn)
		}
	}
}

// Done is closed when Run returns.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

func (l *Loop) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("task panicked", "panic", r)
		}
	}()
	fn()
}

// Clock adapts a timer.Clock so that callbacks run on the loop instead of
// the clock's own goroutine.
type Clock struct {
	loop *Loop
	base timer.Clock
}

// NewClock returns a loop-bound clock over base.
func NewClock(loop *Loop, base timer.Clock) *Clock {
	if base == nil {
		base = timer.RealClock()
	}
	return &Clock{loop: loop, base: base}
}

// Now returns the base clock's time.
func (c *Clock) Now() time.Time {
	return c.base.Now()
}

// AfterFunc schedules fn on the loop after d.
func (c *Clock) AfterFunc(d time.Duration, fn func()) timer.Stopper {
	return c.base.AfterFunc(d, func() {
		if err := c.loop.Post(fn); err != nil {
			c.loop.logger.Debug("timer dropped", "error", err)
		}
	})
}
