package standard

import (
	"time"

	"github.com/vango-dev/livehooks/pkg/dom"
	"github.com/vango-dev/livehooks/pkg/features/hooks"
	"github.com/vango-dev/livehooks/pkg/timer"
)

const (
	// FlashDelay is the countdown started when a notice appears.
	FlashDelay = 5000 * time.Millisecond

	// FlashResumeDelay is the countdown restarted when the pointer leaves.
	// It is shorter than FlashDelay: the reader has already seen the notice.
	FlashResumeDelay = 3000 * time.Millisecond

	// DismissAttr holds the notice's dismiss command, shared with click.
	DismissAttr = "phx-click"
)

// FlashState is the lifecycle state of one notice.
type FlashState int

const (
	// FlashArmed means a countdown is running.
	FlashArmed FlashState = iota
	// FlashPaused means the pointer is over the notice; no countdown runs.
	FlashPaused
	// FlashDismissed means the countdown expired and the dismiss command ran.
	FlashDismissed
	// FlashDetached means the element left the document.
	FlashDetached
)

func (s FlashState) String() string {
	switch s {
	case FlashArmed:
		return "armed"
	case FlashPaused:
		return "paused"
	case FlashDismissed:
		return "dismissed"
	case FlashDetached:
		return "detached"
	}
	return "unknown"
}

// FlashOptions configures the notice countdowns.
type FlashOptions struct {
	Delay       time.Duration
	ResumeDelay time.Duration
}

// DefaultFlashOptions returns 5s initial and 3s resume countdowns.
func DefaultFlashOptions() FlashOptions {
	return FlashOptions{Delay: FlashDelay, ResumeDelay: FlashResumeDelay}
}

// Flash auto-dismisses a notice. Expiry runs the element's phx-click
// command through the live connection, exactly as a click would, so the
// server sees one dismissal path.
type Flash struct {
	opts  FlashOptions
	ctx   *hooks.Context
	state FlashState
	timer *timer.Timer
}

// NewFlash is the hooks.Factory for Flash with default options.
func NewFlash() hooks.Hook {
	return &Flash{opts: DefaultFlashOptions()}
}

// FlashFactory returns a factory using opts. Zero durations fall back to
// the defaults.
func FlashFactory(opts FlashOptions) hooks.Factory {
	def := DefaultFlashOptions()
	if opts.Delay <= 0 {
		opts.Delay = def.Delay
	}
	if opts.ResumeDelay <= 0 {
		opts.ResumeDelay = def.ResumeDelay
	}
	return func() hooks.Hook { return &Flash{opts: opts} }
}

// Mounted implements hooks.Hook.
func (f *Flash) Mounted(ctx *hooks.Context) {
	f.ctx = ctx
	f.arm(f.opts.Delay)
	ctx.Listen(ctx.El, "mouseenter", func(*dom.Event) { f.pause() })
	ctx.Listen(ctx.El, "mouseleave", func(*dom.Event) { f.resume() })
}

// Destroyed implements hooks.Hook.
func (f *Flash) Destroyed(ctx *hooks.Context) {
	f.timer.Cancel()
	f.state = FlashDetached
}

// State returns the current state.
func (f *Flash) State() FlashState {
	return f.state
}

func (f *Flash) arm(d time.Duration) {
	f.state = FlashArmed
	f.timer = timer.Start(f.ctx.Clock, d, f.expire)
}

func (f *Flash) pause() {
	if f.state != FlashArmed {
		return
	}
	f.timer.Cancel()
	f.state = FlashPaused
}

func (f *Flash) resume() {
	if f.state != FlashPaused {
		return
	}
	f.arm(f.opts.ResumeDelay)
}

func (f *Flash) expire() {
	if f.state != FlashArmed {
		return
	}
	f.state = FlashDismissed

	js, ok := f.ctx.El.Attr(DismissAttr)
	if !ok || js == "" {
		f.ctx.Logger.Warn("flash has no dismiss command", "attr", DismissAttr)
		return
	}
	if err := f.ctx.ExecJS(js); err != nil {
		f.ctx.Logger.Error("flash dismiss failed", "error", err)
	}
}
