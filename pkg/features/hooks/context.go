package hooks

import (
	"log/slog"

	"github.com/vango-dev/livehooks/internal/errors"
	"github.com/vango-dev/livehooks/pkg/dom"
	"github.com/vango-dev/livehooks/pkg/timer"
)

// Handle is the live connection as seen by hooks. The runtime injects it
// into every Context; hooks never reach for a global.
type Handle interface {
	// ExecJS runs the declarative command list js with el as the source.
	ExecJS(el *dom.Element, js string) error

	// PushEvent sends an event to the server.
	PushEvent(event string, payload map[string]any) error
}

// Context is what a hook instance sees of the world.
type Context struct {
	// El is the element the hook is attached to.
	El *dom.Element

	// Handle is the live connection.
	Handle Handle

	// Clock schedules timers.
	Clock timer.Clock

	// Logger is scoped to the hook name and element.
	Logger *slog.Logger

	name     string
	inst     *instance
	released bool
}

// Name returns the hook name the element was mounted with.
func (c *Context) Name() string { return c.name }

// Document returns the element's document.
func (c *Context) Document() *dom.Document { return c.El.Document() }

// Listen adds an event listener on target that is removed when the hook
// instance is destroyed. The returned func removes it earlier.
func (c *Context) Listen(target *dom.Element, typ string, fn dom.Listener) func() {
	remove := target.AddEventListener(typ, fn)
	c.Defer(remove)
	return remove
}

// Defer registers fn to run when the instance is destroyed. Deferred
// funcs run in reverse order of registration, after Destroyed returns.
// Registering on a released context runs fn immediately.
func (c *Context) Defer(fn func()) {
	if c.released {
		fn()
		return
	}
	c.inst.cleanups = append(c.inst.cleanups, fn)
}

// ExecJS runs js against the hook's element through the Handle.
func (c *Context) ExecJS(js string) error {
	if c.Handle == nil {
		return errors.New("E067").WithDetail("hook has no live connection")
	}
	return c.Handle.ExecJS(c.El, js)
}

// PushEvent sends an event through the Handle.
func (c *Context) PushEvent(event string, payload map[string]any) error {
	if c.Handle == nil {
		return errors.New("E067").WithDetail("hook has no live connection")
	}
	return c.Handle.PushEvent(event, payload)
}
