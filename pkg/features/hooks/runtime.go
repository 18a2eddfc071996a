package hooks

import (
	"fmt"
	"log/slog"

	"github.com/vango-dev/livehooks/internal/errors"
	"github.com/vango-dev/livehooks/pkg/dom"
	"github.com/vango-dev/livehooks/pkg/timer"
)

// Attr is the attribute naming an element's hook.
const Attr = "phx-hook"

// instance is the slot owned by one live element.
type instance struct {
	name     string
	hook     Hook
	ctx      *Context
	cleanups []func()
}

// Runtime mounts and destroys hook instances as elements come and go.
type Runtime struct {
	doc    *dom.Document
	table  *Table
	handle Handle
	clock  timer.Clock
	logger *slog.Logger

	instances map[*dom.Element]*instance
	order     []*dom.Element
	unknown   map[*dom.Element]string

	stopObserving func()
	syncing       bool
	dirty         bool
	closed        bool
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithClock sets the clock handed to hook contexts.
func WithClock(c timer.Clock) Option {
	return func(r *Runtime) {
		r.clock = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runtime) {
		r.logger = l
	}
}

// NewRuntime creates a runtime for doc. Call Start to mount hooks and
// begin tracking document mutations.
func NewRuntime(doc *dom.Document, table *Table, handle Handle, opts ...Option) *Runtime {
	r := &Runtime{
		doc:       doc,
		table:     table,
		handle:    handle,
		clock:     timer.RealClock(),
		logger:    slog.Default(),
		instances: make(map[*dom.Element]*instance),
		unknown:   make(map[*dom.Element]string),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "hooks")
	return r
}

// Start mounts hooks on the current document and keeps them in sync with
// later insertions and removals.
func (r *Runtime) Start() {
	if r.stopObserving != nil || r.closed {
		return
	}
	r.stopObserving = r.doc.OnMutation(r.Sync)
	r.Sync()
}

// Sync reconciles instances with the document: elements that left the
// document (or changed hook name) are destroyed, new [phx-hook] elements
// are mounted in document order.
func (r *Runtime) Sync() {
	if r.closed {
		return
	}
	if r.syncing {
		r.dirty = true
		return
	}
	r.syncing = true
	defer func() { r.syncing = false }()

	for {
		r.dirty = false
		r.reconcile()
		if !r.dirty {
			return
		}
	}
}

func (r *Runtime) reconcile() {
	present := r.doc.Find("[" + Attr + "]")
	live := make(map[*dom.Element]string, len(present))
	for _, el := range present {
		live[el] = el.AttrOr(Attr, "")
	}

	// Destroy first so a moved or renamed hook never has two instances.
	for _, el := range append([]*dom.Element(nil), r.order...) {
		inst := r.instances[el]
		if name, ok := live[el]; !ok || name != inst.name {
			r.destroy(el)
		}
	}
	for el := range r.unknown {
		if _, ok := live[el]; !ok {
			delete(r.unknown, el)
		}
	}

	for _, el := range present {
		if _, mounted := r.instances[el]; mounted {
			continue
		}
		if !el.Connected() {
			continue
		}
		r.mount(el, live[el])
	}
}

func (r *Runtime) mount(el *dom.Element, name string) {
	factory, ok := r.table.Lookup(name)
	if !ok {
		if r.unknown[el] != name {
			r.unknown[el] = name
			r.logger.Error("unknown hook", "error", errors.New("E001"), "hook", name, "element", describe(el))
		}
		return
	}
	delete(r.unknown, el)

	inst := &instance{name: name, hook: factory()}
	inst.ctx = &Context{
		El:     el,
		Handle: r.handle,
		Clock:  r.clock,
		Logger: r.logger.With("hook", name, "element", describe(el)),
		name:   name,
		inst:   inst,
	}
	r.instances[el] = inst
	r.order = append(r.order, el)

	r.call(inst, "mounted", inst.hook.Mounted)
}

func (r *Runtime) destroy(el *dom.Element) {
	inst, ok := r.instances[el]
	if !ok {
		return
	}
	delete(r.instances, el)
	for i, cur := range r.order {
		if cur == el {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	r.call(inst, "destroyed", inst.hook.Destroyed)

	inst.ctx.released = true
	for i := len(inst.cleanups) - 1; i >= 0; i-- {
		inst.cleanups[i]()
	}
	inst.cleanups = nil
}

// call runs a lifecycle callback, logging a panic instead of letting one
// hook take the runtime down.
func (r *Runtime) call(inst *instance, phase string, fn func(*Context)) {
	defer func() {
		if rec := recover(); rec != nil {
			inst.ctx.Logger.Error("hook callback panicked", "phase", phase, "panic", rec)
		}
	}()
	fn(inst.ctx)
}

// Instance returns the hook mounted on el.
func (r *Runtime) Instance(el *dom.Element) (Hook, bool) {
	inst, ok := r.instances[el]
	if !ok {
		return nil, false
	}
	return inst.hook, true
}

// Len returns the number of mounted instances.
func (r *Runtime) Len() int {
	return len(r.instances)
}

// Close destroys every instance and stops tracking the document.
func (r *Runtime) Close() {
	if r.closed {
		return
	}
	if r.stopObserving != nil {
		r.stopObserving()
	}
	for len(r.order) > 0 {
		r.destroy(r.order[len(r.order)-1])
	}
	r.closed = true
}

func describe(el *dom.Element) string {
	if id := el.ID(); id != "" {
		return fmt.Sprintf("%s#%s", el.Tag(), id)
	}
	return el.Tag()
}
