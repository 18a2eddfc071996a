package dom

// Listener handles an event.
type Listener func(*Event)

type listener struct {
	fn      Listener
	removed bool
}

// Event is a DOM event.
type Event struct {
	// Type is the event name ("click", "input", "phx:js-exec", ...).
	Type string

	// Bubbles reports whether the event propagates to ancestors, the
	// document and the window after the target.
	Bubbles bool

	// Detail is the payload of custom events.
	Detail map[string]any

	// Target is the element the event was dispatched on. It is nil for
	// events dispatched directly on the window or document.
	Target *Element

	// CurrentTarget is the *Element, *Document or *Window whose listener
	// is running.
	CurrentTarget any

	stopped          bool
	defaultPrevented bool
}

// NewEvent returns a plain event.
func NewEvent(typ string, bubbles bool) *Event {
	return &Event{Type: typ, Bubbles: bubbles}
}

// NewCustomEvent returns a bubbling event carrying detail.
func NewCustomEvent(typ string, detail map[string]any) *Event {
	return &Event{Type: typ, Bubbles: true, Detail: detail}
}

// StopPropagation prevents the event from reaching further targets.
// Remaining listeners on the current target still run.
func (e *Event) StopPropagation() {
	e.stopped = true
}

// PreventDefault cancels the default action that follows dispatch.
func (e *Event) PreventDefault() {
	e.defaultPrevented = true
}

// DefaultPrevented reports whether PreventDefault was called.
func (e *Event) DefaultPrevented() bool {
	return e.defaultPrevented
}

// DetailString returns Detail[key] when it is a string.
func (e *Event) DetailString(key string) string {
	if e.Detail == nil {
		return ""
	}
	s, _ := e.Detail[key].(string)
	return s
}

func (d *Document) addListener(key any, typ string, fn Listener) func() {
	byType, ok := d.listeners[key]
	if !ok {
		byType = make(map[string][]*listener)
		d.listeners[key] = byType
	}
	l := &listener{fn: fn}
	byType[typ] = append(byType[typ], l)

	return func() {
		if l.removed {
			return
		}
		l.removed = true
		list := d.listeners[key][typ]
		for i, cur := range list {
			if cur == l {
				list = append(list[:i], list[i+1:]...)
				break
			}
		}
		if len(list) == 0 {
			delete(d.listeners[key], typ)
			if len(d.listeners[key]) == 0 {
				delete(d.listeners, key)
			}
			return
		}
		d.listeners[key][typ] = list
	}
}

func (d *Document) countListeners(key any) int {
	n := 0
	for _, list := range d.listeners[key] {
		n += len(list)
	}
	return n
}

// invoke runs the listeners registered on key for ev.Type. Listeners added
// during dispatch do not run; listeners removed during dispatch are skipped.
func (d *Document) invoke(key any, ev *Event) {
	list := d.listeners[key][ev.Type]
	if len(list) == 0 {
		return
	}
	snapshot := append([]*listener(nil), list...)
	ev.CurrentTarget = key
	for _, l := range snapshot {
		if l.removed {
			continue
		}
		l.fn(ev)
	}
}

// dispatchFrom runs the propagation path for an element target.
func (d *Document) dispatchFrom(target *Element, ev *Event) bool {
	ev.Target = target
	ev.stopped = false

	d.invoke(target, ev)
	if !ev.Bubbles || ev.stopped {
		return !ev.defaultPrevented
	}

	for p := target.Parent(); p != nil; p = p.Parent() {
		d.invoke(p, ev)
		if ev.stopped {
			return !ev.defaultPrevented
		}
	}

	if target.Connected() {
		d.invoke(d, ev)
		if ev.stopped {
			return !ev.defaultPrevented
		}
		d.invoke(d.window, ev)
	}
	return !ev.defaultPrevented
}
