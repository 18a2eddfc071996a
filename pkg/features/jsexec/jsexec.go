// Package jsexec lets the server ask the client to call a small, fixed set
// of element methods.
//
// The server dispatches a window event named phx:js-exec with detail
// {attr: <method>, to: <selector>}. Only focus, blur, click, reset and
// submit are honoured; anything else is logged as a warning and dropped.
// Each method is an explicit handler, so there is no lookup by name on the
// element itself.
package jsexec

import (
	stderrors "errors"
	"fmt"
	"log/slog"

	"github.com/vango-dev/livehooks/internal/errors"
	"github.com/vango-dev/livehooks/pkg/dom"
)

// EventName is the window event carrying remote-exec requests.
const EventName = "phx:js-exec"

// Action is a method the server may invoke.
type Action int

const (
	Focus Action = iota + 1
	Blur
	Click
	Reset
	Submit
)

var actionNames = [...]string{
	Focus:  "focus",
	Blur:   "blur",
	Click:  "click",
	Reset:  "reset",
	Submit: "submit",
}

// String returns the method name.
func (a Action) String() string {
	if a <= 0 || int(a) >= len(actionNames) {
		return "unknown"
	}
	return actionNames[a]
}

// ParseAction maps a method name to an Action. Matching is exact.
func ParseAction(name string) (Action, bool) {
	for a := Focus; a <= Submit; a++ {
		if actionNames[a] == name {
			return a, true
		}
	}
	return 0, false
}

// Allowed returns the permitted actions.
func Allowed() []Action {
	return []Action{Focus, Blur, Click, Reset, Submit}
}

type handler struct {
	supports func(*dom.Element) bool
	invoke   func(*dom.Element) error
}

func anyElement(*dom.Element) bool { return true }

var handlers = map[Action]handler{
	Focus:  {supports: anyElement, invoke: (*dom.Element).Focus},
	Blur:   {supports: anyElement, invoke: (*dom.Element).Blur},
	Click:  {supports: anyElement, invoke: (*dom.Element).Click},
	Reset:  {supports: (*dom.Element).IsForm, invoke: (*dom.Element).Reset},
	Submit: {supports: (*dom.Element).IsForm, invoke: (*dom.Element).Submit},
}

// Supports reports whether el has the method behind a.
func (a Action) Supports(el *dom.Element) bool {
	h, ok := handlers[a]
	return ok && h.supports(el)
}

// ErrorPolicy decides what happens when invoking a method on one of
// several matched elements fails.
type ErrorPolicy int

const (
	// Isolate attempts every match and reports all failures together.
	Isolate ErrorPolicy = iota
	// Abort stops at the first failure.
	Abort
)

func (p ErrorPolicy) String() string {
	if p == Abort {
		return "abort"
	}
	return "isolate"
}

// ParsePolicy maps "isolate" or "abort" to a policy.
func ParsePolicy(s string) (ErrorPolicy, error) {
	switch s {
	case "", "isolate":
		return Isolate, nil
	case "abort":
		return Abort, nil
	}
	return Isolate, fmt.Errorf("jsexec: unknown error policy %q", s)
}

// Request is one remote-exec request.
type Request struct {
	Attr string
	To   string
}

// Listener handles phx:js-exec events for one document.
type Listener struct {
	doc    *dom.Document
	policy ErrorPolicy
	logger *slog.Logger
	remove func()
}

// Option configures a Listener.
type Option func(*Listener)

// WithPolicy sets the error policy. The default is Isolate.
func WithPolicy(p ErrorPolicy) Option {
	return func(l *Listener) {
		l.policy = p
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Listener) {
		l.logger = logger
	}
}

// New creates a listener for doc. Call Register to start listening.
func New(doc *dom.Document, opts ...Option) *Listener {
	l := &Listener{doc: doc, logger: slog.Default()}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With("component", "jsexec")
	return l
}

// Register starts listening on the document's window. Calling it again
// is a no-op.
func (l *Listener) Register() {
	if l.remove != nil {
		return
	}
	l.remove = l.doc.Window().AddEventListener(EventName, l.onEvent)
}

// Unregister stops listening.
func (l *Listener) Unregister() {
	if l.remove != nil {
		l.remove()
		l.remove = nil
	}
}

// Policy returns the error policy in use.
func (l *Listener) Policy() ErrorPolicy {
	return l.policy
}

func (l *Listener) onEvent(ev *dom.Event) {
	req := Request{Attr: ev.DetailString("attr"), To: ev.DetailString("to")}
	if err := l.Handle(req); err != nil && !errors.HasCode(err, "E080") {
		l.logger.Error("js-exec failed", "attr", req.Attr, "to", req.To, "error", err)
	}
}

// Handle executes req. A method outside the allow-list logs one warning,
// touches nothing and returns an E080 error. Otherwise the method runs on
// every element matching req.To, in document order, that supports it;
// elements that lack the method are skipped. A malformed selector returns
// an E004 error without touching anything.
func (l *Listener) Handle(req Request) error {
	action, ok := ParseAction(req.Attr)
	if !ok {
		l.logger.Warn("js-exec method not allowed", "attr", req.Attr, "to", req.To)
		return errors.New("E080").WithDetail(fmt.Sprintf("method %q is not in the allow-list", req.Attr))
	}
	h := handlers[action]

	var targets []*dom.Element
	if req.To != "" {
		var err error
		if targets, err = l.doc.Query(req.To); err != nil {
			return err
		}
	}

	var errs []error
	for _, el := range targets {
		if !h.supports(el) {
			continue
		}
		if err := invoke(h, el); err != nil {
			err = fmt.Errorf("%s on <%s>: %w", action, el.Tag(), err)
			if l.policy == Abort {
				return errors.New("E081").Wrap(err)
			}
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errors.New("E081").Wrap(stderrors.Join(errs...))
	}
	return nil
}

// invoke runs one handler, turning a panic in a listener it triggers into
// an error.
func invoke(h handler, el *dom.Element) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return h.invoke(el)
}
