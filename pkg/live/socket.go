package live

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/vango-dev/livehooks/pkg/dom"
	"github.com/vango-dev/livehooks/pkg/eventloop"
	"github.com/vango-dev/livehooks/pkg/features/hooks"
	"github.com/vango-dev/livehooks/pkg/features/jsexec"
	"github.com/vango-dev/livehooks/pkg/jscmd"
	"github.com/vango-dev/livehooks/pkg/protocol"
)

// Socket is an open live connection. It is the hooks.Handle every hook
// instance on the page receives.
type Socket struct {
	client    *Client
	doc       *dom.Document
	loop      *eventloop.Loop
	transport Transport
	exec      *jscmd.Executor
	runtime   *hooks.Runtime
	logger    *slog.Logger

	bindings []func()

	closeOnce sync.Once
	done      chan struct{}
	err       error
}

var _ hooks.Handle = (*Socket)(nil)

func newSocket(c *Client, t Transport) *Socket {
	s := &Socket{
		client:    c,
		doc:       c.doc,
		loop:      c.loop,
		transport: t,
		logger:    c.cfg.Logger,
		done:      make(chan struct{}),
	}
	s.exec = jscmd.NewExecutor(s.PushEvent)
	s.runtime = hooks.NewRuntime(c.doc, c.cfg.Hooks, s,
		hooks.WithClock(eventloop.NewClock(c.loop, c.cfg.Clock)),
		hooks.WithLogger(c.cfg.Logger),
	)
	return s
}

// attach registers the js-exec listener, installs bindings and mounts
// hooks. Runs on the loop once a transport is open.
func (s *Socket) attach() {
	s.client.exec.Register()
	s.bind()
	s.runtime.Start()
}

// ExecJS runs a declarative command list with el as its source.
func (s *Socket) ExecJS(el *dom.Element, js string) error {
	return s.exec.Exec(el, js)
}

// PushEvent sends an event to the server.
func (s *Socket) PushEvent(event string, payload map[string]any) error {
	return s.transport.Send(protocol.NewEvent(uuid.NewString(), event, payload))
}

// Runtime returns the hooks runtime bound to this socket.
func (s *Socket) Runtime() *hooks.Runtime {
	return s.runtime
}

// TransportName reports which transport is in use.
func (s *Socket) TransportName() string {
	if _, ok := s.transport.(*wsTransport); ok {
		return "websocket"
	}
	return fmt.Sprintf("%T", s.transport)
}

// Done is closed when the connection ends.
func (s *Socket) Done() <-chan struct{} {
	return s.done
}

// Err returns the error that ended the connection, if any.
func (s *Socket) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

// Close ends the connection, destroys every hook instance and removes
// the bindings.
func (s *Socket) Close() error {
	return s.shutdown(nil)
}

func (s *Socket) shutdown(cause error) error {
	var err error
	s.closeOnce.Do(func() {
		s.err = cause
		err = s.transport.Close()
		if perr := s.loop.Post(s.detach); perr != nil {
			s.logger.Debug("loop stopped before socket teardown", "error", perr)
		}
		close(s.done)
	})
	return err
}

func (s *Socket) detach() {
	s.runtime.Close()
	for i := len(s.bindings) - 1; i >= 0; i-- {
		s.bindings[i]()
	}
	s.bindings = nil
	s.client.exec.Unregister()
}

func (s *Socket) readLoop() {
	for {
		m, err := s.transport.Read()
		if err != nil {
			select {
			case <-s.done:
			default:
				s.logger.Info("live connection closed", "error", err)
			}
			s.shutdown(err)
			return
		}
		if err := s.loop.Post(func() { s.handle(m) }); err != nil {
			s.shutdown(err)
			return
		}
	}
}

// handle applies one server message. Runs on the loop.
func (s *Socket) handle(m *protocol.Message) {
	switch m.Kind {
	case protocol.KindExec:
		s.doc.Window().Dispatch(dom.NewCustomEvent(jsexec.EventName, map[string]any{
			"attr": m.String("attr"),
			"to":   m.String("to"),
		}))
	case protocol.KindJS:
		source := s.doc.Body()
		if to := m.String("to"); to != "" {
			source = s.doc.QuerySelector(to)
		}
		if source == nil {
			s.logger.Warn("js command target not found", "to", m.String("to"))
			return
		}
		if err := s.ExecJS(source, m.String("js")); err != nil {
			s.logger.Error("js command failed", "error", err)
		}
	case protocol.KindEvent:
		s.doc.Window().Dispatch(dom.NewCustomEvent("phx:"+m.Event, m.Payload))
	case protocol.KindReply:
		s.logger.Debug("reply", "ref", m.Ref, "payload", m.Payload)
	case protocol.KindError:
		s.logger.Warn("server error", "ref", m.Ref, "reason", m.String("reason"))
	default:
		s.logger.Warn("unknown message kind", "kind", m.Kind)
	}
}
