package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/livehooks/internal/errors"
	"github.com/vango-dev/livehooks/pkg/middleware"
	"github.com/vango-dev/livehooks/pkg/protocol"
)

// HandleWebSocket validates the CSRF token, upgrades the connection and
// serves the session until it closes.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get(protocol.ParamCSRF)
	if !s.validateCSRF(r, token) {
		s.metrics.CSRFRejected()
		s.logger.Warn("socket rejected", "reason", "csrf", "remote", r.RemoteAddr)
		http.Error(w, "invalid CSRF token", http.StatusForbidden)
		return
	}
	if vsn := r.URL.Query().Get(protocol.ParamVersion); vsn != "" && vsn != protocol.Version {
		s.logger.Warn("client protocol version differs", "client", vsn, "server", protocol.Version)
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	conn.SetReadLimit(protocol.MaxMessageSize)

	sess := newSession(conn, s.config.SendQueueSize, s.config.Flash)
	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()
	s.metrics.SocketOpened()
	logger := s.logger.With("session_id", sess.id)
	logger.Info("session opened")

	go sess.writeLoop(s.config.WriteTimeout, func(err error) {
		logger.Debug("write failed", "error", err)
	})

	defer func() {
		sess.close()
		s.mu.Lock()
		delete(s.sessions, sess.id)
		s.mu.Unlock()
		s.metrics.SocketClosed()
		logger.Info("session closed")
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	for {
		_, b, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("read failed", "error", err)
			}
			return
		}
		m, err := protocol.Decode(b)
		if err != nil {
			logger.Warn("bad message", "error", err)
			sess.Send(protocol.NewError("", err.Error()))
			continue
		}
		if m.Kind != protocol.KindEvent {
			sess.Send(protocol.NewError(m.Ref, fmt.Sprintf("unexpected %s message", m.Kind)))
			continue
		}
		if err := s.dispatch(ctx, &middleware.Event{SessionID: sess.id, Message: m}); err != nil {
			logger.Warn("event failed", "event", m.Event, "error", err)
			sess.Send(protocol.NewError(m.Ref, reason(err)))
		}
	}
}

// handle routes one event to its handler and queues the reply.
func (s *Server) handle(ctx context.Context, ev *middleware.Event) error {
	s.mu.RLock()
	sess := s.sessions[ev.SessionID]
	s.mu.RUnlock()
	if sess == nil {
		return errors.New("E067").WithDetail("session " + ev.SessionID + " is gone")
	}

	h, ok := s.handlers[ev.Name()]
	if !ok {
		return errors.Newf(errors.CategoryProtocol, "no handler for event %q", ev.Name())
	}
	reply, err := h(ctx, sess, ev.Message)
	if err != nil {
		return err
	}
	if reply == nil {
		reply = map[string]any{}
	}
	return sess.Send(protocol.NewReply(ev.Message.Ref, reply))
}

// reason renders err for an error message to the client.
func reason(err error) string {
	var le *errors.LiveError
	if stderrors.As(err, &le) {
		return le.FormatCompact()
	}
	return err.Error()
}
