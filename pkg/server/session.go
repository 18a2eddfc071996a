package server

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/vango-dev/livehooks/internal/errors"
	"github.com/vango-dev/livehooks/pkg/protocol"
)

// Session is one live connection.
type Session struct {
	id   string
	conn *websocket.Conn
	send chan *protocol.Message

	mu    sync.Mutex
	flash map[string]string

	closeOnce sync.Once
	done      chan struct{}
}

func newSession(conn *websocket.Conn, queue int, flash string) *Session {
	sess := &Session{
		id:    uuid.NewString(),
		conn:  conn,
		send:  make(chan *protocol.Message, queue),
		flash: map[string]string{},
		done:  make(chan struct{}),
	}
	if flash != "" {
		sess.flash["info"] = flash
	}
	return sess
}

// ID returns the session ID.
func (s *Session) ID() string { return s.id }

// Send queues m for the client. It fails with E067 once the session is
// closed and with E066 when the queue is full.
func (s *Session) Send(m *protocol.Message) error {
	select {
	case <-s.done:
		return errors.New("E067")
	default:
	}
	select {
	case s.send <- m:
		return nil
	case <-s.done:
		return errors.New("E067")
	default:
		return errors.New("E066").WithDetail("send queue full for session " + s.id)
	}
}

// Flash returns the flash message stored under key.
func (s *Session) Flash(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.flash[key]
	return msg, ok
}

// ClearFlash removes the flash under key and reports whether it existed.
func (s *Session) ClearFlash(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.flash[key]
	delete(s.flash, key)
	return ok
}

// Done is closed when the session ends.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.conn.Close()
	})
}

// writeLoop drains the send queue until the session closes.
func (s *Session) writeLoop(timeout time.Duration, onErr func(error)) {
	for {
		select {
		case <-s.done:
			return
		case m := <-s.send:
			b, err := protocol.Encode(m)
			if err != nil {
				onErr(err)
				continue
			}
			s.conn.SetWriteDeadline(time.Now().Add(timeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				onErr(err)
				s.close()
				return
			}
		}
	}
}
