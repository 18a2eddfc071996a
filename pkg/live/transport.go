package live

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/livehooks/internal/errors"
	"github.com/vango-dev/livehooks/pkg/protocol"
)

// Transport carries protocol messages between client and server.
type Transport interface {
	Send(m *protocol.Message) error
	// Read blocks until the next message arrives or the transport closes.
	Read() (*protocol.Message, error)
	Close() error
}

type wsTransport struct {
	conn         *websocket.Conn
	writeTimeout time.Duration

	mu     sync.Mutex
	closed bool
}

func dialWebSocket(ctx context.Context, u string, jar http.CookieJar, writeTimeout time.Duration) (*wsTransport, error) {
	d := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: 45 * time.Second,
		Jar:              jar,
	}
	conn, resp, err := d.DialContext(ctx, u, nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusForbidden {
			return nil, errors.New("E062").Wrap(err)
		}
		return nil, errors.New("E060").Wrap(err)
	}
	conn.SetReadLimit(protocol.MaxMessageSize)
	return &wsTransport{conn: conn, writeTimeout: writeTimeout}, nil
}

func (t *wsTransport) Send(m *protocol.Message) error {
	b, err := protocol.Encode(m)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return errors.New("E067")
	}
	t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout))
	if err := t.conn.WriteMessage(websocket.TextMessage, b); err != nil {
		return errors.New("E067").Wrap(err)
	}
	return nil
}

func (t *wsTransport) Read() (*protocol.Message, error) {
	_, b, err := t.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	return protocol.Decode(b)
}

func (t *wsTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	t.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return t.conn.Close()
}
