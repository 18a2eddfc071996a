package live

import (
	"context"
	stderrors "errors"
	"net/url"
	"sync"

	"github.com/vango-dev/livehooks/internal/errors"
	"github.com/vango-dev/livehooks/pkg/dom"
	"github.com/vango-dev/livehooks/pkg/eventloop"
	"github.com/vango-dev/livehooks/pkg/features/jsexec"
	"github.com/vango-dev/livehooks/pkg/protocol"
)

// ErrAlreadyConnected is returned by a second Connect on the same client.
var ErrAlreadyConnected = errors.New("E065")

// Client owns the live connection of one page.
type Client struct {
	cfg  Config
	doc  *dom.Document
	loop *eventloop.Loop
	exec *jsexec.Listener

	mu         sync.Mutex
	connecting bool
	socket     *Socket
}

// NewClient returns a client for doc. The loop must be running before
// Connect is called.
func NewClient(doc *dom.Document, loop *eventloop.Loop, cfg Config) *Client {
	cfg.applyDefaults()
	cfg.Logger = cfg.Logger.With("component", "live")
	return &Client{
		cfg:  cfg,
		doc:  doc,
		loop: loop,
		exec: jsexec.New(doc, jsexec.WithPolicy(cfg.ExecPolicy), jsexec.WithLogger(cfg.Logger)),
	}
}

// Socket returns the open socket, or nil.
func (c *Client) Socket() *Socket {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.socket
}

// Connect opens the page's single live connection.
//
// The CSRF token is read before anything is dialled; a page without one
// fails with E061. When a fallback transport is configured and the
// websocket has not opened within LongPollFallback, the fallback is used.
// A failed Connect may be retried by the caller; a successful one may not.
func (c *Client) Connect(ctx context.Context) (*Socket, error) {
	c.mu.Lock()
	if c.socket != nil || c.connecting {
		c.mu.Unlock()
		return nil, ErrAlreadyConnected
	}
	c.connecting = true
	c.mu.Unlock()

	s, err := c.connect(ctx)

	c.mu.Lock()
	c.connecting = false
	c.socket = s
	c.mu.Unlock()
	return s, err
}

func (c *Client) connect(ctx context.Context) (*Socket, error) {
	var token string
	var tokenErr error
	if err := c.loop.Call(ctx, func() {
		token, tokenErr = CSRFToken(c.doc)
	}); err != nil {
		return nil, err
	}
	if tokenErr != nil {
		return nil, tokenErr
	}

	params := map[string]string{}
	for k, v := range c.cfg.Params {
		params[k] = v
	}
	params[protocol.ParamCSRF] = token

	u, err := SocketURL(c.cfg.URL, c.cfg.Path, params)
	if err != nil {
		return nil, err
	}

	t, err := c.dial(ctx, u)
	if err != nil {
		return nil, err
	}

	s := newSocket(c, t)
	if err := c.loop.Call(ctx, s.attach); err != nil {
		t.Close()
		return nil, err
	}
	go s.readLoop()

	c.cfg.Logger.Info("live connection open", "url", redact(u), "transport", s.TransportName())
	return s, nil
}

func (c *Client) dial(ctx context.Context, u *url.URL) (Transport, error) {
	if c.cfg.Fallback == nil {
		return dialWebSocket(ctx, u.String(), c.cfg.Jar, c.cfg.WriteTimeout)
	}

	wsCtx, cancel := context.WithTimeout(ctx, c.cfg.LongPollFallback)
	defer cancel()
	t, err := dialWebSocket(wsCtx, u.String(), c.cfg.Jar, c.cfg.WriteTimeout)
	if err == nil {
		return t, nil
	}
	if ctx.Err() != nil || errors.HasCode(err, "E062") {
		return nil, err
	}

	c.cfg.Logger.Warn("websocket unavailable, using fallback transport", "error", err)
	fb := *u
	if fb.Scheme == "wss" {
		fb.Scheme = "https"
	} else {
		fb.Scheme = "http"
	}
	ft, ferr := c.cfg.Fallback(ctx, &fb)
	if ferr != nil {
		return nil, errors.New("E060").Wrap(stderrors.Join(err, ferr))
	}
	return ft, nil
}

// redact hides the CSRF token in logged URLs.
func redact(u *url.URL) string {
	cp := *u
	q := cp.Query()
	if q.Has(protocol.ParamCSRF) {
		q.Set(protocol.ParamCSRF, "REDACTED")
	}
	cp.RawQuery = q.Encode()
	return cp.String()
}
