package live

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/livehooks/internal/errors"
	"github.com/vango-dev/livehooks/pkg/dom"
	"github.com/vango-dev/livehooks/pkg/eventloop"
	"github.com/vango-dev/livehooks/pkg/features/hooks/standard"
	"github.com/vango-dev/livehooks/pkg/protocol"
)

const testPage = `<html><head><meta name="csrf-token" content="tok-123"></head><body>
<div id="flash" phx-hook="Flash" phx-click="lv:clear-flash" phx-value-key="info">Saved</div>
<input id="name">
<form id="order" phx-change="reorder">
<ul id="list" phx-hook="Sortable">
<li id="a"><input type="hidden" name="ids[]" value="a">A</li>
<li id="b"><input type="hidden" name="ids[]" value="b">B</li>
<li id="c"><input type="hidden" name="ids[]" value="c">C</li>
</ul>
</form>
<form id="search" phx-submit="search"><input name="q" value="go"><button type="submit" id="go">Go</button></form>
</body></html>`

// liveServer is a minimal socket endpoint recording what clients send.
type liveServer struct {
	*httptest.Server

	mu      sync.Mutex
	dials   int
	query   url.Values
	conn    *websocket.Conn
	ready   chan struct{}
	events  chan *protocol.Message
	upgrade websocket.Upgrader
}

func newLiveServer(t *testing.T) *liveServer {
	t.Helper()
	ls := &liveServer{events: make(chan *protocol.Message, 16), ready: make(chan struct{})}
	mux := http.NewServeMux()
	mux.HandleFunc("/live/websocket", func(w http.ResponseWriter, r *http.Request) {
		ls.mu.Lock()
		ls.dials++
		ls.query = r.URL.Query()
		ls.mu.Unlock()
		if r.URL.Query().Get(protocol.ParamCSRF) == "" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		conn, err := ls.upgrade.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ls.mu.Lock()
		ls.conn = conn
		ls.mu.Unlock()
		close(ls.ready)
		for {
			_, b, err := conn.ReadMessage()
			if err != nil {
				return
			}
			m, err := protocol.Decode(b)
			if err != nil {
				continue
			}
			ls.events <- m
		}
	})
	ls.Server = httptest.NewServer(mux)
	t.Cleanup(ls.Close)
	return ls
}

// connection waits for the upgraded connection.
func (ls *liveServer) connection(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case <-ls.ready:
	case <-time.After(2 * time.Second):
		t.Fatal("client never connected")
	}
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return ls.conn
}

func (ls *liveServer) send(t *testing.T, m *protocol.Message) {
	t.Helper()
	conn := ls.connection(t)
	b, err := protocol.Encode(m)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	ls.mu.Lock()
	defer ls.mu.Unlock()
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
}

func (ls *liveServer) next(t *testing.T) *protocol.Message {
	t.Helper()
	select {
	case m := <-ls.events:
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for client message")
		return nil
	}
}

type harness struct {
	doc    *dom.Document
	loop   *eventloop.Loop
	client *Client
}

func newHarness(t *testing.T, markup string, cfg Config) *harness {
	t.Helper()
	doc, err := dom.ParseString(markup)
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	loop := eventloop.New(logger)
	ctx, cancel := context.WithCancel(context.Background())
	go loop.Run(ctx)
	t.Cleanup(cancel)

	if cfg.Hooks == nil {
		table, err := standard.Table()
		if err != nil {
			t.Fatalf("standard.Table: %v", err)
		}
		cfg.Hooks = table
	}
	cfg.Logger = logger
	return &harness{doc: doc, loop: loop, client: NewClient(doc, loop, cfg)}
}

func (h *harness) do(t *testing.T, fn func()) {
	t.Helper()
	if err := h.loop.Call(context.Background(), fn); err != nil {
		t.Fatalf("loop.Call: %v", err)
	}
}

func TestCSRFToken(t *testing.T) {
	tests := []struct {
		name   string
		markup string
		want   string
	}{
		{"present", `<head><meta name="csrf-token" content="abc"></head>`, "abc"},
		{"missing", `<head><meta name="viewport" content="x"></head>`, ""},
		{"empty", `<head><meta name="csrf-token" content=" "></head>`, ""},
		{"no content", `<head><meta name="csrf-token"></head>`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := dom.ParseString(tt.markup)
			if err != nil {
				t.Fatalf("ParseString: %v", err)
			}
			got, err := CSRFToken(doc)
			if tt.want == "" {
				if !errors.HasCode(err, "E061") {
					t.Errorf("CSRFToken error = %v, want E061", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("CSRFToken = %q, %v, want %q", got, err, tt.want)
			}
		})
	}
}

func TestSocketURL(t *testing.T) {
	tests := []struct {
		page, path string
		want       string
		code       string
	}{
		{"http://example.com/items?x=1", "/live", "ws://example.com/live/websocket?_csrf_token=t&vsn=" + protocol.Version, ""},
		{"https://example.com", "/live/", "wss://example.com/live/websocket?_csrf_token=t&vsn=" + protocol.Version, ""},
		{"http://example.com", "live", "", "E121"},
		{"ftp://example.com", "/live", "", "E060"},
		{"/relative", "/live", "", "E060"},
	}
	for _, tt := range tests {
		u, err := SocketURL(tt.page, tt.path, map[string]string{protocol.ParamCSRF: "t"})
		if tt.code != "" {
			if !errors.HasCode(err, tt.code) {
				t.Errorf("SocketURL(%q, %q) error = %v, want %s", tt.page, tt.path, err, tt.code)
			}
			continue
		}
		if err != nil {
			t.Errorf("SocketURL(%q, %q) error = %v", tt.page, tt.path, err)
			continue
		}
		if u.String() != tt.want {
			t.Errorf("SocketURL(%q, %q) = %s, want %s", tt.page, tt.path, u, tt.want)
		}
	}
}

func TestConnectWithoutTokenNeverDials(t *testing.T) {
	ls := newLiveServer(t)
	h := newHarness(t, `<body><p>no token</p></body>`, Config{URL: ls.URL})

	_, err := h.client.Connect(context.Background())
	if !errors.HasCode(err, "E061") {
		t.Fatalf("Connect error = %v, want E061", err)
	}
	ls.mu.Lock()
	defer ls.mu.Unlock()
	if ls.dials != 0 {
		t.Errorf("dials = %d, want 0", ls.dials)
	}
}

func TestFailedConnectLeavesNoListeners(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	tests := []struct {
		name   string
		markup string
		code   string
	}{
		{"no token", `<body><input id="x"></body>`, "E061"},
		{"dial refused", testPage, "E060"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.markup, Config{URL: srv.URL})
			_, err := h.client.Connect(context.Background())
			if !errors.HasCode(err, tt.code) {
				t.Fatalf("Connect error = %v, want %s", err, tt.code)
			}
			var window, document int
			h.do(t, func() {
				window = h.doc.Window().ListenerCount()
				document = h.doc.ListenerCount()
			})
			if window != 0 {
				t.Errorf("window listeners = %d, want 0", window)
			}
			if document != 0 {
				t.Errorf("document listeners = %d, want 0", document)
			}
		})
	}
}

func TestConnectOnce(t *testing.T) {
	ls := newLiveServer(t)
	h := newHarness(t, testPage, Config{URL: ls.URL})

	s, err := h.client.Connect(context.Background())
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer s.Close()

	ls.mu.Lock()
	q := ls.query
	ls.mu.Unlock()
	if q.Get(protocol.ParamCSRF) != "tok-123" {
		t.Errorf("_csrf_token = %q, want tok-123", q.Get(protocol.ParamCSRF))
	}
	if q.Get(protocol.ParamVersion) != protocol.Version {
		t.Errorf("vsn = %q, want %s", q.Get(protocol.ParamVersion), protocol.Version)
	}
	if s.TransportName() != "websocket" {
		t.Errorf("transport = %s, want websocket", s.TransportName())
	}

	if _, err := h.client.Connect(context.Background()); !stderrors.Is(err, ErrAlreadyConnected) {
		t.Errorf("second Connect error = %v, want ErrAlreadyConnected", err)
	}
	if h.client.Socket() != s {
		t.Error("Socket() should return the open socket")
	}

	var mounted int
	h.do(t, func() { mounted = s.Runtime().Len() })
	if mounted != 2 {
		t.Errorf("mounted hooks = %d, want 2", mounted)
	}
}

func TestClickBindingPushes(t *testing.T) {
	ls := newLiveServer(t)
	h := newHarness(t, testPage, Config{URL: ls.URL})
	s, err := h.client.Connect(context.Background())
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer s.Close()

	h.do(t, func() { h.doc.QuerySelector("#flash").Click() })

	m := ls.next(t)
	if m.Kind != protocol.KindEvent || m.Event != "lv:clear-flash" {
		t.Fatalf("message = %+v, want lv:clear-flash event", m)
	}
	if m.String("key") != "info" {
		t.Errorf("key = %q, want info", m.String("key"))
	}
	if m.Ref == "" {
		t.Error("event should carry a ref")
	}
}

func TestSortableReorderPushesChange(t *testing.T) {
	ls := newLiveServer(t)
	h := newHarness(t, testPage, Config{URL: ls.URL})
	s, err := h.client.Connect(context.Background())
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer s.Close()

	h.do(t, func() {
		h.doc.QuerySelector("#a").Dispatch(dom.NewEvent("pointerdown", true))
		h.doc.QuerySelector("#c").Dispatch(dom.NewEvent("pointerover", true))
		h.doc.QuerySelector("#c").Dispatch(dom.NewEvent("pointerup", true))
	})

	m := ls.next(t)
	if m.Event != "reorder" {
		t.Fatalf("event = %q, want reorder", m.Event)
	}
	if got := strings.Join(m.Strings("ids"), ","); got != "b,c,a" {
		t.Errorf("ids = %s, want b,c,a", got)
	}
}

func TestSubmitBindingPushes(t *testing.T) {
	ls := newLiveServer(t)
	h := newHarness(t, testPage, Config{URL: ls.URL})
	s, err := h.client.Connect(context.Background())
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer s.Close()

	h.do(t, func() { h.doc.QuerySelector("#go").Click() })

	m := ls.next(t)
	if m.Event != "search" || m.String("q") != "go" {
		t.Errorf("message = %+v, want search q=go", m)
	}
}

func TestServerExecIsGated(t *testing.T) {
	ls := newLiveServer(t)
	h := newHarness(t, testPage, Config{URL: ls.URL})
	s, err := h.client.Connect(context.Background())
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer s.Close()

	ls.send(t, protocol.NewExec("remove", "#name"))
	ls.send(t, protocol.NewExec("focus", "#name"))

	deadline := time.Now().Add(2 * time.Second)
	for {
		var active, name *dom.Element
		h.do(t, func() {
			active = h.doc.ActiveElement()
			name = h.doc.QuerySelector("#name")
		})
		if name == nil {
			t.Fatal("disallowed exec removed #name")
		}
		if active == name {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("focus exec was not applied")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestServerJSAndEvents(t *testing.T) {
	ls := newLiveServer(t)
	h := newHarness(t, testPage, Config{URL: ls.URL})
	s, err := h.client.Connect(context.Background())
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer s.Close()

	got := make(chan map[string]any, 1)
	h.do(t, func() {
		h.doc.Window().AddEventListener("phx:highlight", func(e *dom.Event) { got <- e.Detail })
	})

	ls.send(t, protocol.NewJS(`[["add_class",{"names":"seen"}]]`, "#name"))
	ls.send(t, &protocol.Message{Kind: protocol.KindEvent, Event: "highlight", Payload: map[string]any{"id": "a"}})

	select {
	case d := <-got:
		if d["id"] != "a" {
			t.Errorf("detail = %v, want id=a", d)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server event not dispatched")
	}

	var seen bool
	h.do(t, func() { seen = h.doc.QuerySelector("#name").HasClass("seen") })
	if !seen {
		t.Error("js command did not run before the later event")
	}
}

type fakeTransport struct {
	sent   chan *protocol.Message
	closed chan struct{}
	once   sync.Once
}

func (f *fakeTransport) Send(m *protocol.Message) error { f.sent <- m; return nil }
func (f *fakeTransport) Read() (*protocol.Message, error) {
	<-f.closed
	return nil, io.EOF
}
func (f *fakeTransport) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func TestFallbackTransport(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	ft := &fakeTransport{sent: make(chan *protocol.Message, 4), closed: make(chan struct{})}
	var dialled *url.URL
	h := newHarness(t, testPage, Config{
		URL:              srv.URL,
		LongPollFallback: 200 * time.Millisecond,
		Fallback: func(ctx context.Context, u *url.URL) (Transport, error) {
			dialled = u
			return ft, nil
		},
	})

	s, err := h.client.Connect(context.Background())
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if s.TransportName() == "websocket" {
		t.Error("expected fallback transport")
	}
	if dialled.Scheme != "http" || dialled.Query().Get(protocol.ParamCSRF) != "tok-123" {
		t.Errorf("fallback URL = %s", dialled)
	}

	if err := s.PushEvent("ping", nil); err != nil {
		t.Fatalf("PushEvent: %v", err)
	}
	if m := <-ft.sent; m.Event != "ping" {
		t.Errorf("sent = %+v, want ping", m)
	}

	s.Close()
	<-s.Done()
}

func TestCloseDestroysHooks(t *testing.T) {
	ls := newLiveServer(t)
	h := newHarness(t, testPage, Config{URL: ls.URL})
	s, err := h.client.Connect(context.Background())
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	<-s.Done()

	var hooksLeft, listeners int
	h.do(t, func() {
		hooksLeft = s.Runtime().Len()
		listeners = h.doc.ListenerCount() + h.doc.Window().ListenerCount()
		for _, el := range h.doc.Find("*") {
			listeners += el.ListenerCount()
		}
	})
	if hooksLeft != 0 {
		t.Errorf("hooks left = %d, want 0", hooksLeft)
	}
	if listeners != 0 {
		t.Errorf("listeners left = %d, want 0", listeners)
	}
}

func TestServerCloseEndsSocket(t *testing.T) {
	ls := newLiveServer(t)
	h := newHarness(t, testPage, Config{URL: ls.URL})
	s, err := h.client.Connect(context.Background())
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}

	ls.connection(t).Close()

	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("socket did not notice the server closing")
	}
	if s.Err() == nil {
		t.Error("Err should report why the connection ended")
	}
}

func TestFormPayload(t *testing.T) {
	doc, err := dom.ParseString(testPage)
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}
	p := FormPayload(doc.QuerySelector("#order"))
	ids, _ := p["ids"].([]string)
	if strings.Join(ids, ",") != "a,b,c" {
		t.Errorf("ids = %v, want a,b,c", p["ids"])
	}
	p = FormPayload(doc.QuerySelector("#search"))
	if p["q"] != "go" {
		t.Errorf("q = %v, want go", p["q"])
	}
}
