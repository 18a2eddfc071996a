package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	lherrors "github.com/vango-dev/livehooks/internal/errors"
	"github.com/vango-dev/livehooks/pkg/middleware"
	"github.com/vango-dev/livehooks/pkg/protocol"
)

// EventHandler handles one client event. The returned payload is sent
// back as the reply.
type EventHandler func(ctx context.Context, sess *Session, m *protocol.Message) (map[string]any, error)

// Server serves live pages and their sockets.
type Server struct {
	config   *Config
	router   chi.Router
	upgrader websocket.Upgrader
	registry *prometheus.Registry
	metrics  *middleware.Metrics
	logger   *slog.Logger

	handlers map[string]EventHandler
	dispatch middleware.Handler
	mws      []middleware.Middleware

	mu       sync.RWMutex
	sessions map[string]*Session

	httpServer *http.Server
}

// New creates a server. config.Store must be set.
func New(config *Config) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	config.applyDefaults()

	registry := config.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector())
	}

	s := &Server{
		config: config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		registry: registry,
		metrics:  middleware.NewMetrics(middleware.WithRegistry(registry)),
		logger:   config.Logger.With("component", "server"),
		handlers: map[string]EventHandler{},
		sessions: map[string]*Session{},
	}
	s.HandleEvent("reorder", s.handleReorder)
	s.HandleEvent("lv:clear-flash", s.handleClearFlash)
	s.Use(middleware.OpenTelemetry(), s.metrics.Middleware())
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)

	r.Get("/", s.pageHandler)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	r.Get(strings.TrimRight(s.config.LivePath, "/")+"/websocket", s.HandleWebSocket)
	r.Post("/api/exec", s.execHandler)
	return r
}

// Use appends event middleware. mws wrap handlers in order, outermost
// first.
func (s *Server) Use(mws ...middleware.Middleware) {
	s.mws = append(s.mws, mws...)
	s.dispatch = middleware.Chain(s.handle, s.mws...)
}

// HandleEvent registers h for events named name, replacing any previous
// handler.
func (s *Server) HandleEvent(name string, h EventHandler) {
	s.handlers[name] = h
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Metrics returns the server's collectors.
func (s *Server) Metrics() *middleware.Metrics {
	return s.metrics
}

// SessionCount returns the number of open sessions.
func (s *Server) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Exec asks every connected client to invoke method on the elements
// matching selector. Clients enforce their own allow-list. It returns
// the number of sessions the request was queued for.
func (s *Server) Exec(method, selector string) int {
	return s.broadcast(protocol.NewExec(method, selector), method)
}

// ExecJS asks every connected client to run a command list.
func (s *Server) ExecJS(js, selector string) int {
	return s.broadcast(protocol.NewJS(js, selector), "")
}

func (s *Server) broadcast(m *protocol.Message, method string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, sess := range s.sessions {
		if err := sess.Send(m); err != nil {
			s.logger.Warn("broadcast dropped", "session_id", sess.ID(), "error", err)
			continue
		}
		n++
	}
	if method != "" {
		s.metrics.ExecBroadcast(method)
	}
	return n
}

type execRequest struct {
	Attr string `json:"attr"`
	To   string `json:"to"`
	JS   string `json:"js"`
}

// authorizeExec guards the exec endpoint. It answers with a status and
// reason when the request must be refused.
func (s *Server) authorizeExec(r *http.Request) (int, string) {
	if s.config.ExecToken == "" {
		return http.StatusForbidden, "exec endpoint disabled"
	}
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mt != "application/json" {
		return http.StatusUnsupportedMediaType, "content type must be application/json"
	}
	if origin := r.Header.Get("Origin"); origin != "" {
		u, err := url.Parse(origin)
		if err != nil || !strings.EqualFold(u.Host, r.Host) {
			return http.StatusForbidden, "cross-origin request"
		}
	}
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(s.config.ExecToken)) != 1 {
		return http.StatusUnauthorized, "missing or invalid exec token"
	}
	return 0, ""
}

func (s *Server) execHandler(w http.ResponseWriter, r *http.Request) {
	if status, reason := s.authorizeExec(r); status != 0 {
		s.logger.Warn("exec request rejected", "error", lherrors.New("E082").WithDetail(reason), "remote", r.RemoteAddr, "origin", r.Header.Get("Origin"))
		s.metrics.CSRFRejected()
		http.Error(w, reason, status)
		return
	}

	var req execRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, protocol.MaxMessageSize)).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	var n int
	switch {
	case req.Attr != "" && req.To != "":
		n = s.Exec(req.Attr, req.To)
	case req.JS != "":
		n = s.ExecJS(req.JS, req.To)
	default:
		http.Error(w, "attr and to, or js, are required", http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{"sessions": n})
}

// Run serves on config.Address until ctx is cancelled or the process
// receives SIGINT/SIGTERM, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.config.Address,
		Handler:           s,
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "address", s.config.Address)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		s.logger.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	}
}

// Shutdown closes every session and stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	for _, sess := range s.sessions {
		sess.close()
	}
	s.mu.Unlock()

	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
