package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vango-dev/livehooks/pkg/store"
)

// Config configures a Server.
type Config struct {
	// Address is the listen address for Run.
	Address string

	// LivePath is the socket mount point. The websocket endpoint is
	// LivePath + "/websocket".
	LivePath string

	// CSRFSecret signs CSRF tokens. Nil disables the signature check;
	// the double-submit comparison always applies.
	CSRFSecret []byte

	// ExecToken authorizes POST /api/exec as a bearer token. Empty
	// disables the endpoint.
	ExecToken string

	// SecureCookies marks the CSRF cookie Secure.
	SecureCookies bool

	// Store persists list order. Required.
	Store *store.Store

	// Flash is the notice rendered on every fresh page. Empty renders none.
	Flash string

	// CheckOrigin is passed to the websocket upgrader.
	CheckOrigin func(r *http.Request) bool

	ReadBufferSize  int
	WriteBufferSize int

	// SendQueueSize is the per-session outbound buffer.
	SendQueueSize int

	// WriteTimeout bounds each websocket write.
	WriteTimeout time.Duration

	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration

	// Registry receives the server metrics and backs /metrics. A private
	// registry is created when nil.
	Registry *prometheus.Registry

	Logger *slog.Logger
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Address:           ":4000",
		LivePath:          "/live",
		CheckOrigin:       func(*http.Request) bool { return true },
		ReadBufferSize:    1024,
		WriteBufferSize:   1024,
		SendQueueSize:     32,
		WriteTimeout:      10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   10 * time.Second,
	}
}

func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.Address == "" {
		c.Address = d.Address
	}
	if c.LivePath == "" {
		c.LivePath = d.LivePath
	}
	if c.CheckOrigin == nil {
		c.CheckOrigin = d.CheckOrigin
	}
	if c.ReadBufferSize == 0 {
		c.ReadBufferSize = d.ReadBufferSize
	}
	if c.WriteBufferSize == 0 {
		c.WriteBufferSize = d.WriteBufferSize
	}
	if c.SendQueueSize == 0 {
		c.SendQueueSize = d.SendQueueSize
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.ReadHeaderTimeout == 0 {
		c.ReadHeaderTimeout = d.ReadHeaderTimeout
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = d.ShutdownTimeout
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}
