package live

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/vango-dev/livehooks/pkg/features/hooks"
	"github.com/vango-dev/livehooks/pkg/features/jsexec"
	"github.com/vango-dev/livehooks/pkg/timer"
)

// Defaults.
const (
	DefaultPath             = "/live"
	DefaultLongPollFallback = 2500 * time.Millisecond
	DefaultWriteTimeout     = 10 * time.Second
)

// Dialer opens a fallback transport to the socket endpoint. u is the
// websocket URL with its scheme rewritten to http(s).
type Dialer func(ctx context.Context, u *url.URL) (Transport, error)

// Config configures a Client.
type Config struct {
	// URL is the address the page was loaded from. Its host and scheme
	// decide where the socket connects.
	URL string

	// Path is the socket mount point. The websocket endpoint is
	// Path + "/websocket".
	Path string

	// LongPollFallback is how long to wait for the websocket to open
	// before switching to Fallback. Ignored when Fallback is nil.
	LongPollFallback time.Duration

	// Fallback dials an alternative transport.
	Fallback Dialer

	// Params are extra connect parameters. The CSRF token is added
	// under _csrf_token and cannot be overridden.
	Params map[string]string

	// Hooks is the behavior table handed to the hooks runtime.
	Hooks *hooks.Table

	// ExecPolicy is the error policy of the phx:js-exec listener.
	ExecPolicy jsexec.ErrorPolicy

	// Jar supplies cookies for the websocket handshake. The server's
	// CSRF check needs the cookie it set when rendering the page.
	Jar http.CookieJar

	// Clock drives hook timers. Defaults to the real clock.
	Clock timer.Clock

	// WriteTimeout bounds each websocket write.
	WriteTimeout time.Duration

	Logger *slog.Logger
}

// DefaultConfig returns a Config with the standard mount point and
// fallback delay.
func DefaultConfig() Config {
	return Config{
		Path:             DefaultPath,
		LongPollFallback: DefaultLongPollFallback,
		WriteTimeout:     DefaultWriteTimeout,
	}
}

func (c *Config) applyDefaults() {
	if c.Path == "" {
		c.Path = DefaultPath
	}
	if c.LongPollFallback <= 0 {
		c.LongPollFallback = DefaultLongPollFallback
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	if c.Clock == nil {
		c.Clock = timer.RealClock()
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}
