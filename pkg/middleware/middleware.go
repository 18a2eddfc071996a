package middleware

import (
	"context"

	"github.com/vango-dev/livehooks/pkg/protocol"
)

// Event is a client event delivered to the server.
type Event struct {
	SessionID string
	Message   *protocol.Message
}

// Name returns the event name.
func (e *Event) Name() string {
	if e.Message == nil {
		return ""
	}
	return e.Message.Event
}

// Handler handles one event.
type Handler func(ctx context.Context, ev *Event) error

// Middleware wraps a Handler.
type Middleware func(next Handler) Handler

// Chain wraps h with mws. mws[0] runs first.
func Chain(h Handler, mws ...Middleware) Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
