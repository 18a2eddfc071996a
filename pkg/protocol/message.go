package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/vango-dev/livehooks/internal/errors"
)

// Version is sent by clients in the vsn connect parameter.
const Version = "1.0.0"

// Connect parameter names.
const (
	ParamCSRF    = "_csrf_token"
	ParamVersion = "vsn"
)

// MaxMessageSize bounds a single encoded message.
const MaxMessageSize = 64 * 1024

// Kind identifies what a message carries.
type Kind string

const (
	// KindEvent is a client → server user event (click, form change, hook push).
	KindEvent Kind = "event"

	// KindReply acknowledges a client event.
	KindReply Kind = "reply"

	// KindExec asks the client to invoke an element method, gated by the
	// client's remote-exec allow-list. Payload: {attr, to}.
	KindExec Kind = "exec"

	// KindJS asks the client to run a declarative command list.
	// Payload: {js, to}.
	KindJS Kind = "js"

	// KindError reports a server-side failure.
	KindError Kind = "error"
)

// Message is the JSON envelope exchanged over the live connection.
type Message struct {
	Ref     string         `json:"ref,omitempty"`
	Kind    Kind           `json:"kind"`
	Event   string         `json:"event,omitempty"`
	Payload map[string]any `json:"payload,omitempty"`
}

// NewEvent returns a client event message.
func NewEvent(ref, event string, payload map[string]any) *Message {
	return &Message{Ref: ref, Kind: KindEvent, Event: event, Payload: payload}
}

// NewReply returns a reply to the event with ref.
func NewReply(ref string, payload map[string]any) *Message {
	return &Message{Ref: ref, Kind: KindReply, Payload: payload}
}

// NewExec returns a remote-exec request for method attr on elements
// matching selector to.
func NewExec(attr, to string) *Message {
	return &Message{Kind: KindExec, Payload: map[string]any{"attr": attr, "to": to}}
}

// NewJS returns a request to run the command list js. An empty to runs it
// against the document body.
func NewJS(js, to string) *Message {
	return &Message{Kind: KindJS, Payload: map[string]any{"js": js, "to": to}}
}

// NewError returns an error message.
func NewError(ref, reason string) *Message {
	return &Message{Ref: ref, Kind: KindError, Payload: map[string]any{"reason": reason}}
}

// String returns Payload[key] when it is a string.
func (m *Message) String(key string) string {
	if m.Payload == nil {
		return ""
	}
	switch v := m.Payload[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Strings returns Payload[key] as a string slice. JSON arrays decode to
// []any, so both shapes are accepted.
func (m *Message) Strings(key string) []string {
	if m.Payload == nil {
		return nil
	}
	switch v := m.Payload[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprintf("%v", item))
		}
		return out
	case string:
		return []string{v}
	}
	return nil
}

// Encode serializes m.
func Encode(m *Message) ([]byte, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, errors.New("E063").Wrap(err)
	}
	if len(b) > MaxMessageSize {
		return nil, errors.New("E066")
	}
	return b, nil
}

// Decode parses a message, enforcing MaxMessageSize.
func Decode(b []byte) (*Message, error) {
	if len(b) > MaxMessageSize {
		return nil, errors.New("E066")
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var m Message
	if err := dec.Decode(&m); err != nil {
		return nil, errors.New("E063").Wrap(err)
	}
	if m.Kind == "" {
		return nil, errors.New("E063").WithDetail("message has no kind")
	}
	return &m, nil
}
