// Package protocol defines the messages exchanged over a live connection.
//
// Every message is a JSON object:
//
//	{"ref": "…", "kind": "event", "event": "reorder", "payload": {"ids": ["b","a"]}}
//
// Clients send event messages; servers answer with reply or error
// messages carrying the same ref, and may at any time send:
//
//   - exec {attr, to}: invoke an element method, subject to the client's
//     allow-list
//   - js {js, to}: run a declarative command list
//   - event: re-dispatched on the client window as phx:<event>
//
// Clients connect with the connect parameters _csrf_token and vsn.
// Messages larger than MaxMessageSize are rejected on both sides.
package protocol
