// Package server is the companion server for live pages.
//
// It renders the demo page (CSRF meta tag, a dismissible flash notice and
// a reorderable list inside form[phx-change=reorder]), accepts live
// connections at {LivePath}/websocket and routes client events to
// handlers. List order is persisted through pkg/store.
//
// # Sessions
//
// Each connection is a Session identified by a UUID. A session has one
// reader goroutine, which handles events in order, and one writer
// goroutine draining its send queue.
//
// # CSRF
//
// Pages carry a token in <meta name="csrf-token"> and in a cookie. The
// socket handshake must present the same token as the _csrf_token
// parameter (double submit); when a secret is configured the token must
// also carry a valid HMAC-SHA256 signature. Rejected handshakes get 403
// before the upgrade.
//
// # Built-in events
//
//   - reorder {ids: [...]}: saves the list order
//   - lv:clear-flash {key}: drops the session's flash and hides #flash
//
// Applications add more with HandleEvent. Exec broadcasts a remote-exec
// request to every connected client.
package server
