// Package live boots a page's live connection.
//
// A Client reads the CSRF token the server rendered into the page, dials
// {path}/websocket with that token as a connect parameter and hands the
// resulting Socket to the hooks runtime as its connection handle. The
// Socket also owns the framework bindings: clicks on [phx-click]
// elements, form change and submit events, and messages the server sends
// back (exec requests, command lists and pushed events).
//
// All DOM work happens on an eventloop.Loop; Connect and Close may be
// called from any goroutine while the loop is running.
package live
