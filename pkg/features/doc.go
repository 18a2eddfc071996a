// Package features groups the client behaviors a live page runs.
//
// # Subsystems
//
//   - hooks: element lifecycle callbacks bound through phx-hook, and the
//     runtime that mounts and destroys them as the document changes
//   - hooks/standard: the Flash and Sortable hooks
//   - jsexec: the allow-listed phx:js-exec listener
//
// Each subsystem is its own package:
//
//	import "github.com/vango-dev/livehooks/pkg/features/hooks"
//	import "github.com/vango-dev/livehooks/pkg/features/jsexec"
package features
