// Package hooks binds client behaviors to element lifecycles.
//
// A hook is a small object with Mounted and Destroyed callbacks. Elements
// opt in by naming a hook in their phx-hook attribute; the Runtime mounts
// one hook instance per element when it appears in the document and
// destroys it when the element is removed.
//
// Hooks are registered once in an immutable Table:
//
//	table, err := hooks.NewBuilder().
//	    Register("Flash", standard.NewFlash).
//	    Register("Sortable", standard.NewSortable).
//	    Build()
//
// Each instance receives a Context carrying its element, the live
// connection Handle and a clock. Listeners and cleanups registered through
// the Context are owned by the instance and released when it is destroyed,
// so a hook cannot leak listeners past its element's lifetime.
package hooks
