// Package standard holds the hooks every livehooks page registers:
//
//   - Flash: auto-dismisses a notice after a countdown that pauses while
//     the pointer is over it.
//   - Sortable: pointer-driven reordering of a list's children that
//     notifies the enclosing form so the new order is sent to the server.
//
// Register them with Table, or pick individual factories:
//
//	table, err := standard.Table()
package standard
