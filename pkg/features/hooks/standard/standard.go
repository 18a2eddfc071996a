package standard

import "github.com/vango-dev/livehooks/pkg/features/hooks"

// Hook names as used in phx-hook attributes.
const (
	FlashHook    = "Flash"
	SortableHook = "Sortable"
)

// Table returns a registration table with Flash and Sortable using their
// default options.
func Table() (*hooks.Table, error) {
	return hooks.NewBuilder().
		Register(FlashHook, NewFlash).
		Register(SortableHook, NewSortable).
		Build()
}
