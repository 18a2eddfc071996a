package standard

import (
	"strconv"
	"time"

	"github.com/vango-dev/livehooks/pkg/dom"
	"github.com/vango-dev/livehooks/pkg/features/hooks"
)

// SortableOptions configures the reorder controller.
type SortableOptions struct {
	// Animation is the transition duration for items sliding into place.
	// While a drag is in progress the list carries it in AnimationAttr so
	// stylesheets can pick it up.
	Animation time.Duration

	// DragClass marks the item being dragged.
	DragClass string

	// Handle restricts drag starts to elements matching this selector
	// inside an item. Empty means the whole item.
	Handle string
}

// AnimationAttr is set on the list during a drag to the configured
// animation duration in milliseconds.
const AnimationAttr = "data-sortable-animation"

// DefaultSortableOptions returns 150ms animation and the "drag-item" class.
func DefaultSortableOptions() SortableOptions {
	return SortableOptions{
		Animation: 150 * time.Millisecond,
		DragClass: "drag-item",
	}
}

// SortEvent describes a completed reorder.
type SortEvent struct {
	Item     *dom.Element
	OldIndex int
	NewIndex int
}

// Controller makes the direct children of an element reorderable with
// pointer events: pointerdown on an item starts a drag, pointerover on a
// sibling moves the item there, pointerup ends it and pointercancel puts
// the item back.
type Controller struct {
	el    *dom.Element
	opts  SortableOptions
	onEnd func(SortEvent)

	removers  []func()
	dragging  *dom.Element
	origin    int
	destroyed bool
}

// NewController installs a controller on el. onEnd runs once per drag
// that changed the item's position.
func NewController(el *dom.Element, opts SortableOptions, onEnd func(SortEvent)) *Controller {
	c := &Controller{el: el, opts: opts, onEnd: onEnd}
	c.removers = []func(){
		el.AddEventListener("pointerdown", c.onPointerDown),
		el.AddEventListener("pointerover", c.onPointerOver),
		el.AddEventListener("pointerup", c.onPointerUp),
		el.AddEventListener("pointercancel", c.onPointerCancel),
	}
	return c
}

// Options returns the controller's options.
func (c *Controller) Options() SortableOptions {
	return c.opts
}

// Dragging returns the item being dragged, or nil.
func (c *Controller) Dragging() *dom.Element {
	return c.dragging
}

// Destroy removes every listener the controller installed. It is safe to
// call more than once.
func (c *Controller) Destroy() {
	if c.destroyed {
		return
	}
	c.destroyed = true
	for _, remove := range c.removers {
		remove()
	}
	c.removers = nil
	if c.dragging != nil {
		c.endDrag()
	}
}

func (c *Controller) startDrag(it *dom.Element) {
	c.dragging = it
	c.origin = it.Index()
	it.AddClass(c.opts.DragClass)
	if c.opts.Animation > 0 {
		c.el.SetAttr(AnimationAttr, strconv.FormatInt(c.opts.Animation.Milliseconds(), 10))
	}
}

// endDrag clears drag state and returns the item that was dragged.
func (c *Controller) endDrag() *dom.Element {
	it := c.dragging
	c.dragging = nil
	it.RemoveClass(c.opts.DragClass)
	c.el.RemoveAttr(AnimationAttr)
	return it
}

// item resolves an event target to the direct child of the list that
// contains it.
func (c *Controller) item(target *dom.Element) *dom.Element {
	for el := target; el != nil; el = el.Parent() {
		if el.Parent() == c.el {
			return el
		}
	}
	return nil
}

func (c *Controller) onPointerDown(ev *dom.Event) {
	if ev.Target == nil {
		return
	}
	it := c.item(ev.Target)
	if it == nil {
		return
	}
	if c.opts.Handle != "" {
		h := ev.Target.Closest(c.opts.Handle)
		if h == nil || !it.Contains(h) {
			return
		}
	}
	c.startDrag(it)
}

func (c *Controller) onPointerOver(ev *dom.Event) {
	if c.dragging == nil || ev.Target == nil {
		return
	}
	over := c.item(ev.Target)
	if over == nil || over == c.dragging {
		return
	}
	if c.dragging.Index() < over.Index() {
		c.el.InsertBefore(c.dragging, nextElement(over))
	} else {
		c.el.InsertBefore(c.dragging, over)
	}
}

func (c *Controller) onPointerUp(*dom.Event) {
	if c.dragging == nil {
		return
	}
	it := c.endDrag()
	if it.Parent() != c.el {
		// removed from the list mid-drag
		return
	}

	if idx := it.Index(); idx != c.origin && c.onEnd != nil {
		c.onEnd(SortEvent{Item: it, OldIndex: c.origin, NewIndex: idx})
	}
}

func (c *Controller) onPointerCancel(*dom.Event) {
	if c.dragging == nil {
		return
	}
	it := c.endDrag()
	if it.Parent() != c.el || it.Index() == c.origin {
		return
	}
	var rest []*dom.Element
	for _, ch := range c.el.Children() {
		if ch != it {
			rest = append(rest, ch)
		}
	}
	var ref *dom.Element
	if c.origin < len(rest) {
		ref = rest[c.origin]
	}
	c.el.InsertBefore(it, ref)
}

func nextElement(el *dom.Element) *dom.Element {
	siblings := el.Parent().Children()
	i := el.Index()
	if i+1 < len(siblings) {
		return siblings[i+1]
	}
	return nil
}

// Sortable is the hook wrapping a Controller. Every completed reorder
// fires one bubbling input event on the nearest enclosing form so the
// form's change binding sends the new order; with no form, nothing is
// sent.
type Sortable struct {
	opts SortableOptions
	ctrl *Controller
}

// NewSortable is the hooks.Factory for Sortable with default options.
func NewSortable() hooks.Hook {
	return &Sortable{opts: DefaultSortableOptions()}
}

// SortableFactory returns a factory using opts.
func SortableFactory(opts SortableOptions) hooks.Factory {
	return func() hooks.Hook { return &Sortable{opts: opts} }
}

// Mounted implements hooks.Hook.
func (s *Sortable) Mounted(ctx *hooks.Context) {
	el := ctx.El
	s.ctrl = NewController(el, s.opts, func(ev SortEvent) {
		ctx.Logger.Debug("reordered", "from", ev.OldIndex, "to", ev.NewIndex)
		if form := el.Closest("form"); form != nil {
			form.Dispatch(dom.NewEvent("input", true))
		}
	})
}

// Destroyed implements hooks.Hook.
func (s *Sortable) Destroyed(*hooks.Context) {
	if s.ctrl != nil {
		s.ctrl.Destroy()
	}
}

// Controller returns the active controller, or nil before mount.
func (s *Sortable) Controller() *Controller {
	return s.ctrl
}
