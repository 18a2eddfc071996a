package dom

import (
	"errors"
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var (
	// ErrDetached is returned when a method needs the element to be in the page.
	ErrDetached = errors.New("dom: element is not attached to the document")

	// ErrDisabled is returned when focusing or clicking a disabled control.
	ErrDisabled = errors.New("dom: element is disabled")

	// ErrUnsupported is returned when the element does not have the method,
	// e.g. Reset on a non-form element.
	ErrUnsupported = errors.New("dom: method not supported by element")
)

// Element is one element node. A Document hands out a single *Element per
// node, so elements can be compared with == and used as map keys.
type Element struct {
	doc  *Document
	node *html.Node

	// value is the current value of a form control; nil means the
	// control still holds its default.
	value *string
}

// Document returns the owning document.
func (e *Element) Document() *Document { return e.doc }

// Tag returns the lower-case tag name.
func (e *Element) Tag() string { return e.node.Data }

// ID returns the id attribute.
func (e *Element) ID() string { return e.AttrOr("id", "") }

// Attr returns the value of the named attribute.
func (e *Element) Attr(name string) (string, bool) {
	for _, a := range e.node.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// AttrOr returns the named attribute or def when it is absent.
func (e *Element) AttrOr(name, def string) string {
	if v, ok := e.Attr(name); ok {
		return v
	}
	return def
}

// Attrs returns a copy of the attributes in source order.
func (e *Element) Attrs() []html.Attribute {
	return slices.Clone(e.node.Attr)
}

// HasAttr reports whether the attribute is present.
func (e *Element) HasAttr(name string) bool {
	_, ok := e.Attr(name)
	return ok
}

// SetAttr sets an attribute.
func (e *Element) SetAttr(name, value string) {
	for i, a := range e.node.Attr {
		if a.Namespace == "" && a.Key == name {
			e.node.Attr[i].Val = value
			return
		}
	}
	e.node.Attr = append(e.node.Attr, html.Attribute{Key: name, Val: value})
}

// RemoveAttr removes an attribute.
func (e *Element) RemoveAttr(name string) {
	e.node.Attr = slices.DeleteFunc(e.node.Attr, func(a html.Attribute) bool {
		return a.Namespace == "" && a.Key == name
	})
}

// Classes returns the class list.
func (e *Element) Classes() []string {
	return strings.Fields(e.AttrOr("class", ""))
}

// HasClass reports whether the class list contains name.
func (e *Element) HasClass(name string) bool {
	return slices.Contains(e.Classes(), name)
}

// AddClass adds classes that are not already present.
func (e *Element) AddClass(names ...string) {
	classes := e.Classes()
	for _, n := range names {
		if n != "" && !slices.Contains(classes, n) {
			classes = append(classes, n)
		}
	}
	e.SetAttr("class", strings.Join(classes, " "))
}

// RemoveClass removes classes.
func (e *Element) RemoveClass(names ...string) {
	classes := slices.DeleteFunc(e.Classes(), func(c string) bool {
		return slices.Contains(names, c)
	})
	if len(classes) == 0 {
		e.RemoveAttr("class")
		return
	}
	e.SetAttr("class", strings.Join(classes, " "))
}

// ToggleClass flips each class.
func (e *Element) ToggleClass(names ...string) {
	for _, n := range names {
		if e.HasClass(n) {
			e.RemoveClass(n)
		} else {
			e.AddClass(n)
		}
	}
}

// Text returns the text content.
func (e *Element) Text() string {
	return e.selection().Text()
}

func (e *Element) selection() *goquery.Selection {
	return goquery.NewDocumentFromNode(e.node).Selection
}

// Parent returns the parent element, or nil at the top of the tree.
func (e *Element) Parent() *Element {
	return e.doc.wrap(e.node.Parent)
}

// Children returns the element children in order.
func (e *Element) Children() []*Element {
	var out []*Element
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, e.doc.wrap(c))
		}
	}
	return out
}

// Index returns the position of e among its parent's element children,
// or -1 when it has no parent.
func (e *Element) Index() int {
	if e.node.Parent == nil {
		return -1
	}
	i := 0
	for c := e.node.Parent.FirstChild; c != nil; c = c.NextSibling {
		if c == e.node {
			return i
		}
		if c.Type == html.ElementNode {
			i++
		}
	}
	return -1
}

// Contains reports whether other is e or one of its descendants.
func (e *Element) Contains(other *Element) bool {
	for n := other.node; n != nil; n = n.Parent {
		if n == e.node {
			return true
		}
	}
	return false
}

// Connected reports whether the element is part of the document tree.
func (e *Element) Connected() bool {
	for n := e.node; n != nil; n = n.Parent {
		if n == e.doc.root {
			return true
		}
	}
	return false
}

// Matches reports whether the element matches selector.
func (e *Element) Matches(selector string) bool {
	return e.selection().Is(selector)
}

// Closest returns the nearest inclusive ancestor matching selector, or nil.
func (e *Element) Closest(selector string) *Element {
	sel := e.selection().Closest(selector)
	if sel.Length() == 0 {
		return nil
	}
	return e.doc.wrap(sel.Nodes[0])
}

// Find returns the descendants matching selector in document order.
func (e *Element) Find(selector string) []*Element {
	return e.doc.wrapAll(e.selection().Find(selector).Nodes)
}

// AppendChild moves child to the end of e's children.
func (e *Element) AppendChild(child *Element) {
	e.InsertBefore(child, nil)
}

// InsertBefore moves child directly before ref. A nil ref appends.
func (e *Element) InsertBefore(child, ref *Element) {
	if child == ref {
		return
	}
	if child.node.Parent != nil {
		child.node.Parent.RemoveChild(child.node)
	}
	var refNode *html.Node
	if ref != nil {
		refNode = ref.node
	}
	e.node.InsertBefore(child.node, refNode)
	e.doc.notifyMutation()
}

// Remove detaches the element from its parent.
func (e *Element) Remove() {
	if e.node.Parent == nil {
		return
	}
	if e.doc.active != nil && e.Contains(e.doc.active) {
		e.doc.active = nil
	}
	e.node.Parent.RemoveChild(e.node)
	e.doc.notifyMutation()
}

// AddEventListener registers fn for events of type typ reaching e.
// The returned func removes the listener; calling it again is a no-op.
func (e *Element) AddEventListener(typ string, fn Listener) func() {
	return e.doc.addListener(e, typ, fn)
}

// ListenerCount returns the number of live listeners on e.
func (e *Element) ListenerCount() int {
	return e.doc.countListeners(e)
}

// Dispatch fires ev at e. It reports false if a listener called
// PreventDefault.
func (e *Element) Dispatch(ev *Event) bool {
	return e.doc.dispatchFrom(e, ev)
}

// Disabled reports whether a form control carries the disabled attribute.
func (e *Element) Disabled() bool {
	switch e.Tag() {
	case "button", "input", "select", "textarea", "fieldset", "option":
		return e.HasAttr("disabled")
	}
	return false
}

// Focus makes e the active element and fires focus and focusin.
func (e *Element) Focus() error {
	if !e.Connected() {
		return ErrDetached
	}
	if e.Disabled() {
		return ErrDisabled
	}
	if e.doc.active == e {
		return nil
	}
	if prev := e.doc.active; prev != nil {
		prev.blur()
	}
	e.doc.active = e
	e.Dispatch(NewEvent("focus", false))
	e.Dispatch(NewEvent("focusin", true))
	return nil
}

// Blur removes focus from e if it is the active element.
func (e *Element) Blur() error {
	if !e.Connected() {
		return ErrDetached
	}
	if e.doc.active != e {
		return nil
	}
	e.blur()
	return nil
}

func (e *Element) blur() {
	e.doc.active = nil
	e.Dispatch(NewEvent("blur", false))
	e.Dispatch(NewEvent("focusout", true))
}

// Click fires a bubbling click. Unless a listener prevents it, clicking a
// submit or reset button acts on its form.
func (e *Element) Click() error {
	if !e.Connected() {
		return ErrDetached
	}
	if e.Disabled() {
		return ErrDisabled
	}
	if !e.Dispatch(NewEvent("click", true)) {
		return nil
	}

	switch e.buttonKind() {
	case "submit":
		if form := e.Closest("form"); form != nil {
			return form.Submit()
		}
	case "reset":
		if form := e.Closest("form"); form != nil {
			return form.Reset()
		}
	}
	return nil
}

func (e *Element) buttonKind() string {
	switch e.Tag() {
	case "button":
		return strings.ToLower(e.AttrOr("type", "submit"))
	case "input":
		t := strings.ToLower(e.AttrOr("type", ""))
		if t == "submit" || t == "reset" {
			return t
		}
	}
	return ""
}
