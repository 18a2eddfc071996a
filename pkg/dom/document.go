package dom

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	lherrors "github.com/vango-dev/livehooks/internal/errors"
)

// Document is a parsed page.
type Document struct {
	root     *html.Node
	elements map[*html.Node]*Element
	window   *Window

	listeners map[any]map[string][]*listener
	active    *Element

	observers []*observer
}

type observer struct {
	fn      func()
	removed bool
}

// Parse reads an HTML page.
func Parse(r io.Reader) (*Document, error) {
	gq, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, lherrors.Newf(lherrors.CategoryProtocol, "parse page: %v", err).Wrap(err)
	}
	return newDocument(gq.Nodes[0]), nil
}

// ParseString parses an HTML page held in a string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

func newDocument(root *html.Node) *Document {
	d := &Document{
		root:      root,
		elements:  make(map[*html.Node]*Element),
		listeners: make(map[any]map[string][]*listener),
	}
	d.window = &Window{doc: d}
	return d
}

// wrap returns the Element for n, creating it on first use so that the
// same node always yields the same *Element.
func (d *Document) wrap(n *html.Node) *Element {
	if n == nil || n.Type != html.ElementNode {
		return nil
	}
	if el, ok := d.elements[n]; ok {
		return el
	}
	el := &Element{doc: d, node: n}
	d.elements[n] = el
	return el
}

func (d *Document) wrapAll(nodes []*html.Node) []*Element {
	out := make([]*Element, 0, len(nodes))
	for _, n := range nodes {
		if el := d.wrap(n); el != nil {
			out = append(out, el)
		}
	}
	return out
}

func (d *Document) selection() *goquery.Selection {
	return goquery.NewDocumentFromNode(d.root).Selection
}

// Find returns every element matching selector in document order.
// An invalid selector matches nothing.
func (d *Document) Find(selector string) []*Element {
	return d.wrapAll(d.selection().Find(selector).Nodes)
}

// Query is Find with selector validation.
func (d *Document) Query(selector string) ([]*Element, error) {
	if _, err := cascadia.ParseGroup(selector); err != nil {
		return nil, lherrors.New("E004").WithDetail(fmt.Sprintf("invalid selector %q", selector)).Wrap(err)
	}
	return d.Find(selector), nil
}

// QuerySelector returns the first element matching selector, or nil.
func (d *Document) QuerySelector(selector string) *Element {
	sel := d.selection().Find(selector).First()
	if sel.Length() == 0 {
		return nil
	}
	return d.wrap(sel.Nodes[0])
}

// Body returns the body element, or nil.
func (d *Document) Body() *Element {
	return d.QuerySelector("body")
}

// Window returns the window event target.
func (d *Document) Window() *Window {
	return d.window
}

// ActiveElement returns the focused element, or nil.
func (d *Document) ActiveElement() *Element {
	return d.active
}

// CreateElement returns a detached element.
func (d *Document) CreateElement(tag string) *Element {
	return d.wrap(&html.Node{Type: html.ElementNode, Data: strings.ToLower(tag)})
}

// HTML renders the document.
func (d *Document) HTML() string {
	var b strings.Builder
	_ = html.Render(&b, d.root)
	return b.String()
}

// AddEventListener registers fn for events of type typ reaching the
// document, either dispatched on it or bubbled from an element.
func (d *Document) AddEventListener(typ string, fn Listener) func() {
	return d.addListener(d, typ, fn)
}

// ListenerCount returns the number of live listeners on the document itself.
func (d *Document) ListenerCount() int {
	return d.countListeners(d)
}

// OnMutation registers fn to run after every structural change
// (insertions and removals). The returned func unregisters it.
func (d *Document) OnMutation(fn func()) func() {
	o := &observer{fn: fn}
	d.observers = append(d.observers, o)
	return func() {
		if o.removed {
			return
		}
		o.removed = true
		for i, cur := range d.observers {
			if cur == o {
				d.observers = append(d.observers[:i], d.observers[i+1:]...)
				return
			}
		}
	}
}

func (d *Document) notifyMutation() {
	snapshot := append([]*observer(nil), d.observers...)
	for _, o := range snapshot {
		if !o.removed {
			o.fn()
		}
	}
}

// Window is the global event target of a Document.
type Window struct {
	doc *Document
}

// AddEventListener registers fn for events of type typ reaching the window.
func (w *Window) AddEventListener(typ string, fn Listener) func() {
	return w.doc.addListener(w, typ, fn)
}

// Dispatch fires ev on the window. It reports false if a listener called
// PreventDefault.
func (w *Window) Dispatch(ev *Event) bool {
	ev.Target = nil
	w.doc.invoke(w, ev)
	return !ev.defaultPrevented
}

// ListenerCount returns the number of live listeners on the window.
func (w *Window) ListenerCount() int {
	return w.doc.countListeners(w)
}
