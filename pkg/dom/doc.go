// Package dom is a small in-memory model of a rendered page.
//
// A Document wraps a parsed HTML tree (golang.org/x/net/html) and adds what
// the client runtime needs on top of markup: stable element identity,
// event listeners with bubbling, focus tracking, form control values and
// mutation notification. Selector matching goes through goquery.
//
// A Document is not safe for concurrent use. The client runtime touches it
// only from its event loop goroutine.
//
//	doc, err := dom.ParseString(`<form><ul id="items"><li>a</li></ul></form>`)
//	list := doc.QuerySelector("#items")
//	remove := list.AddEventListener("input", func(e *dom.Event) { ... })
//	defer remove()
package dom
