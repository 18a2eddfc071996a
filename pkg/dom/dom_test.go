package dom

import (
	"errors"
	"strings"
	"testing"

	lherrors "github.com/vango-dev/livehooks/internal/errors"
)

const page = `<!doctype html>
<html><head><meta name="csrf-token" content="tok"></head>
<body>
  <form id="f" phx-change="reorder">
    <ul id="list">
      <li id="a"><input type="hidden" name="ids[]" value="1"></li>
      <li id="b"><input type="hidden" name="ids[]" value="2"></li>
      <li id="c"><input type="hidden" name="ids[]" value="3"></li>
    </ul>
    <input id="title" name="title" value="default">
    <input id="off" name="off" value="x" disabled>
    <input id="check" type="checkbox" name="flag" checked>
    <button id="go">Go</button>
    <button id="clear" type="reset">Clear</button>
  </form>
  <div id="plain" class="one two">text</div>
</body></html>`

func mustParse(t *testing.T) *Document {
	t.Helper()
	doc, err := ParseString(page)
	if err != nil {
		t.Fatalf("ParseString failed: %v", err)
	}
	return doc
}

func ids(els []*Element) string {
	parts := make([]string, len(els))
	for i, el := range els {
		parts[i] = el.ID()
	}
	return strings.Join(parts, ",")
}

func TestFindDocumentOrder(t *testing.T) {
	doc := mustParse(t)
	if got := ids(doc.Find("li")); got != "a,b,c" {
		t.Errorf("Find(li) = %q, want a,b,c", got)
	}
	if got := doc.Find("li::nonsense("); len(got) != 0 {
		t.Errorf("invalid selector matched %d elements", len(got))
	}
	if _, err := doc.Query("li::nonsense("); !lherrors.HasCode(err, "E004") {
		t.Errorf("Query error = %v, want E004", err)
	}
	if got, err := doc.Query("li"); err != nil || len(got) != 3 {
		t.Errorf("Query(li) = %d, %v, want 3 elements", len(got), err)
	}
}

func TestElementIdentity(t *testing.T) {
	doc := mustParse(t)
	a1 := doc.QuerySelector("#a")
	a2 := doc.Find("li")[0]
	if a1 != a2 {
		t.Error("same node should yield the same *Element")
	}
	if a1.Parent() != doc.QuerySelector("#list") {
		t.Error("Parent mismatch")
	}
}

func TestClosestAndMatches(t *testing.T) {
	doc := mustParse(t)
	li := doc.QuerySelector("#b")
	if form := li.Closest("form"); form == nil || form.ID() != "f" {
		t.Errorf("Closest(form) = %v", form)
	}
	if li.Closest("table") != nil {
		t.Error("Closest(table) should be nil")
	}
	if !li.Matches("li#b") {
		t.Error("Matches(li#b) = false")
	}
}

func TestClasses(t *testing.T) {
	doc := mustParse(t)
	el := doc.QuerySelector("#plain")
	el.AddClass("three", "one")
	if got := el.AttrOr("class", ""); got != "one two three" {
		t.Errorf("class = %q", got)
	}
	el.RemoveClass("one", "two", "three")
	if el.HasAttr("class") {
		t.Error("empty class list should remove the attribute")
	}
	el.ToggleClass("x")
	if !el.HasClass("x") {
		t.Error("ToggleClass should add")
	}
}

func TestDispatchBubbling(t *testing.T) {
	doc := mustParse(t)
	var path []string
	doc.QuerySelector("#a").AddEventListener("input", func(e *Event) { path = append(path, "a") })
	doc.QuerySelector("#f").AddEventListener("input", func(e *Event) { path = append(path, "form") })
	doc.AddEventListener("input", func(e *Event) { path = append(path, "document") })
	doc.Window().AddEventListener("input", func(e *Event) { path = append(path, "window") })

	doc.QuerySelector("#a").Dispatch(NewEvent("input", true))
	if got := strings.Join(path, ">"); got != "a>form>document>window" {
		t.Errorf("path = %q", got)
	}

	path = nil
	doc.QuerySelector("#a").Dispatch(NewEvent("input", false))
	if got := strings.Join(path, ">"); got != "a" {
		t.Errorf("non-bubbling path = %q", got)
	}
}

func TestStopPropagation(t *testing.T) {
	doc := mustParse(t)
	reached := false
	doc.QuerySelector("#list").AddEventListener("x", func(e *Event) { e.StopPropagation() })
	doc.QuerySelector("#f").AddEventListener("x", func(e *Event) { reached = true })

	doc.QuerySelector("#a").Dispatch(NewEvent("x", true))
	if reached {
		t.Error("event crossed StopPropagation")
	}
}

func TestRemoveListener(t *testing.T) {
	doc := mustParse(t)
	el := doc.QuerySelector("#a")
	calls := 0
	remove := el.AddEventListener("click", func(*Event) { calls++ })
	if el.ListenerCount() != 1 {
		t.Fatalf("ListenerCount = %d, want 1", el.ListenerCount())
	}
	remove()
	remove()
	if el.ListenerCount() != 0 {
		t.Errorf("ListenerCount = %d, want 0", el.ListenerCount())
	}
	el.Dispatch(NewEvent("click", true))
	if calls != 0 {
		t.Errorf("removed listener ran %d times", calls)
	}
}

func TestMutationAndConnected(t *testing.T) {
	doc := mustParse(t)
	mutations := 0
	stop := doc.OnMutation(func() { mutations++ })

	list := doc.QuerySelector("#list")
	c := doc.QuerySelector("#c")
	list.InsertBefore(c, doc.QuerySelector("#a"))
	if got := ids(list.Children()); got != "c,a,b" {
		t.Errorf("children = %q", got)
	}
	if c.Index() != 0 {
		t.Errorf("Index = %d, want 0", c.Index())
	}

	c.Remove()
	if c.Connected() {
		t.Error("removed element still connected")
	}
	if mutations != 2 {
		t.Errorf("mutations = %d, want 2", mutations)
	}

	stop()
	list.AppendChild(c)
	if mutations != 2 {
		t.Error("observer ran after removal")
	}
	if !c.Connected() {
		t.Error("re-appended element should be connected")
	}
}

func TestFocusBlur(t *testing.T) {
	doc := mustParse(t)
	title := doc.QuerySelector("#title")
	var events []string
	title.AddEventListener("focus", func(*Event) { events = append(events, "focus") })
	title.AddEventListener("blur", func(*Event) { events = append(events, "blur") })

	if err := title.Focus(); err != nil {
		t.Fatalf("Focus: %v", err)
	}
	if doc.ActiveElement() != title {
		t.Error("ActiveElement should be title")
	}
	if err := title.Blur(); err != nil {
		t.Fatalf("Blur: %v", err)
	}
	if doc.ActiveElement() != nil {
		t.Error("ActiveElement should be nil after blur")
	}
	if got := strings.Join(events, ","); got != "focus,blur" {
		t.Errorf("events = %q", got)
	}

	if err := doc.QuerySelector("#off").Focus(); !errors.Is(err, ErrDisabled) {
		t.Errorf("Focus(disabled) = %v, want ErrDisabled", err)
	}
	detached := doc.CreateElement("input")
	if err := detached.Focus(); !errors.Is(err, ErrDetached) {
		t.Errorf("Focus(detached) = %v, want ErrDetached", err)
	}
}

func TestClickSubmitsForm(t *testing.T) {
	doc := mustParse(t)
	submits := 0
	doc.QuerySelector("#f").AddEventListener("submit", func(*Event) { submits++ })

	if err := doc.QuerySelector("#go").Click(); err != nil {
		t.Fatalf("Click: %v", err)
	}
	if submits != 1 {
		t.Errorf("submits = %d, want 1", submits)
	}

	doc.QuerySelector("#go").AddEventListener("click", func(e *Event) { e.PreventDefault() })
	_ = doc.QuerySelector("#go").Click()
	if submits != 1 {
		t.Error("prevented click still submitted")
	}
}

func TestResetRestoresDefaults(t *testing.T) {
	doc := mustParse(t)
	title := doc.QuerySelector("#title")
	title.SetValue("edited")

	if err := doc.QuerySelector("#clear").Click(); err != nil {
		t.Fatalf("Click(reset): %v", err)
	}
	if title.Value() != "default" {
		t.Errorf("Value = %q, want default", title.Value())
	}

	if err := doc.QuerySelector("#plain").Reset(); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Reset(div) = %v, want ErrUnsupported", err)
	}
	if err := doc.QuerySelector("#plain").Submit(); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Submit(div) = %v, want ErrUnsupported", err)
	}
}

func TestFields(t *testing.T) {
	doc := mustParse(t)
	doc.QuerySelector("#title").SetValue("hello")
	fields := doc.QuerySelector("#f").Fields()

	var parts []string
	for _, f := range fields {
		parts = append(parts, f.Name+"="+f.Value)
	}
	want := "ids[]=1,ids[]=2,ids[]=3,title=hello,flag=on"
	if got := strings.Join(parts, ","); got != want {
		t.Errorf("Fields = %q, want %q", got, want)
	}
}

func TestWindowDispatch(t *testing.T) {
	doc := mustParse(t)
	var got string
	remove := doc.Window().AddEventListener("phx:js-exec", func(e *Event) {
		got = e.DetailString("attr")
	})
	doc.Window().Dispatch(NewCustomEvent("phx:js-exec", map[string]any{"attr": "focus"}))
	if got != "focus" {
		t.Errorf("detail attr = %q", got)
	}
	remove()
	if doc.Window().ListenerCount() != 0 {
		t.Error("window listener not removed")
	}
}
