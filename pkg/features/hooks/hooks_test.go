package hooks

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/vango-dev/livehooks/internal/errors"
	"github.com/vango-dev/livehooks/pkg/dom"
)

type recordingHook struct {
	log *[]string
}

func (h recordingHook) Mounted(ctx *Context) {
	*h.log = append(*h.log, "mounted:"+ctx.El.ID())
	ctx.Listen(ctx.El, "click", func(*dom.Event) {
		*h.log = append(*h.log, "click:"+ctx.El.ID())
	})
	ctx.Defer(func() { *h.log = append(*h.log, "cleanup:"+ctx.El.ID()) })
}

func (h recordingHook) Destroyed(ctx *Context) {
	*h.log = append(*h.log, "destroyed:"+ctx.El.ID())
}

func newTestRuntime(t *testing.T, markup string, defs map[string]Factory) (*Runtime, *dom.Document, *bytes.Buffer) {
	t.Helper()
	doc, err := dom.ParseString(markup)
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}
	table, err := NewTable(defs)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	rt := NewRuntime(doc, table, nil, WithLogger(logger))
	rt.Start()
	return rt, doc, &buf
}

func TestBuilder(t *testing.T) {
	noop := func() Hook { return Funcs{} }

	table, err := NewBuilder().Register("B", noop).Register("A", noop).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got := strings.Join(table.Names(), ","); got != "A,B" {
		t.Errorf("Names = %q, want A,B", got)
	}
	if _, ok := table.Lookup("A"); !ok {
		t.Error("Lookup(A) not found")
	}
	if table.Len() != 2 {
		t.Errorf("Len = %d, want 2", table.Len())
	}

	_, err = NewBuilder().Register("A", noop).Register("A", noop).Build()
	if !errors.HasCode(err, "E002") {
		t.Errorf("duplicate error = %v, want E002", err)
	}

	_, err = NewBuilder().Register("", noop).Build()
	if !errors.HasCode(err, "E003") {
		t.Errorf("empty name error = %v, want E003", err)
	}

	if _, err := NewTable(map[string]Factory{"X": nil}); !errors.HasCode(err, "E003") {
		t.Errorf("nil factory error = %v, want E003", err)
	}
}

func TestTableIsACopy(t *testing.T) {
	defs := map[string]Factory{"A": func() Hook { return Funcs{} }}
	table, _ := NewTable(defs)
	defs["B"] = func() Hook { return Funcs{} }
	if _, ok := table.Lookup("B"); ok {
		t.Error("table changed after construction")
	}
}

func TestRuntimeMountAndDestroy(t *testing.T) {
	var log []string
	rt, doc, _ := newTestRuntime(t,
		`<div id="x" phx-hook="Rec"></div><div id="y" phx-hook="Rec"></div>`,
		map[string]Factory{"Rec": func() Hook { return recordingHook{log: &log} }})

	if rt.Len() != 2 {
		t.Fatalf("Len = %d, want 2", rt.Len())
	}
	x := doc.QuerySelector("#x")
	if _, ok := rt.Instance(x); !ok {
		t.Error("no instance for #x")
	}

	x.Dispatch(dom.NewEvent("click", true))
	x.Remove()

	if rt.Len() != 1 {
		t.Errorf("Len = %d, want 1", rt.Len())
	}
	if x.ListenerCount() != 0 {
		t.Errorf("ListenerCount(#x) = %d, want 0", x.ListenerCount())
	}

	x.Dispatch(dom.NewEvent("click", true))

	want := "mounted:x,mounted:y,click:x,destroyed:x,cleanup:x"
	if got := strings.Join(log, ","); got != want {
		t.Errorf("log = %q, want %q", got, want)
	}
}

func TestRuntimeMountsInsertedElements(t *testing.T) {
	var log []string
	rt, doc, _ := newTestRuntime(t,
		`<div id="root"></div>`,
		map[string]Factory{"Rec": func() Hook { return recordingHook{log: &log} }})

	el := doc.CreateElement("div")
	el.SetAttr("id", "late")
	el.SetAttr(Attr, "Rec")
	doc.QuerySelector("#root").AppendChild(el)

	if _, ok := rt.Instance(el); !ok {
		t.Fatal("inserted element was not mounted")
	}
	if got := strings.Join(log, ","); got != "mounted:late" {
		t.Errorf("log = %q", got)
	}
}

func TestRuntimeUnknownHookLoggedOnce(t *testing.T) {
	_, doc, buf := newTestRuntime(t, `<div id="u" phx-hook="Nope"></div><p id="p"></p>`, map[string]Factory{})

	doc.QuerySelector("#p").Remove()

	if n := strings.Count(buf.String(), "unknown hook"); n != 1 {
		t.Errorf("unknown hook logged %d times, want 1\n%s", n, buf.String())
	}
}

func TestRuntimeRenamedHookRemounts(t *testing.T) {
	var log []string
	rt, doc, _ := newTestRuntime(t,
		`<div id="r" phx-hook="A"></div>`,
		map[string]Factory{
			"A": func() Hook { return recordingHook{log: &log} },
			"B": func() Hook { return recordingHook{log: &log} },
		})

	el := doc.QuerySelector("#r")
	el.SetAttr(Attr, "B")
	rt.Sync()

	want := "mounted:r,destroyed:r,cleanup:r,mounted:r"
	if got := strings.Join(log, ","); got != want {
		t.Errorf("log = %q, want %q", got, want)
	}
}

func TestRuntimePanicIsolated(t *testing.T) {
	mounted := 0
	rt, _, buf := newTestRuntime(t,
		`<div id="a" phx-hook="Bad"></div><div id="b" phx-hook="Good"></div>`,
		map[string]Factory{
			"Bad": func() Hook {
				return Funcs{OnMounted: func(*Context) { panic("boom") }}
			},
			"Good": func() Hook {
				return Funcs{OnMounted: func(*Context) { mounted++ }}
			},
		})

	if mounted != 1 {
		t.Errorf("Good mounted %d times, want 1", mounted)
	}
	if rt.Len() != 2 {
		t.Errorf("Len = %d, want 2", rt.Len())
	}
	if !strings.Contains(buf.String(), "hook callback panicked") {
		t.Error("panic not logged")
	}
}

func TestRuntimeReentrantMutation(t *testing.T) {
	var log []string
	rt, doc, _ := newTestRuntime(t,
		`<div id="host" phx-hook="Spawner"></div>`,
		map[string]Factory{
			"Rec": func() Hook { return recordingHook{log: &log} },
			"Spawner": func() Hook {
				return Funcs{OnMounted: func(ctx *Context) {
					child := ctx.Document().CreateElement("span")
					child.SetAttr("id", "child")
					child.SetAttr(Attr, "Rec")
					ctx.El.AppendChild(child)
				}}
			},
		})

	if _, ok := rt.Instance(doc.QuerySelector("#child")); !ok {
		t.Error("element inserted during Mounted was not mounted")
	}
	if rt.Len() != 2 {
		t.Errorf("Len = %d, want 2", rt.Len())
	}
}

func TestRuntimeClose(t *testing.T) {
	var log []string
	rt, doc, _ := newTestRuntime(t,
		`<div id="a" phx-hook="Rec"></div>`,
		map[string]Factory{"Rec": func() Hook { return recordingHook{log: &log} }})

	rt.Close()
	rt.Close()

	if rt.Len() != 0 {
		t.Errorf("Len = %d after Close", rt.Len())
	}
	if doc.QuerySelector("#a").ListenerCount() != 0 {
		t.Error("listeners left after Close")
	}

	el := doc.CreateElement("div")
	el.SetAttr(Attr, "Rec")
	doc.Body().AppendChild(el)
	if _, ok := rt.Instance(el); ok {
		t.Error("closed runtime mounted a new element")
	}
}

func TestContextWithoutHandle(t *testing.T) {
	var execErr, pushErr error
	newTestRuntime(t, `<div phx-hook="H"></div>`, map[string]Factory{
		"H": func() Hook {
			return Funcs{OnMounted: func(ctx *Context) {
				execErr = ctx.ExecJS(`[["hide",{}]]`)
				pushErr = ctx.PushEvent("x", nil)
			}}
		},
	})
	if !errors.HasCode(execErr, "E067") || !errors.HasCode(pushErr, "E067") {
		t.Errorf("errors = %v, %v; want E067", execErr, pushErr)
	}
}
