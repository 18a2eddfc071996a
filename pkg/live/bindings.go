package live

import (
	"strings"

	"github.com/vango-dev/livehooks/pkg/dom"
)

// Binding attributes.
const (
	AttrClick  = "phx-click"
	AttrChange = "phx-change"
	AttrSubmit = "phx-submit"
)

func (s *Socket) bind() {
	s.bindings = append(s.bindings,
		s.doc.AddEventListener("click", s.onClick),
		s.doc.AddEventListener("input", s.onChange),
		s.doc.AddEventListener("change", s.onChange),
		s.doc.AddEventListener("submit", s.onSubmit),
	)
}

func (s *Socket) onClick(ev *dom.Event) {
	if ev.Target == nil {
		return
	}
	el := ev.Target.Closest("[" + AttrClick + "]")
	if el == nil {
		return
	}
	if err := s.ExecJS(el, el.AttrOr(AttrClick, "")); err != nil {
		s.logger.Error("click binding failed", "error", err)
	}
}

func (s *Socket) onChange(ev *dom.Event) {
	s.pushForm(ev, AttrChange)
}

func (s *Socket) onSubmit(ev *dom.Event) {
	if s.pushForm(ev, AttrSubmit) {
		ev.PreventDefault()
	}
}

func (s *Socket) pushForm(ev *dom.Event, attr string) bool {
	if ev.Target == nil {
		return false
	}
	form := ev.Target.Closest("form[" + attr + "]")
	if form == nil {
		return false
	}
	event := form.AttrOr(attr, "")
	if event == "" {
		return false
	}
	if err := s.PushEvent(event, FormPayload(form)); err != nil {
		s.logger.Error("form binding failed", "event", event, "error", err)
	}
	return true
}

// FormPayload serializes a form's fields. Names ending in [] always map
// to a list under the name without the suffix; other names map to their
// last value.
func FormPayload(form *dom.Element) map[string]any {
	out := map[string]any{}
	for _, f := range form.Fields() {
		if name, ok := strings.CutSuffix(f.Name, "[]"); ok {
			list, _ := out[name].([]string)
			out[name] = append(list, f.Value)
			continue
		}
		out[f.Name] = f.Value
	}
	return out
}
