package dom

import "strings"

// FormField is one name/value pair of a serialized form.
type FormField struct {
	Name  string
	Value string
}

// IsForm reports whether e is a form element.
func (e *Element) IsForm() bool { return e.Tag() == "form" }

// Value returns the current value of a form control.
func (e *Element) Value() string {
	if e.value != nil {
		return *e.value
	}
	return e.defaultValue()
}

// SetValue sets the current value of a form control without touching the
// default held in markup.
func (e *Element) SetValue(v string) {
	e.value = &v
}

func (e *Element) defaultValue() string {
	switch e.Tag() {
	case "textarea":
		return e.Text()
	case "select":
		opts := e.Find("option")
		for _, o := range opts {
			if o.HasAttr("selected") {
				return o.AttrOr("value", o.Text())
			}
		}
		if len(opts) > 0 {
			return opts[0].AttrOr("value", opts[0].Text())
		}
		return ""
	default:
		return e.AttrOr("value", "")
	}
}

func (e *Element) controls() []*Element {
	return e.Find("input, select, textarea")
}

// Reset fires a bubbling reset event on a form and, unless prevented,
// restores every control to its default value.
func (e *Element) Reset() error {
	if !e.IsForm() {
		return ErrUnsupported
	}
	if !e.Connected() {
		return ErrDetached
	}
	if !e.Dispatch(NewEvent("reset", true)) {
		return nil
	}
	for _, c := range e.controls() {
		c.value = nil
	}
	return nil
}

// Submit fires a bubbling submit event on a form. The runtime's form
// bindings pick it up; there is no navigation.
func (e *Element) Submit() error {
	if !e.IsForm() {
		return ErrUnsupported
	}
	if !e.Connected() {
		return ErrDetached
	}
	e.Dispatch(NewEvent("submit", true))
	return nil
}

// Fields serializes the form's successful controls in document order.
// Disabled controls, unchecked checkboxes and radios, and buttons are
// skipped.
func (e *Element) Fields() []FormField {
	var out []FormField
	for _, c := range e.controls() {
		name, ok := c.Attr("name")
		if !ok || name == "" || c.Disabled() {
			continue
		}
		if c.Tag() == "input" {
			switch strings.ToLower(c.AttrOr("type", "text")) {
			case "checkbox", "radio":
				if !c.HasAttr("checked") {
					continue
				}
				out = append(out, FormField{Name: name, Value: c.AttrOr("value", "on")})
				continue
			case "submit", "reset", "button", "image", "file":
				continue
			}
		}
		out = append(out, FormField{Name: name, Value: c.Value()})
	}
	return out
}
