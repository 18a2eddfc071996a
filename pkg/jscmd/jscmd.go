// Package jscmd interprets the declarative command lists servers embed in
// attributes such as phx-click.
//
// A command string is either a bare event name, which pushes that event to
// the server, or a JSON list of [op, args] pairs:
//
//	[["add_class",{"to":"#flash","names":["fade-out"]}],["push",{"event":"lv:clear-flash"}]]
//
// Selectors in "to" are resolved against the document; when "to" is
// omitted the command applies to the source element.
package jscmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vango-dev/livehooks/internal/errors"
	"github.com/vango-dev/livehooks/pkg/dom"
)

// ValuePrefix marks attributes whose values are sent with pushed events.
const ValuePrefix = "phx-value-"

// maxDepth bounds exec chains.
const maxDepth = 8

// Op names.
const (
	OpPush        = "push"
	OpHide        = "hide"
	OpShow        = "show"
	OpAddClass    = "add_class"
	OpRemoveClass = "remove_class"
	OpToggleClass = "toggle_class"
	OpSetAttr     = "set_attr"
	OpRemoveAttr  = "remove_attr"
	OpDispatch    = "dispatch"
	OpExec        = "exec"
	OpFocus       = "focus"
)

// Command is a single parsed operation.
type Command struct {
	Op   string
	Args map[string]any
}

// Pusher sends an event to the server.
type Pusher func(event string, payload map[string]any) error

// Parse decodes js into a command list.
func Parse(js string) ([]Command, error) {
	js = strings.TrimSpace(js)
	if js == "" {
		return nil, errors.New("E064").WithDetail("empty command")
	}
	if !strings.HasPrefix(js, "[") {
		return []Command{{Op: OpPush, Args: map[string]any{"event": js}}}, nil
	}

	var raw [][]json.RawMessage
	if err := json.Unmarshal([]byte(js), &raw); err != nil {
		return nil, errors.New("E064").Wrap(err)
	}
	cmds := make([]Command, 0, len(raw))
	for i, pair := range raw {
		if len(pair) == 0 || len(pair) > 2 {
			return nil, errors.New("E064").WithDetail(fmt.Sprintf("command %d: want [op, args]", i))
		}
		var cmd Command
		if err := json.Unmarshal(pair[0], &cmd.Op); err != nil {
			return nil, errors.New("E064").WithDetail(fmt.Sprintf("command %d: op must be a string", i))
		}
		if !knownOp(cmd.Op) {
			return nil, errors.New("E064").WithDetail(fmt.Sprintf("command %d: unknown op %q", i, cmd.Op))
		}
		cmd.Args = map[string]any{}
		if len(pair) == 2 && string(pair[1]) != "null" {
			if err := json.Unmarshal(pair[1], &cmd.Args); err != nil {
				return nil, errors.New("E064").WithDetail(fmt.Sprintf("command %d: args must be an object", i))
			}
		}
		cmds = append(cmds, cmd)
	}
	return cmds, nil
}

func knownOp(op string) bool {
	switch op {
	case OpPush, OpHide, OpShow, OpAddClass, OpRemoveClass, OpToggleClass,
		OpSetAttr, OpRemoveAttr, OpDispatch, OpExec, OpFocus:
		return true
	}
	return false
}

// Executor runs command lists against a document.
type Executor struct {
	push Pusher
}

// NewExecutor returns an executor that sends push commands through push.
// A nil push makes push commands fail with E067.
func NewExecutor(push Pusher) *Executor {
	return &Executor{push: push}
}

// Exec parses and runs js with source as the default target. Commands run
// in order; the first failure stops the list.
func (x *Executor) Exec(source *dom.Element, js string) error {
	return x.exec(source, js, 0)
}

func (x *Executor) exec(source *dom.Element, js string, depth int) error {
	if depth > maxDepth {
		return errors.New("E064").WithDetail("exec chain too deep")
	}
	cmds, err := Parse(js)
	if err != nil {
		return err
	}
	for _, cmd := range cmds {
		if err := x.run(source, cmd, depth); err != nil {
			return fmt.Errorf("%s: %w", cmd.Op, err)
		}
	}
	return nil
}

func (x *Executor) run(source *dom.Element, cmd Command, depth int) error {
	targets, err := resolve(source, cmd.Args)
	if err != nil {
		return err
	}

	switch cmd.Op {
	case OpPush:
		return x.pushEvent(source, cmd.Args)
	case OpHide:
		for _, el := range targets {
			el.SetAttr("hidden", "")
		}
	case OpShow:
		for _, el := range targets {
			el.RemoveAttr("hidden")
		}
	case OpAddClass, OpRemoveClass, OpToggleClass:
		names := stringList(cmd.Args["names"])
		for _, el := range targets {
			switch cmd.Op {
			case OpAddClass:
				el.AddClass(names...)
			case OpRemoveClass:
				el.RemoveClass(names...)
			default:
				el.ToggleClass(names...)
			}
		}
	case OpSetAttr:
		kv := stringList(cmd.Args["attr"])
		if len(kv) != 2 {
			return errors.New("E064").WithDetail("set_attr wants attr: [name, value]")
		}
		for _, el := range targets {
			el.SetAttr(kv[0], kv[1])
		}
	case OpRemoveAttr:
		name, _ := cmd.Args["attr"].(string)
		if name == "" {
			return errors.New("E064").WithDetail("remove_attr wants attr: name")
		}
		for _, el := range targets {
			el.RemoveAttr(name)
		}
	case OpDispatch:
		name, _ := cmd.Args["event"].(string)
		if name == "" {
			return errors.New("E064").WithDetail("dispatch wants an event name")
		}
		detail, _ := cmd.Args["detail"].(map[string]any)
		bubbles := true
		if b, ok := cmd.Args["bubbles"].(bool); ok {
			bubbles = b
		}
		for _, el := range targets {
			ev := dom.NewEvent(name, bubbles)
			ev.Detail = detail
			el.Dispatch(ev)
		}
	case OpExec:
		attr, _ := cmd.Args["attr"].(string)
		if attr == "" {
			return errors.New("E064").WithDetail("exec wants attr: name")
		}
		for _, el := range targets {
			if js, ok := el.Attr(attr); ok && strings.TrimSpace(js) != "" {
				if err := x.exec(el, js, depth+1); err != nil {
					return err
				}
			}
		}
	case OpFocus:
		if len(targets) > 0 {
			return targets[0].Focus()
		}
	}
	return nil
}

func (x *Executor) pushEvent(source *dom.Element, args map[string]any) error {
	event, _ := args["event"].(string)
	if event == "" {
		return errors.New("E064").WithDetail("push wants an event name")
	}
	if x.push == nil {
		return errors.New("E067").WithDetail("no live connection to push " + event)
	}
	payload := Values(source)
	if v, ok := args["value"].(map[string]any); ok {
		for k, val := range v {
			payload[k] = val
		}
	}
	if target, ok := args["target"]; ok {
		payload["target"] = target
	}
	return x.push(event, payload)
}

// Values collects the phx-value-* attributes of el, keyed by the suffix.
func Values(el *dom.Element) map[string]any {
	out := map[string]any{}
	if el == nil {
		return out
	}
	for _, a := range el.Attrs() {
		if key, ok := strings.CutPrefix(a.Key, ValuePrefix); ok && key != "" {
			out[key] = a.Val
		}
	}
	return out
}

// resolve returns the elements matching args["to"], or source itself when
// no selector is given. A malformed selector is an E004 error.
func resolve(source *dom.Element, args map[string]any) ([]*dom.Element, error) {
	if source == nil {
		return nil, nil
	}
	to, _ := args["to"].(string)
	if to == "" {
		return []*dom.Element{source}, nil
	}
	return source.Document().Query(to)
}

// stringList accepts "a b", ["a","b"] or []string.
func stringList(v any) []string {
	switch v := v.(type) {
	case string:
		return strings.Fields(v)
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
