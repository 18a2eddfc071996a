package hooks

import (
	"sort"
	"strconv"

	"github.com/vango-dev/livehooks/internal/errors"
)

// Hook is a per-element behavior.
type Hook interface {
	// Mounted runs when the element is attached to the document.
	Mounted(ctx *Context)

	// Destroyed runs when the element is removed. Resources registered on
	// ctx are released right after it returns.
	Destroyed(ctx *Context)
}

// Factory creates a fresh hook instance for one element.
type Factory func() Hook

// Funcs adapts plain functions to Hook. Nil fields are no-ops.
type Funcs struct {
	OnMounted   func(ctx *Context)
	OnDestroyed func(ctx *Context)
}

// Mounted implements Hook.
func (f Funcs) Mounted(ctx *Context) {
	if f.OnMounted != nil {
		f.OnMounted(ctx)
	}
}

// Destroyed implements Hook.
func (f Funcs) Destroyed(ctx *Context) {
	if f.OnDestroyed != nil {
		f.OnDestroyed(ctx)
	}
}

// Table maps hook names to factories. It is immutable once built.
type Table struct {
	factories map[string]Factory
	names     []string
}

// NewTable builds a table from defs.
func NewTable(defs map[string]Factory) (*Table, error) {
	t := &Table{factories: make(map[string]Factory, len(defs))}
	for name, f := range defs {
		if name == "" || f == nil {
			return nil, errors.New("E003").WithDetail("hook " + strconv.Quote(name) + " has an empty name or nil factory")
		}
		t.factories[name] = f
		t.names = append(t.names, name)
	}
	sort.Strings(t.names)
	return t, nil
}

// Lookup returns the factory registered under name.
func (t *Table) Lookup(name string) (Factory, bool) {
	if t == nil {
		return nil, false
	}
	f, ok := t.factories[name]
	return f, ok
}

// Names returns the registered names in sorted order.
func (t *Table) Names() []string {
	if t == nil {
		return nil
	}
	return append([]string(nil), t.names...)
}

// Len returns the number of registered hooks.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.names)
}

// Builder collects registrations and reports the first problem at Build.
type Builder struct {
	defs map[string]Factory
	err  error
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{defs: make(map[string]Factory)}
}

// Register adds a hook. Registering a name twice is an error.
func (b *Builder) Register(name string, f Factory) *Builder {
	if b.err != nil {
		return b
	}
	if name == "" || f == nil {
		b.err = errors.New("E003").WithDetail("hook " + strconv.Quote(name) + " has an empty name or nil factory")
		return b
	}
	if _, dup := b.defs[name]; dup {
		b.err = errors.New("E002").WithDetail("hook " + strconv.Quote(name) + " registered twice")
		return b
	}
	b.defs[name] = f
	return b
}

// Build returns the table.
func (b *Builder) Build() (*Table, error) {
	if b.err != nil {
		return nil, b.err
	}
	return NewTable(b.defs)
}
