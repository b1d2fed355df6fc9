package debug

import (
	"fmt"
	"maps"
	"slices"

	"go.starlark.net/starlark"
)

// Executor runs fn on the goroutine that owns the inspected state.
type Executor func(fn func()) error

// Attrs maps attribute names onto getters. A getter returning a func is
// exposed as a callable.
type Attrs map[string]func() any

// Object is a Starlark value whose attributes are read live through exec.
type Object struct {
	typ   string
	desc  string
	exec  Executor
	attrs Attrs
}

var _ starlark.HasAttrs = (*Object)(nil)

// NewObject returns an object of Starlark type typ. A nil exec reads
// attributes on the calling goroutine.
func NewObject(typ, desc string, exec Executor, attrs Attrs) *Object {
	return &Object{typ: typ, desc: desc, exec: exec, attrs: attrs}
}

func (o *Object) String() string { return o.desc }

func (o *Object) Type() string { return o.typ }

func (o *Object) Freeze() {}

func (o *Object) Truth() starlark.Bool { return starlark.True }

func (o *Object) Hash() (uint32, error) {
	return 0, fmt.Errorf("unhashable type: %s", o.typ)
}

func (o *Object) Attr(name string) (starlark.Value, error) {
	get, ok := o.attrs[name]
	if !ok {
		return nil, nil
	}
	var v any
	if o.exec == nil {
		v = get()
	} else if err := o.exec(func() { v = get() }); err != nil {
		return nil, fmt.Errorf("%s.%s: %w", o.typ, name, err)
	}
	return toStarlarkValue(v), nil
}

func (o *Object) AttrNames() []string {
	return slices.Sorted(maps.Keys(o.attrs))
}
