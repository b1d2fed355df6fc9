package app

import (
	"context"
	"fmt"
	"net"

	"github.com/jask/notebook/internal/debug"
	"github.com/jask/notebook/internal/worksheet"
)

// submitter is implemented by main loops whose control goroutine accepts work.
type submitter interface {
	Submit(ctx context.Context, fn func()) error
}

// exec runs fn where the presenter may be touched: on the main loop's control
// goroutine once Run has begun, inline before that.
func (a *Application) exec(fn func()) error {
	if a.started.Load() {
		if s, ok := a.MainLoop().(submitter); ok {
			return s.Submit(context.Background(), fn)
		}
	}
	fn()
	return nil
}

// call runs fn through exec and returns whichever error occurred.
func (a *Application) call(fn func() error) error {
	var err error
	if serr := a.exec(func() { err = fn() }); serr != nil {
		return serr
	}
	return err
}

// object exposes the application to Starlark. Attributes are read live.
func (a *Application) object() *debug.Object {
	return debug.NewObject("Application", a.String(), a.exec, debug.Attrs{
		"backend":   func() any { return string(a.backend) },
		"view":      func() any { return a.viewObject() },
		"model":     func() any { return a.modelObject() },
		"presenter": func() any { return a.presenterObject() },
		"main_loop": func() any { return a.loopObject() },
		"worksheet": func() any { return a.worksheetObject() },
		"cells":     func() any { return a.cellObjects() },

		"run_all": func() any {
			return func() error {
				return a.call(a.presenter.RunAll)
			}
		},
		"run": func() any {
			return func(position int) error {
				return a.call(func() error {
					c, err := a.presenter.Worksheet().At(position)
					if err != nil {
						return err
					}
					return a.presenter.RunCell(c.ID())
				})
			}
		},
		"interrupt": func() any {
			return func() bool {
				var interrupted bool
				_ = a.exec(func() { interrupted = a.presenter.Interrupt() })
				return interrupted
			}
		},
		"save": func() any {
			return func() error {
				return a.call(func() error {
					return a.presenter.Save(context.Background())
				})
			}
		},
	})
}

func (a *Application) viewObject() *debug.Object {
	name := fmt.Sprintf("%T", a.View())
	return debug.NewObject("View", name, a.exec, debug.Attrs{
		"type": func() any { return name },
	})
}

func (a *Application) loopObject() *debug.Object {
	loop := a.MainLoop()
	name := fmt.Sprintf("%T", loop)
	attrs := debug.Attrs{
		"type": func() any { return name },
	}
	if l, ok := loop.(interface{ Addr() net.Addr }); ok {
		attrs["addr"] = func() any {
			if addr := l.Addr(); addr != nil {
				return addr.String()
			}
			return nil
		}
	}
	return debug.NewObject("MainLoop", name, a.exec, attrs)
}

func (a *Application) modelObject() *debug.Object {
	m := a.Model()
	return debug.NewObject("Model", fmt.Sprintf("%T", m), a.exec, debug.Attrs{
		"config":  func() any { return m.Config() },
		"engine":  func() any { return m.Compute().Engine().Name() },
		"storage": func() any { return m.Worksheets() != nil },
		"rpc_clients": func() any {
			var names []any
			for _, c := range m.RPCClients() {
				names = append(names, c.Name())
			}
			return names
		},
	})
}

func (a *Application) presenterObject() *debug.Object {
	p := a.presenter
	return debug.NewObject("Presenter", fmt.Sprintf("Presenter{worksheet: %s}", p.Name()), a.exec, debug.Attrs{
		"name":      func() any { return p.Name() },
		"worksheet": func() any { return a.worksheetObject() },
		"cells":     func() any { return a.cellObjects() },
	})
}

func (a *Application) worksheetObject() *debug.Object {
	w := a.presenter.Worksheet()
	return debug.NewObject("Worksheet", w.String(), a.exec, debug.Attrs{
		"name":  func() any { return a.presenter.Name() },
		"len":   func() any { return a.presenter.Worksheet().Len() },
		"cells": func() any { return a.cellObjects() },
	})
}

func (a *Application) cellObjects() []any {
	var out []any
	for c := range a.presenter.Worksheet().All() {
		out = append(out, a.cellObject(c))
	}
	return out
}

func (a *Application) cellObject(c *worksheet.Cell) *debug.Object {
	return debug.NewObject("Cell", c.String(), a.exec, debug.Attrs{
		"id":    func() any { return c.ID() },
		"input": func() any { return c.Input() },
		"index": func() any {
			if n, ok := c.Index(); ok {
				return n
			}
			return nil
		},
		"busy":       func() any { return c.Busy() },
		"stdout":     func() any { return c.Stdout() },
		"stderr":     func() any { return c.Stderr() },
		"plain_text": func() any { return c.PlainText() },
	})
}
