package compute

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"sync"
	"time"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

const ctxKey = "context"

// StarlarkEngine evaluates cells in-process with Starlark. Globals bound by
// one cell are visible to the following ones. A cell that rebinds a name it
// also reads from an earlier cell (x = x + 1) fails: the name is a new global
// of that cell, read before assignment.
type StarlarkEngine struct {
	mu      sync.Mutex
	opts    *syntax.FileOptions
	globals starlark.StringDict

	namesMu sync.Mutex
	names   []string
}

func NewStarlarkEngine() *StarlarkEngine {
	e := &StarlarkEngine{
		opts: &syntax.FileOptions{
			Set:             true,
			While:           true,
			TopLevelControl: true,
			GlobalReassign:  true,
			Recursion:       true,
		},
		globals: starlark.StringDict{
			"sleep": starlark.NewBuiltin("sleep", sleep),
		},
	}
	e.refreshNames()
	return e
}

func (e *StarlarkEngine) Name() string { return "starlark" }

// Eval runs code. When the last statement is an expression its value is
// written to stdout unless it is None.
func (e *StarlarkEngine) Eval(ctx context.Context, code string, stdout, stderr io.Writer) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.refreshNames()

	thread := &starlark.Thread{
		Name: "cell",
		Print: func(_ *starlark.Thread, msg string) {
			fmt.Fprintln(stdout, msg)
		},
	}
	thread.SetLocal(ctxKey, ctx)
	stop := context.AfterFunc(ctx, func() {
		thread.Cancel(context.Cause(ctx).Error())
	})
	defer stop()

	f, err := e.opts.Parse("<cell>", code, 0)
	if err != nil {
		return err
	}
	var last syntax.Expr
	if n := len(f.Stmts); n > 0 {
		if es, ok := f.Stmts[n-1].(*syntax.ExprStmt); ok {
			last = es.X
			f.Stmts = f.Stmts[:n-1]
		}
	}

	prog, err := starlark.FileProgram(f, e.globals.Has)
	if err != nil {
		return err
	}
	defined, err := prog.Init(thread, e.globals)
	for name, v := range defined {
		if v != nil {
			e.globals[name] = v
		}
	}
	if err != nil {
		return describe(err)
	}
	if last == nil {
		return nil
	}

	v, err := starlark.EvalExprOptions(e.opts, thread, last, e.globals)
	if err != nil {
		return describe(err)
	}
	if v != starlark.None {
		fmt.Fprintln(stdout, v.String())
	}
	return nil
}

// Names lists bound globals and builtins. It does not wait for a running Eval.
func (e *StarlarkEngine) Names() []string {
	e.namesMu.Lock()
	defer e.namesMu.Unlock()
	return slices.Clone(e.names)
}

// refreshNames must be called with mu held.
func (e *StarlarkEngine) refreshNames() {
	set := make(map[string]struct{}, len(e.globals)+len(starlark.Universe))
	for name := range e.globals {
		set[name] = struct{}{}
	}
	for name := range starlark.Universe {
		set[name] = struct{}{}
	}
	names := slices.Sorted(maps.Keys(set))

	e.namesMu.Lock()
	e.names = names
	e.namesMu.Unlock()
}

func (e *StarlarkEngine) Close() error { return nil }

func describe(err error) error {
	var evalErr *starlark.EvalError
	if errors.As(err, &evalErr) {
		return errors.New(evalErr.Backtrace())
	}
	return err
}

func sleep(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var secs starlark.Value
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &secs); err != nil {
		return nil, err
	}
	f, ok := starlark.AsFloat(secs)
	if !ok || f < 0 {
		return nil, fmt.Errorf("%s: want non-negative number, got %s", b.Name(), secs.String())
	}
	ctx, _ := thread.Local(ctxKey).(context.Context)
	if ctx == nil {
		ctx = context.Background()
	}
	t := time.NewTimer(time.Duration(f * float64(time.Second)))
	defer t.Stop()
	select {
	case <-t.C:
		return starlark.None, nil
	case <-ctx.Done():
		return nil, context.Cause(ctx)
	}
}
