// Package debug exposes a running application to a Starlark REPL.
package debug

import (
	"context"
	"log/slog"
	"maps"
	"slices"

	"go.starlark.net/repl"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

var fileOptions = &syntax.FileOptions{
	Set:             true,
	While:           true,
	TopLevelControl: true,
}

// Tap runs an interactive REPL on the terminal with globals bound, until
// the user sends EOF. Cancelling ctx aborts the statement being evaluated
// but not a pending read from stdin, so callers must not wait for Tap.
func Tap(ctx context.Context, logger *slog.Logger, what string, globals map[string]any) {
	logger.InfoContext(ctx, "tap: "+what,
		"globals", slices.Sorted(maps.Keys(globals)),
	)
	defer func() {
		logger.InfoContext(ctx, "tap end: "+what)
	}()

	thread := &starlark.Thread{
		Name: "repl",
	}
	stop := context.AfterFunc(ctx, func() {
		thread.Cancel(context.Cause(ctx).Error())
	})
	defer stop()
	repl.REPLOptions(fileOptions, thread, bindings(globals))
}

// Eval evaluates a single expression against globals and returns its
// Starlark representation.
func Eval(ctx context.Context, globals map[string]any, expr string) (string, error) {
	thread := &starlark.Thread{Name: "eval"}
	stop := context.AfterFunc(ctx, func() {
		thread.Cancel(context.Cause(ctx).Error())
	})
	defer stop()

	v, err := starlark.EvalOptions(fileOptions, thread, "<expr>", expr, bindings(globals))
	if err != nil {
		return "", err
	}
	return v.String(), nil
}

func bindings(globals map[string]any) starlark.StringDict {
	mappings := make(starlark.StringDict, len(globals))
	for name, value := range globals {
		mappings[name] = toStarlarkValue(value)
	}
	return mappings
}
