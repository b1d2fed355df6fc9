package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jask/notebook/internal/config"
	"github.com/jask/notebook/internal/debug"
	"github.com/jask/notebook/internal/logging"
	"github.com/jask/notebook/internal/view/text"
	"github.com/jask/notebook/internal/view/web"
)

func TestParseBackend(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Backend
		wantErr bool
	}{
		{in: "text", want: BackendText},
		{in: "web", want: BackendWeb},
		{in: "flask", want: BackendWeb},
		{in: " GTK ", want: BackendGTK},
		{in: "qt", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseBackend(tc.in)
			if tc.wantErr {
				require.ErrorIs(t, err, ErrUnknownBackend)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestNewText(t *testing.T) {
	t.Parallel()

	a, err := New(config.Config{}, BackendText, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Model().Terminate() })

	require.IsType(t, &text.View{}, a.View())
	require.IsType(t, &text.MainLoop{}, a.MainLoop())
	require.Same(t, a.Presenter().Model(), a.Model())
	require.Equal(t, a.Presenter(), a.Model().Owner())
	require.Equal(t,
		"Application{view: *text.View, model: *model.Model, presenter: *presenter.Presenter, main loop: *text.MainLoop}",
		a.String())

	g := a.Globals()
	require.Equal(t, "text", g["backend"])
	require.Equal(t, 4, g["cells"])
	require.Equal(t, "default", g["worksheet"])
	require.Equal(t, "starlark", g["engine"])
	require.IsType(t, &debug.Object{}, g["app"])
}

func TestDebugHandleReachesApplication(t *testing.T) {
	t.Parallel()

	a, err := New(config.Config{}, BackendText, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Model().Terminate() })
	ctx := context.Background()

	eval := func(expr string) string {
		t.Helper()
		got, err := debug.Eval(ctx, a.Globals(), expr)
		require.NoError(t, err, expr)
		return got
	}

	require.Equal(t, `"Application"`, eval("type(app)"))
	require.Equal(t, `"Presenter"`, eval("type(app.presenter)"))
	require.Equal(t, `"Presenter{worksheet: default}"`, eval("str(app.presenter)"))
	require.Equal(t, `"*text.View"`, eval("app.view.type"))
	require.Equal(t, `"*text.MainLoop"`, eval("app.main_loop.type"))
	require.Equal(t, `"starlark"`, eval("app.model.engine"))
	require.Equal(t, "False", eval("app.model.storage"))
	require.Equal(t, `["starlark"]`, eval("app.model.rpc_clients"))
	require.Equal(t, "4", eval("len(app.cells)"))
	require.Equal(t, `"123"`, eval("app.cells[0].input"))
	require.Equal(t, `"123^2"`, eval("app.presenter.worksheet.cells[1].input"))
	require.Equal(t, "None", eval("app.cells[0].index"))
	require.Equal(t, "False", eval("app.cells[0].busy"))
	require.Equal(t, `"default"`, eval("app.worksheet.name"))
	require.Equal(t, "True", eval(`"run_all" in dir(app) and "save" in dir(app)`))

	first, err := a.Presenter().Worksheet().At(0)
	require.NoError(t, err)
	require.NoError(t, a.Presenter().EditCell(first.ID(), "1 + 1"))
	require.Equal(t, `"1 + 1"`, eval("app.cells[0].input"))
	require.Equal(t, `"`+first.ID()+`"`, eval("app.cells[0].id"))
}

func TestDebugHandleReadsThroughWebLoop(t *testing.T) {
	t.Parallel()

	cfg := config.Config{Web: config.WebConfig{Addr: "127.0.0.1:0"}}
	a, err := New(cfg, BackendWeb, logging.Discard())
	require.NoError(t, err)
	loop := a.MainLoop().(*web.MainLoop)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx, false) }()
	require.Eventually(t, func() bool { return loop.Addr() != nil }, 5*time.Second, 10*time.Millisecond)

	var globals map[string]any
	require.NoError(t, loop.Submit(ctx, func() { globals = a.Globals() }))
	got, err := debug.Eval(ctx, globals, "app.cells[0].input + ':' + app.main_loop.addr")
	require.NoError(t, err)
	require.Equal(t, `"123:`+loop.Addr().String()+`"`, got)

	cancel()
	require.NoError(t, <-done)

	_, err = debug.Eval(context.Background(), globals, "app.cells")
	require.ErrorContains(t, err, "main loop stopped")
}

func TestNewWeb(t *testing.T) {
	t.Parallel()

	cfg := config.Config{Web: config.WebConfig{Addr: "127.0.0.1:0"}}
	a, err := New(cfg, BackendWeb, logging.Discard())
	require.NoError(t, err)
	require.Equal(t, BackendWeb, a.Backend())
	require.IsType(t, &web.View{}, a.View())

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	require.NoError(t, a.Run(ctx, false))
}

func TestNewRejectsBackends(t *testing.T) {
	t.Parallel()

	_, err := New(config.Config{}, BackendGTK, logging.Discard())
	require.ErrorIs(t, err, ErrBackendUnavailable)

	_, err = New(config.Config{}, Backend("qt"), logging.Discard())
	require.ErrorIs(t, err, ErrUnknownBackend)

	_, err = New(config.Config{Compute: config.ComputeConfig{Engine: "nope"}}, BackendText, logging.Discard())
	require.Error(t, err)
}
