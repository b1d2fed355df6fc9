// Package app assembles a notebook from a front-end backend, the presenter
// and the model, and runs it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/jask/notebook/internal/config"
	"github.com/jask/notebook/internal/model"
	"github.com/jask/notebook/internal/presenter"
	"github.com/jask/notebook/internal/view/text"
	"github.com/jask/notebook/internal/view/web"
)

var (
	ErrUnknownBackend     = errors.New("app: unknown backend")
	ErrBackendUnavailable = errors.New("app: backend not available in this build")
)

// Backend names a front-end.
type Backend string

const (
	BackendText Backend = "text"
	BackendWeb  Backend = "web"
	BackendGTK  Backend = "gtk"
)

// ParseBackend accepts text, web, flask (an alias of web) and gtk.
func ParseBackend(name string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "text":
		return BackendText, nil
	case "web", "flask":
		return BackendWeb, nil
	case "gtk":
		return BackendGTK, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownBackend, name)
}

type Application struct {
	backend   Backend
	logger    *slog.Logger
	presenter *presenter.Presenter

	// set once Run begins; from then on debug reads go through the main loop
	started atomic.Bool
}

func frontEnd(b Backend, cfg config.Config, logger *slog.Logger) (presenter.View, presenter.MainLoop, error) {
	switch b {
	case BackendText:
		v, l := text.New()
		return v, l, nil
	case BackendWeb:
		v, l := web.New(cfg.Web.Addr, logger)
		return v, l, nil
	case BackendGTK:
		return nil, nil, fmt.Errorf("%w: %s", ErrBackendUnavailable, b)
	}
	return nil, nil, fmt.Errorf("%w: %q", ErrUnknownBackend, string(b))
}

// New builds the application for backend.
func New(cfg config.Config, backend Backend, logger *slog.Logger) (*Application, error) {
	view, loop, err := frontEnd(backend, cfg, logger)
	if err != nil {
		return nil, err
	}
	p, err := presenter.New(view, loop, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &Application{backend: backend, logger: logger, presenter: p}, nil
}

func (a *Application) Backend() Backend { return a.backend }

func (a *Application) View() presenter.View { return a.presenter.View() }

func (a *Application) Model() *model.Model { return a.presenter.Model() }

func (a *Application) MainLoop() presenter.MainLoop { return a.presenter.MainLoop() }

func (a *Application) Presenter() *presenter.Presenter { return a.presenter }

// Run blocks until the main loop stops. With debug set the main loop may
// expose the application for inspection.
func (a *Application) Run(ctx context.Context, debug bool) error {
	var handle presenter.DebugHandle
	if debug {
		handle = a
	}
	a.started.Store(true)
	a.logger.Info("starting", "backend", a.backend, "debug", debug)
	return a.presenter.Run(ctx, handle)
}

func (a *Application) String() string {
	return fmt.Sprintf("Application{view: %T, model: %T, presenter: %T, main loop: %T}",
		a.View(), a.Model(), a.presenter, a.MainLoop())
}

// Globals are the names bound in the debug REPL. Call from the main loop.
// Only app stays live; the other values are read once.
func (a *Application) Globals() map[string]any {
	return map[string]any{
		"app":       a.object(),
		"backend":   string(a.backend),
		"cells":     a.presenter.Worksheet().Len(),
		"worksheet": a.presenter.Name(),
		"engine":    a.Model().Compute().Engine().Name(),
	}
}
