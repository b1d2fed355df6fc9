package web

import (
	"context"
	"errors"
	"maps"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jask/notebook/internal/debug"
	"github.com/jask/notebook/internal/presenter"
)

// Handler builds the router. The debug route exists only when dbg is set.
func (l *MainLoop) Handler(dbg presenter.DebugHandle) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/cells", l.handleListCells)
		r.Post("/cells", l.handleCreateCell)
		r.Get("/cells/{id}", l.handleGetCell)
		r.Put("/cells/{id}", l.handleUpdateCell)
		r.Delete("/cells/{id}", l.handleDeleteCell)
		r.Post("/cells/{id}/run", l.handleRunCell)
		r.Post("/run", l.handleRunAll)
		r.Post("/interrupt", l.handleInterrupt)
		r.Post("/save", l.handleSave)
		r.Post("/load", l.handleLoad)
		r.Get("/complete", l.handleComplete)
		r.Get("/worksheets", l.handleListWorksheets)
		r.Delete("/worksheets/{name}", l.handleDeleteWorksheet)
	})
	r.Get("/ws", l.handleWebSocket)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if dbg != nil {
		r.Get("/debug/app", l.handleDebug(dbg))
	}
	return r
}

// call runs fn on the control goroutine and writes its result.
func (l *MainLoop) call(w http.ResponseWriter, r *http.Request, status int, fn func(ctx context.Context) (any, error)) {
	var (
		payload any
		err     error
	)
	if serr := l.submit(r.Context(), func() { payload, err = fn(r.Context()) }); serr != nil {
		respondError(w, statusFor(serr), serr)
		return
	}
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	if payload == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	respondJSON(w, status, payload)
}

func (l *MainLoop) handleListCells(w http.ResponseWriter, r *http.Request) {
	l.call(w, r, http.StatusOK, func(context.Context) (any, error) {
		return worksheetMessage(l.p), nil
	})
}

type cellRequest struct {
	Input    string `json:"input"`
	Position *int   `json:"position"`
}

func (l *MainLoop) handleCreateCell(w http.ResponseWriter, r *http.Request) {
	var req cellRequest
	if status, err := decodeJSONBody(w, r, &req, true); err != nil {
		respondError(w, status, err)
		return
	}
	l.call(w, r, http.StatusCreated, func(context.Context) (any, error) {
		pos := l.p.Worksheet().Len()
		if req.Position != nil {
			pos = *req.Position
		}
		c, err := l.p.InsertCell(pos, req.Input)
		if err != nil {
			return nil, err
		}
		return cellJSON(l.p, c), nil
	})
}

func (l *MainLoop) handleGetCell(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	l.call(w, r, http.StatusOK, func(context.Context) (any, error) {
		c, err := l.p.Worksheet().Cell(id)
		if err != nil {
			return nil, err
		}
		return cellJSON(l.p, c), nil
	})
}

func (l *MainLoop) handleUpdateCell(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req cellRequest
	if status, err := decodeJSONBody(w, r, &req, false); err != nil {
		respondError(w, status, err)
		return
	}
	l.call(w, r, http.StatusOK, func(context.Context) (any, error) {
		if err := l.p.EditCell(id, req.Input); err != nil {
			return nil, err
		}
		c, err := l.p.Worksheet().Cell(id)
		if err != nil {
			return nil, err
		}
		return cellJSON(l.p, c), nil
	})
}

func (l *MainLoop) handleDeleteCell(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	l.call(w, r, http.StatusNoContent, func(context.Context) (any, error) {
		return nil, l.p.DeleteCell(id)
	})
}

func (l *MainLoop) handleRunCell(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	l.call(w, r, http.StatusAccepted, func(context.Context) (any, error) {
		if err := l.p.RunCell(id); err != nil {
			return nil, err
		}
		c, err := l.p.Worksheet().Cell(id)
		if err != nil {
			return nil, err
		}
		return cellJSON(l.p, c), nil
	})
}

func (l *MainLoop) handleRunAll(w http.ResponseWriter, r *http.Request) {
	l.call(w, r, http.StatusAccepted, func(context.Context) (any, error) {
		if err := l.p.RunAll(); err != nil {
			return nil, err
		}
		return worksheetMessage(l.p), nil
	})
}

func (l *MainLoop) handleInterrupt(w http.ResponseWriter, r *http.Request) {
	l.call(w, r, http.StatusOK, func(context.Context) (any, error) {
		return map[string]bool{"interrupted": l.p.Interrupt()}, nil
	})
}

func (l *MainLoop) handleSave(w http.ResponseWriter, r *http.Request) {
	l.call(w, r, http.StatusOK, func(ctx context.Context) (any, error) {
		if err := l.p.Save(ctx); err != nil {
			return nil, err
		}
		return map[string]string{"saved": l.p.Name()}, nil
	})
}

func (l *MainLoop) handleLoad(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if status, err := decodeJSONBody(w, r, &req, false); err != nil {
		respondError(w, status, err)
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, errors.New("name required"))
		return
	}
	l.call(w, r, http.StatusOK, func(ctx context.Context) (any, error) {
		if err := l.p.Load(ctx, req.Name); err != nil {
			return nil, err
		}
		return worksheetMessage(l.p), nil
	})
}

func (l *MainLoop) handleComplete(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("prefix")
	l.call(w, r, http.StatusOK, func(context.Context) (any, error) {
		completions := l.p.Complete(prefix)
		if completions == nil {
			completions = []string{}
		}
		return map[string][]string{"completions": completions}, nil
	})
}

func (l *MainLoop) handleListWorksheets(w http.ResponseWriter, r *http.Request) {
	l.call(w, r, http.StatusOK, func(ctx context.Context) (any, error) {
		list, err := l.p.Worksheets(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]any{"current": l.p.Name(), "worksheets": list}, nil
	})
}

func (l *MainLoop) handleDeleteWorksheet(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	l.call(w, r, http.StatusNoContent, func(ctx context.Context) (any, error) {
		return nil, l.p.DeleteWorksheet(ctx, name)
	})
}

// handleWebSocket subscribes the client and sends it the current worksheet.
func (l *MainLoop) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sub, err := l.hub.upgrade(w, r)
	if err != nil {
		l.logger.Warn("websocket upgrade", "err", err)
		return
	}
	_ = l.submit(r.Context(), func() {
		l.hub.deliver(sub, worksheetMessage(l.p))
	})
}

func (l *MainLoop) handleDebug(dbg presenter.DebugHandle) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var globals map[string]any
		if err := l.submit(r.Context(), func() { globals = dbg.Globals() }); err != nil {
			respondError(w, statusFor(err), err)
			return
		}
		resp := map[string]any{
			"app":     dbg.String(),
			"globals": slices.Sorted(maps.Keys(globals)),
		}
		if expr := r.URL.Query().Get("expr"); expr != "" {
			value, err := debug.Eval(r.Context(), globals, expr)
			if err != nil {
				respondError(w, http.StatusBadRequest, err)
				return
			}
			resp["value"] = value
		}
		respondJSON(w, http.StatusOK, resp)
	}
}
