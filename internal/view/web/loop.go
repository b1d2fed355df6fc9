// Package web is the browser front-end: a JSON API with websocket updates.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jask/notebook/internal/compute"
	"github.com/jask/notebook/internal/debug"
	"github.com/jask/notebook/internal/presenter"
)

var errLoopStopped = errors.New("web: main loop stopped")

const shutdownTimeout = 5 * time.Second

type task struct {
	fn   func()
	done chan struct{}
}

// MainLoop serves HTTP and runs the control goroutine that owns the
// worksheet. Handlers reach the presenter only through submit.
type MainLoop struct {
	addr   string
	logger *slog.Logger
	hub    *Hub
	p      *presenter.Presenter

	tasks    chan task
	stopped  chan struct{}
	stopOnce sync.Once

	mu       sync.Mutex
	listener net.Addr
}

// New returns the web front-end listening on addr.
func New(addr string, logger *slog.Logger) (*View, *MainLoop) {
	hub := newHub(logger)
	loop := &MainLoop{
		addr:    addr,
		logger:  logger,
		hub:     hub,
		tasks:   make(chan task),
		stopped: make(chan struct{}),
	}
	return &View{hub: hub}, loop
}

func (l *MainLoop) Attach(p *presenter.Presenter) { l.p = p }

// Addr is the bound listen address once Run is serving, or nil.
func (l *MainLoop) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.listener
}

// Run serves until ctx is cancelled or the server fails. With a debug
// handle a Starlark REPL is also opened on the terminal.
func (l *MainLoop) Run(ctx context.Context, dbg presenter.DebugHandle) error {
	ln, err := net.Listen("tcp", l.addr)
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.listener = ln.Addr()
	l.mu.Unlock()

	srv := &http.Server{
		Handler:           l.Handler(dbg),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
		MaxHeaderBytes:    1 << 20,
	}

	// collected before the control goroutine starts
	var globals map[string]any
	if dbg != nil {
		globals = dbg.Globals()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		l.logger.Info("serving web front-end", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		l.hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return l.control(gctx)
	})

	if dbg != nil {
		// reads stdin until EOF and is not waited for; once gctx is done its
		// statements fail and attribute reads return errLoopStopped
		go debug.Tap(gctx, l.logger, dbg.String(), globals)
	}
	return g.Wait()
}

// control is the only goroutine touching the presenter while Run is active.
func (l *MainLoop) control(ctx context.Context) error {
	defer l.stopOnce.Do(func() { close(l.stopped) })

	events := make(chan compute.Event)
	var wg sync.WaitGroup
	for _, c := range l.p.Model().RPCClients() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			forward(ctx, c, events)
		}()
	}
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return nil
		case t := <-l.tasks:
			t.fn()
			close(t.done)
		case ev := <-events:
			l.p.HandleEvent(ev)
		}
	}
}

func forward(ctx context.Context, c *compute.Client, out chan<- compute.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-c.Events():
			if !ok {
				return
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}
}

// Submit runs fn on the control goroutine and waits for it. It fails once
// the control goroutine has stopped.
func (l *MainLoop) Submit(ctx context.Context, fn func()) error {
	return l.submit(ctx, fn)
}

func (l *MainLoop) submit(ctx context.Context, fn func()) error {
	t := task{fn: fn, done: make(chan struct{})}
	select {
	case l.tasks <- t:
	case <-ctx.Done():
		return ctx.Err()
	case <-l.stopped:
		return errLoopStopped
	}
	<-t.done
	return nil
}
