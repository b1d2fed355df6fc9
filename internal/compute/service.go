// Package compute runs cell source against an evaluation engine and reports
// progress as events on an RPC client that the main loop drains.
package compute

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jask/notebook/internal/config"
)

var (
	ErrServiceClosed = errors.New("compute: service closed")
	ErrQueueFull     = errors.New("compute: job queue full")
	ErrInterrupted   = errors.New("compute: interrupted")
	ErrTimeout       = errors.New("compute: execution timed out")
)

const (
	queueSize   = 64
	eventBuffer = 256
)

type job struct {
	cellID string
	code   string
}

// Service evaluates one job at a time on a single worker goroutine.
type Service struct {
	logger  *slog.Logger
	engine  Engine
	client  *Client
	timeout time.Duration

	jobs chan job
	quit chan struct{}
	done chan struct{}

	startOnce sync.Once
	closeOnce sync.Once
	closeErr  error

	mu     sync.Mutex
	closed bool
	cancel context.CancelCauseFunc

	// counter is owned by the worker goroutine.
	counter int
}

// NewService builds the engine named by cfg and wraps it in a service.
func NewService(cfg config.ComputeConfig, logger *slog.Logger) (*Service, error) {
	engine, err := NewEngine(cfg, logger)
	if err != nil {
		return nil, err
	}
	return NewServiceWithEngine(engine, cfg.Timeout, logger), nil
}

// NewServiceWithEngine wraps engine. A zero timeout means no limit.
func NewServiceWithEngine(engine Engine, timeout time.Duration, logger *slog.Logger) *Service {
	return &Service{
		logger:  logger.With("engine", engine.Name()),
		engine:  engine,
		client:  newClient(engine.Name(), eventBuffer),
		timeout: timeout,
		jobs:    make(chan job, queueSize),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

func (s *Service) Client() *Client { return s.client }

func (s *Service) Engine() Engine { return s.engine }

// Start launches the worker. Later calls do nothing.
func (s *Service) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		go s.run(ctx)
	})
}

// Execute queues code for cellID.
func (s *Service) Execute(cellID, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrServiceClosed
	}
	select {
	case s.jobs <- job{cellID: cellID, code: code}:
		metricQueued.Inc()
		return nil
	default:
		return ErrQueueFull
	}
}

// Interrupt cancels the running job. It reports whether one was running.
func (s *Service) Interrupt() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return false
	}
	s.cancel(ErrInterrupted)
	return true
}

// Complete returns at most limit completion candidates for prefix.
func (s *Service) Complete(prefix string, limit int) []string {
	return rankCompletions(prefix, s.engine.Names(), limit)
}

// Close stops the worker, drops queued jobs and closes the client's event channel.
func (s *Service) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		if s.cancel != nil {
			s.cancel(ErrServiceClosed)
		}
		s.mu.Unlock()
		close(s.quit)
		// never started: nobody else will close these
		s.startOnce.Do(func() {
			close(s.client.events)
			close(s.done)
		})
		<-s.done
		s.closeErr = s.engine.Close()
	})
	return s.closeErr
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)
	defer close(s.client.events)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.quit:
			return
		case j := <-s.jobs:
			metricQueued.Dec()
			select {
			case <-s.quit:
				return
			default:
			}
			s.execute(ctx, j)
		}
	}
}

func (s *Service) execute(ctx context.Context, j job) {
	jctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	if s.timeout > 0 {
		var stop context.CancelFunc
		jctx, stop = context.WithTimeoutCause(jctx, s.timeout, ErrTimeout)
		defer stop()
	}
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.cancel = nil
		s.mu.Unlock()
	}()

	s.logger.Debug("execute", "cell", j.cellID)
	start := time.Now()
	stdout := &eventWriter{s: s, ctx: ctx, cellID: j.cellID, kind: EventStdout}
	stderr := &eventWriter{s: s, ctx: ctx, cellID: j.cellID, kind: EventStderr}
	err := s.engine.Eval(jctx, j.code, stdout, stderr)
	elapsed := time.Since(start)

	s.counter++
	fin := Event{Kind: EventFinished, CellID: j.cellID, Index: s.counter}
	outcome := "ok"
	if err != nil {
		outcome = "error"
		if errors.Is(context.Cause(jctx), ErrInterrupted) {
			outcome = "interrupted"
		}
		fin.Err = err.Error()
		_, _ = stderr.Write([]byte(fin.Err + "\n"))
	}
	metricExecutions.WithLabelValues(s.engine.Name(), outcome).Inc()
	metricExecutionSeconds.WithLabelValues(s.engine.Name()).Observe(elapsed.Seconds())
	s.logger.Debug("finished", "cell", j.cellID, "index", fin.Index, "outcome", outcome, "elapsed", elapsed)
	s.emit(ctx, fin)
}

func (s *Service) emit(ctx context.Context, ev Event) {
	select {
	case s.client.events <- ev:
	case <-ctx.Done():
	case <-s.quit:
	}
}

// eventWriter turns engine output into events for one cell.
type eventWriter struct {
	s      *Service
	ctx    context.Context
	cellID string
	kind   EventKind
}

func (w *eventWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	w.s.emit(w.ctx, Event{Kind: w.kind, CellID: w.cellID, Text: string(p)})
	return len(p), nil
}
