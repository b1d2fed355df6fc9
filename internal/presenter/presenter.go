// Package presenter connects a front-end to the worksheet and the compute
// service. Every method must be called from the main loop's control
// goroutine.
package presenter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jask/notebook/internal/compute"
	"github.com/jask/notebook/internal/config"
	"github.com/jask/notebook/internal/database/repository"
	"github.com/jask/notebook/internal/model"
	"github.com/jask/notebook/internal/worksheet"
)

var (
	ErrCellBusy        = errors.New("presenter: cell is busy")
	ErrStorageDisabled = errors.New("presenter: worksheet storage is disabled")
)

const completionLimit = 20

// View renders the worksheet.
type View interface {
	Attach(p *Presenter)
	CellChanged(c *worksheet.Cell)
	WorksheetChanged()
	Notify(text string)
	Error(title, text string)
}

// MainLoop owns the control goroutine. It drains the model's RPC clients
// and hands their events to HandleEvent.
type MainLoop interface {
	Attach(p *Presenter)
	Run(ctx context.Context, debug DebugHandle) error
}

// DebugHandle is what a main loop may expose for interactive inspection.
type DebugHandle interface {
	String() string
	Globals() map[string]any
}

type Presenter struct {
	logger    *slog.Logger
	view      View
	loop      MainLoop
	model     *model.Model
	worksheet *worksheet.Worksheet
	name      string
}

// New builds the model and attaches view and loop.
func New(view View, loop MainLoop, cfg config.Config, logger *slog.Logger) (*Presenter, error) {
	name := cfg.UI.Worksheet
	if name == "" {
		name = "default"
	}
	p := &Presenter{
		logger:    logger,
		view:      view,
		loop:      loop,
		worksheet: worksheet.NewDefault(),
		name:      name,
	}
	m, err := model.New(p, cfg, logger)
	if err != nil {
		return nil, err
	}
	p.model = m
	view.Attach(p)
	loop.Attach(p)
	return p, nil
}

func (p *Presenter) View() View { return p.view }

func (p *Presenter) MainLoop() MainLoop { return p.loop }

func (p *Presenter) Model() *model.Model { return p.model }

func (p *Presenter) Worksheet() *worksheet.Worksheet { return p.worksheet }

// Name is the name the worksheet is stored under.
func (p *Presenter) Name() string { return p.name }

// Start loads the configured worksheet and starts the compute worker.
func (p *Presenter) Start(ctx context.Context) error {
	if repo := p.model.Worksheets(); repo != nil {
		ws, err := repo.Load(ctx, p.name)
		switch {
		case err == nil:
			p.worksheet = ws
		case errors.Is(err, repository.ErrWorksheetNotFound):
			p.logger.Info("new worksheet", "name", p.name)
		default:
			return fmt.Errorf("load worksheet %s: %w", p.name, err)
		}
	}
	p.model.Start(ctx)
	p.view.WorksheetChanged()
	return nil
}

// Run starts the presenter, blocks in the main loop and shuts down.
func (p *Presenter) Run(ctx context.Context, debug DebugHandle) error {
	if err := p.Start(ctx); err != nil {
		return errors.Join(err, p.model.Terminate())
	}
	runErr := p.loop.Run(ctx, debug)
	// the run context is usually cancelled by now
	termErr := p.Terminate(context.WithoutCancel(ctx))
	return errors.Join(runErr, termErr)
}

func (p *Presenter) fail(title string, err error) error {
	p.view.Error(title, err.Error())
	return err
}

func (p *Presenter) EditCell(id, input string) error {
	c, err := p.worksheet.Cell(id)
	if err != nil {
		return p.fail("Edit failed", err)
	}
	if c.Busy() {
		return p.fail("Edit failed", fmt.Errorf("%w: %s", ErrCellBusy, id))
	}
	c.SetInput(input)
	p.view.CellChanged(c)
	return nil
}

func (p *Presenter) InsertCell(position int, input string) (*worksheet.Cell, error) {
	c := worksheet.NewCell()
	c.SetInput(input)
	if err := p.worksheet.Insert(position, c); err != nil {
		return nil, p.fail("Insert failed", err)
	}
	p.view.WorksheetChanged()
	return c, nil
}

func (p *Presenter) AppendCell(input string) (*worksheet.Cell, error) {
	return p.InsertCell(p.worksheet.Len(), input)
}

// DeleteCell removes a cell. Output still arriving for it is dropped.
func (p *Presenter) DeleteCell(id string) error {
	c, err := p.worksheet.Cell(id)
	if err != nil {
		return p.fail("Delete failed", err)
	}
	if _, err := p.worksheet.Delete(c); err != nil {
		return p.fail("Delete failed", err)
	}
	p.view.WorksheetChanged()
	return nil
}

// RunCell clears the cell's output and submits its input for evaluation.
func (p *Presenter) RunCell(id string) error {
	c, err := p.worksheet.Cell(id)
	if err != nil {
		return p.fail("Run failed", err)
	}
	if c.Busy() {
		return p.fail("Run failed", fmt.Errorf("%w: %s", ErrCellBusy, id))
	}
	c.SetBusy(true)
	if err := p.model.Compute().Execute(c.ID(), c.Input()); err != nil {
		c.SetBusy(false)
		p.view.CellChanged(c)
		return p.fail("Run failed", err)
	}
	p.view.CellChanged(c)
	return nil
}

// RunAll runs every idle cell in display order.
func (p *Presenter) RunAll() error {
	for _, c := range p.worksheet.Cells() {
		if c.Busy() {
			continue
		}
		if err := p.RunCell(c.ID()); err != nil {
			return err
		}
	}
	return nil
}

// Interrupt cancels the evaluation in flight and reports whether there was one.
func (p *Presenter) Interrupt() bool {
	if p.model.Compute().Interrupt() {
		p.view.Notify("interrupted")
		return true
	}
	p.view.Notify("nothing is running")
	return false
}

// HandleEvent applies one compute event to the worksheet.
func (p *Presenter) HandleEvent(ev compute.Event) {
	c, err := p.worksheet.Cell(ev.CellID)
	if err != nil {
		p.logger.Debug("dropping event", "kind", ev.Kind, "cell", ev.CellID)
		return
	}
	switch ev.Kind {
	case compute.EventStdout:
		err = c.AccumulateStdout(ev.Text)
	case compute.EventStderr:
		err = c.AccumulateStderr(ev.Text)
	case compute.EventFinished:
		c.SetBusy(false)
		c.SetIndex(ev.Index)
	default:
		p.logger.Warn("unknown event", "kind", ev.Kind, "cell", ev.CellID)
		return
	}
	if err != nil {
		p.logger.Debug("dropping event", "kind", ev.Kind, "cell", ev.CellID, "err", err)
		return
	}
	p.view.CellChanged(c)
}

func (p *Presenter) Complete(prefix string) []string {
	return p.model.Compute().Complete(prefix, completionLimit)
}

// Save stores the worksheet under its name.
func (p *Presenter) Save(ctx context.Context) error {
	repo := p.model.Worksheets()
	if repo == nil {
		return p.fail("Save failed", ErrStorageDisabled)
	}
	if err := repo.Save(ctx, p.name, p.worksheet); err != nil {
		return p.fail("Save failed", err)
	}
	p.logger.Info("saved worksheet", "name", p.name, "cells", p.worksheet.Len())
	p.view.Notify("saved " + p.name)
	return nil
}

// Load replaces the worksheet with the one stored under name.
func (p *Presenter) Load(ctx context.Context, name string) error {
	repo := p.model.Worksheets()
	if repo == nil {
		return p.fail("Load failed", ErrStorageDisabled)
	}
	ws, err := repo.Load(ctx, name)
	if err != nil {
		return p.fail("Load failed", err)
	}
	p.worksheet = ws
	p.name = name
	p.view.WorksheetChanged()
	p.view.Notify("loaded " + name)
	return nil
}

// Worksheets lists the stored worksheets.
func (p *Presenter) Worksheets(ctx context.Context) ([]repository.WorksheetInfo, error) {
	repo := p.model.Worksheets()
	if repo == nil {
		return nil, ErrStorageDisabled
	}
	return repo.List(ctx)
}

// DeleteWorksheet removes a stored worksheet. The open worksheet stays
// open and is stored again on the next save.
func (p *Presenter) DeleteWorksheet(ctx context.Context, name string) error {
	repo := p.model.Worksheets()
	if repo == nil {
		return p.fail("Delete failed", ErrStorageDisabled)
	}
	if err := repo.Delete(ctx, name); err != nil {
		return p.fail("Delete failed", err)
	}
	p.view.Notify("deleted " + name)
	return nil
}

// Terminate saves the worksheet when storage is enabled and shuts the model down.
func (p *Presenter) Terminate(ctx context.Context) error {
	var saveErr error
	if repo := p.model.Worksheets(); repo != nil {
		if err := repo.Save(ctx, p.name, p.worksheet); err != nil {
			saveErr = fmt.Errorf("save worksheet %s: %w", p.name, err)
		}
	}
	return errors.Join(saveErr, p.model.Terminate())
}
