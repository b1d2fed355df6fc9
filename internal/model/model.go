// Package model is the data side of the application: configuration, the
// compute service and worksheet storage.
package model

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jask/notebook/internal/compute"
	"github.com/jask/notebook/internal/config"
	"github.com/jask/notebook/internal/database"
	"github.com/jask/notebook/internal/database/repository"
	"github.com/jask/notebook/internal/worksheet"
)

// Owner is the presenter holding this model. The model keeps the reference
// but never drives it.
type Owner interface {
	Worksheet() *worksheet.Worksheet
}

type Model struct {
	owner   Owner
	logger  *slog.Logger
	config  config.Config
	compute *compute.Service

	db         *sql.DB
	worksheets *repository.WorksheetRepo
}

// New builds the compute service and, when cfg.Database.Path is set, opens
// the worksheet store.
func New(owner Owner, cfg config.Config, logger *slog.Logger) (*Model, error) {
	svc, err := compute.NewService(cfg.Compute, logger)
	if err != nil {
		return nil, fmt.Errorf("compute: %w", err)
	}
	m := &Model{
		owner:   owner,
		logger:  logger,
		config:  cfg,
		compute: svc,
	}

	if path := strings.TrimSpace(cfg.Database.Path); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			_ = svc.Close()
			return nil, fmt.Errorf("mkdir db dir: %w", err)
		}
		db, err := database.OpenMigrated(path)
		if err != nil {
			_ = svc.Close()
			return nil, err
		}
		m.db = db
		m.worksheets = repository.NewWorksheetRepo(db)
	}
	return m, nil
}

func (m *Model) Owner() Owner { return m.owner }

func (m *Model) Config() config.Config { return m.config }

func (m *Model) Compute() *compute.Service { return m.compute }

// Worksheets is nil when storage is disabled.
func (m *Model) Worksheets() *repository.WorksheetRepo { return m.worksheets }

// RPCClients lists the clients the main loop has to drain.
func (m *Model) RPCClients() []*compute.Client {
	return []*compute.Client{m.compute.Client()}
}

// Start launches the compute worker.
func (m *Model) Start(ctx context.Context) {
	m.compute.Start(ctx)
}

// Terminate releases the compute service and the store. Called once at shutdown.
func (m *Model) Terminate() error {
	var errs []error
	if err := m.compute.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close compute: %w", err))
	}
	if m.db != nil {
		if err := m.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close db: %w", err))
		}
	}
	return errors.Join(errs...)
}

// SageInstallation describes the Sage installation at root, or the one
// found on PATH when root is empty.
func (m *Model) SageInstallation(root string) (compute.Installation, error) {
	return compute.FindInstallation(root)
}
