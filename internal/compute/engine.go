package compute

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/jask/notebook/internal/config"
)

// Engine evaluates cell source. Implementations need not be safe for
// concurrent Eval calls; the service runs one job at a time.
type Engine interface {
	Name() string
	Eval(ctx context.Context, code string, stdout, stderr io.Writer) error
	// Names lists identifiers offered for completion.
	Names() []string
	Close() error
}

// NewEngine builds the engine selected by cfg.Engine.
func NewEngine(cfg config.ComputeConfig, logger *slog.Logger) (Engine, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Engine)) {
	case "", "starlark":
		return NewStarlarkEngine(), nil
	case "process":
		if len(cfg.Command) == 0 {
			return nil, fmt.Errorf("compute: process engine needs compute.command")
		}
		return NewProcessEngine("process", cfg.Command), nil
	case "sage":
		inst, err := FindInstallation(cfg.SageRoot)
		if err != nil {
			return nil, err
		}
		logger.Info("using sage installation", "root", inst.Root, "version", inst.Version)
		return NewProcessEngine("sage", inst.Command()), nil
	}
	return nil, fmt.Errorf("compute: unknown engine %q", cfg.Engine)
}
