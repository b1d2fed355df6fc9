package compute

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"
)

// CodePlaceholder in a command argument is replaced by the cell source.
// Without it the source is fed on stdin.
const CodePlaceholder = "{code}"

// ProcessEngine runs every cell in a fresh external process. No state
// survives between cells.
type ProcessEngine struct {
	name    string
	command []string
}

func NewProcessEngine(name string, command []string) *ProcessEngine {
	return &ProcessEngine{name: name, command: command}
}

func (p *ProcessEngine) Name() string { return p.name }

func (p *ProcessEngine) Eval(ctx context.Context, code string, stdout, stderr io.Writer) error {
	args := make([]string, 0, len(p.command))
	inline := false
	for _, a := range p.command {
		if strings.Contains(a, CodePlaceholder) {
			a = strings.ReplaceAll(a, CodePlaceholder, code)
			inline = true
		}
		args = append(args, a)
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	if !inline {
		cmd.Stdin = strings.NewReader(code)
	}
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = time.Second
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return context.Cause(ctx)
		}
		return fmt.Errorf("%s: %w", p.name, err)
	}
	return nil
}

func (p *ProcessEngine) Names() []string { return nil }

func (p *ProcessEngine) Close() error { return nil }
