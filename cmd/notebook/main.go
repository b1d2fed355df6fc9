package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/jask/notebook/internal/app"
	"github.com/jask/notebook/internal/config"
	"github.com/jask/notebook/internal/logging"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := config.Flags()
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := config.Load(flags)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if save, _ := flags.GetBool("save-config"); save {
		if err := config.Save(cfg); err != nil {
			return fmt.Errorf("config: %w", err)
		}
		fmt.Printf("wrote %s\n", config.Path())
		return nil
	}
	backend, err := app.ParseBackend(cfg.UI.Backend)
	if err != nil {
		return err
	}

	// the text front-end owns the terminal
	var terminal io.Writer = os.Stderr
	if backend == app.BackendText {
		terminal = nil
	}
	logger, closer, err := logging.New(cfg.Log, terminal)
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	defer closer.Close()

	a, err := app.New(cfg, backend, logger)
	if err != nil {
		return err
	}

	debug, _ := flags.GetBool("debug")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.Run(ctx, debug)
}
