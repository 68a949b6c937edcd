package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/mateforge/mateauth/internal/config"
	"github.com/mateforge/mateauth/internal/logging"
)

// Run is the entrypoint used by cmd/mateauth. It returns an error instead of
// calling os.Exit so deferred cleanup runs.
func Run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logging.New(os.Stdout, cfg.LogLevel, logging.Format(cfg.LogFormat))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := New(ctx, cfg, log)
	if err != nil {
		return err
	}
	return a.Run(ctx)
}
