package main

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/terabiome/stackbuilder/internal/config"
	"github.com/terabiome/stackbuilder/internal/preflight"
	"github.com/terabiome/stackbuilder/pkg/executor"
)

// runPreflight checks the shell, the temp dir and the scripts of every
// configured node without running them.
func runPreflight(ctx context.Context, cfg *config.Config, log *slog.Logger, format string) error {
	checker := preflight.NewChecker(executor.NewLocal(log), cfg.Shell, cfg.TempDir, log)

	s := newSpinner(format, "Checking provisioning prerequisites...")
	report := checker.Run(ctx, preflightTargets(cfg))
	s.Stop()

	if err := printPreflight(os.Stdout, format, report); err != nil {
		return err
	}
	if !report.Ready {
		return errors.New("host is not ready to provision")
	}
	return nil
}
