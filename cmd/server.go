package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/terabiome/stackbuilder/internal/config"
	"github.com/terabiome/stackbuilder/internal/handler"
	"github.com/terabiome/stackbuilder/internal/preflight"
	"github.com/terabiome/stackbuilder/internal/routes"
	"github.com/terabiome/stackbuilder/pkg/executor"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"
)

func runServer(ctx context.Context, cfg *config.Config, log *slog.Logger, address string) error {
	log.Info("initializing HTTP server", slog.String("address", address))

	reg, err := initRegistry(cfg, log)
	if err != nil {
		return err
	}

	checker := preflight.NewChecker(executor.NewLocal(log), cfg.Shell, cfg.TempDir, log)

	// Initialize handlers
	handlers := routes.Handlers{
		Node:      handler.NewNode(reg, log),
		Info:      handler.NewInfo(reg),
		Preflight: handler.NewPreflight(checker, preflightTargets(cfg), log),
	}

	ready := atomic.NewBool(false)
	router := routes.SetupMux(handlers, ready, log)

	// Provisioning runs for minutes, so there is no write timeout.
	server := &http.Server{
		Addr:              address,
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("HTTP server starting", slog.String("address", address), slog.Int("nodes", len(reg.List())))
		ready.Store(true)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		ready.Store(false)
		log.Info("shutting down HTTP server")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		// Nodes stay deployed when the host stops.
		reg.Close(shutdownCtx)
		log.Info("HTTP server stopped")
		return nil
	})

	return g.Wait()
}
