package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Octrafic/api-factory/internal/core/auth"
	"github.com/Octrafic/api-factory/internal/infra/logger"
	"github.com/Octrafic/api-factory/internal/infra/storage"
	"github.com/Octrafic/api-factory/internal/pipeline"
	"github.com/Octrafic/api-factory/internal/server"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API that processes uploaded workbooks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if serveAddr != "" {
			cfg.Server.Addr = serveAddr
		}

		artifacts, err := storage.NewArtifactStore(cfg.Storage.ArtifactsDir)
		if err != nil {
			return err
		}
		tasks, err := storage.OpenTaskStore(cfg.Storage.TaskStore, cfg.Storage.DSN, artifacts.Root())
		if err != nil {
			return err
		}
		defer func() {
			if err := tasks.Close(); err != nil {
				logger.Warn("Failed to close task store", logger.Err(err))
			}
		}()

		provider, err := auth.New(cfg.Auth)
		if err != nil {
			return fmt.Errorf("invalid auth configuration: %w", err)
		}

		runner := pipeline.NewRunner(tasks, artifacts)
		srv := server.New(runner, tasks, artifacts, server.Options{
			Addr:           cfg.Server.Addr,
			AllowedOrigins: cfg.Server.AllowedOrigins,
			MaxUploadBytes: cfg.MaxUploadBytes(),
			Auth:           provider,
		})

		logger.Info("Server configured",
			logger.String("artifacts_dir", artifacts.Root()),
			logger.String("task_store", cfg.Storage.TaskStore),
			logger.String("auth", provider.Type()))

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		logger.Info("Shutting down", logger.Duration("timeout", cfg.Server.ShutdownTimeout))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down: %w", err)
		}
		return <-errCh
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides server.addr)")
}
