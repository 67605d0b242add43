package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/kplus/internal/server"
	"github.com/hyperjump/kplus/internal/watcher"
)

func serverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "Start the HTTP API and watch the configured inbox directories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, resolvedConfigPath, logger, err := setup(cmd, true)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			logger.Info("config loaded",
				zap.String("config_path", resolvedConfigPath),
				zap.Bool("debug", cfg.Debug),
			)

			components, err := initializeComponents(cfg, logger)
			if err != nil {
				return err
			}
			defer components.Close()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			watchSvc := watcher.NewWatcher(
				cfg.Watch.Directories,
				cfg.Watch.Extensions,
				cfg.Watch.RecursiveOrDefault(),
				components.Indexer,
				watcher.WithLogger(logger),
			)
			if err := watchSvc.Start(ctx); err != nil {
				return err
			}
			defer watchSvc.Stop()
			go watchSvc.SyncExistingFiles()

			srv := server.NewServer(
				components.Engine,
				components.Indexer,
				components.Storage,
				components.Pipeline,
				cfg,
				logger,
				watchSvc,
				resolvedConfigPath,
			)
			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			logger.Info("shutting down")
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			return srv.Stop(shutdownCtx)
		},
	}
}
