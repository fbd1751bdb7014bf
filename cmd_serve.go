package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-ask/pkg/handlers"
	"github.com/ekaya-inc/ekaya-ask/pkg/mcp"
	"github.com/ekaya-inc/ekaya-ask/pkg/middleware"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve /api/ask, /mcp and health endpoints over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	askService, ds, err := a.openAskService(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := ds.Close(); err != nil {
			a.logger.Warn("Failed to close datasource", zap.Error(err))
		}
	}()

	mux := http.NewServeMux()
	handlers.NewHealthHandler(a.cfg, ds, a.logger).RegisterRoutes(mux)
	handlers.NewAskHandler(askService, a.logger).RegisterRoutes(mux)
	if a.cfg.MCP.Enabled {
		mcpServer := mcp.NewAskServer(a.cfg.Version, askService, ds, a.logger)
		handlers.NewMCPHandler(mcpServer, a.logger).RegisterRoutes(mux)
	}

	addr := net.JoinHostPort(a.cfg.BindAddr, a.cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           middleware.RequestLogger(a.logger)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("Starting ekaya-ask",
			zap.String("addr", addr),
			zap.String("version", a.cfg.Version),
			zap.String("env", a.cfg.Env),
			zap.Bool("mcp", a.cfg.MCP.Enabled))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}
