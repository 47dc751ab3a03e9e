package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"fumble-backend/internal/bootstrap"
	"fumble-backend/internal/shared/server"
	"fumble-backend/internal/shared/telemetry"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API.

Routes:
  POST /analyze   multipart upload, field "image"
  GET  /          liveness banner
  GET  /health    provider and model in use
  GET  /usage     daily quota snapshot for the caller
  GET  /metrics   Prometheus text format

Examples:
  fumble serve
  fumble serve --port 3000`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if servePort != "" {
			cfg.Port = servePort
		}

		app, err := bootstrap.Build(cfg)
		if err != nil {
			return err
		}
		defer app.Close()

		go app.Limiter.RunJanitor(cmd.Context(), sweepEvery, sweepEvery)
		go app.UsageService.RunJanitor(cmd.Context(), sweepEvery)

		srv := &http.Server{
			Addr:              server.Addr(cfg.Port),
			Handler:           app.Router,
			ReadHeaderTimeout: 10 * time.Second,
		}
		return runHTTP(cmd.Context(), srv)
	},
}

func runHTTP(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		telemetry.Info("server.listening", map[string]any{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	telemetry.Info("server.shutting_down", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		telemetry.Error("server.shutdown_failed", map[string]any{"error": err})
		return err
	}
	return nil
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "port to listen on (overrides PORT)")

	rootCmd.AddCommand(serveCmd)
}
