package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/steveyegge/slogan-gen/internal/api"
	"github.com/steveyegge/slogan-gen/internal/metrics"
)

// retentionInterval is how often the server prunes stored sessions.
const retentionInterval = time.Hour

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Long: `Serve the slogan generation HTTP API.

Endpoints:
  GET    /                          service info
  GET    /metrics                   Prometheus metrics
  GET    /api/v1/health             backend health
  GET    /api/v1/models             available models
  POST   /api/v1/slogans/generate   run a generation session
  GET    /api/v1/sessions           recorded sessions
  GET    /api/v1/sessions/{id}      one recorded session
  DELETE /api/v1/sessions/{id}      delete a recorded session`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.Addr = addr
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		prom := metrics.NewPrometheusCollector()
		svc, cleanup, err := openService(ctx, prom)
		if err != nil {
			return err
		}
		defer cleanup()

		router := api.NewRouter(api.Options{
			Service: svc,
			Version: version,
			Metrics: prom.Handler(),
			Logger:  logger,
		})

		srv := &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			// Generation requests may run up to the generation timeout
			WriteTimeout: cfg.GenerationTimeout() + 30*time.Second,
			IdleTimeout:  120 * time.Second,
		}

		go svc.RunRetention(ctx, retentionInterval)
		if _, err := svc.Prune(ctx); err != nil {
			logger.Warn("retention pass failed", "error", err)
		}

		done := make(chan os.Signal, 1)
		signal.Notify(done, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(done)

		serveErr := make(chan error, 1)
		go func() {
			logger.Info("server starting", "addr", cfg.Server.Addr, "backend", svc.Client().Backend().Name(),
				"model", svc.DefaultModel(), "store", cfg.Storage.Kind)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
			}
			close(serveErr)
		}()

		fmt.Printf("🌐 Serving on http://%s (Ctrl+C to stop)\n", cfg.Server.Addr)

		select {
		case err, ok := <-serveErr:
			if ok {
				return fmt.Errorf("server failed: %w", err)
			}
			return nil
		case <-done:
		case <-ctx.Done():
		}

		logger.Info("shutting down server")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		logger.Info("server stopped")
		return nil
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default: server.addr from config)")
	rootCmd.AddCommand(serveCmd)
}
