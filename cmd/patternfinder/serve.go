package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/patternfinder-mcp/internal/mcp"
	"github.com/dshills/patternfinder-mcp/internal/metrics"
	"github.com/dshills/patternfinder-mcp/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server on stdio",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	env, err := loadEnv()
	if err != nil {
		return err
	}
	defer env.close()

	ctx := cmd.Context()
	env.logger.Info("patternfinder MCP server starting",
		zap.String("version", version),
		zap.String("build_mode", storage.BuildMode),
		zap.String("driver", storage.DriverName),
		zap.Bool("vector_extension", storage.VectorExtensionAvailable))

	svc, err := env.services(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	if addr := env.cfg.Metrics.Addr; addr != "" {
		stop := serveMetrics(addr, env.metrics, env.logger)
		defer stop()
	}

	err = mcp.NewServer(svc).Serve(ctx)
	env.logger.Info("Server stopped")
	return err
}

// serveMetrics exposes /metrics on addr and returns a shutdown func
func serveMetrics(addr string, m *metrics.Metrics, logger *zap.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("Metrics listener started", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics listener failed", zap.Error(err))
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
