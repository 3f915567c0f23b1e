package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/patternfinder-mcp/internal/config"
	"github.com/dshills/patternfinder-mcp/internal/logging"
	"github.com/dshills/patternfinder-mcp/internal/mcp"
	"github.com/dshills/patternfinder-mcp/internal/metrics"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var (
	flagConfig   string
	flagLogLevel string
)

var rootCmd = &cobra.Command{
	Use:          "patternfinder",
	Short:        "Design pattern recommendations over MCP",
	SilenceUsage: true,
	Long: `patternfinder ranks design patterns against a free-text problem description
using semantic similarity and keyword matching, and serves the results to
AI assistants over the Model Context Protocol.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", config.DefaultPath, "Path to the YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Override the configured log level (debug, info, warn, error)")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runtimeEnv holds what every command needs before touching storage
type runtimeEnv struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func loadEnv() (*runtimeEnv, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("cannot load config: %w", err)
	}
	if flagLogLevel != "" {
		cfg.Logging.Level = flagLogLevel
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("cannot build logger: %w", err)
	}
	return &runtimeEnv{cfg: cfg, logger: logger, metrics: metrics.New()}, nil
}

func (e *runtimeEnv) services(ctx context.Context) (*mcp.Services, error) {
	return mcp.NewServices(ctx, e.cfg, e.logger, e.metrics)
}

func (e *runtimeEnv) close() {
	_ = e.logger.Sync()
}
