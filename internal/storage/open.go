package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/dshills/patternfinder-mcp/internal/config"
	"github.com/dshills/patternfinder-mcp/pkg/types"
)

// Open creates the backend selected by cfg.Driver
func Open(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (Storage, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Driver {
	case "", "sqlite":
		path, err := expandPath(cfg.Path)
		if err != nil {
			return nil, err
		}
		s, err := NewSQLiteStorage(ctx, path)
		if err != nil {
			return nil, err
		}
		logger.Info("Database opened",
			zap.String("driver", DriverName),
			zap.String("build_mode", BuildMode),
			zap.String("path", path),
		)
		return s, nil
	case "postgres":
		if cfg.DSN == "" {
			return nil, &types.ConfigurationError{Field: "storage.dsn", Reason: "required for the postgres driver"}
		}
		return NewPostgresStorage(ctx, cfg.DSN, logger)
	default:
		return nil, &types.ConfigurationError{Field: "storage.driver", Reason: fmt.Sprintf("unknown driver %q", cfg.Driver)}
	}
}

// expandPath resolves a leading ~ and creates the parent directory
func expandPath(path string) (string, error) {
	if path == "" || path == ":memory:" || strings.HasPrefix(path, "file:") {
		if path == "" {
			path = ":memory:"
		}
		return path, nil
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to resolve home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", &types.StorageError{Op: "open", Err: fmt.Errorf("failed to create database directory: %w", err)}
	}
	return path, nil
}
