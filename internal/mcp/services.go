package mcp

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/dshills/patternfinder-mcp/internal/config"
	"github.com/dshills/patternfinder-mcp/internal/embedder"
	"github.com/dshills/patternfinder-mcp/internal/indexer"
	"github.com/dshills/patternfinder-mcp/internal/logging"
	"github.com/dshills/patternfinder-mcp/internal/metrics"
	"github.com/dshills/patternfinder-mcp/internal/recommender"
	"github.com/dshills/patternfinder-mcp/internal/storage"
)

// Services holds the application components shared by the MCP tools and the CLI
type Services struct {
	Config      *config.Config
	Store       storage.Storage
	Generator   *embedder.Generator
	Recommender *recommender.Recommender
	Indexer     *indexer.Indexer
	Metrics     *metrics.Metrics
	Logger      *zap.Logger
}

// NewServices opens storage and selects an embedding provider from cfg
func NewServices(ctx context.Context, cfg *config.Config, logger *zap.Logger, m *metrics.Metrics) (*Services, error) {
	logger = logging.OrNop(logger)

	store, err := storage.Open(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	provider, err := embedder.NewSelector(cfg.Embedding, logger).Select(ctx)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	opts := embedder.OptionsFromConfig(cfg.Embedding)
	opts.Cache = embedder.NewEmbeddingCache(cfg.Cache, m)
	opts.Metrics = m
	opts.Logger = logger

	return Assemble(cfg, store, embedder.NewGenerator(provider, opts), logger, m), nil
}

// Assemble wires the recommender and indexer around an open store and generator.
// The generator is shared so query and bulk embeddings use the same model.
func Assemble(cfg *config.Config, store storage.Storage, gen *embedder.Generator, logger *zap.Logger, m *metrics.Metrics) *Services {
	logger = logging.OrNop(logger)

	rec := recommender.New(store, store, gen, cfg.Recommendation, recommender.Options{
		Logger:      logger.Named("recommender"),
		Metrics:     m,
		ResultCache: recommender.NewResultCache(cfg.Cache, m),
	})
	idx := indexer.New(store, store, gen, indexer.ConfigFromEmbedding(cfg.Embedding), m, logger.Named("indexer"))

	return &Services{
		Config:      cfg,
		Store:       store,
		Generator:   gen,
		Recommender: rec,
		Indexer:     idx,
		Metrics:     m,
		Logger:      logger,
	}
}

// Close releases the provider and the store
func (s *Services) Close() error {
	return errors.Join(s.Generator.Close(), s.Store.Close())
}
