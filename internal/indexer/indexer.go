package indexer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/patternfinder-mcp/internal/cache"
	"github.com/dshills/patternfinder-mcp/internal/config"
	"github.com/dshills/patternfinder-mcp/internal/embedder"
	"github.com/dshills/patternfinder-mcp/internal/metrics"
	"github.com/dshills/patternfinder-mcp/internal/storage"
	"github.com/dshills/patternfinder-mcp/pkg/types"
)

// ErrInProgress is returned when a regeneration run is already active
var ErrInProgress = errors.New("embedding regeneration already in progress")

const (
	defaultBatchSize   = 50
	defaultConcurrency = 2
)

// Generator produces embeddings for a batch of texts
type Generator interface {
	GenerateEmbeddings(ctx context.Context, texts []string) (*embedder.Result, error)
	Provider() string
	Model() string
}

// Scope selects which patterns a run embeds
type Scope string

const (
	ScopeAll     Scope = "all"     // Every pattern in the catalog
	ScopeMissing Scope = "missing" // Patterns without a stored embedding
	ScopeStale   Scope = "stale"   // Missing, or embedded with a different model
)

// ParseScope maps a user-supplied name onto a Scope; empty means ScopeAll
func ParseScope(name string) (Scope, error) {
	switch s := Scope(name); s {
	case "":
		return ScopeAll, nil
	case ScopeAll, ScopeMissing, ScopeStale:
		return s, nil
	default:
		return "", &types.ValidationError{Field: "scope", Reason: fmt.Sprintf("unknown scope %q", name)}
	}
}

// Config contains configuration for the indexer
type Config struct {
	BatchSize   int // Patterns per provider call and per transaction (default: 50)
	Concurrency int // Batches in flight (default: 2)
}

// ConfigFromEmbedding reads the bulk settings of cfg
func ConfigFromEmbedding(cfg config.EmbeddingConfig) Config {
	return Config{BatchSize: cfg.BulkBatchSize, Concurrency: cfg.BulkConcurrency}
}

// Options configures a single run
type Options struct {
	Scope    Scope
	Patterns []string // Restrict the run to these IDs; empty means the whole catalog
}

// Statistics contains statistics about a regeneration run
type Statistics struct {
	RunID     string
	Patterns  int // Patterns considered
	Embedded  int // Embeddings committed
	Skipped   int // Patterns left untouched by the scope
	Batches   int // Batches committed
	Model     string
	Provider  string
	Dimension int
	Duration  time.Duration
}

// Indexer regenerates stored pattern embeddings in bounded, pipelined batches
type Indexer struct {
	catalog    storage.Catalog
	embeddings storage.EmbeddingStore
	generator  Generator
	cfg        Config
	metrics    *metrics.Metrics
	logger     *zap.Logger

	lock IndexLock
}

// New creates a new Indexer instance
func New(catalog storage.Catalog, embeddings storage.EmbeddingStore, gen Generator, cfg Config, m *metrics.Metrics, logger *zap.Logger) *Indexer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Indexer{
		catalog:    catalog,
		embeddings: embeddings,
		generator:  gen,
		cfg:        cfg,
		metrics:    m,
		logger:     logger,
	}
}

// Running reports whether a regeneration run is active
func (idx *Indexer) Running() bool {
	return idx.lock.Held()
}

// RegenerateAll embeds the selected patterns and stores the vectors.
//
// Each batch is committed in its own transaction as soon as it completes.
// The first failing batch cancels the rest; batches committed before the
// failure are kept and reported in the returned statistics alongside the error.
// The embedding cache is bypassed for the whole run.
func (idx *Indexer) RegenerateAll(ctx context.Context, opts Options) (*Statistics, error) {
	if !idx.lock.TryAcquire() {
		return nil, ErrInProgress
	}
	defer idx.lock.Release()

	scope := opts.Scope
	if scope == "" {
		scope = ScopeAll
	}

	start := time.Now()
	stats := &Statistics{
		RunID:    uuid.NewString(),
		Model:    idx.generator.Model(),
		Provider: idx.generator.Provider(),
	}
	logger := idx.logger.With(zap.String("run_id", stats.RunID), zap.String("scope", string(scope)))

	patterns, err := idx.listPatterns(ctx, opts.Patterns)
	if err != nil {
		return nil, err
	}
	stats.Patterns = len(patterns)

	selected, err := idx.selectPatterns(ctx, patterns, scope)
	if err != nil {
		return nil, err
	}
	stats.Skipped = len(patterns) - len(selected)

	logger.Info("Embedding regeneration started",
		zap.Int("patterns", stats.Patterns),
		zap.Int("selected", len(selected)),
		zap.Int("batch_size", idx.cfg.BatchSize),
		zap.Int("concurrency", idx.cfg.Concurrency))

	err = idx.embedPatterns(cache.WithBypass(ctx), selected, stats)
	stats.Duration = time.Since(start)

	if err != nil {
		logger.Error("Embedding regeneration failed",
			zap.Int("embedded", stats.Embedded),
			zap.Int("batches", stats.Batches),
			zap.Error(err))
		return stats, err
	}

	logger.Info("Embedding regeneration complete",
		zap.Int("embedded", stats.Embedded),
		zap.Int("skipped", stats.Skipped),
		zap.Int("batches", stats.Batches),
		zap.Duration("duration", stats.Duration))
	return stats, nil
}

func (idx *Indexer) listPatterns(ctx context.Context, ids []string) ([]types.Pattern, error) {
	if len(ids) == 0 {
		patterns, err := idx.catalog.ListPatterns(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list patterns: %w", err)
		}
		return patterns, nil
	}

	patterns := make([]types.Pattern, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		p, err := idx.catalog.GetPattern(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load pattern %s: %w", id, err)
		}
		patterns = append(patterns, *p)
	}
	return patterns, nil
}

// selectPatterns applies scope against the stored embeddings
func (idx *Indexer) selectPatterns(ctx context.Context, patterns []types.Pattern, scope Scope) ([]types.Pattern, error) {
	if scope == ScopeAll {
		return patterns, nil
	}

	stored, err := idx.embeddings.ListEmbeddings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list embeddings: %w", err)
	}
	models := make(map[string]string, len(stored))
	for _, e := range stored {
		models[e.PatternID] = e.Model
	}

	model := idx.generator.Model()
	out := make([]types.Pattern, 0, len(patterns))
	for _, p := range patterns {
		have, ok := models[p.ID]
		switch {
		case !ok:
			out = append(out, p)
		case scope == ScopeStale && have != model:
			out = append(out, p)
		}
	}
	return out, nil
}

// embedPatterns runs at most cfg.Concurrency batches at once
func (idx *Indexer) embedPatterns(ctx context.Context, patterns []types.Pattern, stats *Statistics) error {
	if len(patterns) == 0 {
		return nil
	}

	var (
		embedded  atomic.Int32
		batches   atomic.Int32
		dimMu     sync.Mutex
		dimension int
	)

	// All batches of a run must agree on the vector dimension
	checkDimension := func(dim int) error {
		dimMu.Lock()
		defer dimMu.Unlock()
		if dimension == 0 {
			dimension = dim
			return nil
		}
		if dim != dimension {
			return &types.DimensionMismatchError{Expected: dimension, Got: dim}
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(idx.cfg.Concurrency)

	for i := 0; i < len(patterns); i += idx.cfg.BatchSize {
		if gctx.Err() != nil {
			break
		}
		end := i + idx.cfg.BatchSize
		if end > len(patterns) {
			end = len(patterns)
		}
		batch := patterns[i:end]
		batchNum := i/idx.cfg.BatchSize + 1

		g.Go(func() error {
			n, err := idx.embedBatch(gctx, batch, checkDimension)
			if err != nil {
				return fmt.Errorf("batch %d: %w", batchNum, err)
			}
			embedded.Add(int32(n))
			batches.Add(1)
			idx.metrics.EmbeddedPatterns(n)
			return nil
		})
	}

	err := g.Wait()
	stats.Embedded = int(embedded.Load())
	stats.Batches = int(batches.Load())
	stats.Dimension = dimension
	if err == nil {
		// Caller cancellation can stop scheduling without failing a batch
		err = ctx.Err()
	}
	return err
}

// embedBatch generates and commits one batch. Nothing is written once ctx is done.
func (idx *Indexer) embedBatch(ctx context.Context, batch []types.Pattern, checkDimension func(int) error) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	texts := make([]string, len(batch))
	for i := range batch {
		texts[i] = batch[i].EmbeddingText()
	}

	res, err := idx.generator.GenerateEmbeddings(ctx, texts)
	if err != nil {
		return 0, err
	}
	if len(res.Embeddings) != len(batch) {
		return 0, &types.ProviderError{
			Provider: res.Provider,
			Attempts: 1,
			Err:      fmt.Errorf("%w: got %d embeddings for %d patterns", embedder.ErrMalformedResponse, len(res.Embeddings), len(batch)),
		}
	}
	if err := checkDimension(res.Dimension); err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	records := make([]types.PatternEmbedding, len(batch))
	for i, e := range res.Embeddings {
		records[i] = types.PatternEmbedding{
			PatternID: batch[i].ID,
			Vector:    e.Vector,
			Dimension: len(e.Vector),
			Model:     res.Model,
			Strategy:  res.Provider,
			CreatedAt: now,
		}
	}

	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := idx.embeddings.UpsertEmbeddings(ctx, records); err != nil {
		return 0, err
	}
	return len(records), nil
}
