package embedder

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dshills/patternfinder-mcp/internal/cache"
	"github.com/dshills/patternfinder-mcp/internal/config"
	"github.com/dshills/patternfinder-mcp/internal/metrics"
	"github.com/dshills/patternfinder-mcp/pkg/types"
)

// DefaultBatchSize is used when a non-positive batch size is configured
const DefaultBatchSize = 20

// cacheName labels the embedding cache in metrics
const cacheName = "embedding"

// Options configures a Generator
type Options struct {
	BatchSize    int
	Retry        RetryConfig
	CallTimeout  time.Duration // Whole GenerateEmbeddings call; zero means none
	BatchTimeout time.Duration // Each provider batch including retries; zero means none
	Cache        *cache.Cache[string, *Embedding]
	Metrics      *metrics.Metrics
	Logger       *zap.Logger
}

// OptionsFromConfig maps embedding configuration onto generator options
func OptionsFromConfig(cfg config.EmbeddingConfig) Options {
	return Options{
		BatchSize: cfg.BatchSize,
		Retry: RetryConfig{
			Attempts: cfg.RetryAttempts,
			Delay:    cfg.RetryDelay,
		},
		CallTimeout:  cfg.CallTimeout,
		BatchTimeout: cfg.BatchTimeout,
	}
}

// NewEmbeddingCache builds the memoization cache for query embeddings
func NewEmbeddingCache(cfg config.CacheConfig, m *metrics.Metrics) *cache.Cache[string, *Embedding] {
	return cache.New[string, *Embedding](cache.Options{
		Name:    cacheName,
		Enabled: cfg.Enabled,
		Size:    cfg.Size,
		TTL:     cfg.TTL,
		Metrics: m,
	})
}

// Result is the outcome of a GenerateEmbeddings call
type Result struct {
	Embeddings []*Embedding // Same order as the input texts
	Provider   string
	Model      string
	Dimension  int
}

// Vectors returns the raw vectors in input order
func (r *Result) Vectors() [][]float32 {
	out := make([][]float32, len(r.Embeddings))
	for i, e := range r.Embeddings {
		out[i] = e.Vector
	}
	return out
}

// Generator drives the selected provider: it batches input, retries transient
// failures and memoizes results per (model, normalized text).
type Generator struct {
	provider Embedder
	opts     Options
	cache    *cache.Cache[string, *Embedding]
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewGenerator wraps provider with batching, retry and caching
func NewGenerator(provider Embedder, opts Options) *Generator {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Retry.Attempts <= 0 {
		opts.Retry = DefaultRetryConfig()
	}
	c := opts.Cache
	if c == nil {
		c = cache.Disabled[string, *Embedding]()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Generator{
		provider: provider,
		opts:     opts,
		cache:    c,
		metrics:  opts.Metrics,
		logger:   logger,
	}
}

// Provider returns the selected provider name
func (g *Generator) Provider() string { return g.provider.Provider() }

// Model returns the selected model
func (g *Generator) Model() string { return g.provider.Model() }

// Dimension returns the provider's nominal dimension
func (g *Generator) Dimension() int { return g.provider.Dimension() }

// Cache exposes the memoization cache for status reporting
func (g *Generator) Cache() *cache.Cache[string, *Embedding] { return g.cache }

// Close releases the provider
func (g *Generator) Close() error { return g.provider.Close() }

// GenerateEmbedding embeds a single text
func (g *Generator) GenerateEmbedding(ctx context.Context, text string) (*Embedding, error) {
	res, err := g.GenerateEmbeddings(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return res.Embeddings[0], nil
}

// GenerateEmbeddings embeds texts in batches. If any batch fails the whole call
// fails and no embeddings are returned.
func (g *Generator) GenerateEmbeddings(ctx context.Context, texts []string) (*Result, error) {
	if err := ValidateBatchRequest(BatchEmbeddingRequest{Texts: texts}); err != nil {
		return nil, &types.ValidationError{Field: "texts", Reason: err.Error()}
	}

	if g.opts.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.opts.CallTimeout)
		defer cancel()
	}

	useCache := g.cache.Enabled() && !cache.Bypassed(ctx)
	model := g.provider.Model()

	results := make([]*Embedding, len(texts))
	pending := make([]int, 0, len(texts))
	for i, text := range texts {
		if useCache {
			if emb, ok := g.cache.Get(cacheKey(model, text)); ok {
				results[i] = emb.Clone()
				continue
			}
		}
		pending = append(pending, i)
	}

	for start := 0; start < len(pending); start += g.opts.BatchSize {
		end := start + g.opts.BatchSize
		if end > len(pending) {
			end = len(pending)
		}
		idx := pending[start:end]

		batch := make([]string, len(idx))
		for j, i := range idx {
			batch[j] = texts[i]
		}

		embeddings, err := g.runBatch(ctx, batch)
		if err != nil {
			g.logger.Warn("embedding batch failed",
				zap.String("provider", g.provider.Provider()),
				zap.Int("batch_start", start),
				zap.Int("batch_size", len(batch)),
				zap.Error(err))
			return nil, err
		}

		for j, i := range idx {
			results[i] = embeddings[j]
			if useCache {
				g.cache.Set(cacheKey(model, texts[i]), embeddings[j].Clone())
			}
		}
	}

	dim := len(results[0].Vector)
	for i, e := range results {
		if len(e.Vector) != dim {
			return nil, &types.DimensionMismatchError{Expected: dim, Got: len(results[i].Vector)}
		}
	}

	return &Result{
		Embeddings: results,
		Provider:   g.provider.Provider(),
		Model:      model,
		Dimension:  dim,
	}, nil
}

func (g *Generator) runBatch(ctx context.Context, batch []string) ([]*Embedding, error) {
	if g.opts.BatchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.opts.BatchTimeout)
		defer cancel()
	}

	name := g.provider.Provider()
	resp, err := retryTransient(ctx, name, g.opts.Retry,
		func() { g.metrics.ProviderAttempt(name) },
		func(ctx context.Context) (*BatchEmbeddingResponse, error) {
			resp, err := g.provider.GenerateBatch(ctx, BatchEmbeddingRequest{Texts: batch})
			if err == nil && len(resp.Embeddings) != len(batch) {
				err = fmt.Errorf("%w: got %d embeddings for %d texts", ErrMalformedResponse, len(resp.Embeddings), len(batch))
			}
			if err != nil {
				g.metrics.ProviderFailure(name, failureKind(err))
			}
			return resp, err
		})
	if err != nil {
		return nil, err
	}
	return resp.Embeddings, nil
}

// cacheKey scopes the content hash to the model that produced the vector
func cacheKey(model, text string) string {
	return model + ":" + ComputeHash(NormalizeText(text))
}
