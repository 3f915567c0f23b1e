package embedder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/patternfinder-mcp/internal/cache"
	"github.com/dshills/patternfinder-mcp/internal/config"
	"github.com/dshills/patternfinder-mcp/internal/metrics"
	"github.com/dshills/patternfinder-mcp/pkg/types"
)

// stubProvider returns queued errors first, then deterministic vectors
type stubProvider struct {
	mu        sync.Mutex
	name      string
	model     string
	dim       int
	failures  []error
	calls     int
	batches   [][]string
	available bool
	delay     time.Duration
	drop      int // Embeddings left off each successful response
}

func newStub(failures ...error) *stubProvider {
	return &stubProvider{name: "stub", model: "stub-model", dim: 4, failures: failures, available: true}
}

func (s *stubProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	return generateOne(ctx, s, req)
}

func (s *stubProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	s.mu.Lock()
	s.calls++
	var err error
	if len(s.failures) > 0 {
		err = s.failures[0]
		s.failures = s.failures[1:]
	}
	if err == nil {
		s.batches = append(s.batches, append([]string(nil), req.Texts...))
	}
	delay := s.delay
	drop := s.drop
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	if err != nil {
		return nil, err
	}

	out := make([]*Embedding, len(req.Texts))
	for i, text := range req.Texts {
		v := make([]float32, s.dim)
		v[len(text)%s.dim] = 1
		out[i] = &Embedding{Vector: v, Dimension: s.dim, Provider: s.name, Model: s.model}
	}
	if drop > len(out) {
		drop = len(out)
	}
	return &BatchEmbeddingResponse{Embeddings: out[:len(out)-drop], Provider: s.name, Model: s.model}, nil
}

func (s *stubProvider) IsAvailable(ctx context.Context) bool { return s.available }
func (s *stubProvider) Dimension() int                       { return s.dim }
func (s *stubProvider) Provider() string                     { return s.name }
func (s *stubProvider) Model() string                        { return s.model }
func (s *stubProvider) Close() error                         { return nil }

func (s *stubProvider) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func transientErr() error {
	return &httpStatusError{StatusCode: 503, Body: "overloaded"}
}

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{Attempts: attempts, Delay: time.Millisecond}
}

func TestGeneratorRetriesTransientThenSucceeds(t *testing.T) {
	stub := newStub(transientErr(), transientErr())
	gen := NewGenerator(stub, Options{Retry: fastRetry(3)})

	res, err := gen.GenerateEmbeddings(context.Background(), []string{"observer"})
	require.NoError(t, err)

	assert.Equal(t, 3, stub.callCount())
	require.Len(t, res.Embeddings, 1)
	assert.Equal(t, "stub", res.Provider)
	assert.Equal(t, "stub-model", res.Model)
	assert.Equal(t, 4, res.Dimension)
}

func TestGeneratorExhaustsTransientRetries(t *testing.T) {
	stub := newStub(transientErr(), transientErr())
	gen := NewGenerator(stub, Options{Retry: fastRetry(2)})

	res, err := gen.GenerateEmbeddings(context.Background(), []string{"observer"})
	require.Error(t, err)
	assert.Nil(t, res)

	var pe *types.ProviderError
	require.True(t, errors.As(err, &pe))
	assert.True(t, pe.Transient)
	assert.True(t, pe.Exhausted)
	assert.Equal(t, 2, pe.Attempts)
	assert.True(t, errors.Is(err, types.ErrProvider))
	assert.Equal(t, 2, stub.callCount())
}

func TestGeneratorPermanentFailureNotRetried(t *testing.T) {
	stub := newStub(&httpStatusError{StatusCode: 401, Body: "bad key"})
	gen := NewGenerator(stub, Options{Retry: fastRetry(5)})

	_, err := gen.GenerateEmbeddings(context.Background(), []string{"observer"})
	require.Error(t, err)

	var pe *types.ProviderError
	require.True(t, errors.As(err, &pe))
	assert.False(t, pe.Transient)
	assert.False(t, pe.Exhausted)
	assert.Equal(t, 1, stub.callCount())
}

func TestGeneratorBatching(t *testing.T) {
	stub := newStub()
	gen := NewGenerator(stub, Options{BatchSize: 2, Retry: fastRetry(1)})

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	res, err := gen.GenerateEmbeddings(context.Background(), texts)
	require.NoError(t, err)

	require.Len(t, res.Embeddings, len(texts))
	assert.Equal(t, [][]string{{"a", "bb"}, {"ccc", "dddd"}, {"eeeee"}}, stub.batches)

	// Order preserved
	for i, text := range texts {
		assert.Equal(t, float32(1), res.Embeddings[i].Vector[len(text)%4])
	}
}

func TestGeneratorFailedBatchFailsWholeCall(t *testing.T) {
	// First batch succeeds, second fails permanently
	stub := newStub()
	gen := NewGenerator(stub, Options{BatchSize: 1, Retry: fastRetry(1)})

	_, err := gen.GenerateEmbeddings(context.Background(), []string{"ok"})
	require.NoError(t, err)

	stub.mu.Lock()
	stub.failures = []error{nil, fmt.Errorf("%w: garbage", ErrMalformedResponse)}
	stub.mu.Unlock()

	res, err := gen.GenerateEmbeddings(context.Background(), []string{"first", "second", "third"})
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Equal(t, 3, stub.callCount())
}

func TestGeneratorShortResponseReportsAttempts(t *testing.T) {
	stub := newStub(transientErr())
	stub.drop = 1
	gen := NewGenerator(stub, Options{Retry: fastRetry(3)})

	_, err := gen.GenerateEmbeddings(context.Background(), []string{"observer", "strategy"})
	require.Error(t, err)

	var pe *types.ProviderError
	require.True(t, errors.As(err, &pe))
	assert.True(t, errors.Is(err, ErrMalformedResponse))
	assert.False(t, pe.Transient)
	assert.Equal(t, 2, pe.Attempts)
	assert.Equal(t, 2, stub.callCount())
}

func TestGeneratorRejectsEmptyText(t *testing.T) {
	gen := NewGenerator(newStub(), Options{})

	_, err := gen.GenerateEmbeddings(context.Background(), []string{"ok", " "})
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrValidation))

	_, err = gen.GenerateEmbeddings(context.Background(), nil)
	assert.True(t, errors.Is(err, types.ErrValidation))
}

func TestGeneratorCache(t *testing.T) {
	m := metrics.New()
	c := cache.New[string, *Embedding](cache.Options{Name: cacheName, Enabled: true, Size: 10, TTL: time.Minute, Metrics: m})
	stub := newStub()
	gen := NewGenerator(stub, Options{Retry: fastRetry(1), Cache: c, Metrics: m})
	ctx := context.Background()

	first, err := gen.GenerateEmbedding(ctx, "Single Instance")
	require.NoError(t, err)
	assert.Equal(t, 1, stub.callCount())

	// Normalized text hits the cache
	second, err := gen.GenerateEmbedding(ctx, "  single   instance ")
	require.NoError(t, err)
	assert.Equal(t, 1, stub.callCount())
	assert.Equal(t, first.Vector, second.Vector)

	// Mutating a returned vector never pollutes the cache
	second.Vector[0] = 42
	third, err := gen.GenerateEmbedding(ctx, "single instance")
	require.NoError(t, err)
	assert.NotEqual(t, float32(42), third.Vector[0])

	stats := c.Stats()
	assert.Equal(t, uint64(2), stats.Hits)
	assert.Equal(t, 1, stats.Entries)

	t.Run("mixed hits only send misses", func(t *testing.T) {
		_, err := gen.GenerateEmbeddings(ctx, []string{"single instance", "factory"})
		require.NoError(t, err)
		assert.Equal(t, []string{"factory"}, stub.batches[len(stub.batches)-1])
	})

	t.Run("bypass skips reads and writes", func(t *testing.T) {
		before := stub.callCount()
		entries := c.Len()

		_, err := gen.GenerateEmbeddings(cache.WithBypass(ctx), []string{"single instance", "bulk only"})
		require.NoError(t, err)
		assert.Equal(t, before+1, stub.callCount())
		assert.Equal(t, entries, c.Len())
	})
}

func TestGeneratorBatchTimeout(t *testing.T) {
	stub := newStub()
	stub.delay = 200 * time.Millisecond
	gen := NewGenerator(stub, Options{Retry: fastRetry(2), BatchTimeout: 20 * time.Millisecond})

	start := time.Now()
	_, err := gen.GenerateEmbeddings(context.Background(), []string{"slow"})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 150*time.Millisecond)

	var pe *types.ProviderError
	require.True(t, errors.As(err, &pe))
	assert.True(t, pe.Transient)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestGeneratorCallerCancellation(t *testing.T) {
	stub := newStub()
	stub.delay = time.Second
	gen := NewGenerator(stub, Options{Retry: fastRetry(3)})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := gen.GenerateEmbeddings(ctx, []string{"slow"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 1, stub.callCount())
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Default().Embedding
	cfg.RetryAttempts = 4
	cfg.RetryDelay = 2 * time.Second

	opts := OptionsFromConfig(cfg)
	assert.Equal(t, cfg.BatchSize, opts.BatchSize)
	assert.Equal(t, RetryConfig{Attempts: 4, Delay: 2 * time.Second}, opts.Retry)
	assert.Equal(t, cfg.CallTimeout, opts.CallTimeout)
	assert.Equal(t, cfg.BatchTimeout, opts.BatchTimeout)
}

func TestNewGeneratorDefaults(t *testing.T) {
	gen := NewGenerator(newStub(), Options{})
	assert.Equal(t, DefaultBatchSize, gen.opts.BatchSize)
	assert.Equal(t, DefaultRetryConfig(), gen.opts.Retry)
	assert.False(t, gen.Cache().Enabled())
}
