package embedder

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/patternfinder-mcp/internal/config"
)

// fakeSelector builds stubs whose availability is looked up by kind
func fakeSelector(cfg config.EmbeddingConfig, available map[ProviderKind]bool, probed *[]ProviderKind) *Selector {
	s := NewSelector(cfg, nil)
	s.build = func(ctx context.Context, kind ProviderKind) (Embedder, error) {
		*probed = append(*probed, kind)
		stub := newStub()
		stub.name = string(kind)
		stub.available = available[kind]
		return stub, nil
	}
	return s
}

func TestParseKind(t *testing.T) {
	kind, err := ParseKind(" OpenAI ")
	require.NoError(t, err)
	assert.Equal(t, KindOpenAI, kind)

	_, err = ParseKind("cohere")
	assert.True(t, errors.Is(err, ErrUnknownProvider))
}

func TestSelectorPrefersLocal(t *testing.T) {
	var probed []ProviderKind
	cfg := config.Default().Embedding
	s := fakeSelector(cfg, map[ProviderKind]bool{KindLocal: true, KindOpenAI: true}, &probed)

	p, err := s.Select(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ProviderLocal, p.Provider())
	assert.Equal(t, []ProviderKind{KindLocal}, probed)
}

func TestSelectorFallsBackInPriorityOrder(t *testing.T) {
	var probed []ProviderKind
	cfg := config.Default().Embedding
	s := fakeSelector(cfg, map[ProviderKind]bool{KindJina: true, KindGemini: true}, &probed)

	p, err := s.Select(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ProviderJina, p.Provider())
	// Each candidate probed exactly once, in order
	assert.Equal(t, []ProviderKind{KindLocal, KindOllama, KindOpenAI, KindJina}, probed)
}

func TestSelectorCustomPriority(t *testing.T) {
	var probed []ProviderKind
	cfg := config.Default().Embedding
	cfg.Priority = []string{"gemini", "local"}
	s := fakeSelector(cfg, map[ProviderKind]bool{KindLocal: true, KindGemini: true}, &probed)

	p, err := s.Select(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ProviderGemini, p.Provider())
}

func TestSelectorPinnedProvider(t *testing.T) {
	var probed []ProviderKind
	cfg := config.Default().Embedding
	cfg.Provider = "openai"
	s := fakeSelector(cfg, map[ProviderKind]bool{KindLocal: true}, &probed)

	_, err := s.Select(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoProviderEnabled))
	assert.Equal(t, []ProviderKind{KindOpenAI}, probed)
}

func TestSelectorNoneAvailable(t *testing.T) {
	var probed []ProviderKind
	s := fakeSelector(config.Default().Embedding, nil, &probed)

	_, err := s.Select(context.Background())
	assert.True(t, errors.Is(err, ErrNoProviderEnabled))
	assert.Len(t, probed, len(DefaultPriority))
}

func TestSelectorUnknownPriorityEntry(t *testing.T) {
	cfg := config.Default().Embedding
	cfg.Priority = []string{"local", "bogus"}

	_, err := NewSelector(cfg, nil).Priority()
	assert.True(t, errors.Is(err, ErrUnknownProvider))
}

func TestSelectorRealProviders(t *testing.T) {
	// Without API keys and with local disabled, remote providers are skipped
	cfg := config.Default().Embedding
	cfg.Priority = []string{"local", "openai", "jina", "gemini"}

	p, err := NewSelector(cfg, nil).Select(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ProviderLocal, p.Provider())
	assert.Equal(t, LocalDimension, p.Dimension())

	cfg.Local.Disabled = true
	_, err = NewSelector(cfg, nil).Select(context.Background())
	assert.True(t, errors.Is(err, ErrNoProviderEnabled))
}
