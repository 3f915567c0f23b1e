package embedder

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/dshills/patternfinder-mcp/internal/config"
)

// ProviderKind enumerates the supported embedding providers
type ProviderKind string

const (
	KindLocal  ProviderKind = ProviderLocal
	KindOllama ProviderKind = ProviderOllama
	KindOpenAI ProviderKind = ProviderOpenAI
	KindJina   ProviderKind = ProviderJina
	KindGemini ProviderKind = ProviderGemini
)

// DefaultPriority prefers offline providers, then remote APIs
var DefaultPriority = []ProviderKind{KindLocal, KindOllama, KindOpenAI, KindJina, KindGemini}

// ParseKind converts a configured provider name into a ProviderKind
func ParseKind(name string) (ProviderKind, error) {
	switch kind := ProviderKind(strings.ToLower(strings.TrimSpace(name))); kind {
	case KindLocal, KindOllama, KindOpenAI, KindJina, KindGemini:
		return kind, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
}

// NewProvider constructs the provider of the given kind from configuration
func NewProvider(ctx context.Context, kind ProviderKind, cfg config.EmbeddingConfig) (Embedder, error) {
	switch kind {
	case KindLocal:
		return NewLocalProvider(cfg.Local.Dimension, cfg.Local.Disabled), nil
	case KindOllama:
		return NewOllamaProvider(cfg.Ollama.Endpoint, cfg.Ollama.Model, cfg.Ollama.Dimension, cfg.CallTimeout), nil
	case KindOpenAI:
		return NewOpenAIProvider(restOptions(cfg.OpenAI, cfg)), nil
	case KindJina:
		return NewJinaProvider(restOptions(cfg.Jina, cfg)), nil
	case KindGemini:
		return NewGeminiProvider(ctx, restOptions(cfg.Gemini, cfg))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, kind)
	}
}

func restOptions(rc config.RemoteConfig, cfg config.EmbeddingConfig) RESTOptions {
	return RESTOptions{
		APIKey:    rc.APIKey,
		Model:     rc.Model,
		BaseURL:   rc.BaseURL,
		Dimension: rc.Dimension,
		Timeout:   cfg.CallTimeout,
	}
}

// Selector resolves which provider serves embedding requests.
// Each candidate's availability is probed once per Select call.
type Selector struct {
	cfg    config.EmbeddingConfig
	logger *zap.Logger
	build  func(ctx context.Context, kind ProviderKind) (Embedder, error)
}

// NewSelector creates a selector for the given configuration
func NewSelector(cfg config.EmbeddingConfig, logger *zap.Logger) *Selector {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Selector{cfg: cfg, logger: logger}
	s.build = func(ctx context.Context, kind ProviderKind) (Embedder, error) {
		return NewProvider(ctx, kind, s.cfg)
	}
	return s
}

// Priority returns the order in which providers are tried
func (s *Selector) Priority() ([]ProviderKind, error) {
	if s.cfg.Provider != "" {
		kind, err := ParseKind(s.cfg.Provider)
		if err != nil {
			return nil, err
		}
		return []ProviderKind{kind}, nil
	}
	if len(s.cfg.Priority) == 0 {
		return DefaultPriority, nil
	}

	kinds := make([]ProviderKind, 0, len(s.cfg.Priority))
	for _, name := range s.cfg.Priority {
		kind, err := ParseKind(name)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}

// Select returns the first available provider in priority order.
// Providers probed and rejected are closed.
func (s *Selector) Select(ctx context.Context) (Embedder, error) {
	kinds, err := s.Priority()
	if err != nil {
		return nil, err
	}

	for _, kind := range kinds {
		provider, err := s.build(ctx, kind)
		if err != nil {
			s.logger.Warn("embedding provider construction failed",
				zap.String("provider", string(kind)),
				zap.Error(err))
			continue
		}
		if !provider.IsAvailable(ctx) {
			s.logger.Debug("embedding provider unavailable", zap.String("provider", string(kind)))
			_ = provider.Close()
			continue
		}

		s.logger.Info("selected embedding provider",
			zap.String("provider", provider.Provider()),
			zap.String("model", provider.Model()),
			zap.Int("dimension", provider.Dimension()))
		return provider, nil
	}

	return nil, fmt.Errorf("%w: tried %v", ErrNoProviderEnabled, kinds)
}
