package embedder

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/dshills/patternfinder-mcp/internal/keyword"
)

// Feature weights for the local hashing model
const (
	unigramWeight = 1.0
	bigramWeight  = 0.5
	trigramWeight = 0.25
)

// LocalProvider is an offline, deterministic embedder based on signed feature
// hashing of terms, term bigrams and character trigrams. It needs no network
// and is always available unless disabled in configuration.
type LocalProvider struct {
	model     string
	dimension int
	disabled  bool
}

// NewLocalProvider creates a local embedder producing vectors of the given dimension
func NewLocalProvider(dimension int, disabled bool) *LocalProvider {
	if dimension <= 0 {
		dimension = LocalDimension
	}
	return &LocalProvider{
		model:     fmt.Sprintf("feature-hash-%d", dimension),
		dimension: dimension,
		disabled:  disabled,
	}
}

func (l *LocalProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	return generateOne(ctx, l, req)
}

func (l *LocalProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}

	embeddings := make([]*Embedding, len(req.Texts))
	for i, text := range req.Texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vector := l.embed(text)
		embeddings[i] = &Embedding{
			Vector:    vector,
			Dimension: l.dimension,
			Provider:  ProviderLocal,
			Model:     l.model,
			Hash:      ComputeHash(NormalizeText(text)),
		}
	}

	return &BatchEmbeddingResponse{
		Embeddings: embeddings,
		Provider:   ProviderLocal,
		Model:      l.model,
	}, nil
}

func (l *LocalProvider) embed(text string) []float32 {
	vector := make([]float32, l.dimension)
	terms := keyword.Normalize(text)

	for i, term := range terms {
		l.add(vector, term, unigramWeight)
		if i > 0 {
			l.add(vector, terms[i-1]+" "+term, bigramWeight)
		}
		padded := "#" + term + "#"
		runes := []rune(padded)
		for j := 0; j+3 <= len(runes); j++ {
			l.add(vector, "c:"+string(runes[j:j+3]), trigramWeight)
		}
	}

	return NormalizeVector(vector)
}

func (l *LocalProvider) add(vector []float32, feature string, weight float32) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()

	idx := int(sum % uint64(l.dimension))
	if sum>>63 == 1 {
		weight = -weight
	}
	vector[idx] += weight
}

func (l *LocalProvider) IsAvailable(ctx context.Context) bool {
	return !l.disabled
}

func (l *LocalProvider) Dimension() int {
	return l.dimension
}

func (l *LocalProvider) Provider() string {
	return ProviderLocal
}

func (l *LocalProvider) Model() string {
	return l.model
}

func (l *LocalProvider) Close() error {
	return nil
}
