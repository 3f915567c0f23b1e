package embedder

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeHash(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "empty string",
			text: "",
			want: "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		},
		{
			name: "simple text",
			text: "hello world",
			want: "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeHash(tt.text))
		})
	}

	assert.Equal(t, ComputeHash("test"), ComputeHash("test"))
}

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "manage a single instance", NormalizeText("  Manage   a\tSingle\ninstance "))
	assert.Equal(t, NormalizeText("Observer Pattern"), NormalizeText("observer   pattern"))
}

func TestValidateRequest(t *testing.T) {
	assert.NoError(t, ValidateRequest(EmbeddingRequest{Text: "test text"}))
	assert.ErrorIs(t, ValidateRequest(EmbeddingRequest{Text: ""}), ErrEmptyText)
	assert.ErrorIs(t, ValidateRequest(EmbeddingRequest{Text: "   "}), ErrEmptyText)
}

func TestValidateBatchRequest(t *testing.T) {
	tests := []struct {
		name    string
		texts   []string
		wantErr error
	}{
		{"valid batch", []string{"text1", "text2"}, nil},
		{"empty batch", []string{}, ErrInvalidInput},
		{"nil batch", nil, ErrInvalidInput},
		{"batch with empty text", []string{"text1", "", "text3"}, ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBatchRequest(BatchEmbeddingRequest{Texts: tt.texts})
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.wantErr))
		})
	}
}

func TestNormalizeVector(t *testing.T) {
	t.Run("unit length", func(t *testing.T) {
		got := NormalizeVector([]float32{3, 4})
		assert.InDelta(t, 0.6, got[0], 1e-6)
		assert.InDelta(t, 0.8, got[1], 1e-6)
	})

	t.Run("zero vector unchanged", func(t *testing.T) {
		v := []float32{0, 0, 0}
		assert.Equal(t, v, NormalizeVector(v))
	})

	t.Run("input not mutated", func(t *testing.T) {
		v := []float32{1, 1}
		_ = NormalizeVector(v)
		assert.Equal(t, []float32{1, 1}, v)
	})
}

func TestEmbeddingClone(t *testing.T) {
	orig := &Embedding{Vector: []float32{1, 2}, Dimension: 2, Model: "m"}
	cp := orig.Clone()
	cp.Vector[0] = 9
	assert.Equal(t, float32(1), orig.Vector[0])
	assert.Nil(t, (*Embedding)(nil).Clone())
}

func TestLocalProvider(t *testing.T) {
	ctx := context.Background()
	p := NewLocalProvider(LocalDimension, false)

	t.Run("metadata", func(t *testing.T) {
		assert.Equal(t, ProviderLocal, p.Provider())
		assert.Equal(t, LocalDimension, p.Dimension())
		assert.Equal(t, "feature-hash-384", p.Model())
		assert.True(t, p.IsAvailable(ctx))
		assert.NoError(t, p.Close())
	})

	t.Run("deterministic unit vectors", func(t *testing.T) {
		a, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "ensure a class has a single instance"})
		require.NoError(t, err)
		b, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "ensure a class has a single instance"})
		require.NoError(t, err)

		assert.Equal(t, a.Vector, b.Vector)
		assert.Len(t, a.Vector, LocalDimension)
		assert.Equal(t, LocalDimension, a.Dimension)
		assert.InDelta(t, 1.0, norm(a.Vector), 1e-5)
	})

	t.Run("related texts are closer", func(t *testing.T) {
		resp, err := p.GenerateBatch(ctx, BatchEmbeddingRequest{Texts: []string{
			"manage single instance of a resource",
			"ensure only a single instance of a shared resource exists",
			"notify subscribers when an event is published",
		}})
		require.NoError(t, err)
		require.Len(t, resp.Embeddings, 3)

		query := resp.Embeddings[0].Vector
		near := dot(query, resp.Embeddings[1].Vector)
		far := dot(query, resp.Embeddings[2].Vector)
		assert.Greater(t, near, far)
	})

	t.Run("empty text rejected", func(t *testing.T) {
		_, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: ""})
		assert.ErrorIs(t, err, ErrEmptyText)
	})

	t.Run("disabled provider unavailable", func(t *testing.T) {
		assert.False(t, NewLocalProvider(0, true).IsAvailable(ctx))
	})

	t.Run("custom dimension", func(t *testing.T) {
		small := NewLocalProvider(256, false)
		emb, err := small.GenerateEmbedding(ctx, EmbeddingRequest{Text: "observer"})
		require.NoError(t, err)
		assert.Len(t, emb.Vector, 256)
	})
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func norm(v []float32) float64 {
	return math.Sqrt(dot(v, v))
}
