package embedder

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/dshills/patternfinder-mcp/internal/cache"
)

func BenchmarkComputeHash(b *testing.B) {
	texts := []string{
		"short",
		"medium length text for hashing",
		"this is a longer text that describes a typical design pattern with its intent, benefits and use cases",
	}

	for _, text := range texts {
		b.Run(fmt.Sprintf("len=%d", len(text)), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				_ = ComputeHash(text)
			}
		})
	}
}

func BenchmarkLocalProvider(b *testing.B) {
	p := NewLocalProvider(LocalDimension, false)
	ctx := context.Background()
	text := "Ensure a class has only a single instance and provide a global point of access to it"

	b.Run("single", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_, _ = p.GenerateEmbedding(ctx, EmbeddingRequest{Text: text})
		}
	})

	b.Run("batch-20", func(b *testing.B) {
		texts := make([]string, 20)
		for i := range texts {
			texts[i] = fmt.Sprintf("%s %d", text, i)
		}
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			_, _ = p.GenerateBatch(ctx, BatchEmbeddingRequest{Texts: texts})
		}
	})
}

func BenchmarkGeneratorCached(b *testing.B) {
	c := cache.New[string, *Embedding](cache.Options{Enabled: true, Size: 1000, TTL: time.Hour})
	gen := NewGenerator(NewLocalProvider(LocalDimension, false), Options{Cache: c})
	ctx := context.Background()
	_, _ = gen.GenerateEmbedding(ctx, "observer pattern")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = gen.GenerateEmbedding(ctx, "observer pattern")
	}
}

func BenchmarkNormalizeVector(b *testing.B) {
	v := make([]float32, 1024)
	for i := range v {
		v[i] = float32(i)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = NormalizeVector(v)
	}
}
