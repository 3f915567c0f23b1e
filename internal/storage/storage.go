package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dshills/patternfinder-mcp/pkg/types"
)

// ErrNotFound is returned when a requested pattern or embedding doesn't exist
var ErrNotFound = types.ErrNotFound

// Catalog provides read access to pattern records, plus upsert for ingestion
type Catalog interface {
	GetPattern(ctx context.Context, id string) (*types.Pattern, error)
	ListPatterns(ctx context.Context) ([]types.Pattern, error)
	ListByCategory(ctx context.Context, categories ...string) ([]types.Pattern, error)
	UpsertPattern(ctx context.Context, pattern *types.Pattern) error
}

// EmbeddingStore persists one embedding per pattern.
// Upserts replace the stored record atomically; readers never see a partial vector.
type EmbeddingStore interface {
	GetEmbedding(ctx context.Context, patternID string) (*types.PatternEmbedding, error)
	ListEmbeddings(ctx context.Context) ([]types.PatternEmbedding, error)
	UpsertEmbedding(ctx context.Context, embedding *types.PatternEmbedding) error
	// UpsertEmbeddings writes all embeddings in a single transaction
	UpsertEmbeddings(ctx context.Context, embeddings []types.PatternEmbedding) error
	DeleteEmbedding(ctx context.Context, patternID string) error
}

// Storage is a complete backend
type Storage interface {
	Catalog
	EmbeddingStore

	Status(ctx context.Context) (*Status, error)
	Close() error
}

// Status contains statistics about the stored catalog
type Status struct {
	Driver          string
	BuildMode       string
	SchemaVersion   string
	PatternCount    int
	EmbeddingCount  int
	Models          map[string]int // Embedding count per model
	Dimensions      map[int]int    // Embedding count per dimension
	VectorExtension string         // sqlite-vec version, empty when not loaded
	SizeMB          float64
	LastEmbeddedAt  time.Time
}

// Missing returns how many patterns have no embedding
func (s *Status) Missing() int {
	if s.PatternCount < s.EmbeddingCount {
		return 0
	}
	return s.PatternCount - s.EmbeddingCount
}

// wrap converts a driver error into a *types.StorageError.
// Not-found and validation errors pass through unchanged.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, types.ErrNotFound) || errors.Is(err, types.ErrValidation) {
		return err
	}
	var se *types.StorageError
	if errors.As(err, &se) {
		return err
	}
	return &types.StorageError{Op: op, Err: err}
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
}

// validateEmbedding rejects records that would break the length == dimension invariant
func validateEmbedding(e *types.PatternEmbedding) error {
	if err := e.Validate(); err != nil {
		return &types.ValidationError{Field: "embedding", Reason: err.Error()}
	}
	return nil
}

func validatePattern(p *types.Pattern) error {
	if err := p.Validate(); err != nil {
		return &types.ValidationError{Field: "pattern", Reason: err.Error()}
	}
	return nil
}
