package types

import (
	"errors"
	"time"
)

// PatternEmbedding is the persisted vector representation of a pattern
type PatternEmbedding struct {
	PatternID string
	Vector    []float32
	Dimension int
	Model     string // Model identifier, e.g. "text-embedding-3-small"
	Strategy  string // Provider that produced the vector, e.g. "openai"
	CreatedAt time.Time
}

// Validate enforces len(Vector) == Dimension
func (e *PatternEmbedding) Validate() error {
	if e.PatternID == "" {
		return errors.New("embedding pattern id cannot be empty")
	}
	if e.Dimension <= 0 {
		return errors.New("embedding dimension must be positive")
	}
	if len(e.Vector) != e.Dimension {
		return &DimensionMismatchError{PatternID: e.PatternID, Expected: e.Dimension, Got: len(e.Vector)}
	}
	return nil
}

// Clone returns a deep copy so callers can't mutate shared vectors
func (e *PatternEmbedding) Clone() *PatternEmbedding {
	if e == nil {
		return nil
	}
	out := *e
	out.Vector = make([]float32, len(e.Vector))
	copy(out.Vector, e.Vector)
	return &out
}
