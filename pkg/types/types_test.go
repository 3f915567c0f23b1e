package types

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatternValidate(t *testing.T) {
	valid := Pattern{ID: "singleton", Name: "Singleton", Category: "creational", Complexity: ComplexityLow}

	tests := []struct {
		name    string
		mutate  func(p *Pattern)
		wantErr string
	}{
		{"valid", func(p *Pattern) {}, ""},
		{"empty complexity allowed", func(p *Pattern) { p.Complexity = "" }, ""},
		{"missing id", func(p *Pattern) { p.ID = " " }, "id"},
		{"missing name", func(p *Pattern) { p.Name = "" }, "name"},
		{"missing category", func(p *Pattern) { p.Category = "" }, "category"},
		{"unknown complexity", func(p *Pattern) { p.Complexity = "extreme" }, "complexity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			err := p.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestPatternEmbeddingText(t *testing.T) {
	p := Pattern{
		Name:        " Observer ",
		Category:    "behavioral",
		Description: "Notify dependents of state changes.",
		UseCases:    []string{"Event buses", "Data binding"},
		Tags:        []string{"events", "publish-subscribe"},
	}

	text := p.EmbeddingText()
	assert.Equal(t, "name: Observer\ncategory: behavioral\ndescription: Notify dependents of state changes.\n"+
		"use cases: Event buses; Data binding\ntags: events, publish-subscribe", text)
	assert.NotContains(t, text, "benefits:")

	p.Benefits = []string{"Loose coupling"}
	assert.Contains(t, p.EmbeddingText(), "benefits: Loose coupling")
}

func TestPatternHasLanguage(t *testing.T) {
	p := Pattern{Languages: []string{"Go", "java"}}
	assert.True(t, p.HasLanguage("go"))
	assert.True(t, p.HasLanguage("JAVA"))
	assert.False(t, p.HasLanguage("rust"))
	assert.False(t, (&Pattern{}).HasLanguage("go"))
}

func TestPatternEmbeddingValidate(t *testing.T) {
	e := PatternEmbedding{PatternID: "singleton", Vector: make([]float32, 384), Dimension: 384}
	assert.NoError(t, e.Validate())

	e.Dimension = 256
	err := e.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDimensionMismatch))

	var dm *DimensionMismatchError
	require.True(t, errors.As(err, &dm))
	assert.Equal(t, 256, dm.Expected)
	assert.Equal(t, 384, dm.Got)

	assert.Error(t, (&PatternEmbedding{Vector: []float32{1}, Dimension: 1}).Validate())
	assert.Error(t, (&PatternEmbedding{PatternID: "x"}).Validate())
}

func TestPatternEmbeddingClone(t *testing.T) {
	orig := &PatternEmbedding{PatternID: "observer", Vector: []float32{1, 2, 3}, Dimension: 3}
	cp := orig.Clone()
	cp.Vector[0] = 42
	assert.Equal(t, float32(1), orig.Vector[0])
	assert.Equal(t, orig.PatternID, cp.PatternID)
	assert.Nil(t, (*PatternEmbedding)(nil).Clone())
}

func TestErrorKinds(t *testing.T) {
	kinds := []error{ErrValidation, ErrConfiguration, ErrProvider, ErrDimensionMismatch, ErrStorage}

	tests := []struct {
		name string
		err  error
		kind error
	}{
		{"validation", &ValidationError{Field: "query", Reason: "empty"}, ErrValidation},
		{"configuration", &ConfigurationError{Field: "weights", Reason: "sum"}, ErrConfiguration},
		{"provider", &ProviderError{Provider: "openai", Err: errors.New("401")}, ErrProvider},
		{"dimension", &DimensionMismatchError{Expected: 384, Got: 256}, ErrDimensionMismatch},
		{"storage", &StorageError{Op: "list", Err: errors.New("locked")}, ErrStorage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("find patterns: %w", tt.err)
			for _, kind := range kinds {
				assert.Equal(t, kind == tt.kind, errors.Is(wrapped, kind), "kind %v", kind)
			}
		})
	}
}

func TestProviderErrorMessageAndUnwrap(t *testing.T) {
	err := &ProviderError{Provider: "jina", Transient: true, Exhausted: true, Attempts: 3, Err: context.DeadlineExceeded}
	assert.Equal(t, "embedding provider jina failed (transient, exhausted after 3 attempts): context deadline exceeded", err.Error())
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	permanent := &ProviderError{Provider: "openai", Err: errors.New("invalid key")}
	assert.True(t, strings.HasSuffix(permanent.Error(), "(permanent): invalid key"))
}

func TestStorageErrorUnwrap(t *testing.T) {
	err := &StorageError{Op: "get pattern", Err: ErrNotFound}
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(err, ErrStorage))
	assert.Equal(t, "storage error: get pattern: not found", err.Error())
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(&ProviderError{Transient: true}))
	assert.False(t, IsTransient(&ProviderError{Transient: true, Exhausted: true}))
	assert.False(t, IsTransient(&ProviderError{}))
	assert.False(t, IsTransient(errors.New("plain")))
	assert.False(t, IsTransient(nil))
}

func TestDimensionMismatchMessage(t *testing.T) {
	assert.Equal(t, "embedding dimension mismatch: expected 384, got 256",
		(&DimensionMismatchError{Expected: 384, Got: 256}).Error())
	assert.Equal(t, "embedding dimension mismatch for pattern singleton: expected 384, got 256",
		(&DimensionMismatchError{PatternID: "singleton", Expected: 384, Got: 256}).Error())
}

func TestRecommendationValidate(t *testing.T) {
	p := &Pattern{ID: "singleton"}
	r := Recommendation{Rank: 1, Pattern: p, Scores: CandidateScore{Final: 0.7, Confidence: 0.6}}
	assert.NoError(t, r.Validate())

	bad := r
	bad.Rank = 0
	assert.ErrorIs(t, bad.Validate(), ErrInvalidRank)

	bad = r
	bad.Pattern = nil
	assert.ErrorIs(t, bad.Validate(), ErrInvalidPatternID)

	bad = r
	bad.Scores.Confidence = 1.2
	assert.ErrorIs(t, bad.Validate(), ErrInvalidRelevanceScore)
}

func TestSearchResultValidate(t *testing.T) {
	tests := []struct {
		name    string
		result  SearchResult
		wantErr error
	}{
		{"valid", SearchResult{PatternID: "observer", Rank: 1, Score: 0.5}, nil},
		{"missing id", SearchResult{Rank: 1, Score: 0.5}, ErrInvalidPatternID},
		{"zero rank", SearchResult{PatternID: "observer", Score: 0.5}, ErrInvalidRank},
		{"negative score", SearchResult{PatternID: "observer", Rank: 2, Score: -0.1}, ErrInvalidRelevanceScore},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.result.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
