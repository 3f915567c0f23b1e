package types

import (
	"errors"
	"strings"
	"time"
)

// Complexity describes how hard a pattern is to apply
type Complexity string

const (
	ComplexityLow    Complexity = "low"
	ComplexityMedium Complexity = "medium"
	ComplexityHigh   Complexity = "high"
)

// Valid reports whether c is a known complexity tier
func (c Complexity) Valid() bool {
	switch c {
	case ComplexityLow, ComplexityMedium, ComplexityHigh:
		return true
	}
	return false
}

// Pattern is a design-pattern catalog entry
type Pattern struct {
	ID          string
	Name        string
	Category    string
	Description string

	// Structured text fields
	Benefits  []string
	Drawbacks []string
	UseCases  []string

	Complexity Complexity
	Tags       []string
	Languages  []string // Languages with idiomatic examples, optional

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks the pattern has the fields the pipeline relies on
func (p *Pattern) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return errors.New("pattern id cannot be empty")
	}
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("pattern name cannot be empty")
	}
	if strings.TrimSpace(p.Category) == "" {
		return errors.New("pattern category cannot be empty")
	}
	if p.Complexity != "" && !p.Complexity.Valid() {
		return errors.New("pattern complexity must be low, medium or high")
	}
	return nil
}

// EmbeddingText returns the canonical text used to embed the pattern.
// Any change to the fields included here requires regenerating embeddings.
func (p *Pattern) EmbeddingText() string {
	parts := []string{
		"name: " + strings.TrimSpace(p.Name),
		"category: " + strings.TrimSpace(p.Category),
		"description: " + strings.TrimSpace(p.Description),
	}
	if len(p.UseCases) > 0 {
		parts = append(parts, "use cases: "+strings.Join(p.UseCases, "; "))
	}
	if len(p.Benefits) > 0 {
		parts = append(parts, "benefits: "+strings.Join(p.Benefits, "; "))
	}
	if len(p.Tags) > 0 {
		parts = append(parts, "tags: "+strings.Join(p.Tags, ", "))
	}
	return strings.Join(parts, "\n")
}

// HasLanguage reports whether the pattern lists the given language (case-insensitive)
func (p *Pattern) HasLanguage(lang string) bool {
	for _, l := range p.Languages {
		if strings.EqualFold(l, lang) {
			return true
		}
	}
	return false
}
