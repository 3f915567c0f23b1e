// Package keyword scores patterns by lexical overlap with a query.
//
// Query and pattern text are normalized into term sets. Each query term
// contributes the weight of the heaviest pattern field that contains it, and
// the sum is scaled into [0,1]. Scoring is deterministic and makes no
// external calls.
package keyword

import (
	"sort"
	"strings"

	"github.com/dshills/patternfinder-mcp/pkg/types"
)

// Field identifies a scored pattern field
type Field string

const (
	FieldName        Field = "name"
	FieldTags        Field = "tags"
	FieldDescription Field = "description"
	FieldUseCases    Field = "use_cases"
	FieldBenefits    Field = "benefits"
)

// fieldOrder lists fields from heaviest to lightest
var fieldOrder = []Field{FieldName, FieldTags, FieldDescription, FieldUseCases, FieldBenefits}

// Weights maps each field to its contribution per matched term
type Weights map[Field]float64

// DefaultWeights ranks name above tags above description
func DefaultWeights() Weights {
	return Weights{
		FieldName:        3.0,
		FieldTags:        2.0,
		FieldDescription: 1.0,
		FieldUseCases:    0.5,
		FieldBenefits:    0.5,
	}
}

func (w Weights) max() float64 {
	var m float64
	for _, v := range w {
		if v > m {
			m = v
		}
	}
	return m
}

// Match is the keyword score of one pattern
type Match struct {
	PatternID    string
	Score        float64 // In [0,1]
	MatchedTerms []string
	Fields       []Field // Fields that contributed, heaviest first
}

// Engine scores patterns against queries
type Engine struct {
	weights Weights
	maxW    float64
}

// New creates an engine. Nil weights use DefaultWeights.
func New(weights Weights) *Engine {
	if len(weights) == 0 {
		weights = DefaultWeights()
	}
	return &Engine{weights: weights, maxW: weights.max()}
}

// index holds the normalized term sets of one pattern
type index map[Field]map[string]struct{}

func buildIndex(p *types.Pattern) index {
	idx := make(index, len(fieldOrder))
	idx[FieldName] = termSet(p.Name)
	idx[FieldTags] = termSet(strings.Join(append([]string{p.Category}, p.Tags...), " "))
	idx[FieldDescription] = termSet(p.Description)
	idx[FieldUseCases] = termSet(strings.Join(p.UseCases, " "))
	idx[FieldBenefits] = termSet(strings.Join(p.Benefits, " "))
	return idx
}

func termSet(text string) map[string]struct{} {
	terms := Normalize(text)
	set := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		set[t] = struct{}{}
	}
	return set
}

// Score computes the keyword score of p for already-normalized query terms.
// Duplicate terms should be removed by the caller (see Terms).
func (e *Engine) Score(terms []string, p *types.Pattern) Match {
	return e.score(terms, p, buildIndex(p))
}

func (e *Engine) score(terms []string, p *types.Pattern, idx index) Match {
	m := Match{PatternID: p.ID}
	if len(terms) == 0 || e.maxW == 0 {
		return m
	}

	contributed := make(map[Field]bool)
	var total float64
	for _, term := range terms {
		best := 0.0
		var bestField Field
		for _, f := range fieldOrder {
			w := e.weights[f]
			if w <= best {
				continue
			}
			if _, ok := idx[f][term]; ok {
				best = w
				bestField = f
			}
		}
		if best > 0 {
			total += best
			m.MatchedTerms = append(m.MatchedTerms, term)
			contributed[bestField] = true
		}
	}

	for _, f := range fieldOrder {
		if contributed[f] {
			m.Fields = append(m.Fields, f)
		}
	}

	m.Score = total / (float64(len(terms)) * e.maxW)
	if m.Score > 1 {
		m.Score = 1
	}
	return m
}

// ScoreAll scores every pattern and returns matches keyed by pattern ID.
// Patterns with no matching term are omitted.
func (e *Engine) ScoreAll(query string, patterns []types.Pattern) map[string]Match {
	terms := Terms(query)
	out := make(map[string]Match)
	for i := range patterns {
		p := &patterns[i]
		m := e.score(terms, p, buildIndex(p))
		if m.Score > 0 {
			out[p.ID] = m
		}
	}
	return out
}

// Rank returns the top k matches ordered by score descending, ties broken by
// ascending pattern ID. k <= 0 returns all matches.
func (e *Engine) Rank(query string, patterns []types.Pattern, k int) []Match {
	scored := e.ScoreAll(query, patterns)
	out := make([]Match, 0, len(scored))
	for _, m := range scored {
		out = append(out, m)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].PatternID < out[j].PatternID
	})

	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out
}
