// Package vector ranks stored pattern embeddings by cosine similarity to a
// query embedding.
package vector

import (
	"math"
	"sort"

	"github.com/dshills/patternfinder-mcp/pkg/types"
)

// Cosine returns dot(a,b) / (|a|*|b|). A zero-norm vector yields 0.
// Vectors of different length fail with a *types.DimensionMismatchError.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, &types.DimensionMismatchError{Expected: len(a), Got: len(b)}
	}

	var dot, na, nb float64
	for i := range a {
		x := float64(a[i])
		y := float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}

	den := math.Sqrt(na) * math.Sqrt(nb)
	if den == 0 {
		return 0, nil
	}
	return dot / den, nil
}

// Normalize returns a new vector with unit L2 norm. A zero vector is copied unchanged.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	n := math.Sqrt(sum)
	if n == 0 {
		copy(out, v)
		return out
	}
	for i, x := range v {
		out[i] = float32(float64(x) / n)
	}
	return out
}

// Match is the similarity of one stored embedding to the query
type Match struct {
	PatternID  string
	Similarity float64 // Clamped into [0,1]
}

// Options control thresholding and truncation
type Options struct {
	Threshold float64 // Matches below this similarity are discarded
	K         int     // Maximum matches returned; 0 returns all
}

// Engine computes and ranks similarities
type Engine struct {
	opts Options
}

// New creates an engine with default options
func New(opts Options) *Engine {
	return &Engine{opts: opts}
}

// ScoreAll computes the clamped similarity of every candidate to query.
// It fails on the first candidate whose dimension differs from the query.
func (e *Engine) ScoreAll(query []float32, candidates []types.PatternEmbedding) (map[string]float64, error) {
	out := make(map[string]float64, len(candidates))
	for i := range candidates {
		c := &candidates[i]
		if len(c.Vector) != len(query) {
			return nil, &types.DimensionMismatchError{PatternID: c.PatternID, Expected: len(query), Got: len(c.Vector)}
		}
		sim, err := Cosine(query, c.Vector)
		if err != nil {
			return nil, err
		}
		out[c.PatternID] = clamp(sim)
	}
	return out, nil
}

// Rank returns candidates at or above the threshold ordered by similarity
// descending, ties broken by ascending pattern ID.
func (e *Engine) Rank(query []float32, candidates []types.PatternEmbedding) ([]Match, error) {
	return e.RankWith(query, candidates, e.opts)
}

// RankWith is Rank with per-call options
func (e *Engine) RankWith(query []float32, candidates []types.PatternEmbedding, opts Options) ([]Match, error) {
	scores, err := e.ScoreAll(query, candidates)
	if err != nil {
		return nil, err
	}

	matches := make([]Match, 0, len(scores))
	for id, sim := range scores {
		if sim < opts.Threshold {
			continue
		}
		matches = append(matches, Match{PatternID: id, Similarity: sim})
	}

	SortMatches(matches)

	if opts.K > 0 && len(matches) > opts.K {
		matches = matches[:opts.K]
	}
	return matches, nil
}

// SortMatches orders matches by similarity descending, then pattern ID ascending
func SortMatches(matches []Match) {
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].PatternID < matches[j].PatternID
	})
}

// clamp maps cosine similarity into [0,1]; opposed vectors score 0
func clamp(sim float64) float64 {
	switch {
	case sim < 0 || math.IsNaN(sim):
		return 0
	case sim > 1:
		return 1
	}
	return sim
}
