package recommender

import (
	"math"
	"sort"

	"github.com/dshills/patternfinder-mcp/pkg/types"
)

// dominanceRatio is how much larger one weighted signal must be to dominate
const dominanceRatio = 1.5

// merge combines the signals that ran into a final score and confidence.
//
// With both signals, agreement = 1 - |semantic - keyword| and
// confidence = final * (0.5 + 0.5*agreement). A single signal has no
// agreement, so its confidence is half its score.
func merge(id string, semantic, kw float64, semanticRan, keywordRan bool, w types.Weights) types.CandidateScore {
	cs := types.CandidateScore{PatternID: id, Semantic: semantic, Keyword: kw}

	var agreement float64
	switch {
	case semanticRan && keywordRan:
		cs.Final = w.Semantic*semantic + w.Keyword*kw
		agreement = 1 - math.Abs(semantic-kw)
	case semanticRan:
		cs.Final = semantic
	case keywordRan:
		cs.Final = kw
	}

	cs.Final = clampUnit(cs.Final)
	cs.Confidence = confidence(cs.Final, agreement)
	return cs
}

// confidence is non-decreasing in both final and agreement
func confidence(final, agreement float64) float64 {
	return clampUnit(final * (0.5 + 0.5*clampUnit(agreement)))
}

func clampUnit(v float64) float64 {
	switch {
	case v < 0 || math.IsNaN(v):
		return 0
	case v > 1:
		return 1
	}
	return v
}

// sortCandidates orders by final score descending, ties by ascending pattern ID
func sortCandidates(cands []types.CandidateScore) {
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].Final != cands[j].Final {
			return cands[i].Final > cands[j].Final
		}
		return cands[i].PatternID < cands[j].PatternID
	})
}

// dominantSignal names the signal that contributed most to a score
func dominantSignal(cs types.CandidateScore, semanticRan, keywordRan bool, w types.Weights) types.Signal {
	switch {
	case semanticRan && !keywordRan:
		return types.SignalSemantic
	case keywordRan && !semanticRan:
		return types.SignalKeyword
	}

	sem := cs.Semantic * w.Semantic
	kw := cs.Keyword * w.Keyword
	switch {
	case sem >= dominanceRatio*kw:
		return types.SignalSemantic
	case kw >= dominanceRatio*sem:
		return types.SignalKeyword
	}
	return types.SignalBoth
}
