package recommender

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/patternfinder-mcp/pkg/types"
)

var defaultWeights = types.Weights{Semantic: 0.7, Keyword: 0.3}

func TestMerge(t *testing.T) {
	cs := merge("p", 0.8, 0.4, true, true, defaultWeights)
	assert.InDelta(t, 0.68, cs.Final, 1e-9)
	// agreement 0.6 -> 0.68 * 0.8
	assert.InDelta(t, 0.544, cs.Confidence, 1e-9)

	semanticOnly := merge("p", 0.8, 0, true, false, defaultWeights)
	assert.InDelta(t, 0.8, semanticOnly.Final, 1e-9)
	assert.InDelta(t, 0.4, semanticOnly.Confidence, 1e-9)

	keywordOnly := merge("p", 0, 0.6, false, true, defaultWeights)
	assert.InDelta(t, 0.6, keywordOnly.Final, 1e-9)
	assert.InDelta(t, 0.3, keywordOnly.Confidence, 1e-9)
}

func TestAgreementBeatsSingleSignal(t *testing.T) {
	w := types.Weights{Semantic: 0.5, Keyword: 0.5}
	agreeing := merge("a", 0.6, 0.6, true, true, w)
	lopsided := merge("b", 1.0, 0.2, true, true, w)

	assert.InDelta(t, agreeing.Final, lopsided.Final, 1e-9)
	assert.Greater(t, agreeing.Confidence, lopsided.Confidence)
}

func TestConfidenceMonotonic(t *testing.T) {
	steps := []float64{0, 0.1, 0.25, 0.5, 0.75, 0.9, 1}

	for _, agreement := range steps {
		prev := -1.0
		for _, final := range steps {
			c := confidence(final, agreement)
			assert.GreaterOrEqual(t, c, prev, "final=%v agreement=%v", final, agreement)
			assert.GreaterOrEqual(t, c, 0.0)
			assert.LessOrEqual(t, c, 1.0)
			prev = c
		}
	}

	for _, final := range steps {
		prev := -1.0
		for _, agreement := range steps {
			c := confidence(final, agreement)
			assert.GreaterOrEqual(t, c, prev, "final=%v agreement=%v", final, agreement)
			prev = c
		}
	}

	assert.Equal(t, 1.0, confidence(1, 1))
	assert.Equal(t, 1.0, confidence(2, 2), "clamped")
}

func TestSortCandidatesTieBreak(t *testing.T) {
	cands := []types.CandidateScore{
		{PatternID: "c", Final: 0.5},
		{PatternID: "a", Final: 0.5},
		{PatternID: "d", Final: 0.9},
		{PatternID: "b", Final: 0.5},
	}
	sortCandidates(cands)

	ids := make([]string, len(cands))
	for i, c := range cands {
		ids[i] = c.PatternID
	}
	assert.Equal(t, []string{"d", "a", "b", "c"}, ids)
}

func TestDominantSignal(t *testing.T) {
	tests := []struct {
		name        string
		semantic    float64
		keyword     float64
		semanticRan bool
		keywordRan  bool
		want        types.Signal
	}{
		{"semantic dominates", 0.8, 0.3, true, true, types.SignalSemantic},
		{"keyword dominates", 0.1, 0.9, true, true, types.SignalKeyword},
		{"balanced", 0.3, 0.7, true, true, types.SignalBoth},
		{"no keyword hit", 0.2, 0, true, true, types.SignalSemantic},
		{"semantic only", 0.1, 0.9, true, false, types.SignalSemantic},
		{"keyword only", 0.9, 0.1, false, true, types.SignalKeyword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cs := types.CandidateScore{Semantic: tt.semantic, Keyword: tt.keyword}
			assert.Equal(t, tt.want, dominantSignal(cs, tt.semanticRan, tt.keywordRan, defaultWeights))
		})
	}
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "First sentence.", snippet("First sentence. Second sentence."))
	long := ""
	for i := 0; i < 50; i++ {
		long += "word "
	}
	s := snippet(long)
	assert.LessOrEqual(t, len([]rune(s)), snippetLength)
	assert.Contains(t, s, "...")
}

func TestAlternativesFollowRankOrder(t *testing.T) {
	patterns := map[string]*types.Pattern{
		"pool":      {ID: "pool", Name: "Object Pool", Category: "creational"},
		"observer":  {ID: "observer", Name: "Observer", Category: "behavioral"},
		"singleton": {ID: "singleton", Name: "Singleton", Category: "creational"},
		"builder":   {ID: "builder", Name: "Builder", Category: "creational"},
	}
	below := []types.CandidateScore{{PatternID: "observer", Final: 0.60}, {PatternID: "pool", Final: 0.05}}

	alts := alternativesFor(patterns["singleton"], below, patterns, 1)
	require.Len(t, alts, 1)
	assert.Equal(t, "observer", alts[0].PatternID)
	assert.Contains(t, alts[0].Reason, "behavioral")

	alts = alternativesFor(patterns["singleton"], below, patterns, 5)
	require.Len(t, alts, 2)
	assert.Equal(t, []string{"observer", "pool"}, []string{alts[0].PatternID, alts[1].PatternID})
	assert.Contains(t, alts[1].Reason, "also creational")

	withSelf := append([]types.CandidateScore{{PatternID: "singleton", Final: 0.7}}, below...)
	alts = alternativesFor(patterns["singleton"], withSelf, patterns, 1)
	assert.Equal(t, "observer", alts[0].PatternID)

	assert.Nil(t, alternativesFor(patterns["singleton"], below, patterns, 0))
	assert.Nil(t, alternativesFor(patterns["builder"], nil, patterns, 2))
}
