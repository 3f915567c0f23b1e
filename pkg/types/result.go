package types

// Signal names the score that dominated a recommendation
type Signal string

const (
	SignalSemantic Signal = "semantic"
	SignalKeyword  Signal = "keyword"
	SignalBoth     Signal = "both"
)

// Weights controls how semantic and keyword scores are merged.
// Semantic + Keyword must equal 1.
type Weights struct {
	Semantic float64
	Keyword  float64
}

// Query is a recommendation request
type Query struct {
	Text          string
	Categories    []string // Optional category filter
	Language      string   // Optional target-language hint
	MaxResults    int
	MinConfidence float64
	Weights       *Weights // Nil uses the configured weights
}

// CandidateScore holds the request-scoped scores for one pattern
type CandidateScore struct {
	PatternID  string
	Semantic   float64
	Keyword    float64
	Final      float64
	Confidence float64
}

// Justification explains why a pattern was recommended
type Justification struct {
	PrimaryReason     string
	SupportingReasons []string
	Benefits          []string
	Drawbacks         []string
	Signal            Signal
}

// Alternative is a candidate that fell just below the result cutoff
type Alternative struct {
	PatternID string
	Name      string
	Score     float64
	Reason    string
}

// Recommendation is a single ranked recommendation
type Recommendation struct {
	Rank          int // 1-based, unique and contiguous
	Pattern       *Pattern
	Scores        CandidateScore
	Justification Justification
	Alternatives  []Alternative
	Degraded      bool // Ranked on keyword signal only because the semantic path failed
}

// RecommendationSet is the outcome of one recommendation request. Degraded
// is set whenever the semantic path failed, including runs that matched nothing.
type RecommendationSet struct {
	Recommendations []Recommendation
	Degraded        bool
}

// Validate checks the recommendation is well formed
func (r *Recommendation) Validate() error {
	if r.Pattern == nil || r.Pattern.ID == "" {
		return ErrInvalidPatternID
	}
	if r.Rank < 1 {
		return ErrInvalidRank
	}
	if !inUnitRange(r.Scores.Final) || !inUnitRange(r.Scores.Confidence) {
		return ErrInvalidRelevanceScore
	}
	return nil
}

// SearchResult is a single ranked search hit
type SearchResult struct {
	PatternID string
	Name      string
	Category  string
	Rank      int // Position in result set (1-based)
	Score     float64
	Semantic  float64
	Keyword   float64
	Snippet   string
}

// Validate checks if the search result is valid
func (sr *SearchResult) Validate() error {
	if sr.PatternID == "" {
		return ErrInvalidPatternID
	}
	if sr.Rank < 1 {
		return ErrInvalidRank
	}
	if !inUnitRange(sr.Score) {
		return ErrInvalidRelevanceScore
	}
	return nil
}

func inUnitRange(v float64) bool {
	return v >= 0 && v <= 1
}
