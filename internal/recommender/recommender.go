package recommender

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/patternfinder-mcp/internal/cache"
	"github.com/dshills/patternfinder-mcp/internal/config"
	"github.com/dshills/patternfinder-mcp/internal/embedder"
	"github.com/dshills/patternfinder-mcp/internal/keyword"
	"github.com/dshills/patternfinder-mcp/internal/metrics"
	"github.com/dshills/patternfinder-mcp/internal/storage"
	"github.com/dshills/patternfinder-mcp/internal/vector"
	"github.com/dshills/patternfinder-mcp/pkg/types"
)

// QueryEmbedder produces the query vector. *embedder.Generator implements it.
type QueryEmbedder interface {
	GenerateEmbedding(ctx context.Context, text string) (*embedder.Embedding, error)
}

// Options carries the optional collaborators
type Options struct {
	Logger      *zap.Logger
	Metrics     *metrics.Metrics
	ResultCache *cache.Cache[string, []types.SearchResult] // Nil disables search result caching
	Keyword     *keyword.Engine                            // Nil uses default field weights
}

// Recommender ranks catalog patterns against free-text problem descriptions
type Recommender struct {
	catalog    storage.Catalog
	embeddings storage.EmbeddingStore
	embedder   QueryEmbedder
	cfg        config.RecommendationConfig

	keyword *keyword.Engine
	vector  *vector.Engine
	results *cache.Cache[string, []types.SearchResult]
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// New creates a Recommender. Every collaborator is passed explicitly. Invalid
// configured weights surface as a ConfigurationError on the first request.
func New(catalog storage.Catalog, embeddings storage.EmbeddingStore, emb QueryEmbedder, cfg config.RecommendationConfig, opts Options) *Recommender {
	r := &Recommender{
		catalog:    catalog,
		embeddings: embeddings,
		embedder:   emb,
		cfg:        cfg,
		keyword:    opts.Keyword,
		vector:     vector.New(vector.Options{Threshold: cfg.SimilarityThreshold}),
		results:    opts.ResultCache,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
	}
	if r.keyword == nil {
		r.keyword = keyword.New(nil)
	}
	if r.results == nil {
		r.results = cache.Disabled[string, []types.SearchResult]()
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	return r
}

// ResultCache exposes the search result cache for status reporting
func (r *Recommender) ResultCache() *cache.Cache[string, []types.SearchResult] { return r.results }

// NewResultCache creates the search result cache from configuration
func NewResultCache(cfg config.CacheConfig, m *metrics.Metrics) *cache.Cache[string, []types.SearchResult] {
	return cache.New[string, []types.SearchResult](cache.Options{
		Name:    "search",
		Enabled: cfg.Enabled,
		Size:    cfg.Size,
		TTL:     cfg.TTL,
		Metrics: m,
	})
}

// scoreSet is the request-scoped outcome of running both engines
type scoreSet struct {
	candidates  []types.CandidateScore // Sorted, final > 0
	patterns    map[string]*types.Pattern
	keyword     map[string]keyword.Match
	semanticRan bool
	keywordRan  bool
	degraded    bool
}

// signals selects which engines run for one request
type signals struct {
	semantic bool
	keyword  bool
}

// score runs the enabled engines concurrently over the candidate patterns
// and merges their results.
func (r *Recommender) score(ctx context.Context, text string, categories []string, use signals, w types.Weights) (*scoreSet, error) {
	patterns, err := r.catalog.ListByCategory(ctx, categories...)
	if err != nil {
		return nil, fmt.Errorf("failed to load patterns: %w", err)
	}

	set := &scoreSet{patterns: make(map[string]*types.Pattern, len(patterns))}
	for i := range patterns {
		set.patterns[patterns[i].ID] = &patterns[i]
	}
	if len(patterns) == 0 {
		return set, nil
	}

	var semantic map[string]float64
	g, gctx := errgroup.WithContext(ctx)
	if use.semantic {
		g.Go(func() error {
			var err error
			semantic, err = r.semanticScores(gctx, text, set.patterns)
			return err
		})
	}
	if use.keyword {
		g.Go(func() error {
			set.keyword = r.keyword.ScoreAll(text, patterns)
			return nil
		})
	}

	semErr := g.Wait()
	set.semanticRan = use.semantic && semErr == nil
	set.keywordRan = use.keyword

	if semErr != nil {
		if !r.canDegrade(ctx, semErr, use) {
			return nil, semErr
		}
		set.degraded = true
		r.metrics.Degraded()
		r.logger.Warn("Semantic search unavailable, falling back to keyword-only ranking",
			zap.Error(semErr),
			zap.Int("candidates", len(patterns)),
		)
	}

	set.candidates = make([]types.CandidateScore, 0, len(patterns))
	for id := range set.patterns {
		cs := merge(id, semantic[id], set.keyword[id].Score, set.semanticRan, set.keywordRan, w)
		if cs.Final > 0 {
			set.candidates = append(set.candidates, cs)
		}
	}
	sortCandidates(set.candidates)
	return set, nil
}

// canDegrade allows a keyword-only fallback for provider failures only.
// Dimension mismatches, storage errors and caller cancellation propagate.
func (r *Recommender) canDegrade(ctx context.Context, err error, use signals) bool {
	if !use.keyword || !r.cfg.AllowDegraded || ctx.Err() != nil {
		return false
	}
	if errors.Is(err, types.ErrDimensionMismatch) {
		return false
	}
	return errors.Is(err, types.ErrProvider)
}

// semanticScores embeds the query and scores the stored embeddings of the
// candidate patterns. Similarities below the threshold count as zero.
func (r *Recommender) semanticScores(ctx context.Context, text string, patterns map[string]*types.Pattern) (map[string]float64, error) {
	emb, err := r.embedder.GenerateEmbedding(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to generate query embedding: %w", err)
	}

	stored, err := r.embeddings.ListEmbeddings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load embeddings: %w", err)
	}

	candidates := stored[:0]
	for _, e := range stored {
		if _, ok := patterns[e.PatternID]; ok {
			candidates = append(candidates, e)
		}
	}
	if missing := len(patterns) - len(candidates); missing > 0 {
		r.logger.Debug("Patterns without stored embeddings", zap.Int("missing", missing))
	}

	matches, err := r.vector.Rank(emb.Vector, candidates)
	if err != nil {
		return nil, err
	}

	scores := make(map[string]float64, len(matches))
	for _, m := range matches {
		scores[m.PatternID] = m.Similarity
	}
	return scores, nil
}

// weights resolves the merge weights for a request. Configured weights are
// checked here too so a Recommender built without config.Validate never ranks.
func (r *Recommender) weights(override *types.Weights) (types.Weights, error) {
	w := types.Weights{Semantic: r.cfg.SemanticWeight, Keyword: r.cfg.KeywordWeight}
	if override != nil {
		w = *override
	}
	if err := config.ValidateWeights(w.Semantic, w.Keyword); err != nil {
		return types.Weights{}, err
	}
	return w, nil
}

// NewQuery returns a query for text carrying the configured result limits
func (r *Recommender) NewQuery(text string) types.Query {
	return types.Query{
		Text:          text,
		MaxResults:    r.cfg.MaxResults,
		MinConfidence: r.cfg.MinConfidence,
	}
}

func validateQuery(q types.Query) error {
	if strings.TrimSpace(q.Text) == "" {
		return &types.ValidationError{Field: "query", Reason: "cannot be empty"}
	}
	if q.MaxResults <= 0 {
		return &types.ValidationError{Field: "max_results", Reason: "must be positive"}
	}
	if q.MinConfidence < 0 || q.MinConfidence > 1 {
		return &types.ValidationError{Field: "min_confidence", Reason: "must be within [0,1]"}
	}
	return nil
}

// FindMatchingPatterns returns at most q.MaxResults recommendations, each with
// confidence >= q.MinConfidence, ranked by final score. An empty slice means no
// pattern matched; failures are always returned as errors.
func (r *Recommender) FindMatchingPatterns(ctx context.Context, q types.Query) ([]types.Recommendation, error) {
	set, err := r.Recommend(ctx, q)
	if err != nil {
		return nil, err
	}
	return set.Recommendations, nil
}

// Recommend is FindMatchingPatterns plus the request-level degraded flag
func (r *Recommender) Recommend(ctx context.Context, q types.Query) (result *types.RecommendationSet, err error) {
	start := time.Now()
	defer func() { r.metrics.ObserveRequest("find_patterns", start, err) }()

	if err := validateQuery(q); err != nil {
		return nil, err
	}
	w, err := r.weights(q.Weights)
	if err != nil {
		return nil, err
	}
	use := signals{semantic: r.cfg.UseSemanticSearch, keyword: r.cfg.UseKeywordSearch}
	if !use.semantic && !use.keyword {
		return nil, &types.ConfigurationError{Field: "use_semantic_search", Reason: "semantic and keyword search are both disabled"}
	}

	if r.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.RequestTimeout)
		defer cancel()
	}

	set, err := r.score(ctx, q.Text, q.Categories, use, w)
	if err != nil {
		return nil, err
	}

	selected := make([]types.CandidateScore, 0, q.MaxResults)
	var below []types.CandidateScore
	for _, cs := range set.candidates {
		if len(selected) < q.MaxResults && cs.Confidence >= q.MinConfidence {
			selected = append(selected, cs)
			continue
		}
		below = append(below, cs)
	}
	below = belowCutoff(below, selected)

	recs := make([]types.Recommendation, 0, len(selected))
	for i, cs := range selected {
		p := set.patterns[cs.PatternID]
		signal := dominantSignal(cs, set.semanticRan, set.keywordRan, w)
		recs = append(recs, types.Recommendation{
			Rank:          i + 1,
			Pattern:       p,
			Scores:        cs,
			Justification: justify(p, cs, signal, set.keyword[cs.PatternID], q.Language, set.degraded),
			Alternatives:  alternativesFor(p, below, set.patterns, r.cfg.Alternatives),
			Degraded:      set.degraded,
		})
	}

	r.logger.Debug("Recommendations ranked",
		zap.Int("candidates", len(set.candidates)),
		zap.Int("returned", len(recs)),
		zap.Bool("degraded", set.degraded),
		zap.Duration("duration", time.Since(start)),
	)
	return &types.RecommendationSet{Recommendations: recs, Degraded: set.degraded}, nil
}

// belowCutoff keeps candidates ranked after the last selected one
func belowCutoff(below, selected []types.CandidateScore) []types.CandidateScore {
	if len(selected) == 0 {
		return below
	}
	last := selected[len(selected)-1]
	out := below[:0]
	for _, cs := range below {
		if cs.Final < last.Final || (cs.Final == last.Final && cs.PatternID > last.PatternID) {
			out = append(out, cs)
		}
	}
	return out
}
