package recommender

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/dshills/patternfinder-mcp/internal/cache"
	"github.com/dshills/patternfinder-mcp/internal/embedder"
	"github.com/dshills/patternfinder-mcp/pkg/types"
)

// SearchMode defines how search is performed
type SearchMode string

const (
	SearchModeHybrid   SearchMode = "hybrid"   // Semantic + keyword, weighted merge
	SearchModeSemantic SearchMode = "semantic" // Vector similarity only
	SearchModeKeyword  SearchMode = "keyword"  // Keyword scoring only
)

const (
	defaultSearchLimit = 10
	maxSearchLimit     = 100
	snippetLength      = 160
)

// SearchRequest contains parameters for a search operation
type SearchRequest struct {
	Query      string
	Limit      int        // Defaults to 10, capped at 100
	Mode       SearchMode // Empty picks the configured default
	Categories []string
}

// DefaultMode returns the mode used when a request doesn't name one
func (r *Recommender) DefaultMode() SearchMode {
	switch {
	case r.cfg.UseHybridSearch && r.cfg.UseSemanticSearch && r.cfg.UseKeywordSearch:
		return SearchModeHybrid
	case r.cfg.UseSemanticSearch:
		return SearchModeSemantic
	default:
		return SearchModeKeyword
	}
}

func (r *Recommender) validateSearch(req *SearchRequest) error {
	if strings.TrimSpace(req.Query) == "" {
		return &types.ValidationError{Field: "query", Reason: "cannot be empty"}
	}
	if req.Limit < 0 {
		return &types.ValidationError{Field: "limit", Reason: "cannot be negative"}
	}
	if req.Limit == 0 {
		req.Limit = defaultSearchLimit
	}
	if req.Limit > maxSearchLimit {
		req.Limit = maxSearchLimit
	}
	if req.Mode == "" {
		req.Mode = r.DefaultMode()
	}

	switch req.Mode {
	case SearchModeHybrid:
		if !r.cfg.UseHybridSearch || !r.cfg.UseSemanticSearch || !r.cfg.UseKeywordSearch {
			return &types.ValidationError{Field: "mode", Reason: "hybrid search is disabled"}
		}
	case SearchModeSemantic:
		if !r.cfg.UseSemanticSearch {
			return &types.ValidationError{Field: "mode", Reason: "semantic search is disabled"}
		}
	case SearchModeKeyword:
		if !r.cfg.UseKeywordSearch {
			return &types.ValidationError{Field: "mode", Reason: "keyword search is disabled"}
		}
	default:
		return &types.ValidationError{Field: "mode", Reason: fmt.Sprintf("unsupported search mode %q", req.Mode)}
	}
	return nil
}

// searchCacheKey identifies a request by mode, limit, categories and normalized query
func searchCacheKey(req SearchRequest) string {
	cats := make([]string, len(req.Categories))
	for i, c := range req.Categories {
		cats[i] = strings.ToLower(strings.TrimSpace(c))
	}
	sort.Strings(cats)
	return fmt.Sprintf("%s\x00%d\x00%s\x00%s", req.Mode, req.Limit, strings.Join(cats, ","), embedder.NormalizeText(req.Query))
}

// Search ranks patterns for a query without a confidence filter. Results are
// cached per normalized query unless ctx was marked with cache.WithBypass.
func (r *Recommender) Search(ctx context.Context, req SearchRequest) (results []types.SearchResult, err error) {
	start := time.Now()
	defer func() { r.metrics.ObserveRequest("search", start, err) }()

	if err := r.validateSearch(&req); err != nil {
		return nil, err
	}
	w, err := r.weights(nil)
	if err != nil {
		return nil, err
	}

	useCache := r.results.Enabled() && !cache.Bypassed(ctx)
	key := searchCacheKey(req)
	if useCache {
		if cached, ok := r.results.Get(key); ok {
			return append([]types.SearchResult(nil), cached...), nil
		}
	}

	if r.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.RequestTimeout)
		defer cancel()
	}

	use := signals{
		semantic: req.Mode != SearchModeKeyword,
		keyword:  req.Mode != SearchModeSemantic,
	}
	set, err := r.score(ctx, req.Query, req.Categories, use, w)
	if err != nil {
		return nil, err
	}

	n := len(set.candidates)
	if n > req.Limit {
		n = req.Limit
	}
	results = make([]types.SearchResult, 0, n)
	for i, cs := range set.candidates[:n] {
		p := set.patterns[cs.PatternID]
		results = append(results, types.SearchResult{
			PatternID: p.ID,
			Name:      p.Name,
			Category:  p.Category,
			Rank:      i + 1,
			Score:     cs.Final,
			Semantic:  cs.Semantic,
			Keyword:   cs.Keyword,
			Snippet:   snippet(p.Description),
		})
	}

	// Degraded results are not cached so recovery is visible immediately
	if useCache && !set.degraded {
		r.results.Set(key, append([]types.SearchResult(nil), results...))
	}

	r.logger.Debug("Search completed",
		zap.String("mode", string(req.Mode)),
		zap.Int("results", len(results)),
		zap.Duration("duration", time.Since(start)),
	)
	return results, nil
}

// snippet returns the first sentence of text, truncated on a rune boundary
func snippet(text string) string {
	text = strings.TrimSpace(text)
	if i := strings.Index(text, ". "); i >= 0 {
		text = text[:i+1]
	}
	if utf8.RuneCountInString(text) <= snippetLength {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:snippetLength-3])) + "..."
}
