package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/dshills/patternfinder-mcp/internal/indexer"
	"github.com/dshills/patternfinder-mcp/internal/recommender"
	"github.com/dshills/patternfinder-mcp/internal/storage"
	"github.com/dshills/patternfinder-mcp/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams          = -32602 // Invalid method parameters
	ErrorCodeInternalError          = -32603 // Internal JSON-RPC error
	ErrorCodePatternNotFound        = -32001 // Referenced pattern does not exist
	ErrorCodeRegenerationInProgress = -32002 // Another regeneration run is active
	ErrorCodeProviderUnavailable    = -32003 // Embedding provider failed
	ErrorCodeEmptyQuery             = -32004 // Query parameter is empty
	ErrorCodeDimensionMismatch      = -32005 // Query and stored vectors disagree
	ErrorCodeConfiguration          = -32006 // Invalid or unsupported configuration
	ErrorCodeTimeout                = -32007 // Request deadline exceeded
)

// handleFindPatterns handles the find_patterns tool invocation
func (s *Server) handleFindPatterns(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, err := requireQuery(args)
	if err != nil {
		return nil, err
	}

	q := s.svc.Recommender.NewQuery(query)
	q.Categories = getStringSlice(args, "categories")
	q.Language = getStringDefault(args, "language", "")
	q.MaxResults = getIntDefault(args, "max_results", q.MaxResults)
	q.MinConfidence = getFloatDefault(args, "min_confidence", q.MinConfidence)

	semantic, hasSemantic := getFloat(args, "semantic_weight")
	kw, hasKeyword := getFloat(args, "keyword_weight")
	switch {
	case hasSemantic && hasKeyword:
		q.Weights = &types.Weights{Semantic: semantic, Keyword: kw}
	case hasSemantic:
		q.Weights = &types.Weights{Semantic: semantic, Keyword: 1 - semantic}
	case hasKeyword:
		q.Weights = &types.Weights{Semantic: 1 - kw, Keyword: kw}
	}

	result, err := s.svc.Recommender.Recommend(ctx, q)
	if err != nil {
		return nil, s.toolError("find_patterns", err, nil)
	}

	items := make([]map[string]interface{}, len(result.Recommendations))
	for i := range result.Recommendations {
		items[i] = recommendationJSON(&result.Recommendations[i])
	}

	response := map[string]interface{}{
		"query":           query,
		"recommendations": items,
		"count":           len(items),
		"degraded":        result.Degraded,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

func recommendationJSON(r *types.Recommendation) map[string]interface{} {
	alternatives := make([]map[string]interface{}, len(r.Alternatives))
	for i, a := range r.Alternatives {
		alternatives[i] = map[string]interface{}{
			"pattern_id": a.PatternID,
			"name":       a.Name,
			"score":      round(a.Score),
			"reason":     a.Reason,
		}
	}

	return map[string]interface{}{
		"rank":        r.Rank,
		"pattern_id":  r.Pattern.ID,
		"name":        r.Pattern.Name,
		"category":    r.Pattern.Category,
		"description": r.Pattern.Description,
		"complexity":  string(r.Pattern.Complexity),
		"confidence":  round(r.Scores.Confidence),
		"scores": map[string]interface{}{
			"final":    round(r.Scores.Final),
			"semantic": round(r.Scores.Semantic),
			"keyword":  round(r.Scores.Keyword),
		},
		"justification": map[string]interface{}{
			"signal":             string(r.Justification.Signal),
			"primary_reason":     r.Justification.PrimaryReason,
			"supporting_reasons": r.Justification.SupportingReasons,
			"benefits":           r.Justification.Benefits,
			"drawbacks":          r.Justification.Drawbacks,
		},
		"alternatives": alternatives,
		"degraded":     r.Degraded,
	}
}

// handleSearchPatterns handles the search_patterns tool invocation
func (s *Server) handleSearchPatterns(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, err := requireQuery(args)
	if err != nil {
		return nil, err
	}

	limit := getIntDefault(args, "limit", 10)
	if limit < 1 || limit > 100 {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	mode := recommender.SearchMode(getStringDefault(args, "search_mode", ""))
	switch mode {
	case "", recommender.SearchModeHybrid, recommender.SearchModeSemantic, recommender.SearchModeKeyword:
	default:
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid search_mode", map[string]interface{}{
			"param":   "search_mode",
			"value":   string(mode),
			"allowed": []string{"hybrid", "semantic", "keyword"},
		})
	}
	if mode == "" {
		mode = s.svc.Recommender.DefaultMode()
	}

	results, err := s.svc.Recommender.Search(ctx, recommender.SearchRequest{
		Query:      query,
		Limit:      limit,
		Mode:       mode,
		Categories: getStringSlice(args, "categories"),
	})
	if err != nil {
		return nil, s.toolError("search_patterns", err, nil)
	}

	items := make([]map[string]interface{}, len(results))
	for i, r := range results {
		items[i] = map[string]interface{}{
			"rank":       r.Rank,
			"pattern_id": r.PatternID,
			"name":       r.Name,
			"category":   r.Category,
			"score":      round(r.Score),
			"semantic":   round(r.Semantic),
			"keyword":    round(r.Keyword),
			"snippet":    r.Snippet,
		}
	}

	response := map[string]interface{}{
		"query":       query,
		"search_mode": string(mode),
		"results":     items,
		"count":       len(items),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGenerateEmbeddings handles the generate_embeddings tool invocation
func (s *Server) handleGenerateEmbeddings(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	texts := getStringSlice(args, "texts")
	if len(texts) == 0 {
		return nil, newMCPError(ErrorCodeInvalidParams, "texts parameter is required", map[string]interface{}{
			"param":  "texts",
			"reason": "missing or empty",
		})
	}

	res, err := s.svc.Generator.GenerateEmbeddings(ctx, texts)
	if err != nil {
		return nil, s.toolError("generate_embeddings", err, nil)
	}

	response := map[string]interface{}{
		"count":     len(res.Embeddings),
		"provider":  res.Provider,
		"model":     res.Model,
		"dimension": res.Dimension,
	}
	if getBoolDefault(args, "include_vectors", false) {
		response["vectors"] = res.Vectors()
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleRegenerateEmbeddings handles the regenerate_embeddings tool invocation
func (s *Server) handleRegenerateEmbeddings(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})

	scope, err := indexer.ParseScope(getStringDefault(args, "scope", string(indexer.ScopeStale)))
	if err != nil {
		return nil, s.toolError("regenerate_embeddings", err, nil)
	}

	stats, err := s.svc.Indexer.RegenerateAll(ctx, indexer.Options{
		Scope:    scope,
		Patterns: getStringSlice(args, "pattern_ids"),
	})
	if err != nil {
		var data map[string]interface{}
		if stats != nil {
			data = statisticsJSON(stats)
		}
		return nil, s.toolError("regenerate_embeddings", err, data)
	}

	response := statisticsJSON(stats)
	response["scope"] = string(scope)
	return mcp.NewToolResultText(formatJSON(response)), nil
}

func statisticsJSON(stats *indexer.Statistics) map[string]interface{} {
	return map[string]interface{}{
		"run_id":      stats.RunID,
		"patterns":    stats.Patterns,
		"embedded":    stats.Embedded,
		"skipped":     stats.Skipped,
		"batches":     stats.Batches,
		"provider":    stats.Provider,
		"model":       stats.Model,
		"dimension":   stats.Dimension,
		"duration_ms": stats.Duration.Milliseconds(),
	}
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := s.svc.Store.Status(ctx)
	if err != nil {
		return nil, s.toolError("get_status", err, nil)
	}

	lastEmbedded := ""
	if !status.LastEmbeddedAt.IsZero() {
		lastEmbedded = status.LastEmbeddedAt.Format(time.RFC3339)
	}

	gen := s.svc.Generator
	embStats := gen.Cache().Stats()
	resultStats := s.svc.Recommender.ResultCache().Stats()

	response := map[string]interface{}{
		"storage": map[string]interface{}{
			"driver":           status.Driver,
			"build_mode":       status.BuildMode,
			"schema_version":   status.SchemaVersion,
			"vector_extension": status.VectorExtension,
			"size_mb":          fmt.Sprintf("%.2f", status.SizeMB),
		},
		"catalog": map[string]interface{}{
			"patterns":           status.PatternCount,
			"embeddings":         status.EmbeddingCount,
			"missing_embeddings": status.Missing(),
			"models":             status.Models,
			"dimensions":         status.Dimensions,
			"last_embedded_at":   lastEmbedded,
		},
		"embedding": map[string]interface{}{
			"provider":             gen.Provider(),
			"model":                gen.Model(),
			"dimension":            gen.Dimension(),
			"stale_embeddings":     status.EmbeddingCount - status.Models[gen.Model()],
			"regeneration_running": s.svc.Indexer.Running(),
		},
		"cache": map[string]interface{}{
			"embeddings": cacheJSON(embStats.Entries, embStats.Hits, embStats.Misses, embStats.HitRate()),
			"search":     cacheJSON(resultStats.Entries, resultStats.Hits, resultStats.Misses, resultStats.HitRate()),
		},
		"search_mode": string(s.svc.Recommender.DefaultMode()),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

func cacheJSON(entries int, hits, misses uint64, rate float64) map[string]interface{} {
	return map[string]interface{}{
		"entries":  entries,
		"hits":     hits,
		"misses":   misses,
		"hit_rate": round(rate),
	}
}

// Helper functions

// toolError logs err and maps it onto an MCP error code by its kind
func (s *Server) toolError(tool string, err error, data map[string]interface{}) error {
	code, message := classify(err)
	if data == nil {
		data = map[string]interface{}{}
	}
	data["error"] = err.Error()

	logger := s.logger.With(zap.String("tool", tool), zap.Int("code", code), zap.Error(err))
	if code == ErrorCodeInternalError {
		logger.Error("tool call failed")
	} else {
		logger.Warn("tool call rejected")
	}
	return newMCPError(code, message, data)
}

// classify returns the MCP error code and message for err
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, types.ErrValidation):
		return ErrorCodeInvalidParams, "invalid parameters"
	case errors.Is(err, storage.ErrNotFound):
		return ErrorCodePatternNotFound, "pattern not found"
	case errors.Is(err, indexer.ErrInProgress):
		return ErrorCodeRegenerationInProgress, "embedding regeneration already in progress"
	case errors.Is(err, types.ErrDimensionMismatch):
		return ErrorCodeDimensionMismatch, "query and stored embedding dimensions differ; regenerate embeddings"
	case errors.Is(err, types.ErrConfiguration):
		return ErrorCodeConfiguration, "configuration error"
	case errors.Is(err, types.ErrProvider):
		return ErrorCodeProviderUnavailable, "embedding provider failed"
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorCodeTimeout, "request timed out"
	default:
		return ErrorCodeInternalError, "internal error"
	}
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	if m, ok := e.Data.(map[string]interface{}); ok {
		if detail, ok := m["error"].(string); ok {
			return fmt.Sprintf("MCP error %d: %s: %s", e.Code, e.Message, detail)
		}
	}
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

func requireQuery(args map[string]interface{}) (string, error) {
	query, ok := args["query"].(string)
	if !ok || strings.TrimSpace(query) == "" {
		return "", newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}
	return query, nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

func round(v float64) float64 {
	return float64(int64(v*10000+0.5)) / 10000
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getFloat extracts a number parameter, reporting whether it was present
func getFloat(args map[string]interface{}, key string) (float64, bool) {
	switch val := args[key].(type) {
	case float64:
		return val, true
	case int:
		return float64(val), true
	}
	return 0, false
}

func getFloatDefault(args map[string]interface{}, key string, defaultValue float64) float64 {
	if val, ok := getFloat(args, key); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// getStringSlice extracts a string array parameter; non-string items are skipped
func getStringSlice(args map[string]interface{}, key string) []string {
	switch val := args[key].(type) {
	case []string:
		return val
	case []interface{}:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
