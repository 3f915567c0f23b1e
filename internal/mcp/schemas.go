package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

func stringArray(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "array",
		"description": description,
		"items": map[string]interface{}{
			"type": "string",
		},
	}
}

// findPatternsTool returns the tool definition for find_patterns
func findPatternsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "find_patterns",
		Description: "Recommend design patterns for a problem description, with confidence scores, justifications and alternatives",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Natural language description of the design problem",
				},
				"max_results": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of recommendations (defaults to the configured value)",
					"minimum":     1,
					"maximum":     50,
				},
				"min_confidence": map[string]interface{}{
					"type":        "number",
					"description": "Drop recommendations below this confidence (0.0-1.0)",
					"minimum":     0.0,
					"maximum":     1.0,
				},
				"categories": stringArray("Only consider patterns in these categories (e.g. creational, behavioral)"),
				"language": map[string]interface{}{
					"type":        "string",
					"description": "Target programming language, used to prefer idiomatic patterns",
				},
				"semantic_weight": map[string]interface{}{
					"type":        "number",
					"description": "Weight of semantic similarity; keyword weight becomes 1 - semantic_weight",
					"minimum":     0.0,
					"maximum":     1.0,
				},
				"keyword_weight": map[string]interface{}{
					"type":        "number",
					"description": "Weight of keyword match; semantic weight becomes 1 - keyword_weight",
					"minimum":     0.0,
					"maximum":     1.0,
				},
			},
			Required: []string{"query"},
		},
	}
}

// searchPatternsTool returns the tool definition for search_patterns
func searchPatternsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_patterns",
		Description: "Search the pattern catalog and return ranked matches without justification",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query (natural language or keywords)",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-100)",
					"default":     10,
					"minimum":     1,
					"maximum":     100,
				},
				"search_mode": map[string]interface{}{
					"type":        "string",
					"description": "Search strategy: hybrid (semantic + keyword), semantic only, or keyword only",
					"enum":        []string{"hybrid", "semantic", "keyword"},
				},
				"categories": stringArray("Only return patterns in these categories"),
			},
			Required: []string{"query"},
		},
	}
}

// generateEmbeddingsTool returns the tool definition for generate_embeddings
func generateEmbeddingsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "generate_embeddings",
		Description: "Embed arbitrary texts with the active embedding provider",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"texts": stringArray("Texts to embed; none may be empty"),
				"include_vectors": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, return the vectors, otherwise only their metadata",
					"default":     false,
				},
			},
			Required: []string{"texts"},
		},
	}
}

// regenerateEmbeddingsTool returns the tool definition for regenerate_embeddings
func regenerateEmbeddingsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "regenerate_embeddings",
		Description: "Regenerate stored pattern embeddings with the active provider",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"scope": map[string]interface{}{
					"type":        "string",
					"description": "all: every pattern, missing: patterns without an embedding, stale: missing or produced by another model",
					"enum":        []string{"all", "missing", "stale"},
					"default":     "stale",
				},
				"pattern_ids": stringArray("Restrict the run to these pattern IDs"),
			},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report catalog, embedding, provider and cache status",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
