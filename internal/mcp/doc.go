// Package mcp implements the Model Context Protocol (MCP) server for patternfinder.
//
// The server exposes five tools to AI coding assistants:
//   - find_patterns: Ranked, justified design pattern recommendations
//   - search_patterns: Ranked catalog lookup without justification
//   - generate_embeddings: Embed arbitrary texts with the active provider
//   - regenerate_embeddings: Rebuild stored pattern embeddings
//   - get_status: Catalog, embedding, provider and cache status
//
// MCP is JSON-RPC 2.0 over stdio. The server is started with:
//
//	patternfinder serve
//
// # Tool: find_patterns
//
//	Request:
//	{
//	  "name": "find_patterns",
//	  "arguments": {
//	    "query": "manage single instance of a resource",
//	    "max_results": 3,
//	    "language": "go"
//	  }
//	}
//
//	Response:
//	{
//	  "recommendations": [
//	    {
//	      "rank": 1,
//	      "pattern_id": "singleton",
//	      "confidence": 0.41,
//	      "justification": {
//	        "signal": "semantic",
//	        "primary_reason": "Singleton (creational) is semantically close to the problem (similarity 0.52)"
//	      },
//	      "alternatives": [{"pattern_id": "object-pool", "score": 0.21}]
//	    }
//	  ],
//	  "degraded": false
//	}
//
// When the embedding provider fails and allow_degraded is set, results are
// ranked on keyword match alone and "degraded" is true, even with no matches.
//
// # Tool: regenerate_embeddings
//
// scope selects which patterns are embedded: all, missing, or stale (the
// default: missing or produced by a different model). Only one run may be
// active at a time.
//
// # MCP Client Configuration
//
//	{
//	  "mcpServers": {
//	    "patternfinder": {
//	      "command": "/usr/local/bin/patternfinder",
//	      "args": ["serve"],
//	      "env": {
//	        "PATTERNFINDER_EMBEDDING_PROVIDER": "openai",
//	        "OPENAI_API_KEY": "your-api-key"
//	      }
//	    }
//	  }
//	}
//
// # Error Handling
//
// Tool failures are returned as MCPError values:
//
//	{
//	  "code": -32602,
//	  "message": "invalid parameters",
//	  "data": {"error": "validation error: min_confidence: must be within [0,1]"}
//	}
//
// Error codes:
//   - -32602: Invalid params (missing/invalid arguments)
//   - -32603: Internal error (storage, unexpected failures)
//   - -32001: Pattern not found
//   - -32002: Regeneration in progress
//   - -32003: Embedding provider failed
//   - -32004: Empty query
//   - -32005: Embedding dimension mismatch
//   - -32006: Configuration error
//   - -32007: Request timed out
//
// # Logging
//
// The server logs to stderr through zap; stdout is reserved for the protocol.
//
//	PATTERNFINDER_LOG_LEVEL=debug patternfinder serve
package mcp
