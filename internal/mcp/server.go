package mcp

import (
	"context"
	"errors"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

const (
	// ServerName is the MCP server name
	ServerName = "patternfinder-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

const instructions = `Recommends software design patterns for a problem description.
Use find_patterns for ranked, justified recommendations and search_patterns for a quick ranked lookup.
Run regenerate_embeddings after importing patterns or switching embedding provider.`

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp    *server.MCPServer
	svc    *Services
	logger *zap.Logger
}

// NewServer creates a new MCP server instance over svc
func NewServer(svc *Services) *Server {
	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
		server.WithToolCapabilities(false),
		server.WithInstructions(instructions),
		server.WithRecovery(),
	)

	s := &Server{
		mcp:    mcpServer,
		svc:    svc,
		logger: svc.Logger.Named("mcp"),
	}
	s.registerTools()
	return s
}

// Serve runs the MCP protocol on stdio until ctx is canceled
func (s *Server) Serve(ctx context.Context) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(zap.NewStdLog(s.logger))

	s.logger.Info("MCP server ready, listening on stdio")
	err := stdio.Listen(ctx, os.Stdin, os.Stdout)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(findPatternsTool(), s.handleFindPatterns)
	s.mcp.AddTool(searchPatternsTool(), s.handleSearchPatterns)
	s.mcp.AddTool(generateEmbeddingsTool(), s.handleGenerateEmbeddings)
	s.mcp.AddTool(regenerateEmbeddingsTool(), s.handleRegenerateEmbeddings)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}
