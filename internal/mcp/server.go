package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/dshills/mailsearch/internal/searcher"
	"github.com/dshills/mailsearch/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "mailsearch"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp      *server.MCPServer
	storage  storage.Storage
	searcher *searcher.Searcher
	logger   *zap.Logger
}

// NewServer creates an MCP server exposing the search pipeline.
// The caller owns store and closes it after Serve returns.
func NewServer(store storage.Storage, srch *searcher.Searcher, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
		server.WithToolCapabilities(false),
	)

	s := &Server{
		mcp:      mcpServer,
		storage:  store,
		searcher: srch,
		logger:   logger,
	}

	s.registerTools()

	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("serving MCP on stdio", zap.String("server", ServerName))
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(searchEmailsTool(), s.handleSearchEmails)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
	s.mcp.AddTool(refreshCorpusTool(), s.handleRefreshCorpus)
	s.mcp.AddTool(getEmailTool(), s.handleGetEmail)
}
