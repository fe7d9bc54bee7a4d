// Package mcp exposes the notebook to MCP clients over streamable HTTP.
package mcp

import (
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-notebook/pkg/mcp/tools"
)

// ServerName is reported to MCP clients during initialization.
const ServerName = "ekaya-notebook"

// Server wraps the mcp-go MCPServer.
type Server struct {
	mcp     *server.MCPServer
	version string
	logger  *zap.Logger
}

// NewServer creates a new MCP server instance. metrics may be nil.
func NewServer(version string, metrics *ToolMetrics, logger *zap.Logger) *Server {
	opts := []server.ServerOption{
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	}
	if metrics != nil {
		opts = append(opts, server.WithHooks(metrics.Hooks()))
	}

	return &Server{
		mcp:     server.NewMCPServer(ServerName, version, opts...),
		version: version,
		logger:  logger.Named("mcp"),
	}
}

// MCP returns the underlying MCPServer.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// RegisterTools adds the health tool and the notebook tools.
func (s *Server) RegisterTools(deps *tools.NotebookToolDeps) {
	tools.RegisterHealthTool(s.mcp, s.version)
	tools.RegisterNotebookTools(s.mcp, deps)
	s.logger.Info("Registered MCP tools", zap.String("version", s.version))
}

// NewStreamableHTTPServer creates an HTTP transport for this server.
// Sessions are not kept; every POST carries its own bearer token.
func (s *Server) NewStreamableHTTPServer() *server.StreamableHTTPServer {
	return server.NewStreamableHTTPServer(
		s.mcp,
		server.WithStateLess(true),
	)
}
