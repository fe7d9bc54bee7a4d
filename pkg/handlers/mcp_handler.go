package handlers

import (
	"net/http"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-notebook/pkg/mcp"
	mcpauth "github.com/ekaya-inc/ekaya-notebook/pkg/mcp/auth"
	"github.com/ekaya-inc/ekaya-notebook/pkg/middleware"
)

// MCPHandler serves the MCP streamable HTTP transport.
type MCPHandler struct {
	httpServer *server.StreamableHTTPServer
	logger     *zap.Logger
}

// NewMCPHandler creates a new MCP handler from an MCP server.
func NewMCPHandler(mcpServer *mcp.Server, logger *zap.Logger) *MCPHandler {
	return &MCPHandler{
		httpServer: mcpServer.NewStreamableHTTPServer(),
		logger:     logger,
	}
}

// RegisterRoutes mounts POST /mcp. Non-POST requests are rejected before
// authentication; JSON-RPC traffic is logged after it.
func (h *MCPHandler) RegisterRoutes(mux *http.ServeMux, mcpAuth *mcpauth.Middleware) {
	logged := middleware.MCPRequestLogger(h.logger)(h.httpServer)
	mux.Handle("/mcp", h.requirePOST(mcpAuth.RequireAuth(logged)))
}

// requirePOST returns 405 Method Not Allowed for non-POST requests.
func (h *MCPHandler) requirePOST(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		next.ServeHTTP(w, r)
	})
}
