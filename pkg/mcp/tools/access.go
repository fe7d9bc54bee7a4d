// Package tools provides the notebook's MCP tools.
package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-notebook/pkg/auth"
	"github.com/ekaya-inc/ekaya-notebook/pkg/models"
	"github.com/ekaya-inc/ekaya-notebook/pkg/services"
)

// ToolAccessError is an actionable failure returned to the MCP client as a
// tool result rather than a protocol error.
type ToolAccessError struct {
	Code    string
	Message string
	// MCPResult contains the pre-built MCP response for this error
	MCPResult *mcp.CallToolResult
}

func (e *ToolAccessError) Error() string {
	return e.Message
}

// AsToolAccessResult returns the tool result carried by a ToolAccessError,
// or nil for any other error.
func AsToolAccessResult(err error) *mcp.CallToolResult {
	var accessErr *ToolAccessError
	if errors.As(err, &accessErr) {
		return accessErr.MCPResult
	}
	return nil
}

func newToolAccessError(code, message string) *ToolAccessError {
	return &ToolAccessError{
		Code:      code,
		Message:   message,
		MCPResult: NewErrorResult(code, message),
	}
}

// ScopeProvider opens a user-scoped database context. Implemented by
// *database.ScopeProvider.
type ScopeProvider interface {
	WithUserScope(ctx context.Context, userID uuid.UUID) (context.Context, func(), error)
}

// NotebookToolDeps holds the services the notebook tools call.
type NotebookToolDeps struct {
	Scopes         ScopeProvider
	Projects       services.ProjectService
	Analyses       services.AnalysisService
	ReportAnalysis services.ReportAnalysisService
	Logger         *zap.Logger
}

// toolAccess is the caller identity and scoped context for one tool call.
type toolAccess struct {
	UserID  uuid.UUID
	Ctx     context.Context
	Cleanup func()
}

// acquireToolAccess resolves the caller from the JWT claims and opens a
// user-scoped connection. Tool calls are recorded with mcp provenance.
func acquireToolAccess(ctx context.Context, deps *NotebookToolDeps, toolName string) (*toolAccess, error) {
	userID, ok := auth.GetUserUUIDFromContext(ctx)
	if !ok {
		return nil, newToolAccessError("authentication_required", "authentication required")
	}

	scoped, cleanup, err := deps.Scopes.WithUserScope(ctx, userID)
	if err != nil {
		deps.Logger.Error("Failed to acquire user scope for tool",
			zap.String("tool", toolName),
			zap.String("user_id", userID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to acquire database connection: %w", err)
	}

	return &toolAccess{
		UserID:  userID,
		Ctx:     models.WithMCPProvenance(scoped, userID),
		Cleanup: cleanup,
	}, nil
}
