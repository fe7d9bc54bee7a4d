package tools

import (
	"encoding/json"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ekaya-inc/ekaya-notebook/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-notebook/pkg/services"
)

// ErrorResponse represents a structured error in tool results.
// Returning it as a successful tool result keeps the detail visible to the
// model instead of being swallowed by the MCP client.
type ErrorResponse struct {
	Error   bool   `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewErrorResult creates a tool result containing a structured error.
// Use this for errors the caller can act on (bad arguments, missing records).
// System failures such as lost database connections are returned as Go errors.
func NewErrorResult(code, message string) *mcp.CallToolResult {
	jsonBytes, _ := json.Marshal(ErrorResponse{
		Error:   true,
		Code:    code,
		Message: message,
	})
	result := mcp.NewToolResultText(string(jsonBytes))
	result.IsError = true
	return result
}

// serviceErrorResult converts actionable service errors into tool results.
// It returns nil for errors that should propagate as Go errors.
func serviceErrorResult(err error) *mcp.CallToolResult {
	var inputErr *apperrors.InputError
	switch {
	case errors.As(err, &inputErr):
		return NewErrorResult("invalid_parameters", inputErr.Message)
	case errors.Is(err, apperrors.ErrNotFound):
		return NewErrorResult("not_found", "record not found")
	case errors.Is(err, apperrors.ErrForbidden):
		return NewErrorResult("forbidden", "record belongs to another user")
	case errors.Is(err, services.ErrReportTextRequired),
		errors.Is(err, services.ErrReportTooShort),
		errors.Is(err, services.ErrReportTooLong):
		return NewErrorResult("invalid_parameters", err.Error())
	case errors.Is(err, services.ErrRateLimited),
		errors.Is(err, services.ErrQuotaExceeded),
		errors.Is(err, services.ErrAIServiceNotConfigured):
		return NewErrorResult("ai_unavailable", err.Error())
	}
	return nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}
