package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-notebook/pkg/apperrors"
)

// maxJSONBody bounds request bodies decoded by decodeJSON.
const maxJSONBody = 1 << 20

// MessageResponse is the body of operations that return no resource.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// writeError writes an error body, logging encoding failures.
func writeError(w http.ResponseWriter, logger *zap.Logger, statusCode int, errorCode, message string) {
	if err := ErrorResponse(w, statusCode, errorCode, message); err != nil {
		logger.Error("Failed to write error response", zap.Error(err))
	}
}

// writeJSON writes a response body, logging encoding failures.
func writeJSON(w http.ResponseWriter, logger *zap.Logger, statusCode int, data any) {
	if err := WriteJSON(w, statusCode, data); err != nil {
		logger.Error("Failed to write response", zap.Error(err))
	}
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

// serviceFailure maps a service error to a response. entity names the
// resource for 404s ("Project") and action the attempted operation for
// store failures ("update project").
//
// Store failures are reported as 400 "Failed to <action>" without detail.
func serviceFailure(w http.ResponseWriter, logger *zap.Logger, err error, entity, action string) {
	var inputErr *apperrors.InputError
	switch {
	case errors.As(err, &inputErr):
		writeError(w, logger, http.StatusBadRequest, "validation_error", inputErr.Message)
	case errors.Is(err, apperrors.ErrNotFound):
		writeError(w, logger, http.StatusNotFound, "not_found", entity+" not found")
	case errors.Is(err, apperrors.ErrForbidden):
		writeError(w, logger, http.StatusForbidden, "forbidden", "Access denied")
	default:
		logger.Error("Request failed", zap.String("action", action), zap.Error(err))
		writeError(w, logger, http.StatusBadRequest, "request_failed", "Failed to "+action)
	}
}
