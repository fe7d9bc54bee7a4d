package handlers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-notebook/pkg/auth"
)

// ParseID extracts and validates the {id} path parameter.
// Returns the parsed UUID and true on success, or uuid.Nil and false on error
// (after writing an error response).
func ParseID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	return parseUUID(w, r, "id", "invalid_id", "Invalid ID format", logger)
}

// RequireQueryUUID reads a required UUID query parameter such as project_id.
func RequireQueryUUID(w http.ResponseWriter, r *http.Request, name string, logger *zap.Logger) (uuid.UUID, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		writeError(w, logger, http.StatusBadRequest, "missing_parameter", name+" query parameter is required")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, logger, http.StatusBadRequest, "invalid_parameter", "Invalid "+name+" format")
		return uuid.Nil, false
	}
	return id, true
}

// OptionalQueryUUID reads an optional UUID query parameter. A present but
// malformed value is an error.
func OptionalQueryUUID(w http.ResponseWriter, r *http.Request, name string, logger *zap.Logger) (*uuid.UUID, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, logger, http.StatusBadRequest, "invalid_parameter", "Invalid "+name+" format")
		return nil, false
	}
	return &id, true
}

// RequireUserID returns the caller's account id from the auth claims.
func RequireUserID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	userID, ok := auth.GetUserUUIDFromContext(r.Context())
	if !ok {
		writeError(w, logger, http.StatusUnauthorized, "unauthorized", "Authorization required")
		return uuid.Nil, false
	}
	return userID, true
}

// parseUUID is the internal helper that does the actual parsing work.
func parseUUID(w http.ResponseWriter, r *http.Request, pathParam, errorCode, errorMessage string, logger *zap.Logger) (uuid.UUID, bool) {
	idStr := r.PathValue(pathParam)
	id, err := uuid.Parse(idStr)
	if err != nil {
		writeError(w, logger, http.StatusBadRequest, errorCode, errorMessage)
		return uuid.Nil, false
	}
	return id, true
}
