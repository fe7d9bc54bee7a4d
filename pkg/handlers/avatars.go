package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-notebook/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-notebook/pkg/services"
)

// AvatarsHandler serves stored avatar images when the blob store has no
// public URL of its own.
type AvatarsHandler struct {
	profileService services.ProfileService
	logger         *zap.Logger
}

// NewAvatarsHandler creates a new avatars handler.
func NewAvatarsHandler(profileService services.ProfileService, logger *zap.Logger) *AvatarsHandler {
	return &AvatarsHandler{profileService: profileService, logger: logger}
}

// RegisterRoutes registers GET /avatars/{key...}. Avatars are public.
func (h *AvatarsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /avatars/{key...}", h.Get)
}

// Get handles GET /avatars/{key...}
func (h *AvatarsHandler) Get(w http.ResponseWriter, r *http.Request) {
	obj, body, err := h.profileService.OpenAvatar(r.Context(), r.PathValue("key"))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			writeError(w, h.logger, http.StatusNotFound, "not_found", "Avatar not found")
			return
		}
		h.logger.Error("Failed to open avatar", zap.Error(err))
		writeError(w, h.logger, http.StatusInternalServerError, "internal_error", "Failed to load avatar")
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", obj.ContentType)
	if obj.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	}
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if _, err := io.Copy(w, body); err != nil {
		h.logger.Warn("Failed to stream avatar", zap.Error(err))
	}
}
