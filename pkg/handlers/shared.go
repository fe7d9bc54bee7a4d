package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-notebook/pkg/services"
)

// SharedHandler serves public projects by share token without authentication.
type SharedHandler struct {
	shareService services.ShareService
	logger       *zap.Logger
}

// NewSharedHandler creates a new shared-project handler.
func NewSharedHandler(shareService services.ShareService, logger *zap.Logger) *SharedHandler {
	return &SharedHandler{shareService: shareService, logger: logger}
}

// RegisterRoutes registers GET /api/shared/{token} under the anonymous scope.
func (h *SharedHandler) RegisterRoutes(mux *http.ServeMux, anonScope ScopeMiddleware) {
	mux.HandleFunc("GET /api/shared/{token}", anonScope(h.Get))
}

// Get handles GET /api/shared/{token}?analysis_id=
// Unknown and private tokens are indistinguishable: both are 404.
func (h *SharedHandler) Get(w http.ResponseWriter, r *http.Request) {
	analysisID, ok := OptionalQueryUUID(w, r, "analysis_id", h.logger)
	if !ok {
		return
	}

	shared, err := h.shareService.GetShared(r.Context(), r.PathValue("token"), analysisID)
	if err != nil {
		serviceFailure(w, h.logger, err, "Project", "fetch shared project")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, shared)
}
