package handlers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-notebook/pkg/auth"
	"github.com/ekaya-inc/ekaya-notebook/pkg/models"
	"github.com/ekaya-inc/ekaya-notebook/pkg/services"
)

// AnalysisListResponse for GET /api/analyses
type AnalysisListResponse struct {
	Analyses []*models.Analysis `json:"analyses"`
	Count    int                `json:"count"`
}

// CreateAnalysisRequest for POST /api/analyses. ProjectID may instead be
// given as the project_id query parameter.
type CreateAnalysisRequest struct {
	ProjectID string   `json:"project_id"`
	Name      string   `json:"name"`
	Labels    []string `json:"labels"`
}

// AnalysesHandler handles analysis HTTP requests.
type AnalysesHandler struct {
	analysisService services.AnalysisService
	logger          *zap.Logger
}

// NewAnalysesHandler creates a new analyses handler.
func NewAnalysesHandler(analysisService services.AnalysisService, logger *zap.Logger) *AnalysesHandler {
	return &AnalysesHandler{
		analysisService: analysisService,
		logger:          logger,
	}
}

// RegisterRoutes registers the analyses handler's routes on the given mux.
func (h *AnalysesHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, userScope ScopeMiddleware) {
	mux.HandleFunc("GET /api/analyses", authMiddleware.RequireAuth(userScope(h.List)))
	mux.HandleFunc("POST /api/analyses", authMiddleware.RequireAuth(userScope(h.Create)))
	mux.HandleFunc("GET /api/analyses/{id}", authMiddleware.RequireAuth(userScope(h.Get)))
	mux.HandleFunc("PUT /api/analyses/{id}", authMiddleware.RequireAuth(userScope(h.Update)))
	mux.HandleFunc("DELETE /api/analyses/{id}", authMiddleware.RequireAuth(userScope(h.Delete)))
}

// List handles GET /api/analyses?project_id=
func (h *AnalysesHandler) List(w http.ResponseWriter, r *http.Request) {
	projectID, ok := RequireQueryUUID(w, r, "project_id", h.logger)
	if !ok {
		return
	}

	analyses, err := h.analysisService.ListByProject(r.Context(), projectID)
	if err != nil {
		serviceFailure(w, h.logger, err, "Analysis", "fetch analyses")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, AnalysisListResponse{Analyses: analyses, Count: len(analyses)})
}

// Create handles POST /api/analyses
func (h *AnalysesHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := RequireUserID(w, r, h.logger)
	if !ok {
		return
	}

	var req CreateAnalysisRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	projectID, ok := parentID(w, r, h.logger, req.ProjectID, "project_id")
	if !ok {
		return
	}

	analysis, err := h.analysisService.Create(r.Context(), userID, projectID, req.Name, req.Labels)
	if err != nil {
		serviceFailure(w, h.logger, err, "Project", "create analysis")
		return
	}

	writeJSON(w, h.logger, http.StatusCreated, analysis)
}

// Get handles GET /api/analyses/{id}
// The analysis is returned with its sections in order.
func (h *AnalysesHandler) Get(w http.ResponseWriter, r *http.Request) {
	analysisID, ok := ParseID(w, r, h.logger)
	if !ok {
		return
	}

	detail, err := h.analysisService.Get(r.Context(), analysisID)
	if err != nil {
		serviceFailure(w, h.logger, err, "Analysis", "fetch analysis")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, detail)
}

// Update handles PUT /api/analyses/{id}
func (h *AnalysesHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := RequireUserID(w, r, h.logger)
	if !ok {
		return
	}
	analysisID, ok := ParseID(w, r, h.logger)
	if !ok {
		return
	}

	var patch models.AnalysisPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	analysis, err := h.analysisService.Update(r.Context(), userID, analysisID, patch)
	if err != nil {
		serviceFailure(w, h.logger, err, "Analysis", "update analysis")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, analysis)
}

// Delete handles DELETE /api/analyses/{id}
func (h *AnalysesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := RequireUserID(w, r, h.logger)
	if !ok {
		return
	}
	analysisID, ok := ParseID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.analysisService.Delete(r.Context(), userID, analysisID); err != nil {
		serviceFailure(w, h.logger, err, "Analysis", "delete analysis")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, MessageResponse{Message: "Analysis deleted successfully"})
}

// parentID resolves a parent id given in the body, falling back to the query
// parameter of the same name.
func parentID(w http.ResponseWriter, r *http.Request, logger *zap.Logger, fromBody, name string) (uuid.UUID, bool) {
	raw := strings.TrimSpace(fromBody)
	if raw == "" {
		raw = strings.TrimSpace(r.URL.Query().Get(name))
	}
	if raw == "" {
		writeError(w, logger, http.StatusBadRequest, "missing_parameter", name+" is required")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, logger, http.StatusBadRequest, "invalid_parameter", "Invalid "+name+" format")
		return uuid.Nil, false
	}
	return id, true
}
