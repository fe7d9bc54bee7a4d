package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-notebook/pkg/auth"
	"github.com/ekaya-inc/ekaya-notebook/pkg/models"
	"github.com/ekaya-inc/ekaya-notebook/pkg/services"
)

// SectionListResponse for GET /api/sections
type SectionListResponse struct {
	Sections []*models.Section `json:"sections"`
	Count    int               `json:"count"`
}

// CreateSectionRequest for POST /api/sections. Without SectionOrder the
// section is appended after the current last one.
type CreateSectionRequest struct {
	AnalysisID   string  `json:"analysis_id"`
	Title        string  `json:"title"`
	Content      *string `json:"content"`
	SectionOrder *int    `json:"section_order"`
}

// ReorderSectionsRequest for PATCH /api/sections/reorder
type ReorderSectionsRequest struct {
	Sections []models.SectionOrderUpdate `json:"sections"`
}

// SectionsHandler handles section HTTP requests.
type SectionsHandler struct {
	sectionService services.SectionService
	logger         *zap.Logger
}

// NewSectionsHandler creates a new sections handler.
func NewSectionsHandler(sectionService services.SectionService, logger *zap.Logger) *SectionsHandler {
	return &SectionsHandler{
		sectionService: sectionService,
		logger:         logger,
	}
}

// RegisterRoutes registers the sections handler's routes on the given mux.
func (h *SectionsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, userScope ScopeMiddleware) {
	mux.HandleFunc("GET /api/sections", authMiddleware.RequireAuth(userScope(h.List)))
	mux.HandleFunc("POST /api/sections", authMiddleware.RequireAuth(userScope(h.Create)))
	mux.HandleFunc("PATCH /api/sections/reorder", authMiddleware.RequireAuth(userScope(h.Reorder)))
	mux.HandleFunc("GET /api/sections/{id}", authMiddleware.RequireAuth(userScope(h.Get)))
	mux.HandleFunc("PUT /api/sections/{id}", authMiddleware.RequireAuth(userScope(h.Update)))
	mux.HandleFunc("DELETE /api/sections/{id}", authMiddleware.RequireAuth(userScope(h.Delete)))
}

// List handles GET /api/sections?analysis_id=
func (h *SectionsHandler) List(w http.ResponseWriter, r *http.Request) {
	analysisID, ok := RequireQueryUUID(w, r, "analysis_id", h.logger)
	if !ok {
		return
	}

	sections, err := h.sectionService.ListByAnalysis(r.Context(), analysisID)
	if err != nil {
		serviceFailure(w, h.logger, err, "Section", "fetch sections")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, SectionListResponse{Sections: sections, Count: len(sections)})
}

// Create handles POST /api/sections
func (h *SectionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := RequireUserID(w, r, h.logger)
	if !ok {
		return
	}

	var req CreateSectionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	analysisID, ok := parentID(w, r, h.logger, req.AnalysisID, "analysis_id")
	if !ok {
		return
	}

	section, err := h.sectionService.Create(r.Context(), userID, analysisID, req.Title, req.Content, req.SectionOrder)
	if err != nil {
		serviceFailure(w, h.logger, err, "Analysis", "create section")
		return
	}

	writeJSON(w, h.logger, http.StatusCreated, section)
}

// Get handles GET /api/sections/{id}
func (h *SectionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	sectionID, ok := ParseID(w, r, h.logger)
	if !ok {
		return
	}

	section, err := h.sectionService.Get(r.Context(), sectionID)
	if err != nil {
		serviceFailure(w, h.logger, err, "Section", "fetch section")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, section)
}

// Update handles PUT /api/sections/{id}
func (h *SectionsHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := RequireUserID(w, r, h.logger)
	if !ok {
		return
	}
	sectionID, ok := ParseID(w, r, h.logger)
	if !ok {
		return
	}

	var patch models.SectionPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	section, err := h.sectionService.Update(r.Context(), userID, sectionID, patch)
	if err != nil {
		serviceFailure(w, h.logger, err, "Section", "update section")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, section)
}

// Delete handles DELETE /api/sections/{id}
func (h *SectionsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := RequireUserID(w, r, h.logger)
	if !ok {
		return
	}
	sectionID, ok := ParseID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.sectionService.Delete(r.Context(), userID, sectionID); err != nil {
		serviceFailure(w, h.logger, err, "Section", "delete section")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, MessageResponse{Message: "Section deleted successfully"})
}

// Reorder handles PATCH /api/sections/reorder
func (h *SectionsHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	userID, ok := RequireUserID(w, r, h.logger)
	if !ok {
		return
	}

	var req ReorderSectionsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	if err := h.sectionService.Reorder(r.Context(), userID, req.Sections); err != nil {
		serviceFailure(w, h.logger, err, "Section", "reorder sections")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, MessageResponse{Message: "Sections reordered successfully"})
}
