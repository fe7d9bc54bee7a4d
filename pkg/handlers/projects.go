package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-notebook/pkg/auth"
	"github.com/ekaya-inc/ekaya-notebook/pkg/models"
	"github.com/ekaya-inc/ekaya-notebook/pkg/services"
)

// ScopeMiddleware wraps a handler with a database scope, either the caller's
// user scope or the anonymous scope for public routes.
type ScopeMiddleware func(http.HandlerFunc) http.HandlerFunc

// ProjectListResponse for GET /api/projects
type ProjectListResponse struct {
	Projects []*models.Project `json:"projects"`
	Count    int               `json:"count"`
}

// CreateProjectRequest for POST /api/projects
type CreateProjectRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

// ProjectsHandler handles project-related HTTP requests.
type ProjectsHandler struct {
	projectService services.ProjectService
	logger         *zap.Logger
}

// NewProjectsHandler creates a new projects handler.
func NewProjectsHandler(projectService services.ProjectService, logger *zap.Logger) *ProjectsHandler {
	return &ProjectsHandler{
		projectService: projectService,
		logger:         logger,
	}
}

// RegisterRoutes registers the projects handler's routes on the given mux.
func (h *ProjectsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, userScope ScopeMiddleware) {
	mux.HandleFunc("GET /api/projects", authMiddleware.RequireAuth(userScope(h.List)))
	mux.HandleFunc("POST /api/projects", authMiddleware.RequireAuth(userScope(h.Create)))
	mux.HandleFunc("GET /api/projects/{id}", authMiddleware.RequireAuth(userScope(h.Get)))
	mux.HandleFunc("PUT /api/projects/{id}", authMiddleware.RequireAuth(userScope(h.Update)))
	mux.HandleFunc("DELETE /api/projects/{id}", authMiddleware.RequireAuth(userScope(h.Delete)))
}

// List handles GET /api/projects
func (h *ProjectsHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := RequireUserID(w, r, h.logger)
	if !ok {
		return
	}

	projects, err := h.projectService.List(r.Context(), userID)
	if err != nil {
		serviceFailure(w, h.logger, err, "Project", "fetch projects")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, ProjectListResponse{Projects: projects, Count: len(projects)})
}

// Create handles POST /api/projects
func (h *ProjectsHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := RequireUserID(w, r, h.logger)
	if !ok {
		return
	}

	var req CreateProjectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	project, err := h.projectService.Create(r.Context(), userID, req.Name, req.Description)
	if err != nil {
		serviceFailure(w, h.logger, err, "Project", "create project")
		return
	}

	writeJSON(w, h.logger, http.StatusCreated, project)
}

// Get handles GET /api/projects/{id}
// The project is returned with its analyses and datasets.
func (h *ProjectsHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := RequireUserID(w, r, h.logger)
	if !ok {
		return
	}
	projectID, ok := ParseID(w, r, h.logger)
	if !ok {
		return
	}

	detail, err := h.projectService.Get(r.Context(), userID, projectID)
	if err != nil {
		serviceFailure(w, h.logger, err, "Project", "fetch project")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, detail)
}

// Update handles PUT /api/projects/{id}
func (h *ProjectsHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := RequireUserID(w, r, h.logger)
	if !ok {
		return
	}
	projectID, ok := ParseID(w, r, h.logger)
	if !ok {
		return
	}

	var patch models.ProjectPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	project, err := h.projectService.Update(r.Context(), userID, projectID, patch)
	if err != nil {
		serviceFailure(w, h.logger, err, "Project", "update project")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, project)
}

// Delete handles DELETE /api/projects/{id}
func (h *ProjectsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := RequireUserID(w, r, h.logger)
	if !ok {
		return
	}
	projectID, ok := ParseID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.projectService.Delete(r.Context(), userID, projectID); err != nil {
		serviceFailure(w, h.logger, err, "Project", "delete project")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, MessageResponse{Message: "Project deleted successfully"})
}
