package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-notebook/pkg/auth"
	"github.com/ekaya-inc/ekaya-notebook/pkg/models"
	"github.com/ekaya-inc/ekaya-notebook/pkg/services"
)

// DatasetListResponse for GET /api/datasets
type DatasetListResponse struct {
	Datasets []*models.Dataset `json:"datasets"`
	Count    int               `json:"count"`
}

// CreateDatasetRequest for POST /api/datasets
type CreateDatasetRequest struct {
	ProjectID   string  `json:"project_id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

// DatasetsHandler handles dataset HTTP requests.
type DatasetsHandler struct {
	datasetService services.DatasetService
	logger         *zap.Logger
}

// NewDatasetsHandler creates a new datasets handler.
func NewDatasetsHandler(datasetService services.DatasetService, logger *zap.Logger) *DatasetsHandler {
	return &DatasetsHandler{
		datasetService: datasetService,
		logger:         logger,
	}
}

// RegisterRoutes registers the datasets handler's routes on the given mux.
func (h *DatasetsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, userScope ScopeMiddleware) {
	mux.HandleFunc("GET /api/datasets", authMiddleware.RequireAuth(userScope(h.List)))
	mux.HandleFunc("POST /api/datasets", authMiddleware.RequireAuth(userScope(h.Create)))
	mux.HandleFunc("PUT /api/datasets/{id}", authMiddleware.RequireAuth(userScope(h.Update)))
	mux.HandleFunc("DELETE /api/datasets/{id}", authMiddleware.RequireAuth(userScope(h.Delete)))
}

// List handles GET /api/datasets?project_id=
func (h *DatasetsHandler) List(w http.ResponseWriter, r *http.Request) {
	projectID, ok := RequireQueryUUID(w, r, "project_id", h.logger)
	if !ok {
		return
	}

	datasets, err := h.datasetService.ListByProject(r.Context(), projectID)
	if err != nil {
		serviceFailure(w, h.logger, err, "Dataset", "fetch datasets")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, DatasetListResponse{Datasets: datasets, Count: len(datasets)})
}

// Create handles POST /api/datasets
func (h *DatasetsHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := RequireUserID(w, r, h.logger)
	if !ok {
		return
	}

	var req CreateDatasetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	projectID, ok := parentID(w, r, h.logger, req.ProjectID, "project_id")
	if !ok {
		return
	}

	dataset, err := h.datasetService.Create(r.Context(), userID, projectID, req.Name, req.Description)
	if err != nil {
		serviceFailure(w, h.logger, err, "Project", "create dataset")
		return
	}

	writeJSON(w, h.logger, http.StatusCreated, dataset)
}

// Update handles PUT /api/datasets/{id}
func (h *DatasetsHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := RequireUserID(w, r, h.logger)
	if !ok {
		return
	}
	datasetID, ok := ParseID(w, r, h.logger)
	if !ok {
		return
	}

	var patch models.DatasetPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	dataset, err := h.datasetService.Update(r.Context(), userID, datasetID, patch)
	if err != nil {
		serviceFailure(w, h.logger, err, "Dataset", "update dataset")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, dataset)
}

// Delete handles DELETE /api/datasets/{id}
func (h *DatasetsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := RequireUserID(w, r, h.logger)
	if !ok {
		return
	}
	datasetID, ok := ParseID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.datasetService.Delete(r.Context(), userID, datasetID); err != nil {
		serviceFailure(w, h.logger, err, "Dataset", "delete dataset")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, MessageResponse{Message: "Dataset deleted successfully"})
}
