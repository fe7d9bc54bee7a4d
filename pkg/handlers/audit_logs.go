package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-notebook/pkg/auth"
	"github.com/ekaya-inc/ekaya-notebook/pkg/models"
	"github.com/ekaya-inc/ekaya-notebook/pkg/services"
)

// maxAuditLimit caps the limit query parameter.
const maxAuditLimit = 500

// AuditLogListResponse for GET /api/audit-logs
type AuditLogListResponse struct {
	Entries []*models.AuditLogEntry `json:"entries"`
	Count   int                     `json:"count"`
}

// AuditLogsHandler lists the caller's change history.
type AuditLogsHandler struct {
	auditService services.AuditService
	logger       *zap.Logger
}

// NewAuditLogsHandler creates a new audit log handler.
func NewAuditLogsHandler(auditService services.AuditService, logger *zap.Logger) *AuditLogsHandler {
	return &AuditLogsHandler{auditService: auditService, logger: logger}
}

// RegisterRoutes registers the audit log handler's routes on the given mux.
func (h *AuditLogsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, userScope ScopeMiddleware) {
	mux.HandleFunc("GET /api/audit-logs", authMiddleware.RequireAuth(userScope(h.List)))
}

// List handles GET /api/audit-logs?table=&record_id=&limit=
// table accepts singular entity names as well ("section").
func (h *AuditLogsHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	table := ""
	if raw := strings.ToLower(strings.TrimSpace(query.Get("table"))); raw != "" {
		resolved, audited := services.AuditTableFor(raw)
		if !audited {
			writeError(w, h.logger, http.StatusBadRequest, "invalid_parameter", "Unknown table: "+raw)
			return
		}
		table = resolved
	}

	recordID, ok := OptionalQueryUUID(w, r, "record_id", h.logger)
	if !ok {
		return
	}

	limit := 0
	if raw := query.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, h.logger, http.StatusBadRequest, "invalid_parameter", "limit must be a positive integer")
			return
		}
		limit = min(n, maxAuditLimit)
	}

	entries, err := h.auditService.List(r.Context(), table, recordID, limit)
	if err != nil {
		serviceFailure(w, h.logger, err, "Audit log", "fetch audit logs")
		return
	}
	if entries == nil {
		entries = []*models.AuditLogEntry{}
	}

	writeJSON(w, h.logger, http.StatusOK, AuditLogListResponse{Entries: entries, Count: len(entries)})
}
