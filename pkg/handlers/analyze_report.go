package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-notebook/pkg/auth"
	"github.com/ekaya-inc/ekaya-notebook/pkg/services"
)

// AnalyzeReportRequest for POST /api/analyze-report
type AnalyzeReportRequest struct {
	ReportText *string `json:"reportText"`
}

// reportErrors maps analysis failures to status and client message.
var reportErrors = []struct {
	err     error
	status  int
	code    string
	message string
}{
	{services.ErrReportTextRequired, http.StatusBadRequest, "validation_error", "reportText must be a non-empty string"},
	{services.ErrReportTooShort, http.StatusBadRequest, "validation_error", "Report text too short (minimum 10 characters)"},
	{services.ErrReportTooLong, http.StatusBadRequest, "validation_error", "Report text too long (maximum 50,000 characters)"},
	{services.ErrAIServiceNotConfigured, http.StatusInternalServerError, "ai_not_configured", "AI service not configured"},
	{services.ErrRateLimited, http.StatusTooManyRequests, "rate_limited", "Rate limit exceeded. Please try again later."},
	{services.ErrQuotaExceeded, http.StatusPaymentRequired, "quota_exceeded", "AI usage limit reached. Please add credits."},
	{services.ErrAnalysisFailed, http.StatusInternalServerError, "analysis_failed", "AI analysis failed"},
}

// AnalyzeReportHandler sends report text to the LLM gateway for categorization.
type AnalyzeReportHandler struct {
	reportService services.ReportAnalysisService
	logger        *zap.Logger
}

// NewAnalyzeReportHandler creates a new analyze-report handler.
func NewAnalyzeReportHandler(reportService services.ReportAnalysisService, logger *zap.Logger) *AnalyzeReportHandler {
	return &AnalyzeReportHandler{reportService: reportService, logger: logger}
}

// RegisterRoutes registers the analyze-report route. No database scope is needed.
func (h *AnalyzeReportHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("POST /api/analyze-report", authMiddleware.RequireAuth(h.Analyze))
}

// Analyze handles POST /api/analyze-report
func (h *AnalyzeReportHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeReportRequest
	if err := decodeJSON(w, r, &req); err != nil || req.ReportText == nil {
		writeError(w, h.logger, http.StatusBadRequest, "validation_error", "reportText must be a non-empty string")
		return
	}

	result, err := h.reportService.Analyze(r.Context(), *req.ReportText)
	if err != nil {
		for _, m := range reportErrors {
			if errors.Is(err, m.err) {
				writeError(w, h.logger, m.status, m.code, m.message)
				return
			}
		}
		h.logger.Error("Error in analyze-report", zap.Error(err))
		writeError(w, h.logger, http.StatusInternalServerError, "internal_error", "An error occurred processing your request")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, result)
}
