package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf16"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-notebook/pkg/llm"
	"github.com/ekaya-inc/ekaya-notebook/pkg/logging"
	"github.com/ekaya-inc/ekaya-notebook/pkg/models"
	"github.com/ekaya-inc/ekaya-notebook/pkg/prompts"
)

// Report text bounds after trimming, in UTF-16 code units as the web
// client counts them. Characters outside the Basic Multilingual Plane
// count twice.
const (
	MinReportLength = 10
	MaxReportLength = 50000
)

var (
	ErrReportTextRequired     = errors.New("report text required")
	ErrReportTooShort         = errors.New("report text too short")
	ErrReportTooLong          = errors.New("report text too long")
	ErrAIServiceNotConfigured = errors.New("ai service not configured")
	ErrRateLimited            = errors.New("ai gateway rate limited")
	ErrQuotaExceeded          = errors.New("ai gateway quota exceeded")
	ErrAnalysisFailed         = errors.New("ai analysis failed")
)

// ReportAnalysisService sends report text to the LLM gateway and returns
// the three-way categorization.
type ReportAnalysisService interface {
	Analyze(ctx context.Context, reportText string) (*models.ReportCategories, error)
}

type reportAnalysisService struct {
	client llm.LLMClient
	logger *zap.Logger
}

// NewReportAnalysisService creates the service. A nil client is allowed and
// makes every call fail with ErrAIServiceNotConfigured.
func NewReportAnalysisService(client llm.LLMClient, logger *zap.Logger) ReportAnalysisService {
	return &reportAnalysisService{
		client: client,
		logger: logger.Named("report-analysis"),
	}
}

var _ ReportAnalysisService = (*reportAnalysisService)(nil)

// ValidateReportText trims text and checks its length.
func ValidateReportText(text string) (string, error) {
	if text == "" {
		return "", ErrReportTextRequired
	}
	trimmed := strings.TrimSpace(text)
	n := reportLength(trimmed)
	switch {
	case n < MinReportLength:
		return "", ErrReportTooShort
	case n > MaxReportLength:
		return "", ErrReportTooLong
	}
	return trimmed, nil
}

func reportLength(text string) int {
	n := 0
	for _, r := range text {
		n += utf16.RuneLen(r)
	}
	return n
}

func (s *reportAnalysisService) Analyze(ctx context.Context, reportText string) (*models.ReportCategories, error) {
	text, err := ValidateReportText(reportText)
	if err != nil {
		return nil, err
	}
	if s.client == nil {
		s.logger.Error("LLM gateway is not configured")
		return nil, ErrAIServiceNotConfigured
	}

	s.logger.Info("Analyzing report", zap.Int("length", reportLength(text)))

	content, err := s.client.GenerateResponse(ctx, text, prompts.ReportAnalysisSystem, prompts.ReportAnalysisTemperature)
	if err != nil {
		return nil, s.mapGatewayError(err)
	}

	return prompts.ParseReportAnalysis(content), nil
}

func (s *reportAnalysisService) mapGatewayError(err error) error {
	status := llm.StatusCode(err)
	s.logger.Error("AI gateway error",
		zap.Int("status", status),
		zap.String("error_type", string(llm.GetErrorType(err))),
		zap.String("error", logging.SanitizeError(err)))

	switch status {
	case http.StatusTooManyRequests:
		return ErrRateLimited
	case http.StatusPaymentRequired:
		return ErrQuotaExceeded
	default:
		return fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}
}
