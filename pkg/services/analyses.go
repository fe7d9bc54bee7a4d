package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-notebook/pkg/models"
	"github.com/ekaya-inc/ekaya-notebook/pkg/repositories"
)

// AnalysisService defines the interface for analysis operations.
// Reads follow row-level security, so analyses of public projects are
// readable by anyone signed in; writes require owning the parent project.
type AnalysisService interface {
	// ListByProject returns analyses oldest first.
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.Analysis, error)
	// Get returns the analysis with its sections in order.
	Get(ctx context.Context, id uuid.UUID) (*models.AnalysisDetail, error)
	Create(ctx context.Context, userID, projectID uuid.UUID, name string, labels []string) (*models.Analysis, error)
	Update(ctx context.Context, userID, id uuid.UUID, patch models.AnalysisPatch) (*models.Analysis, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

type analysisService struct {
	ownership
	sections repositories.SectionRepository
	audit    AuditService
	logger   *zap.Logger
}

// NewAnalysisService creates a new analysis service with its dependencies.
func NewAnalysisService(
	projects repositories.ProjectRepository,
	analyses repositories.AnalysisRepository,
	sections repositories.SectionRepository,
	audit AuditService,
	logger *zap.Logger,
) AnalysisService {
	return &analysisService{
		ownership: ownership{projects: projects, analyses: analyses},
		sections:  sections,
		audit:     audit,
		logger:    logger.Named("analysis-service"),
	}
}

var _ AnalysisService = (*analysisService)(nil)

func (s *analysisService) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.Analysis, error) {
	return s.analyses.ListByProject(ctx, projectID)
}

func (s *analysisService) Get(ctx context.Context, id uuid.UUID) (*models.AnalysisDetail, error) {
	analysis, err := s.analyses.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	sections, err := s.sections.ListByAnalysis(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	return &models.AnalysisDetail{Analysis: analysis, Sections: sections}, nil
}

func (s *analysisService) Create(ctx context.Context, userID, projectID uuid.UUID, name string, labels []string) (*models.Analysis, error) {
	if _, err := s.requireProject(ctx, userID, projectID); err != nil {
		return nil, err
	}

	analysis := &models.Analysis{
		ProjectID: projectID,
		Name:      strings.TrimSpace(name),
		Labels:    labels,
	}
	if err := s.analyses.Create(ctx, analysis); err != nil {
		return nil, err
	}

	s.logger.Debug("Created analysis",
		zap.String("analysis_id", analysis.ID.String()),
		zap.String("project_id", projectID.String()))
	s.audit.LogCreate(ctx, models.AuditTableAnalyses, analysis.ID, analysis)
	return analysis, nil
}

func (s *analysisService) Update(ctx context.Context, userID, id uuid.UUID, patch models.AnalysisPatch) (*models.Analysis, error) {
	analysis, err := s.requireAnalysis(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	before := *analysis

	patch.Apply(analysis)
	if err := s.analyses.Update(ctx, analysis); err != nil {
		return nil, err
	}

	s.audit.LogUpdate(ctx, models.AuditTableAnalyses, id, &before, analysis)
	return analysis, nil
}

func (s *analysisService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	analysis, err := s.requireAnalysis(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.analyses.Delete(ctx, id); err != nil {
		return err
	}

	s.audit.LogDelete(ctx, models.AuditTableAnalyses, id, analysis)
	return nil
}
