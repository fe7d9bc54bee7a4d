package services

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-notebook/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-notebook/pkg/models"
	"github.com/ekaya-inc/ekaya-notebook/pkg/repositories"
)

// shareTokenLength is the hex length of the 32 random bytes minted by the database.
const shareTokenLength = 64

// ShareService resolves share links to read-only project views.
type ShareService interface {
	// GetShared returns the public project behind token with the sections of
	// analysisID, or of its first analysis when analysisID is nil.
	// Unknown, malformed and private tokens all return ErrNotFound.
	GetShared(ctx context.Context, token string, analysisID *uuid.UUID) (*models.SharedProject, error)
}

type shareService struct {
	projects repositories.ProjectRepository
	analyses repositories.AnalysisRepository
	datasets repositories.DatasetRepository
	sections repositories.SectionRepository
	logger   *zap.Logger
}

// NewShareService creates a new share service.
func NewShareService(
	projects repositories.ProjectRepository,
	analyses repositories.AnalysisRepository,
	datasets repositories.DatasetRepository,
	sections repositories.SectionRepository,
	logger *zap.Logger,
) ShareService {
	return &shareService{
		projects: projects,
		analyses: analyses,
		datasets: datasets,
		sections: sections,
		logger:   logger.Named("share-service"),
	}
}

var _ ShareService = (*shareService)(nil)

func (s *shareService) GetShared(ctx context.Context, token string, analysisID *uuid.UUID) (*models.SharedProject, error) {
	if !validShareToken(token) {
		return nil, apperrors.ErrNotFound
	}

	project, err := s.projects.GetByShareToken(ctx, token)
	if err != nil {
		return nil, err
	}

	analyses, err := s.analyses.ListByProject(ctx, project.ID)
	if err != nil {
		return nil, fmt.Errorf("list shared analyses: %w", err)
	}
	datasets, err := s.datasets.ListByProject(ctx, project.ID)
	if err != nil {
		return nil, fmt.Errorf("list shared datasets: %w", err)
	}

	shared := &models.SharedProject{
		ID:          project.ID.String(),
		Name:        project.Name,
		Description: project.Description,
		CreatedAt:   project.CreatedAt,
		Analyses:    analyses,
		Datasets:    datasets,
		Sections:    []*models.Section{},
	}

	selected, err := pickAnalysis(analyses, analysisID)
	if err != nil {
		return nil, err
	}
	if selected == nil {
		return shared, nil
	}

	sections, err := s.sections.ListByAnalysis(ctx, selected.ID)
	if err != nil {
		return nil, fmt.Errorf("list shared sections: %w", err)
	}
	id := selected.ID.String()
	shared.SelectedAnalysisID = &id
	shared.Sections = sections

	s.logger.Debug("Resolved share link",
		zap.String("project_id", shared.ID),
		zap.Int("analyses", len(analyses)))
	return shared, nil
}

// pickAnalysis returns the requested analysis, the first one, or nil for a
// project without analyses. A requested id outside the project is not found.
func pickAnalysis(analyses []*models.Analysis, want *uuid.UUID) (*models.Analysis, error) {
	if want == nil {
		if len(analyses) == 0 {
			return nil, nil
		}
		return analyses[0], nil
	}
	for _, a := range analyses {
		if a.ID == *want {
			return a, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func validShareToken(token string) bool {
	if len(token) != shareTokenLength {
		return false
	}
	_, err := hex.DecodeString(token)
	return err == nil
}
