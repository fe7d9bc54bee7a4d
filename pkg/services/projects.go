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

// ProjectService defines the interface for project operations.
// Every method acts on behalf of userID and rejects projects it does not own.
type ProjectService interface {
	// List returns the user's projects, newest first.
	List(ctx context.Context, userID uuid.UUID) ([]*models.Project, error)
	// Get returns the project with its analyses and datasets.
	Get(ctx context.Context, userID, id uuid.UUID) (*models.ProjectDetail, error)
	Create(ctx context.Context, userID uuid.UUID, name string, description *string) (*models.Project, error)
	Update(ctx context.Context, userID, id uuid.UUID, patch models.ProjectPatch) (*models.Project, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

type projectService struct {
	ownership
	datasets repositories.DatasetRepository
	audit    AuditService
	logger   *zap.Logger
}

// NewProjectService creates a new project service with its dependencies.
func NewProjectService(
	projects repositories.ProjectRepository,
	analyses repositories.AnalysisRepository,
	datasets repositories.DatasetRepository,
	audit AuditService,
	logger *zap.Logger,
) ProjectService {
	return &projectService{
		ownership: ownership{projects: projects, analyses: analyses},
		datasets:  datasets,
		audit:     audit,
		logger:    logger.Named("project-service"),
	}
}

var _ ProjectService = (*projectService)(nil)

func (s *projectService) List(ctx context.Context, userID uuid.UUID) ([]*models.Project, error) {
	return s.projects.ListByUser(ctx, userID)
}

func (s *projectService) Get(ctx context.Context, userID, id uuid.UUID) (*models.ProjectDetail, error) {
	project, err := s.requireProject(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	// Queries share one scoped connection and therefore run in sequence.
	analyses, err := s.analyses.ListByProject(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	datasets, err := s.datasets.ListByProject(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}

	return &models.ProjectDetail{Project: project, Analyses: analyses, Datasets: datasets}, nil
}

func (s *projectService) Create(ctx context.Context, userID uuid.UUID, name string, description *string) (*models.Project, error) {
	project := &models.Project{
		UserID:      userID,
		Name:        strings.TrimSpace(name),
		Description: description,
	}
	if err := s.projects.Create(ctx, project); err != nil {
		return nil, err
	}

	s.logger.Info("Created project",
		zap.String("project_id", project.ID.String()),
		zap.String("user_id", userID.String()))
	s.audit.LogCreate(ctx, models.AuditTableProjects, project.ID, project)
	return project, nil
}

func (s *projectService) Update(ctx context.Context, userID, id uuid.UUID, patch models.ProjectPatch) (*models.Project, error) {
	project, err := s.requireProject(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	before := *project

	if patch.Name != nil {
		trimmed := strings.TrimSpace(*patch.Name)
		patch.Name = &trimmed
	}
	patch.Apply(project)

	if err := s.projects.Update(ctx, project); err != nil {
		return nil, err
	}

	s.audit.LogUpdate(ctx, models.AuditTableProjects, id, &before, project)
	return project, nil
}

func (s *projectService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	project, err := s.requireProject(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.projects.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("Deleted project",
		zap.String("project_id", id.String()),
		zap.String("user_id", userID.String()))
	s.audit.LogDelete(ctx, models.AuditTableProjects, id, project)
	return nil
}
