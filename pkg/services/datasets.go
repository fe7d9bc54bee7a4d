package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-notebook/pkg/models"
	"github.com/ekaya-inc/ekaya-notebook/pkg/repositories"
)

// DatasetService defines the interface for dataset operations.
type DatasetService interface {
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.Dataset, error)
	Create(ctx context.Context, userID, projectID uuid.UUID, name string, description *string) (*models.Dataset, error)
	Update(ctx context.Context, userID, id uuid.UUID, patch models.DatasetPatch) (*models.Dataset, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

type datasetService struct {
	ownership
	datasets repositories.DatasetRepository
	audit    AuditService
	logger   *zap.Logger
}

// NewDatasetService creates a new dataset service with its dependencies.
func NewDatasetService(
	projects repositories.ProjectRepository,
	datasets repositories.DatasetRepository,
	audit AuditService,
	logger *zap.Logger,
) DatasetService {
	return &datasetService{
		ownership: ownership{projects: projects},
		datasets:  datasets,
		audit:     audit,
		logger:    logger.Named("dataset-service"),
	}
}

var _ DatasetService = (*datasetService)(nil)

func (s *datasetService) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.Dataset, error) {
	return s.datasets.ListByProject(ctx, projectID)
}

func (s *datasetService) Create(ctx context.Context, userID, projectID uuid.UUID, name string, description *string) (*models.Dataset, error) {
	if _, err := s.requireProject(ctx, userID, projectID); err != nil {
		return nil, err
	}

	dataset := &models.Dataset{
		ProjectID:   projectID,
		Name:        strings.TrimSpace(name),
		Description: description,
	}
	if err := s.datasets.Create(ctx, dataset); err != nil {
		return nil, err
	}

	s.audit.LogCreate(ctx, models.AuditTableDatasets, dataset.ID, dataset)
	return dataset, nil
}

func (s *datasetService) Update(ctx context.Context, userID, id uuid.UUID, patch models.DatasetPatch) (*models.Dataset, error) {
	dataset, err := s.requireDataset(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	before := *dataset

	patch.Apply(dataset)
	if err := s.datasets.Update(ctx, dataset); err != nil {
		return nil, err
	}

	s.audit.LogUpdate(ctx, models.AuditTableDatasets, id, &before, dataset)
	return dataset, nil
}

func (s *datasetService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	dataset, err := s.requireDataset(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.datasets.Delete(ctx, id); err != nil {
		return err
	}

	s.audit.LogDelete(ctx, models.AuditTableDatasets, id, dataset)
	return nil
}

func (s *datasetService) requireDataset(ctx context.Context, userID, id uuid.UUID) (*models.Dataset, error) {
	dataset, err := s.datasets.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireParent(ctx, userID, dataset.ProjectID); err != nil {
		return nil, err
	}
	return dataset, nil
}
