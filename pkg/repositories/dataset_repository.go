package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ekaya-inc/ekaya-notebook/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-notebook/pkg/database"
	"github.com/ekaya-inc/ekaya-notebook/pkg/models"
)

// DatasetRepository defines the interface for dataset data access.
type DatasetRepository interface {
	Create(ctx context.Context, dataset *models.Dataset) error
	Get(ctx context.Context, id uuid.UUID) (*models.Dataset, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.Dataset, error)
	Update(ctx context.Context, dataset *models.Dataset) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type datasetRepository struct{}

// NewDatasetRepository creates a new dataset repository.
func NewDatasetRepository() DatasetRepository {
	return &datasetRepository{}
}

var _ DatasetRepository = (*datasetRepository)(nil)

func (r *datasetRepository) Create(ctx context.Context, dataset *models.Dataset) error {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return fmt.Errorf("no user scope in context")
	}

	if dataset.Name == "" {
		dataset.Name = models.DefaultDatasetName
	}

	query := `
		INSERT INTO datasets (project_id, name, description)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`

	err := scope.Conn.QueryRow(ctx, query, dataset.ProjectID, dataset.Name, dataset.Description).
		Scan(&dataset.ID, &dataset.CreatedAt, &dataset.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create dataset: %w", err)
	}

	return nil
}

func (r *datasetRepository) Get(ctx context.Context, id uuid.UUID) (*models.Dataset, error) {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no user scope in context")
	}

	query := `
		SELECT id, project_id, name, description, created_at, updated_at
		FROM datasets
		WHERE id = $1`

	dataset, err := scanDataset(scope.Conn.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get dataset: %w", err)
	}

	return dataset, nil
}

func (r *datasetRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.Dataset, error) {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no user scope in context")
	}

	query := `
		SELECT id, project_id, name, description, created_at, updated_at
		FROM datasets
		WHERE project_id = $1
		ORDER BY created_at ASC`

	rows, err := scope.Conn.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}
	defer rows.Close()

	datasets := make([]*models.Dataset, 0)
	for rows.Next() {
		d, err := scanDataset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dataset: %w", err)
		}
		datasets = append(datasets, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating datasets: %w", err)
	}

	return datasets, nil
}

func (r *datasetRepository) Update(ctx context.Context, dataset *models.Dataset) error {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return fmt.Errorf("no user scope in context")
	}

	query := `
		UPDATE datasets
		SET name = $2, description = $3, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`

	err := scope.Conn.QueryRow(ctx, query, dataset.ID, dataset.Name, dataset.Description).
		Scan(&dataset.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("failed to update dataset: %w", err)
	}

	return nil
}

func (r *datasetRepository) Delete(ctx context.Context, id uuid.UUID) error {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return fmt.Errorf("no user scope in context")
	}

	tag, err := scope.Conn.Exec(ctx, `DELETE FROM datasets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete dataset: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func scanDataset(row pgx.Row) (*models.Dataset, error) {
	var d models.Dataset
	if err := row.Scan(&d.ID, &d.ProjectID, &d.Name, &d.Description, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	return &d, nil
}
