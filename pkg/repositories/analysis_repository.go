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

// AnalysisRepository defines the interface for analysis data access.
type AnalysisRepository interface {
	Create(ctx context.Context, analysis *models.Analysis) error
	Get(ctx context.Context, id uuid.UUID) (*models.Analysis, error)
	// ListByProject returns a project's analyses, oldest first.
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.Analysis, error)
	Update(ctx context.Context, analysis *models.Analysis) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type analysisRepository struct{}

// NewAnalysisRepository creates a new analysis repository.
func NewAnalysisRepository() AnalysisRepository {
	return &analysisRepository{}
}

var _ AnalysisRepository = (*analysisRepository)(nil)

func (r *analysisRepository) Create(ctx context.Context, analysis *models.Analysis) error {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return fmt.Errorf("no user scope in context")
	}

	if analysis.Name == "" {
		analysis.Name = models.DefaultAnalysisName
	}
	if analysis.Labels == nil {
		analysis.Labels = []string{}
	}

	query := `
		INSERT INTO analyses (project_id, name, labels)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`

	err := scope.Conn.QueryRow(ctx, query, analysis.ProjectID, analysis.Name, analysis.Labels).
		Scan(&analysis.ID, &analysis.CreatedAt, &analysis.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create analysis: %w", err)
	}

	return nil
}

func (r *analysisRepository) Get(ctx context.Context, id uuid.UUID) (*models.Analysis, error) {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no user scope in context")
	}

	query := `
		SELECT id, project_id, name, labels, created_at, updated_at
		FROM analyses
		WHERE id = $1`

	analysis, err := scanAnalysis(scope.Conn.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get analysis: %w", err)
	}

	return analysis, nil
}

func (r *analysisRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.Analysis, error) {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no user scope in context")
	}

	query := `
		SELECT id, project_id, name, labels, created_at, updated_at
		FROM analyses
		WHERE project_id = $1
		ORDER BY created_at ASC`

	rows, err := scope.Conn.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	defer rows.Close()

	analyses := make([]*models.Analysis, 0)
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan analysis: %w", err)
		}
		analyses = append(analyses, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating analyses: %w", err)
	}

	return analyses, nil
}

func (r *analysisRepository) Update(ctx context.Context, analysis *models.Analysis) error {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return fmt.Errorf("no user scope in context")
	}

	if analysis.Labels == nil {
		analysis.Labels = []string{}
	}

	query := `
		UPDATE analyses
		SET name = $2, labels = $3, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`

	err := scope.Conn.QueryRow(ctx, query, analysis.ID, analysis.Name, analysis.Labels).
		Scan(&analysis.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("failed to update analysis: %w", err)
	}

	return nil
}

// Delete removes an analysis; its sections cascade.
func (r *analysisRepository) Delete(ctx context.Context, id uuid.UUID) error {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return fmt.Errorf("no user scope in context")
	}

	tag, err := scope.Conn.Exec(ctx, `DELETE FROM analyses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete analysis: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func scanAnalysis(row pgx.Row) (*models.Analysis, error) {
	var a models.Analysis
	if err := row.Scan(&a.ID, &a.ProjectID, &a.Name, &a.Labels, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	if a.Labels == nil {
		a.Labels = []string{}
	}
	return &a, nil
}
