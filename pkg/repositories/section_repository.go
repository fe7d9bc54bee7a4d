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

// SectionRepository defines the interface for section data access.
type SectionRepository interface {
	// Create inserts a section. A nil order appends it after the current
	// last section (0 for the first).
	Create(ctx context.Context, section *models.Section, order *int) error
	Get(ctx context.Context, id uuid.UUID) (*models.Section, error)
	// ListByAnalysis returns sections by section_order ascending.
	ListByAnalysis(ctx context.Context, analysisID uuid.UUID) ([]*models.Section, error)
	Update(ctx context.Context, section *models.Section) error
	// UpdateOrder rewrites order keys in one transaction. Any missing id
	// aborts the whole update with ErrNotFound.
	UpdateOrder(ctx context.Context, updates []models.SectionOrderUpdate) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type sectionRepository struct{}

// NewSectionRepository creates a new section repository.
func NewSectionRepository() SectionRepository {
	return &sectionRepository{}
}

var _ SectionRepository = (*sectionRepository)(nil)

const sectionColumns = `id, analysis_id, title, content, section_order, created_at, updated_at`

func (r *sectionRepository) Create(ctx context.Context, section *models.Section, order *int) error {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return fmt.Errorf("no user scope in context")
	}

	if section.Title == "" {
		section.Title = models.DefaultSectionTitle
	}

	// $4 NULL means "append": max+1 is computed in the same statement.
	query := `
		INSERT INTO sections (analysis_id, title, content, section_order)
		VALUES ($1, $2, $3, COALESCE($4::integer,
			(SELECT COALESCE(MAX(section_order) + 1, 0) FROM sections WHERE analysis_id = $1)))
		RETURNING id, section_order, created_at, updated_at`

	err := scope.Conn.QueryRow(ctx, query,
		section.AnalysisID,
		section.Title,
		section.Content,
		order,
	).Scan(&section.ID, &section.SectionOrder, &section.CreatedAt, &section.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create section: %w", err)
	}

	return nil
}

func (r *sectionRepository) Get(ctx context.Context, id uuid.UUID) (*models.Section, error) {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no user scope in context")
	}

	section, err := scanSection(scope.Conn.QueryRow(ctx,
		`SELECT `+sectionColumns+` FROM sections WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get section: %w", err)
	}

	return section, nil
}

func (r *sectionRepository) ListByAnalysis(ctx context.Context, analysisID uuid.UUID) ([]*models.Section, error) {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no user scope in context")
	}

	query := `
		SELECT ` + sectionColumns + `
		FROM sections
		WHERE analysis_id = $1
		ORDER BY section_order ASC, created_at ASC`

	rows, err := scope.Conn.Query(ctx, query, analysisID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sections: %w", err)
	}
	defer rows.Close()

	sections := make([]*models.Section, 0)
	for rows.Next() {
		s, err := scanSection(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan section: %w", err)
		}
		sections = append(sections, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sections: %w", err)
	}

	return sections, nil
}

func (r *sectionRepository) Update(ctx context.Context, section *models.Section) error {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return fmt.Errorf("no user scope in context")
	}

	query := `
		UPDATE sections
		SET title = $2, content = $3, section_order = $4, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`

	err := scope.Conn.QueryRow(ctx, query,
		section.ID,
		section.Title,
		section.Content,
		section.SectionOrder,
	).Scan(&section.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("failed to update section: %w", err)
	}

	return nil
}

func (r *sectionRepository) UpdateOrder(ctx context.Context, updates []models.SectionOrderUpdate) error {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return fmt.Errorf("no user scope in context")
	}

	return scope.InTx(ctx, func(tx pgx.Tx) error {
		for _, u := range updates {
			tag, err := tx.Exec(ctx,
				`UPDATE sections SET section_order = $2, updated_at = now() WHERE id = $1`,
				u.ID, u.SectionOrder)
			if err != nil {
				return fmt.Errorf("failed to update order of section %s: %w", u.ID, err)
			}
			if tag.RowsAffected() == 0 {
				return fmt.Errorf("section %s: %w", u.ID, apperrors.ErrNotFound)
			}
		}
		return nil
	})
}

func (r *sectionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return fmt.Errorf("no user scope in context")
	}

	tag, err := scope.Conn.Exec(ctx, `DELETE FROM sections WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete section: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func scanSection(row pgx.Row) (*models.Section, error) {
	var s models.Section
	err := row.Scan(&s.ID, &s.AnalysisID, &s.Title, &s.Content, &s.SectionOrder, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
