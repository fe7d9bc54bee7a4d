package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-notebook/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-notebook/pkg/models"
	"github.com/ekaya-inc/ekaya-notebook/pkg/repositories"
)

// SectionService defines the interface for section operations.
type SectionService interface {
	// ListByAnalysis returns sections by section_order ascending.
	ListByAnalysis(ctx context.Context, analysisID uuid.UUID) ([]*models.Section, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Section, error)
	// Create appends the section unless order is given.
	Create(ctx context.Context, userID, analysisID uuid.UUID, title string, content *string, order *int) (*models.Section, error)
	Update(ctx context.Context, userID, id uuid.UUID, patch models.SectionPatch) (*models.Section, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	// Reorder assigns new order keys in a single transaction.
	Reorder(ctx context.Context, userID uuid.UUID, updates []models.SectionOrderUpdate) error
}

type sectionService struct {
	ownership
	sections repositories.SectionRepository
	audit    AuditService
	logger   *zap.Logger
}

// NewSectionService creates a new section service with its dependencies.
func NewSectionService(
	projects repositories.ProjectRepository,
	analyses repositories.AnalysisRepository,
	sections repositories.SectionRepository,
	audit AuditService,
	logger *zap.Logger,
) SectionService {
	return &sectionService{
		ownership: ownership{projects: projects, analyses: analyses},
		sections:  sections,
		audit:     audit,
		logger:    logger.Named("section-service"),
	}
}

var _ SectionService = (*sectionService)(nil)

func (s *sectionService) ListByAnalysis(ctx context.Context, analysisID uuid.UUID) ([]*models.Section, error) {
	return s.sections.ListByAnalysis(ctx, analysisID)
}

func (s *sectionService) Get(ctx context.Context, id uuid.UUID) (*models.Section, error) {
	return s.sections.Get(ctx, id)
}

func (s *sectionService) Create(ctx context.Context, userID, analysisID uuid.UUID, title string, content *string, order *int) (*models.Section, error) {
	if order != nil && *order < 0 {
		return nil, apperrors.NewInputError("section_order must not be negative")
	}
	if _, err := s.requireAnalysis(ctx, userID, analysisID); err != nil {
		return nil, err
	}

	section := &models.Section{
		AnalysisID: analysisID,
		Title:      strings.TrimSpace(title),
		Content:    content,
	}
	if err := s.sections.Create(ctx, section, order); err != nil {
		return nil, err
	}

	s.audit.LogCreate(ctx, models.AuditTableSections, section.ID, section)
	return section, nil
}

func (s *sectionService) Update(ctx context.Context, userID, id uuid.UUID, patch models.SectionPatch) (*models.Section, error) {
	if patch.SectionOrder != nil && *patch.SectionOrder < 0 {
		return nil, apperrors.NewInputError("section_order must not be negative")
	}

	section, err := s.requireSection(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	before := *section

	patch.Apply(section)
	if err := s.sections.Update(ctx, section); err != nil {
		return nil, err
	}

	s.audit.LogUpdate(ctx, models.AuditTableSections, id, &before, section)
	return section, nil
}

func (s *sectionService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	section, err := s.requireSection(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.sections.Delete(ctx, id); err != nil {
		return err
	}

	s.audit.LogDelete(ctx, models.AuditTableSections, id, section)
	return nil
}

func (s *sectionService) Reorder(ctx context.Context, userID uuid.UUID, updates []models.SectionOrderUpdate) error {
	if len(updates) == 0 {
		return apperrors.NewInputError("sections array is required")
	}

	seen := make(map[uuid.UUID]bool, len(updates))
	checked := make(map[uuid.UUID]bool)
	for _, u := range updates {
		if u.ID == uuid.Nil {
			return apperrors.NewInputError("each section needs an id")
		}
		if u.SectionOrder < 0 {
			return apperrors.NewInputError("section_order must not be negative")
		}
		if seen[u.ID] {
			return apperrors.NewInputError("section %s appears more than once", u.ID)
		}
		seen[u.ID] = true

		section, err := s.sections.Get(ctx, u.ID)
		if err != nil {
			return fmt.Errorf("section %s: %w", u.ID, err)
		}
		if !checked[section.AnalysisID] {
			if _, err := s.requireAnalysis(ctx, userID, section.AnalysisID); err != nil {
				return err
			}
			checked[section.AnalysisID] = true
		}
	}

	if err := s.sections.UpdateOrder(ctx, updates); err != nil {
		return err
	}

	s.logger.Debug("Reordered sections", zap.Int("count", len(updates)))
	return nil
}

func (s *sectionService) requireSection(ctx context.Context, userID, id uuid.UUID) (*models.Section, error) {
	section, err := s.sections.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireAnalysis(ctx, userID, section.AnalysisID); err != nil {
		return nil, err
	}
	return section, nil
}
