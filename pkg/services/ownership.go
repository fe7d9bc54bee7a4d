package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ekaya-inc/ekaya-notebook/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-notebook/pkg/models"
	"github.com/ekaya-inc/ekaya-notebook/pkg/repositories"
)

// ownership resolves a record to its project and checks the caller owns it.
// Row-level security already hides other users' private projects; this
// check also rejects writes to public projects the caller can read.
type ownership struct {
	projects repositories.ProjectRepository
	analyses repositories.AnalysisRepository
}

func (o ownership) requireProject(ctx context.Context, userID, projectID uuid.UUID) (*models.Project, error) {
	project, err := o.projects.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.UserID != userID {
		return nil, apperrors.ErrForbidden
	}
	return project, nil
}

func (o ownership) requireAnalysis(ctx context.Context, userID, analysisID uuid.UUID) (*models.Analysis, error) {
	analysis, err := o.analyses.Get(ctx, analysisID)
	if err != nil {
		return nil, err
	}
	if err := o.requireParent(ctx, userID, analysis.ProjectID); err != nil {
		return nil, err
	}
	return analysis, nil
}

// requireParent checks ownership of the project behind a child record the
// caller could already read. A hidden project means someone else owns it.
func (o ownership) requireParent(ctx context.Context, userID, projectID uuid.UUID) error {
	_, err := o.requireProject(ctx, userID, projectID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, apperrors.ErrNotFound), errors.Is(err, apperrors.ErrForbidden):
		return apperrors.ErrForbidden
	default:
		return fmt.Errorf("check project owner: %w", err)
	}
}
