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

// ProfileRepository defines the interface for profile data access.
// Profiles are keyed by user id; there is exactly one per account.
type ProfileRepository interface {
	Create(ctx context.Context, profile *models.Profile) error
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	UpdateDisplayName(ctx context.Context, userID uuid.UUID, displayName string) (*models.Profile, error)
	UpdateAvatarURL(ctx context.Context, userID uuid.UUID, avatarURL string) (*models.Profile, error)
	// SetLastProject records the project the user last opened; nil clears it.
	SetLastProject(ctx context.Context, userID uuid.UUID, projectID *uuid.UUID) error
	TouchLastLogin(ctx context.Context, userID uuid.UUID) error
}

type profileRepository struct{}

// NewProfileRepository creates a new profile repository.
func NewProfileRepository() ProfileRepository {
	return &profileRepository{}
}

var _ ProfileRepository = (*profileRepository)(nil)

const profileColumns = `id, user_id, display_name, avatar_url, last_project_id, last_login_at, role, created_at, updated_at`

func (r *profileRepository) Create(ctx context.Context, profile *models.Profile) error {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return fmt.Errorf("no user scope in context")
	}

	query := `
		INSERT INTO profiles (user_id, display_name)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at`

	err := scope.Conn.QueryRow(ctx, query, profile.UserID, profile.DisplayName).
		Scan(&profile.ID, &profile.CreatedAt, &profile.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}

	return nil
}

func (r *profileRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no user scope in context")
	}

	profile, err := scanProfile(scope.Conn.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE user_id = $1`, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return profile, nil
}

func (r *profileRepository) UpdateDisplayName(ctx context.Context, userID uuid.UUID, displayName string) (*models.Profile, error) {
	return r.updateReturning(ctx, `display_name = $2`, userID, displayName)
}

func (r *profileRepository) UpdateAvatarURL(ctx context.Context, userID uuid.UUID, avatarURL string) (*models.Profile, error) {
	return r.updateReturning(ctx, `avatar_url = $2`, userID, avatarURL)
}

func (r *profileRepository) SetLastProject(ctx context.Context, userID uuid.UUID, projectID *uuid.UUID) error {
	_, err := r.updateReturning(ctx, `last_project_id = $2`, userID, projectID)
	return err
}

func (r *profileRepository) TouchLastLogin(ctx context.Context, userID uuid.UUID) error {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return fmt.Errorf("no user scope in context")
	}

	_, err := scope.Conn.Exec(ctx,
		`UPDATE profiles SET last_login_at = now() WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return nil
}

// updateReturning sets one column (given as "col = $2") and returns the updated row.
func (r *profileRepository) updateReturning(ctx context.Context, set string, userID uuid.UUID, value any) (*models.Profile, error) {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no user scope in context")
	}

	query := `UPDATE profiles SET ` + set + `, updated_at = now() WHERE user_id = $1 RETURNING ` + profileColumns

	profile, err := scanProfile(scope.Conn.QueryRow(ctx, query, userID, value))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return profile, nil
}

func scanProfile(row pgx.Row) (*models.Profile, error) {
	var p models.Profile
	var role *string
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.DisplayName,
		&p.AvatarURL,
		&p.LastProjectID,
		&p.LastLoginAt,
		&role,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if role != nil {
		r := models.AppRole(*role)
		p.Role = &r
	}
	return &p, nil
}
