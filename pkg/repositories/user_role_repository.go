package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ekaya-inc/ekaya-notebook/pkg/database"
	"github.com/ekaya-inc/ekaya-notebook/pkg/models"
)

// UserRoleRepository defines the interface for role assignments.
type UserRoleRepository interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.AppRole, error)
	// Add grants a role; granting an existing role is a no-op.
	Add(ctx context.Context, userID uuid.UUID, role models.AppRole) error
	Remove(ctx context.Context, userID uuid.UUID, role models.AppRole) error
	HasRole(ctx context.Context, userID uuid.UUID, role models.AppRole) (bool, error)
}

type userRoleRepository struct{}

// NewUserRoleRepository creates a new user role repository.
func NewUserRoleRepository() UserRoleRepository {
	return &userRoleRepository{}
}

var _ UserRoleRepository = (*userRoleRepository)(nil)

func (r *userRoleRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.AppRole, error) {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no user scope in context")
	}

	rows, err := scope.Conn.Query(ctx,
		`SELECT role::text FROM user_roles WHERE user_id = $1 ORDER BY role`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	defer rows.Close()

	roles := make([]models.AppRole, 0)
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, models.AppRole(role))
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating roles: %w", err)
	}

	return roles, nil
}

func (r *userRoleRepository) Add(ctx context.Context, userID uuid.UUID, role models.AppRole) error {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return fmt.Errorf("no user scope in context")
	}

	_, err := scope.Conn.Exec(ctx, `
		INSERT INTO user_roles (user_id, role)
		VALUES ($1, $2::app_role)
		ON CONFLICT (user_id, role) DO NOTHING`, userID, string(role))
	if err != nil {
		return fmt.Errorf("failed to add role: %w", err)
	}
	return nil
}

func (r *userRoleRepository) Remove(ctx context.Context, userID uuid.UUID, role models.AppRole) error {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return fmt.Errorf("no user scope in context")
	}

	_, err := scope.Conn.Exec(ctx,
		`DELETE FROM user_roles WHERE user_id = $1 AND role = $2::app_role`, userID, string(role))
	if err != nil {
		return fmt.Errorf("failed to remove role: %w", err)
	}
	return nil
}

func (r *userRoleRepository) HasRole(ctx context.Context, userID uuid.UUID, role models.AppRole) (bool, error) {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return false, fmt.Errorf("no user scope in context")
	}

	var has bool
	if err := scope.Conn.QueryRow(ctx,
		`SELECT has_role($1, $2::app_role)`, userID, string(role)).Scan(&has); err != nil {
		return false, fmt.Errorf("failed to check role: %w", err)
	}
	return has, nil
}
