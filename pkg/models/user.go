package models

import (
	"time"

	"github.com/google/uuid"
)

// AppRole is an application-wide role granted to a user.
type AppRole string

// Role constants. Assignment lives in user_roles; profiles.role is legacy.
const (
	RoleStudent    AppRole = "student"
	RoleClinician  AppRole = "clinician"
	RoleResearcher AppRole = "researcher"
	RoleAdmin      AppRole = "admin"
)

// ValidRoles contains all valid role values.
var ValidRoles = []AppRole{RoleStudent, RoleClinician, RoleResearcher, RoleAdmin}

// IsValidRole checks if the given role is valid.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if string(r) == role {
			return true
		}
	}
	return false
}

// UserRole is one role assignment.
type UserRole struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Role      AppRole   `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Account holds login credentials. PasswordHash never leaves the server.
type Account struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Profile is the per-user notebook profile.
type Profile struct {
	ID            uuid.UUID  `json:"id"`
	UserID        uuid.UUID  `json:"user_id"`
	DisplayName   *string    `json:"display_name"`
	AvatarURL     *string    `json:"avatar_url"`
	LastProjectID *uuid.UUID `json:"last_project_id"`
	LastLoginAt   *time.Time `json:"last_login_at"`
	// Role is the single legacy role column, superseded by user_roles.
	Role      *AppRole  `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Me is the current user's profile merged with account email and roles.
type Me struct {
	*Profile
	Email string    `json:"email"`
	Roles []AppRole `json:"roles"`
}

// TokenPair is returned on login and refresh.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}
