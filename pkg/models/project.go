// Package models contains domain types for ekaya-notebook.
package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultProjectName is used when a project is created without a name.
const DefaultProjectName = "Untitled Project"

// Project is the top-level container of a user's notebook.
type Project struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	IsPublic    bool      `json:"is_public"`
	// ShareToken grants unauthenticated read access while IsPublic is set.
	// It is never included in shared responses.
	ShareToken string    `json:"share_token,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ProjectPatch carries the fields a caller may change on a project.
// Nil fields are left unchanged.
type ProjectPatch struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	IsPublic    *bool   `json:"is_public,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p ProjectPatch) IsEmpty() bool {
	return p.Name == nil && p.Description == nil && p.IsPublic == nil
}

// Apply copies the set fields onto the project.
func (p ProjectPatch) Apply(project *Project) {
	if p.Name != nil {
		project.Name = *p.Name
	}
	if p.Description != nil {
		project.Description = p.Description
	}
	if p.IsPublic != nil {
		project.IsPublic = *p.IsPublic
	}
}

// ProjectDetail is a project together with its analyses and datasets.
type ProjectDetail struct {
	*Project
	Analyses []*Analysis `json:"analyses"`
	Datasets []*Dataset  `json:"datasets"`
}
