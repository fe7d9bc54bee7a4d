package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultDatasetName is used when a dataset is created without a name.
const DefaultDatasetName = "Untitled Dataset"

// Dataset describes imaging data attached to a project. Informational only.
type Dataset struct {
	ID          uuid.UUID `json:"id"`
	ProjectID   uuid.UUID `json:"project_id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DatasetPatch carries the mutable fields of a dataset.
type DatasetPatch struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p DatasetPatch) IsEmpty() bool {
	return p.Name == nil && p.Description == nil
}

// Apply copies the set fields onto the dataset.
func (p DatasetPatch) Apply(d *Dataset) {
	if p.Name != nil {
		d.Name = *p.Name
	}
	if p.Description != nil {
		d.Description = p.Description
	}
}
