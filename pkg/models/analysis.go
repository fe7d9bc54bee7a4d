package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultAnalysisName is used when an analysis is created without a name.
const DefaultAnalysisName = "New Analysis"

// Analysis belongs to exactly one project and holds ordered sections.
type Analysis struct {
	ID        uuid.UUID `json:"id"`
	ProjectID uuid.UUID `json:"project_id"`
	Name      string    `json:"name"`
	Labels    []string  `json:"labels"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AnalysisPatch carries the mutable fields of an analysis.
type AnalysisPatch struct {
	Name   *string   `json:"name,omitempty"`
	Labels *[]string `json:"labels,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p AnalysisPatch) IsEmpty() bool {
	return p.Name == nil && p.Labels == nil
}

// Apply copies the set fields onto the analysis.
func (p AnalysisPatch) Apply(a *Analysis) {
	if p.Name != nil {
		a.Name = *p.Name
	}
	if p.Labels != nil {
		a.Labels = append([]string(nil), (*p.Labels)...)
	}
}

// AnalysisDetail is an analysis together with its sections in order.
type AnalysisDetail struct {
	*Analysis
	Sections []*Section `json:"sections"`
}
