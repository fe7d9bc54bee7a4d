package models

import "time"

// ReportCategories is the three-way categorization of radiology report text.
type ReportCategories struct {
	Explicit string `json:"explicit"`
	Implied  string `json:"implied"`
	Hedging  string `json:"hedging"`
}

// SharedProject is the unauthenticated view of a public project.
// It never carries the share token or the owner id.
type SharedProject struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description *string     `json:"description"`
	CreatedAt   time.Time   `json:"created_at"`
	Analyses    []*Analysis `json:"analyses"`
	Datasets    []*Dataset  `json:"datasets"`
	// SelectedAnalysisID is the analysis whose sections are included.
	SelectedAnalysisID *string    `json:"selected_analysis_id"`
	Sections           []*Section `json:"sections"`
}
