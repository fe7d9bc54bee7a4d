package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultSectionTitle is used when a section is created without a title.
const DefaultSectionTitle = "New Section"

// Section is one ordered block of text inside an analysis.
type Section struct {
	ID         uuid.UUID `json:"id"`
	AnalysisID uuid.UUID `json:"analysis_id"`
	Title      string    `json:"title"`
	Content    *string   `json:"content"`
	// SectionOrder is the position key within the analysis.
	SectionOrder int       `json:"section_order"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ContentText returns the content or "" when unset.
func (s *Section) ContentText() string {
	if s.Content == nil {
		return ""
	}
	return *s.Content
}

// SectionPatch carries the mutable fields of a section.
type SectionPatch struct {
	Title        *string `json:"title,omitempty"`
	Content      *string `json:"content,omitempty"`
	SectionOrder *int    `json:"section_order,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p SectionPatch) IsEmpty() bool {
	return p.Title == nil && p.Content == nil && p.SectionOrder == nil
}

// Apply copies the set fields onto the section.
func (p SectionPatch) Apply(s *Section) {
	if p.Title != nil {
		s.Title = *p.Title
	}
	if p.Content != nil {
		s.Content = p.Content
	}
	if p.SectionOrder != nil {
		s.SectionOrder = *p.SectionOrder
	}
}

// SectionOrderUpdate assigns an order key to one section in a reorder request.
type SectionOrderUpdate struct {
	ID           uuid.UUID `json:"id"`
	SectionOrder int       `json:"section_order"`
}

// ReportText joins the sections' titles and non-empty contents in order,
// producing the text sent for report analysis.
func ReportText(sections []*Section) string {
	var b strings.Builder
	for _, s := range sections {
		content := strings.TrimSpace(s.ContentText())
		if content == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(s.Title)
		b.WriteString("\n")
		b.WriteString(content)
	}
	return b.String()
}
