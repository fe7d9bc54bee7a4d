package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProjectPatch_Apply(t *testing.T) {
	desc := "old"
	p := &Project{Name: "Liver CT", Description: &desc}

	name := "Pancreas MRI"
	public := true
	patch := ProjectPatch{Name: &name, IsPublic: &public}
	assert.False(t, patch.IsEmpty())

	patch.Apply(p)

	assert.Equal(t, "Pancreas MRI", p.Name)
	assert.True(t, p.IsPublic)
	assert.Equal(t, "old", *p.Description, "unset fields must be left unchanged")
}

func TestProjectPatch_IsEmpty(t *testing.T) {
	assert.True(t, ProjectPatch{}.IsEmpty())
}

func TestSectionPatch_Apply(t *testing.T) {
	s := &Section{Title: "Findings", SectionOrder: 3}

	content := "Hypodense lesion in the pancreatic head."
	order := 0
	SectionPatch{Content: &content, SectionOrder: &order}.Apply(s)

	assert.Equal(t, "Findings", s.Title)
	assert.Equal(t, content, s.ContentText())
	assert.Equal(t, 0, s.SectionOrder)
}

func TestSection_ContentTextNil(t *testing.T) {
	assert.Equal(t, "", (&Section{}).ContentText())
}

func TestAnalysisPatch_ApplyCopiesLabels(t *testing.T) {
	labels := []string{"ct", "contrast"}
	a := &Analysis{}
	AnalysisPatch{Labels: &labels}.Apply(a)

	labels[0] = "mri"
	assert.Equal(t, []string{"ct", "contrast"}, a.Labels)
}

func TestIsValidRole(t *testing.T) {
	assert.True(t, IsValidRole("clinician"))
	assert.True(t, IsValidRole("admin"))
	assert.False(t, IsValidRole("data"))
	assert.False(t, IsValidRole(""))
}

func TestReportText(t *testing.T) {
	findings := "A 2.1 cm mass."
	blank := "   "
	impression := "Likely adenocarcinoma."
	sections := []*Section{
		{Title: "Findings", Content: &findings},
		{Title: "Empty", Content: &blank},
		{Title: "Unset"},
		{Title: "Impression", Content: &impression},
	}

	assert.Equal(t, "Findings\nA 2.1 cm mass.\n\nImpression\nLikely adenocarcinoma.", ReportText(sections))
	assert.Empty(t, ReportText(nil))
}
