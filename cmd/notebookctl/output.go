package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/ekaya-inc/ekaya-notebook/pkg/models"
)

// render prints v as YAML, or calls table with a tab-aligned writer.
func (a *app) render(v any, table func(w *tabwriter.Writer)) error {
	if a.output == "yaml" {
		enc := yaml.NewEncoder(a.out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode output: %w", err)
		}
		return enc.Close()
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	table(w)
	return w.Flush()
}

func parseID(kind, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s id %q", kind, raw)
	}
	return id, nil
}

func shortDate(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// YAML views of the mirrored entities.

type projectView struct {
	ID          uuid.UUID `yaml:"id"`
	Name        string    `yaml:"name"`
	Description string    `yaml:"description,omitempty"`
	Public      bool      `yaml:"public"`
	ShareToken  string    `yaml:"share_token,omitempty"`
	CreatedAt   time.Time `yaml:"created_at"`
}

func newProjectView(p models.Project) projectView {
	v := projectView{ID: p.ID, Name: p.Name, Description: deref(p.Description), Public: p.IsPublic, CreatedAt: p.CreatedAt}
	if p.IsPublic {
		v.ShareToken = p.ShareToken
	}
	return v
}

type analysisView struct {
	ID        uuid.UUID `yaml:"id"`
	ProjectID uuid.UUID `yaml:"project_id"`
	Name      string    `yaml:"name"`
	Labels    []string  `yaml:"labels,omitempty"`
	CreatedAt time.Time `yaml:"created_at"`
}

func newAnalysisView(a models.Analysis) analysisView {
	return analysisView{ID: a.ID, ProjectID: a.ProjectID, Name: a.Name, Labels: a.Labels, CreatedAt: a.CreatedAt}
}

type datasetView struct {
	ID          uuid.UUID `yaml:"id"`
	Name        string    `yaml:"name"`
	Description string    `yaml:"description,omitempty"`
}

type sectionView struct {
	ID      uuid.UUID `yaml:"id"`
	Order   int       `yaml:"order"`
	Title   string    `yaml:"title"`
	Content string    `yaml:"content,omitempty"`
}

func newSectionView(s models.Section) sectionView {
	return sectionView{ID: s.ID, Order: s.SectionOrder, Title: s.Title, Content: s.ContentText()}
}

func mapViews[T, V any](items []T, fn func(T) V) []V {
	out := make([]V, len(items))
	for i, item := range items {
		out[i] = fn(item)
	}
	return out
}

func find[T any](items []T, match func(T) bool) (T, bool) {
	for _, item := range items {
		if match(item) {
			return item, true
		}
	}
	var zero T
	return zero, false
}
