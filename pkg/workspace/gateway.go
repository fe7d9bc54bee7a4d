package workspace

import (
	"context"

	"github.com/google/uuid"

	"github.com/ekaya-inc/ekaya-notebook/pkg/models"
)

// Gateway is the remote persistence the store mirrors. *client.Client
// implements it over the notebook HTTP API.
type Gateway interface {
	ListProjects(ctx context.Context) ([]*models.Project, error)
	CreateProject(ctx context.Context, name string, description *string) (*models.Project, error)
	UpdateProject(ctx context.Context, id uuid.UUID, patch models.ProjectPatch) (*models.Project, error)
	DeleteProject(ctx context.Context, id uuid.UUID) error

	ListAnalyses(ctx context.Context, projectID uuid.UUID) ([]*models.Analysis, error)
	CreateAnalysis(ctx context.Context, projectID uuid.UUID, name string, labels []string) (*models.Analysis, error)
	UpdateAnalysis(ctx context.Context, id uuid.UUID, patch models.AnalysisPatch) (*models.Analysis, error)
	DeleteAnalysis(ctx context.Context, id uuid.UUID) error

	ListDatasets(ctx context.Context, projectID uuid.UUID) ([]*models.Dataset, error)
	CreateDataset(ctx context.Context, projectID uuid.UUID, name string, description *string) (*models.Dataset, error)
	UpdateDataset(ctx context.Context, id uuid.UUID, patch models.DatasetPatch) (*models.Dataset, error)
	DeleteDataset(ctx context.Context, id uuid.UUID) error

	// ListSections returns sections ordered by section_order.
	ListSections(ctx context.Context, analysisID uuid.UUID) ([]*models.Section, error)
	// CreateSection leaves the order to the server (max+1) when order is nil.
	CreateSection(ctx context.Context, analysisID uuid.UUID, title string, order *int) (*models.Section, error)
	UpdateSection(ctx context.Context, id uuid.UUID, patch models.SectionPatch) (*models.Section, error)
	DeleteSection(ctx context.Context, id uuid.UUID) error
}
