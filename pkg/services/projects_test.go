package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-notebook/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-notebook/pkg/models"
)

type projectFixture struct {
	projects *mockProjectRepo
	analyses *mockAnalysisRepo
	datasets *mockDatasetRepo
	audit    *mockAuditRepo
	svc      ProjectService
}

func newProjectFixture() *projectFixture {
	f := &projectFixture{
		projects: newMockProjectRepo(),
		analyses: newMockAnalysisRepo(),
		datasets: newMockDatasetRepo(),
		audit:    &mockAuditRepo{},
	}
	f.svc = NewProjectService(f.projects, f.analyses, f.datasets, NewAuditService(f.audit, zap.NewNop()), zap.NewNop())
	return f
}

func TestProjectService_CreateDefaultsName(t *testing.T) {
	f := newProjectFixture()
	userID := uuid.New()
	ctx := models.WithManualProvenance(context.Background(), userID)

	project, err := f.svc.Create(ctx, userID, "   ", nil)
	require.NoError(t, err)

	assert.Equal(t, models.DefaultProjectName, project.Name)
	assert.Equal(t, userID, project.UserID)
	require.Len(t, f.audit.entries, 1)
	assert.Equal(t, models.AuditActionCreate, f.audit.entries[0].Action)
	assert.NotContains(t, f.audit.entries[0].NewData, "share_token")
}

func TestProjectService_GetIncludesChildren(t *testing.T) {
	f := newProjectFixture()
	userID := uuid.New()
	p := f.projects.add(userID, "CT study")
	f.analyses.add(p.ID, "first")
	f.analyses.add(p.ID, "second")
	require.NoError(t, f.datasets.Create(context.Background(), &models.Dataset{ProjectID: p.ID}))

	detail, err := f.svc.Get(context.Background(), userID, p.ID)
	require.NoError(t, err)

	assert.Equal(t, "CT study", detail.Name)
	require.Len(t, detail.Analyses, 2)
	assert.Equal(t, "first", detail.Analyses[0].Name)
	assert.Len(t, detail.Datasets, 1)
}

func TestProjectService_OtherUsersProjectIsForbidden(t *testing.T) {
	f := newProjectFixture()
	p := f.projects.add(uuid.New(), "not yours")
	caller := uuid.New()

	_, err := f.svc.Get(context.Background(), caller, p.ID)
	assert.True(t, errors.Is(err, apperrors.ErrForbidden))

	name := "stolen"
	_, err = f.svc.Update(context.Background(), caller, p.ID, models.ProjectPatch{Name: &name})
	assert.True(t, errors.Is(err, apperrors.ErrForbidden))

	err = f.svc.Delete(context.Background(), caller, p.ID)
	assert.True(t, errors.Is(err, apperrors.ErrForbidden))
	assert.Contains(t, f.projects.projects, p.ID)
}

func TestProjectService_UpdateRecordsChangedFields(t *testing.T) {
	f := newProjectFixture()
	userID := uuid.New()
	ctx := models.WithManualProvenance(context.Background(), userID)
	p := f.projects.add(userID, "before")

	name := "  after  "
	public := true
	updated, err := f.svc.Update(ctx, userID, p.ID, models.ProjectPatch{Name: &name, IsPublic: &public})
	require.NoError(t, err)
	assert.Equal(t, "after", updated.Name)
	assert.True(t, updated.IsPublic)

	entries, err := NewAuditService(f.audit, zap.NewNop()).List(ctx, models.AuditTableProjects, &p.ID, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	changes := entries[0].ChangedFields
	assert.Equal(t, models.FieldChange{Old: "before", New: "after"}, changes["name"])
	assert.Equal(t, models.FieldChange{Old: false, New: true}, changes["is_public"])
	assert.NotContains(t, changes, "description")
}

func TestProjectService_DeleteMissing(t *testing.T) {
	f := newProjectFixture()
	err := f.svc.Delete(context.Background(), uuid.New(), uuid.New())
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestProjectService_CreatePropagatesStoreError(t *testing.T) {
	f := newProjectFixture()
	f.projects.err = errors.New("connection reset")

	_, err := f.svc.Create(context.Background(), uuid.New(), "x", nil)
	assert.Error(t, err)
	assert.Empty(t, f.audit.entries)
}
