//go:build integration

package repositories

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-notebook/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-notebook/pkg/models"
	"github.com/ekaya-inc/ekaya-notebook/pkg/testhelpers"
)

func TestProjectRepository_CRUD(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	userID := testDB.CreateAccount(t)
	ctx, cleanup := testDB.UserContext(t, userID)
	defer cleanup()

	repo := NewProjectRepository()

	first := &models.Project{UserID: userID}
	require.NoError(t, repo.Create(ctx, first))
	assert.Equal(t, models.DefaultProjectName, first.Name)
	assert.Len(t, first.ShareToken, 64)
	assert.False(t, first.IsPublic)

	second := &models.Project{UserID: userID, Name: "Chest CT"}
	require.NoError(t, repo.Create(ctx, second))

	projects, err := repo.ListByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, second.ID, projects[0].ID, "newest first")

	desc := "Low-dose protocol"
	second.Description = &desc
	second.IsPublic = true
	require.NoError(t, repo.Update(ctx, second))

	got, err := repo.Get(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, "Low-dose protocol", *got.Description)
	assert.True(t, got.IsPublic)

	require.NoError(t, repo.Delete(ctx, first.ID))
	_, err = repo.Get(ctx, first.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, first.ID), apperrors.ErrNotFound)
}

func TestProjectRepository_RowLevelSecurity(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	owner := testDB.CreateAccount(t)
	other := testDB.CreateAccount(t)
	repo := NewProjectRepository()

	ownerCtx, cleanupOwner := testDB.UserContext(t, owner)
	defer cleanupOwner()

	project := &models.Project{UserID: owner, Name: "Private"}
	require.NoError(t, repo.Create(ownerCtx, project))

	otherCtx, cleanupOther := testDB.UserContext(t, other)
	defer cleanupOther()

	_, err := repo.Get(otherCtx, project.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(otherCtx, project.ID), apperrors.ErrNotFound)

	stolen := &models.Project{UserID: owner, Name: "Forged"}
	assert.Error(t, repo.Create(otherCtx, stolen), "WITH CHECK must reject rows owned by someone else")
}

func TestProjectRepository_GetByShareToken(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	owner := testDB.CreateAccount(t)
	repo := NewProjectRepository()

	ownerCtx, cleanupOwner := testDB.UserContext(t, owner)
	defer cleanupOwner()

	project := &models.Project{UserID: owner, Name: "Shared"}
	require.NoError(t, repo.Create(ownerCtx, project))

	anonCtx, cleanupAnon := testDB.AnonymousContext(t)
	defer cleanupAnon()

	_, err := repo.GetByShareToken(anonCtx, project.ShareToken)
	assert.ErrorIs(t, err, apperrors.ErrNotFound, "private projects are not resolvable")

	project.IsPublic = true
	require.NoError(t, repo.Update(ownerCtx, project))

	shared, err := repo.GetByShareToken(anonCtx, project.ShareToken)
	require.NoError(t, err)
	assert.Equal(t, project.ID, shared.ID)
	assert.Empty(t, shared.ShareToken)
	assert.Equal(t, uuid.Nil, shared.UserID)
}

func TestSectionRepository_OrderAndReorder(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	userID := testDB.CreateAccount(t)
	ctx, cleanup := testDB.UserContext(t, userID)
	defer cleanup()

	project := &models.Project{UserID: userID}
	require.NoError(t, NewProjectRepository().Create(ctx, project))

	analysis := &models.Analysis{ProjectID: project.ID, Labels: []string{"ct"}}
	require.NoError(t, NewAnalysisRepository().Create(ctx, analysis))
	assert.Equal(t, models.DefaultAnalysisName, analysis.Name)

	repo := NewSectionRepository()

	a := &models.Section{AnalysisID: analysis.ID}
	b := &models.Section{AnalysisID: analysis.ID, Title: "Findings"}
	c := &models.Section{AnalysisID: analysis.ID, Title: "Impression"}
	require.NoError(t, repo.Create(ctx, a, nil))
	require.NoError(t, repo.Create(ctx, b, nil))
	require.NoError(t, repo.Create(ctx, c, nil))
	assert.Equal(t, []int{0, 1, 2}, []int{a.SectionOrder, b.SectionOrder, c.SectionOrder})
	assert.Equal(t, models.DefaultSectionTitle, a.Title)

	explicit := 10
	d := &models.Section{AnalysisID: analysis.ID}
	require.NoError(t, repo.Create(ctx, d, &explicit))
	assert.Equal(t, 10, d.SectionOrder)

	err := repo.UpdateOrder(ctx, []models.SectionOrderUpdate{
		{ID: d.ID, SectionOrder: 0},
		{ID: c.ID, SectionOrder: 1},
		{ID: b.ID, SectionOrder: 2},
		{ID: a.ID, SectionOrder: 3},
	})
	require.NoError(t, err)

	sections, err := repo.ListByAnalysis(ctx, analysis.ID)
	require.NoError(t, err)
	ids := make([]uuid.UUID, len(sections))
	for i, s := range sections {
		ids[i] = s.ID
	}
	assert.Equal(t, []uuid.UUID{d.ID, c.ID, b.ID, a.ID}, ids)

	// A missing id rolls the whole batch back.
	err = repo.UpdateOrder(ctx, []models.SectionOrderUpdate{
		{ID: a.ID, SectionOrder: 0},
		{ID: uuid.New(), SectionOrder: 1},
	})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	got, err := repo.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.SectionOrder)

	// Deleting the analysis cascades to its sections.
	require.NoError(t, NewAnalysisRepository().Delete(ctx, analysis.ID))
	_, err = repo.Get(ctx, a.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestAccountAndProfileRepositories(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	ctx, cleanup := testDB.AnonymousContext(t)
	defer cleanup()

	accounts := NewAccountRepository()
	email := "Case-" + uuid.NewString() + "@Example.org"

	account := &models.Account{Email: email, PasswordHash: "hash"}
	require.NoError(t, accounts.Create(ctx, account))
	t.Cleanup(func() {
		_, _ = testDB.DB.Exec(context.Background(), `DELETE FROM accounts WHERE id = $1`, account.ID)
	})

	dup := &models.Account{Email: "case-" + email[5:], PasswordHash: "hash"}
	assert.ErrorIs(t, accounts.Create(ctx, dup), apperrors.ErrConflict)

	found, err := accounts.GetByEmail(ctx, email)
	require.NoError(t, err)
	assert.Equal(t, account.ID, found.ID)

	profiles := NewProfileRepository()
	name := "Ada"
	require.NoError(t, profiles.Create(ctx, &models.Profile{UserID: account.ID, DisplayName: &name}))
	require.NoError(t, profiles.TouchLastLogin(ctx, account.ID))

	updated, err := profiles.UpdateDisplayName(ctx, account.ID, "Dr. Ada")
	require.NoError(t, err)
	assert.Equal(t, "Dr. Ada", *updated.DisplayName)
	assert.NotNil(t, updated.LastLoginAt)

	roles := NewUserRoleRepository()
	require.NoError(t, roles.Add(ctx, account.ID, models.RoleResearcher))
	require.NoError(t, roles.Add(ctx, account.ID, models.RoleResearcher))

	list, err := roles.ListByUser(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.AppRole{models.RoleResearcher}, list)

	has, err := roles.HasRole(ctx, account.ID, models.RoleAdmin)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestAuditRepository_List(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	userID := testDB.CreateAccount(t)
	ctx, cleanup := testDB.UserContext(t, userID)
	defer cleanup()

	repo := NewAuditRepository()
	recordID := uuid.New()

	for _, action := range []string{models.AuditActionCreate, models.AuditActionUpdate} {
		require.NoError(t, repo.Create(ctx, &models.AuditLogEntry{
			TableName: models.AuditTableSections,
			RecordID:  &recordID,
			Action:    action,
			NewData:   map[string]any{"title": action},
			Source:    models.SourceManual.String(),
			UserID:    &userID,
		}))
	}

	entries, err := repo.List(ctx, models.AuditTableSections, &recordID, 50)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, models.AuditActionUpdate, entries[0].Action)
	assert.Equal(t, "update", entries[0].NewData["title"])
	assert.Nil(t, entries[0].OldData)
}
