package workspace

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-notebook/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-notebook/pkg/models"
)

type fixture struct {
	gw    *fakeGateway
	notes *recorder
	store *Store
}

// newFixture builds a store whose placeholders are timestamped after
// anything the fake server has written.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	var ticks atomic.Int64
	clock := func() time.Time {
		return time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(ticks.Add(1)) * time.Second)
	}
	f := &fixture{gw: newFakeGateway(), notes: &recorder{}}
	f.store = NewStore(f.gw, f.notes, zap.NewNop(), WithClock(clock))
	t.Cleanup(f.store.Wait)
	return f
}

type seeded struct {
	project, other models.Project
	analysis       models.Analysis
	dataset        models.Dataset
	sections       []models.Section
}

// seed loads a project with one analysis (three sections) and one dataset,
// plus a second project, and selects the first project and its analysis.
func (f *fixture) seed(t *testing.T) seeded {
	t.Helper()
	ctx := context.Background()
	var s seeded
	s.project = f.gw.seedProject("CT study")
	s.other = f.gw.seedProject("MRI study")
	f.gw.seedAnalysis(s.other.ID, "Other analysis")
	s.analysis = f.gw.seedAnalysis(s.project.ID, "Baseline")
	s.dataset = f.gw.seedDataset(s.project.ID, "LIDC")
	s.sections = []models.Section{
		f.gw.seedSection(s.analysis.ID, "Findings", 0),
		f.gw.seedSection(s.analysis.ID, "Impression", 1),
		f.gw.seedSection(s.analysis.ID, "Recommendation", 2),
	}

	require.NoError(t, f.store.Load(ctx))
	require.NoError(t, f.store.SelectProject(ctx, s.project.ID))
	require.NoError(t, f.store.SelectAnalysis(ctx, s.analysis.ID))
	return s
}

type mirror struct {
	Projects   []models.Project
	Analyses   []models.Analysis
	Datasets   []models.Dataset
	Sections   []models.Section
	ProjectID  uuid.UUID
	AnalysisID uuid.UUID
}

func snapshot(s *Store) mirror {
	p, _ := s.SelectedProject()
	a, _ := s.SelectedAnalysis()
	return mirror{
		Projects:   s.Projects(),
		Analyses:   s.Analyses(),
		Datasets:   s.Datasets(),
		Sections:   s.Sections(),
		ProjectID:  p.ID,
		AnalysisID: a.ID,
	}
}

func orders(sections []models.Section) []int {
	out := make([]int, len(sections))
	for i, s := range sections {
		out[i] = s.SectionOrder
	}
	return out
}

func titles(sections []models.Section) []string {
	out := make([]string, len(sections))
	for i, s := range sections {
		out[i] = s.Title
	}
	return out
}

func (s *Store) pendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func ids(sections []models.Section) []uuid.UUID {
	out := make([]uuid.UUID, len(sections))
	for i, s := range sections {
		out[i] = s.ID
	}
	return out
}

func TestStore_SuccessfulMutationsMatchRemote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Load(ctx))

	f.store.CreateProject(ctx, "CT study", nil)
	_, err := f.store.CreateAnalysis(ctx, "Baseline", []string{"ct"})
	require.NoError(t, err)
	_, err = f.store.CreateSection(ctx, "Findings")
	require.NoError(t, err)
	_, err = f.store.CreateSection(ctx, "Impression")
	require.NoError(t, err)
	_, err = f.store.CreateDataset(ctx, "LIDC", nil)
	require.NoError(t, err)
	f.store.Wait()

	project, ok := f.store.SelectedProject()
	require.True(t, ok)
	name := "CT follow-up"
	require.NoError(t, f.store.UpdateProject(ctx, project.ID, models.ProjectPatch{Name: &name}))
	content := "No acute findings."
	require.NoError(t, f.store.UpdateSection(ctx, f.store.Sections()[0].ID, models.SectionPatch{Content: &content}))
	require.NoError(t, f.store.DeleteDataset(ctx, f.store.Datasets()[0].ID))
	f.store.Wait()

	project, _ = f.store.SelectedProject()
	analysis, ok := f.store.SelectedAnalysis()
	require.True(t, ok)

	opts := cmpopts.EquateEmpty()
	if diff := cmp.Diff(f.gw.remoteProjects(), f.store.Projects(), opts); diff != "" {
		t.Errorf("projects mismatch (-remote +mirror):\n%s", diff)
	}
	if diff := cmp.Diff(f.gw.remoteAnalyses(project.ID), f.store.Analyses(), opts); diff != "" {
		t.Errorf("analyses mismatch (-remote +mirror):\n%s", diff)
	}
	if diff := cmp.Diff(f.gw.remoteDatasets(project.ID), f.store.Datasets(), opts); diff != "" {
		t.Errorf("datasets mismatch (-remote +mirror):\n%s", diff)
	}
	if diff := cmp.Diff(f.gw.remoteSections(analysis.ID), f.store.Sections(), opts); diff != "" {
		t.Errorf("sections mismatch (-remote +mirror):\n%s", diff)
	}

	assert.Equal(t, "CT follow-up", project.Name)
	assert.Equal(t, []int{0, 1}, orders(f.store.Sections()))
	assert.Equal(t, []string{"Findings", "Impression"}, titles(f.store.Sections()))
	assert.Empty(t, f.notes.messages())
}

func TestStore_SectionCreatesKeepCreationOrder(t *testing.T) {
	for range 50 {
		f := newFixture(t)
		s := f.seed(t)
		ctx := context.Background()

		for _, title := range []string{"Technique", "Comparison", "Addendum"} {
			_, err := f.store.CreateSection(ctx, title)
			require.NoError(t, err)
		}
		f.store.Wait()

		want := []string{"Findings", "Impression", "Recommendation", "Technique", "Comparison", "Addendum"}
		assert.Equal(t, want, titles(f.store.Sections()))
		assert.Equal(t, want, titles(f.gw.remoteSections(s.analysis.ID)))
		assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, orders(f.store.Sections()))
	}
}

func TestStore_CreateDefaultsNames(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p := f.store.CreateProject(ctx, "   ", nil)
	a, err := f.store.CreateAnalysis(ctx, "", nil)
	require.NoError(t, err)
	s, err := f.store.CreateSection(ctx, "")
	require.NoError(t, err)
	d, err := f.store.CreateDataset(ctx, "", nil)
	require.NoError(t, err)

	assert.Equal(t, models.DefaultProjectName, p.Name)
	assert.Equal(t, models.DefaultAnalysisName, a.Name)
	assert.Equal(t, models.DefaultSectionTitle, s.Title)
	assert.Equal(t, models.DefaultDatasetName, d.Name)
	assert.Equal(t, 0, s.SectionOrder)
	f.store.Wait()
}

func TestStore_CreateProjectPrependsAndSelects(t *testing.T) {
	f := newFixture(t)
	f.gw.seedProject("existing")
	ctx := context.Background()
	require.NoError(t, f.store.Load(ctx))

	created := f.store.CreateProject(ctx, "fresh", nil)

	projects := f.store.Projects()
	require.Len(t, projects, 2)
	assert.Equal(t, created.ID, projects[0].ID)
	selected, ok := f.store.SelectedProject()
	require.True(t, ok)
	assert.Equal(t, created.ID, selected.ID)

	f.store.Wait()
	selected, ok = f.store.SelectedProject()
	require.True(t, ok)
	assert.NotEqual(t, created.ID, selected.ID, "selection should follow the server id")
	assert.Equal(t, "fresh", selected.Name)
}

func TestStore_CreateAnalysisAppendsAndSelects(t *testing.T) {
	f := newFixture(t)
	s := f.seed(t)
	ctx := context.Background()

	created, err := f.store.CreateAnalysis(ctx, "Follow-up", nil)
	require.NoError(t, err)

	analyses := f.store.Analyses()
	require.Len(t, analyses, 2)
	assert.Equal(t, s.analysis.ID, analyses[0].ID)
	assert.Equal(t, created.ID, analyses[1].ID)
	selected, _ := f.store.SelectedAnalysis()
	assert.Equal(t, created.ID, selected.ID)
	assert.Empty(t, f.store.Sections())
}

func TestStore_CreateRequiresSelection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.store.CreateAnalysis(ctx, "x", nil)
	assert.ErrorIs(t, err, ErrNoProjectSelected)
	_, err = f.store.CreateDataset(ctx, "x", nil)
	assert.ErrorIs(t, err, ErrNoProjectSelected)
	_, err = f.store.CreateSection(ctx, "x")
	assert.ErrorIs(t, err, ErrNoAnalysisSelected)
}

func TestStore_MissingEntity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	name := "x"

	assert.ErrorIs(t, f.store.UpdateProject(ctx, uuid.New(), models.ProjectPatch{Name: &name}), apperrors.ErrNotFound)
	assert.ErrorIs(t, f.store.DeleteSection(ctx, uuid.New()), apperrors.ErrNotFound)
	assert.ErrorIs(t, f.store.SelectProject(ctx, uuid.New()), apperrors.ErrNotFound)
	assert.ErrorIs(t, f.store.SelectAnalysis(ctx, uuid.New()), apperrors.ErrNotFound)
}

func TestStore_FailedMutationRestoresMirror(t *testing.T) {
	tests := []struct {
		name    string
		op      string
		nth     int
		mutate  func(t *testing.T, st *Store, s seeded)
		message string
	}{
		{
			name:    "create project",
			op:      "CreateProject",
			mutate:  func(t *testing.T, st *Store, s seeded) { st.CreateProject(context.Background(), "new", nil) },
			message: "Failed to create project",
		},
		{
			name: "update project",
			op:   "UpdateProject",
			mutate: func(t *testing.T, st *Store, s seeded) {
				public := true
				require.NoError(t, st.UpdateProject(context.Background(), s.project.ID, models.ProjectPatch{IsPublic: &public}))
			},
			message: "Failed to update project",
		},
		{
			name: "delete selected project",
			op:   "DeleteProject",
			mutate: func(t *testing.T, st *Store, s seeded) {
				require.NoError(t, st.DeleteProject(context.Background(), s.project.ID))
			},
			message: "Failed to delete project",
		},
		{
			name: "delete other project",
			op:   "DeleteProject",
			mutate: func(t *testing.T, st *Store, s seeded) {
				require.NoError(t, st.DeleteProject(context.Background(), s.other.ID))
			},
			message: "Failed to delete project",
		},
		{
			name: "create analysis",
			op:   "CreateAnalysis",
			mutate: func(t *testing.T, st *Store, s seeded) {
				_, err := st.CreateAnalysis(context.Background(), "new", nil)
				require.NoError(t, err)
			},
			message: "Failed to create analysis",
		},
		{
			name: "update analysis labels",
			op:   "UpdateAnalysis",
			mutate: func(t *testing.T, st *Store, s seeded) {
				labels := []string{"chest", "ct"}
				require.NoError(t, st.UpdateAnalysis(context.Background(), s.analysis.ID, models.AnalysisPatch{Labels: &labels}))
			},
			message: "Failed to update analysis",
		},
		{
			name: "delete selected analysis",
			op:   "DeleteAnalysis",
			mutate: func(t *testing.T, st *Store, s seeded) {
				require.NoError(t, st.DeleteAnalysis(context.Background(), s.analysis.ID))
			},
			message: "Failed to delete analysis",
		},
		{
			name: "create dataset",
			op:   "CreateDataset",
			mutate: func(t *testing.T, st *Store, s seeded) {
				_, err := st.CreateDataset(context.Background(), "new", nil)
				require.NoError(t, err)
			},
			message: "Failed to create dataset",
		},
		{
			name: "update dataset",
			op:   "UpdateDataset",
			mutate: func(t *testing.T, st *Store, s seeded) {
				desc := "1018 thoracic CT scans"
				require.NoError(t, st.UpdateDataset(context.Background(), s.dataset.ID, models.DatasetPatch{Description: &desc}))
			},
			message: "Failed to update dataset",
		},
		{
			name: "delete dataset",
			op:   "DeleteDataset",
			mutate: func(t *testing.T, st *Store, s seeded) {
				require.NoError(t, st.DeleteDataset(context.Background(), s.dataset.ID))
			},
			message: "Failed to delete dataset",
		},
		{
			name: "create section",
			op:   "CreateSection",
			mutate: func(t *testing.T, st *Store, s seeded) {
				_, err := st.CreateSection(context.Background(), "new")
				require.NoError(t, err)
			},
			message: "Failed to create section",
		},
		{
			name: "update section content",
			op:   "UpdateSection",
			mutate: func(t *testing.T, st *Store, s seeded) {
				content := "abc"
				require.NoError(t, st.UpdateSection(context.Background(), s.sections[1].ID, models.SectionPatch{Content: &content}))
			},
			message: "Failed to update section",
		},
		{
			name: "delete middle section",
			op:   "DeleteSection",
			mutate: func(t *testing.T, st *Store, s seeded) {
				require.NoError(t, st.DeleteSection(context.Background(), s.sections[1].ID))
			},
			message: "Failed to delete section",
		},
		{
			name: "reorder fails on second row",
			op:   "UpdateSection",
			nth:  2,
			mutate: func(t *testing.T, st *Store, s seeded) {
				reversed := []uuid.UUID{s.sections[2].ID, s.sections[1].ID, s.sections[0].ID}
				require.NoError(t, st.ReorderSections(context.Background(), reversed))
			},
			message: "Failed to reorder sections",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			s := f.seed(t)
			before := snapshot(f.store)

			if tt.nth > 0 {
				f.gw.failNth(tt.op, tt.nth, errRemote)
			} else {
				f.gw.fail(tt.op, errRemote)
			}
			tt.mutate(t, f.store, s)
			f.store.Wait()

			if diff := cmp.Diff(before, snapshot(f.store), cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("mirror not restored (-before +after):\n%s", diff)
			}
			assert.Equal(t, []string{tt.message}, f.notes.messages())
			f.notes.mu.Lock()
			assert.ErrorIs(t, f.notes.got[0].Err, errRemote)
			f.notes.mu.Unlock()
		})
	}
}

func TestStore_FailedContentUpdateRevertsAndNotifies(t *testing.T) {
	f := newFixture(t)
	s := f.seed(t)
	ctx := context.Background()
	f.gw.fail("UpdateSection", errRemote)

	content := "Nodule in the right upper lobe."
	require.NoError(t, f.store.UpdateSection(ctx, s.sections[0].ID, models.SectionPatch{Content: &content}))
	assert.Equal(t, &content, f.store.Sections()[0].Content, "edit should show before the server answers")

	f.store.Wait()
	assert.Nil(t, f.store.Sections()[0].Content)
	require.Len(t, f.notes.got, 1)
	assert.Equal(t, Notification{Action: ActionUpdate, Entity: "section", Message: "Failed to update section", Err: errRemote}, f.notes.got[0])
}

func TestStore_ReorderAssignsSequentialKeys(t *testing.T) {
	f := newFixture(t)
	s := f.seed(t)
	ctx := context.Background()

	want := []uuid.UUID{s.sections[2].ID, s.sections[0].ID, s.sections[1].ID}
	require.NoError(t, f.store.ReorderSections(ctx, want))

	assert.Equal(t, want, ids(f.store.Sections()))
	assert.Equal(t, []int{0, 1, 2}, orders(f.store.Sections()))

	f.store.Wait()
	remote := f.gw.remoteSections(s.analysis.ID)
	assert.Equal(t, want, ids(remote))
	assert.Equal(t, []int{0, 1, 2}, orders(remote))
	assert.Equal(t, 3, f.gw.callCount("UpdateSection"))
	if diff := cmp.Diff(remote, f.store.Sections()); diff != "" {
		t.Errorf("sections mismatch (-remote +mirror):\n%s", diff)
	}
}

func TestStore_ReorderSendsOnlyChangedRows(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.gw.seedProject("p")
	a := f.gw.seedAnalysis(p.ID, "a")
	first := f.gw.seedSection(a.ID, "first", 0)
	second := f.gw.seedSection(a.ID, "second", 5)
	third := f.gw.seedSection(a.ID, "third", 9)
	require.NoError(t, f.store.Load(ctx))
	require.NoError(t, f.store.SelectProject(ctx, p.ID))
	require.NoError(t, f.store.SelectAnalysis(ctx, a.ID))

	require.NoError(t, f.store.ReorderSections(ctx, []uuid.UUID{first.ID, second.ID, third.ID}))
	f.store.Wait()

	assert.Equal(t, []int{0, 1, 2}, orders(f.store.Sections()))
	assert.Equal(t, 2, f.gw.callCount("UpdateSection"))
	for _, patch := range f.gw.sectionPatches() {
		assert.Nil(t, patch.Content)
		assert.NotNil(t, patch.SectionOrder)
	}
}

func TestStore_ReorderRejectsInvalidSequence(t *testing.T) {
	f := newFixture(t)
	s := f.seed(t)
	ctx := context.Background()
	before := f.store.Sections()

	tests := []struct {
		name string
		ids  []uuid.UUID
	}{
		{"missing section", []uuid.UUID{s.sections[0].ID, s.sections[1].ID}},
		{"duplicate section", []uuid.UUID{s.sections[0].ID, s.sections[0].ID, s.sections[1].ID}},
		{"foreign section", []uuid.UUID{s.sections[0].ID, s.sections[1].ID, uuid.New()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.store.ReorderSections(ctx, tt.ids)
			assert.True(t, errors.Is(err, apperrors.ErrInvalidInput), "got %v", err)
			assert.Equal(t, before, f.store.Sections())
		})
	}
	assert.Zero(t, f.gw.callCount("UpdateSection"))
}

func TestStore_SelectingAnotherProjectClearsAnalysis(t *testing.T) {
	f := newFixture(t)
	s := f.seed(t)
	ctx := context.Background()

	_, ok := f.store.SelectedAnalysis()
	require.True(t, ok)

	require.NoError(t, f.store.SelectProject(ctx, s.other.ID))

	_, ok = f.store.SelectedAnalysis()
	assert.False(t, ok)
	assert.Empty(t, f.store.Sections())
	assert.Empty(t, f.store.Datasets())
	require.Len(t, f.store.Analyses(), 1)
	assert.Equal(t, "Other analysis", f.store.Analyses()[0].Name)
}

func TestStore_DeleteSelectedProjectClearsSelections(t *testing.T) {
	f := newFixture(t)
	s := f.seed(t)

	require.NoError(t, f.store.DeleteProject(context.Background(), s.project.ID))

	_, ok := f.store.SelectedProject()
	assert.False(t, ok)
	_, ok = f.store.SelectedAnalysis()
	assert.False(t, ok)
	assert.Empty(t, f.store.Analyses())
	assert.Empty(t, f.store.Sections())

	f.store.Wait()
	assert.Len(t, f.gw.remoteProjects(), 1)
	assert.Empty(t, f.gw.remoteSections(s.analysis.ID))
}

func TestStore_DeleteSelectedAnalysisClearsIt(t *testing.T) {
	f := newFixture(t)
	s := f.seed(t)

	require.NoError(t, f.store.DeleteAnalysis(context.Background(), s.analysis.ID))

	_, ok := f.store.SelectedAnalysis()
	assert.False(t, ok)
	assert.Empty(t, f.store.Sections())
	project, ok := f.store.SelectedProject()
	require.True(t, ok)
	assert.Equal(t, s.project.ID, project.ID)
	f.store.Wait()
}

func TestStore_MutationsOnPendingParentWaitForServerID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	release := f.gw.gate("CreateProject")

	placeholder := f.store.CreateProject(ctx, "draft", nil)
	name := "renamed"
	require.NoError(t, f.store.UpdateProject(ctx, placeholder.ID, models.ProjectPatch{Name: &name}))
	_, err := f.store.CreateAnalysis(ctx, "child", nil)
	require.NoError(t, err)
	_, err = f.store.CreateSection(ctx, "grandchild")
	require.NoError(t, err)

	assert.Zero(t, f.gw.callCount("CreateAnalysis"), "child create must wait for the project")
	release()
	f.store.Wait()

	remote := f.gw.remoteProjects()
	require.Len(t, remote, 1)
	assert.Equal(t, "renamed", remote[0].Name)
	analyses := f.gw.remoteAnalyses(remote[0].ID)
	require.Len(t, analyses, 1)
	assert.Len(t, f.gw.remoteSections(analyses[0].ID), 1)

	opts := cmpopts.EquateEmpty()
	if diff := cmp.Diff(remote, f.store.Projects(), opts); diff != "" {
		t.Errorf("projects mismatch (-remote +mirror):\n%s", diff)
	}
	if diff := cmp.Diff(analyses, f.store.Analyses(), opts); diff != "" {
		t.Errorf("analyses mismatch (-remote +mirror):\n%s", diff)
	}
	selected, _ := f.store.SelectedAnalysis()
	assert.Equal(t, analyses[0].ID, selected.ID)
	assert.Empty(t, f.notes.messages())
}

func TestStore_ChildOfFailedParentRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	release := f.gw.gate("CreateProject")
	f.gw.fail("CreateProject", errRemote)

	f.store.CreateProject(ctx, "doomed", nil)
	_, err := f.store.CreateAnalysis(ctx, "orphan", nil)
	require.NoError(t, err)
	release()
	f.store.Wait()

	assert.Empty(t, f.store.Projects())
	assert.Empty(t, f.store.Analyses())
	_, ok := f.store.SelectedProject()
	assert.False(t, ok)
	assert.Zero(t, f.gw.callCount("CreateAnalysis"))
	assert.ElementsMatch(t, []string{"Failed to create project", "Failed to create analysis"}, f.notes.messages())
}

func TestStore_ResetDropsLateResults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	release := f.gw.gate("CreateProject")
	f.gw.failNth("CreateProject", 2, errRemote)

	f.store.CreateProject(ctx, "first", nil)
	f.store.CreateProject(ctx, "second", nil)
	f.store.Reset()
	release()
	f.store.Wait()

	assert.Empty(t, f.store.Projects())
	_, ok := f.store.SelectedProject()
	assert.False(t, ok)
	assert.Empty(t, f.notes.messages())
	assert.Len(t, f.gw.remoteProjects(), 1)
}

func TestStore_LoadFailureNotifies(t *testing.T) {
	f := newFixture(t)
	f.gw.fail("ListProjects", errRemote)

	err := f.store.Load(context.Background())
	assert.ErrorIs(t, err, errRemote)
	assert.Equal(t, []string{"Failed to load projects"}, f.notes.messages())
}

func TestStore_SelectProjectLoadFailure(t *testing.T) {
	f := newFixture(t)
	p := f.gw.seedProject("p")
	ctx := context.Background()
	require.NoError(t, f.store.Load(ctx))
	f.gw.fail("ListDatasets", errRemote)

	err := f.store.SelectProject(ctx, p.ID)
	assert.ErrorIs(t, err, errRemote)
	assert.Contains(t, f.notes.messages(), "Failed to load datasets")
}

func TestStore_SelectProjectReportsOneFailure(t *testing.T) {
	f := newFixture(t)
	p := f.gw.seedProject("p")
	ctx := context.Background()
	require.NoError(t, f.store.Load(ctx))
	f.gw.fail("ListAnalyses", errRemote)
	f.gw.holdUntilCancelled("ListDatasets")

	err := f.store.SelectProject(ctx, p.ID)
	assert.ErrorIs(t, err, errRemote)
	assert.Equal(t, []string{"Failed to load analyses"}, f.notes.messages())
}

func TestStore_SettledPlaceholderIDStillAddressesEntity(t *testing.T) {
	f := newFixture(t)
	s := f.seed(t)
	ctx := context.Background()

	placeholder, err := f.store.CreateSection(ctx, "Notes")
	require.NoError(t, err)
	f.store.Wait()

	title := "Addendum"
	require.NoError(t, f.store.UpdateSection(ctx, placeholder.ID, models.SectionPatch{Title: &title}))
	f.store.Wait()

	got, ok := f.store.Section(placeholder.ID)
	require.True(t, ok)
	assert.NotEqual(t, placeholder.ID, got.ID)
	assert.Equal(t, "Addendum", got.Title)
	remote := f.gw.remoteSections(s.analysis.ID)
	require.Len(t, remote, 4)
	assert.Equal(t, "Addendum", remote[3].Title)

	require.NoError(t, f.store.DeleteSection(ctx, placeholder.ID))
	f.store.Wait()
	assert.Len(t, f.gw.remoteSections(s.analysis.ID), 3)
	_, ok = f.store.Section(placeholder.ID)
	assert.False(t, ok)
	assert.Empty(t, f.notes.messages())
}

func TestStore_SettledPlaceholderProjectCanBeDeleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Load(ctx))

	placeholder := f.store.CreateProject(ctx, "draft", nil)
	f.store.Wait()
	require.NoError(t, f.store.DeleteProject(ctx, placeholder.ID))
	f.store.Wait()

	assert.Empty(t, f.gw.remoteProjects())
	assert.Empty(t, f.store.Projects())
	_, ok := f.store.SelectedProject()
	assert.False(t, ok)
	assert.Empty(t, f.notes.messages())
}

func TestStore_ForgetsPlaceholdersOnceEntitiesLeave(t *testing.T) {
	f := newFixture(t)
	s := f.seed(t)
	ctx := context.Background()

	first, err := f.store.CreateSection(ctx, "first")
	require.NoError(t, err)
	_, err = f.store.CreateSection(ctx, "second")
	require.NoError(t, err)
	f.store.Wait()
	assert.Equal(t, 2, f.store.pendingCount())

	require.NoError(t, f.store.DeleteSection(ctx, first.ID))
	f.store.Wait()
	assert.Equal(t, 1, f.store.pendingCount())

	require.NoError(t, f.store.SelectProject(ctx, s.other.ID))
	assert.Zero(t, f.store.pendingCount())
}

func TestStore_ForgetsFailedCreates(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	ctx := context.Background()
	f.gw.fail("CreateSection", errRemote)

	placeholder, err := f.store.CreateSection(ctx, "lost")
	require.NoError(t, err)
	f.store.Wait()

	assert.Zero(t, f.store.pendingCount())
	err = f.store.UpdateSection(ctx, placeholder.ID, models.SectionPatch{})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestStore_LoadDeselectsVanishedProject(t *testing.T) {
	f := newFixture(t)
	s := f.seed(t)
	ctx := context.Background()

	f.gw.mu.Lock()
	delete(f.gw.projects, s.project.ID)
	f.gw.mu.Unlock()

	require.NoError(t, f.store.Load(ctx))
	_, ok := f.store.SelectedProject()
	assert.False(t, ok)
	assert.Empty(t, f.store.Analyses())
}
