// Package workspace keeps a client-side mirror of the caller's notebook.
//
// Mutations are applied to the mirror immediately and sent to the server in
// the background. A failed call undoes its own change and emits a
// Notification; callers never see remote errors from mutations.
package workspace

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/inflection"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ekaya-inc/ekaya-notebook/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-notebook/pkg/models"
)

var (
	// ErrNoProjectSelected is returned by creates that need a selected project.
	ErrNoProjectSelected = errors.New("no project selected")
	// ErrNoAnalysisSelected is returned by creates that need a selected analysis.
	ErrNoAnalysisSelected = errors.New("no analysis selected")
	// ErrParentCreateFailed fails a create whose parent never reached the server.
	ErrParentCreateFailed = errors.New("parent was not created")
)

// pendingCreate tracks a placeholder id until the server assigns the real one.
type pendingCreate struct {
	placeholder uuid.UUID
	done        chan struct{}
	id          uuid.UUID
	err         error
}

// unresolved reports whether the create is still waiting for the server.
func (p *pendingCreate) unresolved() bool {
	if p == nil {
		return false
	}
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// idRef is an id as a mutation captured it, with the create it may still
// be waiting on.
type idRef struct {
	id      uuid.UUID
	pending *pendingCreate
}

// resolve returns the server id, waiting for a pending create if needed.
// It reports false when the create failed.
func (r idRef) resolve(ctx context.Context) (uuid.UUID, bool) {
	if r.pending == nil {
		return r.id, true
	}
	select {
	case <-r.pending.done:
	case <-ctx.Done():
		return uuid.Nil, false
	}
	if r.pending.err != nil {
		return uuid.Nil, false
	}
	return r.pending.id, true
}

// current is resolve without waiting.
func (r idRef) current() uuid.UUID {
	if r.pending == nil {
		return r.id
	}
	select {
	case <-r.pending.done:
		if r.pending.err == nil {
			return r.pending.id
		}
	default:
	}
	return r.id
}

// Store is the mirror of one signed-in session. Create one per session with
// NewStore and call Reset at sign-out.
type Store struct {
	gateway  Gateway
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time

	projects *Collection[models.Project]
	analyses *Collection[models.Analysis]
	datasets *Collection[models.Dataset]
	sections *Collection[models.Section]

	mu                 sync.Mutex
	gen                uint64
	selectedProjectID  uuid.UUID
	selectedAnalysisID uuid.UUID
	pending            map[uuid.UUID]*pendingCreate

	wg sync.WaitGroup
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithClock replaces time.Now for placeholder timestamps.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// NewStore creates an empty store. A nil notifier logs notifications.
func NewStore(gateway Gateway, notifier Notifier, logger *zap.Logger, opts ...StoreOption) *Store {
	logger = logger.Named("workspace")
	if notifier == nil {
		notifier = LogNotifier{Logger: logger}
	}
	s := &Store{
		gateway:  gateway,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
		projects: NewCollection(
			func(p models.Project) uuid.UUID { return p.ID },
			func(p *models.Project, id uuid.UUID) { p.ID = id },
			func(a, b models.Project) bool { return a.CreatedAt.After(b.CreatedAt) },
		),
		analyses: NewCollection(
			func(a models.Analysis) uuid.UUID { return a.ID },
			func(a *models.Analysis, id uuid.UUID) { a.ID = id },
			func(a, b models.Analysis) bool { return a.CreatedAt.Before(b.CreatedAt) },
		),
		datasets: NewCollection(
			func(d models.Dataset) uuid.UUID { return d.ID },
			func(d *models.Dataset, id uuid.UUID) { d.ID = id },
			func(a, b models.Dataset) bool { return a.CreatedAt.Before(b.CreatedAt) },
		),
		sections: NewCollection(
			func(s models.Section) uuid.UUID { return s.ID },
			func(s *models.Section, id uuid.UUID) { s.ID = id },
			func(a, b models.Section) bool {
				if c := cmp.Compare(a.SectionOrder, b.SectionOrder); c != 0 {
					return c < 0
				}
				return a.CreatedAt.Before(b.CreatedAt)
			},
		),
		pending: make(map[uuid.UUID]*pendingCreate),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Projects returns the mirrored projects, newest first.
func (s *Store) Projects() []models.Project { return s.projects.Items() }

// Analyses returns the selected project's analyses, oldest first.
func (s *Store) Analyses() []models.Analysis { return s.analyses.Items() }

// Datasets returns the selected project's datasets, oldest first.
func (s *Store) Datasets() []models.Dataset { return s.datasets.Items() }

// Sections returns the selected analysis's sections in order.
func (s *Store) Sections() []models.Section { return s.sections.Items() }

// Section returns a mirrored section by its server or placeholder id.
func (s *Store) Section(id uuid.UUID) (models.Section, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sections.Get(s.refLocked(id).id)
}

// Wait blocks until every background call has completed.
func (s *Store) Wait() {
	s.wg.Wait()
}

// Reset clears the mirror and selections. Calls still in flight complete
// against the server but their results are dropped.
func (s *Store) Reset() {
	s.mu.Lock()
	s.gen++
	s.selectedProjectID = uuid.Nil
	s.selectedAnalysisID = uuid.Nil
	s.pending = make(map[uuid.UUID]*pendingCreate)
	s.mu.Unlock()

	s.projects.Clear()
	s.analyses.Clear()
	s.datasets.Clear()
	s.sections.Clear()
}

// Load fetches the caller's projects. A selected project that no longer
// exists is deselected.
func (s *Store) Load(ctx context.Context) error {
	gen := s.generation()
	epoch := s.projects.Epoch()

	projects, err := s.gateway.ListProjects(ctx)
	if err != nil {
		s.notify(gen, newNotification(ActionLoad, inflection.Plural("project"), err))
		return fmt.Errorf("failed to load projects: %w", err)
	}
	if !s.projects.ReplaceAt(epoch, values(projects)) {
		return nil
	}
	defer s.prune()

	s.mu.Lock()
	selected := s.selectedProjectID
	s.mu.Unlock()
	if selected != uuid.Nil {
		if _, ok := s.projects.Get(selected); !ok {
			s.deselectProject(selected)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Selection
// ---------------------------------------------------------------------------

// SelectedProject returns the selected project from the mirror.
func (s *Store) SelectedProject() (models.Project, bool) {
	s.mu.Lock()
	id := s.selectedProjectID
	s.mu.Unlock()
	if id == uuid.Nil {
		return models.Project{}, false
	}
	return s.projects.Get(id)
}

// SelectedAnalysis returns the selected analysis from the mirror.
func (s *Store) SelectedAnalysis() (models.Analysis, bool) {
	s.mu.Lock()
	id := s.selectedAnalysisID
	s.mu.Unlock()
	if id == uuid.Nil {
		return models.Analysis{}, false
	}
	return s.analyses.Get(id)
}

// SelectProject selects a project, clears the analysis selection and
// refetches the project's analyses and datasets.
func (s *Store) SelectProject(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	r := s.refLocked(id)
	if _, ok := s.projects.Get(r.id); !ok {
		s.mu.Unlock()
		return fmt.Errorf("project %s: %w", id, apperrors.ErrNotFound)
	}
	id = r.id
	s.selectedProjectID = id
	s.selectedAnalysisID = uuid.Nil
	gen := s.gen
	unresolved := r.pending.unresolved()
	s.mu.Unlock()

	analysesEpoch := s.analyses.Clear()
	datasetsEpoch := s.datasets.Clear()
	s.sections.Clear()

	// A project still being created has nothing to fetch.
	if unresolved {
		return nil
	}

	var (
		analyses []*models.Analysis
		datasets []*models.Dataset
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if analyses, err = s.gateway.ListAnalyses(gctx, id); err != nil {
			// A cancelled group means the other fetch already failed and notified.
			if gctx.Err() == nil {
				s.notify(gen, newNotification(ActionLoad, inflection.Plural("analysis"), err))
			}
			return fmt.Errorf("failed to load analyses: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if datasets, err = s.gateway.ListDatasets(gctx, id); err != nil {
			if gctx.Err() == nil {
				s.notify(gen, newNotification(ActionLoad, inflection.Plural("dataset"), err))
			}
			return fmt.Errorf("failed to load datasets: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	s.analyses.ReplaceAt(analysesEpoch, values(analyses))
	s.datasets.ReplaceAt(datasetsEpoch, values(datasets))
	s.prune()
	return nil
}

// SelectAnalysis selects an analysis of the selected project and refetches
// its sections.
func (s *Store) SelectAnalysis(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	r := s.refLocked(id)
	if _, ok := s.analyses.Get(r.id); !ok {
		s.mu.Unlock()
		return fmt.Errorf("analysis %s: %w", id, apperrors.ErrNotFound)
	}
	id = r.id
	s.selectedAnalysisID = id
	gen := s.gen
	unresolved := r.pending.unresolved()
	s.mu.Unlock()

	epoch := s.sections.Clear()
	if unresolved {
		return nil
	}

	sections, err := s.gateway.ListSections(ctx, id)
	if err != nil {
		s.notify(gen, newNotification(ActionLoad, inflection.Plural("section"), err))
		return fmt.Errorf("failed to load sections: %w", err)
	}
	s.sections.ReplaceAt(epoch, values(sections))
	s.prune()
	return nil
}

// projectSelection is what selecting or deselecting a project throws away.
type projectSelection struct {
	projectID  uuid.UUID
	analysisID uuid.UUID
	analyses   []models.Analysis
	datasets   []models.Dataset
	sections   []models.Section
}

// switchProject selects id (uuid.Nil deselects) without fetching and
// returns the previous selection.
func (s *Store) switchProject(id uuid.UUID) projectSelection {
	s.mu.Lock()
	prev := projectSelection{
		projectID:  s.selectedProjectID,
		analysisID: s.selectedAnalysisID,
		analyses:   s.analyses.Items(),
		datasets:   s.datasets.Items(),
		sections:   s.sections.Items(),
	}
	s.selectedProjectID = id
	s.selectedAnalysisID = uuid.Nil
	s.mu.Unlock()

	s.analyses.Clear()
	s.datasets.Clear()
	s.sections.Clear()
	return prev
}

// restoreProject puts prev back if the selection is still expected.
func (s *Store) restoreProject(gen uint64, expected uuid.UUID, prev projectSelection) {
	s.mu.Lock()
	if s.gen != gen || s.selectedProjectID != expected {
		s.mu.Unlock()
		return
	}
	s.selectedProjectID = prev.projectID
	s.selectedAnalysisID = prev.analysisID
	s.mu.Unlock()

	s.analyses.Replace(prev.analyses)
	s.datasets.Replace(prev.datasets)
	s.sections.Replace(prev.sections)
}

func (s *Store) deselectProject(id uuid.UUID) {
	s.mu.Lock()
	selected := s.selectedProjectID == id
	s.mu.Unlock()
	if selected {
		s.switchProject(uuid.Nil)
	}
}

// analysisSelection is what selecting or deselecting an analysis throws away.
type analysisSelection struct {
	analysisID uuid.UUID
	sections   []models.Section
}

func (s *Store) switchAnalysis(id uuid.UUID) analysisSelection {
	s.mu.Lock()
	prev := analysisSelection{analysisID: s.selectedAnalysisID, sections: s.sections.Items()}
	s.selectedAnalysisID = id
	s.mu.Unlock()

	s.sections.Clear()
	return prev
}

func (s *Store) restoreAnalysis(gen uint64, expected uuid.UUID, prev analysisSelection) {
	s.mu.Lock()
	if s.gen != gen || s.selectedAnalysisID != expected {
		s.mu.Unlock()
		return
	}
	s.selectedAnalysisID = prev.analysisID
	s.mu.Unlock()

	s.sections.Replace(prev.sections)
}

// ---------------------------------------------------------------------------
// Projects
// ---------------------------------------------------------------------------

// CreateProject adds a project, selects it and returns the placeholder.
func (s *Store) CreateProject(ctx context.Context, name string, description *string) models.Project {
	now := s.now()
	placeholder := models.Project{
		ID:          uuid.New(),
		Name:        defaultName(name, models.DefaultProjectName),
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	gen, p := s.track(placeholder.ID)
	epoch := s.projects.Insert(placeholder)
	prev := s.switchProject(placeholder.ID)

	s.run(ctx, func(ctx context.Context) {
		created, err := s.gateway.CreateProject(ctx, placeholder.Name, description)
		if err != nil {
			s.projects.RemoveAt(epoch, placeholder.ID)
			s.restoreProject(gen, placeholder.ID, prev)
			s.settle(gen, p, uuid.Nil, err, nil)
			s.notify(gen, newNotification(ActionCreate, "project", err))
			return
		}
		s.settle(gen, p, created.ID, nil, func() { s.projects.SwapAt(epoch, placeholder.ID, *created) })
	})
	return placeholder
}

// UpdateProject patches a mirrored project.
func (s *Store) UpdateProject(ctx context.Context, id uuid.UUID, patch models.ProjectPatch) error {
	return mirrorUpdate(s, ctx, s.projects, "project", id,
		func(p *models.Project) {
			patch.Apply(p)
			p.UpdatedAt = s.now()
		},
		func(ctx context.Context, id uuid.UUID) (*models.Project, error) {
			return s.gateway.UpdateProject(ctx, id, patch)
		})
}

// DeleteProject removes a project. Deleting the selected project clears
// both selections.
func (s *Store) DeleteProject(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	r := s.refLocked(id)
	gen := s.gen
	removed, epoch, ok := s.projects.Remove(r.id)
	wasSelected := ok && s.selectedProjectID == r.id
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("project %s: %w", id, apperrors.ErrNotFound)
	}

	var prev projectSelection
	if wasSelected {
		prev = s.switchProject(uuid.Nil)
	}

	s.run(ctx, func(ctx context.Context) {
		realID, ok := r.resolve(ctx)
		if !ok {
			return
		}
		err := s.gateway.DeleteProject(ctx, realID)
		if err == nil {
			return
		}
		if s.projects.PutAt(epoch, s.projects.WithID(removed, realID)) && wasSelected {
			prev.projectID = realID
			s.restoreProject(gen, uuid.Nil, prev)
		}
		s.notify(gen, newNotification(ActionDelete, "project", err))
	})
	return nil
}

// ---------------------------------------------------------------------------
// Analyses
// ---------------------------------------------------------------------------

// CreateAnalysis adds an analysis to the selected project, selects it and
// returns the placeholder.
func (s *Store) CreateAnalysis(ctx context.Context, name string, labels []string) (models.Analysis, error) {
	s.mu.Lock()
	projectID := s.selectedProjectID
	s.mu.Unlock()
	if projectID == uuid.Nil {
		return models.Analysis{}, ErrNoProjectSelected
	}

	now := s.now()
	placeholder := models.Analysis{
		ID:        uuid.New(),
		ProjectID: projectID,
		Name:      defaultName(name, models.DefaultAnalysisName),
		Labels:    append([]string{}, labels...),
		CreatedAt: now,
		UpdatedAt: now,
	}

	parent := s.ref(projectID)
	gen, p := s.track(placeholder.ID)
	epoch := s.analyses.Insert(placeholder)
	prev := s.switchAnalysis(placeholder.ID)

	s.run(ctx, func(ctx context.Context) {
		created, err := createUnder(ctx, parent, func(ctx context.Context, parentID uuid.UUID) (*models.Analysis, error) {
			return s.gateway.CreateAnalysis(ctx, parentID, placeholder.Name, placeholder.Labels)
		})
		if err != nil {
			s.analyses.RemoveAt(epoch, placeholder.ID)
			s.restoreAnalysis(gen, placeholder.ID, prev)
			s.settle(gen, p, uuid.Nil, err, nil)
			s.notify(gen, newNotification(ActionCreate, "analysis", err))
			return
		}
		s.settle(gen, p, created.ID, nil, func() { s.analyses.SwapAt(epoch, placeholder.ID, *created) })
	})
	return placeholder, nil
}

// UpdateAnalysis patches a mirrored analysis.
func (s *Store) UpdateAnalysis(ctx context.Context, id uuid.UUID, patch models.AnalysisPatch) error {
	return mirrorUpdate(s, ctx, s.analyses, "analysis", id,
		func(a *models.Analysis) {
			patch.Apply(a)
			a.UpdatedAt = s.now()
		},
		func(ctx context.Context, id uuid.UUID) (*models.Analysis, error) {
			return s.gateway.UpdateAnalysis(ctx, id, patch)
		})
}

// DeleteAnalysis removes an analysis. Deleting the selected analysis clears
// the selection and its sections.
func (s *Store) DeleteAnalysis(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	r := s.refLocked(id)
	gen := s.gen
	removed, epoch, ok := s.analyses.Remove(r.id)
	wasSelected := ok && s.selectedAnalysisID == r.id
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("analysis %s: %w", id, apperrors.ErrNotFound)
	}

	var prev analysisSelection
	if wasSelected {
		prev = s.switchAnalysis(uuid.Nil)
	}

	s.run(ctx, func(ctx context.Context) {
		realID, ok := r.resolve(ctx)
		if !ok {
			return
		}
		err := s.gateway.DeleteAnalysis(ctx, realID)
		if err == nil {
			return
		}
		if s.analyses.PutAt(epoch, s.analyses.WithID(removed, realID)) && wasSelected {
			prev.analysisID = realID
			s.restoreAnalysis(gen, uuid.Nil, prev)
		}
		s.notify(gen, newNotification(ActionDelete, "analysis", err))
	})
	return nil
}

// ---------------------------------------------------------------------------
// Datasets
// ---------------------------------------------------------------------------

// CreateDataset adds a dataset to the selected project and returns the
// placeholder.
func (s *Store) CreateDataset(ctx context.Context, name string, description *string) (models.Dataset, error) {
	s.mu.Lock()
	projectID := s.selectedProjectID
	s.mu.Unlock()
	if projectID == uuid.Nil {
		return models.Dataset{}, ErrNoProjectSelected
	}

	now := s.now()
	placeholder := models.Dataset{
		ID:          uuid.New(),
		ProjectID:   projectID,
		Name:        defaultName(name, models.DefaultDatasetName),
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return placeholder, mirrorCreate(s, ctx, s.datasets, "dataset", placeholder, projectID,
		func(ctx context.Context, parentID uuid.UUID) (*models.Dataset, error) {
			return s.gateway.CreateDataset(ctx, parentID, placeholder.Name, description)
		})
}

// UpdateDataset patches a mirrored dataset.
func (s *Store) UpdateDataset(ctx context.Context, id uuid.UUID, patch models.DatasetPatch) error {
	return mirrorUpdate(s, ctx, s.datasets, "dataset", id,
		func(d *models.Dataset) {
			patch.Apply(d)
			d.UpdatedAt = s.now()
		},
		func(ctx context.Context, id uuid.UUID) (*models.Dataset, error) {
			return s.gateway.UpdateDataset(ctx, id, patch)
		})
}

// DeleteDataset removes a mirrored dataset.
func (s *Store) DeleteDataset(ctx context.Context, id uuid.UUID) error {
	return mirrorDelete(s, ctx, s.datasets, "dataset", id, s.gateway.DeleteDataset)
}

// ---------------------------------------------------------------------------
// Sections
// ---------------------------------------------------------------------------

// CreateSection appends a section to the selected analysis and returns the
// placeholder. The order key is fixed here so that creates landing on the
// server out of order keep the order they were made in.
func (s *Store) CreateSection(ctx context.Context, title string) (models.Section, error) {
	s.mu.Lock()
	analysisID := s.selectedAnalysisID
	s.mu.Unlock()
	if analysisID == uuid.Nil {
		return models.Section{}, ErrNoAnalysisSelected
	}

	order := 0
	for _, existing := range s.sections.Items() {
		order = max(order, existing.SectionOrder+1)
	}

	now := s.now()
	placeholder := models.Section{
		ID:           uuid.New(),
		AnalysisID:   analysisID,
		Title:        defaultName(title, models.DefaultSectionTitle),
		SectionOrder: order,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return placeholder, mirrorCreate(s, ctx, s.sections, "section", placeholder, analysisID,
		func(ctx context.Context, parentID uuid.UUID) (*models.Section, error) {
			order := placeholder.SectionOrder
			return s.gateway.CreateSection(ctx, parentID, placeholder.Title, &order)
		})
}

// UpdateSection patches a mirrored section.
func (s *Store) UpdateSection(ctx context.Context, id uuid.UUID, patch models.SectionPatch) error {
	return mirrorUpdate(s, ctx, s.sections, "section", id,
		func(sec *models.Section) {
			patch.Apply(sec)
			sec.UpdatedAt = s.now()
		},
		func(ctx context.Context, id uuid.UUID) (*models.Section, error) {
			return s.gateway.UpdateSection(ctx, id, patch)
		})
}

// DeleteSection removes a mirrored section.
func (s *Store) DeleteSection(ctx context.Context, id uuid.UUID) error {
	return mirrorDelete(s, ctx, s.sections, "section", id, s.gateway.DeleteSection)
}

// ReorderSections puts the selected analysis's sections in the order of ids,
// which must name every mirrored section exactly once. Order keys become
// 0..N-1. Changed rows are sent one at a time; any failure reverts every
// row's key.
func (s *Store) ReorderSections(ctx context.Context, ids []uuid.UUID) error {
	type change struct {
		ref      idRef
		from, to int
	}
	var (
		changes []change
		invalid error
	)

	s.mu.Lock()
	refs := make(map[uuid.UUID]idRef, len(ids))
	position := make(map[uuid.UUID]int, len(ids))
	for i, id := range ids {
		r := s.refLocked(id)
		if _, dup := position[r.id]; dup {
			s.mu.Unlock()
			return apperrors.NewInputError("section %s listed twice", id)
		}
		position[r.id] = i
		refs[r.id] = r
	}
	gen := s.gen
	epoch := s.sections.Mutate(func(items []models.Section) {
		if len(items) != len(ids) {
			invalid = apperrors.NewInputError("expected %d sections, got %d", len(items), len(ids))
			return
		}
		for _, item := range items {
			if _, ok := position[item.ID]; !ok {
				invalid = apperrors.NewInputError("section %s is not in the selected analysis", item.ID)
				return
			}
		}
		for i := range items {
			to := position[items[i].ID]
			if items[i].SectionOrder != to {
				changes = append(changes, change{ref: refs[items[i].ID], from: items[i].SectionOrder, to: to})
				items[i].SectionOrder = to
			}
		}
	})
	s.mu.Unlock()
	if invalid != nil {
		return invalid
	}
	if len(changes) == 0 {
		return nil
	}

	s.run(ctx, func(ctx context.Context) {
		var (
			updated []*models.Section
			failed  error
		)
		for _, c := range changes {
			realID, ok := c.ref.resolve(ctx)
			if !ok {
				failed = ErrParentCreateFailed
				break
			}
			order := c.to
			section, err := s.gateway.UpdateSection(ctx, realID, models.SectionPatch{SectionOrder: &order})
			if err != nil {
				failed = err
				break
			}
			updated = append(updated, section)
		}
		if failed == nil {
			for _, section := range updated {
				s.sections.SwapAt(epoch, section.ID, *section)
			}
			return
		}
		for _, c := range changes {
			from := c.from
			s.sections.UpdateAt(epoch, c.ref.current(), func(sec *models.Section) { sec.SectionOrder = from })
		}
		s.notify(gen, newNotification(ActionReorder, inflection.Plural("section"), failed))
	})
	return nil
}

// ---------------------------------------------------------------------------
// Generic mutation paths
// ---------------------------------------------------------------------------

// mirrorCreate inserts placeholder and creates it remotely under parentID,
// which may itself be a placeholder.
func mirrorCreate[T any](s *Store, ctx context.Context, c *Collection[T], entity string, placeholder T, parentID uuid.UUID,
	remote func(ctx context.Context, parentID uuid.UUID) (*T, error)) error {
	id := c.idOf(placeholder)
	parent := s.ref(parentID)
	gen, p := s.track(id)
	epoch := c.Insert(placeholder)

	s.run(ctx, func(ctx context.Context) {
		created, err := createUnder(ctx, parent, remote)
		if err != nil {
			c.RemoveAt(epoch, id)
			s.settle(gen, p, uuid.Nil, err, nil)
			s.notify(gen, newNotification(ActionCreate, entity, err))
			return
		}
		s.settle(gen, p, c.idOf(*created), nil, func() { c.SwapAt(epoch, id, *created) })
	})
	return nil
}

// mirrorUpdate applies a patch locally and remotely. On failure the entity
// is put back as it was; the server's copy replaces it on success. id may
// be a placeholder, settled or not.
func mirrorUpdate[T any](s *Store, ctx context.Context, c *Collection[T], entity string, id uuid.UUID,
	apply func(*T), remote func(ctx context.Context, id uuid.UUID) (*T, error)) error {
	s.mu.Lock()
	r := s.refLocked(id)
	gen := s.gen
	before, epoch, ok := c.Update(r.id, apply)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%s %s: %w", entity, id, apperrors.ErrNotFound)
	}

	s.run(ctx, func(ctx context.Context) {
		realID, ok := r.resolve(ctx)
		if !ok {
			return
		}
		updated, err := remote(ctx, realID)
		if err == nil {
			c.SwapAt(epoch, realID, *updated)
			return
		}
		c.SwapAt(epoch, realID, c.WithID(before, realID))
		s.notify(gen, newNotification(ActionUpdate, entity, err))
	})
	return nil
}

// mirrorDelete removes an entity locally and remotely, reinserting it on
// failure.
func mirrorDelete[T any](s *Store, ctx context.Context, c *Collection[T], entity string, id uuid.UUID,
	remote func(ctx context.Context, id uuid.UUID) error) error {
	s.mu.Lock()
	r := s.refLocked(id)
	gen := s.gen
	removed, epoch, ok := c.Remove(r.id)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%s %s: %w", entity, id, apperrors.ErrNotFound)
	}

	s.run(ctx, func(ctx context.Context) {
		realID, ok := r.resolve(ctx)
		if !ok {
			return
		}
		if err := remote(ctx, realID); err != nil {
			c.PutAt(epoch, c.WithID(removed, realID))
			s.notify(gen, newNotification(ActionDelete, entity, err))
		}
	})
	return nil
}

// createUnder waits for parent to resolve and runs the remote create.
func createUnder[T any](ctx context.Context, parent idRef, remote func(context.Context, uuid.UUID) (*T, error)) (*T, error) {
	realParent, ok := parent.resolve(ctx)
	if !ok {
		return nil, ErrParentCreateFailed
	}
	return remote(ctx, realParent)
}

// ---------------------------------------------------------------------------
// Placeholders and background calls
// ---------------------------------------------------------------------------

// track registers a placeholder id and returns the generation it belongs to.
func (s *Store) track(id uuid.UUID) (uint64, *pendingCreate) {
	p := &pendingCreate{placeholder: id, done: make(chan struct{})}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[id] = p
	return s.gen, p
}

// settle records the outcome of a create and points selections at the
// server id. swap runs under the store lock, so no mutation can see the
// server id before the mirror holds it.
func (s *Store) settle(gen uint64, p *pendingCreate, id uuid.UUID, err error, swap func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if swap != nil {
		swap()
	}
	p.id, p.err = id, err
	if err == nil && s.gen == gen {
		if s.selectedProjectID == p.placeholder {
			s.selectedProjectID = id
		}
		if s.selectedAnalysisID == p.placeholder {
			s.selectedAnalysisID = id
		}
	}
	close(p.done)
}

func (s *Store) ref(id uuid.UUID) idRef {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refLocked(id)
}

// refLocked maps a settled placeholder to its server id and captures an
// unsettled one. Caller holds mu.
func (s *Store) refLocked(id uuid.UUID) idRef {
	p, ok := s.pending[id]
	if !ok {
		return idRef{id: id}
	}
	if !p.unresolved() && p.err == nil {
		return idRef{id: p.id}
	}
	return idRef{id: id, pending: p}
}

// prune forgets settled creates whose entity has left the mirror. A
// placeholder id keeps working for as long as its entity is mirrored.
func (s *Store) prune() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for placeholder, p := range s.pending {
		if p.unresolved() {
			continue
		}
		if p.err == nil && s.mirrored(p.id) {
			continue
		}
		delete(s.pending, placeholder)
	}
}

func (s *Store) mirrored(id uuid.UUID) bool {
	if _, ok := s.projects.Get(id); ok {
		return true
	}
	if _, ok := s.analyses.Get(id); ok {
		return true
	}
	if _, ok := s.datasets.Get(id); ok {
		return true
	}
	_, ok := s.sections.Get(id)
	return ok
}

func (s *Store) generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// run performs a remote call in the background. The call is detached from
// the caller's cancellation.
func (s *Store) run(ctx context.Context, fn func(ctx context.Context)) {
	ctx = context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn(ctx)
		s.prune()
	}()
}

// notify forwards n unless the store was reset since gen.
func (s *Store) notify(gen uint64, n Notification) {
	if s.generation() != gen {
		s.logger.Debug("Dropping notification from previous session", zap.String("message", n.Message))
		return
	}
	s.logger.Debug("Rolled back mirrored change", zap.String("message", n.Message), zap.Error(n.Err))
	s.notifier.Notify(n)
}

func defaultName(name, fallback string) string {
	if name = strings.TrimSpace(name); name == "" {
		return fallback
	}
	return name
}

func values[T any](ptrs []*T) []T {
	out := make([]T, 0, len(ptrs))
	for _, p := range ptrs {
		if p != nil {
			out = append(out, *p)
		}
	}
	return out
}
