package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ekaya-inc/ekaya-notebook/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-notebook/pkg/auth"
	"github.com/ekaya-inc/ekaya-notebook/pkg/models"
)

// mockProjectRepo is an in-memory ProjectRepository.
type mockProjectRepo struct {
	projects map[uuid.UUID]*models.Project
	err      error
}

func newMockProjectRepo() *mockProjectRepo {
	return &mockProjectRepo{projects: make(map[uuid.UUID]*models.Project)}
}

func (m *mockProjectRepo) add(userID uuid.UUID, name string) *models.Project {
	p := &models.Project{ID: uuid.New(), UserID: userID, Name: name, ShareToken: strings.Repeat("ab", 32), CreatedAt: time.Now()}
	m.projects[p.ID] = p
	return p
}

func (m *mockProjectRepo) Create(ctx context.Context, project *models.Project) error {
	if m.err != nil {
		return m.err
	}
	if project.Name == "" {
		project.Name = models.DefaultProjectName
	}
	project.ID = uuid.New()
	project.CreatedAt = time.Now()
	stored := *project
	m.projects[project.ID] = &stored
	return nil
}

func (m *mockProjectRepo) Get(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	p, ok := m.projects[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (m *mockProjectRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Project, error) {
	var out []*models.Project
	for _, p := range m.projects {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *mockProjectRepo) Update(ctx context.Context, project *models.Project) error {
	if m.err != nil {
		return m.err
	}
	if _, ok := m.projects[project.ID]; !ok {
		return apperrors.ErrNotFound
	}
	stored := *project
	m.projects[project.ID] = &stored
	return nil
}

func (m *mockProjectRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.projects[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(m.projects, id)
	return nil
}

func (m *mockProjectRepo) GetByShareToken(ctx context.Context, token string) (*models.Project, error) {
	for _, p := range m.projects {
		if p.ShareToken == token && p.IsPublic {
			return &models.Project{ID: p.ID, Name: p.Name, Description: p.Description, IsPublic: true, CreatedAt: p.CreatedAt}, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

// mockAnalysisRepo is an in-memory AnalysisRepository.
type mockAnalysisRepo struct {
	analyses map[uuid.UUID]*models.Analysis
	seq      int
}

func newMockAnalysisRepo() *mockAnalysisRepo {
	return &mockAnalysisRepo{analyses: make(map[uuid.UUID]*models.Analysis)}
}

func (m *mockAnalysisRepo) add(projectID uuid.UUID, name string) *models.Analysis {
	a := &models.Analysis{ProjectID: projectID, Name: name}
	_ = m.Create(context.Background(), a)
	return a
}

func (m *mockAnalysisRepo) Create(ctx context.Context, a *models.Analysis) error {
	if a.Name == "" {
		a.Name = models.DefaultAnalysisName
	}
	if a.Labels == nil {
		a.Labels = []string{}
	}
	m.seq++
	a.ID = uuid.New()
	a.CreatedAt = time.Unix(int64(m.seq), 0)
	stored := *a
	m.analyses[a.ID] = &stored
	return nil
}

func (m *mockAnalysisRepo) Get(ctx context.Context, id uuid.UUID) (*models.Analysis, error) {
	a, ok := m.analyses[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	copied := *a
	return &copied, nil
}

func (m *mockAnalysisRepo) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.Analysis, error) {
	out := []*models.Analysis{}
	for _, a := range m.analyses {
		if a.ProjectID == projectID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *mockAnalysisRepo) Update(ctx context.Context, a *models.Analysis) error {
	if _, ok := m.analyses[a.ID]; !ok {
		return apperrors.ErrNotFound
	}
	stored := *a
	m.analyses[a.ID] = &stored
	return nil
}

func (m *mockAnalysisRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.analyses[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(m.analyses, id)
	return nil
}

// mockDatasetRepo is an in-memory DatasetRepository.
type mockDatasetRepo struct {
	datasets map[uuid.UUID]*models.Dataset
}

func newMockDatasetRepo() *mockDatasetRepo {
	return &mockDatasetRepo{datasets: make(map[uuid.UUID]*models.Dataset)}
}

func (m *mockDatasetRepo) Create(ctx context.Context, d *models.Dataset) error {
	if d.Name == "" {
		d.Name = models.DefaultDatasetName
	}
	d.ID = uuid.New()
	stored := *d
	m.datasets[d.ID] = &stored
	return nil
}

func (m *mockDatasetRepo) Get(ctx context.Context, id uuid.UUID) (*models.Dataset, error) {
	d, ok := m.datasets[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	copied := *d
	return &copied, nil
}

func (m *mockDatasetRepo) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.Dataset, error) {
	out := []*models.Dataset{}
	for _, d := range m.datasets {
		if d.ProjectID == projectID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *mockDatasetRepo) Update(ctx context.Context, d *models.Dataset) error {
	if _, ok := m.datasets[d.ID]; !ok {
		return apperrors.ErrNotFound
	}
	stored := *d
	m.datasets[d.ID] = &stored
	return nil
}

func (m *mockDatasetRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.datasets[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(m.datasets, id)
	return nil
}

// mockSectionRepo is an in-memory SectionRepository.
type mockSectionRepo struct {
	sections       map[uuid.UUID]*models.Section
	updateOrderErr error
	orderUpdates   [][]models.SectionOrderUpdate
}

func newMockSectionRepo() *mockSectionRepo {
	return &mockSectionRepo{sections: make(map[uuid.UUID]*models.Section)}
}

func (m *mockSectionRepo) Create(ctx context.Context, s *models.Section, order *int) error {
	if s.Title == "" {
		s.Title = models.DefaultSectionTitle
	}
	if order != nil {
		s.SectionOrder = *order
	} else {
		s.SectionOrder = 0
		for _, existing := range m.sections {
			if existing.AnalysisID == s.AnalysisID {
				s.SectionOrder = max(s.SectionOrder, existing.SectionOrder+1)
			}
		}
	}
	s.ID = uuid.New()
	stored := *s
	m.sections[s.ID] = &stored
	return nil
}

func (m *mockSectionRepo) Get(ctx context.Context, id uuid.UUID) (*models.Section, error) {
	s, ok := m.sections[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	copied := *s
	return &copied, nil
}

func (m *mockSectionRepo) ListByAnalysis(ctx context.Context, analysisID uuid.UUID) ([]*models.Section, error) {
	out := []*models.Section{}
	for _, s := range m.sections {
		if s.AnalysisID == analysisID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SectionOrder < out[j].SectionOrder })
	return out, nil
}

func (m *mockSectionRepo) Update(ctx context.Context, s *models.Section) error {
	if _, ok := m.sections[s.ID]; !ok {
		return apperrors.ErrNotFound
	}
	stored := *s
	m.sections[s.ID] = &stored
	return nil
}

func (m *mockSectionRepo) UpdateOrder(ctx context.Context, updates []models.SectionOrderUpdate) error {
	m.orderUpdates = append(m.orderUpdates, updates)
	if m.updateOrderErr != nil {
		return m.updateOrderErr
	}
	for _, u := range updates {
		m.sections[u.ID].SectionOrder = u.SectionOrder
	}
	return nil
}

func (m *mockSectionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.sections[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(m.sections, id)
	return nil
}

// mockAccountRepo is an in-memory AccountRepository.
type mockAccountRepo struct {
	accounts map[uuid.UUID]*models.Account
}

func newMockAccountRepo() *mockAccountRepo {
	return &mockAccountRepo{accounts: make(map[uuid.UUID]*models.Account)}
}

func (m *mockAccountRepo) Create(ctx context.Context, a *models.Account) error {
	for _, existing := range m.accounts {
		if strings.EqualFold(existing.Email, a.Email) {
			return apperrors.ErrConflict
		}
	}
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	stored := *a
	m.accounts[a.ID] = &stored
	return nil
}

func (m *mockAccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	a, ok := m.accounts[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	copied := *a
	return &copied, nil
}

func (m *mockAccountRepo) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	for _, a := range m.accounts {
		if strings.EqualFold(a.Email, email) {
			copied := *a
			return &copied, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockAccountRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.accounts[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(m.accounts, id)
	return nil
}

// mockProfileRepo is an in-memory ProfileRepository.
type mockProfileRepo struct {
	profiles  map[uuid.UUID]*models.Profile
	createErr error
	touched   []uuid.UUID
}

func newMockProfileRepo() *mockProfileRepo {
	return &mockProfileRepo{profiles: make(map[uuid.UUID]*models.Profile)}
}

func (m *mockProfileRepo) Create(ctx context.Context, p *models.Profile) error {
	if m.createErr != nil {
		return m.createErr
	}
	p.ID = uuid.New()
	stored := *p
	m.profiles[p.UserID] = &stored
	return nil
}

func (m *mockProfileRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	p, ok := m.profiles[userID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (m *mockProfileRepo) UpdateDisplayName(ctx context.Context, userID uuid.UUID, displayName string) (*models.Profile, error) {
	p, ok := m.profiles[userID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	p.DisplayName = &displayName
	copied := *p
	return &copied, nil
}

func (m *mockProfileRepo) UpdateAvatarURL(ctx context.Context, userID uuid.UUID, avatarURL string) (*models.Profile, error) {
	p, ok := m.profiles[userID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	p.AvatarURL = &avatarURL
	copied := *p
	return &copied, nil
}

func (m *mockProfileRepo) SetLastProject(ctx context.Context, userID uuid.UUID, projectID *uuid.UUID) error {
	p, ok := m.profiles[userID]
	if !ok {
		return apperrors.ErrNotFound
	}
	p.LastProjectID = projectID
	return nil
}

func (m *mockProfileRepo) TouchLastLogin(ctx context.Context, userID uuid.UUID) error {
	m.touched = append(m.touched, userID)
	return nil
}

// mockUserRoleRepo is an in-memory UserRoleRepository.
type mockUserRoleRepo struct {
	roles map[uuid.UUID][]models.AppRole
}

func newMockUserRoleRepo() *mockUserRoleRepo {
	return &mockUserRoleRepo{roles: make(map[uuid.UUID][]models.AppRole)}
}

func (m *mockUserRoleRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.AppRole, error) {
	return append([]models.AppRole{}, m.roles[userID]...), nil
}

func (m *mockUserRoleRepo) Add(ctx context.Context, userID uuid.UUID, role models.AppRole) error {
	m.roles[userID] = append(m.roles[userID], role)
	return nil
}

func (m *mockUserRoleRepo) Remove(ctx context.Context, userID uuid.UUID, role models.AppRole) error {
	return nil
}

func (m *mockUserRoleRepo) HasRole(ctx context.Context, userID uuid.UUID, role models.AppRole) (bool, error) {
	for _, r := range m.roles[userID] {
		if r == role {
			return true, nil
		}
	}
	return false, nil
}

// mockAuditRepo records entries in memory.
type mockAuditRepo struct {
	entries []*models.AuditLogEntry
}

func (m *mockAuditRepo) Create(ctx context.Context, entry *models.AuditLogEntry) error {
	entry.ID = uuid.New()
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockAuditRepo) List(ctx context.Context, tableName string, recordID *uuid.UUID, limit int) ([]*models.AuditLogEntry, error) {
	var out []*models.AuditLogEntry
	for i := len(m.entries) - 1; i >= 0; i-- {
		e := m.entries[i]
		if tableName != "" && e.TableName != tableName {
			continue
		}
		if recordID != nil && (e.RecordID == nil || *e.RecordID != *recordID) {
			continue
		}
		out = append(out, e)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// nopAudit discards audit events.
type nopAudit struct{}

func (nopAudit) LogCreate(context.Context, string, uuid.UUID, any)      {}
func (nopAudit) LogUpdate(context.Context, string, uuid.UUID, any, any) {}
func (nopAudit) LogDelete(context.Context, string, uuid.UUID, any)      {}
func (nopAudit) List(context.Context, string, *uuid.UUID, int) ([]*models.AuditLogEntry, error) {
	return nil, nil
}

// mockIssuer returns deterministic token strings.
type mockIssuer struct {
	issued int
}

func (m *mockIssuer) IssuePair(account *models.Account, roles []models.AppRole) (*models.TokenPair, error) {
	m.issued++
	return &models.TokenPair{
		AccessToken:  "access-" + account.ID.String(),
		RefreshToken: "refresh-" + account.ID.String(),
		ExpiresAt:    time.Now().Add(time.Minute),
	}, nil
}

// mockRefreshValidator maps refresh token strings to claims.
type mockRefreshValidator struct {
	claims map[string]*auth.Claims
}

func (m *mockRefreshValidator) ValidateRefreshToken(ctx context.Context, token string) (*auth.Claims, error) {
	c, ok := m.claims[token]
	if !ok {
		return nil, auth.ErrWrongTokenType
	}
	return c, nil
}
