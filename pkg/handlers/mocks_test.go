package handlers

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-notebook/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-notebook/pkg/auth"
	"github.com/ekaya-inc/ekaya-notebook/pkg/blob"
	"github.com/ekaya-inc/ekaya-notebook/pkg/models"
	"github.com/ekaya-inc/ekaya-notebook/pkg/services"
)

// mockProjectService keeps projects in memory and enforces ownership.
type mockProjectService struct {
	mu       sync.Mutex
	projects map[uuid.UUID]*models.Project
	err      error
}

func newMockProjectService() *mockProjectService {
	return &mockProjectService{projects: make(map[uuid.UUID]*models.Project)}
}

func (m *mockProjectService) owned(userID, id uuid.UUID) (*models.Project, error) {
	p, ok := m.projects[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	if p.UserID != userID {
		return nil, apperrors.ErrForbidden
	}
	return p, nil
}

func (m *mockProjectService) List(ctx context.Context, userID uuid.UUID) ([]*models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []*models.Project
	for _, p := range m.projects {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockProjectService) Get(ctx context.Context, userID, id uuid.UUID) (*models.ProjectDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, err := m.owned(userID, id)
	if err != nil {
		return nil, err
	}
	return &models.ProjectDetail{Project: p, Analyses: []*models.Analysis{}, Datasets: []*models.Dataset{}}, nil
}

func (m *mockProjectService) Create(ctx context.Context, userID uuid.UUID, name string, description *string) (*models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if len(name) > 200 {
		return nil, apperrors.NewInputError("name must be at most 200 characters")
	}
	if name == "" {
		name = models.DefaultProjectName
	}
	p := &models.Project{ID: uuid.New(), UserID: userID, Name: name, Description: description}
	m.projects[p.ID] = p
	return p, nil
}

func (m *mockProjectService) Update(ctx context.Context, userID, id uuid.UUID, patch models.ProjectPatch) (*models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, err := m.owned(userID, id)
	if err != nil {
		return nil, err
	}
	patch.Apply(p)
	return p, nil
}

func (m *mockProjectService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.owned(userID, id); err != nil {
		return err
	}
	delete(m.projects, id)
	return nil
}

func (m *mockProjectService) add(userID uuid.UUID, name string) *models.Project {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := &models.Project{ID: uuid.New(), UserID: userID, Name: name}
	m.projects[p.ID] = p
	return p
}

// mockAnalysisService records the parent id analyses are created under.
type mockAnalysisService struct {
	services.AnalysisService
	createdFor uuid.UUID
	listedFor  uuid.UUID
}

func (m *mockAnalysisService) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.Analysis, error) {
	m.listedFor = projectID
	return []*models.Analysis{{ID: uuid.New(), ProjectID: projectID, Name: "Baseline"}}, nil
}

func (m *mockAnalysisService) Create(ctx context.Context, userID, projectID uuid.UUID, name string, labels []string) (*models.Analysis, error) {
	m.createdFor = projectID
	return &models.Analysis{ID: uuid.New(), ProjectID: projectID, Name: name, Labels: labels}, nil
}

// mockSectionService captures reorder batches.
type mockSectionService struct {
	services.SectionService
	reordered []models.SectionOrderUpdate
	err       error
}

func (m *mockSectionService) Reorder(ctx context.Context, userID uuid.UUID, updates []models.SectionOrderUpdate) error {
	if m.err != nil {
		return m.err
	}
	m.reordered = updates
	return nil
}

type mockShareService struct {
	shared map[string]*models.SharedProject
}

func (m *mockShareService) GetShared(ctx context.Context, token string, analysisID *uuid.UUID) (*models.SharedProject, error) {
	p, ok := m.shared[token]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return p, nil
}

type mockAuditService struct {
	services.AuditService
	table    string
	recordID *uuid.UUID
	limit    int
}

func (m *mockAuditService) List(ctx context.Context, table string, recordID *uuid.UUID, limit int) ([]*models.AuditLogEntry, error) {
	m.table, m.recordID, m.limit = table, recordID, limit
	return nil, nil
}

type mockReportService struct {
	result *models.ReportCategories
	err    error
}

func (m *mockReportService) Analyze(ctx context.Context, reportText string) (*models.ReportCategories, error) {
	if _, err := services.ValidateReportText(reportText); err != nil {
		return nil, err
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

type mockAccountService struct {
	services.AccountService
	signupErr error
	loginErr  error
	session   *services.Session
	deleted   []uuid.UUID
}

func (m *mockAccountService) Signup(ctx context.Context, email, password, displayName string) (*models.Account, error) {
	if m.signupErr != nil {
		return nil, m.signupErr
	}
	return &models.Account{ID: uuid.New(), Email: email}, nil
}

func (m *mockAccountService) Login(ctx context.Context, email, password string) (*services.Session, error) {
	if m.loginErr != nil {
		return nil, m.loginErr
	}
	return m.session, nil
}

func (m *mockAccountService) Delete(ctx context.Context, userID uuid.UUID) error {
	m.deleted = append(m.deleted, userID)
	return nil
}

type mockProfileService struct {
	services.ProfileService
	avatars map[string][]byte
	roles   []models.AppRole
}

func (m *mockProfileService) GetMe(ctx context.Context, userID uuid.UUID) (*models.Me, error) {
	return &models.Me{Profile: &models.Profile{UserID: userID}, Email: "reader@example.com", Roles: m.roles}, nil
}

func (m *mockProfileService) UpdateDisplayName(ctx context.Context, userID uuid.UUID, displayName string) (*models.Profile, error) {
	if displayName == "" {
		return nil, apperrors.NewInputError("display_name must not be empty")
	}
	return &models.Profile{UserID: userID, DisplayName: &displayName}, nil
}

func (m *mockProfileService) OpenAvatar(ctx context.Context, key string) (blob.Object, io.ReadCloser, error) {
	data, ok := m.avatars[key]
	if !ok {
		return blob.Object{}, nil, apperrors.ErrNotFound
	}
	return blob.Object{Key: key, ContentType: "image/png", Size: int64(len(data))}, io.NopCloser(bytes.NewReader(data)), nil
}

func (m *mockProfileService) ListRoles(ctx context.Context, userID uuid.UUID) ([]models.AppRole, error) {
	return m.roles, nil
}

// testAPI wires every REST handler onto one mux the way the server does.
type testAPI struct {
	mux      *http.ServeMux
	projects *mockProjectService
	analyses *mockAnalysisService
	sections *mockSectionService
	share    *mockShareService
	audit    *mockAuditService
	reports  *mockReportService
	accounts *mockAccountService
	profiles *mockProfileService
}

func newTestAPI() *testAPI {
	logger := zap.NewNop()
	api := &testAPI{
		mux:      http.NewServeMux(),
		projects: newMockProjectService(),
		analyses: &mockAnalysisService{},
		sections: &mockSectionService{},
		share:    &mockShareService{shared: map[string]*models.SharedProject{}},
		audit:    &mockAuditService{},
		reports:  &mockReportService{},
		accounts: &mockAccountService{},
		profiles: &mockProfileService{avatars: map[string][]byte{}},
	}

	authMw := auth.NewMiddleware(fakeAuthService{}, logger)
	NewProjectsHandler(api.projects, logger).RegisterRoutes(api.mux, authMw, passThrough)
	NewAnalysesHandler(api.analyses, logger).RegisterRoutes(api.mux, authMw, passThrough)
	NewSectionsHandler(api.sections, logger).RegisterRoutes(api.mux, authMw, passThrough)
	NewSharedHandler(api.share, logger).RegisterRoutes(api.mux, passThrough)
	NewAuditLogsHandler(api.audit, logger).RegisterRoutes(api.mux, authMw, passThrough)
	NewAnalyzeReportHandler(api.reports, logger).RegisterRoutes(api.mux, authMw)
	NewUsersHandler(api.accounts, api.profiles, nil, logger).RegisterRoutes(api.mux, authMw, passThrough, passThrough)
	NewAvatarsHandler(api.profiles, logger).RegisterRoutes(api.mux)
	return api
}
