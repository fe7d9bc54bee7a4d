package client

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/ekaya-inc/ekaya-notebook/pkg/models"
	"github.com/ekaya-inc/ekaya-notebook/pkg/workspace"
)

var _ workspace.Gateway = (*Client)(nil)

// Session is the response of login and refresh.
type Session struct {
	User struct {
		ID    uuid.UUID `json:"id"`
		Email string    `json:"email"`
	} `json:"user"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type credentials struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name,omitempty"`
}

// Signup creates an account. It does not sign in.
func (c *Client) Signup(ctx context.Context, email, password, displayName string) (*models.Account, error) {
	var account models.Account
	err := c.do(ctx, http.MethodPost, []string{"api", "users", "signup"}, nil,
		credentials{Email: email, Password: password, DisplayName: displayName}, &account)
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// Login signs in and stores the access token on the client.
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	var session Session
	err := c.do(ctx, http.MethodPost, []string{"api", "users", "login"}, nil,
		credentials{Email: email, Password: password}, &session)
	if err != nil {
		return nil, err
	}
	c.SetToken(session.AccessToken)
	return &session, nil
}

// Logout revokes the access token and, if given, the refresh token.
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	body := struct {
		RefreshToken string `json:"refresh_token,omitempty"`
	}{refreshToken}
	if err := c.do(ctx, http.MethodPost, []string{"api", "users", "logout"}, nil, body, nil); err != nil {
		return err
	}
	c.SetToken("")
	return nil
}

// Me returns the caller's profile, email and roles.
func (c *Client) Me(ctx context.Context) (*models.Me, error) {
	var me models.Me
	if err := c.do(ctx, http.MethodGet, []string{"api", "users", "me"}, nil, nil, &me); err != nil {
		return nil, err
	}
	return &me, nil
}

// Projects

func (c *Client) ListProjects(ctx context.Context) ([]*models.Project, error) {
	var resp struct {
		Projects []*models.Project `json:"projects"`
	}
	if err := c.do(ctx, http.MethodGet, []string{"api", "projects"}, nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Projects, nil
}

func (c *Client) GetProject(ctx context.Context, id uuid.UUID) (*models.ProjectDetail, error) {
	var detail models.ProjectDetail
	if err := c.do(ctx, http.MethodGet, []string{"api", "projects", id.String()}, nil, nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

func (c *Client) CreateProject(ctx context.Context, name string, description *string) (*models.Project, error) {
	body := struct {
		Name        string  `json:"name"`
		Description *string `json:"description"`
	}{name, description}
	var project models.Project
	if err := c.do(ctx, http.MethodPost, []string{"api", "projects"}, nil, body, &project); err != nil {
		return nil, err
	}
	return &project, nil
}

func (c *Client) UpdateProject(ctx context.Context, id uuid.UUID, patch models.ProjectPatch) (*models.Project, error) {
	var project models.Project
	if err := c.do(ctx, http.MethodPut, []string{"api", "projects", id.String()}, nil, patch, &project); err != nil {
		return nil, err
	}
	return &project, nil
}

func (c *Client) DeleteProject(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, []string{"api", "projects", id.String()}, nil, nil, nil)
}

// Analyses

func (c *Client) ListAnalyses(ctx context.Context, projectID uuid.UUID) ([]*models.Analysis, error) {
	var resp struct {
		Analyses []*models.Analysis `json:"analyses"`
	}
	q := url.Values{"project_id": {projectID.String()}}
	if err := c.do(ctx, http.MethodGet, []string{"api", "analyses"}, q, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Analyses, nil
}

// GetAnalysis returns an analysis with its sections in order.
func (c *Client) GetAnalysis(ctx context.Context, id uuid.UUID) (*models.AnalysisDetail, error) {
	var detail models.AnalysisDetail
	if err := c.do(ctx, http.MethodGet, []string{"api", "analyses", id.String()}, nil, nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

func (c *Client) CreateAnalysis(ctx context.Context, projectID uuid.UUID, name string, labels []string) (*models.Analysis, error) {
	body := struct {
		ProjectID string   `json:"project_id"`
		Name      string   `json:"name"`
		Labels    []string `json:"labels,omitempty"`
	}{projectID.String(), name, labels}
	var analysis models.Analysis
	if err := c.do(ctx, http.MethodPost, []string{"api", "analyses"}, nil, body, &analysis); err != nil {
		return nil, err
	}
	return &analysis, nil
}

func (c *Client) UpdateAnalysis(ctx context.Context, id uuid.UUID, patch models.AnalysisPatch) (*models.Analysis, error) {
	var analysis models.Analysis
	if err := c.do(ctx, http.MethodPut, []string{"api", "analyses", id.String()}, nil, patch, &analysis); err != nil {
		return nil, err
	}
	return &analysis, nil
}

func (c *Client) DeleteAnalysis(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, []string{"api", "analyses", id.String()}, nil, nil, nil)
}

// Datasets

func (c *Client) ListDatasets(ctx context.Context, projectID uuid.UUID) ([]*models.Dataset, error) {
	var resp struct {
		Datasets []*models.Dataset `json:"datasets"`
	}
	q := url.Values{"project_id": {projectID.String()}}
	if err := c.do(ctx, http.MethodGet, []string{"api", "datasets"}, q, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Datasets, nil
}

func (c *Client) CreateDataset(ctx context.Context, projectID uuid.UUID, name string, description *string) (*models.Dataset, error) {
	body := struct {
		ProjectID   string  `json:"project_id"`
		Name        string  `json:"name"`
		Description *string `json:"description"`
	}{projectID.String(), name, description}
	var dataset models.Dataset
	if err := c.do(ctx, http.MethodPost, []string{"api", "datasets"}, nil, body, &dataset); err != nil {
		return nil, err
	}
	return &dataset, nil
}

func (c *Client) UpdateDataset(ctx context.Context, id uuid.UUID, patch models.DatasetPatch) (*models.Dataset, error) {
	var dataset models.Dataset
	if err := c.do(ctx, http.MethodPut, []string{"api", "datasets", id.String()}, nil, patch, &dataset); err != nil {
		return nil, err
	}
	return &dataset, nil
}

func (c *Client) DeleteDataset(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, []string{"api", "datasets", id.String()}, nil, nil, nil)
}

// Sections

func (c *Client) ListSections(ctx context.Context, analysisID uuid.UUID) ([]*models.Section, error) {
	var resp struct {
		Sections []*models.Section `json:"sections"`
	}
	q := url.Values{"analysis_id": {analysisID.String()}}
	if err := c.do(ctx, http.MethodGet, []string{"api", "sections"}, q, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Sections, nil
}

func (c *Client) CreateSection(ctx context.Context, analysisID uuid.UUID, title string, order *int) (*models.Section, error) {
	body := struct {
		AnalysisID   string `json:"analysis_id"`
		Title        string `json:"title"`
		SectionOrder *int   `json:"section_order,omitempty"`
	}{analysisID.String(), title, order}
	var section models.Section
	if err := c.do(ctx, http.MethodPost, []string{"api", "sections"}, nil, body, &section); err != nil {
		return nil, err
	}
	return &section, nil
}

func (c *Client) UpdateSection(ctx context.Context, id uuid.UUID, patch models.SectionPatch) (*models.Section, error) {
	var section models.Section
	if err := c.do(ctx, http.MethodPut, []string{"api", "sections", id.String()}, nil, patch, &section); err != nil {
		return nil, err
	}
	return &section, nil
}

func (c *Client) DeleteSection(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, []string{"api", "sections", id.String()}, nil, nil, nil)
}

// ReorderSections assigns order keys in one request.
func (c *Client) ReorderSections(ctx context.Context, updates []models.SectionOrderUpdate) error {
	body := struct {
		Sections []models.SectionOrderUpdate `json:"sections"`
	}{updates}
	return c.do(ctx, http.MethodPatch, []string{"api", "sections", "reorder"}, nil, body, nil)
}

// AnalyzeReport categorizes report text through the server's LLM gateway.
func (c *Client) AnalyzeReport(ctx context.Context, reportText string) (*models.ReportCategories, error) {
	body := struct {
		ReportText string `json:"reportText"`
	}{reportText}
	var result models.ReportCategories
	if err := c.do(ctx, http.MethodPost, []string{"api", "analyze-report"}, nil, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetShared fetches a public project by share token. No authentication is
// needed. analysisID selects whose sections are included; nil picks the first.
func (c *Client) GetShared(ctx context.Context, token string, analysisID *uuid.UUID) (*models.SharedProject, error) {
	var q url.Values
	if analysisID != nil {
		q = url.Values{"analysis_id": {analysisID.String()}}
	}
	var shared models.SharedProject
	if err := c.do(ctx, http.MethodGet, []string{"api", "shared", token}, q, nil, &shared); err != nil {
		return nil, err
	}
	return &shared, nil
}
