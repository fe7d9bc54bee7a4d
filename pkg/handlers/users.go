package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-notebook/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-notebook/pkg/auth"
	"github.com/ekaya-inc/ekaya-notebook/pkg/models"
	"github.com/ekaya-inc/ekaya-notebook/pkg/services"
)

// SignupRequest for POST /api/users/signup
type SignupRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

// LoginRequest for POST /api/users/login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest for POST /api/users/refresh and the optional body of logout.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// SessionUser is the account summary returned with tokens.
type SessionUser struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}

// SessionResponse for login and refresh.
type SessionResponse struct {
	User         SessionUser `json:"user"`
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	ExpiresAt    time.Time   `json:"expires_at"`
}

// UpdateProfileRequest for PUT /api/users/{id}. Only the display name may change;
// roles are managed through user_roles.
type UpdateProfileRequest struct {
	DisplayName *string `json:"display_name"`
}

// LastProjectRequest for PUT /api/users/me/last-project. A null id clears it.
type LastProjectRequest struct {
	ProjectID *uuid.UUID `json:"project_id"`
}

// RolesResponse for GET /api/users/me/roles
type RolesResponse struct {
	Roles []models.AppRole `json:"roles"`
}

// RoleCheckResponse for GET /api/users/me/roles/{role}
type RoleCheckResponse struct {
	Role    models.AppRole `json:"role"`
	Granted bool           `json:"granted"`
}

// UsersHandler handles account and profile HTTP requests.
type UsersHandler struct {
	accountService services.AccountService
	profileService services.ProfileService
	// sessions is nil when cookie sessions are disabled.
	sessions *auth.SessionManager
	logger   *zap.Logger
}

// NewUsersHandler creates a new users handler.
func NewUsersHandler(
	accountService services.AccountService,
	profileService services.ProfileService,
	sessions *auth.SessionManager,
	logger *zap.Logger,
) *UsersHandler {
	return &UsersHandler{
		accountService: accountService,
		profileService: profileService,
		sessions:       sessions,
		logger:         logger,
	}
}

// RegisterRoutes registers the users handler's routes on the given mux.
// Signup, login and refresh run before a user is known and use anonScope.
func (h *UsersHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, userScope, anonScope ScopeMiddleware) {
	mux.HandleFunc("POST /api/users/signup", anonScope(h.Signup))
	mux.HandleFunc("POST /api/users/login", anonScope(h.Login))
	mux.HandleFunc("POST /api/users/refresh", anonScope(h.Refresh))
	mux.HandleFunc("POST /api/users/logout", authMiddleware.RequireAuth(h.Logout))

	mux.HandleFunc("GET /api/users/me", authMiddleware.RequireAuth(userScope(h.Me)))
	mux.HandleFunc("PUT /api/users/me/last-project", authMiddleware.RequireAuth(userScope(h.SetLastProject)))
	mux.HandleFunc("POST /api/users/me/avatar", authMiddleware.RequireAuth(userScope(h.UploadAvatar)))
	mux.HandleFunc("GET /api/users/me/roles", authMiddleware.RequireAuth(userScope(h.Roles)))
	mux.HandleFunc("GET /api/users/me/roles/{role}", authMiddleware.RequireAuth(userScope(h.HasRole)))

	mux.HandleFunc("GET /api/users/{id}", authMiddleware.RequireAuth(userScope(h.GetProfile)))
	mux.HandleFunc("PUT /api/users/{id}", authMiddleware.RequireAuth(userScope(h.UpdateProfile)))
	mux.HandleFunc("DELETE /api/users/{id}", authMiddleware.RequireAuth(userScope(h.DeleteAccount)))
}

// Signup handles POST /api/users/signup
func (h *UsersHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	account, err := h.accountService.Signup(r.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		var inputErr *apperrors.InputError
		switch {
		case errors.As(err, &inputErr):
			writeError(w, h.logger, http.StatusBadRequest, "validation_error", inputErr.Message)
		case errors.Is(err, services.ErrEmailTaken):
			writeError(w, h.logger, http.StatusBadRequest, "signup_failed", "An account with this email already exists")
		default:
			h.logger.Error("Signup failed", zap.Error(err))
			writeError(w, h.logger, http.StatusBadRequest, "signup_failed", "Failed to create account")
		}
		return
	}

	writeJSON(w, h.logger, http.StatusCreated, account)
}

// Login handles POST /api/users/login
// Browser clients also receive the access token in the session cookie.
func (h *UsersHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	session, err := h.accountService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.sessionFailure(w, err, "Failed to sign in")
		return
	}

	h.saveSession(w, r, session.Tokens.AccessToken)
	writeJSON(w, h.logger, http.StatusOK, newSessionResponse(session))
}

// Refresh handles POST /api/users/refresh
func (h *UsersHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	session, err := h.accountService.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.sessionFailure(w, err, "Failed to refresh session")
		return
	}

	h.saveSession(w, r, session.Tokens.AccessToken)
	writeJSON(w, h.logger, http.StatusOK, newSessionResponse(session))
}

// Logout handles POST /api/users/logout
// The body may carry the refresh token so it is revoked as well.
func (h *UsersHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.GetClaims(r.Context())
	if !ok {
		writeError(w, h.logger, http.StatusUnauthorized, "unauthorized", "Authorization required")
		return
	}

	var req RefreshRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, h.logger, http.StatusBadRequest, "invalid_request", "Invalid request body")
			return
		}
	}

	if err := h.accountService.Logout(r.Context(), claims, req.RefreshToken); err != nil {
		h.logger.Error("Logout failed", zap.Error(err))
		writeError(w, h.logger, http.StatusBadRequest, "logout_failed", "Failed to sign out")
		return
	}

	if h.sessions != nil {
		if err := h.sessions.Clear(w, r); err != nil {
			h.logger.Debug("No session cookie to clear", zap.Error(err))
		}
	}
	writeJSON(w, h.logger, http.StatusOK, MessageResponse{Message: "Signed out successfully"})
}

// Me handles GET /api/users/me
func (h *UsersHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := RequireUserID(w, r, h.logger)
	if !ok {
		return
	}

	me, err := h.profileService.GetMe(r.Context(), userID)
	if err != nil {
		serviceFailure(w, h.logger, err, "Profile", "fetch profile")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, me)
}

// SetLastProject handles PUT /api/users/me/last-project
func (h *UsersHandler) SetLastProject(w http.ResponseWriter, r *http.Request) {
	userID, ok := RequireUserID(w, r, h.logger)
	if !ok {
		return
	}

	var req LastProjectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	if err := h.profileService.SetLastProject(r.Context(), userID, req.ProjectID); err != nil {
		serviceFailure(w, h.logger, err, "Project", "update last project")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, MessageResponse{Message: "Last project updated"})
}

// UploadAvatar handles POST /api/users/me/avatar (multipart field "avatar").
func (h *UsersHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	userID, ok := RequireUserID(w, r, h.logger)
	if !ok {
		return
	}

	// Leave headroom over the image limit for multipart framing so oversize
	// images get the service's message instead of a parse error.
	r.Body = http.MaxBytesReader(w, r.Body, services.MaxAvatarBytes+(1<<20))
	file, header, err := r.FormFile("avatar")
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "validation_error", "avatar file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, services.MaxAvatarBytes+1))
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_request", "Failed to read avatar")
		return
	}

	profile, err := h.profileService.UploadAvatar(r.Context(), userID, header.Filename, data)
	if err != nil {
		serviceFailure(w, h.logger, err, "Profile", "upload avatar")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, profile)
}

// Roles handles GET /api/users/me/roles
func (h *UsersHandler) Roles(w http.ResponseWriter, r *http.Request) {
	userID, ok := RequireUserID(w, r, h.logger)
	if !ok {
		return
	}

	roles, err := h.profileService.ListRoles(r.Context(), userID)
	if err != nil {
		serviceFailure(w, h.logger, err, "Profile", "fetch roles")
		return
	}
	if roles == nil {
		roles = []models.AppRole{}
	}

	writeJSON(w, h.logger, http.StatusOK, RolesResponse{Roles: roles})
}

// HasRole handles GET /api/users/me/roles/{role}
func (h *UsersHandler) HasRole(w http.ResponseWriter, r *http.Request) {
	userID, ok := RequireUserID(w, r, h.logger)
	if !ok {
		return
	}
	role := models.AppRole(r.PathValue("role"))

	granted, err := h.profileService.HasRole(r.Context(), userID, role)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidRole) {
			writeError(w, h.logger, http.StatusBadRequest, "invalid_role", "Unknown role")
			return
		}
		serviceFailure(w, h.logger, err, "Profile", "check role")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, RoleCheckResponse{Role: role, Granted: granted})
}

// GetProfile handles GET /api/users/{id}
func (h *UsersHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireSelf(w, r, "Cannot access other users' profiles")
	if !ok {
		return
	}

	me, err := h.profileService.GetMe(r.Context(), userID)
	if err != nil {
		serviceFailure(w, h.logger, err, "Profile", "fetch profile")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, me.Profile)
}

// UpdateProfile handles PUT /api/users/{id}
func (h *UsersHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireSelf(w, r, "Cannot update other users' profiles")
	if !ok {
		return
	}

	var req UpdateProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if req.DisplayName == nil {
		writeError(w, h.logger, http.StatusBadRequest, "validation_error", "display_name is required")
		return
	}

	profile, err := h.profileService.UpdateDisplayName(r.Context(), userID, *req.DisplayName)
	if err != nil {
		serviceFailure(w, h.logger, err, "Profile", "update profile")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, profile)
}

// DeleteAccount handles DELETE /api/users/{id}
func (h *UsersHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireSelf(w, r, "Cannot delete other users")
	if !ok {
		return
	}

	if err := h.accountService.Delete(r.Context(), userID); err != nil {
		serviceFailure(w, h.logger, err, "Account", "delete account")
		return
	}

	if h.sessions != nil {
		_ = h.sessions.Clear(w, r)
	}
	writeJSON(w, h.logger, http.StatusOK, MessageResponse{Message: "Account deleted successfully"})
}

// requireSelf resolves {id} ("me" or a UUID) and rejects ids other than the caller's.
func (h *UsersHandler) requireSelf(w http.ResponseWriter, r *http.Request, forbidden string) (uuid.UUID, bool) {
	callerID, ok := RequireUserID(w, r, h.logger)
	if !ok {
		return uuid.Nil, false
	}

	raw := r.PathValue("id")
	if raw == "me" {
		return callerID, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_id", "Invalid ID format")
		return uuid.Nil, false
	}
	if id != callerID {
		writeError(w, h.logger, http.StatusForbidden, "forbidden", forbidden)
		return uuid.Nil, false
	}
	return callerID, true
}

// sessionFailure maps login and refresh errors. Messages stay generic.
func (h *UsersHandler) sessionFailure(w http.ResponseWriter, err error, fallback string) {
	var inputErr *apperrors.InputError
	switch {
	case errors.As(err, &inputErr):
		writeError(w, h.logger, http.StatusBadRequest, "validation_error", inputErr.Message)
	case errors.Is(err, services.ErrInvalidCredentials):
		writeError(w, h.logger, http.StatusUnauthorized, "unauthorized", "Invalid credentials")
	case errors.Is(err, apperrors.ErrUnauthorized):
		writeError(w, h.logger, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
	default:
		h.logger.Error(fallback, zap.Error(err))
		writeError(w, h.logger, http.StatusInternalServerError, "internal_error", fallback)
	}
}

func (h *UsersHandler) saveSession(w http.ResponseWriter, r *http.Request, accessToken string) {
	if h.sessions == nil {
		return
	}
	if err := h.sessions.Save(w, r, accessToken); err != nil {
		h.logger.Warn("Failed to save session cookie", zap.Error(err))
	}
}

func newSessionResponse(s *services.Session) SessionResponse {
	return SessionResponse{
		User:         SessionUser{ID: s.Account.ID, Email: s.Account.Email},
		AccessToken:  s.Tokens.AccessToken,
		RefreshToken: s.Tokens.RefreshToken,
		ExpiresAt:    s.Tokens.ExpiresAt,
	}
}
