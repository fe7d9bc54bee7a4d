package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-notebook/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-notebook/pkg/blob"
	"github.com/ekaya-inc/ekaya-notebook/pkg/models"
	"github.com/ekaya-inc/ekaya-notebook/pkg/repositories"
)

// MaxAvatarBytes is the largest accepted avatar upload.
const MaxAvatarBytes = 2 << 20

// MaxDisplayNameLength bounds display names.
const MaxDisplayNameLength = 100

var avatarKeyPattern = regexp.MustCompile(`^[0-9a-f-]{36}/avatar\.[a-z0-9]{1,5}$`)

// ProfileService manages the signed-in user's profile, avatar and roles.
type ProfileService interface {
	GetMe(ctx context.Context, userID uuid.UUID) (*models.Me, error)
	UpdateDisplayName(ctx context.Context, userID uuid.UUID, displayName string) (*models.Profile, error)
	// SetLastProject records the project to reopen at next sign-in; nil clears it.
	SetLastProject(ctx context.Context, userID uuid.UUID, projectID *uuid.UUID) error
	UploadAvatar(ctx context.Context, userID uuid.UUID, filename string, data []byte) (*models.Profile, error)
	// OpenAvatar streams a stored avatar. The caller closes the reader.
	OpenAvatar(ctx context.Context, key string) (blob.Object, io.ReadCloser, error)
	ListRoles(ctx context.Context, userID uuid.UUID) ([]models.AppRole, error)
	HasRole(ctx context.Context, userID uuid.UUID, role models.AppRole) (bool, error)
}

type profileService struct {
	profiles repositories.ProfileRepository
	accounts repositories.AccountRepository
	roles    repositories.UserRoleRepository
	projects repositories.ProjectRepository
	blobs    blob.Store
	audit    AuditService

	// avatarBaseURL prefixes stored keys to form avatar_url.
	avatarBaseURL string
	now           func() time.Time
	logger        *zap.Logger
}

// NewProfileService creates a new profile service. avatarBaseURL is either
// the blob store's public URL or the server's /avatars route.
func NewProfileService(
	profiles repositories.ProfileRepository,
	accounts repositories.AccountRepository,
	roles repositories.UserRoleRepository,
	projects repositories.ProjectRepository,
	blobs blob.Store,
	audit AuditService,
	avatarBaseURL string,
	logger *zap.Logger,
) ProfileService {
	return &profileService{
		profiles:      profiles,
		accounts:      accounts,
		roles:         roles,
		projects:      projects,
		blobs:         blobs,
		audit:         audit,
		avatarBaseURL: strings.TrimRight(avatarBaseURL, "/"),
		now:           time.Now,
		logger:        logger.Named("profile-service"),
	}
}

var _ ProfileService = (*profileService)(nil)

func (s *profileService) GetMe(ctx context.Context, userID uuid.UUID) (*models.Me, error) {
	profile, err := s.profiles.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	account, err := s.accounts.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	roles, err := s.roles.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	return &models.Me{Profile: profile, Email: account.Email, Roles: roles}, nil
}

func (s *profileService) UpdateDisplayName(ctx context.Context, userID uuid.UUID, displayName string) (*models.Profile, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, apperrors.NewInputError("display_name is required")
	}
	if len([]rune(displayName)) > MaxDisplayNameLength {
		return nil, apperrors.NewInputError("display_name must be at most %d characters", MaxDisplayNameLength)
	}

	before, err := s.profiles.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	profile, err := s.profiles.UpdateDisplayName(ctx, userID, displayName)
	if err != nil {
		return nil, err
	}

	s.audit.LogUpdate(ctx, models.AuditTableProfiles, profile.ID, before, profile)
	return profile, nil
}

func (s *profileService) SetLastProject(ctx context.Context, userID uuid.UUID, projectID *uuid.UUID) error {
	if projectID != nil {
		project, err := s.projects.Get(ctx, *projectID)
		if err != nil {
			return err
		}
		if project.UserID != userID {
			return apperrors.ErrForbidden
		}
	}
	return s.profiles.SetLastProject(ctx, userID, projectID)
}

func (s *profileService) UploadAvatar(ctx context.Context, userID uuid.UUID, filename string, data []byte) (*models.Profile, error) {
	if len(data) == 0 {
		return nil, apperrors.NewInputError("avatar file is required")
	}
	if len(data) > MaxAvatarBytes {
		return nil, apperrors.NewInputError("Image must be less than 2MB")
	}

	// The declared type is ignored; only sniffed image content is accepted.
	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return nil, apperrors.NewInputError("Please select an image file")
	}

	key := avatarKey(userID, filename, contentType)
	if err := s.blobs.Put(ctx, key, data, contentType); err != nil {
		return nil, fmt.Errorf("store avatar: %w", err)
	}

	// The key is stable per user, so a timestamp busts browser caches.
	avatarURL := fmt.Sprintf("%s/%s?t=%d", s.avatarBaseURL, key, s.now().UnixMilli())
	profile, err := s.profiles.UpdateAvatarURL(ctx, userID, avatarURL)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Avatar updated",
		zap.String("user_id", userID.String()),
		zap.String("content_type", contentType),
		zap.Int("bytes", len(data)))
	return profile, nil
}

func (s *profileService) OpenAvatar(ctx context.Context, key string) (blob.Object, io.ReadCloser, error) {
	if !avatarKeyPattern.MatchString(key) {
		return blob.Object{}, nil, apperrors.ErrNotFound
	}
	obj, rc, err := s.blobs.Get(ctx, key)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return blob.Object{}, nil, apperrors.ErrNotFound
		}
		return blob.Object{}, nil, err
	}
	return obj, rc, nil
}

func (s *profileService) ListRoles(ctx context.Context, userID uuid.UUID) ([]models.AppRole, error) {
	return s.roles.ListByUser(ctx, userID)
}

func (s *profileService) HasRole(ctx context.Context, userID uuid.UUID, role models.AppRole) (bool, error) {
	if !models.IsValidRole(string(role)) {
		return false, apperrors.ErrInvalidRole
	}
	return s.roles.HasRole(ctx, userID, role)
}

// avatarKey builds "<user>/avatar.<ext>", preferring the upload's extension.
func avatarKey(userID uuid.UUID, filename, contentType string) string {
	ext := cleanExt(strings.TrimPrefix(path.Ext(filename), "."))
	if ext == "" {
		ext = cleanExt(strings.TrimPrefix(contentType, "image/"))
	}
	if ext == "jpeg" {
		ext = "jpg"
	}
	if ext == "" {
		ext = "img"
	}
	return userID.String() + "/avatar." + ext
}

// cleanExt lowercases ext and drops it unless it is a short alphanumeric word.
func cleanExt(ext string) string {
	ext = strings.ToLower(ext)
	if len(ext) == 0 || len(ext) > 5 {
		return ""
	}
	for _, r := range ext {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
