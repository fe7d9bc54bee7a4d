package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-notebook/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-notebook/pkg/auth"
	"github.com/ekaya-inc/ekaya-notebook/pkg/logging"
	"github.com/ekaya-inc/ekaya-notebook/pkg/models"
	"github.com/ekaya-inc/ekaya-notebook/pkg/repositories"
)

var (
	// ErrInvalidCredentials covers unknown emails and wrong passwords alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailTaken is returned by Signup for an already registered email.
	ErrEmailTaken = fmt.Errorf("email already registered: %w", apperrors.ErrConflict)
)

// TokenIssuer mints token pairs. Implemented by *auth.Issuer.
type TokenIssuer interface {
	IssuePair(account *models.Account, roles []models.AppRole) (*models.TokenPair, error)
}

// RefreshValidator checks refresh tokens. Implemented by *auth.Verifier.
type RefreshValidator interface {
	ValidateRefreshToken(ctx context.Context, token string) (*auth.Claims, error)
}

// Session is the result of a successful login or refresh.
type Session struct {
	Account *models.Account
	Tokens  *models.TokenPair
}

// AccountService handles signup, sign-in and account removal.
// Signup, Login and Refresh run before a user is known and expect an
// unrestricted database scope.
type AccountService interface {
	Signup(ctx context.Context, email, password, displayName string) (*models.Account, error)
	Login(ctx context.Context, email, password string) (*Session, error)
	Refresh(ctx context.Context, refreshToken string) (*Session, error)
	// Logout revokes the presented access token and, when given, the refresh token.
	Logout(ctx context.Context, claims *auth.Claims, refreshToken string) error
	Delete(ctx context.Context, userID uuid.UUID) error
}

type accountService struct {
	accounts    repositories.AccountRepository
	profiles    repositories.ProfileRepository
	roles       repositories.UserRoleRepository
	issuer      TokenIssuer
	refresh     RefreshValidator
	revocations auth.RevocationStore
	logger      *zap.Logger
}

// NewAccountService creates a new account service.
func NewAccountService(
	accounts repositories.AccountRepository,
	profiles repositories.ProfileRepository,
	roles repositories.UserRoleRepository,
	issuer TokenIssuer,
	refresh RefreshValidator,
	revocations auth.RevocationStore,
	logger *zap.Logger,
) AccountService {
	return &accountService{
		accounts:    accounts,
		profiles:    profiles,
		roles:       roles,
		issuer:      issuer,
		refresh:     refresh,
		revocations: revocations,
		logger:      logger.Named("account-service"),
	}
}

var _ AccountService = (*accountService)(nil)

func (s *accountService) Signup(ctx context.Context, email, password, displayName string) (*models.Account, error) {
	email = auth.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperrors.NewInputError("Email and password are required")
	}
	if err := auth.ValidateEmail(email); err != nil {
		return nil, apperrors.NewInputError("%s", err.Error())
	}
	if problems := auth.ValidatePassword(password); len(problems) > 0 {
		return nil, apperrors.NewInputError("Password must contain %s", strings.Join(problems, ", "))
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	account := &models.Account{Email: email, PasswordHash: hash}
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = emailLocalPart(email)
	}
	profile := &models.Profile{UserID: account.ID, DisplayName: &displayName}
	if err := s.profiles.Create(ctx, profile); err != nil {
		// Without a profile the account is unusable; remove it so signup can be retried.
		if delErr := s.accounts.Delete(ctx, account.ID); delErr != nil {
			s.logger.Error("Failed to remove account after profile error",
				zap.String("user_id", account.ID.String()),
				zap.Error(delErr))
		}
		return nil, fmt.Errorf("create profile: %w", err)
	}

	s.logger.Info("Account created",
		zap.String("user_id", account.ID.String()),
		zap.String("email", logging.SanitizeEmail(email)))
	return account, nil
}

func (s *accountService) Login(ctx context.Context, email, password string) (*Session, error) {
	email = auth.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperrors.NewInputError("Email and password are required")
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := auth.CheckPassword(account.PasswordHash, password); err != nil {
		s.logger.Info("Login rejected", zap.String("email", logging.SanitizeEmail(email)))
		return nil, ErrInvalidCredentials
	}

	if err := s.profiles.TouchLastLogin(ctx, account.ID); err != nil {
		s.logger.Warn("Failed to record last login",
			zap.String("user_id", account.ID.String()),
			zap.Error(err))
	}

	return s.issue(ctx, account)
}

func (s *accountService) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, apperrors.NewInputError("refresh_token is required")
	}

	claims, err := s.refresh.ValidateRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrUnauthorized, err)
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, apperrors.ErrUnauthorized
	}

	account, err := s.accounts.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrUnauthorized
		}
		return nil, err
	}

	// Refresh tokens are single use.
	s.revoke(ctx, claims)
	return s.issue(ctx, account)
}

func (s *accountService) Logout(ctx context.Context, claims *auth.Claims, refreshToken string) error {
	if claims == nil {
		return apperrors.ErrUnauthorized
	}
	s.revoke(ctx, claims)

	if refreshToken != "" {
		refreshClaims, err := s.refresh.ValidateRefreshToken(ctx, refreshToken)
		if err == nil && refreshClaims.Subject == claims.Subject {
			s.revoke(ctx, refreshClaims)
		}
	}
	return nil
}

func (s *accountService) Delete(ctx context.Context, userID uuid.UUID) error {
	if err := s.accounts.Delete(ctx, userID); err != nil {
		return err
	}
	s.logger.Info("Account deleted", zap.String("user_id", userID.String()))
	return nil
}

func (s *accountService) issue(ctx context.Context, account *models.Account) (*Session, error) {
	roles, err := s.roles.ListByUser(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	tokens, err := s.issuer.IssuePair(account, roles)
	if err != nil {
		return nil, err
	}
	return &Session{Account: account, Tokens: tokens}, nil
}

func (s *accountService) revoke(ctx context.Context, claims *auth.Claims) {
	if claims.ID == "" || claims.ExpiresAt == nil {
		return
	}
	if err := s.revocations.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		s.logger.Error("Failed to revoke token",
			zap.String("user_id", claims.Subject),
			zap.Error(err))
	}
}

func emailLocalPart(email string) string {
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return email
}
